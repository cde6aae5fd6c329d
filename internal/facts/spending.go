// Package facts computes deterministic financial facts from a loaded
// dataset. Every function is pure and tags its result with the record
// fields it read.
package facts

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kalambet/moara/internal/records"
)

// Source tags, as file:field lists.
const (
	SourceSpending  = records.FileTransactions + ":data,tipo,categoria,valor"
	SourceAlert     = records.FileTransactions + ":data,valor,tipo"
	SourceRecurring = records.FileTransactions + ":categoria,valor"
	SourceGoal      = records.FileProfile + ":renda_mensal,perfil_investidor,metas"
	SourceProfile   = records.FileProfile + ":perfil_investidor,aceita_risco"
	SourceProducts  = records.FileProducts + ":nome,risco,indicado_para"
)

// DefaultSummaryDays is the window used when a query does not name one.
const DefaultSummaryDays = 30

// AlertWindowDays is the length of each window compared by SpendingIncrease.
const AlertWindowDays = 7

var alertThreshold = decimal.RequireFromString("0.20")

var hundred = decimal.NewFromInt(100)

// CategoryTotal is the outflow subtotal of one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Count    int             `json:"count"`
	Total    decimal.Decimal `json:"total"`
}

// Spending summarizes outflows in a trailing window.
type Spending struct {
	PeriodDays  int             `json:"period_days"`
	From        time.Time       `json:"from"`
	To          time.Time       `json:"to"`
	Total       decimal.Decimal `json:"total"`
	TopCategory string          `json:"top_category"`
	TopTotal    decimal.Decimal `json:"top_total"`
	Categories  []CategoryTotal `json:"categories"`
	NoData      bool            `json:"no_data"`
	Sources     []string        `json:"sources"`
}

// SpendingSummary totals outflows dated within periodDays of the most recent
// transaction. The window is anchored on the data, not on the wall clock.
func SpendingSummary(ds *records.Dataset, periodDays int) Spending {
	s := Spending{PeriodDays: periodDays, Sources: []string{SourceSpending}}
	anchor, ok := ds.LatestTransactionDate()
	if !ok || periodDays <= 0 {
		s.NoData = true
		return s
	}
	s.To = anchor
	s.From = anchor.AddDate(0, 0, -periodDays)

	var window []records.Transaction
	for _, t := range ds.Outflows() {
		if !t.Date.Before(s.From) && !t.Date.After(anchor) {
			window = append(window, t)
		}
	}
	if len(window) == 0 {
		s.NoData = true
		return s
	}

	s.Categories = byCategory(window)
	for _, c := range s.Categories {
		s.Total = s.Total.Add(c.Total)
	}
	s.TopCategory = s.Categories[0].Category
	s.TopTotal = s.Categories[0].Total
	return s
}

// byCategory groups transactions and orders the groups by total descending,
// then category name.
func byCategory(txs []records.Transaction) []CategoryTotal {
	idx := make(map[string]int)
	var out []CategoryTotal
	for _, t := range txs {
		i, ok := idx[t.Category]
		if !ok {
			i = len(out)
			idx[t.Category] = i
			out = append(out, CategoryTotal{Category: t.Category})
		}
		out[i].Count++
		out[i].Total = out[i].Total.Add(t.Amount)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Alert compares the most recent window of outflows against the one before.
type Alert struct {
	WindowDays int             `json:"window_days"`
	Recent     decimal.Decimal `json:"recent"`
	Prior      decimal.Decimal `json:"prior"`
	// Percent is (Recent-Prior)/Prior*100, valid only when Defined.
	Percent   decimal.Decimal `json:"percent"`
	Defined   bool            `json:"defined"`
	Triggered bool            `json:"triggered"`
	NoData    bool            `json:"no_data"`
	Sources   []string        `json:"sources"`
}

// SpendingIncrease flags an alert when outflows in the last AlertWindowDays
// grew by more than 20% over the preceding window of the same length.
// The recent window is [anchor-7d, anchor] and the prior one is
// [anchor-14d, anchor-7d). A prior total of zero never alerts.
func SpendingIncrease(ds *records.Dataset) Alert {
	a := Alert{WindowDays: AlertWindowDays, Sources: []string{SourceAlert}}
	anchor, ok := ds.LatestTransactionDate()
	if !ok {
		a.NoData = true
		return a
	}
	recentStart := anchor.AddDate(0, 0, -AlertWindowDays)
	priorStart := recentStart.AddDate(0, 0, -AlertWindowDays)

	for _, t := range ds.Outflows() {
		switch {
		case t.Date.After(anchor):
		case !t.Date.Before(recentStart):
			a.Recent = a.Recent.Add(t.Amount)
		case !t.Date.Before(priorStart):
			a.Prior = a.Prior.Add(t.Amount)
		}
	}

	if !a.Prior.IsPositive() {
		a.NoData = a.Recent.IsZero()
		return a
	}
	ratio := a.Recent.Sub(a.Prior).Div(a.Prior)
	a.Defined = true
	a.Percent = ratio.Mul(hundred)
	a.Triggered = ratio.GreaterThan(alertThreshold)
	return a
}

// Recurrence lists outflow categories seen at least twice.
type Recurrence struct {
	Items   []CategoryTotal `json:"items"`
	Sources []string        `json:"sources"`
}

// RecurringExpenses groups all outflows by category and keeps categories with
// two or more occurrences, ordered by count, then total, then name.
func RecurringExpenses(ds *records.Dataset) Recurrence {
	r := Recurrence{Sources: []string{SourceRecurring}}
	for _, c := range byCategory(ds.Outflows()) {
		if c.Count >= 2 {
			r.Items = append(r.Items, c)
		}
	}
	sort.SliceStable(r.Items, func(i, j int) bool {
		if r.Items[i].Count != r.Items[j].Count {
			return r.Items[i].Count > r.Items[j].Count
		}
		if c := r.Items[i].Total.Cmp(r.Items[j].Total); c != 0 {
			return c > 0
		}
		return r.Items[i].Category < r.Items[j].Category
	})
	return r
}
