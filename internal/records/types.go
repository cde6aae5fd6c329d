package records

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record file names. They double as the coarse provenance tags.
const (
	FileTransactions = "transacoes.csv"
	FileHistory      = "historico_atendimento.csv"
	FileProfile      = "perfil_investidor.json"
	FileProducts     = "produtos_financeiros.json"
)

// Direction tells money in from money out.
type Direction string

const (
	Inflow  Direction = "entrada"
	Outflow Direction = "saida"
)

// RiskTier is the closed set of product risk levels.
type RiskTier string

const (
	RiskLow    RiskTier = "baixo"
	RiskMedium RiskTier = "medio"
	RiskHigh   RiskTier = "alto"
)

// Investor risk profiles as declared in the profile file.
const (
	ProfileConservative = "conservador"
	ProfileModerate     = "moderado"
	ProfileAggressive   = "arrojado"
)

// Transaction is one row of the statement. Amount is always a non-negative
// magnitude; Direction carries the sign.
type Transaction struct {
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Direction   Direction       `json:"direction"`
}

// Goal is a savings target owned by the profile.
type Goal struct {
	Label        string          `json:"label"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	TargetDate   time.Time       `json:"target_date"`
}

// Profile is the investor profile of the single user.
type Profile struct {
	Name          string          `json:"name"`
	MonthlyIncome decimal.Decimal `json:"monthly_income"`
	RiskProfile   string          `json:"risk_profile"`
	AcceptsRisk   bool            `json:"accepts_risk"`
	NetWorth      decimal.Decimal `json:"net_worth"`
	EmergencyFund decimal.Decimal `json:"emergency_fund"`
	Goals         []Goal          `json:"goals"`
}

// Product is a catalog entry the agent may suggest.
type Product struct {
	Name            string          `json:"name"`
	Category        string          `json:"category"`
	Risk            RiskTier        `json:"risk"`
	ExpectedReturn  string          `json:"expected_return"`
	MinContribution decimal.Decimal `json:"min_contribution"`
	SuitableFor     string          `json:"suitable_for"`
}

// Interaction is one past customer-service contact.
type Interaction struct {
	Date     time.Time `json:"date"`
	Channel  string    `json:"channel"`
	Topic    string    `json:"topic"`
	Summary  string    `json:"summary"`
	Resolved bool      `json:"resolved"`
}

// Dataset is the fully loaded, read-only record store.
type Dataset struct {
	Transactions []Transaction `json:"transactions"`
	History      []Interaction `json:"history"`
	Profile      Profile       `json:"profile"`
	Products     []Product     `json:"products"`
}

// LatestTransactionDate returns the date of the most recent transaction.
// ok is false when there are no transactions.
func (d *Dataset) LatestTransactionDate() (latest time.Time, ok bool) {
	for _, t := range d.Transactions {
		if !ok || t.Date.After(latest) {
			latest = t.Date
			ok = true
		}
	}
	return latest, ok
}

// Outflows returns the outflow transactions in date order.
func (d *Dataset) Outflows() []Transaction {
	var out []Transaction
	for _, t := range d.Transactions {
		if t.Direction == Outflow {
			out = append(out, t)
		}
	}
	return out
}
