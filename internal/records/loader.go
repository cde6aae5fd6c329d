// Package records loads and validates the user's financial record files.
package records

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/moara/internal/normalize"
)

var (
	// ErrMissingFile is returned when a required record file does not exist.
	ErrMissingFile = errors.New("missing record file")
	// ErrMissingField is returned when a required column or field is absent.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidValue is returned when a field cannot be parsed.
	ErrInvalidValue = errors.New("invalid value")
)

var (
	transactionColumns = []string{"data", "descricao", "categoria", "valor", "tipo"}
	historyColumns     = []string{"data", "canal", "tema", "resumo", "resolvido"}
	profileFields      = []string{"nome", "perfil_investidor", "renda_mensal", "metas"}
	productFields      = []string{"nome", "categoria", "risco", "indicado_para"}
)

var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", "2006-01-02T15:04:05Z07:00", "02/01/2006"}

// Load reads all four record files from dir. Loading is all-or-nothing:
// any missing file, missing field or unparsable value fails the whole load.
func Load(ctx context.Context, dir string) (*Dataset, error) {
	var ds Dataset

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, err := loadTransactions(filepath.Join(dir, FileTransactions))
		ds.Transactions = txs
		return err
	})
	g.Go(func() error {
		h, err := loadHistory(filepath.Join(dir, FileHistory))
		ds.History = h
		return err
	})
	g.Go(func() error {
		p, err := loadProfile(filepath.Join(dir, FileProfile))
		ds.Profile = p
		return err
	})
	g.Go(func() error {
		p, err := loadProducts(filepath.Join(dir, FileProducts))
		ds.Products = p
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading records from %s: %w", dir, err)
	}
	return &ds, nil
}

func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingFile, filepath.Base(path))
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filepath.Base(path), err)
	}
	return f, nil
}

// readCSV returns the rows of a CSV file as maps keyed by header name, after
// checking that every required column is present.
func readCSV(path string, required []string) ([]map[string]string, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := filepath.Base(path)
	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: %s has no header", ErrMissingField, name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s header: %w", name, err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	var missing []string
	for _, col := range required {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s lacks columns %v", ErrMissingField, name, missing)
	}

	var rows []map[string]string
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s line %d: %w", name, line, err)
		}
		row := make(map[string]string, len(index))
		for col, i := range index {
			if i < len(rec) {
				row[col] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func loadTransactions(path string) ([]Transaction, error) {
	rows, err := readCSV(path, transactionColumns)
	if err != nil {
		return nil, err
	}

	txs := make([]Transaction, 0, len(rows))
	for i, row := range rows {
		where := fmt.Sprintf("%s row %d", FileTransactions, i+1)
		date, err := parseDate(row["data"])
		if err != nil {
			return nil, fmt.Errorf("%w: %s data: %v", ErrInvalidValue, where, err)
		}
		amount, err := parseAmount(row["valor"])
		if err != nil {
			return nil, fmt.Errorf("%w: %s valor %q", ErrInvalidValue, where, row["valor"])
		}
		dir, err := parseDirection(row["tipo"])
		if err != nil {
			return nil, fmt.Errorf("%w: %s tipo %q", ErrInvalidValue, where, row["tipo"])
		}
		txs = append(txs, Transaction{
			Date:        date,
			Description: row["descricao"],
			Category:    row["categoria"],
			Amount:      amount.Abs(),
			Direction:   dir,
		})
	}

	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.Before(txs[j].Date)
	})
	return txs, nil
}

func loadHistory(path string) ([]Interaction, error) {
	rows, err := readCSV(path, historyColumns)
	if err != nil {
		return nil, err
	}

	out := make([]Interaction, 0, len(rows))
	for i, row := range rows {
		date, err := parseDate(row["data"])
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d data: %v", ErrInvalidValue, FileHistory, i+1, err)
		}
		out = append(out, Interaction{
			Date:     date,
			Channel:  row["canal"],
			Topic:    row["tema"],
			Summary:  row["resumo"],
			Resolved: parseYes(row["resolvido"]),
		})
	}
	return out, nil
}

type rawGoal struct {
	Label  string          `json:"meta"`
	Amount decimal.Decimal `json:"valor_necessario"`
	Date   string          `json:"prazo"`
}

type rawProfile struct {
	Name          string          `json:"nome"`
	RiskProfile   string          `json:"perfil_investidor"`
	AcceptsRisk   bool            `json:"aceita_risco"`
	MonthlyIncome decimal.Decimal `json:"renda_mensal"`
	NetWorth      decimal.Decimal `json:"patrimonio_total"`
	EmergencyFund decimal.Decimal `json:"reserva_emergencia_atual"`
	Goals         []rawGoal       `json:"metas"`
}

func loadProfile(path string) (Profile, error) {
	data, err := readJSONFile(path)
	if err != nil {
		return Profile{}, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Profile{}, fmt.Errorf("%w: %s is not a JSON object: %v", ErrInvalidValue, FileProfile, err)
	}
	if missing := missingKeys(fields, profileFields); len(missing) > 0 {
		return Profile{}, fmt.Errorf("%w: %s lacks %v", ErrMissingField, FileProfile, missing)
	}

	var raw rawProfile
	if err := json.Unmarshal(data, &raw); err != nil {
		return Profile{}, fmt.Errorf("%w: %s: %v", ErrInvalidValue, FileProfile, err)
	}

	p := Profile{
		Name:          raw.Name,
		MonthlyIncome: raw.MonthlyIncome,
		RiskProfile:   normalize.Fold(raw.RiskProfile),
		AcceptsRisk:   raw.AcceptsRisk,
		NetWorth:      raw.NetWorth,
		EmergencyFund: raw.EmergencyFund,
	}
	for i, g := range raw.Goals {
		date, err := parseGoalDate(g.Date)
		if err != nil {
			return Profile{}, fmt.Errorf("%w: %s metas[%d] prazo %q", ErrInvalidValue, FileProfile, i, g.Date)
		}
		p.Goals = append(p.Goals, Goal{Label: g.Label, TargetAmount: g.Amount, TargetDate: date})
	}
	return p, nil
}

type rawProduct struct {
	Name            string          `json:"nome"`
	Category        string          `json:"categoria"`
	Risk            string          `json:"risco"`
	ExpectedReturn  json.RawMessage `json:"rentabilidade"`
	MinContribution decimal.Decimal `json:"aporte_minimo"`
	SuitableFor     string          `json:"indicado_para"`
}

func loadProducts(path string) ([]Product, error) {
	data, err := readJSONFile(path)
	if err != nil {
		return nil, err
	}

	var items []map[string]json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %s must contain a list of products", ErrInvalidValue, FileProducts)
	}
	for i, item := range items {
		if missing := missingKeys(item, productFields); len(missing) > 0 {
			return nil, fmt.Errorf("%w: %s product %d lacks %v", ErrMissingField, FileProducts, i, missing)
		}
	}

	var raws []rawProduct
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidValue, FileProducts, err)
	}

	out := make([]Product, 0, len(raws))
	for i, r := range raws {
		risk, err := parseRisk(r.Risk)
		if err != nil {
			return nil, fmt.Errorf("%w: %s product %d risco %q", ErrInvalidValue, FileProducts, i, r.Risk)
		}
		out = append(out, Product{
			Name:            r.Name,
			Category:        r.Category,
			Risk:            risk,
			ExpectedReturn:  rawText(r.ExpectedReturn),
			MinContribution: r.MinContribution,
			SuitableFor:     r.SuitableFor,
		})
	}
	return out, nil
}

func readJSONFile(path string) ([]byte, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	return data, nil
}

func missingKeys(m map[string]json.RawMessage, required []string) []string {
	var missing []string
	for _, k := range required {
		if _, ok := m[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// parseGoalDate accepts YYYY-MM (first day of month) or a full date.
func parseGoalDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01", s); err == nil {
		return t, nil
	}
	return parseDate(s)
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	return decimal.NewFromString(s)
}

func parseDirection(s string) (Direction, error) {
	switch normalize.Fold(s) {
	case "saida", "debito", "out":
		return Outflow, nil
	case "entrada", "credito", "in":
		return Inflow, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

func parseRisk(s string) (RiskTier, error) {
	switch normalize.Fold(s) {
	case "baixo":
		return RiskLow, nil
	case "medio":
		return RiskMedium, nil
	case "alto":
		return RiskHigh, nil
	}
	return "", fmt.Errorf("unknown risk tier %q", s)
}

func parseYes(s string) bool {
	switch normalize.Fold(s) {
	case "sim", "true", "1", "yes", "s":
		return true
	}
	return false
}

func rawText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
