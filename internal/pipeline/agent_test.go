package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/kalambet/moara/internal/composer"
	"github.com/kalambet/moara/internal/intent"
	"github.com/kalambet/moara/internal/records"
	"github.com/kalambet/moara/internal/storage"
	"github.com/kalambet/moara/internal/validator"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func testDataset() *records.Dataset {
	dec := decimal.RequireFromString
	return &records.Dataset{
		Transactions: []records.Transaction{
			{Date: day("2025-10-05"), Description: "Aluguel", Category: "moradia", Amount: dec("1200"), Direction: records.Outflow},
			{Date: day("2025-10-10"), Description: "Supermercado", Category: "alimentacao", Amount: dec("450"), Direction: records.Outflow},
		},
		Profile: records.Profile{
			Name:          "João Silva",
			MonthlyIncome: dec("5000"),
			RiskProfile:   records.ProfileModerate,
		},
	}
}

// mockComposer implements composer.Composer for testing.
type mockComposer struct {
	answer composer.Answer
	err    error
	calls  int
}

func (m *mockComposer) Compose(_ context.Context, _ string, _ *records.Dataset, _ intent.Classification) (composer.Answer, error) {
	m.calls++
	return m.answer, m.err
}

type mockRecorder struct {
	saved []storage.Interaction
	err   error
}

func (m *mockRecorder) SaveInteraction(i storage.Interaction) error {
	m.saved = append(m.saved, i)
	return m.err
}

func newTestAgent(comp composer.Composer) *Agent {
	return NewAgent(testDataset(), intent.KeywordClassifier{}, comp, validator.New(validator.Limits{}))
}

func TestAnswer_TemplateSpending(t *testing.T) {
	tmpl := composer.NewTemplate(func() time.Time { return day("2025-10-15") })
	r := newTestAgent(tmpl).Answer(context.Background(), "Quanto gastei nos últimos 30 dias?")

	if r.ShortText != "Você gastou R$ 1650.00 nos últimos 30 dias. Maior categoria: moradia (R$ 1200.00)." {
		t.Errorf("ShortText = %q", r.ShortText)
	}
	if !strings.HasPrefix(r.FullText, r.ShortText) || !r.HasDetail() {
		t.Errorf("FullText = %q", r.FullText)
	}
	if diff := cmp.Diff([]string{"transacoes.csv:data,tipo,categoria,valor"}, r.Sources); diff != "" {
		t.Errorf("Sources (-want +got):\n%s", diff)
	}
	if r.Justification != "Análise baseada em transacoes.csv." {
		t.Errorf("Justification = %q", r.Justification)
	}
	if r.Classification != "financial_query" || r.Mode != "template" || r.Truncated {
		t.Errorf("Reply = %+v", r)
	}
	if r.ID == "" {
		t.Error("ID not set")
	}
}

func TestAnswer_FixedRepliesSkipComposer(t *testing.T) {
	m := &mockComposer{}
	a := newTestAgent(m)

	g := a.Answer(context.Background(), "bom dia")
	if g.Classification != "greeting" || !strings.HasPrefix(g.ShortText, "Olá, João Silva.") {
		t.Errorf("greeting reply = %+v", g)
	}
	n := a.Answer(context.Background(), "a previsão do tempo")
	if n.Classification != "non_actionable" || n.ShortText != composer.MenuText {
		t.Errorf("non-actionable reply = %+v", n)
	}
	for _, r := range []Reply{g, n} {
		if len(r.Sources) != 0 {
			t.Errorf("fixed reply has sources %v", r.Sources)
		}
		if r.Justification != "Resposta baseada nas regras gerais do agente." {
			t.Errorf("Justification = %q", r.Justification)
		}
	}
	if m.calls != 0 {
		t.Errorf("composer called %d times, want 0", m.calls)
	}
}

func TestAnswer_BoundsGeneratedText(t *testing.T) {
	long := "Primeira frase. Segunda frase. Terceira frase. Quarta frase."
	m := &mockComposer{answer: composer.Answer{
		Text: long, FullText: long, Sources: []string{records.FileTransactions}, Mode: composer.ModeGenerative,
	}}
	r := newTestAgent(m).Answer(context.Background(), "quanto gastei?")

	if r.ShortText != "Primeira frase. Segunda frase." {
		t.Errorf("ShortText = %q", r.ShortText)
	}
	if r.FullText != long {
		t.Errorf("FullText = %q", r.FullText)
	}
	if !r.Truncated || r.Mode != "generative" {
		t.Errorf("Reply = %+v", r)
	}
	if validator.CountSentences(r.ShortText) > validator.DefaultShort {
		t.Errorf("short text has %d sentences", validator.CountSentences(r.ShortText))
	}
}

func TestAnswer_ComposerErrorFallsBackToMenu(t *testing.T) {
	m := &mockComposer{err: errors.New("boom")}
	r := newTestAgent(m).Answer(context.Background(), "quanto gastei?")
	if r.ShortText != composer.MenuText {
		t.Errorf("ShortText = %q", r.ShortText)
	}
}

func TestAnswer_Records(t *testing.T) {
	rec := &mockRecorder{}
	a := newTestAgent(&mockComposer{answer: composer.Menu()})
	a.SetRecorder(rec)

	r := a.Answer(context.Background(), "oi")
	if len(rec.saved) != 1 {
		t.Fatalf("saved %d interactions, want 1", len(rec.saved))
	}
	got := rec.saved[0]
	if got.ID != r.ID || got.Query != "oi" || got.Classification != "greeting" || got.ShortText != r.ShortText {
		t.Errorf("saved = %+v", got)
	}
}

func TestAnswer_RecorderFailureIsNotFatal(t *testing.T) {
	a := newTestAgent(&mockComposer{})
	a.SetRecorder(&mockRecorder{err: errors.New("disk full")})

	r := a.Answer(context.Background(), "bom dia")
	if r.ShortText == "" {
		t.Error("reply lost after recorder failure")
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{"trims", "  quanto gastei?  ", "quanto gastei?", nil},
		{"strips control", "quanto\x00 gastei\x1b?", "quanto gastei?", nil},
		{"keeps newline and tab", "linha 1\nlinha\t2", "linha 1\nlinha\t2", nil},
		{"empty", "   ", "", ErrEmptyQuery},
		{"only control", "\x00\x01", "", ErrEmptyQuery},
		{"too long", strings.Repeat("a", 501), "", ErrQueryTooLong},
		{"limit counts characters", strings.Repeat("é", 500), strings.Repeat("é", 500), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sanitize(tt.in, DefaultMaxQueryLength)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Sanitize = %q, want %q", got, tt.want)
			}
		})
	}
}
