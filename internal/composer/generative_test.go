package composer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kalambet/moara/internal/engine"
	"github.com/kalambet/moara/internal/intent"
	"github.com/kalambet/moara/internal/records"
)

// mockBackend implements engine.Backend for testing.
type mockBackend struct {
	response string
	err      error
	delay    time.Duration
	calls    int
	last     engine.Request
}

func (m *mockBackend) Complete(ctx context.Context, req engine.Request) (string, error) {
	m.calls++
	m.last = req
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", errors.Join(engine.ErrUnavailable, ctx.Err())
		}
	}
	return m.response, m.err
}

func (m *mockBackend) Name() string { return "mock" }

func newGenerative(m *mockBackend, timeout time.Duration) *Generative {
	return NewGenerative(m, NewTemplate(fixedClock), Config{Timeout: timeout, MaxTokens: 300, Temperature: 0.3})
}

func TestGenerative_UsesBackend(t *testing.T) {
	m := &mockBackend{response: " Segundo suas transações, você gastou R$ 1650.00. "}
	a, err := newGenerative(m, time.Second).Compose(context.Background(), "quanto gastei?", testDataset(), intent.FinancialQuery)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if a.Text != "Segundo suas transações, você gastou R$ 1650.00." || a.FullText != a.Text {
		t.Errorf("Answer = %+v", a)
	}
	if a.Mode != ModeGenerative {
		t.Errorf("Mode = %q", a.Mode)
	}

	// coarse file tags, never file:field
	want := []string{records.FileProfile, records.FileTransactions, records.FileHistory, records.FileProducts}
	if diff := cmp.Diff(want, a.Sources); diff != "" {
		t.Errorf("Sources (-want +got):\n%s", diff)
	}
	for _, s := range a.Sources {
		if strings.Contains(s, ":") {
			t.Errorf("generative source %q carries field detail", s)
		}
	}

	if m.last.MaxTokens != 300 || m.last.Temperature != 0.3 {
		t.Errorf("request = %+v", m.last)
	}
	if !strings.Contains(m.last.Prompt, "PERGUNTA DO USUÁRIO: quanto gastei?") {
		t.Error("prompt does not carry the literal query")
	}
	if !strings.Contains(m.last.System, "NUNCA invente") {
		t.Error("system prompt lacks the no-invention rule")
	}
}

func TestGenerative_FallsBackOnTimeout(t *testing.T) {
	m := &mockBackend{response: "tarde demais", delay: 5 * time.Second}

	start := time.Now()
	a, err := newGenerative(m, 50*time.Millisecond).Compose(context.Background(), "quanto gastei?", testDataset(), intent.FinancialQuery)
	if err != nil {
		t.Fatalf("Compose returned an error instead of falling back: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Compose took %v", elapsed)
	}
	if a.Mode != ModeTemplate || a.Text == "" || len(a.Sources) == 0 {
		t.Errorf("Answer = %+v, want a sourced template answer", a)
	}
	if !strings.Contains(a.Sources[0], ":") {
		t.Errorf("fallback sources = %v, want file:field tags", a.Sources)
	}
}

func TestGenerative_FallsBackOnErrorAndEmpty(t *testing.T) {
	for _, m := range []*mockBackend{
		{err: engine.ErrUnavailable},
		{response: "   "},
	} {
		a, err := newGenerative(m, time.Second).Compose(context.Background(), "onde investir?", testDataset(), intent.FinancialQuery)
		if err != nil {
			t.Fatalf("Compose: %v", err)
		}
		if a.Mode != ModeTemplate || !strings.Contains(a.Text, "Tesouro Selic") {
			t.Errorf("Answer = %+v", a)
		}
	}
}

func TestGenerative_SkipsBackendForFixedReplies(t *testing.T) {
	m := &mockBackend{response: "não deveria"}
	g := newGenerative(m, time.Second)
	g.Compose(context.Background(), "bom dia", testDataset(), intent.Greeting)
	g.Compose(context.Background(), "ok", testDataset(), intent.NonActionable)
	if m.calls != 0 {
		t.Errorf("backend called %d times, want 0", m.calls)
	}
}

func TestBuildContext_Budget(t *testing.T) {
	ds := testDataset()
	for i := 0; i < 50; i++ {
		ds.Transactions = append(ds.Transactions, records.Transaction{
			Date: day("2025-10-12"), Description: strings.Repeat("x", 80), Category: "lazer", Amount: dec("10"), Direction: records.Outflow,
		})
	}

	full := BuildContext(ds, 100000)
	if got := strings.Count(full.Text, "lazer"); got != maxContextTransactions {
		t.Errorf("transactions rendered = %d, want %d", got, maxContextTransactions)
	}

	small := BuildContext(ds, 150)
	if EstimateTokens(small.Text) > 200 {
		t.Errorf("context of %d tokens exceeds budget", EstimateTokens(small.Text))
	}
	if small.Sources[0] != records.FileProfile {
		t.Errorf("Sources = %v, profile must always be included", small.Sources)
	}
	for _, s := range small.Sources {
		if s == records.FileTransactions && !strings.Contains(small.Text, "TRANSAÇÕES") {
			t.Error("transactions listed as source but not rendered")
		}
	}
}

func TestBuildContext_NewestTransactionsFirst(t *testing.T) {
	dc := BuildContext(testDataset(), 0)
	i := strings.Index(dc.Text, "Supermercado")
	j := strings.Index(dc.Text, "Aluguel")
	if i < 0 || j < 0 || i > j {
		t.Errorf("expected newest transaction first:\n%s", dc.Text)
	}
}

func TestNew(t *testing.T) {
	c, err := New(Config{Mode: "template"}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := c.(*Template); !ok {
		t.Errorf("New(template) = %T", c)
	}

	c, err = New(Config{Mode: "generative"}, engine.Unavailable{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := c.(*Generative); !ok {
		t.Errorf("New(generative) = %T", c)
	}

	if _, err := New(Config{Mode: "llm"}, nil); err == nil {
		t.Error("New(llm) succeeded, want error")
	}
}
