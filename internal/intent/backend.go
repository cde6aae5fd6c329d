package intent

import (
	"context"
	"log/slog"
	"time"

	"github.com/kalambet/moara/internal/engine"
	"github.com/kalambet/moara/internal/normalize"
)

const (
	classificationTimeout   = 3 * time.Second
	classificationMaxTokens = 8
)

// BackendClassifier asks a generation backend for a label at zero
// temperature. Output other than an exact canonical label is treated as
// non-actionable, and a failed call as a financial query, so a query is
// never dropped because the backend is down.
type BackendClassifier struct {
	backend engine.Backend
	timeout time.Duration
}

// NewBackendClassifier creates a BackendClassifier over b.
func NewBackendClassifier(b engine.Backend) *BackendClassifier {
	return &BackendClassifier{backend: b, timeout: classificationTimeout}
}

func (c *BackendClassifier) Classify(ctx context.Context, text string) Classification {
	folded := normalize.Fold(text)
	if len(normalize.Tokens(folded)) == 0 {
		return NonActionable
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.backend.Complete(ctx, BuildPrompt(text))
	if err != nil {
		slog.Warn("classification backend failed, treating as financial query", "backend", c.backend.Name(), "error", err)
		return FinancialQuery
	}

	got, ok := ParseLabel(raw)
	if !ok {
		slog.Debug("unrecognised classification label", "response", raw)
		return NonActionable
	}
	if got == Greeting && HasFinancialSignal(folded) {
		return FinancialQuery
	}
	return got
}
