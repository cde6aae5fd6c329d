package composer

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/moara/internal/engine"
	"github.com/kalambet/moara/internal/intent"
	"github.com/kalambet/moara/internal/records"
)

const (
	defaultTimeout     = 15 * time.Second
	defaultMaxTokens   = 300
	defaultTemperature = 0.3
)

// Generative answers financial queries with a generation backend. Sources
// are the record files rendered into the context, not the ones the model
// actually relied on. Any backend failure falls back to the template answer
// for the same query.
type Generative struct {
	backend          engine.Backend
	fallback         *Template
	timeout          time.Duration
	maxTokens        int
	temperature      float64
	maxContextTokens int
}

// NewGenerative creates a Generative composer. Zero values in cfg take the
// defaults.
func NewGenerative(b engine.Backend, fallback *Template, cfg Config) *Generative {
	g := &Generative{
		backend:          b,
		fallback:         fallback,
		timeout:          cfg.Timeout,
		maxTokens:        cfg.MaxTokens,
		temperature:      cfg.Temperature,
		maxContextTokens: cfg.MaxContextTokens,
	}
	if g.timeout <= 0 {
		g.timeout = defaultTimeout
	}
	if g.maxTokens <= 0 {
		g.maxTokens = defaultMaxTokens
	}
	if g.temperature < 0 {
		g.temperature = defaultTemperature
	}
	if g.fallback == nil {
		g.fallback = NewTemplate(nil)
	}
	return g
}

func (g *Generative) Compose(ctx context.Context, query string, ds *records.Dataset, class intent.Classification) (Answer, error) {
	if class != intent.FinancialQuery {
		return g.fallback.Compose(ctx, query, ds, class)
	}

	dc := BuildContext(ds, g.maxContextTokens)
	req := BuildRequest(query, dc, g.maxTokens, g.temperature)

	genCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	out, err := g.backend.Complete(genCtx, req)
	out = strings.TrimSpace(out)
	if err != nil || out == "" {
		slog.Warn("generation failed, using template answer", "backend", g.backend.Name(), "error", err)
		return g.fallback.Compose(ctx, query, ds, class)
	}

	return Answer{
		Text:     out,
		FullText: out,
		Sources:  dc.Sources,
		Mode:     ModeGenerative,
	}, nil
}
