// Package composer turns a classified query into a candidate answer, either
// by filling fixed templates with computed facts or by asking a generation
// backend to answer from a bounded rendering of the records.
package composer

import (
	"context"
	"fmt"
	"time"

	"github.com/kalambet/moara/internal/engine"
	"github.com/kalambet/moara/internal/intent"
	"github.com/kalambet/moara/internal/records"
)

// Mode names the strategy that produced an answer.
type Mode string

const (
	ModeTemplate   Mode = "template"
	ModeGenerative Mode = "generative"
)

// Answer is a composed, not yet validated, answer. Text is the short form and
// FullText starts with Text, optionally followed by detail sentences.
type Answer struct {
	Text     string
	FullText string
	Sources  []string
	Mode     Mode
}

// Composer builds an answer for one query.
type Composer interface {
	Compose(ctx context.Context, query string, ds *records.Dataset, class intent.Classification) (Answer, error)
}

// Config selects and tunes the composer.
type Config struct {
	Mode             string
	Timeout          time.Duration
	MaxTokens        int
	Temperature      float64
	MaxContextTokens int
	// Now is the reference clock for goal planning. Defaults to time.Now.
	Now func() time.Time
}

// New selects the composer once at startup. Generative mode always carries
// a template composer to fall back on.
func New(cfg Config, b engine.Backend) (Composer, error) {
	tmpl := NewTemplate(cfg.Now)
	switch Mode(cfg.Mode) {
	case "", ModeTemplate:
		return tmpl, nil
	case ModeGenerative:
		if b == nil {
			b = engine.Unavailable{Reason: "no backend"}
		}
		return NewGenerative(b, tmpl, cfg), nil
	}
	return nil, fmt.Errorf("unknown generation mode %q", cfg.Mode)
}
