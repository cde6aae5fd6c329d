// Package pipeline runs one query through classification, composition and
// validation.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/moara/internal/composer"
	"github.com/kalambet/moara/internal/intent"
	"github.com/kalambet/moara/internal/records"
	"github.com/kalambet/moara/internal/storage"
	"github.com/kalambet/moara/internal/validator"
)

// Reply is the validated answer to one query.
type Reply struct {
	ID             string   `json:"id"`
	Query          string   `json:"query"`
	ShortText      string   `json:"short_text"`
	FullText       string   `json:"full_text"`
	Sources        []string `json:"sources"`
	Justification  string   `json:"justification"`
	Classification string   `json:"classification"`
	Mode           string   `json:"mode"`
	Truncated      bool     `json:"truncated"`
}

// HasDetail reports whether the full text adds anything to the short one.
func (r Reply) HasDetail() bool {
	return r.FullText != "" && r.FullText != r.ShortText
}

// Recorder persists replies. *storage.Store satisfies it.
type Recorder interface {
	SaveInteraction(i storage.Interaction) error
}

// Agent holds everything a query needs. It is safe for use by one query at
// a time.
type Agent struct {
	ds         *records.Dataset
	classifier intent.Classifier
	composer   composer.Composer
	validator  *validator.Validator
	recorder   Recorder
	greeting   composer.Answer
}

// NewAgent wires an Agent over a loaded dataset.
func NewAgent(ds *records.Dataset, cl intent.Classifier, comp composer.Composer, v *validator.Validator) *Agent {
	if v == nil {
		v = validator.New(validator.Limits{})
	}
	return &Agent{
		ds:         ds,
		classifier: cl,
		composer:   comp,
		validator:  v,
		greeting:   composer.Greeting(ds.Profile),
	}
}

// SetRecorder enables persistence of every reply. Pass nil to disable.
func (a *Agent) SetRecorder(r Recorder) { a.recorder = r }

// Dataset returns the records the agent answers from.
func (a *Agent) Dataset() *records.Dataset { return a.ds }

// Answer classifies, composes and validates a reply for query. Greetings and
// non-actionable messages get fixed replies without touching facts or the
// generation backend.
func (a *Agent) Answer(ctx context.Context, query string) Reply {
	start := time.Now()
	class := a.classifier.Classify(ctx, query)

	var ans composer.Answer
	switch class {
	case intent.Greeting:
		ans = a.greeting
	case intent.NonActionable:
		ans = composer.Menu()
	default:
		var err error
		ans, err = a.composer.Compose(ctx, query, a.ds, class)
		if err != nil {
			slog.Warn("composition failed, answering with menu", "error", err)
			ans = composer.Menu()
		}
	}

	reply := a.bound(query, class, ans)
	a.record(reply)

	slog.Debug("query answered",
		"classification", reply.Classification,
		"mode", reply.Mode,
		"truncated", reply.Truncated,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return reply
}

func (a *Agent) bound(query string, class intent.Classification, ans composer.Answer) Reply {
	text := strings.TrimSpace(ans.Text)
	full := strings.TrimSpace(ans.FullText)
	if full == "" {
		full = text
	}

	shortOK, short := a.validator.Validate(text, false)
	fullOK, detailed := a.validator.Validate(full, true)

	sources := ans.Sources
	if sources == nil {
		sources = []string{}
	}
	return Reply{
		ID:             uuid.NewString(),
		Query:          query,
		ShortText:      short,
		FullText:       detailed,
		Sources:        sources,
		Justification:  validator.Justification(sources),
		Classification: class.String(),
		Mode:           string(ans.Mode),
		Truncated:      !shortOK || !fullOK,
	}
}

func (a *Agent) record(r Reply) {
	if a.recorder == nil {
		return
	}
	err := a.recorder.SaveInteraction(storage.Interaction{
		ID:             r.ID,
		CreatedAt:      time.Now(),
		Query:          r.Query,
		Classification: r.Classification,
		Mode:           r.Mode,
		ShortText:      r.ShortText,
		FullText:       r.FullText,
		Sources:        r.Sources,
		Truncated:      r.Truncated,
	})
	if err != nil {
		slog.Warn("failed to record interaction", "id", r.ID, "error", err)
	}
}
