// Package api exposes the agent over HTTP and MCP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/moara/internal/engine"
	"github.com/kalambet/moara/internal/facts"
	"github.com/kalambet/moara/internal/pipeline"
	"github.com/kalambet/moara/internal/records"
	"github.com/kalambet/moara/internal/storage"
)

const maxRequestBodySize = 64 << 10 // 64KB

// Agent answers queries over a dataset. *pipeline.Agent satisfies it.
type Agent interface {
	Answer(ctx context.Context, query string) pipeline.Reply
	Dataset() *records.Dataset
}

// InteractionStore is the read side of the interaction log plus feedback.
// *storage.Store satisfies it.
type InteractionStore interface {
	GetRecentInteractions(limit int) ([]storage.Interaction, error)
	GetInteraction(id string) (storage.Interaction, error)
	UpdateFeedback(id string, score int, notes string) error
}

// Deps holds what the HTTP and MCP surfaces need.
type Deps struct {
	Agent          Agent
	Store          InteractionStore // optional; interaction routes answer 503 without it
	Backend        engine.Backend   // optional; reported by /v1/status
	Token          string
	MaxQueryLength int
	Now            func() time.Time // reference clock for goal plans
}

// serialAgent runs one query at a time.
type serialAgent struct {
	mu    sync.Mutex
	agent Agent
}

func (s *serialAgent) Answer(ctx context.Context, query string) pipeline.Reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agent.Answer(ctx, query)
}

// NewHandler returns the JSON API. /health is always public; everything
// under /v1 requires the bearer token when one is configured.
func NewHandler(deps Deps) http.Handler {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	sa := &serialAgent{agent: deps.Agent}

	r := chi.NewRouter()
	r.Get("/health", handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/status", handleStatus(deps))
		r.Post("/ask", handleAsk(sa, deps.MaxQueryLength))

		r.Get("/facts/spending", handleSpending(deps))
		r.Get("/facts/alerts", handleAlerts(deps))
		r.Get("/facts/recurring", handleRecurring(deps))
		r.Get("/facts/goals", handleGoals(deps))
		r.Get("/facts/products", handleProducts(deps))

		r.Get("/interactions", handleListInteractions(deps))
		r.Get("/interactions/{id}", handleGetInteraction(deps))
		r.Post("/interactions/{id}/feedback", handleFeedback(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := deps.Backend
		if b == nil {
			b = engine.Unavailable{Reason: "not configured"}
		}
		writeJSON(w, engine.Status(r.Context(), b))
	}
}

// AskRequest is the body of POST /v1/ask.
type AskRequest struct {
	Query string `json:"query"`
}

func handleAsk(agent *serialAgent, maxLen int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req AskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		query, err := pipeline.Sanitize(req.Query, maxLen)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		reply := agent.Answer(r.Context(), query)
		slog.Debug("ask served", "id", reply.ID, "classification", reply.Classification)
		writeJSON(w, reply)
	}
}

func handleSpending(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := parseIntParam(r, "days", facts.DefaultSummaryDays, 3650)
		if days == 0 {
			days = facts.DefaultSummaryDays
		}
		writeJSON(w, facts.SpendingSummary(deps.Agent.Dataset(), days))
	}
}

func handleAlerts(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, facts.SpendingIncrease(deps.Agent.Dataset()))
	}
}

func handleRecurring(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, facts.RecurringExpenses(deps.Agent.Dataset()))
	}
}

func handleGoals(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, goalPlans(deps.Agent.Dataset(), deps.Now()))
	}
}

func handleProducts(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds := deps.Agent.Dataset()
		writeJSON(w, facts.SuitableProducts(ds.Profile, ds.Products))
	}
}

func goalPlans(ds *records.Dataset, ref time.Time) []facts.Plan {
	plans := make([]facts.Plan, 0, len(ds.Profile.Goals))
	for _, g := range ds.Profile.Goals {
		plans = append(plans, facts.GoalPlan(ds.Profile, g, ref))
	}
	return plans
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

var errNoStore = errors.New("interaction log disabled")
