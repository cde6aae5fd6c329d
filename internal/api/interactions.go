package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/moara/internal/storage"
)

// FeedbackRequest is the body of POST /v1/interactions/{id}/feedback.
type FeedbackRequest struct {
	Score int    `json:"score"`
	Notes string `json:"notes"`
}

func handleListInteractions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "%v", errNoStore)
			return
		}
		limit := parseIntParam(r, "limit", 20, 100)
		if limit == 0 {
			limit = 20
		}

		interactions, err := deps.Store.GetRecentInteractions(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list interactions: %v", err)
			return
		}
		if interactions == nil {
			interactions = []storage.Interaction{}
		}
		writeJSON(w, interactions)
	}
}

func handleGetInteraction(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "%v", errNoStore)
			return
		}
		id := chi.URLParam(r, "id")

		interaction, err := deps.Store.GetInteraction(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "interaction not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get interaction: %v", err)
			return
		}
		writeJSON(w, interaction)
	}
}

func handleFeedback(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "%v", errNoStore)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req FeedbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Score < 1 || req.Score > 5 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "score must be between 1 and 5")
			return
		}

		err := deps.Store.UpdateFeedback(chi.URLParam(r, "id"), req.Score, req.Notes)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "interaction not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save feedback: %v", err)
			return
		}
		writeJSON(w, map[string]string{"status": "ok"})
	}
}
