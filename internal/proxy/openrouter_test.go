package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testRequest() ChatRequest {
	return ChatRequest{
		Model:       "openai/gpt-4o-mini",
		Messages:    []Message{{Role: "system", Content: "seja breve"}, {Role: "user", Content: "quanto gastei?"}},
		MaxTokens:   300,
		Temperature: 0.3,
	}
}

func TestComplete_ReturnsContent(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"gen-1","choices":[{"message":{"role":"assistant","content":"  Você gastou R$ 1650.00. \n"}}]}`)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", srv.URL)
	out, err := c.Complete(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "Você gastou R$ 1650.00." {
		t.Errorf("Complete() = %q", out)
	}
	if got.MaxTokens != 300 || got.Temperature != 0.3 || len(got.Messages) != 2 {
		t.Errorf("request = %+v", got)
	}
}

func TestComplete_AuthHeader(t *testing.T) {
	var gotAuth, gotTitle string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotTitle = r.Header.Get("X-Title")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", srv.URL)
	if _, err := c.Complete(context.Background(), testRequest()); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer test-key")
	}
	if gotTitle != "moara" {
		t.Errorf("X-Title = %q, want moara", gotTitle)
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"gen-1","choices":[]}`)
	}))
	defer srv.Close()

	_, err := NewClientWithBaseURL("k", srv.URL).Complete(context.Background(), testRequest())
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Errorf("Complete() error = %v, want ErrEmptyCompletion", err)
	}
}

func TestComplete_RateLimitRetriesOnceWithSameBody(t *testing.T) {
	var (
		attempt atomic.Int32
		mu      sync.Mutex
		bodies  []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		mu.Unlock()
		if attempt.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer srv.Close()

	out, err := NewClientWithBaseURL("k", srv.URL).Complete(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "ok" {
		t.Errorf("Complete() = %q", out)
	}
	if got := attempt.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
	if len(bodies) == 2 && bodies[0] != bodies[1] {
		t.Errorf("retry body differs:\n%s\n%s", bodies[0], bodies[1])
	}
}

func TestComplete_RateLimitExhausted(t *testing.T) {
	var attempt atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempt.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClientWithBaseURL("k", srv.URL).Complete(context.Background(), testRequest())
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("Complete() error = %v, want rate limited", err)
	}
	if got := attempt.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
}

func TestComplete_ServerError(t *testing.T) {
	var attempt atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempt.Add(1)
		http.Error(w, "invalid key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClientWithBaseURL("bad", srv.URL).Complete(context.Background(), testRequest())
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("Complete() error = %v, want status 401", err)
	}
	if got := attempt.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1 (no retry on non-429)", got)
	}
}

func TestComplete_ContextCancellation(t *testing.T) {
	handlerStarted := make(chan struct{})
	handlerDone := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(handlerStarted)
		<-handlerDone
	}))
	defer srv.Close()
	defer close(handlerDone)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := NewClientWithBaseURL("k", srv.URL).Complete(ctx, testRequest())
		done <- err
	}()

	<-handlerStarted
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected error after context cancellation")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Complete did not return promptly after context cancellation")
	}
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(ModelList{
			Object: "list",
			Data:   []Model{{ID: "openai/gpt-4o-mini", Object: "model"}, {ID: "meta/llama-3-70b", Object: "model"}},
		})
	}))
	defer srv.Close()

	models, err := NewClientWithBaseURL("k", srv.URL).ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 || models[0].ID != "openai/gpt-4o-mini" {
		t.Errorf("models = %+v", models)
	}
}

func TestListModels_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ModelList{Object: "list"})
	}))
	defer srv.Close()

	models, err := NewClientWithBaseURL("k", srv.URL).ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 0 {
		t.Errorf("got %d models, want 0", len(models))
	}
}
