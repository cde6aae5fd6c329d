package engine

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable marks every failure of a generation backend: missing
// credentials, network errors, bad status codes, empty completions and
// timeouts. Callers treat all of them the same way.
var ErrUnavailable = errors.New("generation backend unavailable")

// Request is a single completion request.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Backend turns a prompt into text, or fails with an error wrapping
// ErrUnavailable.
type Backend interface {
	Complete(ctx context.Context, req Request) (string, error)

	// Name identifies the provider in logs and status output.
	Name() string
}

// Pinger is implemented by backends that can check reachability without
// generating text.
type Pinger interface {
	Ping(ctx context.Context) error
}

func unavailable(name string, err error) error {
	return fmt.Errorf("%s: %w: %w", name, ErrUnavailable, err)
}

// Unavailable is the backend used when no provider is configured. It fails
// every request immediately.
type Unavailable struct {
	Reason string
}

func (u Unavailable) Complete(context.Context, Request) (string, error) {
	return "", u.err()
}

func (u Unavailable) Name() string { return "none" }

func (u Unavailable) Ping(context.Context) error { return u.err() }

func (u Unavailable) err() error {
	if u.Reason == "" {
		return ErrUnavailable
	}
	return fmt.Errorf("%w: %s", ErrUnavailable, u.Reason)
}
