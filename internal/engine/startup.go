package engine

import (
	"context"
	"time"
)

// StatusReport describes whether a backend can currently serve requests.
type StatusReport struct {
	Provider string `json:"provider"`
	Ready    bool   `json:"ready"`
	Detail   string `json:"detail,omitempty"`
}

// Status probes b. Backends without a Ping method are reported ready since
// there is nothing cheaper than a real request to check them with.
func Status(ctx context.Context, b Backend) StatusReport {
	r := StatusReport{Provider: b.Name(), Ready: true}
	p, ok := b.(Pinger)
	if !ok {
		return r
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		r.Ready = false
		r.Detail = err.Error()
	}
	return r
}
