package ollama

import (
	"context"
	"fmt"
	"io"
	"time"
)

// EnsureReady checks that Ollama is running and the generation model is
// present, then sends a one-word chat so the first real answer does not pay
// the model load time. Warm-up failures are reported to w but not returned.
func EnsureReady(ctx context.Context, c *Client, model string, w io.Writer) error {
	if !c.IsRunning(ctx) {
		return fmt.Errorf("Ollama is not running at %s. Start it with: ollama serve", c.baseURL)
	}
	if !c.HasModel(ctx, model) {
		return fmt.Errorf("model %s is not available. Pull it with: ollama pull %s", model, model)
	}
	fmt.Fprintf(w, "model %s: ready\n", model)

	warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	_, err := c.Chat(warmCtx, model, []Message{{Role: "user", Content: "ping"}}, &Options{NumPredict: 1})
	if err != nil {
		fmt.Fprintf(w, "model %s: warm-up failed (non-fatal): %v\n", model, err)
	} else {
		fmt.Fprintf(w, "model %s: warm\n", model)
	}
	return nil
}
