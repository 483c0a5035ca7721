// Package llm provides the generative-model client used by classification
// and reply generation. Calls are single-shot: no retry, no streaming.
package llm

import "context"

// Client generates text from a prompt.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
