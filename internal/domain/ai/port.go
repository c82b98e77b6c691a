package ai

import "context"

// Client wraps the generative backend. Both calls always return a usable
// payload: a non-nil error only signals that the deterministic fallback was
// used, never a condition the caller must recover from.
type Client interface {
	Generate(ctx context.Context, prompt string) (Explanation, error)
	GenerateSummary(ctx context.Context, full Explanation) (Summary, error)
}
