// Package embedding turns text into fixed-length vectors via a remote provider.
//
// The Client adds input validation, retry with backoff, optional
// normalization, and token accounting on top of a Provider implementation.
package embedding

import "context"

// Provider is the boundary to a remote text-embedding service.
// Implementations return a vector plus token usage for one input text.
type Provider interface {
	Embed(ctx context.Context, text string, inputType string) (*ProviderResponse, error)
	Model() string
	Dimensions() int
}

// ProviderResponse is the parsed provider output for one embedding call.
type ProviderResponse struct {
	Vector []float64
	Model  string
	Tokens int
}
