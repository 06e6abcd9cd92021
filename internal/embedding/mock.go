package embedding

import (
	"context"
	"hash/fnv"
	"math"
)

// MockProvider is a deterministic provider for tests. It returns a
// fixed-dimension unit vector derived from the text hash so that the same
// text always gets the same embedding.
type MockProvider struct {
	dimensions int
}

// NewMockProvider returns a provider producing deterministic embeddings of
// the given width (default 1536 when non-positive).
func NewMockProvider(dimensions int) *MockProvider {
	if dimensions <= 0 {
		dimensions = 1536
	}
	return &MockProvider{dimensions: dimensions}
}

// Embed returns a deterministic normalized embedding based on the text hash.
// Token usage approximates one token per four characters.
func (p *MockProvider) Embed(ctx context.Context, text string, inputType string) (*ProviderResponse, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	seed := int(h.Sum32() % 10007)

	vec := make([]float64, p.dimensions)
	var sum float64
	for i := range vec {
		vec[i] = math.Sin(float64(seed*(i+1)))*0.1 + 0.01
		sum += vec[i] * vec[i]
	}
	if sum > 0 {
		norm := 1.0 / math.Sqrt(sum)
		for i := range vec {
			vec[i] *= norm
		}
	}
	return &ProviderResponse{
		Vector: vec,
		Model:  "mock-embedding",
		Tokens: len(text)/4 + 1,
	}, nil
}

// Model returns the mock model identifier.
func (p *MockProvider) Model() string { return "mock-embedding" }

// Dimensions returns the embedding width.
func (p *MockProvider) Dimensions() int { return p.dimensions }
