package models

// Embedding input types, mirroring what the provider is told about the text.
const (
	InputTypeSummary = "summary"
	InputTypeQuery   = "query"
)

// EmbeddingRequest is the request shape for generating one embedding.
// Constructed per call, never persisted.
type EmbeddingRequest struct {
	Text      string `json:"text"`
	Type      string `json:"type,omitempty"`
	Normalize bool   `json:"normalize,omitempty"`
}

// EmbeddingResult is the response shape for one embedding. Immutable once returned.
type EmbeddingResult struct {
	Vector     []float64 `json:"vector"`
	Model      string    `json:"model"`
	Tokens     int       `json:"tokens"`
	Dimensions int       `json:"dimensions"`
}

// BatchEmbeddingRequest asks for embeddings of several texts of the same type.
type BatchEmbeddingRequest struct {
	Texts     []string `json:"texts"`
	Type      string   `json:"type,omitempty"`
	Normalize bool     `json:"normalize,omitempty"`
}

// BatchEmbeddingItem is the per-text outcome of a batch request. Exactly one
// of Embedding or Error is set.
type BatchEmbeddingItem struct {
	Embedding []float64 `json:"embedding,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// BatchEmbeddingResult is the outcome of a batch request.
// Successful + Failed always equals len(Results).
type BatchEmbeddingResult struct {
	Results     []BatchEmbeddingItem `json:"results"`
	Successful  int                  `json:"successful"`
	Failed      int                  `json:"failed"`
	TotalTokens int                  `json:"total_tokens"`
}
