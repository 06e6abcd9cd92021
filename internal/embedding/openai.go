package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Default configuration for the OpenAI-compatible provider.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second
)

// modelDimensions maps known models to their embedding width.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIConfig configures an OpenAI-compatible embeddings endpoint.
type OpenAIConfig struct {
	// APIKey is required.
	APIKey string
	// BaseURL defaults to the OpenAI API; change it for compatible providers.
	BaseURL string
	// Model defaults to text-embedding-3-small.
	Model string
	// Timeout is the per-request timeout (default 60s).
	Timeout time.Duration
	// Dimensions overrides the model's default embedding width.
	Dimensions int
}

// OpenAIProvider generates embeddings over the OpenAI-compatible HTTP API.
type OpenAIProvider struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	dimensions int
}

// openaiRequest is the wire request format.
type openaiRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

// openaiResponse is the wire response format, parsed at the boundary so the
// rest of the system never handles loosely-typed shapes.
type openaiResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAIProvider creates a provider for an OpenAI-compatible endpoint.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	dimensions := cfg.Dimensions
	if dimensions == 0 {
		var ok bool
		dimensions, ok = modelDimensions[cfg.Model]
		if !ok {
			dimensions = 1536
		}
	}
	return &OpenAIProvider{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: dimensions,
	}, nil
}

// Embed requests one embedding. The inputType is advisory only; the OpenAI
// API has no input-type parameter.
func (p *OpenAIProvider) Embed(ctx context.Context, text string, inputType string) (*ProviderResponse, error) {
	reqBody := openaiRequest{Model: p.model, Input: []string{text}}
	// Only text-embedding-3-* models accept a dimensions override.
	if p.model == "text-embedding-3-small" || p.model == "text-embedding-3-large" {
		reqBody.Dimensions = p.dimensions
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Kind: KindTransient, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Kind: KindTransient, StatusCode: resp.StatusCode, Message: "read response: " + err.Error()}
	}

	var parsed openaiResponse
	if err := json.Unmarshal(body, &parsed); err != nil && resp.StatusCode == http.StatusOK {
		return nil, &ProviderError{Kind: KindTransient, StatusCode: resp.StatusCode, Message: "decode response: " + err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		message := string(body)
		if parsed.Error != nil {
			message = parsed.Error.Message
		}
		return nil, &ProviderError{Kind: classifyStatus(resp.StatusCode), StatusCode: resp.StatusCode, Message: message}
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, &ProviderError{Kind: KindTransient, StatusCode: resp.StatusCode, Message: "no embedding returned"}
	}

	return &ProviderResponse{
		Vector: parsed.Data[0].Embedding,
		Model:  p.model,
		Tokens: parsed.Usage.TotalTokens,
	}, nil
}

// Model returns the configured model name.
func (p *OpenAIProvider) Model() string { return p.model }

// Dimensions returns the embedding width.
func (p *OpenAIProvider) Dimensions() int { return p.dimensions }
