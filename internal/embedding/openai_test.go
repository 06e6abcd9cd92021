package embedding

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func newTestProvider(t *testing.T, baseURL string) *OpenAIProvider {
	t.Helper()
	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", BaseURL: baseURL, Dimensions: 3})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestOpenAIProvider_Embed(t *testing.T) {
	srv := newTestServer(http.StatusOK,
		`{"data":[{"embedding":[0.1,0.2,0.3],"index":0}],"usage":{"prompt_tokens":4,"total_tokens":4}}`)
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	got, err := p.Embed(context.Background(), "hello", "query")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Vector) != 3 {
		t.Errorf("vector length = %d, want 3", len(got.Vector))
	}
	if got.Tokens != 4 {
		t.Errorf("tokens = %d, want 4", got.Tokens)
	}
	if got.Model != DefaultModel {
		t.Errorf("model = %q, want %q", got.Model, DefaultModel)
	}
}

func TestOpenAIProvider_ErrorClassification(t *testing.T) {
	tests := []struct {
		status    int
		wantKind  ErrorKind
		retryable bool
	}{
		{http.StatusTooManyRequests, KindRateLimit, true},
		{http.StatusUnauthorized, KindAuth, false},
		{http.StatusBadRequest, KindValidation, false},
		{http.StatusInternalServerError, KindTransient, true},
		{http.StatusBadGateway, KindTransient, true},
	}
	for _, tt := range tests {
		srv := newTestServer(tt.status, `{"error":{"message":"nope","type":"test"}}`)
		p := newTestProvider(t, srv.URL)
		_, err := p.Embed(context.Background(), "hello", "query")
		srv.Close()

		var pe *ProviderError
		if !errors.As(err, &pe) {
			t.Fatalf("status %d: expected ProviderError, got %v", tt.status, err)
		}
		if pe.Kind != tt.wantKind {
			t.Errorf("status %d: kind = %s, want %s", tt.status, pe.Kind, tt.wantKind)
		}
		if pe.Retryable() != tt.retryable {
			t.Errorf("status %d: retryable = %v, want %v", tt.status, pe.Retryable(), tt.retryable)
		}
		if pe.Message != "nope" {
			t.Errorf("status %d: message should come from parsed error body, got %q", tt.status, pe.Message)
		}
	}
}

func TestOpenAIProvider_EmptyData(t *testing.T) {
	srv := newTestServer(http.StatusOK, `{"data":[],"usage":{"total_tokens":0}}`)
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	_, err := p.Embed(context.Background(), "hello", "query")
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Kind != KindTransient {
		t.Errorf("empty data should be a transient provider error, got %v", err)
	}
}

func TestNewOpenAIProvider_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIProvider(OpenAIConfig{}); err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestNewOpenAIProvider_ModelDimensions(t *testing.T) {
	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "k", Model: "text-embedding-3-large"})
	if err != nil {
		t.Fatal(err)
	}
	if p.Dimensions() != 3072 {
		t.Errorf("dimensions = %d, want 3072", p.Dimensions())
	}
}
