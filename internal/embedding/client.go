package embedding

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tomeworks/shiori/internal/models"
	"github.com/tomeworks/shiori/internal/vector"
)

// Client defaults. MaxInputChars follows the observed safe ceiling of the
// default provider; it is configurable, not universal.
const (
	DefaultMaxInputChars = 8000
	DefaultMaxRetries    = 3
	DefaultBaseDelay     = 1000 * time.Millisecond
	DefaultMaxJitter     = 1000 * time.Millisecond
)

// ClientConfig tunes validation and retry behavior.
type ClientConfig struct {
	// MaxInputChars rejects longer inputs before any provider call.
	MaxInputChars int
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BaseDelay is the first backoff delay; it doubles each attempt.
	BaseDelay time.Duration
	// MaxJitter is the upper bound of the random delay added to each backoff.
	MaxJitter time.Duration
}

func (c *ClientConfig) applyDefaults() {
	if c.MaxInputChars == 0 {
		c.MaxInputChars = DefaultMaxInputChars
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.BaseDelay == 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.MaxJitter == 0 {
		c.MaxJitter = DefaultMaxJitter
	}
}

// Client wraps a Provider with validation, retry, optional normalization,
// caching, and token accounting. It holds no process-wide state; construct
// one per provider and inject it where needed.
type Client struct {
	provider Provider
	cfg      ClientConfig
	cache    *Cache
	logger   *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets a logger for retry and failure events.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithCache puts an LRU cache in front of the provider. Cache hits report
// zero token usage.
func WithCache(cache *Cache) ClientOption {
	return func(c *Client) { c.cache = cache }
}

// NewClient creates a client around provider.
func NewClient(provider Provider, cfg ClientConfig, opts ...ClientOption) *Client {
	cfg.applyDefaults()
	c := &Client{
		provider: provider,
		cfg:      cfg,
		logger:   zap.NewNop(),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GenerateEmbedding validates the request, calls the provider (with retries
// for transient failures), and returns the embedding plus token usage.
func (c *Client) GenerateEmbedding(ctx context.Context, req models.EmbeddingRequest) (*models.EmbeddingResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyInput
	}
	if len(req.Text) > c.cfg.MaxInputChars {
		return nil, fmt.Errorf("%w: %d chars, limit %d", ErrInputTooLong, len(req.Text), c.cfg.MaxInputChars)
	}

	resp, err := c.embedWithRetry(ctx, req.Text, req.Type)
	if err != nil {
		return nil, err
	}

	vec := resp.Vector
	if req.Normalize {
		vec, err = vector.Normalize(vec)
		if err != nil {
			return nil, fmt.Errorf("normalize embedding: %w", err)
		}
	}
	return &models.EmbeddingResult{
		Vector:     vec,
		Model:      resp.Model,
		Tokens:     resp.Tokens,
		Dimensions: len(vec),
	}, nil
}

// GenerateEmbeddings processes each text independently. One text's failure
// never aborts the batch; its result carries the error instead of a vector.
func (c *Client) GenerateEmbeddings(ctx context.Context, req models.BatchEmbeddingRequest) (*models.BatchEmbeddingResult, error) {
	out := &models.BatchEmbeddingResult{
		Results: make([]models.BatchEmbeddingItem, len(req.Texts)),
	}
	for i, text := range req.Texts {
		result, err := c.GenerateEmbedding(ctx, models.EmbeddingRequest{
			Text:      text,
			Type:      req.Type,
			Normalize: req.Normalize,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("batch embedding item failed", zap.Int("index", i), zap.Error(err))
			out.Results[i] = models.BatchEmbeddingItem{Error: err.Error()}
			out.Failed++
			continue
		}
		out.Results[i] = models.BatchEmbeddingItem{Embedding: result.Vector}
		out.Successful++
		out.TotalTokens += result.Tokens
	}
	return out, nil
}

// Model returns the underlying provider's model name.
func (c *Client) Model() string { return c.provider.Model() }

// Dimensions returns the underlying provider's embedding width.
func (c *Client) Dimensions() int { return c.provider.Dimensions() }

// embedWithRetry performs the provider call under the shared retry policy:
// exponential backoff from BaseDelay, doubling per attempt, plus random
// jitter. Non-transient failures surface immediately.
func (c *Client) embedWithRetry(ctx context.Context, text, inputType string) (*ProviderResponse, error) {
	cacheKey := inputType + "\x00" + text
	if c.cache != nil {
		if vec, ok := c.cache.Get(cacheKey); ok {
			return &ProviderResponse{Vector: vec, Model: c.provider.Model(), Tokens: 0}, nil
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.cfg.BaseDelay << (attempt - 1)
			if c.cfg.MaxJitter > 0 {
				delay += time.Duration(rand.Int63n(int64(c.cfg.MaxJitter)))
			}
			c.logger.Debug("retrying embedding call",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		resp, err := c.provider.Embed(ctx, text, inputType)
		if err == nil {
			if c.cache != nil {
				c.cache.Set(cacheKey, resp.Vector)
			}
			return resp, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("embedding failed after %d retries: %w", c.cfg.MaxRetries, lastErr)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
