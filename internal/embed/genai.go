package embed

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// DefaultModel is the Gemini embedding model used when none is configured.
// It outputs 3072 dimensions natively but supports truncation to 768 via
// OutputDimensionality; the store schema pins the truncated size.
const DefaultModel = "gemini-embedding-001"

// DefaultDimension is the vector length used across the store schema.
const DefaultDimension = 768

// defaultRequestsPerSecond bounds pressure on the embedding backend. Batch
// embedding fans out with bounded parallelism, and the limiter caps the
// aggregate request rate underneath it.
const defaultRequestsPerSecond = 10

// ClientConfig configures the Gemini embedding client.
type ClientConfig struct {
	APIKey    string
	Model     string  // default: DefaultModel
	Dimension int     // default: DefaultDimension
	RPS       float64 // default: defaultRequestsPerSecond
}

// Client is an Embedder backed by the Gemini API. Safe for concurrent use.
type Client struct {
	client    *genai.Client
	model     string
	dimension int
	limiter   *rate.Limiter
}

// NewClient creates the embedding client. The underlying model handle is
// created once here and reused for every call.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("embed: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.RPS == 0 {
		cfg.RPS = defaultRequestsPerSecond
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("embed: create client: %w", err)
	}

	return &Client{
		client:    client,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RPS), 1),
	}, nil
}

// Embed returns the vector for one text span (chunk or query). Chunks and
// queries share one vector space, so a query in one language compares
// meaningfully against chunks in another.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embed: rate limit wait: %w", err)
	}

	dim := int32(c.dimension)
	res, err := c.client.Models.EmbedContent(ctx, c.model, genai.Text(text), &genai.EmbedContentConfig{
		TaskType:             "RETRIEVAL_DOCUMENT",
		OutputDimensionality: &dim,
	})
	if err != nil {
		// The backend does not expose a stable error taxonomy, so all API
		// failures are surfaced as transient; the caller owns retries.
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if res == nil || len(res.Embeddings) == 0 || len(res.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrUnavailable)
	}

	vec := res.Embeddings[0].Values
	if len(vec) != c.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), c.dimension)
	}
	return vec, nil
}

// Dimension returns the configured vector length.
func (c *Client) Dimension() int { return c.dimension }

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }
