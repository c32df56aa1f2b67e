package feature

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Kind selects which feature extractor the service runs.
type Kind string

// Feature kinds served by the extraction service.
const (
	// KindLogMel is a 40-bin log-mel spectrogram at 16 kHz / 10 ms hop.
	KindLogMel Kind = "logmel"
	// KindEmbedding is a mean-pooled 768-dimensional HuBERT embedding.
	KindEmbedding Kind = "hubert"
	// KindMFCC is a 13-coefficient MFCC sequence over the whole clip.
	KindMFCC Kind = "mfcc"
)

// Static errors for feature client operations.
var (
	// ErrBaseURLRequired is returned when the service URL is not provided.
	ErrBaseURLRequired = errors.New("feature: service URL is required")
	// ErrServerError is returned when the server returns a 5xx status code.
	ErrServerError = errors.New("feature: server error")
	// ErrRateLimited is returned when the server returns a 429 status code.
	ErrRateLimited = errors.New("feature: rate limited")
	// ErrRequestFailed is returned when the request fails with a non-2xx status code.
	ErrRequestFailed = errors.New("feature: request failed")
	// ErrMalformedFeatures is returned when the response does not have the expected shape.
	ErrMalformedFeatures = errors.New("feature: malformed response")
)

// extractResponse is the JSON body returned by POST /extract/{kind}.
type extractResponse struct {
	Kind        string      `json:"kind"`
	Frames      [][]float64 `json:"frames,omitempty"`
	Vector      []float64   `json:"vector,omitempty"`
	Placeholder bool        `json:"placeholder,omitempty"`
}

// Client is an HTTP client for the external feature extraction service.
// It is safe for concurrent use.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	maxRetries  int
	baseBackoff time.Duration
}

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the bearer token sent to the service.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMaxRetries sets the maximum number of retries for transient failures.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithBaseBackoff sets the initial backoff duration for retries.
func WithBaseBackoff(d time.Duration) ClientOption {
	return func(c *Client) {
		c.baseBackoff = d
	}
}

// NewClient creates a new feature service client targeting baseURL
// (e.g. "http://localhost:9000").
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, ErrBaseURLRequired
	}

	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		maxRetries:  2,
		baseBackoff: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ExtractMatrix runs a sequence extractor over the WAV file at clipPath.
func (c *Client) ExtractMatrix(ctx context.Context, clipPath string, kind Kind) (Matrix, error) {
	resp, err := c.extract(ctx, clipPath, kind)
	if err != nil {
		return nil, err
	}
	// Clips too short to analyse come back flagged or empty and are scored
	// as the placeholder representation.
	if resp.Placeholder || len(resp.Frames) == 0 {
		return PlaceholderMatrix(), nil
	}
	width := len(resp.Frames[0])
	for i, row := range resp.Frames {
		if len(row) != width || width == 0 {
			return nil, fmt.Errorf("%w: %s frame %d has %d coefficients, want %d", ErrMalformedFeatures, kind, i, len(row), width)
		}
	}
	return Matrix(resp.Frames), nil
}

// ExtractVector runs an embedding extractor over the WAV file at clipPath.
func (c *Client) ExtractVector(ctx context.Context, clipPath string, kind Kind) (Vector, error) {
	resp, err := c.extract(ctx, clipPath, kind)
	if err != nil {
		return nil, err
	}
	if resp.Placeholder || len(resp.Vector) == 0 {
		return PlaceholderVector(), nil
	}
	return Vector(resp.Vector), nil
}

func (c *Client) extract(ctx context.Context, clipPath string, kind Kind) (extractResponse, error) {
	data, err := os.ReadFile(clipPath) // #nosec G304 - path is a request-scoped temp file
	if err != nil {
		return extractResponse{}, fmt.Errorf("feature: read clip: %w", err)
	}

	url := fmt.Sprintf("%s/extract/%s", c.baseURL, kind)

	var resp extractResponse
	if err := c.doRequestWithRetry(ctx, url, data, &resp); err != nil {
		return extractResponse{}, err
	}
	return resp, nil
}

// doRequestWithRetry performs an HTTP request with exponential backoff retry.
func (c *Client) doRequestWithRetry(ctx context.Context, url string, body []byte, result any) error {
	var lastErr error
	backoff := c.baseBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("feature: context cancelled: %w", ctx.Err())
			case <-time.After(backoff):
				backoff *= 2
			}
		}

		err := c.doRequest(ctx, url, body, result)
		if err == nil {
			return nil
		}

		if !isRetryable(err) {
			return err
		}

		lastErr = err
	}

	return fmt.Errorf("feature: max retries exceeded: %w", lastErr)
}

// doRequest performs a single HTTP request.
func (c *Client) doRequest(ctx context.Context, url string, body []byte, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("feature: create request: %w", err)
	}

	req.Header.Set("Content-Type", "audio/wav")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &retryableError{err: fmt.Errorf("feature: request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &retryableError{err: fmt.Errorf("feature: read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode >= 500 {
			return &retryableError{err: fmt.Errorf("%w %d: %s", ErrServerError, resp.StatusCode, string(respBody))}
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return &retryableError{err: fmt.Errorf("%w: %s", ErrRateLimited, string(respBody))}
		}
		return fmt.Errorf("%w with status %d: %s", ErrRequestFailed, resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("feature: unmarshal response: %w", err)
	}

	return nil
}

// retryableError wraps errors that should be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryable returns true if the error should be retried.
func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// MatrixExtractor adapts Client to Extractor[Matrix] for one feature kind.
type MatrixExtractor struct {
	client *Client
	kind   Kind
}

// NewMatrixExtractor creates a MatrixExtractor for kind.
func NewMatrixExtractor(c *Client, kind Kind) *MatrixExtractor {
	return &MatrixExtractor{client: c, kind: kind}
}

// Extract implements Extractor.
func (e *MatrixExtractor) Extract(ctx context.Context, clipPath string) (Matrix, error) {
	return e.client.ExtractMatrix(ctx, clipPath, e.kind)
}

// VectorExtractor adapts Client to Extractor[Vector] for one feature kind.
type VectorExtractor struct {
	client *Client
	kind   Kind
}

// NewVectorExtractor creates a VectorExtractor for kind.
func NewVectorExtractor(c *Client, kind Kind) *VectorExtractor {
	return &VectorExtractor{client: c, kind: kind}
}

// Extract implements Extractor.
func (e *VectorExtractor) Extract(ctx context.Context, clipPath string) (Vector, error) {
	return e.client.ExtractVector(ctx, clipPath, e.kind)
}

// Compile-time interface assertions.
var (
	_ Extractor[Matrix] = (*MatrixExtractor)(nil)
	_ Extractor[Vector] = (*VectorExtractor)(nil)
)
