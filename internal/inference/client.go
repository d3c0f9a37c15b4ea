package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/skypro1111/audio-cnn-visualizer/internal/codec"
	"github.com/skypro1111/audio-cnn-visualizer/internal/metrics"
)

const (
	DefaultTimeout       = 60 * time.Second
	DefaultMaxConcurrent = 4
	maxResponseBytes     = 256 << 20
)

var (
	// ErrTransport reports a network or connection failure reaching the service
	ErrTransport = errors.New("inference transport failure")
	// ErrUpstreamStatus reports a non-2xx reply from the service
	ErrUpstreamStatus = errors.New("inference service returned an error status")
	// ErrRequestTimeout reports a call that exceeded the configured timeout
	ErrRequestTimeout = errors.New("inference request timed out")
)

// Config contains inference client configuration
type Config struct {
	Endpoint      string
	Timeout       time.Duration
	MaxRetries    int
	MaxConcurrent int
}

// Client provides HTTP client functionality for inference requests
type Client struct {
	config     Config
	httpClient *http.Client
	semaphore  chan struct{} // Concurrency cap
	logger     *slog.Logger
	metrics    *metrics.Metrics

	// Statistics
	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	timeouts        uint64
	totalRetries    uint64
	avgResponseTime time.Duration

	mu sync.RWMutex
}

// ClientStats represents client statistics
type ClientStats struct {
	Endpoint        string        `json:"endpoint"`
	TotalRequests   uint64        `json:"total_requests"`
	SuccessRequests uint64        `json:"success_requests"`
	FailedRequests  uint64        `json:"failed_requests"`
	Timeouts        uint64        `json:"timeouts"`
	SuccessRate     float64       `json:"success_rate"`
	TotalRetries    uint64        `json:"total_retries"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
	ActiveRequests  int           `json:"active_requests"`
}

// NewClient creates a new inference HTTP client. m may be nil.
func NewClient(config Config, logger *slog.Logger, m *metrics.Metrics) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}

	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = DefaultMaxConcurrent
	}

	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		config:    config,
		semaphore: make(chan struct{}, config.MaxConcurrent),
		logger:    logger,
		metrics:   m,
	}
	c.httpClient = c.newHTTPClient()

	return c, nil
}

// newHTTPClient builds the retrying client wrapped in an OpenTelemetry transport
func (c *Client) newHTTPClient() *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = c.config.MaxRetries
	retryClient.Logger = c.logger
	retryClient.Backoff = retryablehttp.DefaultBackoff
	retryClient.CheckRetry = c.retryPolicy
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.RequestLogHook = func(_ retryablehttp.Logger, _ *http.Request, attempt int) {
		if attempt > 0 {
			c.incrementTotalRetries()
		}
	}

	return &http.Client{
		Transport: otelhttp.NewTransport(retryClient.StandardClient().Transport),
	}
}

// retryPolicy never retries cancelled calls or 4xx replies
func (c *Client) retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if resp != nil && resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return false, nil
	}

	shouldRetry, _ := retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	return shouldRetry, nil
}

// Infer posts raw audio to the service and returns the response body
func (c *Client) Infer(ctx context.Context, audio []byte) ([]byte, error) {
	payload, err := json.Marshal(codec.NewRequest(audio))
	if err != nil {
		return nil, fmt.Errorf("failed to encode inference request: %w", err)
	}

	return c.Forward(ctx, payload)
}

// Forward posts an already encoded JSON body to the service and returns the
// reply body unchanged
func (c *Client) Forward(ctx context.Context, payload []byte) ([]byte, error) {
	// Acquire semaphore for the concurrency cap
	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	startTime := time.Now()
	c.incrementTotalRequests()

	body, err := c.doRequest(ctx, payload)
	elapsed := time.Since(startTime)
	if err != nil {
		c.recordFailure(elapsed, errors.Is(err, ErrRequestTimeout))
		return nil, err
	}

	c.recordSuccess(elapsed)
	return body, nil
}

// doRequest performs one (possibly retried) HTTP call
func (c *Client) doRequest(ctx context.Context, payload []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create HTTP request: %w", ErrTransport, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "Audio-CNN-Visualizer/1.0")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrRequestTimeout, c.config.Timeout)
		}
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrRequestTimeout, c.config.Timeout)
		}
		return nil, fmt.Errorf("%w: failed to read response body: %w", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrUpstreamStatus, resp.StatusCode, truncate(respBody, 200))
	}

	return respBody, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

func (c *Client) recordSuccess(elapsed time.Duration) {
	c.mu.Lock()
	c.successRequests++
	// Simple moving average
	if c.avgResponseTime == 0 {
		c.avgResponseTime = elapsed
	} else {
		c.avgResponseTime = (c.avgResponseTime + elapsed) / 2
	}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordInferenceRequest()
		c.metrics.RecordInferenceSuccess(elapsed.Seconds())
	}
}

func (c *Client) recordFailure(elapsed time.Duration, timedOut bool) {
	c.mu.Lock()
	c.failedRequests++
	if timedOut {
		c.timeouts++
	}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordInferenceRequest()
		c.metrics.RecordInferenceFailure(elapsed.Seconds())
	}
}

func (c *Client) incrementTotalRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
}

func (c *Client) incrementTotalRetries() {
	c.mu.Lock()
	c.totalRetries++
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordInferenceRetry()
	}
}

// GetStats returns current client statistics
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	return ClientStats{
		Endpoint:        c.config.Endpoint,
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		Timeouts:        c.timeouts,
		SuccessRate:     successRate,
		TotalRetries:    c.totalRetries,
		AvgResponseTime: c.avgResponseTime,
		ActiveRequests:  len(c.semaphore),
	}
}

// Close waits for in-flight requests to finish
func (c *Client) Close() error {
	for i := 0; i < c.config.MaxConcurrent; i++ {
		c.semaphore <- struct{}{}
	}

	return nil
}
