// Package predict talks to the external prediction service (the "AI engine").
package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/hongminglow/smartdash-be/internal/metrics"
)

const maxResponseBytes = 8 << 20

// Error is returned once every attempt against the prediction service has failed.
// Message is the failure of the final attempt.
type Error struct {
	Path    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Options tunes the client. Zero values fall back to the defaults.
type Options struct {
	Retries    int
	RetryDelay time.Duration
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

// Client posts JSON to the prediction service with bounded retries.
type Client struct {
	base    *url.URL
	http    *http.Client
	retries uint64
	delay   time.Duration
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New builds a client for baseURL, which may use http or https.
func New(baseURL string, opts Options) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse prediction service url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("prediction service url must use http or https, got %q", base.Scheme)
	}
	c := &Client{
		base:    base,
		http:    opts.HTTPClient,
		delay:   opts.RetryDelay,
		timeout: opts.Timeout,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	if opts.Retries > 0 {
		c.retries = uint64(opts.Retries)
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.delay <= 0 {
		c.delay = time.Millisecond
	}
	if c.timeout <= 0 {
		c.timeout = 50 * time.Second
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// Call POSTs payload as JSON to path and returns the decoded JSON object.
// Only the last attempt's failure is reported, as an *Error.
func (c *Client) Call(ctx context.Context, path string, payload any) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode prediction payload: %w", err)
	}
	endpoint := c.endpoint(path)

	var result map[string]any
	attempt := 0
	backoff := retry.WithMaxRetries(c.retries, retry.NewConstant(c.delay))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		out, err := c.post(ctx, endpoint, body)
		if err != nil {
			c.observe(path, "failure")
			c.logger.WarnContext(ctx, "ai engine attempt failed", "path", path, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		c.observe(path, "success")
		result = out
		return nil
	})
	if err != nil {
		return nil, &Error{Path: path, Message: err.Error()}
	}
	return result, nil
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.New("AI Engine timed out")
		}
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.New("AI Engine timed out")
		}
		return nil, fmt.Errorf("read AI Engine response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errBody struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &errBody) == nil && errBody.Error != "" {
			return nil, errors.New(errBody.Error)
		}
		return nil, fmt.Errorf("AI Engine error: %d", resp.StatusCode)
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("AI Engine returned invalid JSON: %w", err)
	}
	return out, nil
}

// Ping performs a single GET on the service health endpoint and returns the
// reported service name.
func (c *Client) Ping(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/health"), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("AI Engine health status %d", resp.StatusCode)
	}
	var body struct {
		Service string `json:"service"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return "", fmt.Errorf("decode health response: %w", err)
	}
	return body.Service, nil
}

func (c *Client) endpoint(path string) string {
	return c.base.ResolveReference(&url.URL{Path: path}).String()
}

func (c *Client) observe(path, outcome string) {
	if c.metrics != nil {
		c.metrics.PredictionAttempts.WithLabelValues(path, outcome).Inc()
	}
}
