// Package report talks to the Gotenberg service that renders report PDFs.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrTimeout indicates the rendering request exceeded the configured timeout.
	ErrTimeout = errors.New("gotenberg: timeout")
	// ErrInvalidResponse indicates Gotenberg returned a non-success status code.
	ErrInvalidResponse = errors.New("gotenberg: invalid response")
	// ErrTooSmall indicates the generated PDF was below the minimum expected size.
	ErrTooSmall = errors.New("gotenberg: pdf below minimum size")
)

const (
	defaultMinSize = 1024
	defaultRetries = 2
	defaultTimeout = 15 * time.Second
)

// Client wraps interactions with the Gotenberg API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retries    int
	timeout    time.Duration
	minSize    int
}

// Option customises a Client.
type Option func(*Client)

// WithRetries sets how many times a failed render is retried.
func WithRetries(n int) Option {
	return func(c *Client) { c.retries = n }
}

// WithTimeout bounds each render attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithMinSize rejects PDFs smaller than n bytes.
func WithMinSize(n int) Option {
	return func(c *Client) { c.minSize = n }
}

// NewClient constructs a new client. An empty baseURL returns nil so callers
// can treat PDF rendering as disabled.
func NewClient(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		retries:    defaultRetries,
		timeout:    defaultTimeout,
		minSize:    defaultMinSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping checks if the remote Gotenberg service is available.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New("gotenberg: not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyNetError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}
	return nil
}

// RenderHTML converts raw HTML into a PDF document. Server errors, timeouts and
// undersized output are retried; client errors are not.
func (c *Client) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	if c == nil || c.httpClient == nil {
		return nil, errors.New("gotenberg: not configured")
	}
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(part, html); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	payload := body.Bytes()
	contentType := writer.FormDataContentType()

	attempts := c.retries + 1
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, retry, err := c.attempt(ctx, payload, contentType)
		if err == nil {
			return data, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("render pdf failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) attempt(ctx context.Context, payload []byte, contentType string) ([]byte, bool, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/forms/chromium/convert/html", bytes.NewReader(payload))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, classifyNetError(err)
	}
	data, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, true, fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		return nil, false, fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	case readErr != nil:
		return nil, true, classifyNetError(readErr)
	case len(data) < c.minSize:
		return nil, true, ErrTooSmall
	}
	return data, false, nil
}

func classifyNetError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return err
}
