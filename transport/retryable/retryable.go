// Package retryable adapts github.com/hashicorp/go-retryablehttp to the
// transport.Transport interface.
//
// The engine itself never retries. Callers that want retries on connection
// errors, 429 and 5xx responses opt in by using this transport; the retry
// policy is entirely the client's.
package retryable

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/giantswarm/twitch-oauth/transport"
	"github.com/giantswarm/twitch-oauth/transport/httpclient"
)

// Config holds retry settings. Zero values use the defaults below.
type Config struct {
	// RetryMax is the maximum number of retries (default: 3)
	RetryMax int

	// RetryWaitMin is the minimum wait between attempts (default: 500ms)
	RetryWaitMin time.Duration

	// RetryWaitMax is the maximum wait between attempts (default: 5s)
	RetryWaitMax time.Duration

	// Logger receives retry diagnostics (default: slog.Default())
	Logger *slog.Logger
}

const (
	DefaultRetryMax     = 3
	DefaultRetryWaitMin = 500 * time.Millisecond
	DefaultRetryWaitMax = 5 * time.Second
)

// Transport sends requests through a retryablehttp.Client.
type Transport struct {
	client *retryablehttp.Client
	logger *slog.Logger
}

// New creates a retrying transport.
func New(cfg Config) *Transport {
	if cfg.RetryMax == 0 {
		cfg.RetryMax = DefaultRetryMax
	}
	if cfg.RetryWaitMin == 0 {
		cfg.RetryWaitMin = DefaultRetryWaitMin
	}
	if cfg.RetryWaitMax == 0 {
		cfg.RetryWaitMax = DefaultRetryWaitMax
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	client := retryablehttp.NewClient()
	client.HTTPClient = httpclient.DefaultClient()
	client.RetryMax = cfg.RetryMax
	client.RetryWaitMin = cfg.RetryWaitMin
	client.RetryWaitMax = cfg.RetryWaitMax
	client.Logger = cfg.Logger
	// Hand the last response back so provider error bodies reach the engine.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return NewFromClient(client, cfg.Logger)
}

// NewFromClient wraps a caller-configured retryablehttp.Client.
func NewFromClient(client *retryablehttp.Client, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{client: client, logger: logger}
}

// Do implements transport.Transport.
func (t *Transport) Do(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	var body any
	if req.Body != nil {
		body = req.Body
	}

	rreq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			rreq.Header.Add(k, v)
		}
	}
	if rreq.Header.Get("User-Agent") == "" {
		rreq.Header.Set("User-Agent", httpclient.UserAgent)
	}

	resp, err := t.client.Do(rreq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, httpclient.MaxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &transport.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}
