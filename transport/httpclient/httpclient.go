// Package httpclient adapts a *net/http.Client to the transport.Transport interface.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/giantswarm/twitch-oauth/transport"
)

const (
	// DefaultTimeout bounds a single request of the default client
	DefaultTimeout = 30 * time.Second

	// MaxResponseBodySize limits how much of a provider response is read (1MB)
	MaxResponseBodySize = 1 * 1024 * 1024

	// UserAgent is sent when the request carries none
	UserAgent = "twitch-oauth"
)

// Transport sends requests with a *net/http.Client.
type Transport struct {
	client *http.Client
	logger *slog.Logger
}

// DefaultClient returns an http.Client with a timeout that does not follow redirects.
// Provider endpoints never redirect; a redirect is returned to the engine as-is.
func DefaultClient() *http.Client {
	return &http.Client{
		Timeout: DefaultTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// New creates a transport. A nil client uses DefaultClient().
func New(client *http.Client, logger *slog.Logger) *Transport {
	if client == nil {
		client = DefaultClient()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{client: client, logger: logger}
}

// Do implements transport.Transport.
func (t *Transport) Do(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", UserAgent)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &transport.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}
