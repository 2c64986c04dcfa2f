package transport

import (
	"context"
	"net/http"
)

// Request is a single HTTP request to the provider.
// URL is absolute. Body is nil for requests without one.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is the provider's answer to a Request.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport sends one request and returns the response or a transport failure
// (connection, timeout, TLS, decode).
//
// A non-2xx status is not a transport failure: it is returned as a Response.
// Implementations must honor ctx cancellation. The engine never retries, so any
// retry policy belongs to the implementation.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts an ordinary function to the Transport interface.
type Func func(ctx context.Context, req *Request) (*Response, error)

// Do calls f(ctx, req).
func (f Func) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// NewRequest creates a request with an empty header map.
func NewRequest(method, url string, body []byte) *Request {
	return &Request{
		Method: method,
		URL:    url,
		Header: make(http.Header),
		Body:   body,
	}
}

// Clone returns a deep copy of the request.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	c := &Request{
		Method: r.Method,
		URL:    r.URL,
		Header: r.Header.Clone(),
	}
	if r.Body != nil {
		c.Body = append([]byte(nil), r.Body...)
	}
	return c
}

type operationContextKey struct{}

// WithOperation tags ctx with the engine operation a request belongs to
// ("validate", "refresh", "revoke", "token", "device").
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, operationContextKey{}, operation)
}

// OperationFromContext returns the operation set by WithOperation, or "unknown".
func OperationFromContext(ctx context.Context) string {
	if op, ok := ctx.Value(operationContextKey{}).(string); ok && op != "" {
		return op
	}
	return "unknown"
}
