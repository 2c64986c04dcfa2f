// Package transport defines the seam between the token lifecycle engine and the
// network.
//
// The engine builds a Request (method, absolute URL, headers, body) and hands it
// to a Transport, which returns a Response or a transport failure. Concrete
// backends live in subpackages:
//
//   - httpclient wraps a *net/http.Client
//   - retryable wraps github.com/hashicorp/go-retryablehttp for callers that want retries
//   - mock replays scripted responses and records requests for tests
//
// Instrument decorates any Transport with OpenTelemetry spans and metrics.
package transport
