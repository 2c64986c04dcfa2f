package instrumentation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all metric instruments of the token lifecycle engine.
//
// All Record* methods are safe to call on a nil *Metrics.
type Metrics struct {
	// Provider round-trips
	ProviderRequestsTotal   metric.Int64Counter
	ProviderRequestDuration metric.Float64Histogram
	ProviderRequestErrors   metric.Int64Counter

	// Token lifecycle
	TokenIssued    metric.Int64Counter
	TokenValidated metric.Int64Counter
	TokenRefreshed metric.Int64Counter
	TokenRevoked   metric.Int64Counter

	// Flow outcomes
	CSRFMismatch metric.Int64Counter
	DevicePolls  metric.Int64Counter
}

// newMetrics creates and registers all metric instruments
func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error
	m.ProviderRequestsTotal, err = meter.Int64Counter(
		"oauth.provider.requests.total",
		metric.WithDescription("Total number of requests sent to the provider"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider.requests.total counter: %w", err)
	}

	m.ProviderRequestDuration, err = meter.Float64Histogram(
		"oauth.provider.request.duration",
		metric.WithDescription("Provider request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider.request.duration histogram: %w", err)
	}

	m.ProviderRequestErrors, err = meter.Int64Counter(
		"oauth.provider.request.errors",
		metric.WithDescription("Number of failed provider operations by error kind"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider.request.errors counter: %w", err)
	}

	m.TokenIssued, err = meter.Int64Counter(
		"oauth.token.issued",
		metric.WithDescription("Number of tokens obtained through a grant flow"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token.issued counter: %w", err)
	}

	m.TokenValidated, err = meter.Int64Counter(
		"oauth.token.validated",
		metric.WithDescription("Number of token validations"),
		metric.WithUnit("{validation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token.validated counter: %w", err)
	}

	m.TokenRefreshed, err = meter.Int64Counter(
		"oauth.token.refreshed",
		metric.WithDescription("Number of token refreshes"),
		metric.WithUnit("{refresh}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token.refreshed counter: %w", err)
	}

	m.TokenRevoked, err = meter.Int64Counter(
		"oauth.token.revoked",
		metric.WithDescription("Number of tokens revoked"),
		metric.WithUnit("{revocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token.revoked counter: %w", err)
	}

	m.CSRFMismatch, err = meter.Int64Counter(
		"oauth.csrf.mismatch",
		metric.WithDescription("Number of redirects whose state did not match the issued nonce"),
		metric.WithUnit("{mismatch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create csrf.mismatch counter: %w", err)
	}

	m.DevicePolls, err = meter.Int64Counter(
		"oauth.device.polls",
		metric.WithDescription("Number of device code polls by outcome"),
		metric.WithUnit("{poll}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create device.polls counter: %w", err)
	}

	return m, nil
}

// RecordProviderRequest records one provider round-trip.
// statusCode is 0 when the transport failed before a response was received.
func (m *Metrics) RecordProviderRequest(ctx context.Context, operation string, statusCode int, durationMs float64) {
	if m == nil {
		return
	}
	m.ProviderRequestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrProviderOperation, operation),
		attribute.Int(AttrHTTPStatusCode, statusCode),
	))
	m.ProviderRequestDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String(AttrProviderOperation, operation),
	))
}

// RecordProviderError records a failed provider operation classified by error kind.
func (m *Metrics) RecordProviderError(ctx context.Context, operation, kind string) {
	if m == nil {
		return
	}
	m.ProviderRequestErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrProviderOperation, operation),
		attribute.String(AttrErrorKind, kind),
	))
}

// RecordTokenIssued records a token obtained through a grant flow.
func (m *Metrics) RecordTokenIssued(ctx context.Context, grantType, tokenKind string) {
	if m == nil {
		return
	}
	m.TokenIssued.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrGrantType, grantType),
		attribute.String(AttrTokenKind, tokenKind),
	))
}

// RecordTokenValidated records a validation attempt and its outcome.
func (m *Metrics) RecordTokenValidated(ctx context.Context, tokenKind string, success bool) {
	if m == nil {
		return
	}
	m.TokenValidated.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrTokenKind, tokenKind),
		attribute.Bool("success", success),
	))
}

// RecordTokenRefreshed records a refresh attempt; rotated reports whether the provider
// issued a new refresh token.
func (m *Metrics) RecordTokenRefreshed(ctx context.Context, tokenKind string, success, rotated bool) {
	if m == nil {
		return
	}
	m.TokenRefreshed.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrTokenKind, tokenKind),
		attribute.Bool("success", success),
		attribute.Bool(AttrTokenRotated, rotated),
	))
}

// RecordTokenRevoked records a revocation; acknowledged is false when the provider
// call failed but the token was revoked locally anyway.
func (m *Metrics) RecordTokenRevoked(ctx context.Context, tokenKind string, acknowledged bool) {
	if m == nil {
		return
	}
	m.TokenRevoked.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrTokenKind, tokenKind),
		attribute.Bool("acknowledged", acknowledged),
	))
}

// RecordCSRFMismatch records a redirect whose state did not match.
func (m *Metrics) RecordCSRFMismatch(ctx context.Context, flow string) {
	if m == nil {
		return
	}
	m.CSRFMismatch.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrFlow, flow)))
}

// RecordDevicePoll records the outcome of a device code poll.
func (m *Metrics) RecordDevicePoll(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.DevicePolls.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrPollOutcome, outcome)))
}
