package instrumentation

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Common span and metric attribute keys
//
// SECURITY WARNING: Never record actual credential values (access tokens, refresh tokens,
// authorization codes, client secrets, device codes, CSRF state) in traces or metrics.
// Only record metadata such as token kinds, expiry durations and fingerprints.
const (
	AttrClientID      = "oauth.client_id"     // Client identifier (non-secret)
	AttrUserID        = "oauth.user_id"       // User identifier (non-secret)
	AttrScope         = "oauth.scope"         // Space-delimited scopes
	AttrGrantType     = "oauth.grant_type"    // OAuth grant type
	AttrFlow          = "oauth.flow"          // Flow builder name
	AttrPKCEMethod    = "oauth.pkce.method"   // PKCE method used (S256)
	AttrTokenKind     = "oauth.token.kind"    //nolint:gosec // "app" or "user" - NOT the actual token
	AttrTokenRotated  = "oauth.token.rotated" //nolint:gosec // Whether the refresh token was rotated
	AttrExpiresIn     = "oauth.expires_in"    // Token expiry duration in seconds
	AttrErrorKind     = "oauth.error.kind"    // Error taxonomy kind
	AttrPollOutcome   = "oauth.device.poll"   // Device poll outcome
	AttrOperationID   = "oauth.operation_id"  // Correlation id of one engine operation
	AttrFingerprint   = "oauth.token.fingerprint"

	// Provider attributes
	AttrProviderOperation = "provider.operation"

	// HTTP attributes (in addition to standard semantic conventions)
	AttrHTTPEndpoint   = "http.endpoint"
	AttrHTTPMethod     = "http.method"
	AttrHTTPStatusCode = "http.status_code"
)

// RecordError records an error on a span with proper status codes (nil-safe)
func RecordError(span trace.Span, err error) {
	if span != nil && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess marks a span as successful (nil-safe)
func SetSpanSuccess(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// SetSpanAttributes sets attributes on a span (nil-safe)
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span != nil {
		span.SetAttributes(attrs...)
	}
}

// AddOAuthFlowAttributes adds common OAuth flow attributes to a span (nil-safe)
func AddOAuthFlowAttributes(span trace.Span, clientID, userID, scope string) {
	if clientID != "" {
		SetSpanAttributes(span, attribute.String(AttrClientID, clientID))
	}
	if userID != "" {
		SetSpanAttributes(span, attribute.String(AttrUserID, userID))
	}
	if scope != "" {
		SetSpanAttributes(span, attribute.String(AttrScope, scope))
	}
}

// AddPKCEAttributes adds PKCE-related attributes to a span (nil-safe)
func AddPKCEAttributes(span trace.Span, method string) {
	if method != "" {
		SetSpanAttributes(span, attribute.String(AttrPKCEMethod, method))
	}
}

// AddProviderAttributes adds provider operation attributes to a span (nil-safe)
func AddProviderAttributes(span trace.Span, operation, operationID string) {
	SetSpanAttributes(span, attribute.String(AttrProviderOperation, operation))
	if operationID != "" {
		SetSpanAttributes(span, attribute.String(AttrOperationID, operationID))
	}
}

// AddTokenAttributes adds the fingerprint and lifetime of a freshly validated or
// refreshed token to a span (nil-safe). A non-positive expiresIn is omitted.
func AddTokenAttributes(span trace.Span, fingerprint string, expiresIn int64) {
	if fingerprint != "" {
		SetSpanAttributes(span, attribute.String(AttrFingerprint, fingerprint))
	}
	if expiresIn > 0 {
		SetSpanAttributes(span, attribute.Int64(AttrExpiresIn, expiresIn))
	}
}

// AddHTTPAttributes adds HTTP request attributes to a span (nil-safe)
func AddHTTPAttributes(span trace.Span, method, endpoint string, statusCode int) {
	SetSpanAttributes(span,
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPEndpoint, endpoint),
		attribute.Int(AttrHTTPStatusCode, statusCode),
	)
}
