package oauth

import (
	"net/url"
	"strings"

	"github.com/giantswarm/twitch-oauth/internal/helpers"
)

// FlowState is the step a grant flow has reached.
type FlowState int

const (
	// FlowBuilt is a constructed flow that has not contacted anyone yet
	FlowBuilt FlowState = iota
	// FlowAwaitingCode means the authorization URL was generated
	FlowAwaitingCode
	// FlowPolling means a device code was issued and is being polled
	FlowPolling
	// FlowExchanged is terminal: the flow was consumed
	FlowExchanged
	// FlowExpired is terminal: the device code lifetime elapsed
	FlowExpired
	// FlowDenied is terminal: the user declined the authorization
	FlowDenied
)

// String returns the state name
func (s FlowState) String() string {
	switch s {
	case FlowBuilt:
		return "built"
	case FlowAwaitingCode:
		return "awaiting_code"
	case FlowPolling:
		return "polling"
	case FlowExchanged:
		return "exchanged"
	case FlowExpired:
		return "expired"
	case FlowDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Flow names used in logs, metrics and audit events
const (
	flowAuthorizationCode = "authorization_code"
	flowImplicit          = "implicit"
	flowClientCredentials = "client_credentials"
	flowDeviceCode        = "device_code"
)

// flowOptions collects FlowOption settings
type flowOptions struct {
	pkce         bool
	forceVerify  bool
	clientSecret ClientSecret
}

// FlowOption configures a grant flow
type FlowOption func(*flowOptions)

// WithPKCE adds an RFC 7636 S256 challenge to the authorization URL and sends
// the verifier with the code exchange.
func WithPKCE() FlowOption {
	return func(o *flowOptions) { o.pkce = true }
}

// WithForceVerify makes the provider prompt the user to re-approve the
// authorization even when it was granted before.
func WithForceVerify() FlowOption {
	return func(o *flowOptions) { o.forceVerify = true }
}

// WithClientSecret sets the secret of a confidential client for flows where
// it is optional (device code). The secret is kept on the issued token for refreshes.
func WithClientSecret(secret ClientSecret) FlowOption {
	return func(o *flowOptions) { o.clientSecret = secret }
}

func applyFlowOptions(opts []FlowOption) flowOptions {
	var o flowOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// validateRedirectURL checks raw is an absolute https URL without fragment.
// Plain http is accepted only for loopback hosts.
func validateRedirectURL(op, raw string) (*url.URL, error) {
	if raw == "" {
		return nil, configError(op, "redirect URL is required")
	}
	if strings.Contains(raw, "#") {
		return nil, configError(op, "redirect URL must not contain a fragment")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, configError(op, "malformed redirect URL: %v", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, configError(op, "redirect URL must be absolute")
	}

	switch u.Scheme {
	case "https":
	case "http":
		if !helpers.IsLoopbackHostname(u.Hostname()) {
			return nil, configError(op, "redirect URL must use https unless it targets a loopback host")
		}
	default:
		return nil, configError(op, "redirect URL scheme %q is not supported", u.Scheme)
	}
	return u, nil
}

// validateFlowInput runs the checks shared by all flow constructors.
// Scope sets need no check: NewScopeSet only holds wire-safe scopes.
func validateFlowInput(op string, clientID ClientID) error {
	if strings.TrimSpace(string(clientID)) == "" {
		return configError(op, "client id is required")
	}
	return nil
}
