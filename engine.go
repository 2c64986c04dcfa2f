package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/twitch-oauth/instrumentation"
	"github.com/giantswarm/twitch-oauth/internal/util"
	"github.com/giantswarm/twitch-oauth/security"
	"github.com/giantswarm/twitch-oauth/transport"
)

// Provider operations, used as span names, metric attributes and Error.Op
const (
	opValidate = "validate"
	opRefresh  = "refresh"
	opRevoke   = "revoke"
	opToken    = "token"
	opExchange = "exchange"
	opDevice   = "device"
	opPoll     = "poll"
)

// Grant types sent to the token endpoint
const (
	grantAuthorizationCode = "authorization_code"
	grantClientCredentials = "client_credentials"
	grantRefreshToken      = "refresh_token"
	grantDeviceCode        = "urn:ietf:params:oauth:grant-type:device_code"
	grantImplicit          = "implicit"
)

// Provider messages the engine recognizes, compared case-insensitively
const (
	msgInvalidRefreshToken  = "invalid refresh token"
	msgAuthorizationPending = "authorization_pending"
	msgSlowDown             = "slow_down"
	msgInvalidDeviceCode    = "invalid device code"
	msgExpiredToken         = "expired_token"
	msgAccessDenied         = "access_denied"
)

const formContentType = "application/x-www-form-urlencoded"

// tokenResponse is the token endpoint's success body
type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	Scope        *ScopeSet `json:"scope"`
	TokenType    string    `json:"token_type"`
}

// validateResponse is the validation endpoint's success body
type validateResponse struct {
	ClientID  string   `json:"client_id"`
	Login     string   `json:"login"`
	UserID    string   `json:"user_id"`
	Scopes    ScopeSet `json:"scopes"`
	ExpiresIn int64    `json:"expires_in"`
}

// deviceResponse is the device authorization endpoint's success body
type deviceResponse struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	ExpiresIn       int64  `json:"expires_in"`
	Interval        int64  `json:"interval"`
}

// providerErrorBody is the provider's error body. Some endpoints use the
// OAuth2 error/error_description shape instead.
type providerErrorBody struct {
	Status           int    `json:"status"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (b providerErrorBody) message() string {
	if b.Message != "" {
		return b.Message
	}
	if b.ErrorDescription != "" {
		return b.ErrorDescription
	}
	return b.Error
}

// hasMessage reports whether the provider message equals want, ignoring case.
func hasMessage(e *Error, want string) bool {
	return strings.EqualFold(strings.TrimSpace(e.Message), want)
}

// roundTrip sends req through tr, tagged with op, and returns the response or a
// RequestFailed error. Non-2xx statuses are not errors here.
func (c *Client) roundTrip(ctx context.Context, tr transport.Transport, op string, req *transport.Request) (*transport.Response, error) {
	if tr == nil {
		return nil, configError(op, "transport is required")
	}

	ctx = transport.WithOperation(ctx, op)
	resp, err := transport.Instrument(tr, c.inst, c.logger).Do(ctx, req)
	if err != nil {
		return nil, &Error{Kind: KindRequestFailed, Op: op, Err: err}
	}
	if resp == nil {
		return nil, &Error{Kind: KindRequestFailed, Op: op, Message: "transport returned no response"}
	}
	return resp, nil
}

// decode parses a response: 200 with the expected JSON shape succeeds, any
// other status becomes a provider error when the body has the error shape,
// and everything else is RequestFailed.
func decode(op string, resp *transport.Response, out any) error {
	if resp.StatusCode == http.StatusOK {
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return &Error{Kind: KindRequestFailed, Op: op, Status: resp.StatusCode, Message: "malformed response body", Err: err}
		}
		return nil
	}
	return providerError(op, resp)
}

// providerError maps a non-200 response to the taxonomy. Operation-specific
// refinements are applied by the callers.
func providerError(op string, resp *transport.Response) *Error {
	var body providerErrorBody
	if err := json.Unmarshal(resp.Body, &body); err != nil || (body.Status == 0 && body.message() == "") {
		e := &Error{Kind: KindRequestFailed, Op: op, Status: resp.StatusCode, Message: "unexpected response"}
		if err != nil {
			e.Err = err
		}
		return e
	}
	return &Error{
		Kind:    KindProviderError,
		Op:      op,
		Status:  resp.StatusCode,
		Message: util.ProviderMessage(body.message()),
	}
}

func formRequest(endpoint string, form url.Values) *transport.Request {
	req := transport.NewRequest(http.MethodPost, endpoint, []byte(form.Encode()))
	req.Header.Set("Content-Type", formContentType)
	req.Header.Set("Accept", "application/json")
	return req
}

// startSpan starts an engine span carrying an operation id. The id is also
// placed in ctx so transport spans and logs share it.
func (c *Client) startSpan(ctx context.Context, op string, clientID ClientID, kind TokenKind) (context.Context, trace.Span) {
	operationID := security.OperationIDFromContext(ctx)
	if operationID == "" {
		operationID = security.NewOperationID()
		ctx = security.WithOperationID(ctx, operationID)
	}

	ctx, span := c.tracer.Start(ctx, "oauth."+op)
	instrumentation.AddOAuthFlowAttributes(span, string(clientID), "", "")
	instrumentation.SetSpanAttributes(span, attribute.String(instrumentation.AttrOperationID, operationID))
	if kind != "" {
		instrumentation.SetSpanAttributes(span, attribute.String(instrumentation.AttrTokenKind, string(kind)))
	}
	return ctx, span
}

// finishSpan records the outcome of op on span and counts failures.
func (c *Client) finishSpan(ctx context.Context, span trace.Span, op string, err error) {
	if err == nil {
		instrumentation.SetSpanSuccess(span)
		return
	}
	kind := KindOf(err).String()
	instrumentation.SetSpanAttributes(span, attribute.String(instrumentation.AttrErrorKind, kind))
	instrumentation.RecordError(span, err)
	c.inst.Metrics().RecordProviderError(ctx, op, kind)

	var e *Error
	if errors.As(err, &e) && e.Status != 0 {
		c.logger.Warn("Provider rejected request",
			"operation", op,
			"operation_id", security.OperationIDFromContext(ctx),
			"kind", kind,
			"status", e.Status,
			"message", e.Message)
	}
}

// validateAccessToken calls the validation endpoint.
// 401 maps to InvalidToken.
func (c *Client) validateAccessToken(ctx context.Context, tr transport.Transport, token AccessToken) (*validateResponse, error) {
	req := transport.NewRequest(http.MethodGet, c.endpoints.ValidateURL, nil)
	req.Header.Set("Authorization", "OAuth "+token.Secret())
	req.Header.Set("Accept", "application/json")

	resp, err := c.roundTrip(ctx, tr, opValidate, req)
	if err != nil {
		return nil, err
	}

	var out validateResponse
	if err := decode(opValidate, resp, &out); err != nil {
		var e *Error
		if errors.As(err, &e) && e.Status == http.StatusUnauthorized {
			e.Kind = KindInvalidToken
		}
		return nil, err
	}
	return &out, nil
}

// requestToken posts form to the token endpoint and decodes a token response.
func (c *Client) requestToken(ctx context.Context, tr transport.Transport, op string, form url.Values) (*tokenResponse, error) {
	resp, err := c.roundTrip(ctx, tr, op, formRequest(c.endpoints.TokenURL, form))
	if err != nil {
		return nil, err
	}

	var out tokenResponse
	if err := decode(op, resp, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, &Error{Kind: KindRequestFailed, Op: op, Status: resp.StatusCode, Message: "response carries no access token"}
	}
	return &out, nil
}

// refreshAccessToken exchanges a refresh token. The client secret is sent only
// when held; public clients of the device flow have none.
// 401, or 400 "invalid refresh token", maps to RefreshFailed.
func (c *Client) refreshAccessToken(ctx context.Context, tr transport.Transport, clientID ClientID, secret ClientSecret, refresh RefreshToken) (*tokenResponse, error) {
	form := url.Values{
		"grant_type":    {grantRefreshToken},
		"refresh_token": {refresh.Secret()},
		"client_id":     {string(clientID)},
	}
	if !secret.IsEmpty() {
		form.Set("client_secret", secret.Secret())
	}

	out, err := c.requestToken(ctx, tr, opRefresh, form)
	if err != nil {
		var e *Error
		if errors.As(err, &e) && (e.Status == http.StatusUnauthorized ||
			(e.Kind == KindProviderError && e.Status == http.StatusBadRequest && hasMessage(e, msgInvalidRefreshToken))) {
			e.Kind = KindRefreshFailed
		}
		return nil, err
	}
	return out, nil
}

// revokeAccessToken calls the revocation endpoint. The response is advisory.
func (c *Client) revokeAccessToken(ctx context.Context, tr transport.Transport, clientID ClientID, token AccessToken) error {
	form := url.Values{
		"client_id": {string(clientID)},
		"token":     {token.Secret()},
	}
	resp, err := c.roundTrip(ctx, tr, opRevoke, formRequest(c.endpoints.RevokeURL, form))
	if err != nil {
		return err
	}
	return decode(opRevoke, resp, nil)
}

// requestDeviceCode starts a device authorization.
func (c *Client) requestDeviceCode(ctx context.Context, tr transport.Transport, clientID ClientID, scopes ScopeSet) (*deviceResponse, error) {
	form := url.Values{
		"client_id": {string(clientID)},
		"scopes":    {scopes.String()},
	}
	resp, err := c.roundTrip(ctx, tr, opDevice, formRequest(c.endpoints.DeviceAuthURL, form))
	if err != nil {
		return nil, err
	}

	var out deviceResponse
	if err := decode(opDevice, resp, &out); err != nil {
		return nil, err
	}
	if out.DeviceCode == "" || out.UserCode == "" {
		return nil, &Error{Kind: KindRequestFailed, Op: opDevice, Status: resp.StatusCode, Message: "response carries no device code"}
	}
	if out.ExpiresIn <= 0 {
		return nil, &Error{Kind: KindRequestFailed, Op: opDevice, Status: resp.StatusCode, Message: "response carries no device code lifetime"}
	}
	return &out, nil
}
