package oauth

import (
	"context"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/giantswarm/twitch-oauth/internal/util"
	"github.com/giantswarm/twitch-oauth/security"
)

// ImplicitFlow drives the implicit grant: the provider returns the access
// token in the redirect fragment. Built → AwaitingCode → Exchanged.
//
// The resulting token is unvalidated; call Validate before trusting its
// scopes or identity.
type ImplicitFlow struct {
	client      *Client
	clientID    ClientID
	redirectURL *url.URL
	scopes      ScopeSet
	opts        flowOptions

	state FlowState
	csrf  CSRFState
}

// NewImplicitFlow creates an implicit flow. Options: WithForceVerify.
func (c *Client) NewImplicitFlow(clientID ClientID, redirectURL string, scopes ScopeSet, opts ...FlowOption) (*ImplicitFlow, error) {
	const op = flowImplicit
	if err := validateFlowInput(op, clientID); err != nil {
		return nil, err
	}
	u, err := validateRedirectURL(op, redirectURL)
	if err != nil {
		return nil, err
	}
	return &ImplicitFlow{
		client:      c,
		clientID:    clientID,
		redirectURL: u,
		scopes:      scopes,
		opts:        applyFlowOptions(opts),
	}, nil
}

// State returns the flow state
func (f *ImplicitFlow) State() FlowState { return f.state }

// CSRFState returns the nonce embedded in the last generated URL
func (f *ImplicitFlow) CSRFState() CSRFState { return f.csrf }

// GenerateURL returns the authorization URL (response_type=token) with a new
// CSRF nonce and moves the flow to AwaitingCode.
func (f *ImplicitFlow) GenerateURL() (string, error) {
	if f.state != FlowBuilt && f.state != FlowAwaitingCode {
		return "", newError(KindFlowAlreadyCompleted, "generate_url", "implicit flow was already used")
	}

	f.csrf = NewCSRFState(security.GenerateState())
	params := []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("response_type", "token")}
	if f.opts.forceVerify {
		params = append(params, oauth2.SetAuthURLParam("force_verify", "true"))
	}

	f.state = FlowAwaitingCode
	return authURL(f.client, f.clientID, f.redirectURL, f.scopes, f.csrf, params...), nil
}

// Exchange parses the redirect fragment ("access_token=...&scope=...&state=...",
// with or without the leading '#') into an unvalidated user token.
func (f *ImplicitFlow) Exchange(fragment string) (*UserToken, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(fragment, "#"))
	if err != nil {
		if f.state == FlowAwaitingCode {
			f.state = FlowExchanged
		}
		return nil, configError(opExchange, "malformed redirect fragment: %v", err)
	}
	return f.ExchangeValues(values)
}

// ExchangeValues completes the flow from already parsed fragment parameters.
// No network call is made. The flow is consumed by the first call.
func (f *ImplicitFlow) ExchangeValues(values url.Values) (*UserToken, error) {
	c := f.client
	ctx := context.Background()

	switch f.state {
	case FlowBuilt:
		return nil, newError(KindInvalidFlowState, opExchange, "GenerateURL must be called before Exchange")
	case FlowAwaitingCode:
	default:
		return nil, newError(KindFlowAlreadyCompleted, opExchange, "implicit flow was already used")
	}
	f.state = FlowExchanged

	if values.Get("state") != f.csrf.Secret() {
		c.inst.Metrics().RecordCSRFMismatch(ctx, flowImplicit)
		c.auditor.LogCSRFMismatch(string(f.clientID), flowImplicit)
		return nil, newError(KindCSRFMismatch, opExchange, "returned state does not match the issued nonce")
	}
	if values.Get("error") != "" {
		return nil, redirectError(opExchange, values)
	}

	access := values.Get("access_token")
	if access == "" {
		return nil, newError(KindProviderError, opExchange, "redirect carries no access token")
	}

	tok := &UserToken{tokenCore: tokenCore{
		client:      c,
		kind:        TokenKindUser,
		accessToken: NewAccessToken(access),
		clientID:    f.clientID,
		scopes:      ParseScopes(values.Get("scope")),
	}}
	c.issued(ctx, tok, "", grantImplicit)
	return tok, nil
}

// redirectError maps the error parameters of an authorization redirect.
func redirectError(op string, values url.Values) *Error {
	code := values.Get("error")
	description := util.ProviderMessage(values.Get("error_description"))
	if code == msgAccessDenied {
		return newError(KindAccessDenied, op, description)
	}
	msg := util.ProviderMessage(code)
	if description != "" {
		msg += ": " + description
	}
	return newError(KindProviderError, op, msg)
}
