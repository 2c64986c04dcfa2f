package oauth

import (
	"context"
	"net/url"

	"golang.org/x/oauth2"

	"github.com/giantswarm/twitch-oauth/instrumentation"
	"github.com/giantswarm/twitch-oauth/security"
	"github.com/giantswarm/twitch-oauth/transport"
)

// AuthorizationCodeFlow drives the authorization-code grant:
// Built → AwaitingCode → Exchanged.
//
// GenerateURL issues a fresh CSRF nonce (and PKCE pair when enabled) on every
// call. Exchange consumes the flow whatever the outcome.
type AuthorizationCodeFlow struct {
	client       *Client
	clientID     ClientID
	clientSecret ClientSecret
	redirectURL  *url.URL
	scopes       ScopeSet
	opts         flowOptions

	state    FlowState
	csrf     CSRFState
	verifier PKCEVerifier
}

// NewAuthorizationCodeFlow creates an authorization-code flow. Options:
// WithPKCE, WithForceVerify.
func (c *Client) NewAuthorizationCodeFlow(clientID ClientID, secret ClientSecret, redirectURL string, scopes ScopeSet, opts ...FlowOption) (*AuthorizationCodeFlow, error) {
	const op = flowAuthorizationCode
	if err := validateFlowInput(op, clientID); err != nil {
		return nil, err
	}
	if secret.IsEmpty() {
		return nil, configError(op, "client secret is required")
	}
	u, err := validateRedirectURL(op, redirectURL)
	if err != nil {
		return nil, err
	}
	return &AuthorizationCodeFlow{
		client:       c,
		clientID:     clientID,
		clientSecret: secret,
		redirectURL:  u,
		scopes:       scopes,
		opts:         applyFlowOptions(opts),
	}, nil
}

// State returns the flow state
func (f *AuthorizationCodeFlow) State() FlowState { return f.state }

// CSRFState returns the nonce embedded in the last generated URL
func (f *AuthorizationCodeFlow) CSRFState() CSRFState { return f.csrf }

// GenerateURL returns the browser-facing authorization URL with a new CSRF
// nonce and moves the flow to AwaitingCode.
func (f *AuthorizationCodeFlow) GenerateURL() (string, error) {
	if f.state != FlowBuilt && f.state != FlowAwaitingCode {
		return "", newError(KindFlowAlreadyCompleted, "generate_url", "authorization code flow was already used")
	}

	f.csrf = NewCSRFState(security.GenerateState())
	var params []oauth2.AuthCodeOption
	if f.opts.pkce {
		verifier, challenge := security.GeneratePKCE()
		f.verifier = NewPKCEVerifier(verifier)
		params = append(params,
			oauth2.SetAuthURLParam("code_challenge_method", security.PKCEMethodS256),
			oauth2.SetAuthURLParam("code_challenge", challenge))
	}
	if f.opts.forceVerify {
		params = append(params, oauth2.SetAuthURLParam("force_verify", "true"))
	}

	f.state = FlowAwaitingCode
	return authURL(f.client, f.clientID, f.redirectURL, f.scopes, f.csrf, params...), nil
}

// authURL builds an authorization URL with x/oauth2.
func authURL(c *Client, clientID ClientID, redirectURL *url.URL, scopes ScopeSet, state CSRFState, params ...oauth2.AuthCodeOption) string {
	cfg := oauth2.Config{
		ClientID:    string(clientID),
		Endpoint:    c.endpoints.Endpoint,
		RedirectURL: redirectURL.String(),
		Scopes:      scopes.Strings(),
	}
	return cfg.AuthCodeURL(state.Secret(), params...)
}

// Exchange checks returnedState against the issued nonce and exchanges code
// for a user token, which is validated before it is returned.
//
// A mismatching state fails with CsrfMismatch without any network call. The
// flow is consumed by the first call; later calls fail with FlowAlreadyCompleted.
func (f *AuthorizationCodeFlow) Exchange(ctx context.Context, tr transport.Transport, code AuthorizationCode, returnedState string) (tok *UserToken, err error) {
	c := f.client
	ctx, span := c.startSpan(ctx, opExchange, f.clientID, TokenKindUser)
	defer span.End()
	defer func() { c.finishSpan(ctx, span, opExchange, err) }()

	if err := f.consume(ctx, returnedState); err != nil {
		return nil, err
	}
	if code.IsEmpty() {
		return nil, configError(opExchange, "authorization code is required")
	}

	form := url.Values{
		"client_id":     {string(f.clientID)},
		"client_secret": {f.clientSecret.Secret()},
		"code":          {code.Secret()},
		"grant_type":    {grantAuthorizationCode},
		"redirect_uri":  {f.redirectURL.String()},
	}
	if !f.verifier.IsEmpty() {
		form.Set("code_verifier", f.verifier.Secret())
		instrumentation.AddPKCEAttributes(span, security.PKCEMethodS256)
	}
	f.verifier = PKCEVerifier{}

	resp, err := c.requestToken(ctx, tr, opExchange, form)
	if err != nil {
		return nil, err
	}

	tok = c.newUserTokenFromResponse(f.clientID, f.clientSecret, resp)
	if err := tok.Validate(ctx, tr); err != nil {
		return nil, err
	}
	c.issued(ctx, tok, tok.userID, grantAuthorizationCode)
	return tok, nil
}

// ExchangeCallback completes the flow from the redirect's query parameters
// (code, state, error, error_description). A provider error in the redirect
// fails with AccessDenied when the user declined, ProviderError otherwise.
func (f *AuthorizationCodeFlow) ExchangeCallback(ctx context.Context, tr transport.Transport, query url.Values) (*UserToken, error) {
	if query.Get("error") == "" {
		return f.Exchange(ctx, tr, NewAuthorizationCode(query.Get("code")), query.Get("state"))
	}

	if err := f.consume(ctx, query.Get("state")); err != nil {
		return nil, err
	}
	return nil, redirectError(opExchange, query)
}

// consume moves the flow to Exchanged and checks the returned state.
func (f *AuthorizationCodeFlow) consume(ctx context.Context, returnedState string) error {
	switch f.state {
	case FlowBuilt:
		return newError(KindInvalidFlowState, opExchange, "GenerateURL must be called before Exchange")
	case FlowAwaitingCode:
	default:
		return newError(KindFlowAlreadyCompleted, opExchange, "authorization code flow was already used")
	}
	f.state = FlowExchanged

	if returnedState != f.csrf.Secret() {
		f.client.inst.Metrics().RecordCSRFMismatch(ctx, flowAuthorizationCode)
		f.client.auditor.LogCSRFMismatch(string(f.clientID), flowAuthorizationCode)
		return newError(KindCSRFMismatch, opExchange, "returned state does not match the issued nonce")
	}
	return nil
}
