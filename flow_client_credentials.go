package oauth

import (
	"context"
	"net/url"

	"github.com/giantswarm/twitch-oauth/transport"
)

// ClientCredentialsFlow obtains an app token with the client-credentials grant.
// It is single use: Built → Exchanged.
type ClientCredentialsFlow struct {
	client       *Client
	clientID     ClientID
	clientSecret ClientSecret
	scopes       ScopeSet
	state        FlowState
}

// NewClientCredentialsFlow creates a client-credentials flow.
func (c *Client) NewClientCredentialsFlow(clientID ClientID, secret ClientSecret, scopes ScopeSet) (*ClientCredentialsFlow, error) {
	const op = "client_credentials"
	if err := validateFlowInput(op, clientID); err != nil {
		return nil, err
	}
	if secret.IsEmpty() {
		return nil, configError(op, "client secret is required")
	}
	return &ClientCredentialsFlow{
		client:       c,
		clientID:     clientID,
		clientSecret: secret,
		scopes:       scopes,
	}, nil
}

// State returns the flow state
func (f *ClientCredentialsFlow) State() FlowState { return f.state }

// GetToken requests an app token. The returned token holds no refresh token
// unless the provider issued one. The flow is consumed whatever the outcome.
func (f *ClientCredentialsFlow) GetToken(ctx context.Context, tr transport.Transport) (tok *AppToken, err error) {
	c := f.client
	ctx, span := c.startSpan(ctx, opToken, f.clientID, TokenKindApp)
	defer span.End()
	defer func() { c.finishSpan(ctx, span, opToken, err) }()

	if f.state != FlowBuilt {
		return nil, newError(KindFlowAlreadyCompleted, opToken, "client credentials flow was already used")
	}
	f.state = FlowExchanged

	form := url.Values{
		"client_id":     {string(f.clientID)},
		"client_secret": {f.clientSecret.Secret()},
		"grant_type":    {grantClientCredentials},
	}
	if !f.scopes.IsEmpty() {
		form.Set("scope", f.scopes.String())
	}

	resp, err := c.requestToken(ctx, tr, opToken, form)
	if err != nil {
		return nil, err
	}

	tok = c.newAppTokenFromResponse(f.clientID, f.clientSecret, resp)
	c.issued(ctx, tok, "", grantClientCredentials)
	return tok, nil
}

// issued records a token produced by a grant flow.
func (c *Client) issued(ctx context.Context, tok Token, userID, grantType string) {
	c.inst.Metrics().RecordTokenIssued(ctx, grantType, string(tok.Kind()))
	c.auditor.LogTokenIssued(userID, string(tok.ClientID()), grantType, tok.Scopes().String())
	c.logger.Info("Token issued",
		"grant_type", grantType,
		"kind", tok.Kind(),
		"client_id", tok.ClientID(),
		"scopes", tok.Scopes().String())
}
