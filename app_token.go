package oauth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/giantswarm/twitch-oauth/transport"
)

// AppToken is an application access token. It carries no user identity and,
// when issued by the client-credentials grant, no refresh token.
type AppToken struct {
	tokenCore
}

var _ Token = (*AppToken)(nil)

// AppTokenFromExisting wraps an externally obtained app access token without
// contacting the provider. Scopes and expiry are unknown until Validate.
// refresh and secret may be empty.
func (c *Client) AppTokenFromExisting(clientID ClientID, secret ClientSecret, access AccessToken, refresh RefreshToken) (*AppToken, error) {
	if clientID == "" {
		return nil, configError("app_token", "client id is required")
	}
	if access.IsEmpty() {
		return nil, configError("app_token", "access token is required")
	}
	return &AppToken{tokenCore{
		client:       c,
		kind:         TokenKindApp,
		accessToken:  access,
		refreshToken: refresh,
		clientID:     clientID,
		clientSecret: secret,
	}}, nil
}

// NewAppToken wraps an existing app access token and validates it.
func (c *Client) NewAppToken(ctx context.Context, tr transport.Transport, clientID ClientID, secret ClientSecret, access AccessToken, refresh RefreshToken) (*AppToken, error) {
	t, err := c.AppTokenFromExisting(clientID, secret, access, refresh)
	if err != nil {
		return nil, err
	}
	if err := t.Validate(ctx, tr); err != nil {
		return nil, err
	}
	return t, nil
}

// newAppTokenFromResponse builds an app token from a token endpoint response.
func (c *Client) newAppTokenFromResponse(clientID ClientID, secret ClientSecret, resp *tokenResponse) *AppToken {
	t := &AppToken{tokenCore{
		client:       c,
		kind:         TokenKindApp,
		accessToken:  NewAccessToken(resp.AccessToken),
		clientID:     clientID,
		clientSecret: secret,
	}}
	if resp.RefreshToken != "" {
		t.refreshToken = NewRefreshToken(resp.RefreshToken)
	}
	if resp.Scope != nil {
		t.scopes = *resp.Scope
	}
	t.expiresAt, t.neverExpires = expiry(c.Now(), resp.ExpiresIn)
	return t
}

// Validate confirms the token with the provider. A response naming a user
// means the token is not an app token and fails with InvalidToken.
func (t *AppToken) Validate(ctx context.Context, tr transport.Transport) error {
	return t.validate(ctx, tr, "", func(resp *validateResponse) error {
		if resp.UserID != "" {
			return newError(KindInvalidToken, opValidate, "token belongs to a user")
		}
		return nil
	})
}

// Refresh exchanges the refresh token, failing with NoRefreshToken when none is held.
func (t *AppToken) Refresh(ctx context.Context, tr transport.Transport) error {
	return t.refresh(ctx, tr, "")
}

// Revoke revokes the token
func (t *AppToken) Revoke(ctx context.Context, tr transport.Transport) error {
	return t.revoke(ctx, tr, "")
}

// String returns a description without secrets
func (t *AppToken) String() string {
	return fmt.Sprintf("AppToken{client_id: %s, scopes: %q, expires_at: %s, state: %s}",
		t.clientID, t.scopes.String(), formatExpiry(&t.tokenCore), t.state)
}

// GoString returns a description without secrets
func (t *AppToken) GoString() string { return t.String() }

// LogValue renders the token for slog without secrets
func (t *AppToken) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("kind", string(TokenKindApp)),
		slog.String("client_id", string(t.clientID)),
		slog.String("scopes", t.scopes.String()),
		slog.String("expires_at", formatExpiry(&t.tokenCore)),
		slog.String("state", t.state.String()),
	)
}
