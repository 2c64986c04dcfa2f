package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/giantswarm/twitch-oauth/transport"
)

// UserToken is a token acting on behalf of a user.
//
// Login and UserID are empty until the first successful validation. The user
// id never changes afterwards: a validation naming another user fails with
// InvalidToken. The login may change when the user renames the account.
type UserToken struct {
	tokenCore
	login  string
	userID string
}

var _ Token = (*UserToken)(nil)

// UserTokenFromExisting wraps an externally obtained user access token without
// contacting the provider. The token must be validated before its scopes,
// expiry and identity are trustworthy. refresh and secret may be empty.
func (c *Client) UserTokenFromExisting(clientID ClientID, secret ClientSecret, access AccessToken, refresh RefreshToken) (*UserToken, error) {
	if clientID == "" {
		return nil, configError("user_token", "client id is required")
	}
	if access.IsEmpty() {
		return nil, configError("user_token", "access token is required")
	}
	return &UserToken{tokenCore: tokenCore{
		client:       c,
		kind:         TokenKindUser,
		accessToken:  access,
		refreshToken: refresh,
		clientID:     clientID,
		clientSecret: secret,
	}}, nil
}

// NewUserToken wraps an existing user access token and validates it.
func (c *Client) NewUserToken(ctx context.Context, tr transport.Transport, clientID ClientID, secret ClientSecret, access AccessToken, refresh RefreshToken) (*UserToken, error) {
	t, err := c.UserTokenFromExisting(clientID, secret, access, refresh)
	if err != nil {
		return nil, err
	}
	if err := t.Validate(ctx, tr); err != nil {
		return nil, err
	}
	return t, nil
}

// newUserTokenFromResponse builds an unvalidated user token from a token
// endpoint response.
func (c *Client) newUserTokenFromResponse(clientID ClientID, secret ClientSecret, resp *tokenResponse) *UserToken {
	t := &UserToken{tokenCore: tokenCore{
		client:       c,
		kind:         TokenKindUser,
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

// Login returns the user's login name, empty before the first validation
func (t *UserToken) Login() string { return t.login }

// UserID returns the user's id, empty before the first validation
func (t *UserToken) UserID() string { return t.userID }

// Validate confirms the token with the provider and learns the user identity.
func (t *UserToken) Validate(ctx context.Context, tr transport.Transport) error {
	return t.validate(ctx, tr, t.userID, func(resp *validateResponse) error {
		if resp.UserID == "" || resp.Login == "" {
			return newError(KindInvalidToken, opValidate, "token carries no user identity")
		}
		if t.userID != "" && resp.UserID != t.userID {
			return newError(KindInvalidToken, opValidate, "token belongs to another user")
		}
		t.userID = resp.UserID
		t.login = resp.Login
		return nil
	})
}

// Refresh exchanges the refresh token for a new access token.
func (t *UserToken) Refresh(ctx context.Context, tr transport.Transport) error {
	return t.refresh(ctx, tr, t.userID)
}

// Revoke revokes the token
func (t *UserToken) Revoke(ctx context.Context, tr transport.Transport) error {
	return t.revoke(ctx, tr, t.userID)
}

// String returns a description without secrets
func (t *UserToken) String() string {
	return fmt.Sprintf("UserToken{login: %s, user_id: %s, client_id: %s, scopes: %q, expires_at: %s, state: %s}",
		t.login, t.userID, t.clientID, t.scopes.String(), formatExpiry(&t.tokenCore), t.state)
}

// GoString returns a description without secrets
func (t *UserToken) GoString() string { return t.String() }

// LogValue renders the token for slog without secrets
func (t *UserToken) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("kind", string(TokenKindUser)),
		slog.String("login", t.login),
		slog.String("user_id", t.userID),
		slog.String("client_id", string(t.clientID)),
		slog.String("scopes", t.scopes.String()),
		slog.String("expires_at", formatExpiry(&t.tokenCore)),
		slog.String("state", t.state.String()),
	)
}

func formatExpiry(t *tokenCore) string {
	switch {
	case t.neverExpires:
		return "never"
	case t.expiresAt.IsZero():
		return "unknown"
	default:
		return t.expiresAt.UTC().Format(time.RFC3339)
	}
}
