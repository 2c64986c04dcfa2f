package oauth

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/giantswarm/twitch-oauth/instrumentation"
	"github.com/giantswarm/twitch-oauth/internal/util"
	"github.com/giantswarm/twitch-oauth/security"
	"github.com/giantswarm/twitch-oauth/transport"
)

// TokenKind distinguishes application tokens from user tokens
type TokenKind string

const (
	TokenKindApp  TokenKind = "app"
	TokenKindUser TokenKind = "user"
)

// TokenState is the local lifecycle state of a token.
type TokenState int

const (
	// TokenStateActive is a token presumed usable
	TokenStateActive TokenState = iota
	// TokenStateInvalid means the provider reported the access token invalid.
	// A refresh may recover the token.
	TokenStateInvalid
	// TokenStateNeedsReauth means the provider rejected the refresh token.
	// Only a new grant flow can produce a usable token.
	TokenStateNeedsReauth
	// TokenStateRevoked means the token was revoked and must not be reused
	TokenStateRevoked
)

// String returns the state name
func (s TokenState) String() string {
	switch s {
	case TokenStateActive:
		return "active"
	case TokenStateInvalid:
		return "invalid"
	case TokenStateNeedsReauth:
		return "needs_reauth"
	case TokenStateRevoked:
		return "revoked"
	default:
		return "unknown"
	}
}

// Token is the capability shared by AppToken and UserToken.
//
// Tokens are not safe for concurrent mutation: callers that validate, refresh
// or revoke one token from several goroutines must serialize those calls.
// The engine never refreshes on its own; callers check IsElapsed and decide.
type Token interface {
	AccessToken() AccessToken
	RefreshToken() (RefreshToken, bool)
	ClientID() ClientID
	Scopes() ScopeSet
	ExpiresAt() time.Time
	ExpiresIn() time.Duration
	NeverExpires() bool
	IsElapsed() bool
	Validated() bool
	State() TokenState
	Kind() TokenKind

	// Validate confirms the token with the provider and refreshes scopes and expiry.
	Validate(ctx context.Context, tr transport.Transport) error

	// Refresh exchanges the refresh token for a new access token.
	Refresh(ctx context.Context, tr transport.Transport) error

	// Revoke revokes the access token. The token is unusable afterwards even
	// when the provider call fails.
	Revoke(ctx context.Context, tr transport.Transport) error

	core() *tokenCore
}

// tokenCore holds the fields and lifecycle logic shared by both variants.
type tokenCore struct {
	client       *Client
	kind         TokenKind
	accessToken  AccessToken
	refreshToken RefreshToken
	clientID     ClientID
	clientSecret ClientSecret
	scopes       ScopeSet
	expiresAt    time.Time
	neverExpires bool
	validated    bool
	state        TokenState
}

func (t *tokenCore) core() *tokenCore { return t }

// AccessToken returns the current access token
func (t *tokenCore) AccessToken() AccessToken { return t.accessToken }

// RefreshToken returns the refresh token and whether one is held
func (t *tokenCore) RefreshToken() (RefreshToken, bool) {
	return t.refreshToken, !t.refreshToken.IsEmpty()
}

// ClientID returns the client the token was issued to
func (t *tokenCore) ClientID() ClientID { return t.clientID }

// Scopes returns the granted scopes. Until the first validation of a token
// built from an existing access token this is the caller's claim.
func (t *tokenCore) Scopes() ScopeSet { return t.scopes }

// ExpiresAt returns the expiry instant; zero when unknown or never expiring
func (t *tokenCore) ExpiresAt() time.Time { return t.expiresAt }

// NeverExpires reports whether the provider declared the token non-expiring
func (t *tokenCore) NeverExpires() bool { return t.neverExpires }

// ExpiresIn returns the time left before expiry. Non-expiring tokens report
// the maximum duration.
func (t *tokenCore) ExpiresIn() time.Duration {
	if t.neverExpires {
		return time.Duration(math.MaxInt64)
	}
	return security.Remaining(t.client.Now(), t.expiresAt)
}

// IsElapsed reports whether the expiry instant is at or before now.
// Tokens with unknown or no expiry never elapse.
func (t *tokenCore) IsElapsed() bool {
	if t.neverExpires {
		return false
	}
	return security.IsElapsed(t.client.Now(), t.expiresAt)
}

// Validated reports whether the provider confirmed scopes and expiry at least once
func (t *tokenCore) Validated() bool { return t.validated }

// State returns the lifecycle state
func (t *tokenCore) State() TokenState { return t.state }

// Kind returns "app" or "user"
func (t *tokenCore) Kind() TokenKind { return t.kind }

// usable rejects operations on tokens that can no longer reach the provider.
func (t *tokenCore) usable(op string) error {
	switch t.state {
	case TokenStateRevoked:
		return newError(KindTokenUnusable, op, "token was revoked")
	case TokenStateNeedsReauth:
		return newError(KindTokenUnusable, op, "token requires re-authentication")
	default:
		return nil
	}
}

// expiry converts expires_in into an instant. Zero means non-expiring.
func expiry(now time.Time, expiresIn int64) (time.Time, bool) {
	if expiresIn <= 0 {
		return time.Time{}, true
	}
	return now.Add(time.Duration(expiresIn) * time.Second), false
}

// validate calls the validation endpoint and, once every check passed,
// overwrites scopes and expiry. accept runs the variant's identity checks and
// may update identity fields; nothing can fail after it returns nil.
func (t *tokenCore) validate(ctx context.Context, tr transport.Transport, userID string, accept func(*validateResponse) error) (err error) {
	c := t.client
	ctx, span := c.startSpan(ctx, opValidate, t.clientID, t.kind)
	defer span.End()
	defer func() {
		c.finishSpan(ctx, span, opValidate, err)
		c.inst.Metrics().RecordTokenValidated(ctx, string(t.kind), err == nil)
	}()

	if err := t.usable(opValidate); err != nil {
		return err
	}

	resp, err := c.validateAccessToken(ctx, tr, t.accessToken)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			t.state = TokenStateInvalid
			c.auditor.LogValidationFailed(userID, string(t.clientID), KindInvalidToken.String())
		}
		return err
	}

	if ClientID(resp.ClientID) != t.clientID {
		t.state = TokenStateInvalid
		c.auditor.LogValidationFailed(userID, string(t.clientID), "client_id_mismatch")
		return newError(KindInvalidToken, opValidate, "token was issued to another client")
	}
	if err := accept(resp); err != nil {
		t.state = TokenStateInvalid
		c.auditor.LogValidationFailed(userID, string(t.clientID), "identity_mismatch")
		return err
	}

	now := c.Now()
	t.scopes = resp.Scopes
	t.expiresAt, t.neverExpires = expiry(now, resp.ExpiresIn)
	t.validated = true
	t.state = TokenStateActive

	instrumentation.AddTokenAttributes(span, util.Fingerprint(t.accessToken.Secret()), resp.ExpiresIn)
	c.logger.Debug("Token validated",
		"kind", t.kind,
		"client_id", t.clientID,
		"scopes", t.scopes.String(),
		"expires_in", resp.ExpiresIn,
		"fingerprint", util.Fingerprint(t.accessToken.Secret()))
	c.auditor.LogTokenValidated(resp.UserID, string(t.clientID), time.Duration(resp.ExpiresIn)*time.Second)
	return nil
}

// refresh exchanges the refresh token. On success the access token, expiry and
// scopes are replaced, and the refresh token too when the provider rotated it.
// A rejected refresh token leaves the token in TokenStateNeedsReauth; any other
// failure leaves every field untouched.
func (t *tokenCore) refresh(ctx context.Context, tr transport.Transport, userID string) (err error) {
	c := t.client
	ctx, span := c.startSpan(ctx, opRefresh, t.clientID, t.kind)
	defer span.End()
	rotated := false
	defer func() {
		c.finishSpan(ctx, span, opRefresh, err)
		c.inst.Metrics().RecordTokenRefreshed(ctx, string(t.kind), err == nil, rotated)
	}()

	if err := t.usable(opRefresh); err != nil {
		return err
	}
	if t.refreshToken.IsEmpty() {
		return newError(KindNoRefreshToken, opRefresh, "token holds no refresh token")
	}

	resp, err := c.refreshAccessToken(ctx, tr, t.clientID, t.clientSecret, t.refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshFailed) {
			t.state = TokenStateNeedsReauth
			c.auditor.LogRefreshFailed(userID, string(t.clientID), KindRefreshFailed.String())
		}
		return err
	}

	now := c.Now()
	t.accessToken = NewAccessToken(resp.AccessToken)
	if resp.RefreshToken != "" {
		rotated = resp.RefreshToken != t.refreshToken.Secret()
		t.refreshToken = NewRefreshToken(resp.RefreshToken)
	}
	t.expiresAt, t.neverExpires = expiry(now, resp.ExpiresIn)
	if resp.Scope != nil {
		t.scopes = *resp.Scope
	}
	t.state = TokenStateActive

	instrumentation.AddTokenAttributes(span, util.Fingerprint(t.accessToken.Secret()), resp.ExpiresIn)
	c.logger.Info("Token refreshed",
		"kind", t.kind,
		"client_id", t.clientID,
		"rotated", rotated,
		"expires_in", resp.ExpiresIn,
		"fingerprint", util.Fingerprint(t.accessToken.Secret()))
	c.auditor.LogTokenRefreshed(userID, string(t.clientID), rotated)
	return nil
}

// revoke calls the revocation endpoint and marks the token revoked whatever
// the outcome. Transport and provider failures are still returned.
func (t *tokenCore) revoke(ctx context.Context, tr transport.Transport, userID string) (err error) {
	c := t.client
	ctx, span := c.startSpan(ctx, opRevoke, t.clientID, t.kind)
	defer span.End()
	defer func() {
		c.finishSpan(ctx, span, opRevoke, err)
	}()

	if t.state == TokenStateRevoked {
		return newError(KindTokenUnusable, opRevoke, "token was revoked")
	}

	err = c.revokeAccessToken(ctx, tr, t.clientID, t.accessToken)
	t.state = TokenStateRevoked

	acknowledged := err == nil
	c.inst.Metrics().RecordTokenRevoked(ctx, string(t.kind), acknowledged)
	c.auditor.LogTokenRevoked(userID, string(t.clientID), string(t.kind), acknowledged)
	c.logger.Info("Token revoked",
		"kind", t.kind,
		"client_id", t.clientID,
		"acknowledged", acknowledged,
		"fingerprint", util.Fingerprint(t.accessToken.Secret()))
	return err
}
