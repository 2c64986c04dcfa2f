package oauth

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/giantswarm/twitch-oauth/security"
)

// Snapshot is the persistable form of a token. The engine does not store
// tokens; callers own persistence and may seal snapshots with SealSnapshot.
//
// A Snapshot holds raw secrets. It never includes the client secret, which the
// caller supplies again on restore. String and LogValue are redacted.
type Snapshot struct {
	Kind         TokenKind `json:"kind"`
	ClientID     ClientID  `json:"client_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Scopes       ScopeSet  `json:"scopes"`
	ExpiresAt    time.Time `json:"expires_at,omitzero"`
	NeverExpires bool      `json:"never_expires,omitempty"`
	Validated    bool      `json:"validated,omitempty"`
	Invalid      bool      `json:"invalid,omitempty"`
	Login        string    `json:"login,omitempty"`
	UserID       string    `json:"user_id,omitempty"`
}

// String returns a description without secrets
func (s Snapshot) String() string {
	return fmt.Sprintf("Snapshot{kind: %s, client_id: %s, user_id: %s}", s.Kind, s.ClientID, s.UserID)
}

// GoString returns a description without secrets
func (s Snapshot) GoString() string { return s.String() }

// LogValue renders the snapshot for slog without secrets
func (s Snapshot) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("kind", string(s.Kind)),
		slog.String("client_id", string(s.ClientID)),
		slog.String("user_id", s.UserID),
	)
}

// SnapshotToken captures tok. Revoked tokens and tokens that need
// re-authentication cannot be captured.
func SnapshotToken(tok Token) (Snapshot, error) {
	t := tok.core()
	if err := t.usable("snapshot"); err != nil {
		return Snapshot{}, err
	}
	s := Snapshot{
		Kind:         t.kind,
		ClientID:     t.clientID,
		AccessToken:  t.accessToken.Secret(),
		RefreshToken: t.refreshToken.Secret(),
		Scopes:       t.scopes,
		ExpiresAt:    t.expiresAt,
		NeverExpires: t.neverExpires,
		Validated:    t.validated,
		Invalid:      t.state == TokenStateInvalid,
	}
	if u, ok := tok.(*UserToken); ok {
		s.Login = u.login
		s.UserID = u.userID
	}
	return s, nil
}

// Snapshot captures the token for persistence
func (t *UserToken) Snapshot() (Snapshot, error) { return SnapshotToken(t) }

// Snapshot captures the token for persistence
func (t *AppToken) Snapshot() (Snapshot, error) { return SnapshotToken(t) }

func (c *Client) restoreCore(s Snapshot, kind TokenKind, secret ClientSecret) (tokenCore, error) {
	const op = "restore"
	if s.Kind != kind {
		return tokenCore{}, configError(op, "snapshot holds a %s token, not a %s token", s.Kind, kind)
	}
	if s.ClientID == "" {
		return tokenCore{}, configError(op, "snapshot has no client id")
	}
	if s.AccessToken == "" {
		return tokenCore{}, configError(op, "snapshot has no access token")
	}
	t := tokenCore{
		client:       c,
		kind:         kind,
		accessToken:  NewAccessToken(s.AccessToken),
		clientID:     s.ClientID,
		clientSecret: secret,
		scopes:       s.Scopes,
		expiresAt:    s.ExpiresAt,
		neverExpires: s.NeverExpires,
		validated:    s.Validated,
	}
	if s.RefreshToken != "" {
		t.refreshToken = NewRefreshToken(s.RefreshToken)
	}
	if s.Invalid {
		t.state = TokenStateInvalid
	}
	return t, nil
}

// RestoreUserToken rebuilds a user token from a snapshot. secret may be empty.
func (c *Client) RestoreUserToken(s Snapshot, secret ClientSecret) (*UserToken, error) {
	core, err := c.restoreCore(s, TokenKindUser, secret)
	if err != nil {
		return nil, err
	}
	return &UserToken{tokenCore: core, login: s.Login, userID: s.UserID}, nil
}

// RestoreAppToken rebuilds an app token from a snapshot. secret may be empty.
func (c *Client) RestoreAppToken(s Snapshot, secret ClientSecret) (*AppToken, error) {
	core, err := c.restoreCore(s, TokenKindApp, secret)
	if err != nil {
		return nil, err
	}
	return &AppToken{core}, nil
}

// SealSnapshot encodes s and encrypts it with sealer. The client id is bound
// as associated data.
func SealSnapshot(sealer *security.Sealer, s Snapshot) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	sealed, err := sealer.Seal(data, []byte(s.ClientID))
	if err != nil {
		return "", fmt.Errorf("failed to seal snapshot: %w", err)
	}
	return sealed, nil
}

// OpenSnapshot decrypts a snapshot sealed for clientID.
func OpenSnapshot(sealer *security.Sealer, clientID ClientID, sealed string) (Snapshot, error) {
	data, err := sealer.Open(sealed, []byte(clientID))
	if err != nil {
		return Snapshot{}, err
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if s.ClientID != clientID {
		return Snapshot{}, fmt.Errorf("snapshot client id does not match")
	}
	return s, nil
}
