package oauth

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// RedactedMarker is what every formatting path renders in place of a secret.
const RedactedMarker = "[redacted]"

// ClientID identifies a registered application. It is not secret.
type ClientID string

// String returns the client id
func (c ClientID) String() string { return string(c) }

// UserCode is the short code a user types on the device activation page.
// It is shown to the user and is not secret.
type UserCode string

// String returns the user code
func (c UserCode) String() string { return string(c) }

// secretValue holds a secret behind a pointer so that even reflection-driven
// formatting of an enclosing struct prints an address, never the value.
type secretValue struct {
	v *string
}

func newSecretValue(s string) secretValue {
	return secretValue{v: &s}
}

// Secret returns the raw value. It is the only way to obtain it.
func (s secretValue) Secret() string {
	if s.v == nil {
		return ""
	}
	return *s.v
}

// IsEmpty reports whether the secret is absent or empty.
func (s secretValue) IsEmpty() bool {
	return s.Secret() == ""
}

func (s secretValue) String() string   { return RedactedMarker }
func (s secretValue) GoString() string { return RedactedMarker }

// Format renders the redaction marker for every verb and flag.
func (s secretValue) Format(f fmt.State, _ rune) {
	_, _ = io.WriteString(f, RedactedMarker)
}

func (s secretValue) LogValue() slog.Value {
	return slog.StringValue(RedactedMarker)
}

func (s secretValue) MarshalJSON() ([]byte, error) {
	return []byte(`"` + RedactedMarker + `"`), nil
}

func (s secretValue) MarshalText() ([]byte, error) {
	return []byte(RedactedMarker), nil
}

// AccessToken is a bearer credential presented on every authenticated request.
type AccessToken struct{ secretValue }

// NewAccessToken wraps a raw access token
func NewAccessToken(s string) AccessToken { return AccessToken{newSecretValue(s)} }

// Equal reports whether both tokens hold the same value
func (t AccessToken) Equal(o AccessToken) bool { return t.Secret() == o.Secret() }

// Compare orders tokens by value
func (t AccessToken) Compare(o AccessToken) int { return strings.Compare(t.Secret(), o.Secret()) }

// RefreshToken is presented only to the token endpoint to obtain a new access token.
type RefreshToken struct{ secretValue }

// NewRefreshToken wraps a raw refresh token
func NewRefreshToken(s string) RefreshToken { return RefreshToken{newSecretValue(s)} }

// Equal reports whether both tokens hold the same value
func (t RefreshToken) Equal(o RefreshToken) bool { return t.Secret() == o.Secret() }

// Compare orders tokens by value
func (t RefreshToken) Compare(o RefreshToken) int { return strings.Compare(t.Secret(), o.Secret()) }

// ClientSecret authenticates a confidential client at the token endpoint.
type ClientSecret struct{ secretValue }

// NewClientSecret wraps a raw client secret
func NewClientSecret(s string) ClientSecret { return ClientSecret{newSecretValue(s)} }

// Equal reports whether both secrets hold the same value
func (t ClientSecret) Equal(o ClientSecret) bool { return t.Secret() == o.Secret() }

// Compare orders secrets by value
func (t ClientSecret) Compare(o ClientSecret) int { return strings.Compare(t.Secret(), o.Secret()) }

// AuthorizationCode is the one-time code returned to the redirect URL.
type AuthorizationCode struct{ secretValue }

// NewAuthorizationCode wraps a raw authorization code
func NewAuthorizationCode(s string) AuthorizationCode { return AuthorizationCode{newSecretValue(s)} }

// Equal reports whether both codes hold the same value
func (t AuthorizationCode) Equal(o AuthorizationCode) bool { return t.Secret() == o.Secret() }

// Compare orders codes by value
func (t AuthorizationCode) Compare(o AuthorizationCode) int {
	return strings.Compare(t.Secret(), o.Secret())
}

// CSRFState is the nonce echoed back by the provider on redirect.
type CSRFState struct{ secretValue }

// NewCSRFState wraps a raw state value
func NewCSRFState(s string) CSRFState { return CSRFState{newSecretValue(s)} }

// Equal reports whether both states hold the same value
func (t CSRFState) Equal(o CSRFState) bool { return t.Secret() == o.Secret() }

// Compare orders states by value
func (t CSRFState) Compare(o CSRFState) int { return strings.Compare(t.Secret(), o.Secret()) }

// DeviceCode identifies a pending device authorization. Only the polling
// client may know it.
type DeviceCode struct{ secretValue }

// NewDeviceCode wraps a raw device code
func NewDeviceCode(s string) DeviceCode { return DeviceCode{newSecretValue(s)} }

// Equal reports whether both codes hold the same value
func (t DeviceCode) Equal(o DeviceCode) bool { return t.Secret() == o.Secret() }

// Compare orders codes by value
func (t DeviceCode) Compare(o DeviceCode) int { return strings.Compare(t.Secret(), o.Secret()) }

// PKCEVerifier is the RFC 7636 code verifier kept until the code exchange.
type PKCEVerifier struct{ secretValue }

// NewPKCEVerifier wraps a raw verifier
func NewPKCEVerifier(s string) PKCEVerifier { return PKCEVerifier{newSecretValue(s)} }

// Equal reports whether both verifiers hold the same value
func (t PKCEVerifier) Equal(o PKCEVerifier) bool { return t.Secret() == o.Secret() }

// Compare orders verifiers by value
func (t PKCEVerifier) Compare(o PKCEVerifier) int { return strings.Compare(t.Secret(), o.Secret()) }
