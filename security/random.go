package security

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// PKCEMethodS256 is the only PKCE challenge method this module issues.
const PKCEMethodS256 = "S256"

// operationIDContextKey is the context key for storing operation ids
type operationIDContextKey struct{}

// GenerateState returns a fresh CSRF nonce for an authorization redirect.
// It is a URL-safe, base64-encoded string with 256 bits of entropy.
func GenerateState() string {
	return oauth2.GenerateVerifier()
}

// GeneratePKCE returns a new PKCE verifier and its S256 challenge (RFC 7636).
func GeneratePKCE() (verifier, challenge string) {
	verifier = oauth2.GenerateVerifier()
	return verifier, oauth2.S256ChallengeFromVerifier(verifier)
}

// NewOperationID generates a correlation id for one engine operation.
// Operation ids tie together log lines, audit events and spans of a single
// validate, refresh, revoke or exchange call.
func NewOperationID() string {
	return uuid.NewString()
}

// WithOperationID adds an operation id to the context
func WithOperationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, operationIDContextKey{}, id)
}

// OperationIDFromContext retrieves the operation id from the context.
// Returns "" when none was set.
func OperationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(operationIDContextKey{}).(string); ok {
		return id
	}
	return ""
}
