// Package security provides the security helpers of the token lifecycle engine:
// audit logging, expiry arithmetic, snapshot sealing and random flow material.
//
// # Audit Logging
//
// The Auditor records token lifecycle events (issue, validate, refresh, revoke,
// CSRF mismatch) through log/slog. User identifiers are logged as truncated
// SHA-256 hashes, never in clear.
//
//	auditor := security.NewAuditor(logger, true)
//	auditor.LogTokenRefreshed(userID, clientID, rotated)
//
// # Sealing
//
// Sealer encrypts token snapshots at rest with XChaCha20-Poly1305. The client id
// is passed as associated data so a snapshot cannot be restored under another
// client.
//
//	key, _ := security.GenerateKey()
//	sealer, _ := security.NewSealer(key)
//	blob, _ := sealer.Seal(snapshotJSON, []byte(clientID))
//
// Keys should come from a secret manager. KeyFromBase64 decodes keys stored in
// environment variables.
//
// # Flow Material
//
// GenerateState and GeneratePKCE produce CSRF nonces and S256 PKCE pairs for the
// authorization redirect. NewOperationID returns a correlation id attached to the
// logs, spans and audit events of one engine operation.
package security
