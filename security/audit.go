package security

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"
)

// Audit event types
const (
	EventTokenIssued       = "token_issued"
	EventTokenValidated    = "token_validated"
	EventValidationFailed  = "validation_failed"
	EventTokenRefreshed    = "token_refreshed"
	EventRefreshFailed     = "refresh_failed"
	EventTokenRevoked      = "token_revoked"
	EventCSRFMismatch      = "csrf_mismatch"
	EventDeviceCodeExpired = "device_code_expired"
)

// Auditor handles token lifecycle event logging with PII protection.
// A nil *Auditor discards all events.
type Auditor struct {
	logger  *slog.Logger
	enabled bool
}

// NewAuditor creates a new security auditor
func NewAuditor(logger *slog.Logger, enabled bool) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{
		logger:  logger,
		enabled: enabled,
	}
}

// Event represents a security audit event
type Event struct {
	Type      string
	UserID    string
	ClientID  string
	Details   map[string]any
	Timestamp time.Time
}

// LogEvent logs a security event with hashed PII
func (a *Auditor) LogEvent(event Event) {
	if a == nil || !a.enabled {
		return
	}

	event.Timestamp = time.Now()

	a.logger.Info("security_audit",
		"event_type", event.Type,
		"user_id_hash", hashForLogging(event.UserID),
		"client_id", event.ClientID,
		"details", event.Details,
		"timestamp", event.Timestamp,
	)
}

// LogTokenIssued logs when a grant flow produced a token
func (a *Auditor) LogTokenIssued(userID, clientID, grantType, scope string) {
	a.LogEvent(Event{
		Type:     EventTokenIssued,
		UserID:   userID,
		ClientID: clientID,
		Details: map[string]any{
			"grant_type": grantType,
			"scope":      scope,
		},
	})
}

// LogTokenValidated logs a successful validation round-trip
func (a *Auditor) LogTokenValidated(userID, clientID string, expiresIn time.Duration) {
	a.LogEvent(Event{
		Type:     EventTokenValidated,
		UserID:   userID,
		ClientID: clientID,
		Details: map[string]any{
			"expires_in_seconds": int64(expiresIn.Seconds()),
		},
	})
}

// LogValidationFailed logs a validation the provider rejected
func (a *Auditor) LogValidationFailed(userID, clientID, reason string) {
	a.LogEvent(Event{
		Type:     EventValidationFailed,
		UserID:   userID,
		ClientID: clientID,
		Details: map[string]any{
			"reason": reason,
		},
	})
}

// LogTokenRefreshed logs when a token is refreshed
func (a *Auditor) LogTokenRefreshed(userID, clientID string, rotated bool) {
	a.LogEvent(Event{
		Type:     EventTokenRefreshed,
		UserID:   userID,
		ClientID: clientID,
		Details: map[string]any{
			"rotated": rotated,
		},
	})
}

// LogRefreshFailed logs a refresh the provider rejected
func (a *Auditor) LogRefreshFailed(userID, clientID, reason string) {
	a.LogEvent(Event{
		Type:     EventRefreshFailed,
		UserID:   userID,
		ClientID: clientID,
		Details: map[string]any{
			"reason": reason,
		},
	})
}

// LogTokenRevoked logs when a token is revoked.
// acknowledged is false when the provider call failed.
func (a *Auditor) LogTokenRevoked(userID, clientID, tokenKind string, acknowledged bool) {
	a.LogEvent(Event{
		Type:     EventTokenRevoked,
		UserID:   userID,
		ClientID: clientID,
		Details: map[string]any{
			"token_kind":   tokenKind,
			"acknowledged": acknowledged,
		},
	})
}

// LogCSRFMismatch logs a redirect whose state did not match the issued nonce
func (a *Auditor) LogCSRFMismatch(clientID, flow string) {
	a.LogEvent(Event{
		Type:     EventCSRFMismatch,
		ClientID: clientID,
		Details: map[string]any{
			"flow": flow,
		},
	})
}

// LogDeviceCodeExpired logs a device flow that ran out of time
func (a *Auditor) LogDeviceCodeExpired(clientID string) {
	a.LogEvent(Event{
		Type:     EventDeviceCodeExpired,
		ClientID: clientID,
	})
}

// hashForLogging creates a SHA256 hash of sensitive data for logging
func hashForLogging(sensitive string) string {
	if sensitive == "" {
		return "<empty>"
	}
	hash := sha256.Sum256([]byte(sensitive))
	return hex.EncodeToString(hash[:])[:16]
}
