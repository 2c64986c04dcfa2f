package security

import "time"

// IsElapsed reports whether expiresAt is at or before now.
// A zero expiresAt never elapses.
func IsElapsed(now, expiresAt time.Time) bool {
	if expiresAt.IsZero() {
		return false
	}
	return !now.Before(expiresAt)
}

// IsExpiringSoon reports whether expiresAt falls within threshold of now.
// A zero expiresAt never expires.
func IsExpiringSoon(now, expiresAt time.Time, threshold time.Duration) bool {
	if expiresAt.IsZero() {
		return false
	}
	return !now.Add(threshold).Before(expiresAt)
}

// Remaining returns the time left until expiresAt, never negative.
// A zero expiresAt yields zero.
func Remaining(now, expiresAt time.Time) time.Duration {
	if expiresAt.IsZero() {
		return 0
	}
	if d := expiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}
