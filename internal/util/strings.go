// Package util provides common utility functions used across the twitch-oauth module.
// These utilities handle string manipulation and diagnostics formatting that don't fit
// into domain-specific packages.
package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

// MaxProviderMessageLength bounds provider supplied messages carried in errors and logs.
const MaxProviderMessageLength = 256

// SafeTruncate safely truncates a string to at most maxLen bytes without panicking.
// Returns the original string if it's shorter than maxLen, otherwise returns
// the longest prefix of at most maxLen bytes that does not split a UTF-8 rune.
//
// If maxLen is negative, it's treated as 0 and returns an empty string.
//
// Example:
//
//	SafeTruncate("invalid refresh token", 7) // Returns: "invalid"
//	SafeTruncate("short", 10)                // Returns: "short"
//	SafeTruncate("test", -1)                 // Returns: ""
//	SafeTruncate("日本語", 4)                   // Returns: "日"
func SafeTruncate(s string, maxLen int) string {
	if maxLen < 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	for maxLen > 0 && !utf8.RuneStart(s[maxLen]) {
		maxLen--
	}
	return s[:maxLen]
}

// ProviderMessage normalizes a message taken from a provider error body so it can be
// embedded in an error string: surrounding whitespace is trimmed, control characters
// are replaced with spaces and the result is truncated to MaxProviderMessageLength.
func ProviderMessage(msg string) string {
	msg = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, strings.TrimSpace(msg))
	return SafeTruncate(msg, MaxProviderMessageLength)
}

// Fingerprint returns a short, stable, non-reversible identifier for a secret value.
// It is the only representation of access tokens, refresh tokens and similar values
// that may appear in logs, traces or audit events.
//
// Example:
//
//	Fingerprint("")        // Returns: "<empty>"
//	Fingerprint("abc")     // Returns: "ba7816bf8f01cfea"
func Fingerprint(secret string) string {
	if secret == "" {
		return "<empty>"
	}
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])[:16]
}
