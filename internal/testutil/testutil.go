package testutil

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

// MockTime provides a controllable time source for deterministic testing.
// Sleep advances the mock time instead of blocking.
type MockTime struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

// NewMockTime creates a new mock time provider
func NewMockTime(t time.Time) *MockTime {
	return &MockTime{now: t}
}

// Now returns the current mock time
func (m *MockTime) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Sleep advances the mock time by d, or returns ctx.Err() if ctx is done.
func (m *MockTime) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sleeps = append(m.sleeps, d)
	m.now = m.now.Add(d)
	return nil
}

// Sleeps returns the durations passed to Sleep, in order.
func (m *MockTime) Sleeps() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.sleeps...)
}

// Advance moves the mock time forward by the given duration
func (m *MockTime) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Set sets the mock time to a specific value
func (m *MockTime) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// GenerateRandomString generates a random base64url string of the given length
func GenerateRandomString(length int) string {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)[:length]
}

// TokenJSON builds a token endpoint response body.
// refreshToken is omitted when empty; scopes are encoded as an array.
func TokenJSON(accessToken, refreshToken string, expiresIn int, scopes ...string) string {
	body := map[string]any{
		"access_token": accessToken,
		"expires_in":   expiresIn,
		"token_type":   "bearer",
	}
	if refreshToken != "" {
		body["refresh_token"] = refreshToken
	}
	if len(scopes) > 0 {
		body["scope"] = scopes
	}
	return mustJSON(body)
}

// ValidateJSON builds a validation endpoint response body.
// login and userID are omitted when empty (app tokens).
func ValidateJSON(clientID, login, userID string, expiresIn int, scopes ...string) string {
	if scopes == nil {
		scopes = []string{}
	}
	body := map[string]any{
		"client_id":  clientID,
		"scopes":     scopes,
		"expires_in": expiresIn,
	}
	if login != "" {
		body["login"] = login
	}
	if userID != "" {
		body["user_id"] = userID
	}
	return mustJSON(body)
}

// ErrorJSON builds a provider error body.
func ErrorJSON(status int, message string) string {
	return mustJSON(map[string]any{
		"status":  status,
		"message": message,
	})
}

// DeviceCodeJSON builds a device authorization response body.
func DeviceCodeJSON(deviceCode, userCode, verificationURI string, expiresIn, interval int) string {
	return mustJSON(map[string]any{
		"device_code":      deviceCode,
		"user_code":        userCode,
		"verification_uri": verificationURI,
		"expires_in":       expiresIn,
		"interval":         interval,
	})
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// AssertTimeEqual fails the test if got and want differ by more than tolerance
func AssertTimeEqual(t *testing.T, got, want time.Time, tolerance time.Duration) {
	t.Helper()
	diff := got.Sub(want)
	if diff < 0 {
		diff = -diff
	}
	if diff > tolerance {
		t.Errorf("time mismatch: got %v, want %v (diff %v > tolerance %v)", got, want, diff, tolerance)
	}
}
