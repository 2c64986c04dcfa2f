package oauth

import (
	"bytes"
	"errors"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/giantswarm/twitch-oauth/internal/testutil"
	"github.com/giantswarm/twitch-oauth/transport"
)

const (
	testBaseURL  = "https://id.twitch.tv/oauth2/"
	testClientID = ClientID("client-id-123")
	testRedirect = "https://example.com/callback"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// testEnv bundles a client with its clock and captured log output.
type testEnv struct {
	client *Client
	clock  *testutil.MockTime
	logs   *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := testutil.NewMockTime(testNow)
	var logs bytes.Buffer
	client, err := New(Config{
		Endpoints:          EndpointsFromBase(testBaseURL),
		Logger:             slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
		Clock:              clock,
		EnableAuditLogging: true,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &testEnv{client: client, clock: clock, logs: &logs}
}

func testSecret() ClientSecret { return NewClientSecret("client-secret-xyz") }

func requireKind(t *testing.T, err error, want ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("error %v is not an *Error", err)
	}
	if e.Kind != want {
		t.Fatalf("error kind = %s, want %s (%v)", e.Kind, want, err)
	}
}

func requireNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// requestForm decodes a recorded form-encoded request body.
func requestForm(t *testing.T, req *transport.Request) url.Values {
	t.Helper()
	if req == nil {
		t.Fatal("no request recorded")
	}
	v, err := url.ParseQuery(string(req.Body))
	if err != nil {
		t.Fatalf("failed to parse request body %q: %v", req.Body, err)
	}
	return v
}
