package mock

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/giantswarm/twitch-oauth/transport"
)

func TestTransport_Script(t *testing.T) {
	connErr := errors.New("connection reset")
	m := New(
		JSON(http.StatusOK, `{"access_token":"abc"}`),
		Fail(connErr),
		JSON(http.StatusUnauthorized, map[string]any{"status": 401, "message": "invalid access token"}),
	)

	resp, err := m.Do(context.Background(), transport.NewRequest(http.MethodPost, "https://x/token", []byte("a=b")))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("first reply = %v, %v", resp, err)
	}

	if _, err := m.Do(context.Background(), transport.NewRequest(http.MethodGet, "https://x/validate", nil)); !errors.Is(err, connErr) {
		t.Fatalf("second reply error = %v, want %v", err, connErr)
	}

	resp, err = m.Do(context.Background(), transport.NewRequest(http.MethodGet, "https://x/validate", nil))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("third reply = %v, %v", resp, err)
	}
	if string(resp.Body) != `{"message":"invalid access token","status":401}` {
		t.Errorf("Body = %s", resp.Body)
	}

	if _, err := m.Do(context.Background(), transport.NewRequest(http.MethodGet, "https://x", nil)); !errors.Is(err, ErrNoReply) {
		t.Errorf("exhausted script error = %v, want ErrNoReply", err)
	}

	if m.CallCount() != 4 {
		t.Errorf("CallCount() = %d, want 4", m.CallCount())
	}
	if got := m.Requests()[0]; string(got.Body) != "a=b" {
		t.Errorf("first request body = %q", got.Body)
	}
	if m.LastRequest().URL != "https://x" {
		t.Errorf("LastRequest().URL = %q", m.LastRequest().URL)
	}
}

func TestTransport_DoFunc(t *testing.T) {
	m := New()
	m.DoFunc = func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		return &transport.Response{StatusCode: http.StatusNoContent}, nil
	}
	m.Push(Status(http.StatusAccepted))

	resp, _ := m.Do(context.Background(), transport.NewRequest(http.MethodGet, "https://x", nil))
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("scripted reply StatusCode = %d, want 202", resp.StatusCode)
	}
	resp, _ = m.Do(context.Background(), transport.NewRequest(http.MethodGet, "https://x", nil))
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("DoFunc StatusCode = %d, want 204", resp.StatusCode)
	}
	if m.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", m.Pending())
	}
}

func TestTransport_CanceledContext(t *testing.T) {
	m := New(Status(http.StatusOK))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.Do(ctx, transport.NewRequest(http.MethodGet, "https://x", nil)); !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v, want context.Canceled", err)
	}
	if m.Pending() != 1 {
		t.Errorf("canceled request consumed a reply")
	}
	if m.LastRequest() == nil {
		t.Error("canceled request was not recorded")
	}
}
