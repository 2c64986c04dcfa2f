package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"github.com/giantswarm/twitch-oauth/instrumentation"
	"github.com/giantswarm/twitch-oauth/security"
)

// DefaultBaseURL is the provider's OAuth2 base URL.
const DefaultBaseURL = "https://id.twitch.tv/oauth2/"

// Environment variables overriding the endpoints, e.g. to point the engine at a
// mock server.
const (
	EnvBaseURL     = "TWITCH_OAUTH2_URL"
	EnvAuthURL     = "TWITCH_OAUTH2_AUTH_URL"
	EnvTokenURL    = "TWITCH_OAUTH2_TOKEN_URL"
	EnvValidateURL = "TWITCH_OAUTH2_VALIDATE_URL"
	EnvRevokeURL   = "TWITCH_OAUTH2_REVOKE_URL"
	EnvDeviceURL   = "TWITCH_OAUTH2_DEVICE_URL"
)

// Endpoints holds the provider URLs.
// The embedded oauth2.Endpoint carries the authorize, token and device URLs.
type Endpoints struct {
	oauth2.Endpoint

	// ValidateURL is the token introspection endpoint (GET)
	ValidateURL string

	// RevokeURL is the revocation endpoint (POST)
	RevokeURL string
}

// EndpointsFromBase derives all endpoints from a base URL such as DefaultBaseURL.
func EndpointsFromBase(base string) Endpoints {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return Endpoints{
		Endpoint: oauth2.Endpoint{
			AuthURL:       base + "authorize",
			TokenURL:      base + "token",
			DeviceAuthURL: base + "device",
			AuthStyle:     oauth2.AuthStyleInParams,
		},
		ValidateURL: base + "validate",
		RevokeURL:   base + "revoke",
	}
}

// DefaultEndpoints returns the production endpoints.
func DefaultEndpoints() Endpoints {
	return EndpointsFromBase(DefaultBaseURL)
}

// EndpointsFromEnv returns the production endpoints with environment overrides
// applied: TWITCH_OAUTH2_URL replaces the base, per-endpoint variables win over it.
func EndpointsFromEnv() Endpoints {
	base := DefaultBaseURL
	if v, ok := os.LookupEnv(EnvBaseURL); ok && v != "" {
		base = v
	}
	e := EndpointsFromBase(base)

	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	override(&e.AuthURL, EnvAuthURL)
	override(&e.TokenURL, EnvTokenURL)
	override(&e.ValidateURL, EnvValidateURL)
	override(&e.RevokeURL, EnvRevokeURL)
	override(&e.DeviceAuthURL, EnvDeviceURL)
	return e
}

// Validate checks every endpoint is an absolute http(s) URL.
func (e Endpoints) Validate() error {
	for name, raw := range map[string]string{
		"auth":     e.AuthURL,
		"token":    e.TokenURL,
		"validate": e.ValidateURL,
		"revoke":   e.RevokeURL,
		"device":   e.DeviceAuthURL,
	} {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("%s endpoint: %w", name, err)
		}
		if (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			return fmt.Errorf("%s endpoint must be an absolute http(s) URL, got %q", name, raw)
		}
	}
	return nil
}

// Clock supplies time to the engine. Tests inject a controllable clock.
type Clock interface {
	Now() time.Time

	// Sleep blocks for d or until ctx is done, returning ctx.Err() in that case.
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

// Config holds the engine configuration
type Config struct {
	// Endpoints are the provider URLs.
	// Default: EndpointsFromEnv()
	Endpoints Endpoints

	// Logger for structured logging (optional, uses default if not provided)
	Logger *slog.Logger

	// Clock is the time source (optional, uses the wall clock if not provided)
	Clock Clock

	// Instrumentation provides tracing and metrics (optional, nil disables them)
	Instrumentation *instrumentation.Instrumentation

	// EnableAuditLogging logs token lifecycle events through Logger.
	// User ids are hashed.
	EnableAuditLogging bool
}

// DefaultConfig returns a configuration with environment-aware endpoints,
// the default logger and the wall clock.
func DefaultConfig() Config {
	return Config{
		Endpoints: EndpointsFromEnv(),
		Logger:    slog.Default(),
		Clock:     SystemClock(),
	}
}

// applyDefaults fills in zero-valued fields
func (c *Config) applyDefaults() {
	if c.Endpoints == (Endpoints{}) {
		c.Endpoints = EndpointsFromEnv()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Clock == nil {
		c.Clock = SystemClock()
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if err := c.Endpoints.Validate(); err != nil {
		return configError("config", "%v", err)
	}
	return nil
}

// Client is the shared, immutable context of every token and flow: endpoints,
// clock, logger, instrumentation and auditor. It is safe for concurrent use.
type Client struct {
	endpoints Endpoints
	logger    *slog.Logger
	clock     Clock
	inst      *instrumentation.Instrumentation
	auditor   *security.Auditor
	tracer    trace.Tracer
}

// New creates a client from cfg, applying defaults to zero-valued fields.
func New(cfg Config) (*Client, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var auditor *security.Auditor
	if cfg.EnableAuditLogging {
		auditor = security.NewAuditor(cfg.Logger, true)
	}

	return &Client{
		endpoints: cfg.Endpoints,
		logger:    cfg.Logger,
		clock:     cfg.Clock,
		inst:      cfg.Instrumentation,
		auditor:   auditor,
		tracer:    cfg.Instrumentation.Tracer("engine"),
	}, nil
}

// Endpoints returns the provider URLs in use
func (c *Client) Endpoints() Endpoints { return c.endpoints }

// Now returns the client's current time
func (c *Client) Now() time.Time { return c.clock.Now() }
