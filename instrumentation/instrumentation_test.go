package instrumentation

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name: "disabled",
			config: Config{
				Enabled: false,
			},
		},
		{
			name: "with service name and version",
			config: Config{
				Enabled:        true,
				ServiceName:    "test-service",
				ServiceVersion: "1.0.0",
			},
		},
		{
			name: "empty service name gets default",
			config: Config{
				Enabled: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			defer func() { _ = inst.Shutdown(context.Background()) }()

			if inst.Meter("engine") == nil {
				t.Error("Meter('engine') returned nil")
			}
			if inst.Tracer("engine") == nil {
				t.Error("Tracer('engine') returned nil")
			}
			if inst.Metrics() == nil {
				t.Error("Metrics() returned nil")
			}
			if inst.TracerProvider() == nil {
				t.Error("TracerProvider() returned nil")
			}
			if inst.MeterProvider() == nil {
				t.Error("MeterProvider() returned nil")
			}
			if inst.Resource() == nil {
				t.Error("Resource() returned nil")
			}
		})
	}
}

func TestNew_DefaultServiceName(t *testing.T) {
	inst, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if inst.config.ServiceName != DefaultServiceName {
		t.Errorf("ServiceName = %q, want %q", inst.config.ServiceName, DefaultServiceName)
	}
	if inst.config.ServiceVersion != DefaultServiceVersion {
		t.Errorf("ServiceVersion = %q, want %q", inst.config.ServiceVersion, DefaultServiceVersion)
	}
}

func TestNew_CustomTracerProvider(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	inst, err := New(Config{Enabled: true, TracerProvider: tp})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, span := inst.Tracer("engine").Start(context.Background(), "validate")
	SetSpanSuccess(span)
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(ended))
	}
	if ended[0].Name() != "validate" {
		t.Errorf("span name = %q, want validate", ended[0].Name())
	}
	if got := ended[0].InstrumentationScope().Name; got != instrumentationPrefix+"engine" {
		t.Errorf("instrumentation scope = %q", got)
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	inst, err := New(Config{Enabled: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := inst.Shutdown(context.Background()); err != nil {
		t.Errorf("first Shutdown() error = %v", err)
	}
	if err := inst.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}

func TestNilInstrumentation(t *testing.T) {
	var inst *Instrumentation

	if inst.Meter("engine") == nil {
		t.Error("nil Meter() returned nil")
	}
	if inst.Tracer("engine") == nil {
		t.Error("nil Tracer() returned nil")
	}
	if inst.Metrics() != nil {
		t.Error("nil Metrics() should be nil")
	}
	if err := inst.Shutdown(context.Background()); err != nil {
		t.Errorf("nil Shutdown() error = %v", err)
	}

	// nil metrics must be safe to record on
	ctx := context.Background()
	m := inst.Metrics()
	m.RecordProviderRequest(ctx, "validate", 200, 1.5)
	m.RecordProviderError(ctx, "refresh", "refresh_failed")
	m.RecordTokenIssued(ctx, "client_credentials", "app")
	m.RecordTokenValidated(ctx, "user", true)
	m.RecordTokenRefreshed(ctx, "user", true, true)
	m.RecordTokenRevoked(ctx, "user", false)
	m.RecordCSRFMismatch(ctx, "authorization_code")
	m.RecordDevicePoll(ctx, "pending")
}
