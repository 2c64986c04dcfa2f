package transport

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/twitch-oauth/instrumentation"
	"github.com/giantswarm/twitch-oauth/security"
)

type instrumented struct {
	next   Transport
	inst   *instrumentation.Instrumentation
	logger *slog.Logger
	tracer trace.Tracer
}

// Instrument wraps next so every round-trip records a client span, provider
// request metrics and a debug log line. Bodies and headers are never recorded.
//
// inst and logger may be nil.
func Instrument(next Transport, inst *instrumentation.Instrumentation, logger *slog.Logger) Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return &instrumented{
		next:   next,
		inst:   inst,
		logger: logger,
		tracer: inst.Tracer("transport"),
	}
}

func (t *instrumented) Do(ctx context.Context, req *Request) (*Response, error) {
	operation := OperationFromContext(ctx)
	operationID := security.OperationIDFromContext(ctx)
	endpoint := endpointOf(req.URL)

	ctx, span := t.tracer.Start(ctx, "provider."+operation, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	instrumentation.AddProviderAttributes(span, operation, operationID)

	start := time.Now()
	resp, err := t.next.Do(ctx, req)
	durationMs := float64(time.Since(start).Microseconds()) / 1000.0

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	instrumentation.AddHTTPAttributes(span, req.Method, endpoint, status)
	t.inst.Metrics().RecordProviderRequest(ctx, operation, status, durationMs)

	if err != nil {
		instrumentation.RecordError(span, err)
		t.logger.Debug("Provider request failed",
			"operation", operation,
			"operation_id", operationID,
			"endpoint", endpoint,
			"duration_ms", durationMs,
			"error", err)
		return nil, err
	}

	instrumentation.SetSpanSuccess(span)
	t.logger.Debug("Provider request completed",
		"operation", operation,
		"operation_id", operationID,
		"endpoint", endpoint,
		"status", status,
		"duration_ms", durationMs)
	return resp, nil
}

// endpointOf strips query and fragment so no credential in a URL reaches telemetry.
func endpointOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "invalid"
	}
	return u.Scheme + "://" + u.Host + u.Path
}
