// Package instrumentation provides OpenTelemetry (OTEL) instrumentation for the
// twitch-oauth token lifecycle engine.
//
// It records:
//   - Metrics: provider round-trips, token issue/validate/refresh/revoke outcomes,
//     CSRF mismatches and device code polls
//   - Traces: one span per engine operation and per transport round-trip
//
// Credential values are never recorded; see the attribute constants in tracing.go.
//
// # Quick Start
//
//	inst, err := instrumentation.New(instrumentation.Config{
//		ServiceName:    "my-chat-bot",
//		ServiceVersion: "1.0.0",
//		Enabled:        true,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer inst.Shutdown(context.Background())
//
//	client, err := oauth.New(oauth.Config{Instrumentation: inst})
//
// # Custom Providers
//
// Exporters are configured by the caller. Pass your own providers to export data:
//
//	inst, err := instrumentation.New(instrumentation.Config{
//		Enabled:        true,
//		TracerProvider: myTracerProvider,
//		MeterProvider:  myMeterProvider,
//	})
//
// A nil *Instrumentation is valid everywhere and records nothing.
package instrumentation
