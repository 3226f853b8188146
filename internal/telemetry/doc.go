// Package telemetry sets up OpenTelemetry tracing and metrics for
// staticpatcher.
//
// Telemetry is off by default. When enabled, spans and counters are pushed
// over OTLP to a collector, using gRPC or http/protobuf:
//
//	telemetry:
//	  enabled: true
//	  endpoint: localhost:4317
//	  protocol: grpc
//	  sampling:
//	    rate: 0.25
//	  metrics:
//	    export_interval: 15s
//
// The planner opens one "patcher.plan" span per run, and the classifiers
// count resolutions by strategy and cache hits:
//
//	tel, err := telemetry.New(ctx, &cfg.Telemetry)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//	metrics, err := classifier.NewMetrics(tel.Meter(classifier.InstrumentationName))
//
// A collector that cannot be reached or configured never fails a run. The
// instance reports the failure through Health and falls back to the global
// providers.
//
// NewTestTelemetry records spans and metrics in memory for tests.
package telemetry
