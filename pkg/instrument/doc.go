// Package instrument provides reactive.Instrumentation implementations
// backed by Prometheus and OpenTelemetry.
//
// Install one, or several combined with Multi, at startup:
//
//	prom := instrument.NewPrometheus(instrument.WithNamespace("myapp"))
//	otel := instrument.NewOpenTelemetry(instrument.WithTracerName("myapp"))
//	reactive.SetInstrumentation(instrument.Multi(prom, otel))
//
//	http.Handle("/metrics", promhttp.Handler())
package instrument
