// Package devtools serves an HTTP inspector for a running process.
//
// The server exposes a JSON snapshot of the dependency graph, Prometheus
// metrics, and a WebSocket stream of engine events:
//
//	srv := devtools.New(devtools.Options{Addr: "localhost:7070", Gatherer: prometheus.DefaultGatherer})
//	reactive.SetInstrumentation(instrument.Multi(prom, srv.Hub()))
//	err := srv.ListenAndServe(ctx)
package devtools
