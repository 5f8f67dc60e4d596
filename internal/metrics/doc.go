// Package metrics provides build and preview observability for formulary.
//
// Components receive a Recorder through dependency injection. NoopRecorder is the
// default and does nothing; PrometheusRecorder forwards to client_golang collectors
// registered on a caller-supplied registry:
//
//	reg := prometheus.NewRegistry()
//	orch := build.New(cfg, build.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//	mux.Handle("/_metrics", metrics.HTTPHandler(reg))
//
// The one-shot CLI commands (build, parse, render) keep the NoopRecorder; the
// serve command activates Prometheus when metrics.enabled is set.
package metrics
