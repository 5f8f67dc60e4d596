package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration *prom.HistogramVec
	stageResults  *prom.CounterVec
	buildDuration prom.Histogram
	buildOutcome  *prom.CounterVec
	records       prom.Gauge
	skippedFiles  prom.Counter
	pages         prom.Gauge
	rebuilds      *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg.
// A nil reg gets a fresh private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "formulary",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "formulary",
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "formulary",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "formulary",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		records: prom.NewGauge(prom.GaugeOpts{
			Namespace: "formulary",
			Name:      "records",
			Help:      "Package records in the last extracted record set",
		}),
		skippedFiles: prom.NewCounter(prom.CounterOpts{
			Namespace: "formulary",
			Name:      "skipped_files_total",
			Help:      "Definition files skipped during extraction",
		}),
		pages: prom.NewGauge(prom.GaugeOpts{
			Namespace: "formulary",
			Name:      "pages",
			Help:      "HTML pages written by the last render",
		}),
		rebuilds: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "formulary",
			Name:      "watch_rebuilds_total",
			Help:      "Rebuilds triggered by the change watcher",
		}, []string{"result"}),
	}
	reg.MustRegister(pr.stageDuration, pr.stageResults, pr.buildDuration, pr.buildOutcome,
		pr.records, pr.skippedFiles, pr.pages, pr.rebuilds)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) SetRecords(n int) {
	if p == nil {
		return
	}
	p.records.Set(float64(n))
}

func (p *PrometheusRecorder) AddSkippedFiles(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.skippedFiles.Add(float64(n))
}

func (p *PrometheusRecorder) SetPages(n int) {
	if p == nil {
		return
	}
	p.pages.Set(float64(n))
}

func (p *PrometheusRecorder) IncRebuild(result ResultLabel) {
	if p == nil {
		return
	}
	p.rebuilds.WithLabelValues(string(result)).Inc()
}
