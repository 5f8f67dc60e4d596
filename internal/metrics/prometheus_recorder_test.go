package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("extract", 150*time.Millisecond)
	pr.ObserveBuildDuration(500 * time.Millisecond)
	pr.IncStageResult("extract", ResultSuccess)
	pr.IncBuildOutcome(BuildOutcomeSuccess)
	pr.SetRecords(12)
	pr.AddSkippedFiles(2)
	pr.SetPages(14)
	pr.IncRebuild(ResultFatal)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatalf("expected metrics, got none")
	}
	if got := testutil.ToFloat64(pr.records); got != 12 {
		t.Errorf("records gauge = %v, want 12", got)
	}
	if got := testutil.ToFloat64(pr.skippedFiles); got != 2 {
		t.Errorf("skipped counter = %v, want 2", got)
	}
	if got := testutil.ToFloat64(pr.rebuilds.WithLabelValues("fatal")); got != 1 {
		t.Errorf("rebuild counter = %v, want 1", got)
	}
}

func TestPrometheusRecorderNilSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.ObserveStageDuration("render", time.Second)
	pr.IncRebuild(ResultSuccess)
	pr.SetPages(1)
}

func TestHTTPHandlerServesRegistry(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).SetPages(3)

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/_metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "formulary_pages 3") {
		t.Errorf("expected pages gauge in scrape output, got:\n%s", rec.Body.String())
	}
}
