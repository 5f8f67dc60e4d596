package metrics

import "time"

// testRecorder is a map-backed Recorder for conformance checks.
type testRecorder struct {
	stageDurations map[string]int
	stageResults   map[string]map[ResultLabel]int
	outcomes       map[BuildOutcomeLabel]int
}

func (t *testRecorder) ObserveStageDuration(stage string, _ time.Duration) { t.stageDurations[stage]++ }
func (t *testRecorder) IncStageResult(stage string, result ResultLabel) {
	m, ok := t.stageResults[stage]
	if !ok {
		m = map[ResultLabel]int{}
		t.stageResults[stage] = m
	}
	m[result]++
}
func (t *testRecorder) ObserveBuildDuration(time.Duration)        {}
func (t *testRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) { t.outcomes[outcome]++ }
func (t *testRecorder) SetRecords(int)                            {}
func (t *testRecorder) AddSkippedFiles(int)                       {}
func (t *testRecorder) SetPages(int)                              {}
func (t *testRecorder) IncRebuild(ResultLabel)                    {}

var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
	_ Recorder = (*testRecorder)(nil)
)
