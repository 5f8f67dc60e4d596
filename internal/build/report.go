package build

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"git.home.luguber.info/inful/formulary/internal/extract"
	"git.home.luguber.info/inful/formulary/internal/sitecheck"
	"git.home.luguber.info/inful/formulary/internal/version"
)

// Stage names used in reports, logs and metrics.
const (
	StageExtract = "extract"
	StageData    = "data"
	StageRender  = "render"
	StageCheck   = "check"
)

// Status represents the outcome of a pipeline run.
type Status string

const (
	// StatusSuccess indicates every stage completed cleanly.
	StatusSuccess Status = "success"
	// StatusWarning indicates completion with skipped files or broken links.
	StatusWarning Status = "warning"
	// StatusFailed indicates a fatal error.
	StatusFailed Status = "failed"
	// StatusCanceled indicates the context was canceled.
	StatusCanceled Status = "canceled"
)

// IsSuccess reports whether output was produced.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess || s == StatusWarning
}

// Report describes one pipeline run. It is written beside the data file, never
// into the site.
type Report struct {
	SchemaVersion int                    `json:"schemaVersion"`
	BuildID       string                 `json:"buildId"`
	Mode          string                 `json:"mode"`
	Version       string                 `json:"version"`
	Start         time.Time              `json:"start"`
	End           time.Time              `json:"end"`
	DurationMS    float64                `json:"durationMs"`
	Status        Status                 `json:"status"`
	StageMS       map[string]float64     `json:"stageDurationsMs"`
	Extract       *extract.Stats         `json:"extract,omitempty"`
	Records       int                    `json:"records"`
	Pages         int                    `json:"pages"`
	Assets        int                    `json:"assets"`
	LinksChecked  int                    `json:"linksChecked"`
	BrokenLinks   []sitecheck.BrokenLink `json:"brokenLinks,omitempty"`
	Error         string                 `json:"error,omitempty"`
}

func newReport(id, mode string, start time.Time) *Report {
	return &Report{
		SchemaVersion: 1,
		BuildID:       id,
		Mode:          mode,
		Version:       version.Version,
		Start:         start,
		StageMS:       make(map[string]float64),
	}
}

func (r *Report) finish(end time.Time) {
	r.End = end
	r.DurationMS = float64(end.Sub(r.Start).Microseconds()) / 1000
}

// Summary is a one-line human description of the run.
func (r *Report) Summary() string {
	switch r.Mode {
	case ModeParse:
		return plural(r.Records, "record") + " extracted"
	case ModeRender:
		return plural(r.Pages, "page") + " rendered"
	default:
		return plural(r.Pages, "page") + " built from " + plural(r.Records, "record")
	}
}

func plural(n int, unit string) string {
	if n != 1 {
		unit += "s"
	}
	return strconv.Itoa(n) + " " + unit
}

// WriteReport stores r as indented JSON at path.
func WriteReport(path string, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// ReadReport loads a report written by WriteReport.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
