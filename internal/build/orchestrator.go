package build

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/formulary/internal/config"
	"git.home.luguber.info/inful/formulary/internal/extract"
	ferrors "git.home.luguber.info/inful/formulary/internal/foundation/errors"
	"git.home.luguber.info/inful/formulary/internal/logfields"
	"git.home.luguber.info/inful/formulary/internal/metrics"
	"git.home.luguber.info/inful/formulary/internal/observability"
	"git.home.luguber.info/inful/formulary/internal/recordset"
	"git.home.luguber.info/inful/formulary/internal/render"
	"git.home.luguber.info/inful/formulary/internal/sitecheck"
	"git.home.luguber.info/inful/formulary/internal/timefmt"
)

// Pipeline modes recorded in reports.
const (
	ModeBuild  = "build"
	ModeParse  = "parse"
	ModeRender = "render"
)

// Orchestrator runs pipeline stages against one configuration.
type Orchestrator struct {
	cfg      *config.Config
	recorder metrics.Recorder
	clock    timefmt.Clock
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder sets the metrics recorder (NoopRecorder by default).
func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithClock fixes the time used for generatedAt and relative time labels.
func WithClock(c timefmt.Clock) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.clock = c
		}
	}
}

// New creates an Orchestrator.
func New(cfg *config.Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		recorder: metrics.NoopRecorder{},
		clock:    timefmt.SystemClock{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Build runs extraction, the data file round trip, rendering and the link check.
func (o *Orchestrator) Build(ctx context.Context) (*Report, error) {
	return o.run(ctx, ModeBuild, func(ctx context.Context, r *Report) error {
		if err := o.parse(ctx, r); err != nil {
			return err
		}
		return o.render(ctx, r)
	})
}

// Parse runs extraction and writes the data file.
func (o *Orchestrator) Parse(ctx context.Context) (*Report, error) {
	return o.run(ctx, ModeParse, o.parse)
}

// Render renders the site from an existing data file.
func (o *Orchestrator) Render(ctx context.Context) (*Report, error) {
	return o.run(ctx, ModeRender, o.render)
}

func (o *Orchestrator) run(ctx context.Context, mode string, body func(context.Context, *Report) error) (*Report, error) {
	if o.cfg == nil {
		o.recorder.IncBuildOutcome(metrics.BuildOutcomeFailed)
		return nil, ferrors.ConfigError("config required").Build()
	}
	start := o.now()
	report := newReport(uuid.NewString(), mode, start)
	ctx = observability.WithBuildID(ctx, report.BuildID)
	observability.InfoContext(ctx, "Starting "+mode, slog.String("source", o.cfg.Resolve(o.cfg.Paths.Source)))

	err := classifyFailure(mode, body(ctx, report))
	report.finish(o.now())
	report.Status = statusFor(report, err)
	if err != nil {
		report.Error = err.Error()
	}

	o.recorder.ObserveBuildDuration(report.End.Sub(report.Start))
	o.recorder.IncBuildOutcome(outcomeLabel(report.Status))

	if werr := WriteReport(o.cfg.ReportPath(), report); werr != nil {
		observability.WarnContext(ctx, "Failed to write build report",
			logfields.Path(o.cfg.ReportPath()), logfields.Error(werr))
	}

	if err != nil {
		observability.ErrorContext(ctx, "Pipeline failed", slog.String("mode", mode), logfields.Error(err))
		return report, err
	}
	observability.InfoContext(ctx, "Pipeline finished",
		slog.String("mode", mode),
		slog.String("status", string(report.Status)),
		logfields.DurationMS(report.DurationMS))
	return report, nil
}

// stage times fn and records its outcome.
func (o *Orchestrator) stage(ctx context.Context, r *Report, name string, fn func(context.Context) error) error {
	ctx = observability.WithStage(ctx, name)
	start := o.now()
	err := fn(ctx)
	d := o.now().Sub(start)
	r.StageMS[name] = float64(d.Microseconds()) / 1000
	o.recorder.ObserveStageDuration(name, d)
	switch {
	case err == nil:
		o.recorder.IncStageResult(name, metrics.ResultSuccess)
		observability.DebugContext(ctx, "Stage complete", logfields.DurationMS(r.StageMS[name]))
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		o.recorder.IncStageResult(name, metrics.ResultCanceled)
	default:
		o.recorder.IncStageResult(name, metrics.ResultFatal)
	}
	return err
}

func (o *Orchestrator) parse(ctx context.Context, r *Report) error {
	var set *recordset.RecordSet
	err := o.stage(ctx, r, StageExtract, func(ctx context.Context) error {
		var stats extract.Stats
		var err error
		set, stats, err = o.extractor().Run(ctx)
		if err != nil {
			return err
		}
		r.Extract = &stats
		r.Records = set.Count
		o.recorder.SetRecords(set.Count)
		o.recorder.AddSkippedFiles(stats.Skipped)
		observability.InfoContext(ctx, "Extracted records",
			logfields.Count(set.Count),
			slog.Int("skipped", stats.Skipped),
			slog.Int("duplicates", stats.Duplicates))
		return nil
	})
	if err != nil {
		return err
	}
	return o.stage(ctx, r, StageData, func(context.Context) error {
		return recordset.Write(o.cfg.Resolve(o.cfg.Paths.Data), set)
	})
}

func (o *Orchestrator) render(ctx context.Context, r *Report) error {
	err := o.stage(ctx, r, StageRender, func(ctx context.Context) error {
		set, err := recordset.Read(o.cfg.Resolve(o.cfg.Paths.Data))
		if err != nil {
			return err
		}
		r.Records = set.Count
		res, err := render.New(o.renderOptions(), render.WithClock(o.clock)).Render(ctx, set)
		if err != nil {
			return err
		}
		r.Pages = res.Pages
		r.Assets = res.Assets
		o.recorder.SetPages(res.Pages)
		return nil
	})
	if err != nil {
		return err
	}
	return o.stage(ctx, r, StageCheck, func(ctx context.Context) error {
		res, err := sitecheck.New(o.cfg.Resolve(o.cfg.Paths.Output), o.cfg.Site.BaseURL).Check(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			observability.WarnContext(ctx, "Link check failed", logfields.Error(err))
			return nil
		}
		r.LinksChecked = res.Links
		r.BrokenLinks = res.Broken
		for _, b := range res.Broken {
			observability.WarnContext(ctx, "Broken internal link",
				logfields.File(b.Page), slog.String("href", b.Link.URL))
		}
		return nil
	})
}

func (o *Orchestrator) extractor() *extract.Extractor {
	source := o.cfg.Resolve(o.cfg.Paths.Source)
	var ts extract.TimestampSource = extract.MTimeSource{}
	if o.cfg.Extract.Timestamps == config.TimestampsGit {
		ts = extract.NewGitSource(source)
	}
	return extract.New(source, o.cfg.Site.Name,
		extract.WithExtensions(o.cfg.Extract.Extensions...),
		extract.WithTimestampSource(ts),
		extract.WithClock(o.clock))
}

func (o *Orchestrator) renderOptions() render.Options {
	c := o.cfg
	return render.Options{
		TemplatesDir: c.Resolve(c.Paths.Templates),
		StyleFile:    c.Resolve(c.Paths.Style),
		ScriptFile:   c.Resolve(c.Paths.Script),
		AssetsDir:    c.Resolve(c.Paths.Assets),
		IntroFile:    c.Resolve(c.Site.IntroFile),
		OutputDir:    c.Resolve(c.Paths.Output),
		Site: render.Site{
			Name:        c.Site.Name,
			Title:       c.Site.Title,
			Description: c.Site.Description,
			BaseURL:     c.Site.BaseURL,
		},
	}
}

// Clean removes the generated site, staging leftovers, the data file and the
// build report. It returns the paths that existed and were removed.
func (o *Orchestrator) Clean() ([]string, error) {
	out := o.cfg.Resolve(o.cfg.Paths.Output)
	targets := []string{
		out,
		render.StageDir(out),
		render.BackupDir(out),
		o.cfg.Resolve(o.cfg.Paths.Data),
		o.cfg.ReportPath(),
	}
	var removed []string
	for _, t := range targets {
		if _, err := os.Lstat(t); err != nil {
			continue
		}
		if err := os.RemoveAll(t); err != nil {
			return removed, ferrors.FileSystemError("remove generated output").WithCause(err).
				WithContext("path", t).Build()
		}
		removed = append(removed, t)
	}
	return removed, nil
}

// classifyFailure tags unclassified errors as build errors so the CLI maps
// them to the build exit code. Cancellation passes through untouched.
func classifyFailure(mode string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if _, ok := ferrors.AsClassified(err); ok {
		return err
	}
	return ferrors.BuildError(mode + " failed").WithCause(err).Build()
}

func statusFor(r *Report, err error) Status {
	switch {
	case err == nil && (len(r.BrokenLinks) > 0 || (r.Extract != nil && r.Extract.Skipped > 0)):
		return StatusWarning
	case err == nil:
		return StatusSuccess
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return StatusCanceled
	default:
		return StatusFailed
	}
}

func outcomeLabel(s Status) metrics.BuildOutcomeLabel {
	switch s {
	case StatusSuccess:
		return metrics.BuildOutcomeSuccess
	case StatusWarning:
		return metrics.BuildOutcomeWarning
	case StatusCanceled:
		return metrics.BuildOutcomeCanceled
	default:
		return metrics.BuildOutcomeFailed
	}
}
