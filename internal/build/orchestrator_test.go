package build

import (
	"context"
	stdErrors "errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/formulary/internal/config"
	ferrors "git.home.luguber.info/inful/formulary/internal/foundation/errors"
	"git.home.luguber.info/inful/formulary/internal/metrics"
	"git.home.luguber.info/inful/formulary/internal/recordset"
	"git.home.luguber.info/inful/formulary/internal/render"
	"git.home.luguber.info/inful/formulary/internal/timefmt"
)

var fixedNow = timefmt.FixedClock(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))

const toolDefinition = `class ExampleTool < Formula
  desc "An example"
  url "https://example.com/archive/v2.3.1.tar.gz"
  depends_on "openssl"
end
`

// newProject scaffolds the default theme into a temp dir and returns its config.
func newProject(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Default(dir)
	require.NoError(t, err)
	_, err = render.Scaffold(render.ScaffoldTargets{
		TemplatesDir: cfg.Resolve(cfg.Paths.Templates),
		StyleFile:    cfg.Resolve(cfg.Paths.Style),
		ScriptFile:   cfg.Resolve(cfg.Paths.Script),
	}, false)
	require.NoError(t, err)
	writeDefinition(t, cfg, "example-tool.rb", toolDefinition)
	return cfg
}

func writeDefinition(t *testing.T, cfg *config.Config, name, content string) {
	t.Helper()
	p := filepath.Join(cfg.Resolve(cfg.Paths.Source), name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
}

func siteSnapshot(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	require.NoError(t, filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, p)
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	}))
	return out
}

func TestBuildEndToEnd(t *testing.T) {
	cfg := newProject(t)
	report, err := New(cfg, WithClock(fixedNow)).Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, report.Status)
	assert.Equal(t, ModeBuild, report.Mode)
	assert.NotEmpty(t, report.BuildID)
	assert.Equal(t, 1, report.Records)
	assert.Equal(t, 3, report.Pages)
	assert.Empty(t, report.BrokenLinks)
	assert.Greater(t, report.LinksChecked, 0)
	for _, stage := range []string{StageExtract, StageData, StageRender, StageCheck} {
		assert.Contains(t, report.StageMS, stage)
	}
	assert.Equal(t, "3 pages built from 1 record", report.Summary())

	set, err := recordset.Read(cfg.Resolve(cfg.Paths.Data))
	require.NoError(t, err)
	require.Equal(t, 1, set.Count)
	assert.Equal(t, "example-tool", set.Records[0].Name)
	assert.Equal(t, "2.3.1", set.Records[0].Version)
	assert.Equal(t, "2024-06-15T12:00:00Z", set.GeneratedAt)

	site := cfg.Resolve(cfg.Paths.Output)
	for _, rel := range []string{"index.html", "listing.html", "packages/example-tool.html", "api/packages.json", "style.css", "script.js"} {
		assert.FileExists(t, filepath.Join(site, filepath.FromSlash(rel)))
	}

	saved, err := ReadReport(cfg.ReportPath())
	require.NoError(t, err)
	assert.Equal(t, report.BuildID, saved.BuildID)
	assert.NoFileExists(t, filepath.Join(site, "build-report.json"))
}

func TestBuildIsIdempotent(t *testing.T) {
	cfg := newProject(t)
	o := New(cfg, WithClock(fixedNow))

	_, err := o.Build(context.Background())
	require.NoError(t, err)
	first := siteSnapshot(t, cfg.Resolve(cfg.Paths.Output))
	data1, err := os.ReadFile(cfg.Resolve(cfg.Paths.Data))
	require.NoError(t, err)

	_, err = o.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, siteSnapshot(t, cfg.Resolve(cfg.Paths.Output)))
	data2, err := os.ReadFile(cfg.Resolve(cfg.Paths.Data))
	require.NoError(t, err)
	assert.Equal(t, string(data1), string(data2))
}

func TestParseThenRender(t *testing.T) {
	cfg := newProject(t)
	o := New(cfg, WithClock(fixedNow))

	report, err := o.Parse(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Records)
	assert.Zero(t, report.Pages)
	assert.FileExists(t, cfg.Resolve(cfg.Paths.Data))
	assert.NoDirExists(t, cfg.Resolve(cfg.Paths.Output))

	report, err = o.Render(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Pages)
	assert.Equal(t, "3 pages rendered", report.Summary())
}

func TestRenderWithoutDataFile(t *testing.T) {
	cfg := newProject(t)
	report, err := New(cfg).Render(context.Background())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
	assert.Equal(t, StatusFailed, report.Status)
	assert.NotEmpty(t, report.Error)
}

func TestBuildMissingTemplateKeepsPreviousSite(t *testing.T) {
	cfg := newProject(t)
	o := New(cfg, WithClock(fixedNow))
	_, err := o.Build(context.Background())
	require.NoError(t, err)
	before := siteSnapshot(t, cfg.Resolve(cfg.Paths.Output))

	require.NoError(t, os.Remove(filepath.Join(cfg.Resolve(cfg.Paths.Templates), "listing.tmpl")))
	_, err = o.Build(context.Background())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryRender))
	assert.Equal(t, 11, ferrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
	assert.Equal(t, before, siteSnapshot(t, cfg.Resolve(cfg.Paths.Output)))
}

func TestBuildWarnings(t *testing.T) {
	cfg := newProject(t)
	writeDefinition(t, cfg, "helper.rb", "# no class here\n")
	writeDefinition(t, cfg, "other.rb", "class Other < Formula\nend\n")
	tmpl := filepath.Join(cfg.Resolve(cfg.Paths.Templates), "listing.tmpl")
	require.NoError(t, os.WriteFile(tmpl, []byte(`<a href="missing.html">x</a>`), 0o600))

	report, err := New(cfg, WithClock(fixedNow)).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusWarning, report.Status)
	assert.Equal(t, 2, report.Records)
	assert.Equal(t, 1, report.Extract.Skipped)
	require.Len(t, report.BrokenLinks, 1)
	assert.Equal(t, "listing.html", report.BrokenLinks[0].Page)
}

func TestBuildCanceled(t *testing.T) {
	cfg := newProject(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := New(cfg).Build(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusCanceled, report.Status)
}

func TestClean(t *testing.T) {
	cfg := newProject(t)
	o := New(cfg, WithClock(fixedNow))
	_, err := o.Build(context.Background())
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(render.StageDir(cfg.Resolve(cfg.Paths.Output)), 0o755))

	removed, err := o.Clean()
	require.NoError(t, err)
	assert.Len(t, removed, 4)
	assert.NoDirExists(t, cfg.Resolve(cfg.Paths.Output))
	assert.NoFileExists(t, cfg.Resolve(cfg.Paths.Data))
	assert.NoFileExists(t, cfg.ReportPath())
	assert.DirExists(t, cfg.Resolve(cfg.Paths.Source))

	removed, err = o.Clean()
	require.NoError(t, err)
	assert.Empty(t, removed)
}

type countingRecorder struct {
	metrics.NoopRecorder
	mu       sync.Mutex
	stages   map[string]metrics.ResultLabel
	outcomes []metrics.BuildOutcomeLabel
	records  int
	pages    int
}

func (c *countingRecorder) IncStageResult(stage string, r metrics.ResultLabel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stages == nil {
		c.stages = map[string]metrics.ResultLabel{}
	}
	c.stages[stage] = r
}

func (c *countingRecorder) IncBuildOutcome(o metrics.BuildOutcomeLabel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, o)
}

func (c *countingRecorder) SetRecords(n int) { c.records = n }
func (c *countingRecorder) SetPages(n int)   { c.pages = n }

func TestBuildRecordsMetrics(t *testing.T) {
	cfg := newProject(t)
	rec := &countingRecorder{}
	_, err := New(cfg, WithRecorder(rec), WithClock(fixedNow)).Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []metrics.BuildOutcomeLabel{metrics.BuildOutcomeSuccess}, rec.outcomes)
	assert.Equal(t, metrics.ResultSuccess, rec.stages[StageRender])
	assert.Len(t, rec.stages, 4)
	assert.Equal(t, 1, rec.records)
	assert.Equal(t, 3, rec.pages)
}

func TestClassifyFailure(t *testing.T) {
	assert.NoError(t, classifyFailure(ModeBuild, nil))
	assert.ErrorIs(t, classifyFailure(ModeBuild, context.Canceled), context.Canceled)
	assert.False(t, ferrors.IsClassified(classifyFailure(ModeBuild, context.Canceled)))

	plain := stdErrors.New("disk full")
	err := classifyFailure(ModeParse, plain)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryBuild))
	assert.ErrorIs(t, err, plain)
	assert.Equal(t, 11, ferrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))

	rendered := ferrors.RenderError("missing template").Build()
	assert.Same(t, rendered, classifyFailure(ModeRender, rendered))
}

func TestStatusIsSuccess(t *testing.T) {
	assert.True(t, StatusSuccess.IsSuccess())
	assert.True(t, StatusWarning.IsSuccess())
	assert.False(t, StatusFailed.IsSuccess())
	assert.False(t, StatusCanceled.IsSuccess())
}
