package commands

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/formulary/internal/build"
	"git.home.luguber.info/inful/formulary/internal/config"
	"git.home.luguber.info/inful/formulary/internal/foundation/errors"
)

type testEnv struct {
	dir    string
	root   *CLI
	global *Global
	out    *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	dir := t.TempDir()
	out := &bytes.Buffer{}
	return &testEnv{
		dir:  dir,
		root: &CLI{Config: filepath.Join(dir, config.DefaultConfigFile)},
		global: &Global{
			Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
			Stdout: out,
			Stderr: io.Discard,
		},
		out: out,
	}
}

func (e *testEnv) init(t *testing.T) {
	t.Helper()
	require.NoError(t, (&InitCmd{Dir: e.dir}).Run(e.global, e.root))
	e.out.Reset()
}

func TestInitWritesConfigAndTheme(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, (&InitCmd{Dir: env.dir}).Run(env.global, env.root))

	assert.FileExists(t, env.root.Config)
	assert.FileExists(t, filepath.Join(env.dir, "templates", "layout.tmpl"))
	assert.FileExists(t, filepath.Join(env.dir, "src", "style.css"))
	assert.FileExists(t, filepath.Join(env.dir, "Formula", "example-tool.rb"))
	assert.Contains(t, env.out.String(), "initialized successfully")

	cfg, err := config.Load(env.root.Config, true)
	require.NoError(t, err)
	assert.Equal(t, "my-tap", cfg.Site.Name)
}

func TestInitRefusesWithoutForce(t *testing.T) {
	env := newTestEnv(t)
	env.init(t)
	require.NoError(t, os.Remove(env.root.Config))

	err := (&InitCmd{Dir: env.dir}).Run(env.global, env.root)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	assert.NoFileExists(t, env.root.Config)

	require.NoError(t, (&InitCmd{Dir: env.dir, Force: true}).Run(env.global, env.root))
	assert.FileExists(t, env.root.Config)
}

func TestBuildThenClean(t *testing.T) {
	env := newTestEnv(t)
	env.init(t)

	require.NoError(t, (&BuildCmd{}).Run(env.global, env.root))
	assert.Contains(t, env.out.String(), "pages built from 1 record")
	assert.FileExists(t, filepath.Join(env.dir, "site", "index.html"))
	assert.FileExists(t, filepath.Join(env.dir, "data", "packages.json"))

	env.out.Reset()
	require.NoError(t, (&CleanCmd{}).Run(env.global, env.root))
	assert.Contains(t, env.out.String(), "removed "+filepath.Join(env.dir, "site"))
	assert.NoDirExists(t, filepath.Join(env.dir, "site"))

	env.out.Reset()
	require.NoError(t, (&CleanCmd{}).Run(env.global, env.root))
	assert.Contains(t, env.out.String(), "nothing to clean")
}

func TestParseThenRender(t *testing.T) {
	env := newTestEnv(t)
	env.init(t)

	require.NoError(t, (&ParseCmd{}).Run(env.global, env.root))
	assert.Contains(t, env.out.String(), "1 record extracted")
	assert.NoDirExists(t, filepath.Join(env.dir, "site"))

	env.out.Reset()
	require.NoError(t, (&RenderCmd{}).Run(env.global, env.root))
	assert.Contains(t, env.out.String(), "pages rendered")
	assert.FileExists(t, filepath.Join(env.dir, "site", "packages", "example-tool.html"))
}

func TestRunStageReportsBrokenLinks(t *testing.T) {
	env := newTestEnv(t)
	env.init(t)
	listing := filepath.Join(env.dir, "templates", "listing.tmpl")
	require.NoError(t, os.WriteFile(listing, []byte(`<a href="missing.html">x</a>`), 0o600))

	cfg, err := config.Load(env.root.Config, true)
	require.NoError(t, err)
	require.NoError(t, RunStage(context.Background(), env.global, build.New(cfg), build.ModeBuild))
	assert.Contains(t, env.out.String(), "pages built from 1 record")
	assert.Contains(t, env.out.String(), "1 broken internal links (see build report)")
}

func TestRenderWithoutDataFails(t *testing.T) {
	env := newTestEnv(t)
	env.init(t)

	err := (&RenderCmd{}).Run(env.global, env.root)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))
	assert.NotZero(t, ExitCode(err, false))
}

func TestExplicitMissingConfigFails(t *testing.T) {
	env := newTestEnv(t)
	err := (&BuildCmd{}).Run(env.global, env.root)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestBuildOutputOverride(t *testing.T) {
	env := newTestEnv(t)
	env.init(t)

	require.NoError(t, (&BuildCmd{Output: "public"}).Run(env.global, env.root))
	assert.FileExists(t, filepath.Join(env.dir, "public", "index.html"))
}

func TestServeListWatched(t *testing.T) {
	env := newTestEnv(t)
	env.init(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, "Formula", ".swap.rb.swp"), []byte("x"), 0o644))

	cfg, err := config.Load(env.root.Config, true)
	require.NoError(t, err)
	require.NoError(t, RunServe(context.Background(), env.global, cfg, true))

	lines := strings.Split(strings.TrimSpace(env.out.String()), "\n")
	assert.Contains(t, lines, filepath.Join(env.dir, "Formula", "example-tool.rb"))
	assert.Contains(t, lines, filepath.Join(env.dir, "templates", "layout.tmpl"))
	assert.Contains(t, lines, filepath.Join(env.dir, "src", "style.css"))
	assert.Contains(t, lines, env.root.Config)
	assert.NotContains(t, env.out.String(), ".swp")
	assert.NoDirExists(t, filepath.Join(env.dir, "site"))
}

func TestServeBuildsThenServes(t *testing.T) {
	env := newTestEnv(t)
	env.init(t)
	cfg, err := config.Load(env.root.Config, true)
	require.NoError(t, err)
	cfg.Serve.Host = "127.0.0.1"
	cfg.Serve.Port = 0

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, RunServe(ctx, env.global, cfg, false))
	assert.Contains(t, env.out.String(), "pages built from 1 record")
	assert.Contains(t, env.out.String(), "Serving "+filepath.Join(env.dir, "site")+" at http://127.0.0.1:0/")
	assert.FileExists(t, filepath.Join(env.dir, "site", "index.html"))
}

func TestWatchTargetsIncludeEnvAndExtraFiles(t *testing.T) {
	cfg, err := config.Default(t.TempDir())
	require.NoError(t, err)
	cfg.Watch.Files = []string{"NOTES.md"}

	targets := WatchTargets(cfg)
	assert.Contains(t, targets.Files, filepath.Join(cfg.BaseDir, ".env"))
	assert.Contains(t, targets.Files, filepath.Join(cfg.BaseDir, "NOTES.md"))
	assert.Contains(t, targets.Dirs, filepath.Join(cfg.BaseDir, "Formula"))
}

func TestVersionCommand(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, (&VersionCmd{}).Run(env.global))
	assert.True(t, strings.HasPrefix(env.out.String(), "formulary "))
}

func newParser(t *testing.T, cli *CLI, out io.Writer) *kong.Kong {
	t.Helper()
	parser, err := kong.New(cli,
		kong.Name("formulary"),
		kong.Vars{"version": "test"},
		kong.Writers(out, out),
		kong.Exit(func(int) {}),
	)
	require.NoError(t, err)
	return parser
}

func TestServePositionalArguments(t *testing.T) {
	cli := &CLI{}
	parser := newParser(t, cli, io.Discard)

	_, err := parser.Parse([]string{"-c", "site.yaml", "serve", "8080", "0.0.0.0", "--list-watched"})
	require.NoError(t, err)
	assert.Equal(t, 8080, cli.Serve.Port)
	assert.Equal(t, "0.0.0.0", cli.Serve.Host)
	assert.True(t, cli.Serve.ListWatched)
	assert.Equal(t, "site.yaml", cli.Config)
}

func TestServeDefaults(t *testing.T) {
	cli := &CLI{}
	parser := newParser(t, cli, io.Discard)

	_, err := parser.Parse([]string{"serve"})
	require.NoError(t, err)
	assert.Zero(t, cli.Serve.Port)
	assert.Empty(t, cli.Serve.Host)
	assert.Equal(t, config.DefaultConfigFile, cli.Config)
}

func TestHelpCommandPrintsUsage(t *testing.T) {
	cli := &CLI{}
	out := &bytes.Buffer{}
	parser := newParser(t, cli, out)

	ctx, err := parser.Parse([]string{"help", "serve"})
	require.NoError(t, err)
	require.NoError(t, ctx.Run(&Global{Stdout: out}, cli))
	assert.Contains(t, out.String(), "list-watched")
}
