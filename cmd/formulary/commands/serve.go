package commands

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/formulary/internal/build"
	"git.home.luguber.info/inful/formulary/internal/config"
	"git.home.luguber.info/inful/formulary/internal/logfields"
	"git.home.luguber.info/inful/formulary/internal/metrics"
	"git.home.luguber.info/inful/formulary/internal/preview"
	"git.home.luguber.info/inful/formulary/internal/watch"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Port        int    `arg:"" optional:"" help:"Port to listen on (default from config)"`
	Host        string `arg:"" optional:"" help:"Host to bind (default from config)"`
	ListWatched bool   `name:"list-watched" help:"Print every watched file and exit"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	if s.Port != 0 {
		cfg.Serve.Port = s.Port
	}
	if s.Host != "" {
		cfg.Serve.Host = s.Host
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()
	return RunServe(ctx, g, cfg, s.ListWatched)
}

// RunServe builds once, then serves the site while watching for changes.
// With listOnly set it prints the watched files instead.
func RunServe(ctx context.Context, g *Global, cfg *config.Config, listOnly bool) error {
	logger := g.logger()
	var (
		recorder       metrics.Recorder = metrics.NoopRecorder{}
		metricsHandler http.Handler
	)
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)
		metricsHandler = metrics.HTTPHandler(reg)
	}

	orch := build.New(cfg, build.WithRecorder(recorder))
	w := watch.New(WatchTargets(cfg),
		func(ctx context.Context) error {
			_, err := orch.Build(ctx)
			return err
		},
		watch.WithPollInterval(cfg.Watch.PollInterval),
		watch.WithDebounce(cfg.Watch.Debounce),
		watch.WithBackoffPolicy(cfg.Watch.BackoffPolicy()),
		watch.WithNotify(cfg.Watch.NotifyEnabled()),
		watch.WithRecorder(recorder),
		watch.WithLogger(logger),
	)

	if listOnly {
		for _, f := range w.WatchedFiles() {
			_, _ = fmt.Fprintln(g.stdout(), f)
		}
		return nil
	}

	report, err := orch.Build(ctx)
	if report != nil && report.Status.IsSuccess() {
		_, _ = fmt.Fprintln(g.stdout(), report.Summary())
	} else {
		logger.Warn("Initial build failed; serving last good site", logfields.Error(err))
	}

	srv := preview.New(preview.Options{
		Root:        cfg.Resolve(cfg.Paths.Output),
		Host:        cfg.Serve.Host,
		Port:        cfg.Serve.Port,
		Status:      w.State(),
		Metrics:     metricsHandler,
		MetricsPath: cfg.Metrics.Path,
		Logger:      logger,
	})
	_, _ = fmt.Fprintf(g.stdout(), "Serving %s at http://%s/\n", cfg.Resolve(cfg.Paths.Output), srv.Addr())
	return preview.Run(ctx, srv, w)
}

// WatchTargets lists the inputs whose changes trigger a rebuild.
func WatchTargets(cfg *config.Config) watch.Targets {
	t := watch.Targets{
		Dirs: []string{
			cfg.Resolve(cfg.Paths.Source),
			cfg.Resolve(cfg.Paths.Templates),
			cfg.Resolve(cfg.Paths.Assets),
		},
		Files: []string{
			cfg.Resolve(cfg.Paths.Style),
			cfg.Resolve(cfg.Paths.Script),
			cfg.Resolve(cfg.Site.IntroFile),
			cfg.File,
		},
	}
	t.Files = append(t.Files, config.EnvFiles(cfg.BaseDir)...)
	for _, f := range cfg.Watch.Files {
		t.Files = append(t.Files, cfg.Resolve(f))
	}
	return t
}
