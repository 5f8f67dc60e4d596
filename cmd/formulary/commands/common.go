// Package commands implements the formulary command line.
package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/formulary/internal/config"
	"git.home.luguber.info/inful/formulary/internal/foundation/errors"
)

// Global carries state shared by every subcommand.
type Global struct {
	Logger *slog.Logger
	Stdout io.Writer
	Stderr io.Writer
}

// NewGlobal returns a Global writing to the process streams.
func NewGlobal() *Global {
	return &Global{Logger: slog.Default(), Stdout: os.Stdout, Stderr: os.Stderr}
}

// CLI definition & global flags.
type CLI struct {
	Config      string           `short:"c" help:"Configuration file path" default:"formulary.yaml"`
	Verbose     bool             `short:"v" help:"Enable verbose logging"`
	ShowVersion kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Extract definitions and render the site"`
	Parse   ParseCmd   `cmd:"" help:"Extract definitions into the data file only"`
	Render  RenderCmd  `cmd:"" help:"Render the site from an existing data file"`
	Serve   ServeCmd   `cmd:"" help:"Build, serve locally and rebuild on changes"`
	Clean   CleanCmd   `cmd:"" help:"Remove the generated site, data file and build report"`
	Init    InitCmd    `cmd:"" help:"Write an example configuration and default theme"`
	Help    HelpCmd    `cmd:"" help:"Show help for a command"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// AfterApply runs after flag parsing; it installs a logger before any config is read.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := config.NormalizeLogLevel(os.Getenv(config.EnvLogLevel))
	if c.Verbose {
		level = config.LogLevelDebug
	}
	format := config.NormalizeLogFormat(os.Getenv(config.EnvLogFormat))
	slog.SetDefault(NewLogger(os.Stderr, level, format))
	return nil
}

// NewLogger builds the process logger for the given level and format.
func NewLogger(w io.Writer, level config.LogLevel, format config.LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level.SlogLevel()}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// loadConfig reads the configuration named by -c. The default file is
// optional; an explicitly named file must exist.
func loadConfig(g *Global, root *CLI) (*config.Config, error) {
	required := root.Config != "" && root.Config != config.DefaultConfigFile
	cfg, err := config.Load(root.Config, required)
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level
	if root.Verbose {
		level = config.LogLevelDebug
	}
	logger := NewLogger(g.stderr(), level, cfg.Logging.Format)
	slog.SetDefault(logger)
	g.Logger = logger
	return cfg, nil
}

func (g *Global) logger() *slog.Logger {
	if g == nil || g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

func (g *Global) stdout() io.Writer {
	if g == nil || g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

func (g *Global) stderr() io.Writer {
	if g == nil || g.Stderr == nil {
		return os.Stderr
	}
	return g.Stderr
}

// ExitCode reports err through the CLI error adapter and returns the process exit code.
func ExitCode(err error, verbose bool) int {
	return errors.NewCLIErrorAdapter(verbose, slog.Default()).Report(err)
}
