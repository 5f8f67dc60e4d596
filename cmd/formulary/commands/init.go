package commands

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/formulary/internal/config"
	"git.home.luguber.info/inful/formulary/internal/render"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool   `help:"Overwrite existing files"`
	Dir   string `short:"d" name:"dir" help:"Project directory to initialize" default:"."`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	cfgPath := root.Config
	if cfgPath == "" {
		cfgPath = config.DefaultConfigFile
	}
	if !filepath.IsAbs(cfgPath) {
		cfgPath = filepath.Join(i.Dir, cfgPath)
	}
	return RunInit(g, cfgPath, i.Force)
}

// RunInit writes the example config at cfgPath and scaffolds the default
// theme beside it using the example's paths.
func RunInit(g *Global, cfgPath string, force bool) error {
	out := g.stdout()
	_, _ = fmt.Fprintln(out, "Initializing formulary project")

	cfg, err := config.Default(filepath.Dir(cfgPath))
	if err != nil {
		return err
	}
	// Check the theme first so a refused init writes nothing.
	targets := render.ScaffoldTargets{
		TemplatesDir: cfg.Resolve(cfg.Paths.Templates),
		StyleFile:    cfg.Resolve(cfg.Paths.Style),
		ScriptFile:   cfg.Resolve(cfg.Paths.Script),
		SourceDir:    cfg.Resolve(cfg.Paths.Source),
	}
	if err := render.CheckScaffold(targets, force); err != nil {
		return err
	}
	if err := config.WriteExample(cfgPath, force); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "wrote %s\n", cfgPath)

	written, err := render.Scaffold(targets, force)
	if err != nil {
		return err
	}
	for _, p := range written {
		_, _ = fmt.Fprintf(out, "wrote %s\n", p)
	}
	_, _ = fmt.Fprintln(out, "initialized successfully")
	return nil
}
