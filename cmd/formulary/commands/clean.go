package commands

import (
	"fmt"

	"git.home.luguber.info/inful/formulary/internal/build"
)

// CleanCmd implements the 'clean' command.
type CleanCmd struct{}

func (c *CleanCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	removed, err := build.New(cfg).Clean()
	for _, p := range removed {
		_, _ = fmt.Fprintf(g.stdout(), "removed %s\n", p)
	}
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		_, _ = fmt.Fprintln(g.stdout(), "nothing to clean")
	}
	return nil
}
