package commands

import (
	"fmt"

	"git.home.luguber.info/inful/formulary/internal/version"
)

// VersionCmd implements the 'version' command.
type VersionCmd struct{}

func (v *VersionCmd) Run(g *Global) error {
	_, err := fmt.Fprintf(g.stdout(), "formulary %s\n", version.String())
	return err
}
