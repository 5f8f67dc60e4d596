package commands

import (
	"github.com/alecthomas/kong"
)

// HelpCmd implements the 'help' command.
type HelpCmd struct {
	Command []string `arg:"" optional:"" help:"Command to show help for"`
}

func (h *HelpCmd) Run(realCtx *kong.Context) error {
	ctx, err := kong.Trace(realCtx.Kong, h.Command)
	if err != nil {
		return err
	}
	if ctx.Error != nil {
		return ctx.Error
	}
	return ctx.PrintUsage(false)
}
