package main

import (
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/formulary/cmd/formulary/commands"
	"git.home.luguber.info/inful/formulary/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Must(cli,
		kong.Name("formulary"),
		kong.Description("Generate a static catalogue site from formula definition files."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	err = ctx.Run(commands.NewGlobal(), cli)
	os.Exit(commands.ExitCode(err, cli.Verbose))
}
