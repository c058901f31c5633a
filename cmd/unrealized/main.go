package main

import (
	stdErrors "errors"
	"os"

	"github.com/alecthomas/kong"

	"github.com/xentac/unrealized/cli"
)

func main() {
	commands := &cli.Commands{}

	ctx := kong.Parse(commands,
		kong.Name("unrealized"),
		kong.Description("Book unrealized gains into a beancount ledger."),
		kong.UsageOnError(),
		kong.Vars{"version": cli.VersionString()},
	)

	err := ctx.Run(&commands.Globals)

	var cmdErr *cli.CommandError
	if stdErrors.As(err, &cmdErr) {
		os.Exit(cmdErr.ExitCode())
	}
	ctx.FatalIfErrorf(err)
}
