package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/bridgewatch/cmd/bridgewatch/commands"
	bwerrors "git.home.luguber.info/inful/bridgewatch/internal/errors"
	"git.home.luguber.info/inful/bridgewatch/internal/version"
)

func main() {
	cli := &commands.CLI{}
	global := &commands.Global{LogLevel: new(slog.LevelVar)}

	ctx := kong.Parse(cli,
		kong.Name("bridgewatch"),
		kong.Description("Find, validate and keep watching the Browser Tools companion server."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global),
	)

	err := ctx.Run(global, cli)
	bwerrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
