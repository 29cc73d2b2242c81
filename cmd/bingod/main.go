package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Server  ServerCmd        `cmd:"" help:"Run the bingo game server"`
	Invite  InviteCmd        `cmd:"" help:"Generate invite codes"`
	Token   TokenCmd         `cmd:"" help:"Issue a signed identity token"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("bingod"),
		kong.Description("Multiplayer social bingo game server"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
