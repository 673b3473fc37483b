package main

import (
	"io"
	"os"

	"github.com/alecthomas/kong"
)

var version = "dev"

// Globals are bound into every command's Run.
type Globals struct {
	Out io.Writer
}

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Catalog CatalogCmd       `cmd:"" help:"Inspect and import player catalogs"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("auctionctl"),
		kong.Description("Operator tooling for the auctioneer server"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&Globals{Out: os.Stdout})
	ctx.FatalIfErrorf(err)
}
