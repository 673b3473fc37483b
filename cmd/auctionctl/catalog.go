package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jensholdgaard/auctioneer/internal/catalog"
	"github.com/jensholdgaard/auctioneer/internal/clock"
	"github.com/jensholdgaard/auctioneer/internal/config"
	"github.com/jensholdgaard/auctioneer/internal/store"

	_ "github.com/jensholdgaard/auctioneer/internal/store/entstore"
	_ "github.com/jensholdgaard/auctioneer/internal/store/filestore"
	_ "github.com/jensholdgaard/auctioneer/internal/store/memory"
	_ "github.com/jensholdgaard/auctioneer/internal/store/postgres"
)

// CatalogCmd groups the player catalog commands.
type CatalogCmd struct {
	Count    CatalogCountCmd    `cmd:"" help:"Print the number of players in a catalog file"`
	Validate CatalogValidateCmd `cmd:"" help:"Check a catalog file for missing fields and duplicate ids"`
	Search   CatalogSearchCmd   `cmd:"" help:"Search a catalog file by name or id"`
	Import   CatalogImportCmd   `cmd:"" help:"Replace the stored catalog with a file's players"`
}

// CatalogCountCmd counts players without validating them.
type CatalogCountCmd struct {
	File string `arg:"" type:"existingfile" help:"Players JSON file"`
}

func (cmd CatalogCountCmd) Run(g *Globals) error {
	data, err := os.ReadFile(filepath.Clean(cmd.File))
	if err != nil {
		return fmt.Errorf("reading catalog file: %w", err)
	}
	var players []json.RawMessage
	if err := json.Unmarshal(data, &players); err != nil {
		return fmt.Errorf("parsing catalog: %w", err)
	}
	_, err = fmt.Fprintf(g.Out, "Total number of players: %d\n", len(players))
	return err
}

// CatalogValidateCmd loads a catalog the way the server does.
type CatalogValidateCmd struct {
	File string `arg:"" type:"existingfile" help:"Players JSON file"`
}

func (cmd CatalogValidateCmd) Run(g *Globals) error {
	c, err := catalog.FileLoader{Path: cmd.File}.Load(context.Background())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(g.Out, "%s: %d players ok\n", cmd.File, c.Len())
	return err
}

// CatalogSearchCmd lists players matching a query.
type CatalogSearchCmd struct {
	File  string `arg:"" type:"existingfile" help:"Players JSON file"`
	Query string `arg:"" help:"Name fragment or player id"`
	Limit int    `default:"10" help:"Maximum number of results (0 = all)"`
}

func (cmd CatalogSearchCmd) Run(g *Globals) error {
	c, err := catalog.FileLoader{Path: cmd.File}.Load(context.Background())
	if err != nil {
		return err
	}
	matches := c.Search(cmd.Query, cmd.Limit, nil)
	if len(matches) == 0 {
		_, err = fmt.Fprintf(g.Out, "no players match %q\n", cmd.Query)
		return err
	}
	for _, p := range matches {
		if _, err := fmt.Fprintf(g.Out, "%d\t%s\t%s\n", p.ID, p.PlayerName, p.FatherName); err != nil {
			return err
		}
	}
	return nil
}

// CatalogImportCmd writes a catalog file into the configured store so the
// server can run without a players_file.
type CatalogImportCmd struct {
	File   string `arg:"" type:"existingfile" help:"Players JSON file"`
	Config string `default:"config.yaml" help:"Server configuration file"`
}

func (cmd CatalogImportCmd) Run(g *Globals) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(cmd.Config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	c, err := catalog.FileLoader{Path: cmd.File}.Load(ctx)
	if err != nil {
		return err
	}

	repos, err := store.Open(ctx, cfg.Database, clock.Real{})
	if err != nil {
		return fmt.Errorf("opening store (driver=%s): %w", cfg.Database.Driver, err)
	}
	defer repos.Closer.Close()

	if err := store.ImportCatalog(ctx, repos.Players, c); err != nil {
		return err
	}
	_, err = fmt.Fprintf(g.Out, "imported %d players into %s store\n", c.Len(), cfg.Database.Driver)
	return err
}
