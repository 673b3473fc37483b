package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/jensholdgaard/auctioneer/internal/auction"
	"github.com/jensholdgaard/auctioneer/internal/bot"
	"github.com/jensholdgaard/auctioneer/internal/catalog"
	"github.com/jensholdgaard/auctioneer/internal/clock"
	"github.com/jensholdgaard/auctioneer/internal/config"
	"github.com/jensholdgaard/auctioneer/internal/health"
	"github.com/jensholdgaard/auctioneer/internal/httpapi"
	"github.com/jensholdgaard/auctioneer/internal/leader"
	"github.com/jensholdgaard/auctioneer/internal/ledger"
	"github.com/jensholdgaard/auctioneer/internal/store"
	"github.com/jensholdgaard/auctioneer/internal/stream"
	"github.com/jensholdgaard/auctioneer/internal/telemetry"

	// Register store drivers so they are available via store.Open.
	_ "github.com/jensholdgaard/auctioneer/internal/store/entstore"
	_ "github.com/jensholdgaard/auctioneer/internal/store/filestore"
	_ "github.com/jensholdgaard/auctioneer/internal/store/memory"
	_ "github.com/jensholdgaard/auctioneer/internal/store/postgres"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("loading .env", slog.Any("error", err))
	}

	if err := run(*configPath); err != nil {
		slog.Error("fatal error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg.Telemetry.ServiceVersion = version

	tp, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("telemetry setup failed, continuing without OTEL export", slog.Any("error", err))
		tp = telemetry.NewNopProvider()
	}
	defer func() {
		if shutdownErr := tp.Shutdown(context.Background()); shutdownErr != nil {
			slog.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	logger := tp.Logger
	clk := clock.Real{}

	repos, err := store.Open(ctx, cfg.Database, clk)
	if err != nil {
		return fmt.Errorf("opening store (driver=%s): %w", cfg.Database.Driver, err)
	}
	defer repos.Closer.Close()
	logger.InfoContext(ctx, "store opened", slog.String("driver", cfg.Database.Driver))

	engine, err := auction.NewEngine(ctx, engineOptions(cfg, repos, tp, clk))
	if err != nil {
		return fmt.Errorf("starting auction engine: %w", err)
	}

	hub := stream.NewHub(engine, logger)
	engine.Subscribe(hub)

	var discordBot *bot.Bot
	if cfg.Discord.Token != "" {
		discordBot, err = bot.New(cfg.Discord, engine, logger, tp.TracerProvider)
		if err != nil {
			return fmt.Errorf("creating bot: %w", err)
		}
		engine.Subscribe(discordBot)
	}

	healthHandler := health.NewHandler(clk, health.Checker{Name: "database", Check: repos.Ping})
	healthHandler.Register(health.Checker{Name: "auction", Check: engine.Ready})

	var leading atomic.Bool
	api := httpapi.NewServer(httpapi.Options{
		Engine:    engine,
		Auth:      httpapi.NewAuthenticator(cfg.Server.AdminPassword, cfg.Server.SessionSecret, cfg.Server.SessionTTL, clk),
		Stream:    hub,
		Liveness:  healthHandler.LivenessHandler(),
		Readiness: healthHandler.ReadinessHandler(),
		Leading:   leading.Load,
		Logger:    logger,
	})
	if cfg.Server.AdminPassword == "" {
		logger.WarnContext(ctx, "admin password not set, operator API is open")
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// own is the work only the replica holding the auction runs.
	own := func(ctx context.Context) {
		leading.Store(true)
		healthHandler.SetRole(health.RoleLeader)
		healthHandler.SetReady(true)
		logger.InfoContext(ctx, "auctioneer is running", slog.String("version", version))

		if discordBot != nil {
			if botErr := discordBot.Start(ctx); botErr != nil {
				logger.ErrorContext(ctx, "starting bot failed", slog.Any("error", botErr))
			}
		}

		<-ctx.Done()

		leading.Store(false)
		healthHandler.SetReady(false)
		if discordBot != nil {
			if stopErr := discordBot.Stop(); stopErr != nil {
				logger.Error("bot shutdown error", slog.Any("error", stopErr))
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gctx, "starting http server", slog.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		hub.Close()
		return httpServer.Shutdown(shutdownCtx)
	})

	if cfg.LeaderElection.Enabled {
		healthHandler.SetRole(health.RoleStandby)
		self := leader.Identity(cfg.LeaderElection)
		g.Go(func() error {
			return leader.Run(gctx, cfg.LeaderElection, logger, leader.Callbacks{
				OnStartedLeading: func(ctx context.Context) {
					// The previous leader may have committed changes since this
					// replica loaded its session.
					if _, restoreErr := engine.Restore(ctx); restoreErr != nil {
						// Never serve mutations on a stale session.
						logger.ErrorContext(ctx, "restoring auction session, giving up leadership", slog.Any("error", restoreErr))
						cancel()
						return
					}
					healthHandler.SetLeader(self)
					own(ctx)
				},
				OnStoppedLeading: func() {
					leading.Store(false)
					healthHandler.SetRole(health.RoleStandby)
					logger.Info("lost leadership, shutting down")
					cancel()
				},
				OnNewLeader: healthHandler.SetLeader,
			})
		})
	} else {
		g.Go(func() error {
			own(gctx)
			return nil
		})
	}

	err = g.Wait()
	logger.Info("shutdown complete")
	return err
}

func engineOptions(cfg *config.Config, repos *store.Repositories, tp *telemetry.Provider, clk clock.Clock) auction.Options {
	var loader catalog.Loader = store.CatalogLoader{Players: repos.Players}
	if cfg.Auction.PlayersFile != "" {
		loader = catalog.FileLoader{Path: cfg.Auction.PlayersFile}
	}

	opts := auction.Options{
		Settings: auction.Settings{
			Teams:         cfg.Auction.Teams,
			InitialPoints: cfg.Auction.InitialPoints,
			Rules: ledger.Rules{
				MinimumTeamSize: cfg.Auction.MinimumTeamSize,
				MinimumBid:      cfg.Auction.MinimumBid,
			},
			SearchLimit: cfg.Auction.SearchLimit,
			UndoPolicy:  auction.UndoPolicy(cfg.Auction.UndoPolicy),
		},
		Loader:         loader,
		Sessions:       repos.Sessions,
		Events:         repos.Events,
		Logger:         tp.Logger,
		TracerProvider: tp.TracerProvider,
		MeterProvider:  tp.MeterProvider,
		Clock:          clk,
	}
	if cfg.Auction.Seed != 0 {
		opts.Rand = rand.New(rand.NewPCG(cfg.Auction.Seed, cfg.Auction.Seed^0x9e3779b97f4a7c15))
	}
	return opts
}
