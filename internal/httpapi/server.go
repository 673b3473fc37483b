// Package httpapi exposes the auction engine to the operator console over
// JSON. Every route under /api and the /ws stream sit behind the login gate.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jensholdgaard/auctioneer/internal/auction"
	"github.com/jensholdgaard/auctioneer/internal/catalog"
	"github.com/jensholdgaard/auctioneer/internal/event"
	"github.com/jensholdgaard/auctioneer/internal/ledger"
)

// Engine is the subset of *auction.Engine served over HTTP.
type Engine interface {
	Snapshot(ctx context.Context) *auction.Snapshot
	NextPlayer(ctx context.Context) (*catalog.Player, error)
	Skip(ctx context.Context) (*auction.Snapshot, error)
	Sell(ctx context.Context, playerID int, team string, points int) (*auction.Snapshot, error)
	Undo(ctx context.Context) (*auction.Snapshot, error)
	Reset(ctx context.Context) (*auction.Snapshot, error)
	SelectPlayer(ctx context.Context, playerID int) (*auction.Snapshot, error)
	Unsell(ctx context.Context, playerID int, team string) (*auction.Snapshot, error)
	TransferSale(ctx context.Context, playerID int, fromTeam, toTeam string, points int) (*auction.Snapshot, error)
	Search(ctx context.Context, query string, unsoldOnly bool) []auction.SearchResult
	Export(ctx context.Context) (*auction.Snapshot, *catalog.Catalog)
	Teams(ctx context.Context) []ledger.Team
	History(ctx context.Context) ([]event.Event, error)
}

// Options configure a Server. Engine and Auth are required.
type Options struct {
	Engine Engine
	Auth   *Authenticator
	// Stream serves /ws when set.
	Stream http.Handler
	// Liveness and Readiness serve /healthz and /readyz when set.
	Liveness  http.Handler
	Readiness http.Handler
	// Leading gates state changes on replicas that do not hold the lease.
	// Nil means this process always owns the auction.
	Leading func() bool
	Logger  *slog.Logger
}

// Server routes operator requests to the engine.
type Server struct {
	engine  Engine
	auth    *Authenticator
	leading func() bool
	logger  *slog.Logger
	router  chi.Router
}

// NewServer builds the router.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{
		engine:  opts.Engine,
		auth:    opts.Auth,
		leading: opts.Leading,
		logger:  opts.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	if opts.Liveness != nil {
		r.Method(http.MethodGet, "/healthz", opts.Liveness)
	}
	if opts.Readiness != nil {
		r.Method(http.MethodGet, "/readyz", opts.Readiness)
	}
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Middleware)
		if opts.Stream != nil {
			r.Method(http.MethodGet, "/ws", opts.Stream)
		}
		r.Route("/api", func(r chi.Router) {
			r.Get("/state", s.handleState)
			r.Get("/teams", s.handleTeams)
			r.Get("/search_players", s.handleSearch)
			r.Get("/history", s.handleHistory)
			r.Get("/export", s.handleExport)

			r.Group(func(r chi.Router) {
				r.Use(s.requireLeader)
				r.Get("/next_player", s.handleNextPlayer)
				r.Post("/next_player", s.handleNextPlayer)
				r.Post("/skip", s.handleSkip)
				r.Post("/sell", s.handleSell)
				r.Post("/undo", s.handleUndo)
				r.Post("/reset", s.handleReset)
				r.Post("/select_player", s.handleSelectPlayer)
				r.Post("/unsell_player", s.handleUnsell)
				r.Post("/transfer_sale", s.handleTransferSale)
			})
		})
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.DebugContext(r.Context(), "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) requireLeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.leading != nil && !s.leading() {
			writeError(w, http.StatusServiceUnavailable, kindNotLeader, errNotLeader)
			return
		}
		next.ServeHTTP(w, r)
	})
}
