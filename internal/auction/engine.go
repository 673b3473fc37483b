// Package auction runs a live player auction: players are drawn one at a time
// from the unsold pool, sold to teams for points, and the most recent sale can
// be undone.
package auction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/auctioneer/internal/catalog"
	"github.com/jensholdgaard/auctioneer/internal/clock"
	"github.com/jensholdgaard/auctioneer/internal/event"
	"github.com/jensholdgaard/auctioneer/internal/ledger"
	"github.com/jensholdgaard/auctioneer/internal/pool"
	"github.com/jensholdgaard/auctioneer/internal/store"
	"github.com/jensholdgaard/auctioneer/internal/telemetry"
)

const instrumentationName = "github.com/jensholdgaard/auctioneer/internal/auction"

// UndoPolicy decides where the player of an undone sale goes.
type UndoPolicy string

const (
	// UndoToIdle returns the player to the unsold pool and leaves the block empty.
	UndoToIdle UndoPolicy = "idle"
	// UndoToBlock puts the player back on the block. A player already there
	// returns to the unsold pool first.
	UndoToBlock UndoPolicy = "restore"
)

// Settings are the fixed rules of every session the engine creates.
type Settings struct {
	Teams         []string
	InitialPoints int
	Rules         ledger.Rules
	SearchLimit   int
	UndoPolicy    UndoPolicy
}

// Options configure an Engine. Loader is required; everything else has a
// usable default.
type Options struct {
	Settings Settings
	Loader   catalog.Loader

	// Sessions and Events are optional. When set, every committed change is
	// saved and audited; failures are logged and never undo the change.
	Sessions store.SessionRepository
	Events   event.Store

	Logger         *slog.Logger
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	Clock          clock.Clock
	Rand           *rand.Rand
}

// Engine owns the single auction session. All operations are safe for
// concurrent use: mutations are serialized, reads share a lock.
type Engine struct {
	mu sync.RWMutex
	s  *session

	// persistMu is taken before mu is released so saved records and
	// listener notifications follow commit order.
	persistMu sync.Mutex
	listeners []Listener

	settings Settings
	loader   catalog.Loader
	sessions store.SessionRepository
	events   event.Store
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  metrics
	clock    clock.Clock
	rng      *rand.Rand
}

type metrics struct {
	draws       metric.Int64Counter
	sales       metric.Int64Counter
	pointsSpent metric.Int64Counter
	undos       metric.Int64Counter
	resets      metric.Int64Counter
}

func newMetrics(mp metric.MeterProvider) (metrics, error) {
	meter := mp.Meter(instrumentationName)
	var (
		m   metrics
		err error
	)
	if m.draws, err = meter.Int64Counter("auction.draws", metric.WithDescription("Players drawn onto the block")); err != nil {
		return m, err
	}
	if m.sales, err = meter.Int64Counter("auction.sales", metric.WithDescription("Players sold")); err != nil {
		return m, err
	}
	if m.pointsSpent, err = meter.Int64Counter("auction.points_spent", metric.WithDescription("Points spent on sales")); err != nil {
		return m, err
	}
	if m.undos, err = meter.Int64Counter("auction.undos", metric.WithDescription("Sales undone")); err != nil {
		return m, err
	}
	if m.resets, err = meter.Int64Counter("auction.resets", metric.WithDescription("Auction resets")); err != nil {
		return m, err
	}
	return m, nil
}

// NewEngine builds an engine and brings up its session, restoring the most
// recently saved one when it is still consistent with the catalog.
func NewEngine(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Loader == nil {
		return nil, errors.New("auction: catalog loader is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = otel.GetTracerProvider()
	}
	if opts.MeterProvider == nil {
		opts.MeterProvider = otel.GetMeterProvider()
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if opts.Settings.UndoPolicy == "" {
		opts.Settings.UndoPolicy = UndoToIdle
	}

	m, err := newMetrics(opts.MeterProvider)
	if err != nil {
		return nil, fmt.Errorf("creating metrics: %w", err)
	}

	e := &Engine{
		settings: opts.Settings,
		loader:   opts.Loader,
		sessions: opts.Sessions,
		events:   opts.Events,
		logger:   opts.Logger,
		tracer:   opts.TracerProvider.Tracer(instrumentationName),
		metrics:  m,
		clock:    opts.Clock,
		rng:      opts.Rand,
	}
	if _, err := e.Restore(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// Subscribe registers l for change notifications.
func (e *Engine) Subscribe(l Listener) {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()
	e.listeners = append(e.listeners, l)
}

// change is what a mutation reports when it commits.
type change struct {
	typ    event.Type
	data   any
	player *catalog.Player
	team   string
	points int
}

// mutate runs fn under the write lock. A nil change means nothing happened and
// no version is spent.
func (e *Engine) mutate(ctx context.Context, fn func() (*change, error)) (*Snapshot, error) {
	e.mu.Lock()
	ch, err := fn()
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	s := e.s
	if ch == nil {
		snap := s.snapshot()
		e.mu.Unlock()
		return snap, nil
	}

	s.version++
	snap := s.snapshot()
	state, encErr := s.encode()
	data, dataErr := json.Marshal(ch.data)
	ev := event.Event{
		SessionID: s.id,
		Type:      ch.typ,
		Data:      data,
		Version:   s.version,
		CreatedAt: e.clock.Now().UTC(),
	}

	e.persistMu.Lock()
	e.mu.Unlock()
	defer e.persistMu.Unlock()

	ctx = context.WithoutCancel(ctx)
	logger := telemetry.LogWithTrace(ctx, e.logger)
	if encErr != nil {
		logger.ErrorContext(ctx, "failed to encode auction session", slog.Any("error", encErr))
	} else {
		e.save(ctx, logger, &store.Session{ID: s.id, State: state, Version: s.version})
	}
	switch {
	case e.events == nil:
	case dataErr != nil:
		logger.ErrorContext(ctx, "failed to encode auction event",
			slog.String("session_id", s.id),
			slog.String("type", string(ch.typ)),
			slog.Any("error", dataErr),
		)
	default:
		if err := e.events.Append(ctx, ev); err != nil {
			logger.ErrorContext(ctx, "failed to persist auction event",
				slog.String("session_id", s.id),
				slog.String("type", string(ch.typ)),
				slog.Any("error", err),
			)
		}
	}

	c := Change{Type: ch.typ, Player: ch.player, Team: ch.team, Points: ch.points, Snapshot: snap}
	for _, l := range e.listeners {
		l.AuctionChanged(ctx, c)
	}
	return snap, nil
}

func (e *Engine) save(ctx context.Context, logger *slog.Logger, rec *store.Session) {
	if e.sessions == nil {
		return
	}
	if err := e.sessions.Save(ctx, rec); err != nil {
		logger.ErrorContext(ctx, "failed to persist auction session",
			slog.String("session_id", rec.ID),
			slog.Int("version", rec.Version),
			slog.Any("error", err),
		)
	}
}

func (e *Engine) loadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	cat, err := e.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogLoad, err)
	}
	return cat, nil
}

// Reset reloads the catalog and starts a fresh session: every player unsold,
// every team at its starting budget, nothing on the block, nothing to undo.
// If the catalog cannot be loaded the current session is kept untouched.
func (e *Engine) Reset(ctx context.Context) (*Snapshot, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.Reset")
	defer span.End()

	cat, err := e.loadCatalog(ctx)
	if err != nil {
		e.logger.ErrorContext(ctx, "reset aborted", slog.Any("error", err))
		return nil, err
	}
	return e.reset(ctx, cat)
}

func (e *Engine) reset(ctx context.Context, cat *catalog.Catalog) (*Snapshot, error) {
	snap, err := e.mutate(ctx, func() (*change, error) {
		s, err := newSession(uuid.NewString(), cat, e.settings, e.rng)
		if err != nil {
			return nil, err
		}
		e.s = s
		return &change{
			typ: event.AuctionReset,
			data: event.ResetData{
				Players: cat.Len(),
				Teams:   e.settings.Teams,
				Points:  e.settings.InitialPoints,
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	e.metrics.resets.Add(ctx, 1)
	e.logger.InfoContext(ctx, "auction reset",
		slog.String("session_id", snap.SessionID),
		slog.Int("players", snap.TotalPlayers),
		slog.Int("teams", len(snap.Teams)),
	)
	return snap, nil
}

// Restore replaces the in-memory session with the most recently saved one.
// When nothing is saved, or the saved state no longer matches the catalog or
// the configured teams, it falls back to a fresh Reset. A failed read returns
// ErrSessionUnavailable and leaves the engine untouched.
func (e *Engine) Restore(ctx context.Context) (*Snapshot, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.Restore")
	defer span.End()

	cat, err := e.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}

	restored, err := e.latestSession(ctx, cat)
	if err != nil {
		return nil, err
	}
	if restored == nil {
		return e.reset(ctx, cat)
	}

	e.mu.Lock()
	e.s = restored
	snap := restored.snapshot()
	e.persistMu.Lock()
	e.mu.Unlock()
	defer e.persistMu.Unlock()

	e.logger.InfoContext(ctx, "auction session restored",
		slog.String("session_id", snap.SessionID),
		slog.Int("version", snap.Version),
		slog.Int("sold", snap.SoldPlayers),
		slog.Int("unsold", len(snap.Unsold)),
	)
	c := Change{Type: event.SessionRestored, Snapshot: snap}
	for _, l := range e.listeners {
		l.AuctionChanged(ctx, c)
	}
	return snap, nil
}

func (e *Engine) latestSession(ctx context.Context, cat *catalog.Catalog) (*session, error) {
	if e.sessions == nil {
		return nil, nil
	}
	rec, err := e.sessions.Latest(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionUnavailable, err)
	}
	s, err := decodeSession(rec.State, cat, e.settings, e.rng)
	if err != nil {
		e.logger.WarnContext(ctx, "discarding saved session",
			slog.String("session_id", rec.ID),
			slog.Any("error", err),
		)
		return nil, nil
	}
	return s, nil
}

// NextPlayer puts a random unsold player on the block. A player already there
// goes back to the pool first. It returns nil once the pool is empty, and the
// auction is then complete.
func (e *Engine) NextPlayer(ctx context.Context) (*catalog.Player, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.NextPlayer")
	defer span.End()

	snap, err := e.mutate(ctx, func() (*change, error) {
		s := e.s
		id, ok := s.pool.Draw()
		if !ok {
			if s.phase == PhaseComplete {
				return nil, nil
			}
			s.phase = PhaseComplete
			return &change{typ: event.AuctionCompleted, data: struct{}{}}, nil
		}
		p, _ := s.catalog.Get(id)
		s.phase = PhaseRunning
		return &change{
			typ:    event.PlayerDrawn,
			data:   event.PlayerData{PlayerID: p.ID, PlayerName: p.PlayerName},
			player: &p,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	if snap.Current == nil {
		e.logger.InfoContext(ctx, "no players remain", slog.String("session_id", snap.SessionID))
		return nil, nil
	}

	e.metrics.draws.Add(ctx, 1)
	span.SetAttributes(attribute.Int("player.id", snap.Current.ID))
	e.logger.InfoContext(ctx, "player drawn",
		slog.Int("player_id", snap.Current.ID),
		slog.String("player_name", snap.Current.PlayerName),
		slog.Int("unsold", len(snap.Unsold)),
	)
	return snap.Current, nil
}

// Skip returns the player on the block to the pool. Skips cannot be undone and
// leave the last sale undoable.
func (e *Engine) Skip(ctx context.Context) (*Snapshot, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.Skip")
	defer span.End()

	var skipped catalog.Player
	snap, err := e.mutate(ctx, func() (*change, error) {
		s := e.s
		p, ok := s.current()
		if !ok {
			return nil, ErrNoCurrentPlayer
		}
		s.pool.ReturnCurrent()
		skipped = p
		return &change{
			typ:    event.PlayerSkipped,
			data:   event.PlayerData{PlayerID: p.ID, PlayerName: p.PlayerName},
			player: &p,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.InfoContext(ctx, "player skipped", slog.Int("player_id", skipped.ID))
	return snap, nil
}

// Sell assigns the player on the block to team for points. A non-zero
// playerID must match the player on the block.
func (e *Engine) Sell(ctx context.Context, playerID int, team string, points int) (*Snapshot, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.Sell",
		trace.WithAttributes(
			attribute.Int("player.id", playerID),
			attribute.String("team", team),
			attribute.Int("points", points),
		),
	)
	defer span.End()

	var sold catalog.Player
	snap, err := e.mutate(ctx, func() (*change, error) {
		s := e.s
		p, ok := s.current()
		if !ok {
			return nil, ErrNoCurrentPlayer
		}
		if playerID != 0 && playerID != p.ID {
			return nil, fmt.Errorf("%w: got %d, on the block is %d", ErrPlayerMismatch, playerID, p.ID)
		}
		if points < 0 {
			return nil, fmt.Errorf("%w: %d is negative", ErrInvalidPoints, points)
		}
		if err := s.ledger.Debit(team, p.ID, points); err != nil {
			return nil, err
		}
		s.pool.ClearCurrent()

		tx := Transaction{
			ID:       uuid.NewString(),
			Kind:     TransactionSell,
			PlayerID: p.ID,
			Team:     team,
			Points:   points,
			At:       e.clock.Now().UTC(),
		}
		s.log.record(tx)
		sold = p
		return &change{
			typ:    event.PlayerSold,
			data:   event.SaleData{TransactionID: tx.ID, PlayerID: p.ID, Team: team, Points: points},
			player: &p,
			team:   team,
			points: points,
		}, nil
	})
	if err != nil {
		e.logger.WarnContext(ctx, "sale rejected",
			slog.String("team", team),
			slog.Int("points", points),
			slog.Any("error", err),
		)
		return nil, err
	}

	attrs := metric.WithAttributes(attribute.String("team", team))
	e.metrics.sales.Add(ctx, 1, attrs)
	e.metrics.pointsSpent.Add(ctx, int64(points), attrs)
	e.logger.InfoContext(ctx, "player sold",
		slog.Int("player_id", sold.ID),
		slog.String("player_name", sold.PlayerName),
		slog.String("team", team),
		slog.Int("points", points),
	)
	return snap, nil
}

// Undo reverses the most recent sale. Only one sale is remembered, so a second
// consecutive Undo fails with ErrNothingToUndo.
func (e *Engine) Undo(ctx context.Context) (*Snapshot, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.Undo")
	defer span.End()

	var undone Transaction
	snap, err := e.mutate(ctx, func() (*change, error) {
		s := e.s
		tx, ok := s.log.peek()
		if !ok {
			return nil, ErrNothingToUndo
		}
		if err := s.ledger.Credit(tx.Team, tx.PlayerID, tx.Points); err != nil {
			return nil, err
		}
		if e.settings.UndoPolicy == UndoToBlock {
			s.pool.SetCurrent(tx.PlayerID)
		} else {
			s.pool.Add(tx.PlayerID)
		}
		s.log.clear()
		if s.phase == PhaseComplete {
			s.phase = PhaseRunning
		}
		undone = tx
		p, _ := s.catalog.Get(tx.PlayerID)
		return &change{
			typ:    event.SaleUndone,
			data:   event.SaleData{TransactionID: tx.ID, PlayerID: tx.PlayerID, Team: tx.Team, Points: tx.Points},
			player: &p,
			team:   tx.Team,
			points: tx.Points,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	e.metrics.undos.Add(ctx, 1)
	e.logger.InfoContext(ctx, "sale undone",
		slog.Int("player_id", undone.PlayerID),
		slog.String("team", undone.Team),
		slog.Int("points", undone.Points),
		slog.String("policy", string(e.settings.UndoPolicy)),
	)
	return snap, nil
}

// SelectPlayer puts a specific player on the block. A sold player is first
// taken off its team with a full refund, so it can be auctioned again.
func (e *Engine) SelectPlayer(ctx context.Context, playerID int) (*Snapshot, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.SelectPlayer",
		trace.WithAttributes(attribute.Int("player.id", playerID)),
	)
	defer span.End()

	var origin string
	snap, err := e.mutate(ctx, func() (*change, error) {
		s := e.s
		p, ok := s.catalog.Get(playerID)
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownPlayer, playerID)
		}
		data := event.PlayerData{PlayerID: p.ID, PlayerName: p.PlayerName}

		switch s.pool.Locate(playerID) {
		case pool.OriginCurrent:
			return nil, nil
		case pool.OriginUnsold:
			s.pool.Remove(playerID)
			origin = pool.OriginUnsold.String()
		default:
			team, owned := s.ledger.Owner(playerID)
			if !owned {
				return nil, fmt.Errorf("%w: player %d is nowhere", ErrPlayerNotOnRoster, playerID)
			}
			refund, err := s.ledger.Release(team, playerID)
			if err != nil {
				return nil, err
			}
			s.log.clear()
			data.Team, data.Points = team, refund.Points
			origin = team
		}
		s.pool.SetCurrent(playerID)
		s.phase = PhaseRunning
		return &change{typ: event.PlayerSelected, data: data, player: &p, team: data.Team, points: data.Points}, nil
	})
	if err != nil {
		return nil, err
	}
	if origin != "" {
		e.logger.InfoContext(ctx, "player selected",
			slog.Int("player_id", playerID),
			slog.String("from", origin),
		)
	}
	return snap, nil
}

// Unsell takes a sold player off team, refunds what was paid and returns the
// player to the pool. An empty team means whichever team holds the player.
func (e *Engine) Unsell(ctx context.Context, playerID int, team string) (*Snapshot, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.Unsell",
		trace.WithAttributes(
			attribute.Int("player.id", playerID),
			attribute.String("team", team),
		),
	)
	defer span.End()

	var refund ledger.Purchase
	snap, err := e.mutate(ctx, func() (*change, error) {
		s := e.s
		p, ok := s.catalog.Get(playerID)
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownPlayer, playerID)
		}
		if team == "" {
			owner, owned := s.ledger.Owner(playerID)
			if !owned {
				return nil, fmt.Errorf("%w: player %d is not sold", ErrPlayerNotOnRoster, playerID)
			}
			team = owner
		}
		var err error
		if refund, err = s.ledger.Release(team, playerID); err != nil {
			return nil, err
		}
		s.pool.Add(playerID)
		s.log.clear()
		if s.phase == PhaseComplete {
			s.phase = PhaseRunning
		}
		return &change{
			typ:    event.PlayerUnsold,
			data:   event.PlayerData{PlayerID: p.ID, PlayerName: p.PlayerName, Team: team, Points: refund.Points},
			player: &p,
			team:   team,
			points: refund.Points,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.InfoContext(ctx, "player unsold",
		slog.Int("player_id", playerID),
		slog.String("team", team),
		slog.Int("refund", refund.Points),
	)
	return snap, nil
}

// TransferSale moves a sold player to another team at a new price. The old
// team is refunded; on any failure nothing changes.
func (e *Engine) TransferSale(ctx context.Context, playerID int, fromTeam, toTeam string, points int) (*Snapshot, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.TransferSale",
		trace.WithAttributes(
			attribute.Int("player.id", playerID),
			attribute.String("from_team", fromTeam),
			attribute.String("to_team", toTeam),
			attribute.Int("points", points),
		),
	)
	defer span.End()

	snap, err := e.mutate(ctx, func() (*change, error) {
		s := e.s
		p, ok := s.catalog.Get(playerID)
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownPlayer, playerID)
		}
		if fromTeam == "" {
			owner, owned := s.ledger.Owner(playerID)
			if !owned {
				return nil, fmt.Errorf("%w: player %d is not sold", ErrPlayerNotOnRoster, playerID)
			}
			fromTeam = owner
		}
		if points < 0 {
			return nil, fmt.Errorf("%w: %d is negative", ErrInvalidPoints, points)
		}
		if err := s.ledger.Transfer(playerID, fromTeam, toTeam, points); err != nil {
			return nil, err
		}
		s.log.clear()
		return &change{
			typ:    event.SaleTransferred,
			data:   event.TransferData{PlayerID: p.ID, FromTeam: fromTeam, ToTeam: toTeam, Points: points},
			player: &p,
			team:   toTeam,
			points: points,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.InfoContext(ctx, "sale transferred",
		slog.Int("player_id", playerID),
		slog.String("from_team", fromTeam),
		slog.String("to_team", toTeam),
		slog.Int("points", points),
	)
	return snap, nil
}

// Snapshot returns the current state.
func (e *Engine) Snapshot(ctx context.Context) *Snapshot {
	_, span := e.tracer.Start(ctx, "Engine.Snapshot")
	defer span.End()

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.s.snapshot()
}

// Teams returns every team ordered by name.
func (e *Engine) Teams(ctx context.Context) []ledger.Team {
	_, span := e.tracer.Start(ctx, "Engine.Teams")
	defer span.End()

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.s.ledger.Teams()
}

// Current returns the player on the block, or nil.
func (e *Engine) Current(ctx context.Context) *catalog.Player {
	_, span := e.tracer.Start(ctx, "Engine.Current")
	defer span.End()

	e.mu.RLock()
	defer e.mu.RUnlock()
	if p, ok := e.s.current(); ok {
		return &p
	}
	return nil
}

// Export returns the snapshot and the catalog it was taken from, read
// together so every id in the snapshot resolves in the catalog.
func (e *Engine) Export(ctx context.Context) (*Snapshot, *catalog.Catalog) {
	_, span := e.tracer.Start(ctx, "Engine.Export")
	defer span.End()

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.s.snapshot(), e.s.catalog
}

// Search finds players whose name contains query (case-insensitive) or whose
// id equals it. With unsoldOnly, only players waiting in the pool match.
func (e *Engine) Search(ctx context.Context, query string, unsoldOnly bool) []SearchResult {
	_, span := e.tracer.Start(ctx, "Engine.Search",
		trace.WithAttributes(attribute.String("query", query)),
	)
	defer span.End()

	e.mu.RLock()
	defer e.mu.RUnlock()
	s := e.s

	var include func(int) bool
	if unsoldOnly {
		include = func(id int) bool { return s.pool.Locate(id) == pool.OriginUnsold }
	}
	matches := s.catalog.Search(query, e.settings.SearchLimit, include)
	out := make([]SearchResult, 0, len(matches))
	for _, p := range matches {
		out = append(out, s.result(p))
	}
	return out
}

func (s *session) result(p catalog.Player) SearchResult {
	st, team := s.status(p.ID)
	return SearchResult{ID: p.ID, PlayerName: p.PlayerName, FatherName: p.FatherName, Status: st, Team: team}
}

// History returns the audit trail of the current session, oldest first.
func (e *Engine) History(ctx context.Context) ([]event.Event, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.History")
	defer span.End()

	if e.events == nil {
		return nil, nil
	}
	e.mu.RLock()
	id := e.s.id
	e.mu.RUnlock()

	events, err := e.events.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	return events, nil
}

// Ready reports whether a session has been brought up.
func (e *Engine) Ready(_ context.Context) error {
	e.mu.RLock()
	ok := e.s != nil
	e.mu.RUnlock()
	if !ok {
		return errors.New("auction session not initialised")
	}
	return nil
}
