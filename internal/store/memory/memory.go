// Package memory provides a store.Driver that keeps everything in process
// memory. State does not survive a restart.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/jensholdgaard/auctioneer/internal/clock"
	"github.com/jensholdgaard/auctioneer/internal/config"
	"github.com/jensholdgaard/auctioneer/internal/event"
	"github.com/jensholdgaard/auctioneer/internal/store"
)

func init() {
	store.Register("memory", func(_ context.Context, _ config.DatabaseConfig, clk clock.Clock) (*store.Repositories, error) {
		return New(clk), nil
	})
}

// New returns in-memory Repositories.
func New(clk clock.Clock) *store.Repositories {
	return &store.Repositories{
		Players:  &PlayerRepo{},
		Sessions: &SessionRepo{clock: clk},
		Events:   &EventStore{clock: clk},
		Closer:   store.CloserFunc(func() error { return nil }),
		Ping:     func(context.Context) error { return nil },
	}
}

// SessionRepo implements store.SessionRepository in memory.
type SessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]store.Session
	latest   string
	clock    clock.Clock
}

func (r *SessionRepo) Save(_ context.Context, s *store.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sessions == nil {
		r.sessions = make(map[string]store.Session)
	}
	now := r.clock.Now().UTC()
	if prev, ok := r.sessions[s.ID]; ok {
		s.CreatedAt = prev.CreatedAt
	} else {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	stored := *s
	stored.State = slices.Clone(s.State)
	r.sessions[s.ID] = stored
	r.latest = s.ID
	return nil
}

func (r *SessionRepo) Latest(_ context.Context) (*store.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[r.latest]
	if !ok {
		return nil, store.ErrNotFound
	}
	s.State = slices.Clone(s.State)
	return &s, nil
}

// PlayerRepo implements store.PlayerRepository in memory.
type PlayerRepo struct {
	mu      sync.RWMutex
	players []store.Player
}

func (r *PlayerRepo) ReplaceAll(_ context.Context, players []store.Player) error {
	sorted := slices.Clone(players)
	slices.SortFunc(sorted, func(a, b store.Player) int { return a.ID - b.ID })

	r.mu.Lock()
	defer r.mu.Unlock()
	r.players = sorted
	return nil
}

func (r *PlayerRepo) List(_ context.Context) ([]store.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.players), nil
}

// EventStore implements event.Store in memory.
type EventStore struct {
	mu     sync.RWMutex
	events []event.Event
	clock  clock.Clock
}

func (s *EventStore) Append(_ context.Context, events ...event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	type key struct {
		session string
		version int
	}
	taken := make(map[key]struct{}, len(s.events))
	for _, e := range s.events {
		taken[key{e.SessionID, e.Version}] = struct{}{}
	}
	for _, e := range events {
		k := key{e.SessionID, e.Version}
		if _, dup := taken[k]; dup {
			return fmt.Errorf("inserting event (session=%s, version=%d): duplicate version", e.SessionID, e.Version)
		}
		taken[k] = struct{}{}
	}

	for _, e := range events {
		e.ID = strconv.Itoa(len(s.events) + 1)
		if e.CreatedAt.IsZero() {
			e.CreatedAt = s.clock.Now().UTC()
		}
		s.events = append(s.events, e)
	}
	return nil
}

func (s *EventStore) Load(_ context.Context, sessionID string) ([]event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []event.Event
	for _, e := range s.events {
		if e.SessionID == sessionID {
			result = append(result, e)
		}
	}
	slices.SortStableFunc(result, func(a, b event.Event) int { return a.Version - b.Version })
	return result, nil
}

func (s *EventStore) LoadByType(_ context.Context, eventType event.Type) ([]event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []event.Event
	for _, e := range s.events {
		if e.Type == eventType {
			result = append(result, e)
		}
	}
	return result, nil
}
