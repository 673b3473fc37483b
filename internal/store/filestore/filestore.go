// Package filestore provides a store.Driver that keeps auction state in JSON
// files under a directory. It suits single-machine deployments without a
// database.
package filestore

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"github.com/jensholdgaard/auctioneer/internal/clock"
	"github.com/jensholdgaard/auctioneer/internal/config"
	"github.com/jensholdgaard/auctioneer/internal/event"
	"github.com/jensholdgaard/auctioneer/internal/store"
)

const (
	sessionFile = "auction_state.json"
	eventsFile  = "events.jsonl"
	playersFile = "players.json"
)

func init() {
	store.Register("file", func(_ context.Context, cfg config.DatabaseConfig, clk clock.Clock) (*store.Repositories, error) {
		return Open(cfg.Path, clk)
	})
}

// Open prepares dir and returns Repositories backed by files inside it.
func Open(dir string, clk clock.Clock) (*store.Repositories, error) {
	if dir == "" {
		return nil, errors.New("file store: path is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	ping := func(context.Context) error {
		_, err := os.Stat(dir)
		return err
	}
	return &store.Repositories{
		Players:  &PlayerRepo{path: filepath.Join(dir, playersFile)},
		Sessions: &SessionRepo{path: filepath.Join(dir, sessionFile), clock: clk},
		Events:   &EventStore{path: filepath.Join(dir, eventsFile), clock: clk},
		Closer:   store.CloserFunc(func() error { return nil }),
		Ping:     ping,
	}, nil
}

// writeAtomic replaces path with data via a temp file and rename.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// SessionRepo implements store.SessionRepository with a single JSON file.
// Only the latest session is kept.
type SessionRepo struct {
	mu    sync.Mutex
	path  string
	clock clock.Clock
}

func (r *SessionRepo) Save(_ context.Context, s *store.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now().UTC()
	s.CreatedAt = now
	if prev, err := r.read(); err == nil && prev.ID == s.ID {
		s.CreatedAt = prev.CreatedAt
	}
	s.UpdatedAt = now

	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := writeAtomic(r.path, data); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}

func (r *SessionRepo) Latest(_ context.Context) (*store.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read()
}

func (r *SessionRepo) read() (*store.Session, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}
	var s store.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding session file: %w", err)
	}
	return &s, nil
}

// PlayerRepo implements store.PlayerRepository with a JSON file.
type PlayerRepo struct {
	mu   sync.Mutex
	path string
}

func (r *PlayerRepo) ReplaceAll(_ context.Context, players []store.Player) error {
	sorted := slices.Clone(players)
	slices.SortFunc(sorted, func(a, b store.Player) int { return a.ID - b.ID })

	data, err := json.MarshalIndent(sorted, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding players: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := writeAtomic(r.path, data); err != nil {
		return fmt.Errorf("writing players file: %w", err)
	}
	return nil
}

func (r *PlayerRepo) List(_ context.Context) ([]store.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading players file: %w", err)
	}
	var players []store.Player
	if err := json.Unmarshal(data, &players); err != nil {
		return nil, fmt.Errorf("decoding players file: %w", err)
	}
	return players, nil
}

// EventStore implements event.Store as an append-only JSON lines file.
// The count and version keys of stored events are read once and kept in
// memory, so each Append only writes its own lines.
type EventStore struct {
	mu    sync.Mutex
	path  string
	clock clock.Clock

	loaded bool
	count  int
	taken  map[eventKey]struct{}
}

type eventKey struct {
	session string
	version int
}

func (s *EventStore) Append(_ context.Context, events ...event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadIndex(); err != nil {
		return err
	}

	batch := make(map[eventKey]struct{}, len(events))
	for _, e := range events {
		k := eventKey{e.SessionID, e.Version}
		_, stored := s.taken[k]
		_, repeated := batch[k]
		if stored || repeated {
			return fmt.Errorf("inserting event (session=%s, version=%d): duplicate version", e.SessionID, e.Version)
		}
		batch[k] = struct{}{}
	}

	var buf []byte
	next := s.count + 1
	for _, e := range events {
		e.ID = strconv.Itoa(next)
		next++
		if e.CreatedAt.IsZero() {
			e.CreatedAt = s.clock.Now().UTC()
		}
		line, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encoding event (session=%s, version=%d): %w", e.SessionID, e.Version, err)
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening events file: %w", err)
	}
	if _, err := f.Write(buf); err != nil {
		f.Close()
		// A short write leaves the file ahead of the index.
		s.loaded = false
		return fmt.Errorf("appending events: %w", err)
	}
	if err := f.Close(); err != nil {
		s.loaded = false
		return err
	}

	s.count += len(events)
	for k := range batch {
		s.taken[k] = struct{}{}
	}
	return nil
}

// loadIndex reads the file once to learn the stored count and keys.
func (s *EventStore) loadIndex() error {
	if s.loaded {
		return nil
	}
	all, err := s.readAll()
	if err != nil {
		return err
	}
	s.taken = make(map[eventKey]struct{}, len(all))
	for _, e := range all {
		s.taken[eventKey{e.SessionID, e.Version}] = struct{}{}
	}
	s.count = len(all)
	s.loaded = true
	return nil
}

func (s *EventStore) Load(_ context.Context, sessionID string) ([]event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return nil, err
	}
	var result []event.Event
	for _, e := range all {
		if e.SessionID == sessionID {
			result = append(result, e)
		}
	}
	slices.SortStableFunc(result, func(a, b event.Event) int { return a.Version - b.Version })
	return result, nil
}

func (s *EventStore) LoadByType(_ context.Context, eventType event.Type) ([]event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return nil, err
	}
	var result []event.Event
	for _, e := range all {
		if e.Type == eventType {
			result = append(result, e)
		}
	}
	return result, nil
}

func (s *EventStore) readAll() ([]event.Event, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening events file: %w", err)
	}
	defer f.Close()

	var events []event.Event
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e event.Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("decoding event line: %w", err)
		}
		events = append(events, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning events file: %w", err)
	}
	return events, nil
}
