package auction_test

import (
	"context"
	"sync"

	"github.com/jensholdgaard/auctioneer/internal/event"
	"github.com/jensholdgaard/auctioneer/internal/store"
)

// --- mock helpers ---

type mockEventStore struct {
	mu       sync.Mutex
	events   []event.Event
	appendFn func(events ...event.Event) error
}

func (m *mockEventStore) Append(_ context.Context, events ...event.Event) error {
	if m.appendFn != nil {
		return m.appendFn(events...)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *mockEventStore) Load(_ context.Context, sessionID string) ([]event.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []event.Event
	for _, e := range m.events {
		if e.SessionID == sessionID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *mockEventStore) LoadByType(ctx context.Context, eventType event.Type) ([]event.Event, error) {
	return m.byType(eventType), nil
}

func (m *mockEventStore) byType(eventType event.Type) []event.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []event.Event
	for _, e := range m.events {
		if e.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}

type mockSessionRepo struct {
	saves   int
	saveErr error
}

func (m *mockSessionRepo) Save(_ context.Context, _ *store.Session) error {
	m.saves++
	return m.saveErr
}

func (m *mockSessionRepo) Latest(_ context.Context) (*store.Session, error) {
	return nil, store.ErrNotFound
}

// flakySessions wraps a repository and fails Latest while latestErr is set.
type flakySessions struct {
	store.SessionRepository
	mu        sync.Mutex
	latestErr error
}

func (f *flakySessions) setLatestErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latestErr = err
}

func (f *flakySessions) Latest(ctx context.Context) (*store.Session, error) {
	f.mu.Lock()
	err := f.latestErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.SessionRepository.Latest(ctx)
}
