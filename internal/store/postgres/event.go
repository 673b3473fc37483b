package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jensholdgaard/auctioneer/internal/clock"
	"github.com/jensholdgaard/auctioneer/internal/event"
)

const eventColumns = `id, session_id, type, data, version, created_at`

// eventRow is the insert shape of an event. JSONB is sent as text.
type eventRow struct {
	SessionID string     `db:"session_id"`
	Type      event.Type `db:"type"`
	Data      string     `db:"data"`
	Version   int        `db:"version"`
	CreatedAt time.Time  `db:"created_at"`
}

// EventStore keeps the audit trail of auction sessions in Postgres.
type EventStore struct {
	db    *sqlx.DB
	clock clock.Clock
}

// NewEventStore returns a new EventStore.
func NewEventStore(db *sqlx.DB, clk clock.Clock) *EventStore {
	return &EventStore{db: db, clock: clk}
}

// Append inserts all events in one statement, so a duplicate
// (session_id, version) rejects the whole batch.
func (s *EventStore) Append(ctx context.Context, events ...event.Event) error {
	if len(events) == 0 {
		return nil
	}
	now := s.clock.Now().UTC()
	rows := make([]eventRow, 0, len(events))
	for _, e := range events {
		data := string(e.Data)
		if data == "" {
			data = "{}"
		}
		created := e.CreatedAt
		if created.IsZero() {
			created = now
		}
		rows = append(rows, eventRow{
			SessionID: e.SessionID,
			Type:      e.Type,
			Data:      data,
			Version:   e.Version,
			CreatedAt: created,
		})
	}

	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO events (session_id, type, data, version, created_at)
		 VALUES (:session_id, :type, :data, :version, :created_at)`, rows)
	if err != nil {
		first := events[0]
		return fmt.Errorf("appending %d events (session=%s, first version=%d): %w",
			len(events), first.SessionID, first.Version, err)
	}
	return nil
}

// Load returns the trail of one session in version order.
func (s *EventStore) Load(ctx context.Context, sessionID string) ([]event.Event, error) {
	var events []event.Event
	err := s.db.SelectContext(ctx, &events,
		`SELECT `+eventColumns+` FROM events WHERE session_id = $1 ORDER BY version ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session %s events: %w", sessionID, err)
	}
	return events, nil
}

// LoadByType returns events of one type across sessions, oldest first.
func (s *EventStore) LoadByType(ctx context.Context, eventType event.Type) ([]event.Event, error) {
	var events []event.Event
	err := s.db.SelectContext(ctx, &events,
		`SELECT `+eventColumns+` FROM events WHERE type = $1 ORDER BY created_at ASC, id ASC`, eventType)
	if err != nil {
		return nil, fmt.Errorf("loading %s events: %w", eventType, err)
	}
	return events, nil
}
