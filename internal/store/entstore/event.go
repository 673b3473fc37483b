package entstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jensholdgaard/auctioneer/internal/clock"
	"github.com/jensholdgaard/auctioneer/internal/event"
)

const selectEvents = `SELECT id, session_id, type, data, version, created_at FROM events`

// EventStore keeps the audit trail of auction sessions.
type EventStore struct {
	db    *sql.DB
	clock clock.Clock
}

// NewEventStore returns a new EventStore.
func NewEventStore(db *sql.DB, clk clock.Clock) *EventStore {
	return &EventStore{db: db, clock: clk}
}

// Append writes the batch as one multi-row INSERT.
func (s *EventStore) Append(ctx context.Context, events ...event.Event) error {
	if len(events) == 0 {
		return nil
	}
	now := s.clock.Now().UTC()

	var q strings.Builder
	q.WriteString(`INSERT INTO events (session_id, type, data, version, created_at) VALUES `)
	args := make([]any, 0, len(events)*5)
	for i, e := range events {
		if i > 0 {
			q.WriteString(", ")
		}
		n := len(args)
		fmt.Fprintf(&q, "($%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5)

		data := string(e.Data)
		if data == "" {
			data = "{}"
		}
		created := e.CreatedAt
		if created.IsZero() {
			created = now
		}
		args = append(args, e.SessionID, string(e.Type), data, e.Version, created)
	}

	if _, err := s.db.ExecContext(ctx, q.String(), args...); err != nil {
		first := events[0]
		return fmt.Errorf("appending %d events (session=%s, first version=%d): %w",
			len(events), first.SessionID, first.Version, err)
	}
	return nil
}

// Load returns the trail of one session in version order.
func (s *EventStore) Load(ctx context.Context, sessionID string) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectEvents+` WHERE session_id = $1 ORDER BY version`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session %s events: %w", sessionID, err)
	}
	return collect(rows)
}

// LoadByType returns events of one type across sessions, oldest first.
func (s *EventStore) LoadByType(ctx context.Context, eventType event.Type) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectEvents+` WHERE type = $1 ORDER BY created_at, id`, string(eventType))
	if err != nil {
		return nil, fmt.Errorf("loading %s events: %w", eventType, err)
	}
	return collect(rows)
}

func collect(rows *sql.Rows) ([]event.Event, error) {
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var (
			e    event.Event
			typ  string
			data []byte
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &typ, &data, &e.Version, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.Type = event.Type(typ)
		e.Data = data
		events = append(events, e)
	}
	return events, rows.Err()
}
