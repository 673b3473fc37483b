package entstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jensholdgaard/auctioneer/internal/clock"
	"github.com/jensholdgaard/auctioneer/internal/store"
)

// SessionRepo implements store.SessionRepository using database/sql.
type SessionRepo struct {
	db    *sql.DB
	clock clock.Clock
}

// NewSessionRepo returns a new SessionRepo.
func NewSessionRepo(db *sql.DB, clk clock.Clock) *SessionRepo {
	return &SessionRepo{db: db, clock: clk}
}

func (r *SessionRepo) Save(ctx context.Context, s *store.Session) error {
	now := r.clock.Now().UTC()
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO sessions (id, state, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4)
		 ON CONFLICT (id) DO UPDATE
		 SET state = EXCLUDED.state, version = EXCLUDED.version, updated_at = EXCLUDED.updated_at
		 RETURNING created_at, updated_at`,
		s.ID, string(s.State), s.Version, now,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

func (r *SessionRepo) Latest(ctx context.Context) (*store.Session, error) {
	s := &store.Session{}
	var state []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT id, state, version, created_at, updated_at
		 FROM sessions ORDER BY updated_at DESC LIMIT 1`,
	).Scan(&s.ID, &state, &s.Version, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting latest session: %w", err)
	}
	s.State = state
	return s, nil
}
