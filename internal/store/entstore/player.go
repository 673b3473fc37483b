package entstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/jensholdgaard/auctioneer/internal/store"
)

// PlayerRepo stores the player catalog.
type PlayerRepo struct {
	db *sql.DB
}

// NewPlayerRepo returns a new PlayerRepo.
func NewPlayerRepo(db *sql.DB) *PlayerRepo {
	return &PlayerRepo{db: db}
}

// ReplaceAll swaps the catalog in one transaction, sending the rows as
// parallel arrays so the import is a single statement.
func (r *PlayerRepo) ReplaceAll(ctx context.Context, players []store.Player) error {
	ids := make(pq.Int64Array, len(players))
	names := make(pq.StringArray, len(players))
	fathers := make(pq.StringArray, len(players))
	photos := make([]sql.NullString, len(players))
	for i, p := range players {
		ids[i] = int64(p.ID)
		names[i] = p.PlayerName
		fathers[i] = p.FatherName
		if p.Photo != nil {
			photos[i] = sql.NullString{String: *p.Photo, Valid: true}
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning catalog import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `TRUNCATE players`); err != nil {
		return fmt.Errorf("clearing catalog: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO players (id, player_name, father_name, photo)
		 SELECT * FROM unnest($1::integer[], $2::text[], $3::text[], $4::text[])`,
		ids, names, fathers, pq.Array(photos),
	); err != nil {
		return fmt.Errorf("importing %d players: %w", len(players), err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing catalog import: %w", err)
	}
	return nil
}

// List returns the catalog ordered by player id.
func (r *PlayerRepo) List(ctx context.Context) ([]store.Player, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, player_name, father_name, photo FROM players ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing catalog: %w", err)
	}
	defer rows.Close()

	players := []store.Player{}
	for rows.Next() {
		var (
			p     store.Player
			photo sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.PlayerName, &p.FatherName, &photo); err != nil {
			return nil, fmt.Errorf("scanning player: %w", err)
		}
		if photo.Valid {
			p.Photo = &photo.String
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing catalog: %w", err)
	}
	return players, nil
}
