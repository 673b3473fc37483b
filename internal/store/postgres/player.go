package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jensholdgaard/auctioneer/internal/store"
)

// PlayerRepo stores the player catalog.
type PlayerRepo struct {
	db *sqlx.DB
}

// NewPlayerRepo returns a new PlayerRepo.
func NewPlayerRepo(db *sqlx.DB) *PlayerRepo {
	return &PlayerRepo{db: db}
}

// ReplaceAll swaps the catalog for players in a single transaction.
func (r *PlayerRepo) ReplaceAll(ctx context.Context, players []store.Player) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning catalog import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `TRUNCATE players`); err != nil {
		return fmt.Errorf("clearing catalog: %w", err)
	}
	if len(players) > 0 {
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO players (id, player_name, father_name, photo)
			 VALUES (:id, :player_name, :father_name, :photo)`, players); err != nil {
			return fmt.Errorf("importing %d players: %w", len(players), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing catalog import: %w", err)
	}
	return nil
}

// List returns the catalog ordered by player id.
func (r *PlayerRepo) List(ctx context.Context) ([]store.Player, error) {
	players := []store.Player{}
	if err := r.db.SelectContext(ctx, &players,
		`SELECT id, player_name, father_name, photo FROM players ORDER BY id`); err != nil {
		return nil, fmt.Errorf("listing catalog: %w", err)
	}
	return players, nil
}
