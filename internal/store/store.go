package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jensholdgaard/auctioneer/internal/catalog"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Session is a persisted auction session. State holds the engine's encoded
// session; the store treats it as opaque.
type Session struct {
	ID        string          `db:"id"`
	State     json.RawMessage `db:"state"`
	Version   int             `db:"version"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// Player is a catalog row.
type Player struct {
	ID         int     `db:"id"`
	PlayerName string  `db:"player_name"`
	FatherName string  `db:"father_name"`
	Photo      *string `db:"photo"`
}

// ToCatalog converts a row into a catalog entry.
func (p Player) ToCatalog() catalog.Player {
	cp := catalog.Player{ID: p.ID, PlayerName: p.PlayerName, FatherName: p.FatherName}
	if p.Photo != nil {
		cp.Photo = *p.Photo
	}
	return cp
}

// PlayerFromCatalog converts a catalog entry into a row.
func PlayerFromCatalog(cp catalog.Player) Player {
	p := Player{ID: cp.ID, PlayerName: cp.PlayerName, FatherName: cp.FatherName}
	if cp.Photo != "" {
		photo := cp.Photo
		p.Photo = &photo
	}
	return p
}

// SessionRepository defines auction session persistence operations.
type SessionRepository interface {
	// Save inserts or replaces the session with s.ID.
	Save(ctx context.Context, s *Session) error
	// Latest returns the most recently saved session or ErrNotFound.
	Latest(ctx context.Context) (*Session, error)
}

// PlayerRepository defines catalog persistence operations.
type PlayerRepository interface {
	// ReplaceAll swaps the stored catalog for players atomically.
	ReplaceAll(ctx context.Context, players []Player) error
	// List returns every player ordered by id.
	List(ctx context.Context) ([]Player, error)
}

// CatalogLoader is a catalog.Loader reading players from a PlayerRepository.
type CatalogLoader struct {
	Players PlayerRepository
}

// Load lists stored players and builds a catalog from them.
func (l CatalogLoader) Load(ctx context.Context) (*catalog.Catalog, error) {
	rows, err := l.Players.List(ctx)
	if err != nil {
		return nil, err
	}
	players := make([]catalog.Player, len(rows))
	for i, r := range rows {
		players[i] = r.ToCatalog()
	}
	return catalog.New(players)
}

// ImportCatalog stores every player of c, replacing the previous catalog.
func ImportCatalog(ctx context.Context, repo PlayerRepository, c *catalog.Catalog) error {
	players := c.Players()
	rows := make([]Player, len(players))
	for i, p := range players {
		rows[i] = PlayerFromCatalog(p)
	}
	return repo.ReplaceAll(ctx, rows)
}
