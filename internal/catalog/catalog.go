// Package catalog holds the immutable set of players that can be put up for
// auction.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Errors returned while building a catalog.
var (
	ErrDuplicateID = errors.New("duplicate player id")
	ErrInvalidID   = errors.New("player id must be positive")
	ErrMissingName = errors.New("player name is required")
)

// Player is a single catalog entry. Records never change after load.
type Player struct {
	ID         int    `json:"id"`
	PlayerName string `json:"player_name"`
	FatherName string `json:"father_name"`
	Photo      string `json:"photo,omitempty"`
}

// Catalog is an ordered, read-only set of players keyed by id.
type Catalog struct {
	players []Player
	byID    map[int]int
}

// New validates players and builds a Catalog preserving their order.
func New(players []Player) (*Catalog, error) {
	c := &Catalog{
		players: make([]Player, 0, len(players)),
		byID:    make(map[int]int, len(players)),
	}
	for i, p := range players {
		if p.ID <= 0 {
			return nil, fmt.Errorf("entry %d: %w", i, ErrInvalidID)
		}
		if strings.TrimSpace(p.PlayerName) == "" {
			return nil, fmt.Errorf("entry %d (id %d): %w", i, p.ID, ErrMissingName)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("entry %d: %w: %d", i, ErrDuplicateID, p.ID)
		}
		c.byID[p.ID] = len(c.players)
		c.players = append(c.players, p)
	}
	return c, nil
}

// Len returns the number of players.
func (c *Catalog) Len() int { return len(c.players) }

// Get returns the player with the given id.
func (c *Catalog) Get(id int) (Player, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return Player{}, false
	}
	return c.players[idx], true
}

// Contains reports whether id is in the catalog.
func (c *Catalog) Contains(id int) bool {
	_, ok := c.byID[id]
	return ok
}

// IDs returns every player id in catalog order.
func (c *Catalog) IDs() []int {
	ids := make([]int, len(c.players))
	for i, p := range c.players {
		ids[i] = p.ID
	}
	return ids
}

// Players returns a copy of all players in catalog order.
func (c *Catalog) Players() []Player {
	return slices.Clone(c.players)
}

// Search returns up to limit players whose name contains query
// (case-insensitive) or whose id equals query. Players rejected by include are
// skipped; a nil include accepts everyone. A limit <= 0 means no bound.
func (c *Catalog) Search(query string, limit int, include func(id int) bool) []Player {
	q := strings.ToLower(strings.TrimSpace(query))
	id, idErr := strconv.Atoi(q)

	var out []Player
	for _, p := range c.players {
		if include != nil && !include(p.ID) {
			continue
		}
		if !strings.Contains(strings.ToLower(p.PlayerName), q) && (idErr != nil || p.ID != id) {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Loader produces a fresh Catalog. It is called at startup and on every reset.
type Loader interface {
	Load(ctx context.Context) (*Catalog, error)
}

// FileLoader reads a JSON array of players from Path.
type FileLoader struct {
	Path string
}

// Load reads and validates the catalog file.
func (l FileLoader) Load(_ context.Context) (*Catalog, error) {
	data, err := os.ReadFile(filepath.Clean(l.Path))
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a JSON array of players.
func Parse(data []byte) (*Catalog, error) {
	var players []Player
	if err := json.Unmarshal(data, &players); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	return New(players)
}

// StaticLoader returns the same players on every load.
type StaticLoader []Player

// Load builds a catalog from the static players.
func (l StaticLoader) Load(_ context.Context) (*Catalog, error) {
	return New(l)
}

// LoaderFunc adapts a function into a Loader.
type LoaderFunc func(ctx context.Context) (*Catalog, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context) (*Catalog, error) { return f(ctx) }
