package auction

import (
	"context"

	"github.com/jensholdgaard/auctioneer/internal/catalog"
	"github.com/jensholdgaard/auctioneer/internal/event"
	"github.com/jensholdgaard/auctioneer/internal/ledger"
)

// Status is where a player currently sits.
type Status string

const (
	StatusUnsold  Status = "unsold"
	StatusCurrent Status = "current"
	StatusSold    Status = "sold"
)

// Snapshot is the full externally visible state of the auction.
type Snapshot struct {
	SessionID       string          `json:"session_id"`
	Phase           Phase           `json:"phase"`
	Teams           []ledger.Team   `json:"teams"`
	Unsold          []int           `json:"unsold"`
	Current         *catalog.Player `json:"current_player"`
	LastTransaction *Transaction    `json:"last_transaction"`
	TotalPlayers    int             `json:"total_players"`
	SoldPlayers     int             `json:"sold_players"`
	Version         int             `json:"version"`
}

// Team returns the named team from the snapshot.
func (s *Snapshot) Team(name string) (ledger.Team, bool) {
	for _, t := range s.Teams {
		if t.Name == name {
			return t, true
		}
	}
	return ledger.Team{}, false
}

// SearchResult is one search hit.
type SearchResult struct {
	ID         int    `json:"id"`
	PlayerName string `json:"player_name"`
	FatherName string `json:"father_name"`
	Status     Status `json:"status"`
	Team       string `json:"team,omitempty"`
}

// Change describes one committed state transition.
type Change struct {
	Type     event.Type
	Player   *catalog.Player
	Team     string
	Points   int
	Snapshot *Snapshot
}

// Listener is notified after every committed change, in commit order.
// Listeners run synchronously and must not call back into the Engine; the
// Change carries everything they need.
type Listener interface {
	AuctionChanged(ctx context.Context, c Change)
}

// ListenerFunc adapts a function into a Listener.
type ListenerFunc func(ctx context.Context, c Change)

// AuctionChanged calls f.
func (f ListenerFunc) AuctionChanged(ctx context.Context, c Change) { f(ctx, c) }
