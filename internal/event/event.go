package event

import (
	"encoding/json"
	"time"
)

// Type identifies an event kind.
type Type string

const (
	AuctionReset     Type = "auction.reset"
	AuctionCompleted Type = "auction.completed"
	SessionRestored  Type = "session.restored"

	PlayerDrawn    Type = "player.drawn"
	PlayerSkipped  Type = "player.skipped"
	PlayerSelected Type = "player.selected"
	PlayerSold     Type = "player.sold"
	PlayerUnsold   Type = "player.unsold"

	SaleUndone      Type = "sale.undone"
	SaleTransferred Type = "sale.transferred"
)

// Event represents a single audit record for an auction session.
type Event struct {
	ID        string          `json:"id" db:"id"`
	SessionID string          `json:"session_id" db:"session_id"`
	Type      Type            `json:"type" db:"type"`
	Data      json.RawMessage `json:"data" db:"data"`
	Version   int             `json:"version" db:"version"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// ResetData is the payload for AuctionReset events.
type ResetData struct {
	Players int      `json:"players"`
	Teams   []string `json:"teams"`
	Points  int      `json:"initial_points"`
}

// PlayerData is the payload for draw, skip, select and unsell events.
type PlayerData struct {
	PlayerID   int    `json:"player_id"`
	PlayerName string `json:"player_name,omitempty"`
	Team       string `json:"team,omitempty"`
	Points     int    `json:"points,omitempty"`
}

// SaleData is the payload for PlayerSold and SaleUndone events.
type SaleData struct {
	TransactionID string `json:"transaction_id"`
	PlayerID      int    `json:"player_id"`
	Team          string `json:"team"`
	Points        int    `json:"points"`
}

// TransferData is the payload for SaleTransferred events.
type TransferData struct {
	PlayerID int    `json:"player_id"`
	FromTeam string `json:"from_team"`
	ToTeam   string `json:"to_team"`
	Points   int    `json:"points"`
}
