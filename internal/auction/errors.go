package auction

import (
	"errors"

	"github.com/jensholdgaard/auctioneer/internal/ledger"
)

// Errors returned by engine operations. Ledger failures surface unchanged so
// callers can match either package's sentinels.
var (
	ErrUnknownTeam       = ledger.ErrUnknownTeam
	ErrInsufficientFunds = ledger.ErrInsufficientFunds
	ErrInvalidPoints     = ledger.ErrInvalidPoints
	ErrPlayerNotOnRoster = ledger.ErrPlayerNotOnRoster

	ErrNoCurrentPlayer = errors.New("no player is on the block")
	ErrNothingToUndo   = errors.New("nothing to undo")
	ErrCatalogLoad     = errors.New("catalog load failure")
	ErrUnknownPlayer   = errors.New("unknown player")
	ErrPlayerMismatch  = errors.New("player is not the one on the block")

	// ErrSessionUnavailable means the saved session could not be read. The
	// engine keeps its current state rather than starting over.
	ErrSessionUnavailable = errors.New("saved session unavailable")
)

// Kinds reported by Kind.
const (
	KindUnknownTeam       = "UnknownTeam"
	KindInsufficientFunds = "InsufficientFunds"
	KindInvalidPoints     = "InvalidPoints"
	KindNoCurrentPlayer   = "NoCurrentPlayer"
	KindNothingToUndo     = "NothingToUndo"
	KindPlayerNotOnRoster = "PlayerNotOnRoster"
	KindCatalogLoad       = "CatalogLoadFailure"
	KindUnknownPlayer     = "UnknownPlayer"
	KindPlayerMismatch    = "PlayerMismatch"
	KindInternal          = "Internal"
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrUnknownTeam, KindUnknownTeam},
	{ErrInsufficientFunds, KindInsufficientFunds},
	{ErrInvalidPoints, KindInvalidPoints},
	{ErrNoCurrentPlayer, KindNoCurrentPlayer},
	{ErrNothingToUndo, KindNothingToUndo},
	{ErrPlayerNotOnRoster, KindPlayerNotOnRoster},
	{ErrCatalogLoad, KindCatalogLoad},
	{ErrUnknownPlayer, KindUnknownPlayer},
	{ErrPlayerMismatch, KindPlayerMismatch},
	{ledger.ErrPlayerAlreadyOwned, KindPlayerMismatch},
}

// Kind names the failure class of err, or returns "" for a nil error.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
