package auction

import "time"

// TransactionSell is the only undoable transaction kind.
const TransactionSell = "sell"

// Transaction describes the most recent sale well enough to reverse it.
type Transaction struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	PlayerID int       `json:"player_id"`
	Team     string    `json:"from_team"`
	Points   int       `json:"points"`
	At       time.Time `json:"at"`
}

// txLog is a one-slot undo buffer. Recording overwrites whatever was there.
type txLog struct {
	last *Transaction
}

func (l *txLog) record(tx Transaction) { l.last = &tx }

func (l *txLog) peek() (Transaction, bool) {
	if l.last == nil {
		return Transaction{}, false
	}
	return *l.last, true
}

func (l *txLog) clear() { l.last = nil }
