package event

import (
	"context"
	"encoding/json"
	"fmt"
)

// Store is the append-only audit trail of auction sessions.
type Store interface {
	// Append writes events atomically. A session may hold each version once.
	Append(ctx context.Context, events ...Event) error
	// Load returns the trail of one session in version order.
	Load(ctx context.Context, sessionID string) ([]Event, error)
	// LoadByType returns events of one type across all sessions.
	LoadByType(ctx context.Context, eventType Type) ([]Event, error)
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decoding %s payload (session=%s, version=%d): %w", e.Type, e.SessionID, e.Version, err)
	}
	return nil
}
