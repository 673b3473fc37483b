package postgres_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jensholdgaard/auctioneer/internal/clock"
	"github.com/jensholdgaard/auctioneer/internal/store"
	"github.com/jensholdgaard/auctioneer/internal/store/postgres"
)

func TestSessionRepo_SaveAndLatest(t *testing.T) {
	db := newTestDB(t)
	clk := clock.NewMock(time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC))
	repo := postgres.NewSessionRepo(db, clk)
	ctx := context.Background()

	if _, err := repo.Latest(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Latest() on empty table error = %v, want ErrNotFound", err)
	}

	s := &store.Session{ID: "s1", State: json.RawMessage(`{"unsold":[1,2,3]}`), Version: 1}
	if err := repo.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if s.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set after Save")
	}

	clk.Advance(time.Minute)
	s.State = json.RawMessage(`{"unsold":[1,2]}`)
	s.Version = 2
	if err := repo.Save(ctx, s); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	got, err := repo.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got.ID != "s1" || got.Version != 2 {
		t.Errorf("Latest() = %+v, want s1 v2", got)
	}
	var state struct {
		Unsold []int `json:"unsold"`
	}
	if err := json.Unmarshal(got.State, &state); err != nil {
		t.Fatalf("decoding state: %v", err)
	}
	if len(state.Unsold) != 2 {
		t.Errorf("unsold = %v, want 2 ids", state.Unsold)
	}
	if !got.UpdatedAt.After(got.CreatedAt) {
		t.Errorf("UpdatedAt %v should be after CreatedAt %v", got.UpdatedAt, got.CreatedAt)
	}
}

func TestSessionRepo_LatestPicksNewest(t *testing.T) {
	db := newTestDB(t)
	clk := clock.NewMock(time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC))
	repo := postgres.NewSessionRepo(db, clk)
	ctx := context.Background()

	for _, id := range []string{"old", "new"} {
		if err := repo.Save(ctx, &store.Session{ID: id, State: json.RawMessage(`{}`), Version: 1}); err != nil {
			t.Fatalf("Save(%s): %v", id, err)
		}
		clk.Advance(time.Second)
	}

	got, err := repo.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got.ID != "new" {
		t.Errorf("Latest().ID = %q, want %q", got.ID, "new")
	}
}
