package filestore_test

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/jensholdgaard/auctioneer/internal/clock"
	"github.com/jensholdgaard/auctioneer/internal/event"
	"github.com/jensholdgaard/auctioneer/internal/store"
	"github.com/jensholdgaard/auctioneer/internal/store/filestore"
)

func TestSessionRepo_SaveAndLatest(t *testing.T) {
	dir := t.TempDir()
	clk := clock.NewMock(time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC))
	repos, err := filestore.Open(dir, clk)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := repos.Sessions.Latest(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Latest() error = %v, want ErrNotFound", err)
	}

	s := &store.Session{ID: "s1", State: json.RawMessage(`{"unsold":[1,2]}`), Version: 3}
	if err := repos.Sessions.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A second Open over the same directory sees the saved session.
	reopened, err := filestore.Open(dir, clk)
	if err != nil {
		t.Fatal(err)
	}
	got, err := reopened.Sessions.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got.ID != "s1" || got.Version != 3 {
		t.Errorf("Latest() = %+v", got)
	}
	var state map[string][]int
	if err := json.Unmarshal(got.State, &state); err != nil || len(state["unsold"]) != 2 {
		t.Errorf("state = %s (%v)", got.State, err)
	}
}

func TestEventStore_AppendAndLoad(t *testing.T) {
	repos, err := filestore.Open(t.TempDir(), clock.Real{})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	for v, typ := range []event.Type{event.AuctionReset, event.PlayerDrawn, event.PlayerSold} {
		if err := repos.Events.Append(ctx, event.Event{
			SessionID: "s1", Type: typ, Data: json.RawMessage(`{}`), Version: v + 1,
		}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := repos.Events.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 3 || got[2].Type != event.PlayerSold || got[2].ID != "3" {
		t.Errorf("Load() = %+v", got)
	}

	sold, _ := repos.Events.LoadByType(ctx, event.PlayerSold)
	if len(sold) != 1 {
		t.Errorf("LoadByType() = %d events, want 1", len(sold))
	}
}

func TestEventStore_RejectsDuplicateVersion(t *testing.T) {
	repos, err := filestore.Open(t.TempDir(), clock.Real{})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	ev := func(v int) event.Event {
		return event.Event{SessionID: "s1", Type: event.PlayerDrawn, Data: json.RawMessage(`{}`), Version: v}
	}

	if err := repos.Events.Append(ctx, ev(1)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := repos.Events.Append(ctx, ev(1), ev(2)); err == nil {
		t.Error("expected an error appending a stored version")
	}
	if err := repos.Events.Append(ctx, ev(3), ev(3)); err == nil {
		t.Error("expected an error appending a repeated version")
	}

	got, err := repos.Events.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Load() = %d events, want 1", len(got))
	}

	if err := repos.Events.Append(ctx, event.Event{
		SessionID: "s2", Type: event.PlayerDrawn, Data: json.RawMessage(`{}`), Version: 1,
	}); err != nil {
		t.Errorf("same version in another session: %v", err)
	}
}

func TestEventStore_IDsContinueAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		repos, err := filestore.Open(dir, clock.Real{})
		if err != nil {
			t.Fatal(err)
		}
		for v := 1; v <= 2; v++ {
			if err := repos.Events.Append(ctx, event.Event{
				SessionID: "s1", Type: event.PlayerDrawn, Data: json.RawMessage(`{}`), Version: i*2 + v,
			}); err != nil {
				t.Fatalf("Append: %v", err)
			}
		}
		if i == 1 {
			if err := repos.Events.Append(ctx, event.Event{
				SessionID: "s1", Type: event.PlayerDrawn, Data: json.RawMessage(`{}`), Version: 1,
			}); err == nil {
				t.Error("expected a version written before reopen to be rejected")
			}
		}
	}

	repos, err := filestore.Open(dir, clock.Real{})
	if err != nil {
		t.Fatal(err)
	}
	got, err := repos.Events.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("Load() = %d events, want 4", len(got))
	}
	for i, e := range got {
		if want := strconv.Itoa(i + 1); e.ID != want {
			t.Errorf("event %d ID = %q, want %q", i, e.ID, want)
		}
	}
}

func TestPlayerRepo_RoundTrip(t *testing.T) {
	repos, err := filestore.Open(t.TempDir(), clock.Real{})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	empty, err := repos.Players.List(ctx)
	if err != nil || len(empty) != 0 {
		t.Fatalf("List() on fresh dir = %v, %v", empty, err)
	}

	if err := repos.Players.ReplaceAll(ctx, []store.Player{{ID: 3, PlayerName: "C"}, {ID: 1, PlayerName: "A"}}); err != nil {
		t.Fatal(err)
	}
	got, _ := repos.Players.List(ctx)
	if len(got) != 2 || got[0].ID != 1 {
		t.Errorf("List() = %+v", got)
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := filestore.Open("", clock.Real{}); err == nil {
		t.Error("expected error for empty path")
	}
}
