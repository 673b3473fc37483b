package postgres_test

import (
	"context"
	"testing"

	"github.com/jensholdgaard/auctioneer/internal/store"
	"github.com/jensholdgaard/auctioneer/internal/store/postgres"
)

func TestPlayerRepo_ReplaceAllAndList(t *testing.T) {
	db := newTestDB(t)
	repo := postgres.NewPlayerRepo(db)
	ctx := context.Background()

	photo := "photos/2.jpg"
	if err := repo.ReplaceAll(ctx, []store.Player{
		{ID: 2, PlayerName: "Amit Verma", FatherName: "Suresh Verma", Photo: &photo},
		{ID: 1, PlayerName: "Ravi Sharma", FatherName: "Mohan Sharma"},
	}); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	players, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(players) != 2 {
		t.Fatalf("List returned %d players, want 2", len(players))
	}
	if players[0].ID != 1 {
		t.Errorf("first player id = %d, want 1 (ordered by id)", players[0].ID)
	}
	if players[0].Photo != nil {
		t.Errorf("player 1 photo = %v, want nil", *players[0].Photo)
	}
	if players[1].Photo == nil || *players[1].Photo != photo {
		t.Errorf("player 2 photo = %v, want %q", players[1].Photo, photo)
	}

	// A second import replaces the first.
	if err := repo.ReplaceAll(ctx, []store.Player{{ID: 9, PlayerName: "Solo"}}); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	players, _ = repo.List(ctx)
	if len(players) != 1 || players[0].ID != 9 {
		t.Errorf("List after replace = %+v", players)
	}
}

func TestPlayerRepo_ReplaceAllRollsBack(t *testing.T) {
	db := newTestDB(t)
	repo := postgres.NewPlayerRepo(db)
	ctx := context.Background()

	if err := repo.ReplaceAll(ctx, []store.Player{{ID: 1, PlayerName: "Keep"}}); err != nil {
		t.Fatal(err)
	}

	// Duplicate primary keys abort the whole import.
	err := repo.ReplaceAll(ctx, []store.Player{{ID: 5, PlayerName: "X"}, {ID: 5, PlayerName: "Y"}})
	if err == nil {
		t.Fatal("expected error for duplicate ids")
	}

	players, _ := repo.List(ctx)
	if len(players) != 1 || players[0].PlayerName != "Keep" {
		t.Errorf("List after failed import = %+v, want original catalog", players)
	}
}

func TestCatalogLoader_FromPostgres(t *testing.T) {
	db := newTestDB(t)
	repo := postgres.NewPlayerRepo(db)
	ctx := context.Background()

	if err := repo.ReplaceAll(ctx, []store.Player{{ID: 3, PlayerName: "Deepak", FatherName: "Ramesh"}}); err != nil {
		t.Fatal(err)
	}

	c, err := store.CatalogLoader{Players: repo}.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p, ok := c.Get(3); !ok || p.FatherName != "Ramesh" {
		t.Errorf("Get(3) = %+v, %v", p, ok)
	}
}
