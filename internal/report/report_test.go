package report_test

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/jensholdgaard/auctioneer/internal/auction"
	"github.com/jensholdgaard/auctioneer/internal/catalog"
	"github.com/jensholdgaard/auctioneer/internal/ledger"
	"github.com/jensholdgaard/auctioneer/internal/report"
)

func TestWriteCSV(t *testing.T) {
	snap := &auction.Snapshot{
		Teams: []ledger.Team{
			{
				Name: "Alpha", Points: 60, InitialPoints: 100, BiddingPower: 60,
				Roster:    []int{2},
				Purchases: []ledger.Purchase{{PlayerID: 2, Points: 40}},
			},
			{Name: "Beta", Points: 100, InitialPoints: 100, BiddingPower: 100},
		},
		Unsold: []int{1, 3},
	}
	players := map[int]catalog.Player{
		2: {ID: 2, PlayerName: "Rohit", FatherName: "Suresh"},
	}
	lookup := func(id int) (catalog.Player, bool) {
		p, ok := players[id]
		return p, ok
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, snap, lookup); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading CSV: %v", err)
	}

	want := [][]string{
		{"Team Name", "Players Bought", "Points Spent", "Points Remaining", "Bidding Power"},
		{"Alpha", "1", "40", "60", "60"},
		{"Beta", "0", "0", "100", "100"},
		{"Team Name", "Player ID", "Player Name", "Father Name", "Sold For Points"},
		{"Alpha", "2", "Rohit", "Suresh", "40"},
		{"Unsold Players", "2", "", "", ""},
	}
	if len(records) != len(want) {
		t.Fatalf("got %d records, want %d: %q", len(records), len(want), records)
	}
	for i := range want {
		if len(records[i]) != len(want[i]) {
			t.Errorf("record %d = %q, want %q", i, records[i], want[i])
			continue
		}
		for j := range want[i] {
			if records[i][j] != want[i][j] {
				t.Errorf("record %d = %q, want %q", i, records[i], want[i])
				break
			}
		}
	}
}
