// Package report renders the auction result as a CSV document: a summary
// block with one row per team, then every team's roster with prices paid.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/jensholdgaard/auctioneer/internal/auction"
	"github.com/jensholdgaard/auctioneer/internal/catalog"
)

// Filename is the suggested download name.
const Filename = "auction_report.csv"

// PlayerLookup resolves catalog records by id.
type PlayerLookup func(id int) (catalog.Player, bool)

// WriteCSV writes the report for snap to w.
func WriteCSV(w io.Writer, snap *auction.Snapshot, lookup PlayerLookup) error {
	cw := csv.NewWriter(w)

	rows := [][]string{{"Team Name", "Players Bought", "Points Spent", "Points Remaining", "Bidding Power"}}
	for _, t := range snap.Teams {
		rows = append(rows, []string{
			t.Name,
			strconv.Itoa(len(t.Roster)),
			strconv.Itoa(t.InitialPoints - t.Points),
			strconv.Itoa(t.Points),
			strconv.Itoa(t.BiddingPower),
		})
	}
	rows = append(rows, []string{"Team Name", "Player ID", "Player Name", "Father Name", "Sold For Points"})
	for _, t := range snap.Teams {
		for _, p := range t.Purchases {
			name, father := "", ""
			if rec, ok := lookup(p.PlayerID); ok {
				name, father = rec.PlayerName, rec.FatherName
			}
			rows = append(rows, []string{t.Name, strconv.Itoa(p.PlayerID), name, father, strconv.Itoa(p.Points)})
		}
	}
	// Every row carries five fields.
	rows = append(rows, []string{"Unsold Players", strconv.Itoa(len(snap.Unsold)), "", "", ""})

	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing report row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
