package event_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/jensholdgaard/auctioneer/internal/event"
)

func TestEvent_Decode(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    event.SaleData
		wantErr string
	}{
		{
			name: "sale payload",
			data: `{"transaction_id":"tx-1","player_id":4,"team":"Alpha","points":30}`,
			want: event.SaleData{TransactionID: "tx-1", PlayerID: 4, Team: "Alpha", Points: 30},
		},
		{name: "malformed", data: `{"player_id":`, wantErr: "decoding player.sold payload (session=s1, version=2)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := event.Event{SessionID: "s1", Type: event.PlayerSold, Data: json.RawMessage(tt.data), Version: 2}
			var got event.SaleData
			err := e.Decode(&got)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Decode() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Decode() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
