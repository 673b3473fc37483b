package httpapi

import (
	"net/http"
	"testing"

	"github.com/jensholdgaard/auctioneer/internal/auction"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind string
		want int
	}{
		{auction.KindInvalidPoints, http.StatusBadRequest},
		{auction.KindInsufficientFunds, http.StatusBadRequest},
		{auction.KindUnknownTeam, http.StatusNotFound},
		{auction.KindPlayerNotOnRoster, http.StatusNotFound},
		{auction.KindUnknownPlayer, http.StatusNotFound},
		{auction.KindNoCurrentPlayer, http.StatusConflict},
		{auction.KindNothingToUndo, http.StatusConflict},
		{auction.KindPlayerMismatch, http.StatusConflict},
		{auction.KindCatalogLoad, http.StatusInternalServerError},
		{auction.KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			if got := statusFor(tt.kind); got != tt.want {
				t.Errorf("statusFor(%q) = %d, want %d", tt.kind, got, tt.want)
			}
		})
	}
}
