package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jensholdgaard/auctioneer/internal/auction"
)

// Kinds produced by the HTTP layer itself.
const (
	kindBadRequest   = "BadRequest"
	kindUnauthorized = "Unauthorized"
	kindNotLeader    = "NotLeader"
)

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, kind string, err error) {
	writeJSON(w, code, errorBody{Error: err.Error(), Kind: kind})
}

// statusFor maps an engine failure kind to its HTTP status.
func statusFor(kind string) int {
	switch kind {
	case auction.KindInvalidPoints, auction.KindInsufficientFunds:
		return http.StatusBadRequest
	case auction.KindUnknownTeam, auction.KindPlayerNotOnRoster, auction.KindUnknownPlayer:
		return http.StatusNotFound
	case auction.KindNoCurrentPlayer, auction.KindNothingToUndo, auction.KindPlayerMismatch:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := auction.Kind(err)
	code := statusFor(kind)
	if code >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("kind", kind),
			slog.Any("error", err),
		)
	}
	writeError(w, code, kind, err)
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
