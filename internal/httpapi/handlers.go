package httpapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jensholdgaard/auctioneer/internal/auction"
	"github.com/jensholdgaard/auctioneer/internal/catalog"
	"github.com/jensholdgaard/auctioneer/internal/event"
	"github.com/jensholdgaard/auctioneer/internal/report"
)

var (
	errNotLeader      = errors.New("this replica does not own the auction")
	errMissingPlayer  = errors.New("playerId is required")
	errMissingTeam    = errors.New("teamName is required")
	errMissingPoints  = errors.New("points is required")
	errMissingPayload = errors.New("request body is required")
)

type sellRequest struct {
	PlayerID int    `json:"playerId"`
	TeamName string `json:"teamName"`
	Points   *int   `json:"points"`
}

type playerRequest struct {
	PlayerID int    `json:"playerId"`
	TeamName string `json:"teamName"`
}

type transferRequest struct {
	PlayerID         int    `json:"playerId"`
	OriginalTeamName string `json:"originalTeamName"`
	NewTeamName      string `json:"newTeamName"`
	NewPoints        *int   `json:"newPoints"`
}

type nextPlayerResponse struct {
	Player   *catalog.Player `json:"player"`
	Complete bool            `json:"complete"`
}

type searchResponse struct {
	Players []auction.SearchResult `json:"players"`
}

type historyResponse struct {
	Events []event.Event `json:"events"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.auth.Enabled() {
		writeJSON(w, http.StatusOK, map[string]bool{"authenticated": true})
		return
	}

	var password string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Password string `json:"password"`
		}
		if err := decode(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, kindBadRequest, fmt.Errorf("decoding login: %w", err))
			return
		}
		password = body.Password
	} else {
		password = r.FormValue("password")
	}

	token, exp, err := s.auth.Login(password)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			s.logger.WarnContext(r.Context(), "rejected login")
			writeError(w, http.StatusUnauthorized, kindUnauthorized, err)
			return
		}
		s.fail(w, r, err)
		return
	}
	http.SetCookie(w, s.auth.cookie(token, exp))
	writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "token": token, "expires_at": exp})
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: CookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": false})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot(r.Context()))
}

func (s *Server) handleTeams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Teams(r.Context()))
}

func (s *Server) handleNextPlayer(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.NextPlayer(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nextPlayerResponse{Player: p, Complete: p == nil})
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.Skip(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	var req sellRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	switch {
	case req.TeamName == "":
		writeError(w, http.StatusBadRequest, kindBadRequest, errMissingTeam)
		return
	case req.Points == nil:
		writeError(w, http.StatusBadRequest, kindBadRequest, errMissingPoints)
		return
	}
	snap, err := s.engine.Sell(r.Context(), req.PlayerID, req.TeamName, *req.Points)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.Undo(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.Reset(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	results := s.engine.Search(r.Context(), q.Get("q"), q.Get("scope") == "unsold")
	writeJSON(w, http.StatusOK, searchResponse{Players: results})
}

func (s *Server) handleSelectPlayer(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.PlayerID == 0 {
		writeError(w, http.StatusBadRequest, kindBadRequest, errMissingPlayer)
		return
	}
	snap, err := s.engine.SelectPlayer(r.Context(), req.PlayerID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleUnsell(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.PlayerID == 0 {
		writeError(w, http.StatusBadRequest, kindBadRequest, errMissingPlayer)
		return
	}
	snap, err := s.engine.Unsell(r.Context(), req.PlayerID, req.TeamName)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleTransferSale(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	switch {
	case req.PlayerID == 0:
		writeError(w, http.StatusBadRequest, kindBadRequest, errMissingPlayer)
		return
	case req.OriginalTeamName == "" || req.NewTeamName == "":
		writeError(w, http.StatusBadRequest, kindBadRequest, errMissingTeam)
		return
	case req.NewPoints == nil:
		writeError(w, http.StatusBadRequest, kindBadRequest, errMissingPoints)
		return
	}
	snap, err := s.engine.TransferSale(r.Context(), req.PlayerID, req.OriginalTeamName, req.NewTeamName, *req.NewPoints)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	events, err := s.engine.History(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if events == nil {
		events = []event.Event{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Events: events})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap, cat := s.engine.Export(ctx)

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	if err := report.WriteCSV(w, snap, cat.Get); err != nil {
		s.logger.ErrorContext(ctx, "writing export", slog.Any("error", err))
	}
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		writeError(w, http.StatusBadRequest, kindBadRequest, errMissingPayload)
		return false
	}
	if err := decode(r, v); err != nil {
		writeError(w, http.StatusBadRequest, kindBadRequest, fmt.Errorf("decoding request: %w", err))
		return false
	}
	return true
}
