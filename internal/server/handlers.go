package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"courtside/internal/auth"
	"courtside/internal/constants"
	"courtside/internal/service"
	"courtside/internal/storage"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"status":         "ok",
		"version":        Version,
		"storage":        s.store.Kind(),
		"email_enabled":  s.mail.Enabled(),
		"backup_enabled": s.backup.Enabled(),
		"admin_enabled":  s.cfg.AdminEnabled(),
	}
	if game, err := s.games.Current(r.Context()); err == nil {
		payload["active_game_id"] = game.ID
	}
	s.writeJSON(w, r, http.StatusOK, payload)
}

func (s *Server) handleCurrentGame(w http.ResponseWriter, r *http.Request) {
	game, err := s.games.Current(r.Context())
	switch {
	case errors.Is(err, storage.ErrNoActiveGame):
		s.writeError(w, r, http.StatusNotFound, "no active game")
	case err != nil:
		s.internalError(w, r, err)
	default:
		s.writeJSON(w, r, http.StatusOK, game)
	}
}

func (s *Server) handleGameSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.games.Summary(r.Context())
	switch {
	case errors.Is(err, storage.ErrNoActiveGame):
		s.writeError(w, r, http.StatusNotFound, "no active game")
	case err != nil:
		s.internalError(w, r, err)
	default:
		s.writeJSON(w, r, http.StatusOK, summary)
	}
}

// lookupGame resolves a game ID from the path and writes the error
// response itself when the game does not exist.
func (s *Server) lookupGame(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := s.pathID(w, r)
	if !ok {
		return 0, false
	}
	if _, err := s.games.Get(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, r, http.StatusNotFound, "game not found")
		} else {
			s.internalError(w, r, err)
		}
		return 0, false
	}
	return id, true
}

func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	id, ok := s.lookupGame(w, r)
	if !ok {
		return
	}
	roster, err := s.rsvps.Roster(r.Context(), id)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, roster)
}

func (s *Server) handleWaitlist(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	game, err := s.games.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, r, http.StatusNotFound, "game not found")
		} else {
			s.internalError(w, r, err)
		}
		return
	}

	entries, err := s.waitlist.Waitlist(r.Context(), id)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	stats, err := s.waitlist.Stats(r.Context(), game)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"entries": entries,
		"stats":   stats,
	})
}

func (s *Server) handleTeams(w http.ResponseWriter, r *http.Request) {
	id, ok := s.lookupGame(w, r)
	if !ok {
		return
	}

	numTeams := 2
	if raw := r.URL.Query().Get("teams"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest, "teams must be a number")
			return
		}
		numTeams = n
	}

	teams, err := s.teams.Generate(r.Context(), id, numTeams)
	switch {
	case errors.Is(err, service.ErrTooFewTeams), errors.Is(err, service.ErrTooFewPlayers):
		s.writeError(w, r, http.StatusBadRequest, err.Error())
	case err != nil:
		s.internalError(w, r, err)
	default:
		s.writeJSON(w, r, http.StatusOK, map[string]any{"teams": teams})
	}
}

func (s *Server) handleSubmitRSVP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GameID    int64    `json:"game_id"`
		Name      string   `json:"name"`
		Email     string   `json:"email"`
		Guests    []string `json:"guests"`
		Attending *bool    `json:"attending"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Attending == nil {
		s.writeError(w, r, http.StatusBadRequest, "attending is required")
		return
	}

	if req.GameID == 0 {
		game, err := s.games.Current(r.Context())
		if err != nil {
			if errors.Is(err, storage.ErrNoActiveGame) {
				s.writeError(w, r, http.StatusNotFound, "no active game")
			} else {
				s.internalError(w, r, err)
			}
			return
		}
		req.GameID = game.ID
	}

	result, err := s.rsvps.Submit(r.Context(), service.SubmitInput{
		GameID:    req.GameID,
		Name:      req.Name,
		Email:     req.Email,
		Guests:    req.Guests,
		Attending: *req.Attending,
	})
	switch {
	case errors.Is(err, service.ErrNameRequired):
		s.writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		s.writeError(w, r, http.StatusNotFound, "game not found")
	case err != nil:
		s.internalError(w, r, err)
	default:
		s.writeJSON(w, r, http.StatusOK, result)
	}
}

func (s *Server) handlePlayerStats(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" {
		s.writeError(w, r, http.StatusBadRequest, "player name is required")
		return
	}
	profile, err := s.gamification.Profile(r.Context(), name)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, profile)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = "points"
	}
	limit := constants.LeaderboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, r, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		limit = n
	}

	entries, err := s.gamification.Leaderboard(r.Context(), metric, limit)
	switch {
	case errors.Is(err, service.ErrUnknownMetric):
		s.writeError(w, r, http.StatusBadRequest, err.Error())
	case err != nil:
		s.internalError(w, r, err)
	default:
		s.writeJSON(w, r, http.StatusOK, map[string]any{
			"metric":  metric,
			"entries": entries,
		})
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if date := q.Get("date"); date != "" {
		events, err := s.calendar.ForDate(r.Context(), date)
		switch {
		case errors.Is(err, service.ErrBadDate):
			s.writeError(w, r, http.StatusBadRequest, err.Error())
		case err != nil:
			s.internalError(w, r, err)
		default:
			s.writeJSON(w, r, http.StatusOK, map[string]any{"events": events})
		}
		return
	}

	yearRaw, monthRaw := q.Get("year"), q.Get("month")
	if yearRaw == "" || monthRaw == "" {
		s.writeError(w, r, http.StatusBadRequest, "date or year and month are required")
		return
	}
	year, err := strconv.Atoi(yearRaw)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "year must be a number")
		return
	}
	month, err := strconv.Atoi(monthRaw)
	if err != nil || month < 1 || month > 12 {
		s.writeError(w, r, http.StatusBadRequest, "month must be between 1 and 12")
		return
	}

	byDay, err := s.calendar.ForMonth(r.Context(), year, time.Month(month))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"year":  year,
		"month": month,
		"days":  byDay,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}

	token, err := s.auth.Login(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrDisabled):
		s.writeError(w, r, http.StatusServiceUnavailable, "admin features are not configured")
	case errors.Is(err, auth.ErrBadCredentials):
		s.writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	case err != nil:
		s.internalError(w, r, err)
	default:
		s.writeJSON(w, r, http.StatusOK, token)
	}
}
