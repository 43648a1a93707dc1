// Package server exposes the HTTP API. Handlers stay thin: decode,
// call the service, map the error, encode. All responses are JSON and
// failures use a single {"error": "..."} envelope.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"courtside/internal/auth"
	"courtside/internal/backup"
	"courtside/internal/config"
	"courtside/internal/mailer"
	"courtside/internal/middleware"
	"courtside/internal/service"
	"courtside/internal/storage"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

type Server struct {
	games        *service.GameService
	rsvps        *service.RSVPService
	waitlist     *service.WaitlistService
	gamification *service.GamificationService
	teams        *service.TeamService
	calendar     *service.CalendarService
	auth         *auth.Service
	backup       *backup.Service
	mail         *mailer.Mailer
	store        storage.Store
	cfg          *config.Config
	logger       zerolog.Logger
}

func New(games *service.GameService, rsvps *service.RSVPService, waitlist *service.WaitlistService, gamification *service.GamificationService, teams *service.TeamService, calendar *service.CalendarService, authSvc *auth.Service, backupSvc *backup.Service, mail *mailer.Mailer, store storage.Store, cfg *config.Config, logger zerolog.Logger) *Server {
	return &Server{
		games:        games,
		rsvps:        rsvps,
		waitlist:     waitlist,
		gamification: gamification,
		teams:        teams,
		calendar:     calendar,
		auth:         authSvc,
		backup:       backupSvc,
		mail:         mail,
		store:        store,
		cfg:          cfg,
		logger:       logger,
	}
}

// Router registers every route on a fresh mux. CORS and request-ID
// middleware wrap the returned handler in main.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/games/current", s.handleCurrentGame)
	mux.HandleFunc("GET /api/v1/games/current/summary", s.handleGameSummary)
	mux.HandleFunc("GET /api/v1/games/{id}/roster", s.handleRoster)
	mux.HandleFunc("GET /api/v1/games/{id}/waitlist", s.handleWaitlist)
	mux.HandleFunc("GET /api/v1/games/{id}/teams", s.handleTeams)
	mux.HandleFunc("POST /api/v1/rsvps", s.handleSubmitRSVP)
	mux.HandleFunc("GET /api/v1/players/{name}/stats", s.handlePlayerStats)
	mux.HandleFunc("GET /api/v1/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	mux.HandleFunc("POST /api/v1/admin/login", s.handleLogin)

	admin := middleware.RequireAdmin(s.auth)
	mux.Handle("POST /api/v1/admin/games", admin(http.HandlerFunc(s.handleScheduleGame)))
	mux.Handle("POST /api/v1/admin/games/{id}/attendance", admin(http.HandlerFunc(s.handleAttendance)))
	mux.Handle("PUT /api/v1/admin/games/{id}/responses", admin(http.HandlerFunc(s.handleUpdateResponses)))
	mux.Handle("DELETE /api/v1/admin/games/{id}/responses", admin(http.HandlerFunc(s.handleDeleteResponses)))
	mux.Handle("POST /api/v1/admin/events", admin(http.HandlerFunc(s.handleCreateEvent)))
	mux.Handle("PUT /api/v1/admin/events/{id}", admin(http.HandlerFunc(s.handleUpdateEvent)))
	mux.Handle("DELETE /api/v1/admin/events/{id}", admin(http.HandlerFunc(s.handleDeleteEvent)))
	mux.Handle("POST /api/v1/admin/mvp", admin(http.HandlerFunc(s.handleCrownMVP)))
	mux.Handle("POST /api/v1/admin/backup", admin(http.HandlerFunc(s.handleBackup)))
	mux.Handle("GET /api/v1/admin/audit", admin(http.HandlerFunc(s.handleAuditLog)))

	return mux
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.writeJSON(w, r, status, map[string]string{"error": msg})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	s.writeError(w, r, http.StatusInternalServerError, "internal server error")
}

// decodeBody reads a JSON request body into dst. An empty body is
// reported the same as malformed JSON so handlers only deal with one
// failure mode.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			s.writeError(w, r, http.StatusBadRequest, "request body is required")
			return false
		}
		s.writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, r, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
