package server

import (
	"errors"
	"net/http"
	"strconv"

	"courtside/internal/backup"
	"courtside/internal/constants"
	"courtside/internal/domain"
	"courtside/internal/middleware"
	"courtside/internal/service"
	"courtside/internal/storage"
)

func (s *Server) handleScheduleGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date      string `json:"date"`
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
		Location  string `json:"location"`
		Capacity  int    `json:"capacity"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}

	game, err := s.games.Schedule(r.Context(), req.Date, req.StartTime, req.EndTime, req.Location, req.Capacity)
	switch {
	case errors.Is(err, service.ErrBadDate), errors.Is(err, service.ErrBadTime), errors.Is(err, service.ErrTimeOrdering):
		s.writeError(w, r, http.StatusBadRequest, err.Error())
	case err != nil:
		s.internalError(w, r, err)
	default:
		s.writeJSON(w, r, http.StatusCreated, game)
	}
}

func (s *Server) handleAttendance(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Name     string `json:"name"`
		Attended *bool  `json:"attended"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		s.writeError(w, r, http.StatusBadRequest, "name is required")
		return
	}
	if req.Attended == nil {
		s.writeError(w, r, http.StatusBadRequest, "attended is required")
		return
	}

	err := s.rsvps.MarkAttendance(r.Context(), id, req.Name, *req.Attended)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.writeError(w, r, http.StatusNotFound, "response not found")
	case errors.Is(err, service.ErrNotConfirmed):
		s.writeError(w, r, http.StatusConflict, err.Error())
	case err != nil:
		s.internalError(w, r, err)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleUpdateResponses(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Names  []string `json:"names"`
		Status string   `json:"status"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	if len(req.Names) == 0 {
		s.writeError(w, r, http.StatusBadRequest, "names are required")
		return
	}

	promoted, err := s.rsvps.SetStatus(r.Context(), id, req.Names, domain.Status(req.Status))
	switch {
	case errors.Is(err, service.ErrBadStatus):
		s.writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		s.writeError(w, r, http.StatusNotFound, "game not found")
	case err != nil:
		s.internalError(w, r, err)
	default:
		s.writeJSON(w, r, http.StatusOK, map[string]any{"promoted": promoted})
	}
}

func (s *Server) handleDeleteResponses(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Names []string `json:"names"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	if len(req.Names) == 0 {
		s.writeError(w, r, http.StatusBadRequest, "names are required")
		return
	}

	promoted, err := s.rsvps.Remove(r.Context(), id, req.Names)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.writeError(w, r, http.StatusNotFound, "game not found")
	case err != nil:
		s.internalError(w, r, err)
	default:
		s.writeJSON(w, r, http.StatusOK, map[string]any{"promoted": promoted})
	}
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var event domain.Event
	if !s.decodeBody(w, r, &event) {
		return
	}

	created, err := s.calendar.Create(r.Context(), event)
	switch {
	case errors.Is(err, service.ErrTitleMissing), errors.Is(err, service.ErrBadDate), errors.Is(err, service.ErrBadEventType):
		s.writeError(w, r, http.StatusBadRequest, err.Error())
	case err != nil:
		s.internalError(w, r, err)
	default:
		s.writeJSON(w, r, http.StatusCreated, created)
	}
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var event domain.Event
	if !s.decodeBody(w, r, &event) {
		return
	}
	event.ID = id

	updated, err := s.calendar.Update(r.Context(), event)
	switch {
	case errors.Is(err, service.ErrTitleMissing), errors.Is(err, service.ErrBadDate), errors.Is(err, service.ErrBadEventType):
		s.writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		s.writeError(w, r, http.StatusNotFound, "event not found")
	case err != nil:
		s.internalError(w, r, err)
	default:
		s.writeJSON(w, r, http.StatusOK, updated)
	}
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	err := s.calendar.Delete(r.Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.writeError(w, r, http.StatusNotFound, "event not found")
	case err != nil:
		s.internalError(w, r, err)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleCrownMVP(w http.ResponseWriter, r *http.Request) {
	winner, err := s.gamification.CrownMonthlyMVP(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]string{"mvp": winner})
}

func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	err := s.backup.Run(r.Context())
	switch {
	case errors.Is(err, backup.ErrDisabled):
		s.writeError(w, r, http.StatusServiceUnavailable, "backup is not configured")
		return
	case err != nil:
		s.internalError(w, r, err)
		return
	}

	entry := domain.AuditEntry{
		Actor:  middleware.AdminFrom(r.Context()),
		Action: "backup_run",
		Detail: "manual snapshot",
	}
	if err := s.store.Audit().Append(r.Context(), entry); err != nil {
		s.logger.Warn().Err(err).Msg("failed to record backup audit entry")
	}
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	limit := constants.AuditLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, r, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		limit = n
	}

	entries, err := s.store.Audit().List(r.Context(), limit)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{"entries": entries})
}
