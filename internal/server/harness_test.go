package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"courtside/internal/auth"
	"courtside/internal/backup"
	"courtside/internal/config"
	"courtside/internal/domain"
	"courtside/internal/mailer"
	"courtside/internal/service"
	"courtside/internal/storage"
	"courtside/internal/storage/memstore"
)

// apiRig assembles the full handler stack over an in-memory store so
// tests exercise real routing, decoding and error mapping.
type apiRig struct {
	store   storage.Store
	cfg     *config.Config
	handler http.Handler
}

func newAPIRig(t *testing.T) *apiRig {
	return newAPIRigWith(t, nil)
}

func newAPIRigWith(t *testing.T, tweak func(*config.Config)) *apiRig {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("hoops"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt.GenerateFromPassword: %v", err)
	}

	cfg := &config.Config{
		GameCapacity:      15,
		RSVPCutoffDays:    1,
		DefaultLocation:   "Arc: Health and Fitness Centre",
		AdminUsername:     "admin",
		AdminPasswordHash: string(hash),
		SessionSecret:     "test-secret",
		SessionTTL:        time.Hour,
		AppURL:            "https://courtside.test",
	}
	if tweak != nil {
		tweak(cfg)
	}
	logger := zerolog.Nop()

	st := memstore.New()
	t.Cleanup(func() { st.Close() })

	m, err := mailer.New(cfg, logger)
	if err != nil {
		t.Fatalf("mailer.New: %v", err)
	}

	waitlist := service.NewWaitlistService(st.Responses(), st.Stats(), m, logger)
	gamification := service.NewGamificationService(st.Stats(), st.Points(), st.Achievements(), st.Responses(), m, logger)
	games := service.NewGameService(st.Games(), st.Responses(), st.Events(), st.Audit(), m, cfg, logger)
	rsvps := service.NewRSVPService(st.Games(), st.Responses(), st.Audit(), waitlist, gamification, m, cfg, logger)
	teams := service.NewTeamService(st.Responses(), logger)
	calendar := service.NewCalendarService(st.Events(), st.Audit(), cfg, logger)
	authSvc := auth.NewService(cfg, st.Audit(), logger)
	backupSvc := backup.NewService(st, cfg, logger)

	srv := New(games, rsvps, waitlist, gamification, teams, calendar, authSvc, backupSvc, m, st, cfg, logger)
	return &apiRig{store: st, cfg: cfg, handler: srv.Router()}
}

// do runs one request through the router and returns the recorder.
func (rg *apiRig) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	rg.handler.ServeHTTP(rec, req)
	return rec
}

func (rg *apiRig) login(t *testing.T) string {
	t.Helper()

	rec := rg.do(t, http.MethodPost, "/api/v1/admin/login", "", map[string]string{
		"username": "admin",
		"password": "hoops",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login returned %d: %s", rec.Code, rec.Body)
	}
	var out struct {
		Token string `json:"token"`
	}
	decodeInto(t, rec, &out)
	return out.Token
}

// scheduleGame creates a game through the admin endpoint and returns it.
func (rg *apiRig) scheduleGame(t *testing.T, token, date string, capacity int) domain.Game {
	t.Helper()

	rec := rg.do(t, http.MethodPost, "/api/v1/admin/games", token, map[string]any{
		"date":       date,
		"start_time": "18:00",
		"end_time":   "20:00",
		"capacity":   capacity,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("schedule returned %d: %s", rec.Code, rec.Body)
	}
	var game domain.Game
	decodeInto(t, rec, &game)
	return game
}

// submitRSVP posts an attending RSVP for the current game.
func (rg *apiRig) submitRSVP(t *testing.T, name string, guests []string) {
	t.Helper()

	rec := rg.do(t, http.MethodPost, "/api/v1/rsvps", "", map[string]any{
		"name":      name,
		"guests":    guests,
		"attending": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("rsvp for %s returned %d: %s", name, rec.Code, rec.Body)
	}
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// errorMessage decodes the {"error": ...} envelope.
func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var out struct {
		Error string `json:"error"`
	}
	decodeInto(t, rec, &out)
	if out.Error == "" {
		t.Fatalf("expected an error envelope, got %s", rec.Body)
	}
	return out.Error
}

func futureDate(days int) string {
	return time.Now().AddDate(0, 0, days).Format(domain.DateLayout)
}
