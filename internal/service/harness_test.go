package service

import (
	"context"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"courtside/internal/config"
	"courtside/internal/domain"
	"courtside/internal/mailer"
	"courtside/internal/storage"
	"courtside/internal/storage/memstore"
)

// mailRecorder captures outbound messages in place of the SMTP client.
type mailRecorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *mailRecorder) send(_ string, _ smtp.Auth, _ string, to []string, msg []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, "To: "+strings.Join(to, ", ")+"\r\n"+string(msg))
	return nil
}

func (r *mailRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

// matching reports how many captured messages contain substr.
func (r *mailRecorder) matching(substr string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, msg := range r.msgs {
		if strings.Contains(msg, substr) {
			n++
		}
	}
	return n
}

type rig struct {
	store        storage.Store
	mail         *mailRecorder
	games        *GameService
	rsvps        *RSVPService
	waitlist     *WaitlistService
	gamification *GamificationService
	teams        *TeamService
	calendar     *CalendarService
}

func newRig(t *testing.T) *rig {
	t.Helper()

	cfg := &config.Config{
		GameCapacity:    15,
		RSVPCutoffDays:  1,
		DefaultLocation: "Arc: Health and Fitness Centre",
		AdminUsername:   "admin",
		SMTPHost:        "smtp.test",
		SMTPPort:        "587",
		SMTPFrom:        "games@courtside.test",
		AppURL:          "https://courtside.test",
	}
	logger := zerolog.Nop()

	st := memstore.New()
	t.Cleanup(func() { st.Close() })

	m, err := mailer.New(cfg, logger)
	if err != nil {
		t.Fatalf("mailer.New: %v", err)
	}
	rec := &mailRecorder{}
	m.SetSender(rec.send)

	waitlist := NewWaitlistService(st.Responses(), st.Stats(), m, logger)
	gamification := NewGamificationService(st.Stats(), st.Points(), st.Achievements(), st.Responses(), m, logger)

	return &rig{
		store:        st,
		mail:         rec,
		games:        NewGameService(st.Games(), st.Responses(), st.Events(), st.Audit(), m, cfg, logger),
		rsvps:        NewRSVPService(st.Games(), st.Responses(), st.Audit(), waitlist, gamification, m, cfg, logger),
		waitlist:     waitlist,
		gamification: gamification,
		teams:        NewTeamService(st.Responses(), logger),
		calendar:     NewCalendarService(st.Events(), st.Audit(), cfg, logger),
	}
}

// createGame stages a game directly in the store, skipping Schedule's
// announcement fan-out.
func (r *rig) createGame(t *testing.T, date string, capacity int) domain.Game {
	t.Helper()

	game, err := r.store.Games().Create(context.Background(), domain.Game{
		Date:      date,
		StartTime: "18:00",
		EndTime:   "20:00",
		Location:  "Arc: Health and Fitness Centre",
		Capacity:  capacity,
	})
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	return game
}

func (r *rig) submit(t *testing.T, gameID int64, name, email string, guests []string, attending bool) *SubmitResult {
	t.Helper()

	result, err := r.rsvps.Submit(context.Background(), SubmitInput{
		GameID:    gameID,
		Name:      name,
		Email:     email,
		Guests:    guests,
		Attending: attending,
	})
	if err != nil {
		t.Fatalf("submit %s: %v", name, err)
	}
	return result
}

func (r *rig) responseStatus(t *testing.T, gameID int64, name string) domain.Status {
	t.Helper()

	resp, err := r.store.Responses().Get(context.Background(), gameID, name)
	if err != nil {
		t.Fatalf("get response %s: %v", name, err)
	}
	return resp.Status
}

// daysFromNow formats a date n whole days out.
func daysFromNow(n int) string {
	return time.Now().AddDate(0, 0, n).Format(domain.DateLayout)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
