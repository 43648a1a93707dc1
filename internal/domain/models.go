package domain

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a player's response to a game.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusWaitlist  Status = "waitlist"
	StatusCancelled Status = "cancelled"
)

// DateLayout and TimeLayout are the canonical encodings for game dates and
// start/end times. They are stored as-is in both SQL dialects.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type Game struct {
	ID             int64     `json:"id"`
	Date           string    `json:"date"` // DateLayout
	StartTime      string    `json:"start_time"`
	EndTime        string    `json:"end_time"`
	Location       string    `json:"location"`
	Capacity       int       `json:"capacity"`
	IsActive       bool      `json:"is_active"`
	ReminderSentAt time.Time `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// StartsAt combines Date and StartTime in the local timezone. The zero
// time is returned for malformed rows.
func (g Game) StartsAt() time.Time {
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, g.Date+" "+g.StartTime, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// EndsAt combines Date and EndTime in the local timezone.
func (g Game) EndsAt() time.Time {
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, g.Date+" "+g.EndTime, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

type Response struct {
	ID        int64     `json:"id"`
	GameID    int64     `json:"game_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Guests    []string  `json:"guests"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Seats is the number of spots this response occupies: the player plus
// any named guests.
func (r Response) Seats() int {
	return 1 + len(r.Guests)
}

// SplitGuests parses a comma separated guest list, dropping blanks.
func SplitGuests(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, g := range strings.Split(raw, ",") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}

// JoinGuests is the inverse of SplitGuests.
func JoinGuests(guests []string) string {
	return strings.Join(guests, ", ")
}

type PlayerStats struct {
	Player         string    `json:"player"`
	GamesRSVP      int       `json:"games_rsvp"`
	GamesAttended  int       `json:"games_attended"`
	GamesCancelled int       `json:"games_cancelled"`
	GamesNoShow    int       `json:"games_no_show"`
	EarlyRSVPs     int       `json:"early_rsvps"`
	GuestsBrought  int       `json:"guests_brought"`
	CurrentStreak  int       `json:"current_streak"`
	LongestStreak  int       `json:"longest_streak"`
	LastGameDate   string    `json:"last_game_date,omitempty"` // DateLayout, empty until first attendance
	FirstGameDate  string    `json:"first_game_date,omitempty"`
	AttendanceRate float64   `json:"attendance_rate"`
	TotalPoints    int       `json:"total_points"`
	IsMonthlyMVP   bool      `json:"is_monthly_mvp"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RecalcAttendanceRate refreshes AttendanceRate from the counters. Players
// with no settled games keep a rate of zero.
func (s *PlayerStats) RecalcAttendanceRate() {
	total := s.GamesAttended + s.GamesCancelled + s.GamesNoShow
	if total == 0 {
		s.AttendanceRate = 0
		return
	}
	s.AttendanceRate = float64(s.GamesAttended) / float64(total) * 100
}

type PointsEntry struct {
	ID        string    `json:"id"` // nanoid
	Player    string    `json:"player"`
	Points    int       `json:"points"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

type AchievementUnlock struct {
	Player        string    `json:"player"`
	AchievementID string    `json:"achievement_id"`
	UnlockedAt    time.Time `json:"unlocked_at"`
}

// Calendar event types.
const (
	EventTypeGame       = "game"
	EventTypeTraining   = "training"
	EventTypeTournament = "tournament"
	EventTypeSocial     = "social"
	EventTypeMeeting    = "meeting"
	EventTypeCancelled  = "cancelled"
)

// ValidEventType reports whether t is one of the known calendar event types.
func ValidEventType(t string) bool {
	switch t {
	case EventTypeGame, EventTypeTraining, EventTypeTournament,
		EventTypeSocial, EventTypeMeeting, EventTypeCancelled:
		return true
	}
	return false
}

type Event struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Date        string    `json:"date"` // DateLayout
	StartTime   string    `json:"start_time,omitempty"`
	EndTime     string    `json:"end_time,omitempty"`
	Type        string    `json:"type"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type AuditEntry struct {
	ID        string    `json:"id"` // nanoid
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// WaitlistEntry is a waitlisted response annotated with its computed
// priority and queue position.
type WaitlistEntry struct {
	Response Response `json:"response"`
	Priority int      `json:"priority"`
	Position int      `json:"position"`
}

// PlayerEmail pairs a player with the most recent email they RSVP'd with.
type PlayerEmail struct {
	Player string `json:"player"`
	Email  string `json:"email"`
}
