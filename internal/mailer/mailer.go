// Package mailer renders and sends the transactional emails: game
// announcements, RSVP confirmations, reminders, waitlist promotions,
// achievement unlocks and the weekly digest.
package mailer

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"courtside/internal/config"
	"courtside/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// ErrDisabled is returned by every Send method when SMTP is not configured.
var ErrDisabled = errors.New("mailer not configured")

// SendFunc delivers a raw message. It matches the signature of
// smtp.SendMail so tests can swap in a capturing implementation.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Mailer struct {
	cfg    *config.Config
	logger zerolog.Logger
	send   SendFunc
	tmpl   *template.Template
}

func New(cfg *config.Config, logger zerolog.Logger) (*Mailer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	return &Mailer{
		cfg:    cfg,
		logger: logger,
		send:   smtp.SendMail,
		tmpl:   tmpl,
	}, nil
}

// SetSender replaces the SMTP transport. Tests use it to capture messages.
func (m *Mailer) SetSender(send SendFunc) {
	m.send = send
}

// Enabled reports whether outbound email is configured.
func (m *Mailer) Enabled() bool {
	return m.cfg.MailEnabled()
}

type gameScheduledData struct {
	GameDate  string
	StartTime string
	EndTime   string
	Location  string
	Deadline  string
	AppURL    string
}

// SendGameScheduled announces a newly scheduled game.
func (m *Mailer) SendGameScheduled(to string, game domain.Game, deadline time.Time) error {
	subject := "🏀 New Basketball Game Scheduled - " + FormatDate(game.Date)

	return m.sendHTML(to, subject, "game_scheduled.html", gameScheduledData{
		GameDate:  formatDateYear(game.Date),
		StartTime: FormatClock(game.StartTime),
		EndTime:   FormatClock(game.EndTime),
		Location:  game.Location,
		Deadline:  deadline.Format("January 02"),
		AppURL:    m.cfg.AppURL,
	})
}

type rsvpConfirmationData struct {
	PlayerName   string
	GameDate     string
	StartTime    string
	Location     string
	Guests       string
	PointsEarned int
	AppURL       string
}

// SendRSVPConfirmation confirms a player's spot, listing any guests and
// the points the RSVP earned.
func (m *Mailer) SendRSVPConfirmation(to, player string, game domain.Game, guests []string, pointsEarned int) error {
	subject := "✅ RSVP Confirmed - " + FormatDate(game.Date)

	return m.sendHTML(to, subject, "rsvp_confirmation.html", rsvpConfirmationData{
		PlayerName:   player,
		GameDate:     FormatDate(game.Date),
		StartTime:    FormatClock(game.StartTime),
		Location:     game.Location,
		Guests:       strings.Join(guests, ", "),
		PointsEarned: pointsEarned,
		AppURL:       m.cfg.AppURL,
	})
}

type gameReminderData struct {
	PlayerName     string
	StartTime      string
	EndTime        string
	Location       string
	ConfirmedCount int
	AppURL         string
}

// SendGameReminder nudges a confirmed player the day before the game.
func (m *Mailer) SendGameReminder(to, player string, game domain.Game, confirmedCount int) error {
	return m.sendHTML(to, "🏀 Game Tomorrow - Don't Forget!", "game_reminder.html", gameReminderData{
		PlayerName:     player,
		StartTime:      FormatClock(game.StartTime),
		EndTime:        FormatClock(game.EndTime),
		Location:       game.Location,
		ConfirmedCount: confirmedCount,
		AppURL:         m.cfg.AppURL,
	})
}

type waitlistPromotedData struct {
	PlayerName string
	GameDate   string
	StartTime  string
	EndTime    string
	Location   string
	AppURL     string
}

// SendWaitlistPromotion tells a player a spot opened up for them.
func (m *Mailer) SendWaitlistPromotion(to, player string, game domain.Game) error {
	return m.sendHTML(to, "🎉 You're Off the Waitlist!", "waitlist_promoted.html", waitlistPromotedData{
		PlayerName: player,
		GameDate:   FormatDate(game.Date),
		StartTime:  FormatClock(game.StartTime),
		EndTime:    FormatClock(game.EndTime),
		Location:   game.Location,
		AppURL:     m.cfg.AppURL,
	})
}

type achievementUnlockedData struct {
	PlayerName             string
	AchievementIcon        string
	AchievementName        string
	AchievementDescription string
	Points                 int
	TotalPoints            int
	GamesAttended          int
	TotalAchievements      int
	Rank                   int
	AppURL                 string
}

// SendAchievementUnlocked celebrates a freshly unlocked achievement.
func (m *Mailer) SendAchievementUnlocked(to, player string, ach domain.Achievement, stats domain.PlayerStats, totalAchievements, rank int) error {
	subject := "🏆 Achievement Unlocked: " + ach.Name

	return m.sendHTML(to, subject, "achievement_unlocked.html", achievementUnlockedData{
		PlayerName:             player,
		AchievementIcon:        ach.Icon,
		AchievementName:        ach.Name,
		AchievementDescription: ach.Description,
		Points:                 ach.Points,
		TotalPoints:            stats.TotalPoints,
		GamesAttended:          stats.GamesAttended,
		TotalAchievements:      totalAchievements,
		Rank:                   rank,
		AppURL:                 m.cfg.AppURL,
	})
}

// Digest is one player's weekly recap.
type Digest struct {
	PlayerName         string
	GamesThisWeek      int
	PointsThisWeek     int
	CurrentStreak      int
	NewAchievements    []string
	UpcomingGames      []DigestGame
	Rank               int
	LeaderboardMessage string
}

// DigestGame is an upcoming game line in the digest, already formatted
// for display.
type DigestGame struct {
	Date      string
	StartTime string
	Location  string
}

// SendWeeklyDigest sends a player their weekly recap.
func (m *Mailer) SendWeeklyDigest(to string, digest Digest) error {
	data := struct {
		Digest
		AppURL string
	}{Digest: digest, AppURL: m.cfg.AppURL}

	return m.sendHTML(to, "📊 Your Weekly Basketball Recap", "weekly_digest.html", data)
}

func (m *Mailer) sendHTML(to, subject, name string, data any) error {
	if !m.Enabled() {
		return ErrDisabled
	}

	var body bytes.Buffer
	if err := m.tmpl.ExecuteTemplate(&body, name, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}

	msg := strings.Join([]string{
		"From: " + m.cfg.SMTPFrom,
		"To: " + to,
		"Subject: " + mime.QEncoding.Encode("utf-8", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=utf-8",
		"",
		body.String(),
	}, "\r\n")

	addr := m.cfg.SMTPHost + ":" + m.cfg.SMTPPort
	var auth smtp.Auth
	if m.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", m.cfg.SMTPUsername, m.cfg.SMTPPassword, m.cfg.SMTPHost)
	}

	if err := m.send(addr, auth, m.cfg.SMTPFrom, []string{to}, []byte(msg)); err != nil {
		m.logger.Error().Err(err).Str("to", to).Str("template", name).Msg("failed to send email")
		return fmt.Errorf("failed to send %s email: %w", name, err)
	}

	m.logger.Info().Str("to", to).Str("subject", subject).Msg("email sent")
	return nil
}

// FormatClock renders a 24-hour HH:MM time for display, e.g. "6:00 PM".
func FormatClock(hhmm string) string {
	t, err := time.Parse(domain.TimeLayout, hhmm)
	if err != nil {
		return hhmm
	}
	return t.Format("3:04 PM")
}

// FormatDate renders a game date as "Sunday, August 23". Malformed
// dates pass through unchanged.
func FormatDate(date string) string {
	t, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("Monday, January 02")
}

func formatDateYear(date string) string {
	t, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("Monday, January 02, 2006")
}
