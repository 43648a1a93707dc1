// Package worker runs the scheduled background jobs: the day-before
// game reminder, the Monday recap digest, the monthly MVP crowning and
// the periodic backup upload.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"courtside/internal/backup"
	"courtside/internal/config"
	"courtside/internal/constants"
	"courtside/internal/domain"
	"courtside/internal/mailer"
	"courtside/internal/service"
	"courtside/internal/storage"
)

type Worker struct {
	store        storage.Store
	gamification *service.GamificationService
	mail         *mailer.Mailer
	backup       *backup.Service
	cfg          *config.Config
	logger       zerolog.Logger

	interval time.Duration
	now      func() time.Time

	// per-process watermarks; a restart may repeat the Monday batch
	digestWeek string
	mvpMonth   string

	stopChan chan struct{}
	wg       sync.WaitGroup
}

func New(store storage.Store, gamification *service.GamificationService, mail *mailer.Mailer, snapshots *backup.Service, cfg *config.Config, logger zerolog.Logger) *Worker {
	return &Worker{
		store:        store,
		gamification: gamification,
		mail:         mail,
		backup:       snapshots,
		cfg:          cfg,
		logger:       logger,
		interval:     cfg.ReminderInterval,
		now:          time.Now,
		mvpMonth:     monthKey(time.Now()),
		stopChan:     make(chan struct{}),
	}
}

// Start runs the job loop until the context is cancelled or Stop is
// called. The first sweep runs immediately; backups wait a full
// interval so a freshly booted empty store never overwrites the last
// good snapshot.
func (w *Worker) Start(ctx context.Context) {
	var sweepC, backupC <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		sweepC = ticker.C
	}
	if w.backup.Enabled() && w.cfg.BackupInterval > 0 {
		ticker := time.NewTicker(w.cfg.BackupInterval)
		defer ticker.Stop()
		backupC = ticker.C
	}
	if sweepC == nil && backupC == nil {
		w.logger.Info().Msg("worker disabled")
		return
	}

	w.logger.Info().Dur("interval", w.interval).Msg("worker started")

	w.wg.Add(1)
	defer w.wg.Done()

	if sweepC != nil {
		w.sweep(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("worker stopped")
			return
		case <-w.stopChan:
			w.logger.Info().Msg("worker stopped")
			return
		case <-sweepC:
			w.sweep(ctx)
		case <-backupC:
			if err := w.backup.Run(ctx); err != nil {
				w.logger.Error().Err(err).Msg("scheduled backup failed")
			}
		}
	}
}

// Stop signals the loop to exit and waits for any in-flight sweep.
func (w *Worker) Stop() {
	close(w.stopChan)
	w.wg.Wait()
}

func (w *Worker) sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	w.remindUpcomingGame(ctx)
	w.sendWeeklyDigests(ctx)
	w.crownMVP(ctx)
}

// remindUpcomingGame emails confirmed players once the game is less
// than a day out. MarkReminded keeps the batch from repeating.
func (w *Worker) remindUpcomingGame(ctx context.Context) {
	if !w.mail.Enabled() {
		return
	}

	game, err := w.store.Games().Current(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNoActiveGame) {
			w.logger.Error().Err(err).Msg("failed to load current game")
		}
		return
	}
	if !game.ReminderSentAt.IsZero() {
		return
	}

	startsAt := game.StartsAt()
	if startsAt.IsZero() {
		return
	}
	until := startsAt.Sub(w.now())
	if until <= 0 || until > constants.ReminderWindow {
		return
	}

	responses, err := w.store.Responses().ListByGame(ctx, game.ID)
	if err != nil {
		w.logger.Error().Err(err).Int64("game_id", game.ID).Msg("failed to load responses")
		return
	}

	seats := 0
	for _, resp := range responses {
		if resp.Status == domain.StatusConfirmed {
			seats += 1 + len(resp.Guests)
		}
	}

	sent := 0
	for _, resp := range responses {
		if resp.Status != domain.StatusConfirmed || resp.Email == "" {
			continue
		}
		if err := w.mail.SendGameReminder(resp.Email, resp.Name, game, seats); err != nil {
			w.logger.Warn().Err(err).Str("player", resp.Name).Msg("failed to send game reminder")
			continue
		}
		sent++
	}

	if err := w.store.Games().MarkReminded(ctx, game.ID, w.now()); err != nil {
		w.logger.Error().Err(err).Int64("game_id", game.ID).Msg("failed to mark game reminded")
		return
	}
	w.logger.Info().Int64("game_id", game.ID).Int("sent", sent).Msg("game reminders sent")
}

// sendWeeklyDigests mails every known address a recap on Mondays, at
// most once per ISO week.
func (w *Worker) sendWeeklyDigests(ctx context.Context) {
	if !w.mail.Enabled() {
		return
	}

	now := w.now()
	if now.Weekday() != time.Monday {
		return
	}
	week := weekKey(now)
	if week == w.digestWeek {
		return
	}

	recipients, err := w.store.Responses().KnownEmails(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("failed to load known emails")
		return
	}

	weekStart := now.AddDate(0, 0, -7)
	sent := 0
	for _, rcpt := range recipients {
		digest, err := w.buildDigest(ctx, rcpt.Player, weekStart)
		if err != nil {
			w.logger.Warn().Err(err).Str("player", rcpt.Player).Msg("failed to build digest")
			continue
		}
		if err := w.mail.SendWeeklyDigest(rcpt.Email, digest); err != nil {
			w.logger.Warn().Err(err).Str("player", rcpt.Player).Msg("failed to send digest")
			continue
		}
		sent++
	}

	w.digestWeek = week
	w.logger.Info().Int("sent", sent).Str("week", week).Msg("weekly digests sent")
}

func (w *Worker) buildDigest(ctx context.Context, player string, since time.Time) (mailer.Digest, error) {
	stats, err := w.store.Stats().Get(ctx, player)
	if err != nil {
		return mailer.Digest{}, fmt.Errorf("failed to load stats: %w", err)
	}
	points, err := w.store.Points().TotalSince(ctx, player, since)
	if err != nil {
		return mailer.Digest{}, fmt.Errorf("failed to total points: %w", err)
	}
	entries, err := w.store.Points().ListByPlayer(ctx, player, constants.PointsHistoryLimit)
	if err != nil {
		return mailer.Digest{}, fmt.Errorf("failed to load ledger: %w", err)
	}

	games := 0
	var unlocked []string
	for _, entry := range entries {
		if entry.CreatedAt.Before(since) {
			continue
		}
		switch {
		case entry.Reason == "Attended game":
			games++
		case strings.HasPrefix(entry.Reason, "Achievement: "):
			unlocked = append(unlocked, strings.TrimPrefix(entry.Reason, "Achievement: "))
		}
	}

	rank, err := w.gamification.Rank(ctx, player, service.MetricPoints)
	if err != nil {
		return mailer.Digest{}, fmt.Errorf("failed to rank player: %w", err)
	}

	digest := mailer.Digest{
		PlayerName:         player,
		GamesThisWeek:      games,
		PointsThisWeek:     points,
		CurrentStreak:      stats.CurrentStreak,
		NewAchievements:    unlocked,
		Rank:               rank,
		LeaderboardMessage: leaderboardMessage(rank),
	}

	if game, err := w.store.Games().Current(ctx); err == nil && game.StartsAt().After(w.now()) {
		digest.UpcomingGames = append(digest.UpcomingGames, mailer.DigestGame{
			Date:      mailer.FormatDate(game.Date),
			StartTime: mailer.FormatClock(game.StartTime),
			Location:  game.Location,
		})
	}

	return digest, nil
}

// crownMVP settles the MVP once the month rolls over while the process
// is up; the admin endpoint covers manual crowning.
func (w *Worker) crownMVP(ctx context.Context) {
	month := monthKey(w.now())
	if month == w.mvpMonth {
		return
	}
	if _, err := w.gamification.CrownMonthlyMVP(ctx); err != nil {
		w.logger.Error().Err(err).Msg("failed to crown monthly mvp")
		return
	}
	w.mvpMonth = month
}

func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func monthKey(t time.Time) string {
	return t.Format("2006-01")
}

func leaderboardMessage(rank int) string {
	switch {
	case rank == 1:
		return "You're leading the pack. Defend that top spot!"
	case rank > 0 && rank <= 3:
		return "Top three! The summit is one good week away."
	case rank > 0:
		return "Keep showing up to climb the board."
	}
	return "RSVP for the next game to get on the leaderboard."
}
