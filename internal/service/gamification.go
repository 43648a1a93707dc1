package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"courtside/internal/constants"
	"courtside/internal/domain"
	"courtside/internal/mailer"
	"courtside/internal/storage"
)

// Leaderboard metrics.
const (
	MetricPoints         = "points"
	MetricGamesAttended  = "games_attended"
	MetricAttendanceRate = "attendance_rate"
	MetricCurrentStreak  = "current_streak"
	MetricLongestStreak  = "longest_streak"
)

var ErrUnknownMetric = errors.New("unknown leaderboard metric")

type LeaderboardEntry struct {
	Rank   int     `json:"rank"`
	Player string  `json:"player"`
	Value  float64 `json:"value"`
}

type UnlockedAchievement struct {
	domain.Achievement
	UnlockedAt time.Time `json:"unlocked_at"`
}

type PlayerProfile struct {
	Stats        domain.PlayerStats    `json:"stats"`
	Achievements []UnlockedAchievement `json:"achievements"`
	RecentPoints []domain.PointsEntry  `json:"recent_points"`
	Ranks        map[string]int        `json:"ranks"`
}

// GamificationService maintains the points ledger, per-player stats,
// streaks and achievement unlocks.
type GamificationService struct {
	stats        storage.StatsStore
	points       storage.PointsStore
	achievements storage.AchievementStore
	responses    storage.ResponseStore
	mailer       *mailer.Mailer
	logger       zerolog.Logger
}

func NewGamificationService(stats storage.StatsStore, points storage.PointsStore, achievements storage.AchievementStore, responses storage.ResponseStore, mailer *mailer.Mailer, logger zerolog.Logger) *GamificationService {
	return &GamificationService{stats: stats, points: points, achievements: achievements, responses: responses, mailer: mailer, logger: logger}
}

// RecordRSVP credits a player for signing up: base points, an early-bird
// bonus when the RSVP lands more than a day before tip-off, and a bonus
// per guest. Returns the points earned.
func (s *GamificationService) RecordRSVP(ctx context.Context, player string, early bool, guests int) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	stats, err := s.stats.Get(ctx, player)
	if err != nil {
		return 0, fmt.Errorf("failed to load stats for %q: %w", player, err)
	}

	stats.GamesRSVP++
	points := domain.PointsRSVPConfirmed
	if early {
		stats.EarlyRSVPs++
		points += domain.PointsRSVPEarly
	}
	if guests > 0 {
		stats.GuestsBrought += guests
		points += guests * domain.PointsBroughtGuest
	}

	if err := s.award(ctx, player, points, "RSVP for game"); err != nil {
		return 0, err
	}
	if err := s.settle(ctx, &stats); err != nil {
		return 0, err
	}
	return points, nil
}

// RecordAttendance credits a played game and advances the streak. Games
// within a two week gap extend the streak, anything longer restarts it.
// Returns the points earned including the streak bonus.
func (s *GamificationService) RecordAttendance(ctx context.Context, player, gameDate string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	stats, err := s.stats.Get(ctx, player)
	if err != nil {
		return 0, fmt.Errorf("failed to load stats for %q: %w", player, err)
	}

	stats.GamesAttended++

	if gap, ok := daysBetween(stats.LastGameDate, gameDate); ok && gap <= domain.StreakGapDays {
		stats.CurrentStreak++
	} else {
		stats.CurrentStreak = 1
	}
	if stats.CurrentStreak > stats.LongestStreak {
		stats.LongestStreak = stats.CurrentStreak
	}
	stats.LastGameDate = gameDate
	if stats.FirstGameDate == "" {
		stats.FirstGameDate = gameDate
	}

	points := domain.PointsAttendance + domain.StreakBonus(stats.CurrentStreak)
	if err := s.award(ctx, player, points, "Attended game"); err != nil {
		return 0, err
	}
	if err := s.settle(ctx, &stats); err != nil {
		return 0, err
	}
	return points, nil
}

// RecordCancellation logs a cancelled RSVP. The streak is gone either
// way; cancelling past the deadline also costs points.
func (s *GamificationService) RecordCancellation(ctx context.Context, player string, late bool) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	stats, err := s.stats.Get(ctx, player)
	if err != nil {
		return fmt.Errorf("failed to load stats for %q: %w", player, err)
	}

	stats.GamesCancelled++
	stats.CurrentStreak = 0

	if late {
		if err := s.award(ctx, player, domain.PointsLateCancel, "Late cancellation"); err != nil {
			return err
		}
	}
	return s.settle(ctx, &stats)
}

// RecordNoShow penalizes a confirmed player who never turned up.
func (s *GamificationService) RecordNoShow(ctx context.Context, player string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	stats, err := s.stats.Get(ctx, player)
	if err != nil {
		return fmt.Errorf("failed to load stats for %q: %w", player, err)
	}

	stats.GamesNoShow++
	stats.CurrentStreak = 0

	if err := s.award(ctx, player, domain.PointsNoShow, "No show"); err != nil {
		return err
	}
	return s.settle(ctx, &stats)
}

func (s *GamificationService) award(ctx context.Context, player string, points int, reason string) error {
	err := s.points.Append(ctx, domain.PointsEntry{Player: player, Points: points, Reason: reason})
	if err != nil {
		return fmt.Errorf("failed to append points: %w", err)
	}

	s.logger.Info().Str("player", player).Int("points", points).Str("reason", reason).Msg("points awarded")
	return nil
}

// settle recomputes the derived stats fields, persists them and runs the
// achievement check.
func (s *GamificationService) settle(ctx context.Context, stats *domain.PlayerStats) error {
	stats.RecalcAttendanceRate()

	total, err := s.points.Total(ctx, stats.Player)
	if err != nil {
		return fmt.Errorf("failed to total points for %q: %w", stats.Player, err)
	}
	stats.TotalPoints = total

	if err := s.stats.Put(ctx, *stats); err != nil {
		return fmt.Errorf("failed to save stats for %q: %w", stats.Player, err)
	}

	_, err = s.CheckAchievements(ctx, stats)
	return err
}

// CheckAchievements unlocks every achievement whose requirement the
// stats now meet, awards its points and sends the unlock email
// best-effort. Returns the newly unlocked achievements.
func (s *GamificationService) CheckAchievements(ctx context.Context, stats *domain.PlayerStats) ([]domain.Achievement, error) {
	var unlocked []domain.Achievement
	for _, ach := range domain.Achievements {
		if !ach.Requirement(*stats) {
			continue
		}

		newly, err := s.achievements.Unlock(ctx, stats.Player, ach.ID, time.Now())
		if err != nil {
			return unlocked, fmt.Errorf("failed to unlock %q: %w", ach.ID, err)
		}
		if !newly {
			continue
		}

		if err := s.award(ctx, stats.Player, ach.Points, "Achievement: "+ach.Name); err != nil {
			return unlocked, err
		}
		s.logger.Info().Str("player", stats.Player).Str("achievement", ach.ID).Msg("achievement unlocked")
		unlocked = append(unlocked, ach)
	}

	if len(unlocked) == 0 {
		return nil, nil
	}

	total, err := s.points.Total(ctx, stats.Player)
	if err != nil {
		return unlocked, fmt.Errorf("failed to total points for %q: %w", stats.Player, err)
	}
	stats.TotalPoints = total

	if err := s.stats.Put(ctx, *stats); err != nil {
		return unlocked, fmt.Errorf("failed to save stats for %q: %w", stats.Player, err)
	}

	s.notifyUnlocks(ctx, *stats, unlocked)
	return unlocked, nil
}

func (s *GamificationService) notifyUnlocks(ctx context.Context, stats domain.PlayerStats, unlocked []domain.Achievement) {
	if !s.mailer.Enabled() {
		return
	}

	email := s.emailOf(ctx, stats.Player)
	if email == "" {
		return
	}

	held, err := s.achievements.ListUnlocked(ctx, stats.Player)
	if err != nil {
		s.logger.Warn().Err(err).Str("player", stats.Player).Msg("failed to count achievements")
		return
	}
	rank, err := s.Rank(ctx, stats.Player, MetricPoints)
	if err != nil {
		s.logger.Warn().Err(err).Str("player", stats.Player).Msg("failed to rank player")
	}

	for _, ach := range unlocked {
		if err := s.mailer.SendAchievementUnlocked(email, stats.Player, ach, stats, len(held), rank); err != nil && !errors.Is(err, mailer.ErrDisabled) {
			s.logger.Warn().Err(err).Str("player", stats.Player).Str("achievement", ach.ID).Msg("failed to send achievement email")
		}
	}
}

func (s *GamificationService) emailOf(ctx context.Context, player string) string {
	known, err := s.responses.KnownEmails(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load known emails")
		return ""
	}

	for _, pe := range known {
		if strings.EqualFold(pe.Player, player) {
			return pe.Email
		}
	}
	return ""
}

// Leaderboard ranks every tracked player by the given metric, highest
// first; name order breaks ties so ranks are stable. limit <= 0 returns
// everyone.
func (s *GamificationService) Leaderboard(ctx context.Context, metric string, limit int) ([]LeaderboardEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	all, err := s.stats.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(all))
	for _, stats := range all {
		value, err := metricValue(stats, metric)
		if err != nil {
			return nil, err
		}
		entries = append(entries, LeaderboardEntry{Player: stats.Player, Value: value})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value > entries[j].Value
		}
		return strings.ToLower(entries[i].Player) < strings.ToLower(entries[j].Player)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// Rank returns a player's 1-based leaderboard position for a metric, or
// 0 when the player has no stats yet.
func (s *GamificationService) Rank(ctx context.Context, player, metric string) (int, error) {
	entries, err := s.Leaderboard(ctx, metric, 0)
	if err != nil {
		return 0, err
	}

	for _, entry := range entries {
		if strings.EqualFold(entry.Player, player) {
			return entry.Rank, nil
		}
	}
	return 0, nil
}

// Profile assembles a player's stats, unlocked achievements, recent
// ledger entries and leaderboard ranks.
func (s *GamificationService) Profile(ctx context.Context, player string) (*PlayerProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)
	var stats domain.PlayerStats
	var unlocks []domain.AchievementUnlock
	var recent []domain.PointsEntry

	g.Go(func() error {
		var err error
		stats, err = s.stats.Get(gCtx, player)
		return err
	})

	g.Go(func() error {
		var err error
		unlocks, err = s.achievements.ListUnlocked(gCtx, player)
		return err
	})

	g.Go(func() error {
		var err error
		recent, err = s.points.ListByPlayer(gCtx, player, constants.PointsHistoryLimit)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load profile for %q: %w", player, err)
	}

	achievements := make([]UnlockedAchievement, 0, len(unlocks))
	for _, unlock := range unlocks {
		ach, ok := domain.AchievementByID(unlock.AchievementID)
		if !ok {
			continue
		}
		achievements = append(achievements, UnlockedAchievement{Achievement: ach, UnlockedAt: unlock.UnlockedAt})
	}

	ranks := make(map[string]int)
	for _, metric := range []string{MetricPoints, MetricGamesAttended, MetricAttendanceRate, MetricCurrentStreak, MetricLongestStreak} {
		rank, err := s.Rank(ctx, player, metric)
		if err != nil {
			return nil, err
		}
		ranks[metric] = rank
	}

	return &PlayerProfile{
		Stats:        stats,
		Achievements: achievements,
		RecentPoints: recent,
		Ranks:        ranks,
	}, nil
}

// CrownMonthlyMVP hands the monthly MVP flag to whoever attended the
// most games. The previous holder loses the flag but keeps the unlock.
// Returns the winner's name, or "" when nobody has attended a game.
func (s *GamificationService) CrownMonthlyMVP(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	board, err := s.Leaderboard(ctx, MetricGamesAttended, 1)
	if err != nil {
		return "", err
	}
	if len(board) == 0 || board[0].Value == 0 {
		return "", nil
	}
	winner := board[0].Player

	all, err := s.stats.All(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load stats: %w", err)
	}
	for _, stats := range all {
		if stats.IsMonthlyMVP && !strings.EqualFold(stats.Player, winner) {
			stats.IsMonthlyMVP = false
			if err := s.stats.Put(ctx, stats); err != nil {
				return "", fmt.Errorf("failed to clear previous MVP %q: %w", stats.Player, err)
			}
		}
	}

	stats, err := s.stats.Get(ctx, winner)
	if err != nil {
		return "", fmt.Errorf("failed to load stats for %q: %w", winner, err)
	}
	stats.IsMonthlyMVP = true
	if err := s.stats.Put(ctx, stats); err != nil {
		return "", fmt.Errorf("failed to save stats for %q: %w", winner, err)
	}

	if _, err := s.CheckAchievements(ctx, &stats); err != nil {
		return "", err
	}

	s.logger.Info().Str("player", winner).Msg("monthly mvp crowned")
	return winner, nil
}

func metricValue(stats domain.PlayerStats, metric string) (float64, error) {
	switch metric {
	case MetricPoints:
		return float64(stats.TotalPoints), nil
	case MetricGamesAttended:
		return float64(stats.GamesAttended), nil
	case MetricAttendanceRate:
		return stats.AttendanceRate, nil
	case MetricCurrentStreak:
		return float64(stats.CurrentStreak), nil
	case MetricLongestStreak:
		return float64(stats.LongestStreak), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
}

// daysBetween returns the whole days from one DateLayout date to
// another. ok is false when either date is absent or malformed.
func daysBetween(from, to string) (int, bool) {
	if from == "" || to == "" {
		return 0, false
	}

	a, err := time.Parse(domain.DateLayout, from)
	if err != nil {
		return 0, false
	}
	b, err := time.Parse(domain.DateLayout, to)
	if err != nil {
		return 0, false
	}
	return int(b.Sub(a).Hours() / 24), true
}
