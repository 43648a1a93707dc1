package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"courtside/internal/constants"
	"courtside/internal/domain"
	"courtside/internal/mailer"
	"courtside/internal/storage"
)

// Priority scores a player's claim to the next open spot. Reliable
// regulars rank above frequent cancellers and no-shows; new players
// start at zero.
func Priority(stats domain.PlayerStats) int {
	priority := stats.GamesAttended * 10

	if stats.AttendanceRate >= 90 {
		priority += 50
	} else if stats.AttendanceRate >= 75 {
		priority += 25
	}

	priority += stats.CurrentStreak * 5
	priority -= stats.GamesCancelled * 5
	priority -= stats.GamesNoShow * 15

	if priority < 0 {
		return 0
	}
	return priority
}

type WaitlistStats struct {
	WaitlistCount      int     `json:"waitlist_count"`
	ConfirmedCount     int     `json:"confirmed_count"`
	AvailableSpots     int     `json:"available_spots"`
	Capacity           int     `json:"capacity"`
	UtilizationPercent float64 `json:"utilization_percent"`
	NextToPromote      string  `json:"next_to_promote,omitempty"`
}

type WaitlistService struct {
	responses storage.ResponseStore
	stats     storage.StatsStore
	mailer    *mailer.Mailer
	logger    zerolog.Logger
}

func NewWaitlistService(responses storage.ResponseStore, stats storage.StatsStore, mailer *mailer.Mailer, logger zerolog.Logger) *WaitlistService {
	return &WaitlistService{responses: responses, stats: stats, mailer: mailer, logger: logger}
}

// Waitlist returns the waitlisted responses for a game ordered by
// priority (ties broken by who asked first), with 1-based positions.
func (s *WaitlistService) Waitlist(ctx context.Context, gameID int64) ([]domain.WaitlistEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	responses, err := s.responses.ListByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to load responses: %w", err)
	}

	var entries []domain.WaitlistEntry
	for _, resp := range responses {
		if resp.Status != domain.StatusWaitlist {
			continue
		}

		stats, err := s.stats.Get(ctx, resp.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to load stats for %q: %w", resp.Name, err)
		}

		entries = append(entries, domain.WaitlistEntry{Response: resp, Priority: Priority(stats)})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		return entries[i].Response.CreatedAt.Before(entries[j].Response.CreatedAt)
	})

	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries, nil
}

// Position returns a player's 1-based waitlist position, or 0 when the
// player is not waitlisted.
func (s *WaitlistService) Position(ctx context.Context, gameID int64, name string) (int, error) {
	entries, err := s.Waitlist(ctx, gameID)
	if err != nil {
		return 0, err
	}

	for _, entry := range entries {
		if strings.EqualFold(entry.Response.Name, name) {
			return entry.Position, nil
		}
	}
	return 0, nil
}

// ConfirmedSeats counts confirmed players including their guests.
func (s *WaitlistService) ConfirmedSeats(ctx context.Context, gameID int64) (int, error) {
	responses, err := s.responses.ListByGame(ctx, gameID)
	if err != nil {
		return 0, fmt.Errorf("failed to load responses: %w", err)
	}

	seats := 0
	for _, resp := range responses {
		if resp.Status == domain.StatusConfirmed {
			seats += resp.Seats()
		}
	}
	return seats, nil
}

// AvailableSpots returns how many seats remain, never below zero.
func (s *WaitlistService) AvailableSpots(ctx context.Context, game domain.Game) (int, error) {
	seats, err := s.ConfirmedSeats(ctx, game.ID)
	if err != nil {
		return 0, err
	}

	spots := game.Capacity - seats
	if spots < 0 {
		return 0, nil
	}
	return spots, nil
}

// Promote fills open seats from the waitlist in priority order. A
// candidate whose party does not fit is skipped, not blocking; smaller
// parties behind them may still claim the remaining seats. Returns the
// promoted names.
func (s *WaitlistService) Promote(ctx context.Context, game domain.Game) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	spots, err := s.AvailableSpots(ctx, game)
	if err != nil {
		return nil, err
	}
	if spots <= 0 {
		return nil, nil
	}

	entries, err := s.Waitlist(ctx, game.ID)
	if err != nil {
		return nil, err
	}

	var promoted []string
	for _, entry := range entries {
		if spots <= 0 {
			break
		}

		need := entry.Response.Seats()
		if need > spots {
			continue
		}

		if err := s.responses.UpdateStatus(ctx, game.ID, []string{entry.Response.Name}, domain.StatusConfirmed); err != nil {
			return promoted, fmt.Errorf("failed to promote %q: %w", entry.Response.Name, err)
		}

		promoted = append(promoted, entry.Response.Name)
		spots -= need
		s.logger.Info().Int64("game_id", game.ID).Str("player", entry.Response.Name).Int("seats", need).Msg("promoted from waitlist")

		if entry.Response.Email != "" {
			if err := s.mailer.SendWaitlistPromotion(entry.Response.Email, entry.Response.Name, game); err != nil && !errors.Is(err, mailer.ErrDisabled) {
				s.logger.Warn().Err(err).Str("player", entry.Response.Name).Msg("failed to send waitlist promotion email")
			}
		}
	}

	return promoted, nil
}

// Stats summarizes a game's waitlist for the status panel.
func (s *WaitlistService) Stats(ctx context.Context, game domain.Game) (WaitlistStats, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	entries, err := s.Waitlist(ctx, game.ID)
	if err != nil {
		return WaitlistStats{}, err
	}

	seats, err := s.ConfirmedSeats(ctx, game.ID)
	if err != nil {
		return WaitlistStats{}, err
	}

	stats := WaitlistStats{
		WaitlistCount:  len(entries),
		ConfirmedCount: seats,
		Capacity:       game.Capacity,
	}
	if spots := game.Capacity - seats; spots > 0 {
		stats.AvailableSpots = spots
	}
	if game.Capacity > 0 {
		stats.UtilizationPercent = float64(seats) / float64(game.Capacity) * 100
	}
	if len(entries) > 0 {
		stats.NextToPromote = entries[0].Response.Name
	}
	return stats, nil
}
