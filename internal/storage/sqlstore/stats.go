package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"courtside/internal/domain"
)

type StatsStore struct {
	db *sqlx.DB
}

type statsRow struct {
	PlayerKey      string    `db:"player_key"`
	Player         string    `db:"player"`
	GamesRSVP      int       `db:"games_rsvp"`
	GamesAttended  int       `db:"games_attended"`
	GamesCancelled int       `db:"games_cancelled"`
	GamesNoShow    int       `db:"games_no_show"`
	EarlyRSVPs     int       `db:"early_rsvps"`
	GuestsBrought  int       `db:"guests_brought"`
	CurrentStreak  int       `db:"current_streak"`
	LongestStreak  int       `db:"longest_streak"`
	LastGameDate   string    `db:"last_game_date"`
	FirstGameDate  string    `db:"first_game_date"`
	AttendanceRate float64   `db:"attendance_rate"`
	TotalPoints    int       `db:"total_points"`
	IsMonthlyMVP   bool      `db:"is_monthly_mvp"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (r statsRow) toDomain() domain.PlayerStats {
	return domain.PlayerStats{
		Player:         r.Player,
		GamesRSVP:      r.GamesRSVP,
		GamesAttended:  r.GamesAttended,
		GamesCancelled: r.GamesCancelled,
		GamesNoShow:    r.GamesNoShow,
		EarlyRSVPs:     r.EarlyRSVPs,
		GuestsBrought:  r.GuestsBrought,
		CurrentStreak:  r.CurrentStreak,
		LongestStreak:  r.LongestStreak,
		LastGameDate:   r.LastGameDate,
		FirstGameDate:  r.FirstGameDate,
		AttendanceRate: r.AttendanceRate,
		TotalPoints:    r.TotalPoints,
		IsMonthlyMVP:   r.IsMonthlyMVP,
		UpdatedAt:      r.UpdatedAt,
	}
}

const statsColumns = `player_key, player, games_rsvp, games_attended, games_cancelled,
	games_no_show, early_rsvps, guests_brought, current_streak, longest_streak,
	last_game_date, first_game_date, attendance_rate, total_points, is_monthly_mvp, updated_at`

func (s *StatsStore) Get(ctx context.Context, player string) (domain.PlayerStats, error) {
	var row statsRow
	query := s.db.Rebind("SELECT " + statsColumns + " FROM player_stats WHERE player_key = ?")
	err := s.db.GetContext(ctx, &row, query, nameKey(player))
	if errors.Is(err, sql.ErrNoRows) {
		// New players start from a zero line.
		return domain.PlayerStats{Player: player}, nil
	}
	if err != nil {
		return domain.PlayerStats{}, fmt.Errorf("failed to get stats for %q: %w", player, err)
	}
	return row.toDomain(), nil
}

func (s *StatsStore) Put(ctx context.Context, stats domain.PlayerStats) error {
	if stats.UpdatedAt.IsZero() {
		stats.UpdatedAt = time.Now()
	}

	query := s.db.Rebind(`
		INSERT INTO player_stats (` + statsColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (player_key) DO UPDATE SET
			player = excluded.player,
			games_rsvp = excluded.games_rsvp,
			games_attended = excluded.games_attended,
			games_cancelled = excluded.games_cancelled,
			games_no_show = excluded.games_no_show,
			early_rsvps = excluded.early_rsvps,
			guests_brought = excluded.guests_brought,
			current_streak = excluded.current_streak,
			longest_streak = excluded.longest_streak,
			last_game_date = excluded.last_game_date,
			first_game_date = excluded.first_game_date,
			attendance_rate = excluded.attendance_rate,
			total_points = excluded.total_points,
			is_monthly_mvp = excluded.is_monthly_mvp,
			updated_at = excluded.updated_at`)

	_, err := s.db.ExecContext(ctx, query,
		nameKey(stats.Player), stats.Player,
		stats.GamesRSVP, stats.GamesAttended, stats.GamesCancelled, stats.GamesNoShow,
		stats.EarlyRSVPs, stats.GuestsBrought, stats.CurrentStreak, stats.LongestStreak,
		stats.LastGameDate, stats.FirstGameDate, stats.AttendanceRate, stats.TotalPoints,
		stats.IsMonthlyMVP, stats.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to put stats for %q: %w", stats.Player, err)
	}
	return nil
}

func (s *StatsStore) All(ctx context.Context) ([]domain.PlayerStats, error) {
	var rows []statsRow
	query := "SELECT " + statsColumns + " FROM player_stats ORDER BY player_key"
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list stats: %w", err)
	}

	out := make([]domain.PlayerStats, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}
