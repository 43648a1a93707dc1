package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"courtside/internal/domain"
	"courtside/internal/storage"
)

type GameStore struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

type gameRow struct {
	ID             int64        `db:"id"`
	GameDate       string       `db:"game_date"`
	StartTime      string       `db:"start_time"`
	EndTime        string       `db:"end_time"`
	Location       string       `db:"location"`
	Capacity       int          `db:"capacity"`
	IsActive       bool         `db:"is_active"`
	ReminderSentAt sql.NullTime `db:"reminder_sent_at"`
	CreatedAt      time.Time    `db:"created_at"`
}

func (r gameRow) toDomain() domain.Game {
	g := domain.Game{
		ID:        r.ID,
		Date:      r.GameDate,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Location:  r.Location,
		Capacity:  r.Capacity,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
	}
	if r.ReminderSentAt.Valid {
		g.ReminderSentAt = r.ReminderSentAt.Time
	}
	return g
}

const gameColumns = "id, game_date, start_time, end_time, location, capacity, is_active, reminder_sent_at, created_at"

func (s *GameStore) Create(ctx context.Context, game domain.Game) (domain.Game, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Game{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "UPDATE games SET is_active = FALSE WHERE is_active = TRUE"); err != nil {
		return domain.Game{}, fmt.Errorf("failed to retire active games: %w", err)
	}

	if game.CreatedAt.IsZero() {
		game.CreatedAt = time.Now()
	}
	game.IsActive = true

	query := tx.Rebind(`
		INSERT INTO games (game_date, start_time, end_time, location, capacity, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, TRUE, ?)
		RETURNING id`)
	err = tx.QueryRowContext(ctx, query,
		game.Date, game.StartTime, game.EndTime, game.Location, game.Capacity, game.CreatedAt.UTC(),
	).Scan(&game.ID)
	if err != nil {
		return domain.Game{}, fmt.Errorf("failed to insert game: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Game{}, fmt.Errorf("failed to commit game: %w", err)
	}

	s.logger.Debug().
		Int64("game_id", game.ID).
		Str("date", game.Date).
		Msg("game scheduled, previous games retired")

	return game, nil
}

func (s *GameStore) Current(ctx context.Context) (domain.Game, error) {
	var row gameRow
	query := "SELECT " + gameColumns + " FROM games WHERE is_active = TRUE ORDER BY id DESC LIMIT 1"
	err := s.db.GetContext(ctx, &row, query)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Game{}, storage.ErrNoActiveGame
	}
	if err != nil {
		return domain.Game{}, fmt.Errorf("failed to get current game: %w", err)
	}
	return row.toDomain(), nil
}

func (s *GameStore) Get(ctx context.Context, id int64) (domain.Game, error) {
	var row gameRow
	query := s.db.Rebind("SELECT " + gameColumns + " FROM games WHERE id = ?")
	err := s.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Game{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Game{}, fmt.Errorf("failed to get game %d: %w", id, err)
	}
	return row.toDomain(), nil
}

func (s *GameStore) List(ctx context.Context) ([]domain.Game, error) {
	var rows []gameRow
	query := "SELECT " + gameColumns + " FROM games ORDER BY id DESC"
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}

	games := make([]domain.Game, len(rows))
	for i, r := range rows {
		games[i] = r.toDomain()
	}
	return games, nil
}

func (s *GameStore) MarkReminded(ctx context.Context, id int64, at time.Time) error {
	query := s.db.Rebind("UPDATE games SET reminder_sent_at = ? WHERE id = ?")
	res, err := s.db.ExecContext(ctx, query, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark game %d reminded: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
