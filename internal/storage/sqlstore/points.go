package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"courtside/internal/domain"
)

type PointsStore struct {
	db *sqlx.DB
}

type pointsRow struct {
	ID        string    `db:"id"`
	Player    string    `db:"player"`
	PlayerKey string    `db:"player_key"`
	Points    int       `db:"points"`
	Reason    string    `db:"reason"`
	CreatedAt time.Time `db:"created_at"`
}

func (r pointsRow) toDomain() domain.PointsEntry {
	return domain.PointsEntry{
		ID:        r.ID,
		Player:    r.Player,
		Points:    r.Points,
		Reason:    r.Reason,
		CreatedAt: r.CreatedAt,
	}
}

const pointsColumns = "id, player, player_key, points, reason, created_at"

func (s *PointsStore) Append(ctx context.Context, entry domain.PointsEntry) error {
	if entry.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		entry.ID = id
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	query := s.db.Rebind("INSERT INTO points_ledger (" + pointsColumns + ") VALUES (?, ?, ?, ?, ?, ?)")
	_, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.Player, nameKey(entry.Player), entry.Points, entry.Reason, entry.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to append points for %q: %w", entry.Player, err)
	}
	return nil
}

func (s *PointsStore) Total(ctx context.Context, player string) (int, error) {
	var total int
	query := s.db.Rebind("SELECT COALESCE(SUM(points), 0) FROM points_ledger WHERE player_key = ?")
	if err := s.db.GetContext(ctx, &total, query, nameKey(player)); err != nil {
		return 0, fmt.Errorf("failed to total points for %q: %w", player, err)
	}
	return total, nil
}

func (s *PointsStore) TotalSince(ctx context.Context, player string, since time.Time) (int, error) {
	var total int
	query := s.db.Rebind("SELECT COALESCE(SUM(points), 0) FROM points_ledger WHERE player_key = ? AND created_at >= ?")
	if err := s.db.GetContext(ctx, &total, query, nameKey(player), since.UTC()); err != nil {
		return 0, fmt.Errorf("failed to total recent points for %q: %w", player, err)
	}
	return total, nil
}

func (s *PointsStore) ListByPlayer(ctx context.Context, player string, limit int) ([]domain.PointsEntry, error) {
	var rows []pointsRow
	query := s.db.Rebind("SELECT " + pointsColumns + " FROM points_ledger WHERE player_key = ? ORDER BY created_at DESC, id LIMIT ?")
	if err := s.db.SelectContext(ctx, &rows, query, nameKey(player), limit); err != nil {
		return nil, fmt.Errorf("failed to list points for %q: %w", player, err)
	}

	out := make([]domain.PointsEntry, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *PointsStore) Players(ctx context.Context) ([]string, error) {
	// MIN(player) keeps one stable display casing per player key.
	var players []string
	query := "SELECT MIN(player) FROM points_ledger GROUP BY player_key ORDER BY player_key"
	if err := s.db.SelectContext(ctx, &players, query); err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	return players, nil
}

func (s *PointsStore) All(ctx context.Context) ([]domain.PointsEntry, error) {
	var rows []pointsRow
	query := "SELECT " + pointsColumns + " FROM points_ledger ORDER BY created_at, id"
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list points ledger: %w", err)
	}

	out := make([]domain.PointsEntry, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}
