package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"courtside/internal/domain"
)

type AchievementStore struct {
	db *sqlx.DB
}

type unlockRow struct {
	PlayerKey     string    `db:"player_key"`
	Player        string    `db:"player"`
	AchievementID string    `db:"achievement_id"`
	UnlockedAt    time.Time `db:"unlocked_at"`
}

func (s *AchievementStore) Unlock(ctx context.Context, player, achievementID string, at time.Time) (bool, error) {
	query := s.db.Rebind(`
		INSERT INTO achievement_unlocks (player_key, player, achievement_id, unlocked_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (player_key, achievement_id) DO NOTHING`)
	res, err := s.db.ExecContext(ctx, query, nameKey(player), player, achievementID, at.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to unlock %q for %q: %w", achievementID, player, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read unlock result: %w", err)
	}
	return n > 0, nil
}

func (s *AchievementStore) ListUnlocked(ctx context.Context, player string) ([]domain.AchievementUnlock, error) {
	var rows []unlockRow
	query := s.db.Rebind("SELECT player_key, player, achievement_id, unlocked_at FROM achievement_unlocks WHERE player_key = ? ORDER BY unlocked_at, achievement_id")
	if err := s.db.SelectContext(ctx, &rows, query, nameKey(player)); err != nil {
		return nil, fmt.Errorf("failed to list unlocks for %q: %w", player, err)
	}
	return toDomainUnlocks(rows), nil
}

func (s *AchievementStore) All(ctx context.Context) ([]domain.AchievementUnlock, error) {
	var rows []unlockRow
	query := "SELECT player_key, player, achievement_id, unlocked_at FROM achievement_unlocks ORDER BY player_key, achievement_id"
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list unlocks: %w", err)
	}
	return toDomainUnlocks(rows), nil
}

func toDomainUnlocks(rows []unlockRow) []domain.AchievementUnlock {
	out := make([]domain.AchievementUnlock, len(rows))
	for i, r := range rows {
		out[i] = domain.AchievementUnlock{
			Player:        r.Player,
			AchievementID: r.AchievementID,
			UnlockedAt:    r.UnlockedAt,
		}
	}
	return out
}
