// Package storage defines the persistence contracts shared by the SQL
// and in-memory backends.
package storage

import (
	"context"
	"errors"
	"time"

	"courtside/internal/domain"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrNoActiveGame indicates no game is currently scheduled.
	ErrNoActiveGame = errors.New("no active game")
)

// GameStore persists scheduled games. At most one game is active at a
// time; Create retires every previous active game in the same
// transaction.
type GameStore interface {
	Create(ctx context.Context, game domain.Game) (domain.Game, error)
	Current(ctx context.Context) (domain.Game, error)
	Get(ctx context.Context, id int64) (domain.Game, error)
	List(ctx context.Context) ([]domain.Game, error)
	MarkReminded(ctx context.Context, id int64, at time.Time) error
}

// ResponseStore persists RSVPs. A player has at most one response per
// game, keyed case-insensitively by name; Upsert keeps the original
// CreatedAt so waitlist ordering survives edits.
type ResponseStore interface {
	Upsert(ctx context.Context, resp domain.Response) (domain.Response, error)
	Get(ctx context.Context, gameID int64, name string) (domain.Response, error)
	ListByGame(ctx context.Context, gameID int64) ([]domain.Response, error)
	ListAll(ctx context.Context) ([]domain.Response, error)
	UpdateStatus(ctx context.Context, gameID int64, names []string, status domain.Status) error
	Delete(ctx context.Context, gameID int64, names []string) error
	KnownEmails(ctx context.Context) ([]domain.PlayerEmail, error)
}

// StatsStore persists per-player aggregates keyed by player name.
type StatsStore interface {
	Get(ctx context.Context, player string) (domain.PlayerStats, error)
	Put(ctx context.Context, stats domain.PlayerStats) error
	All(ctx context.Context) ([]domain.PlayerStats, error)
}

// PointsStore is the append-only points ledger.
type PointsStore interface {
	Append(ctx context.Context, entry domain.PointsEntry) error
	Total(ctx context.Context, player string) (int, error)
	TotalSince(ctx context.Context, player string, since time.Time) (int, error)
	ListByPlayer(ctx context.Context, player string, limit int) ([]domain.PointsEntry, error)
	Players(ctx context.Context) ([]string, error)
	All(ctx context.Context) ([]domain.PointsEntry, error)
}

// AchievementStore records badge unlocks. Unlock reports false when the
// player already holds the badge.
type AchievementStore interface {
	Unlock(ctx context.Context, player, achievementID string, at time.Time) (bool, error)
	ListUnlocked(ctx context.Context, player string) ([]domain.AchievementUnlock, error)
	All(ctx context.Context) ([]domain.AchievementUnlock, error)
}

// EventStore persists calendar events.
type EventStore interface {
	Create(ctx context.Context, event domain.Event) (domain.Event, error)
	Update(ctx context.Context, event domain.Event) (domain.Event, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (domain.Event, error)
	ByDate(ctx context.Context, date string) ([]domain.Event, error)
	ByMonth(ctx context.Context, year int, month time.Month) ([]domain.Event, error)
	List(ctx context.Context) ([]domain.Event, error)
}

// AuditStore records admin actions, newest first on read.
type AuditStore interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
	List(ctx context.Context, limit int) ([]domain.AuditEntry, error)
}

// Store bundles every persistence contract behind one handle.
type Store interface {
	Games() GameStore
	Responses() ResponseStore
	Stats() StatsStore
	Points() PointsStore
	Achievements() AchievementStore
	Events() EventStore
	Audit() AuditStore

	// Kind names the backing implementation: "postgres", "sqlite" or
	// "memory".
	Kind() string
	Close() error
}
