// Package sqlstore implements the storage contracts over Postgres or
// SQLite through one sqlx handle. Queries are written with ? bindvars
// and rebound per driver.
package sqlstore

import (
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"courtside/internal/storage"
)

type Store struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

func New(db *sqlx.DB, logger zerolog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

func (s *Store) Games() storage.GameStore               { return &GameStore{db: s.db, logger: s.logger} }
func (s *Store) Responses() storage.ResponseStore       { return &ResponseStore{db: s.db, logger: s.logger} }
func (s *Store) Stats() storage.StatsStore              { return &StatsStore{db: s.db} }
func (s *Store) Points() storage.PointsStore            { return &PointsStore{db: s.db} }
func (s *Store) Achievements() storage.AchievementStore { return &AchievementStore{db: s.db} }
func (s *Store) Events() storage.EventStore             { return &EventStore{db: s.db} }
func (s *Store) Audit() storage.AuditStore              { return &AuditStore{db: s.db} }

func (s *Store) Kind() string {
	if s.db.DriverName() == "sqlite3" {
		return "sqlite"
	}
	return s.db.DriverName()
}

func (s *Store) Close() error { return s.db.Close() }
