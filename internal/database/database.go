// Package database opens the storage backend. Driver selection runs
// Postgres first, SQLite second and the in-memory store last; an
// explicit DB_DRIVER pins one backend and fails hard instead of
// falling through.
package database

import (
	"context"
	"embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"courtside/internal/config"
	"courtside/internal/constants"
	"courtside/internal/storage"
	"courtside/internal/storage/memstore"
	"courtside/internal/storage/sqlstore"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var embedMigrations embed.FS

func Open(cfg *config.Config, logger zerolog.Logger) (storage.Store, error) {
	switch cfg.DBDriver {
	case "postgres":
		db, err := OpenPostgres(cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		return sqlstore.New(db, logger), nil
	case "sqlite":
		db, err := OpenSQLite(cfg.DBPath, logger)
		if err != nil {
			return nil, err
		}
		return sqlstore.New(db, logger), nil
	case "memory":
		logger.Info().Msg("using in-memory storage")
		return memstore.New(), nil
	}

	// auto
	if cfg.DatabaseURL != "" {
		db, err := OpenPostgres(cfg.DatabaseURL, logger)
		if err == nil {
			return sqlstore.New(db, logger), nil
		}
		logger.Warn().Err(err).Msg("postgres unavailable, trying sqlite")
	}

	db, err := OpenSQLite(cfg.DBPath, logger)
	if err == nil {
		return sqlstore.New(db, logger), nil
	}
	logger.Warn().Err(err).Msg("sqlite unavailable, falling back to in-memory storage")

	return memstore.New(), nil
}

func OpenPostgres(url string, logger zerolog.Logger) (*sqlx.DB, error) {
	if url == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for postgres")
	}

	logger.Info().Msg("connecting to postgres")

	db, err := sqlx.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(constants.DBMaxOpenConns)
	db.SetMaxIdleConns(constants.DBMaxIdleConns)
	db.SetConnMaxLifetime(constants.DBConnMaxLifetime)
	db.SetConnMaxIdleTime(constants.DBMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), constants.DatabaseTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if err := runMigrations(db, "postgres", "migrations/postgres", logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info().Msg("postgres connection established")
	return db, nil
}

func OpenSQLite(path string, logger zerolog.Logger) (*sqlx.DB, error) {
	logger.Info().Str("path", path).Msg("connecting to sqlite")

	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	if path == ":memory:" {
		// Every pooled connection would otherwise see its own empty
		// database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(constants.DBMaxOpenConns)
		db.SetMaxIdleConns(constants.DBMaxIdleConns)
		db.SetConnMaxLifetime(constants.DBConnMaxLifetime)
		db.SetConnMaxIdleTime(constants.DBMaxIdleTime)
	}

	if err := optimizeSQLite(db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to optimize sqlite: %w", err)
	}

	if err := runMigrations(db, "sqlite3", "migrations/sqlite", logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info().Msg("sqlite connection established and optimized")
	return db, nil
}

func runMigrations(db *sqlx.DB, dialect, dir string, logger zerolog.Logger) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db.DB, dir); err != nil {
		return fmt.Errorf("failed to run goose migrations: %w", err)
	}

	logger.Info().Str("dialect", dialect).Msg("migrations completed successfully")
	return nil
}

func optimizeSQLite(db *sqlx.DB, logger zerolog.Logger) error {
	pragmas := []struct {
		name  string
		value string
	}{
		{"journal_mode", "WAL"},
		{"synchronous", "NORMAL"},
		{"cache_size", "-64000"},
		{"busy_timeout", "5000"},
		{"foreign_keys", "ON"},
		{"temp_store", "MEMORY"},
		{"mmap_size", "268435456"}, // memory map 256MB for better performance https://sqlite.org/mmap.html
	}

	for _, pragma := range pragmas {
		query := fmt.Sprintf("PRAGMA %s = %s", pragma.name, pragma.value)
		if _, err := db.Exec(query); err != nil {
			logger.Warn().
				Err(err).
				Str("pragma", pragma.name).
				Str("value", pragma.value).
				Msg("failed to set pragma")
			return fmt.Errorf("failed to set PRAGMA %s: %w", pragma.name, err)
		}
		logger.Debug().
			Str("pragma", pragma.name).
			Str("value", pragma.value).
			Msg("SQLite pragma set")
	}

	return nil
}
