package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"courtside/internal/domain"
	"courtside/internal/storage"
)

type ResponseStore struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

type responseRow struct {
	ID        int64     `db:"id"`
	GameID    int64     `db:"game_id"`
	Name      string    `db:"name"`
	NameKey   string    `db:"name_key"`
	Email     string    `db:"email"`
	Guests    string    `db:"guests"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r responseRow) toDomain() domain.Response {
	return domain.Response{
		ID:        r.ID,
		GameID:    r.GameID,
		Name:      r.Name,
		Email:     r.Email,
		Guests:    domain.SplitGuests(r.Guests),
		Status:    domain.Status(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func keysOf(names []string) []string {
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = nameKey(n)
	}
	return keys
}

const responseColumns = "id, game_id, name, name_key, email, guests, status, created_at, updated_at"

func (s *ResponseStore) Upsert(ctx context.Context, resp domain.Response) (domain.Response, error) {
	now := time.Now()
	if resp.CreatedAt.IsZero() {
		resp.CreatedAt = now
	}
	resp.UpdatedAt = now

	// created_at is untouched on conflict so the original RSVP time,
	// and with it waitlist ordering, survives edits.
	query := s.db.Rebind(`
		INSERT INTO responses (game_id, name, name_key, email, guests, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (game_id, name_key) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			guests = excluded.guests,
			status = excluded.status,
			updated_at = excluded.updated_at
		RETURNING id, created_at, updated_at`)

	var row responseRow
	err := s.db.QueryRowxContext(ctx, query,
		resp.GameID, resp.Name, nameKey(resp.Name), resp.Email,
		domain.JoinGuests(resp.Guests), string(resp.Status),
		resp.CreatedAt.UTC(), resp.UpdatedAt.UTC(),
	).Scan(&row.ID, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		return domain.Response{}, fmt.Errorf("failed to upsert response for %q: %w", resp.Name, err)
	}

	resp.ID = row.ID
	resp.CreatedAt = row.CreatedAt
	resp.UpdatedAt = row.UpdatedAt

	s.logger.Debug().
		Int64("game_id", resp.GameID).
		Str("player", resp.Name).
		Str("status", string(resp.Status)).
		Msg("response upserted")

	return resp, nil
}

func (s *ResponseStore) Get(ctx context.Context, gameID int64, name string) (domain.Response, error) {
	var row responseRow
	query := s.db.Rebind("SELECT " + responseColumns + " FROM responses WHERE game_id = ? AND name_key = ?")
	err := s.db.GetContext(ctx, &row, query, gameID, nameKey(name))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Response{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Response{}, fmt.Errorf("failed to get response for %q: %w", name, err)
	}
	return row.toDomain(), nil
}

func (s *ResponseStore) ListByGame(ctx context.Context, gameID int64) ([]domain.Response, error) {
	var rows []responseRow
	query := s.db.Rebind("SELECT " + responseColumns + " FROM responses WHERE game_id = ? ORDER BY created_at, id")
	if err := s.db.SelectContext(ctx, &rows, query, gameID); err != nil {
		return nil, fmt.Errorf("failed to list responses for game %d: %w", gameID, err)
	}
	return toDomainResponses(rows), nil
}

func (s *ResponseStore) ListAll(ctx context.Context) ([]domain.Response, error) {
	var rows []responseRow
	query := "SELECT " + responseColumns + " FROM responses ORDER BY created_at, id"
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	return toDomainResponses(rows), nil
}

func (s *ResponseStore) UpdateStatus(ctx context.Context, gameID int64, names []string, status domain.Status) error {
	if len(names) == 0 {
		return nil
	}

	query, args, err := sqlx.In(
		"UPDATE responses SET status = ?, updated_at = ? WHERE game_id = ? AND name_key IN (?)",
		string(status), time.Now().UTC(), gameID, keysOf(names),
	)
	if err != nil {
		return fmt.Errorf("failed to build status update: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return nil
}

func (s *ResponseStore) Delete(ctx context.Context, gameID int64, names []string) error {
	if len(names) == 0 {
		return nil
	}

	query, args, err := sqlx.In(
		"DELETE FROM responses WHERE game_id = ? AND name_key IN (?)",
		gameID, keysOf(names),
	)
	if err != nil {
		return fmt.Errorf("failed to build delete: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to delete responses: %w", err)
	}
	return nil
}

func (s *ResponseStore) KnownEmails(ctx context.Context) ([]domain.PlayerEmail, error) {
	var rows []responseRow
	query := "SELECT " + responseColumns + " FROM responses WHERE email <> '' ORDER BY updated_at, id"
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to collect emails: %w", err)
	}

	// Later rows win, so each player resolves to their latest address.
	latest := make(map[string]domain.PlayerEmail)
	var order []string
	for _, r := range rows {
		if _, ok := latest[r.NameKey]; !ok {
			order = append(order, r.NameKey)
		}
		latest[r.NameKey] = domain.PlayerEmail{Player: r.Name, Email: r.Email}
	}

	out := make([]domain.PlayerEmail, 0, len(latest))
	for _, k := range order {
		out = append(out, latest[k])
	}
	return out, nil
}

func toDomainResponses(rows []responseRow) []domain.Response {
	out := make([]domain.Response, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out
}
