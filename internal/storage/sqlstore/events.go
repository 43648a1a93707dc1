package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"courtside/internal/domain"
	"courtside/internal/storage"
)

type EventStore struct {
	db *sqlx.DB
}

type eventRow struct {
	ID          int64     `db:"id"`
	Title       string    `db:"title"`
	EventDate   string    `db:"event_date"`
	StartTime   string    `db:"start_time"`
	EndTime     string    `db:"end_time"`
	EventType   string    `db:"event_type"`
	Location    string    `db:"location"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r eventRow) toDomain() domain.Event {
	return domain.Event{
		ID:          r.ID,
		Title:       r.Title,
		Date:        r.EventDate,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Type:        r.EventType,
		Location:    r.Location,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

const eventColumns = "id, title, event_date, start_time, end_time, event_type, location, description, created_at, updated_at"

func (s *EventStore) Create(ctx context.Context, event domain.Event) (domain.Event, error) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	event.UpdatedAt = event.CreatedAt

	query := s.db.Rebind(`
		INSERT INTO events (title, event_date, start_time, end_time, event_type, location, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)
	err := s.db.QueryRowContext(ctx, query,
		event.Title, event.Date, event.StartTime, event.EndTime, event.Type,
		event.Location, event.Description, event.CreatedAt.UTC(), event.UpdatedAt.UTC(),
	).Scan(&event.ID)
	if err != nil {
		return domain.Event{}, fmt.Errorf("failed to create event: %w", err)
	}
	return event, nil
}

func (s *EventStore) Update(ctx context.Context, event domain.Event) (domain.Event, error) {
	query := s.db.Rebind(`
		UPDATE events
		SET title = ?, event_date = ?, start_time = ?, end_time = ?, event_type = ?, location = ?, description = ?, updated_at = ?
		WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query,
		event.Title, event.Date, event.StartTime, event.EndTime, event.Type,
		event.Location, event.Description, time.Now().UTC(), event.ID,
	)
	if err != nil {
		return domain.Event{}, fmt.Errorf("failed to update event %d: %w", event.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.Event{}, storage.ErrNotFound
	}
	return s.Get(ctx, event.ID)
}

func (s *EventStore) Delete(ctx context.Context, id int64) error {
	query := s.db.Rebind("DELETE FROM events WHERE id = ?")
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete event %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *EventStore) Get(ctx context.Context, id int64) (domain.Event, error) {
	var row eventRow
	query := s.db.Rebind("SELECT " + eventColumns + " FROM events WHERE id = ?")
	err := s.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Event{}, fmt.Errorf("failed to get event %d: %w", id, err)
	}
	return row.toDomain(), nil
}

func (s *EventStore) ByDate(ctx context.Context, date string) ([]domain.Event, error) {
	var rows []eventRow
	query := s.db.Rebind("SELECT " + eventColumns + " FROM events WHERE event_date = ? ORDER BY start_time, id")
	if err := s.db.SelectContext(ctx, &rows, query, date); err != nil {
		return nil, fmt.Errorf("failed to list events on %s: %w", date, err)
	}
	return toDomainEvents(rows), nil
}

func (s *EventStore) ByMonth(ctx context.Context, year int, month time.Month) ([]domain.Event, error) {
	prefix := fmt.Sprintf("%04d-%02d-%%", year, int(month))
	var rows []eventRow
	query := s.db.Rebind("SELECT " + eventColumns + " FROM events WHERE event_date LIKE ? ORDER BY event_date, start_time, id")
	if err := s.db.SelectContext(ctx, &rows, query, prefix); err != nil {
		return nil, fmt.Errorf("failed to list events for %d-%02d: %w", year, int(month), err)
	}
	return toDomainEvents(rows), nil
}

func (s *EventStore) List(ctx context.Context) ([]domain.Event, error) {
	var rows []eventRow
	query := "SELECT " + eventColumns + " FROM events ORDER BY event_date, start_time, id"
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return toDomainEvents(rows), nil
}

func toDomainEvents(rows []eventRow) []domain.Event {
	out := make([]domain.Event, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out
}
