package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"courtside/internal/domain"
)

type AuditStore struct {
	db *sqlx.DB
}

type auditRow struct {
	ID        string    `db:"id"`
	Actor     string    `db:"actor"`
	Action    string    `db:"action"`
	Detail    string    `db:"detail"`
	CreatedAt time.Time `db:"created_at"`
}

func (s *AuditStore) Append(ctx context.Context, entry domain.AuditEntry) error {
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

	query := s.db.Rebind("INSERT INTO audit_log (id, actor, action, detail, created_at) VALUES (?, ?, ?, ?, ?)")
	_, err := s.db.ExecContext(ctx, query, entry.ID, entry.Actor, entry.Action, entry.Detail, entry.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (s *AuditStore) List(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	var rows []auditRow
	query := s.db.Rebind("SELECT id, actor, action, detail, created_at FROM audit_log ORDER BY created_at DESC, id LIMIT ?")
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list audit log: %w", err)
	}

	out := make([]domain.AuditEntry, len(rows))
	for i, r := range rows {
		out[i] = domain.AuditEntry{
			ID:        r.ID,
			Actor:     r.Actor,
			Action:    r.Action,
			Detail:    r.Detail,
			CreatedAt: r.CreatedAt,
		}
	}
	return out, nil
}
