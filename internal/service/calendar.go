package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"courtside/internal/config"
	"courtside/internal/constants"
	"courtside/internal/domain"
	"courtside/internal/storage"
)

var (
	ErrBadEventType = errors.New("unknown event type")
	ErrTitleMissing = errors.New("event title is required")
)

// CalendarService manages the shared events calendar. Scheduled games
// land here automatically; admins add the rest.
type CalendarService struct {
	events storage.EventStore
	audit  storage.AuditStore
	cfg    *config.Config
	logger zerolog.Logger
}

func NewCalendarService(events storage.EventStore, audit storage.AuditStore, cfg *config.Config, logger zerolog.Logger) *CalendarService {
	return &CalendarService{events: events, audit: audit, cfg: cfg, logger: logger}
}

func (s *CalendarService) Create(ctx context.Context, event domain.Event) (domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if err := validateEvent(event); err != nil {
		return domain.Event{}, err
	}

	created, err := s.events.Create(ctx, event)
	if err != nil {
		return domain.Event{}, fmt.Errorf("failed to create event: %w", err)
	}

	s.auditLog(ctx, "event_created", fmt.Sprintf("event %d: %s on %s", created.ID, created.Title, created.Date))
	s.logger.Info().Int64("event_id", created.ID).Str("title", created.Title).Str("date", created.Date).Msg("event created")
	return created, nil
}

func (s *CalendarService) Update(ctx context.Context, event domain.Event) (domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if err := validateEvent(event); err != nil {
		return domain.Event{}, err
	}

	updated, err := s.events.Update(ctx, event)
	if err != nil {
		return domain.Event{}, fmt.Errorf("failed to update event %d: %w", event.ID, err)
	}

	s.auditLog(ctx, "event_updated", fmt.Sprintf("event %d: %s on %s", updated.ID, updated.Title, updated.Date))
	return updated, nil
}

func (s *CalendarService) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if err := s.events.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete event %d: %w", id, err)
	}

	s.auditLog(ctx, "event_deleted", fmt.Sprintf("event %d", id))
	return nil
}

func (s *CalendarService) Get(ctx context.Context, id int64) (domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.events.Get(ctx, id)
}

// ForDate lists a day's events ordered by start time.
func (s *CalendarService) ForDate(ctx context.Context, date string) ([]domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadDate, date)
	}
	return s.events.ByDate(ctx, date)
}

// ForMonth maps day-of-month to that day's events.
func (s *CalendarService) ForMonth(ctx context.Context, year int, month time.Month) (map[int][]domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	events, err := s.events.ByMonth(ctx, year, month)
	if err != nil {
		return nil, err
	}

	byDay := make(map[int][]domain.Event)
	for _, event := range events {
		d, err := time.Parse(domain.DateLayout, event.Date)
		if err != nil {
			continue
		}
		byDay[d.Day()] = append(byDay[d.Day()], event)
	}
	return byDay, nil
}

func (s *CalendarService) auditLog(ctx context.Context, action, detail string) {
	entry := domain.AuditEntry{Actor: s.cfg.AdminUsername, Action: action, Detail: detail}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to append audit entry")
	}
}

func validateEvent(event domain.Event) error {
	if event.Title == "" {
		return ErrTitleMissing
	}
	if _, err := time.Parse(domain.DateLayout, event.Date); err != nil {
		return fmt.Errorf("%w: %q", ErrBadDate, event.Date)
	}
	if !domain.ValidEventType(event.Type) {
		return fmt.Errorf("%w: %q", ErrBadEventType, event.Type)
	}
	return nil
}
