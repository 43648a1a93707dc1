package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"courtside/internal/config"
	"courtside/internal/constants"
	"courtside/internal/domain"
	"courtside/internal/mailer"
	"courtside/internal/storage"
)

var (
	ErrBadDate      = errors.New("invalid game date")
	ErrBadTime      = errors.New("invalid game time")
	ErrTimeOrdering = errors.New("game must end after it starts")
)

type GameSummary struct {
	Game           domain.Game `json:"game"`
	ConfirmedSeats int         `json:"confirmed_seats"`
	AvailableSpots int         `json:"available_spots"`
	WaitlistCount  int         `json:"waitlist_count"`
	Deadline       string      `json:"rsvp_deadline"`
	DaysUntil      int         `json:"days_until"`
}

type GameService struct {
	games     storage.GameStore
	responses storage.ResponseStore
	events    storage.EventStore
	audit     storage.AuditStore
	mailer    *mailer.Mailer
	cfg       *config.Config
	logger    zerolog.Logger
}

func NewGameService(games storage.GameStore, responses storage.ResponseStore, events storage.EventStore, audit storage.AuditStore, mailer *mailer.Mailer, cfg *config.Config, logger zerolog.Logger) *GameService {
	return &GameService{games: games, responses: responses, events: events, audit: audit, mailer: mailer, cfg: cfg, logger: logger}
}

// Schedule creates the next game and retires the previous one. The game
// is mirrored into the calendar and announced by email to every player
// with an address on file.
func (s *GameService) Schedule(ctx context.Context, date, start, end, location string, capacity int) (domain.Game, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return domain.Game{}, fmt.Errorf("%w: %q", ErrBadDate, date)
	}
	startAt, err := time.Parse(domain.TimeLayout, start)
	if err != nil {
		return domain.Game{}, fmt.Errorf("%w: %q", ErrBadTime, start)
	}
	endAt, err := time.Parse(domain.TimeLayout, end)
	if err != nil {
		return domain.Game{}, fmt.Errorf("%w: %q", ErrBadTime, end)
	}
	if !endAt.After(startAt) {
		return domain.Game{}, ErrTimeOrdering
	}

	if capacity <= 0 {
		capacity = s.cfg.GameCapacity
	}
	if location = strings.TrimSpace(location); location == "" {
		location = s.cfg.DefaultLocation
	}

	game, err := s.games.Create(ctx, domain.Game{
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Location:  location,
		Capacity:  capacity,
	})
	if err != nil {
		return domain.Game{}, fmt.Errorf("failed to create game: %w", err)
	}

	s.logger.Info().
		Int64("game_id", game.ID).
		Str("date", game.Date).
		Str("location", game.Location).
		Int("capacity", game.Capacity).
		Msg("game scheduled")

	if _, err := s.events.Create(ctx, domain.Event{
		Title:     "Basketball Game",
		Date:      game.Date,
		StartTime: game.StartTime,
		EndTime:   game.EndTime,
		Type:      domain.EventTypeGame,
		Location:  game.Location,
	}); err != nil {
		s.logger.Warn().Err(err).Int64("game_id", game.ID).Msg("failed to mirror game into calendar")
	}

	entry := domain.AuditEntry{
		Actor:  s.cfg.AdminUsername,
		Action: "game_scheduled",
		Detail: fmt.Sprintf("game %d on %s at %s", game.ID, game.Date, game.Location),
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Msg("failed to append audit entry")
	}

	if s.mailer.Enabled() {
		recipients, err := s.responses.KnownEmails(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to load known emails")
		} else if len(recipients) > 0 {
			go s.announce(recipients, game, rsvpDeadline(game, s.cfg.RSVPCutoffDays))
		}
	}

	return game, nil
}

// announce fans the game announcement out to every known address. Runs
// detached from the scheduling request; failures only log.
func (s *GameService) announce(recipients []domain.PlayerEmail, game domain.Game, deadline time.Time) {
	g := new(errgroup.Group)
	g.SetLimit(4)

	for _, rcpt := range recipients {
		g.Go(func() error {
			if err := s.mailer.SendGameScheduled(rcpt.Email, game, deadline); err != nil && !errors.Is(err, mailer.ErrDisabled) {
				s.logger.Warn().Err(err).Str("to", rcpt.Email).Msg("failed to send game announcement")
			}
			return nil
		})
	}
	g.Wait()

	s.logger.Info().Int64("game_id", game.ID).Int("recipients", len(recipients)).Msg("game announcement sent")
}

// Current returns the active game, or storage.ErrNoActiveGame.
func (s *GameService) Current(ctx context.Context) (domain.Game, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.games.Current(ctx)
}

// Get returns one game by id.
func (s *GameService) Get(ctx context.Context, id int64) (domain.Game, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.games.Get(ctx, id)
}

// Summary is the status block for the active game: seats taken, spots
// open, waitlist depth, RSVP deadline and the countdown.
func (s *GameService) Summary(ctx context.Context) (*GameSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	game, err := s.games.Current(ctx)
	if err != nil {
		return nil, err
	}

	responses, err := s.responses.ListByGame(ctx, game.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load responses: %w", err)
	}

	summary := &GameSummary{Game: game}
	for _, resp := range responses {
		switch resp.Status {
		case domain.StatusConfirmed:
			summary.ConfirmedSeats += resp.Seats()
		case domain.StatusWaitlist:
			summary.WaitlistCount++
		}
	}
	if spots := game.Capacity - summary.ConfirmedSeats; spots > 0 {
		summary.AvailableSpots = spots
	}

	if deadline := rsvpDeadline(game, s.cfg.RSVPCutoffDays); !deadline.IsZero() {
		summary.Deadline = deadline.Format(domain.DateLayout)
	}
	if gameDay, err := time.ParseInLocation(domain.DateLayout, game.Date, time.Local); err == nil {
		now := time.Now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
		summary.DaysUntil = int(gameDay.Sub(today).Hours() / 24)
	}

	return summary, nil
}
