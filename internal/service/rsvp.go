package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"courtside/internal/config"
	"courtside/internal/constants"
	"courtside/internal/domain"
	"courtside/internal/mailer"
	"courtside/internal/storage"
)

var (
	ErrNameRequired = errors.New("player name is required")
	ErrBadStatus    = errors.New("invalid response status")
	ErrNotConfirmed = errors.New("response is not confirmed")
)

type SubmitInput struct {
	GameID    int64
	Name      string
	Email     string
	Guests    []string
	Attending bool
}

type SubmitResult struct {
	Response     domain.Response `json:"response"`
	Position     int             `json:"waitlist_position,omitempty"`
	PointsEarned int             `json:"points_earned,omitempty"`
	Promoted     []string        `json:"promoted,omitempty"`
}

type Roster struct {
	Confirmed      []domain.Response      `json:"confirmed"`
	Waitlist       []domain.WaitlistEntry `json:"waitlist"`
	Cancelled      []domain.Response      `json:"cancelled"`
	ConfirmedSeats int                    `json:"confirmed_seats"`
}

// RSVPService owns the RSVP lifecycle: submissions, seat allocation,
// admin corrections and post-game attendance. Seat-changing operations
// share one mutex so capacity can never be oversubscribed by
// interleaved reconcile and promote passes.
type RSVPService struct {
	games        storage.GameStore
	responses    storage.ResponseStore
	audit        storage.AuditStore
	waitlist     *WaitlistService
	gamification *GamificationService
	mailer       *mailer.Mailer
	cfg          *config.Config
	logger       zerolog.Logger

	mu sync.Mutex
}

func NewRSVPService(games storage.GameStore, responses storage.ResponseStore, audit storage.AuditStore, waitlist *WaitlistService, gamification *GamificationService, mailer *mailer.Mailer, cfg *config.Config, logger zerolog.Logger) *RSVPService {
	return &RSVPService{games: games, responses: responses, audit: audit, waitlist: waitlist, gamification: gamification, mailer: mailer, cfg: cfg, logger: logger}
}

// Submit records a player's RSVP and settles the game's seats. An
// attending submit keeps an already assigned bucket (confirmed players
// editing guests stay confirmed until reconcile says otherwise) and
// earns points only the first time; re-submitting after a cancel counts
// as a fresh RSVP. A cancellation frees the seats and promotes from the
// waitlist.
func (s *RSVPService) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	guests := make([]string, 0, len(in.Guests))
	for _, g := range in.Guests {
		if g = strings.TrimSpace(g); g != "" {
			guests = append(guests, g)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	game, err := s.games.Get(ctx, in.GameID)
	if err != nil {
		return nil, fmt.Errorf("failed to load game %d: %w", in.GameID, err)
	}

	existing, err := s.responses.Get(ctx, game.ID, name)
	hadExisting := err == nil
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to load response: %w", err)
	}

	status := domain.StatusPending
	switch {
	case !in.Attending:
		status = domain.StatusCancelled
	case hadExisting && (existing.Status == domain.StatusConfirmed || existing.Status == domain.StatusWaitlist):
		status = existing.Status
	}

	saved, err := s.responses.Upsert(ctx, domain.Response{
		GameID: game.ID,
		Name:   name,
		Email:  strings.TrimSpace(in.Email),
		Guests: guests,
		Status: status,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save response: %w", err)
	}

	s.logger.Info().
		Int64("game_id", game.ID).
		Str("player", name).
		Bool("attending", in.Attending).
		Int("guests", len(guests)).
		Msg("rsvp submitted")

	if !in.Attending {
		return s.settleCancellation(ctx, game, existing, hadExisting, saved)
	}

	pointsEarned := 0
	if !hadExisting || existing.Status == domain.StatusCancelled {
		early := time.Until(game.StartsAt()) > time.Duration(domain.EarlyRSVPWindowHours)*time.Hour
		pointsEarned, err = s.gamification.RecordRSVP(ctx, name, early, len(guests))
		if err != nil {
			return nil, err
		}
	}

	if err := s.reconcile(ctx, game); err != nil {
		return nil, err
	}
	promoted, err := s.waitlist.Promote(ctx, game)
	if err != nil {
		return nil, err
	}

	final, err := s.responses.Get(ctx, game.ID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to reload response: %w", err)
	}

	result := &SubmitResult{Response: final, PointsEarned: pointsEarned, Promoted: promoted}
	if final.Status == domain.StatusWaitlist {
		result.Position, err = s.waitlist.Position(ctx, game.ID, name)
		if err != nil {
			return nil, err
		}
	}

	if final.Status == domain.StatusConfirmed && final.Email != "" {
		if err := s.mailer.SendRSVPConfirmation(final.Email, final.Name, game, final.Guests, pointsEarned); err != nil && !errors.Is(err, mailer.ErrDisabled) {
			s.logger.Warn().Err(err).Str("player", final.Name).Msg("failed to send rsvp confirmation email")
		}
	}

	return result, nil
}

func (s *RSVPService) settleCancellation(ctx context.Context, game domain.Game, existing domain.Response, hadExisting bool, saved domain.Response) (*SubmitResult, error) {
	if hadExisting && existing.Status != domain.StatusCancelled {
		deadline := rsvpDeadline(game, s.cfg.RSVPCutoffDays)
		late := !deadline.IsZero() && time.Now().After(deadline.AddDate(0, 0, 1))
		if err := s.gamification.RecordCancellation(ctx, existing.Name, late); err != nil {
			return nil, err
		}
	}

	if err := s.reconcile(ctx, game); err != nil {
		return nil, err
	}
	promoted, err := s.waitlist.Promote(ctx, game)
	if err != nil {
		return nil, err
	}

	final, err := s.responses.Get(ctx, game.ID, saved.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to reload response: %w", err)
	}
	return &SubmitResult{Response: final, Promoted: promoted}, nil
}

// Roster buckets a game's responses for display. The waitlist bucket
// carries priorities and positions; the others keep RSVP order.
func (s *RSVPService) Roster(ctx context.Context, gameID int64) (*Roster, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	responses, err := s.responses.ListByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to load responses: %w", err)
	}

	roster := &Roster{
		Confirmed: []domain.Response{},
		Cancelled: []domain.Response{},
	}
	for _, resp := range responses {
		switch resp.Status {
		case domain.StatusConfirmed:
			roster.Confirmed = append(roster.Confirmed, resp)
			roster.ConfirmedSeats += resp.Seats()
		case domain.StatusCancelled:
			roster.Cancelled = append(roster.Cancelled, resp)
		}
	}

	roster.Waitlist, err = s.waitlist.Waitlist(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if roster.Waitlist == nil {
		roster.Waitlist = []domain.WaitlistEntry{}
	}
	return roster, nil
}

// SetStatus is the admin bulk status override. The game is re-settled
// afterwards, so force-confirming more seats than exist demotes the
// newest overflow and freed seats are filled from the waitlist.
func (s *RSVPService) SetStatus(ctx context.Context, gameID int64, names []string, status domain.Status) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	switch status {
	case domain.StatusConfirmed, domain.StatusWaitlist, domain.StatusCancelled:
	default:
		return nil, fmt.Errorf("%w: %q", ErrBadStatus, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	game, err := s.games.Get(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to load game %d: %w", gameID, err)
	}

	if err := s.responses.UpdateStatus(ctx, gameID, names, status); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	s.auditLog(ctx, "responses_updated", fmt.Sprintf("game %d: %s -> %s", gameID, strings.Join(names, ", "), status))

	if err := s.reconcile(ctx, game); err != nil {
		return nil, err
	}
	return s.waitlist.Promote(ctx, game)
}

// Remove deletes responses outright, then refills the freed seats.
func (s *RSVPService) Remove(ctx context.Context, gameID int64, names []string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	game, err := s.games.Get(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to load game %d: %w", gameID, err)
	}

	if err := s.responses.Delete(ctx, gameID, names); err != nil {
		return nil, fmt.Errorf("failed to delete responses: %w", err)
	}

	s.auditLog(ctx, "responses_removed", fmt.Sprintf("game %d: %s", gameID, strings.Join(names, ", ")))

	if err := s.reconcile(ctx, game); err != nil {
		return nil, err
	}
	return s.waitlist.Promote(ctx, game)
}

// MarkAttendance settles a confirmed player after the game: credit for
// showing up, penalty for a no-show. Only confirmed responses qualify.
func (s *RSVPService) MarkAttendance(ctx context.Context, gameID int64, name string, attended bool) error {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	game, err := s.games.Get(ctx, gameID)
	if err != nil {
		return fmt.Errorf("failed to load game %d: %w", gameID, err)
	}

	resp, err := s.responses.Get(ctx, gameID, name)
	if err != nil {
		return fmt.Errorf("failed to load response: %w", err)
	}
	if resp.Status != domain.StatusConfirmed {
		return fmt.Errorf("%w: %q is %s", ErrNotConfirmed, resp.Name, resp.Status)
	}

	if attended {
		if _, err := s.gamification.RecordAttendance(ctx, resp.Name, game.Date); err != nil {
			return err
		}
		s.auditLog(ctx, "attendance_marked", fmt.Sprintf("game %d: %s attended", gameID, resp.Name))
	} else {
		if err := s.gamification.RecordNoShow(ctx, resp.Name); err != nil {
			return err
		}
		s.auditLog(ctx, "attendance_marked", fmt.Sprintf("game %d: %s no-show", gameID, resp.Name))
	}
	return nil
}

// reconcile walks the non-cancelled responses in RSVP order and
// redistributes the seats: parties that fit are confirmed, overflow
// moves to the waitlist. Waitlisted responses are never lifted here;
// Promote does that in priority order.
func (s *RSVPService) reconcile(ctx context.Context, game domain.Game) error {
	responses, err := s.responses.ListByGame(ctx, game.ID)
	if err != nil {
		return fmt.Errorf("failed to load responses: %w", err)
	}

	seats := 0
	for _, resp := range responses {
		if resp.Status == domain.StatusCancelled || resp.Status == domain.StatusWaitlist {
			continue
		}

		need := resp.Seats()
		if seats+need <= game.Capacity {
			seats += need
			if resp.Status != domain.StatusConfirmed {
				if err := s.responses.UpdateStatus(ctx, game.ID, []string{resp.Name}, domain.StatusConfirmed); err != nil {
					return fmt.Errorf("failed to confirm %q: %w", resp.Name, err)
				}
			}
			continue
		}

		if err := s.responses.UpdateStatus(ctx, game.ID, []string{resp.Name}, domain.StatusWaitlist); err != nil {
			return fmt.Errorf("failed to waitlist %q: %w", resp.Name, err)
		}
		s.logger.Debug().Int64("game_id", game.ID).Str("player", resp.Name).Int("seats", need).Msg("moved to waitlist")
	}
	return nil
}

func (s *RSVPService) auditLog(ctx context.Context, action, detail string) {
	entry := domain.AuditEntry{Actor: s.cfg.AdminUsername, Action: action, Detail: detail}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to append audit entry")
	}
}

// rsvpDeadline returns the last day to RSVP or cancel without penalty.
// The deadline day itself is still on time.
func rsvpDeadline(game domain.Game, cutoffDays int) time.Time {
	d, err := time.ParseInLocation(domain.DateLayout, game.Date, time.Local)
	if err != nil {
		return time.Time{}
	}
	return d.AddDate(0, 0, -cutoffDays)
}
