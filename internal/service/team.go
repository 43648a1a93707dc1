package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"courtside/internal/constants"
	"courtside/internal/domain"
	"courtside/internal/storage"
)

var (
	ErrTooFewTeams   = errors.New("need at least two teams")
	ErrTooFewPlayers = errors.New("not enough players for that many teams")
)

type TeamService struct {
	responses storage.ResponseStore
	logger    zerolog.Logger
}

func NewTeamService(responses storage.ResponseStore, logger zerolog.Logger) *TeamService {
	return &TeamService{responses: responses, logger: logger}
}

// Generate splits the confirmed players, guests included, into
// numTeams random teams of near-equal size.
func (s *TeamService) Generate(ctx context.Context, gameID int64, numTeams int) ([][]string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if numTeams < 2 {
		return nil, ErrTooFewTeams
	}

	responses, err := s.responses.ListByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to load responses: %w", err)
	}

	var players []string
	for _, resp := range responses {
		if resp.Status != domain.StatusConfirmed {
			continue
		}
		players = append(players, resp.Name)
		players = append(players, resp.Guests...)
	}

	if len(players) < numTeams {
		return nil, fmt.Errorf("%w: %d players, %d teams", ErrTooFewPlayers, len(players), numTeams)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	rng.Shuffle(len(players), func(i, j int) {
		players[i], players[j] = players[j], players[i]
	})

	teams := make([][]string, numTeams)
	for i, player := range players {
		teams[i%numTeams] = append(teams[i%numTeams], player)
	}

	s.logger.Info().Int64("game_id", gameID).Int("players", len(players)).Int("teams", numTeams).Msg("teams generated")
	return teams, nil
}
