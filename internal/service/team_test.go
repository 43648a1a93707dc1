package service

import (
	"context"
	"errors"
	"testing"

	"courtside/internal/domain"
)

func TestGenerateTeams(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	game := r.createGame(t, daysFromNow(3), 10)

	stage := []domain.Response{
		{GameID: game.ID, Name: "Alice", Guests: []string{"Dana"}, Status: domain.StatusConfirmed},
		{GameID: game.ID, Name: "Bob", Status: domain.StatusConfirmed},
		{GameID: game.ID, Name: "Carol", Status: domain.StatusConfirmed},
		{GameID: game.ID, Name: "Ed", Status: domain.StatusConfirmed},
		{GameID: game.ID, Name: "Wanda", Status: domain.StatusWaitlist},
		{GameID: game.ID, Name: "Quinn", Status: domain.StatusCancelled},
	}
	for _, resp := range stage {
		if _, err := r.store.Responses().Upsert(ctx, resp); err != nil {
			t.Fatalf("stage %s: %v", resp.Name, err)
		}
	}

	teams, err := r.teams.Generate(ctx, game.ID, 2)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(teams) != 2 {
		t.Fatalf("teams = %d, want 2", len(teams))
	}
	// Five bodies split round-robin: 3 and 2.
	if len(teams[0]) != 3 || len(teams[1]) != 2 {
		t.Errorf("sizes = %d/%d, want 3/2", len(teams[0]), len(teams[1]))
	}

	seen := make(map[string]int)
	for _, team := range teams {
		for _, player := range team {
			seen[player]++
		}
	}
	for _, want := range []string{"Alice", "Dana", "Bob", "Carol", "Ed"} {
		if seen[want] != 1 {
			t.Errorf("%s placed %d times, want exactly once", want, seen[want])
		}
	}
	if seen["Wanda"] != 0 || seen["Quinn"] != 0 {
		t.Error("waitlisted and cancelled players must not be drafted")
	}
}

func TestGenerateTeamsValidation(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	game := r.createGame(t, daysFromNow(3), 10)

	if _, err := r.teams.Generate(ctx, game.ID, 1); !errors.Is(err, ErrTooFewTeams) {
		t.Errorf("one team error = %v, want ErrTooFewTeams", err)
	}

	for _, name := range []string{"Alice", "Bob"} {
		resp := domain.Response{GameID: game.ID, Name: name, Status: domain.StatusConfirmed}
		if _, err := r.store.Responses().Upsert(ctx, resp); err != nil {
			t.Fatalf("stage %s: %v", name, err)
		}
	}

	if _, err := r.teams.Generate(ctx, game.ID, 3); !errors.Is(err, ErrTooFewPlayers) {
		t.Errorf("two players into three teams error = %v, want ErrTooFewPlayers", err)
	}

	teams, err := r.teams.Generate(ctx, game.ID, 2)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(teams[0]) != 1 || len(teams[1]) != 1 {
		t.Errorf("sizes = %d/%d, want 1/1", len(teams[0]), len(teams[1]))
	}
}
