package service

import (
	"context"
	"errors"
	"testing"

	"courtside/internal/domain"
)

func TestRecordRSVPPoints(t *testing.T) {
	tests := []struct {
		name   string
		early  bool
		guests int
		want   int
	}{
		{"base", false, 0, 10},
		{"early", true, 0, 15},
		{"two guests", false, 2, 20},
		{"early with guest", true, 1, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t)
			got, err := r.gamification.RecordRSVP(context.Background(), "Alice", tt.early, tt.guests)
			if err != nil {
				t.Fatalf("RecordRSVP: %v", err)
			}
			if got != tt.want {
				t.Errorf("points = %d, want %d", got, tt.want)
			}

			stats, err := r.store.Stats().Get(context.Background(), "Alice")
			if err != nil {
				t.Fatalf("stats: %v", err)
			}
			if stats.GamesRSVP != 1 {
				t.Errorf("GamesRSVP = %d, want 1", stats.GamesRSVP)
			}
			if stats.GuestsBrought != tt.guests {
				t.Errorf("GuestsBrought = %d, want %d", stats.GuestsBrought, tt.guests)
			}
			if tt.early && stats.EarlyRSVPs != 1 {
				t.Errorf("EarlyRSVPs = %d, want 1", stats.EarlyRSVPs)
			}
			if stats.TotalPoints != tt.want {
				t.Errorf("TotalPoints = %d, want %d", stats.TotalPoints, tt.want)
			}
		})
	}
}

func TestAttendanceStreaks(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	// First game: streak starts, First Timer unlocks.
	points, err := r.gamification.RecordAttendance(ctx, "Alice", "2026-03-07")
	if err != nil {
		t.Fatalf("RecordAttendance: %v", err)
	}
	if points != 20 {
		t.Errorf("first game points = %d, want 20", points)
	}

	stats, err := r.store.Stats().Get(ctx, "Alice")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.CurrentStreak != 1 || stats.LongestStreak != 1 {
		t.Errorf("streaks = %d/%d, want 1/1", stats.CurrentStreak, stats.LongestStreak)
	}
	if stats.FirstGameDate != "2026-03-07" || stats.LastGameDate != "2026-03-07" {
		t.Errorf("dates = %s/%s, want 2026-03-07 both", stats.FirstGameDate, stats.LastGameDate)
	}
	if stats.TotalPoints != 30 {
		t.Errorf("total = %d, want 30 (20 attendance + 10 First Timer)", stats.TotalPoints)
	}

	// One week later: streak extends, bonus kicks in.
	points, err = r.gamification.RecordAttendance(ctx, "Alice", "2026-03-14")
	if err != nil {
		t.Fatalf("RecordAttendance: %v", err)
	}
	if points != 25 {
		t.Errorf("second game points = %d, want 25 (20 + streak bonus 5)", points)
	}

	// 27 days later: streak restarts, longest survives.
	points, err = r.gamification.RecordAttendance(ctx, "Alice", "2026-04-10")
	if err != nil {
		t.Fatalf("RecordAttendance: %v", err)
	}
	if points != 20 {
		t.Errorf("post-gap points = %d, want 20", points)
	}

	stats, err = r.store.Stats().Get(ctx, "Alice")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.CurrentStreak != 1 {
		t.Errorf("CurrentStreak = %d, want 1 after a 27 day gap", stats.CurrentStreak)
	}
	if stats.LongestStreak != 2 {
		t.Errorf("LongestStreak = %d, want 2", stats.LongestStreak)
	}
	if stats.GamesAttended != 3 {
		t.Errorf("GamesAttended = %d, want 3", stats.GamesAttended)
	}
	if stats.FirstGameDate != "2026-03-07" {
		t.Errorf("FirstGameDate = %s, want unchanged", stats.FirstGameDate)
	}
	if stats.LastGameDate != "2026-04-10" {
		t.Errorf("LastGameDate = %s, want 2026-04-10", stats.LastGameDate)
	}
}

func TestLedgerReasons(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	if _, err := r.gamification.RecordAttendance(ctx, "Alice", "2026-03-07"); err != nil {
		t.Fatalf("RecordAttendance: %v", err)
	}

	entries, err := r.store.Points().ListByPlayer(ctx, "Alice", 10)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}

	got := make(map[string]int)
	for _, entry := range entries {
		got[entry.Reason] = entry.Points
	}
	if got["Attended game"] != 20 {
		t.Errorf("ledger = %v, want +20 Attended game", got)
	}
	if got["Achievement: First Timer"] != 10 {
		t.Errorf("ledger = %v, want +10 Achievement: First Timer", got)
	}
}

func TestCancellationResetsStreak(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	r.gamification.RecordAttendance(ctx, "Alice", "2026-03-07")
	r.gamification.RecordAttendance(ctx, "Alice", "2026-03-14")

	if err := r.gamification.RecordCancellation(ctx, "Alice", false); err != nil {
		t.Fatalf("RecordCancellation: %v", err)
	}

	stats, err := r.store.Stats().Get(ctx, "Alice")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.GamesCancelled != 1 || stats.CurrentStreak != 0 {
		t.Errorf("cancelled=%d streak=%d, want 1/0", stats.GamesCancelled, stats.CurrentStreak)
	}
	if stats.LongestStreak != 2 {
		t.Errorf("LongestStreak = %d, want 2 kept", stats.LongestStreak)
	}

	entries, err := r.store.Points().ListByPlayer(ctx, "Alice", 20)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	for _, entry := range entries {
		if entry.Reason == "Late cancellation" {
			t.Fatalf("on-time cancellation must not cost points, got %+v", entry)
		}
	}

	if err := r.gamification.RecordCancellation(ctx, "Alice", true); err != nil {
		t.Fatalf("RecordCancellation late: %v", err)
	}
	entries, err = r.store.Points().ListByPlayer(ctx, "Alice", 20)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	found := false
	for _, entry := range entries {
		if entry.Reason == "Late cancellation" && entry.Points == -5 {
			found = true
		}
	}
	if !found {
		t.Error("late cancellation missing from ledger")
	}
}

func TestRecordNoShow(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	r.gamification.RecordAttendance(ctx, "Alice", "2026-03-07")
	if err := r.gamification.RecordNoShow(ctx, "Alice"); err != nil {
		t.Fatalf("RecordNoShow: %v", err)
	}

	stats, err := r.store.Stats().Get(ctx, "Alice")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.GamesNoShow != 1 || stats.CurrentStreak != 0 {
		t.Errorf("noShow=%d streak=%d, want 1/0", stats.GamesNoShow, stats.CurrentStreak)
	}
	if stats.AttendanceRate != 50 {
		t.Errorf("AttendanceRate = %.1f, want 50 (1 of 2)", stats.AttendanceRate)
	}
	if stats.TotalPoints != 20 {
		t.Errorf("total = %d, want 20 (30 - 10 no show)", stats.TotalPoints)
	}
}

func TestLeaderboard(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	seed := []domain.PlayerStats{
		{Player: "Alice", TotalPoints: 100, GamesAttended: 10},
		{Player: "Bob", TotalPoints: 80, GamesAttended: 12},
		{Player: "Carol", TotalPoints: 100, GamesAttended: 4},
	}
	for _, stats := range seed {
		if err := r.store.Stats().Put(ctx, stats); err != nil {
			t.Fatalf("seed %s: %v", stats.Player, err)
		}
	}

	board, err := r.gamification.Leaderboard(ctx, MetricPoints, 0)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	wantOrder := []string{"Alice", "Carol", "Bob"}
	if len(board) != 3 {
		t.Fatalf("entries = %d, want 3", len(board))
	}
	for i, want := range wantOrder {
		if board[i].Player != want || board[i].Rank != i+1 {
			t.Errorf("board[%d] = %+v, want %s at rank %d", i, board[i], want, i+1)
		}
	}

	board, err = r.gamification.Leaderboard(ctx, MetricGamesAttended, 2)
	if err != nil {
		t.Fatalf("Leaderboard limited: %v", err)
	}
	if len(board) != 2 || board[0].Player != "Bob" {
		t.Fatalf("limited board = %+v, want Bob then Alice", board)
	}

	if _, err := r.gamification.Leaderboard(ctx, "sandwiches", 0); !errors.Is(err, ErrUnknownMetric) {
		t.Fatalf("bad metric error = %v, want ErrUnknownMetric", err)
	}

	rank, err := r.gamification.Rank(ctx, "CAROL", MetricPoints)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if rank != 2 {
		t.Errorf("Carol rank = %d, want 2 (name breaks the tie)", rank)
	}

	rank, err = r.gamification.Rank(ctx, "Nobody", MetricPoints)
	if err != nil {
		t.Fatalf("Rank absent: %v", err)
	}
	if rank != 0 {
		t.Errorf("absent rank = %d, want 0", rank)
	}
}

func TestCrownMonthlyMVP(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	if err := r.store.Stats().Put(ctx, domain.PlayerStats{Player: "Dana", GamesAttended: 5}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := r.store.Stats().Put(ctx, domain.PlayerStats{Player: "Eve", GamesAttended: 3, IsMonthlyMVP: true}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	winner, err := r.gamification.CrownMonthlyMVP(ctx)
	if err != nil {
		t.Fatalf("CrownMonthlyMVP: %v", err)
	}
	if winner != "Dana" {
		t.Fatalf("winner = %q, want Dana", winner)
	}

	dana, _ := r.store.Stats().Get(ctx, "Dana")
	eve, _ := r.store.Stats().Get(ctx, "Eve")
	if !dana.IsMonthlyMVP {
		t.Error("Dana should hold the MVP flag")
	}
	if eve.IsMonthlyMVP {
		t.Error("Eve should have lost the MVP flag")
	}

	// Crowning the same winner twice must not double-award.
	if _, err := r.gamification.CrownMonthlyMVP(ctx); err != nil {
		t.Fatalf("second crown: %v", err)
	}
	entries, err := r.store.Points().ListByPlayer(ctx, "Dana", 50)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	mvpAwards := 0
	for _, entry := range entries {
		if entry.Reason == "Achievement: Season MVP" {
			mvpAwards++
			if entry.Points != 100 {
				t.Errorf("mvp award = %d points, want 100", entry.Points)
			}
		}
	}
	if mvpAwards != 1 {
		t.Errorf("mvp awards = %d, want exactly 1", mvpAwards)
	}
}

func TestCrownMonthlyMVPNeedsAttendance(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	winner, err := r.gamification.CrownMonthlyMVP(ctx)
	if err != nil {
		t.Fatalf("CrownMonthlyMVP: %v", err)
	}
	if winner != "" {
		t.Fatalf("winner = %q, want none with no players", winner)
	}

	if err := r.store.Stats().Put(ctx, domain.PlayerStats{Player: "Alice", GamesRSVP: 2}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	winner, err = r.gamification.CrownMonthlyMVP(ctx)
	if err != nil {
		t.Fatalf("CrownMonthlyMVP: %v", err)
	}
	if winner != "" {
		t.Fatalf("winner = %q, want none when nobody attended", winner)
	}
}

func TestAchievementUnlockSendsEmail(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	game := r.createGame(t, daysFromNow(3), 10)

	// The unlock email goes to the address on the player's RSVP.
	r.submit(t, game.ID, "Alice", "alice@test", nil, true)

	if _, err := r.gamification.RecordAttendance(ctx, "Alice", "2026-03-07"); err != nil {
		t.Fatalf("RecordAttendance: %v", err)
	}

	if got := r.mail.matching("Achievement Unlocked!"); got != 1 {
		t.Errorf("achievement emails = %d, want 1", got)
	}
	if got := r.mail.matching("First Timer"); got != 1 {
		t.Errorf("First Timer emails = %d, want 1", got)
	}
}

func TestProfile(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	r.gamification.RecordRSVP(ctx, "Alice", true, 0)
	r.gamification.RecordAttendance(ctx, "Alice", "2026-03-07")

	profile, err := r.gamification.Profile(ctx, "Alice")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}

	if profile.Stats.GamesAttended != 1 {
		t.Errorf("GamesAttended = %d, want 1", profile.Stats.GamesAttended)
	}
	if len(profile.Achievements) != 1 || profile.Achievements[0].ID != "first_game" {
		t.Errorf("achievements = %+v, want first_game", profile.Achievements)
	}
	if profile.Achievements[0].UnlockedAt.IsZero() {
		t.Error("UnlockedAt not set")
	}
	if len(profile.RecentPoints) == 0 {
		t.Error("RecentPoints empty")
	}
	for _, metric := range []string{MetricPoints, MetricGamesAttended, MetricAttendanceRate, MetricCurrentStreak, MetricLongestStreak} {
		if profile.Ranks[metric] != 1 {
			t.Errorf("rank[%s] = %d, want 1", metric, profile.Ranks[metric])
		}
	}
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		from, to string
		want     int
		ok       bool
	}{
		{"2026-03-07", "2026-03-14", 7, true},
		{"2026-03-07", "2026-03-07", 0, true},
		{"2026-03-14", "2026-03-07", -7, true},
		{"", "2026-03-07", 0, false},
		{"2026-03-07", "", 0, false},
		{"not-a-date", "2026-03-07", 0, false},
	}

	for _, tt := range tests {
		got, ok := daysBetween(tt.from, tt.to)
		if got != tt.want || ok != tt.ok {
			t.Errorf("daysBetween(%q, %q) = %d, %v; want %d, %v", tt.from, tt.to, got, ok, tt.want, tt.ok)
		}
	}
}
