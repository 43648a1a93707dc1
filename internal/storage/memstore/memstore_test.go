package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"courtside/internal/domain"
	"courtside/internal/storage"
)

func TestGameLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, err := s.Games().Current(ctx); !errors.Is(err, storage.ErrNoActiveGame) {
		t.Fatalf("Current() on empty store = %v, want ErrNoActiveGame", err)
	}

	first, err := s.Games().Create(ctx, domain.Game{Date: "2025-03-07", StartTime: "18:00", EndTime: "20:00", Location: "Court A", Capacity: 15})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if first.ID == 0 || !first.IsActive {
		t.Fatalf("Create() = %+v, want assigned id and active", first)
	}

	second, err := s.Games().Create(ctx, domain.Game{Date: "2025-03-14", StartTime: "18:00", EndTime: "20:00", Location: "Court A", Capacity: 15})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	cur, err := s.Games().Current(ctx)
	if err != nil {
		t.Fatalf("Current() error: %v", err)
	}
	if cur.ID != second.ID {
		t.Errorf("Current() = game %d, want %d", cur.ID, second.ID)
	}

	prev, err := s.Games().Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if prev.IsActive {
		t.Error("previous game should be retired after a new schedule")
	}

	games, err := s.Games().List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(games) != 2 || games[0].ID != second.ID {
		t.Errorf("List() = %+v, want newest first", games)
	}

	at := time.Now()
	if err := s.Games().MarkReminded(ctx, second.ID, at); err != nil {
		t.Fatalf("MarkReminded() error: %v", err)
	}
	cur, _ = s.Games().Current(ctx)
	if !cur.ReminderSentAt.Equal(at) {
		t.Errorf("ReminderSentAt = %v, want %v", cur.ReminderSentAt, at)
	}
}

func TestResponseUpsertPreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := New()

	orig, err := s.Responses().Upsert(ctx, domain.Response{GameID: 1, Name: "Jordan", Status: domain.StatusConfirmed})
	if err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	updated, err := s.Responses().Upsert(ctx, domain.Response{GameID: 1, Name: "JORDAN", Email: "j@example.com", Guests: []string{"Sam"}, Status: domain.StatusConfirmed})
	if err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}

	if updated.ID != orig.ID {
		t.Errorf("upsert created a new row: id %d, want %d", updated.ID, orig.ID)
	}
	if !updated.CreatedAt.Equal(orig.CreatedAt) {
		t.Errorf("CreatedAt changed on update: %v, want %v", updated.CreatedAt, orig.CreatedAt)
	}
	if !updated.UpdatedAt.After(orig.UpdatedAt) {
		t.Error("UpdatedAt should advance on update")
	}

	got, err := s.Responses().Get(ctx, 1, "jordan")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Email != "j@example.com" || len(got.Guests) != 1 {
		t.Errorf("Get() = %+v, want updated fields", got)
	}
}

func TestResponseListOrderAndStatus(t *testing.T) {
	ctx := context.Background()
	s := New()

	base := time.Now().Add(-time.Hour)
	for i, name := range []string{"Casey", "Alex", "Riley"} {
		_, err := s.Responses().Upsert(ctx, domain.Response{
			GameID:    7,
			Name:      name,
			Status:    domain.StatusConfirmed,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Upsert(%s) error: %v", name, err)
		}
	}

	list, err := s.Responses().ListByGame(ctx, 7)
	if err != nil {
		t.Fatalf("ListByGame() error: %v", err)
	}
	if len(list) != 3 || list[0].Name != "Casey" || list[2].Name != "Riley" {
		t.Fatalf("ListByGame() order = %v, want RSVP order", names(list))
	}

	if err := s.Responses().UpdateStatus(ctx, 7, []string{"alex"}, domain.StatusWaitlist); err != nil {
		t.Fatalf("UpdateStatus() error: %v", err)
	}
	got, _ := s.Responses().Get(ctx, 7, "Alex")
	if got.Status != domain.StatusWaitlist {
		t.Errorf("status after UpdateStatus = %s, want waitlist", got.Status)
	}

	if err := s.Responses().Delete(ctx, 7, []string{"Casey"}); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := s.Responses().Get(ctx, 7, "casey"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get() after delete = %v, want ErrNotFound", err)
	}
}

func TestKnownEmailsLatestWins(t *testing.T) {
	ctx := context.Background()
	s := New()

	s.Responses().Upsert(ctx, domain.Response{GameID: 1, Name: "Jordan", Email: "old@example.com", Status: domain.StatusConfirmed})
	time.Sleep(5 * time.Millisecond)
	s.Responses().Upsert(ctx, domain.Response{GameID: 2, Name: "jordan", Email: "new@example.com", Status: domain.StatusConfirmed})
	s.Responses().Upsert(ctx, domain.Response{GameID: 2, Name: "Riley", Status: domain.StatusConfirmed})

	emails, err := s.Responses().KnownEmails(ctx)
	if err != nil {
		t.Fatalf("KnownEmails() error: %v", err)
	}
	if len(emails) != 1 {
		t.Fatalf("KnownEmails() = %v, want one entry", emails)
	}
	if emails[0].Email != "new@example.com" {
		t.Errorf("KnownEmails() = %s, want the most recent address", emails[0].Email)
	}
}

func TestPointsLedger(t *testing.T) {
	ctx := context.Background()
	s := New()

	now := time.Now()
	entries := []domain.PointsEntry{
		{ID: "a", Player: "Jordan", Points: 10, Reason: "RSVP for game", CreatedAt: now.Add(-48 * time.Hour)},
		{ID: "b", Player: "Jordan", Points: 20, Reason: "Attended game", CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "c", Player: "jordan", Points: -5, Reason: "Late cancellation", CreatedAt: now.Add(-time.Hour)},
		{ID: "d", Player: "Riley", Points: 10, Reason: "RSVP for game", CreatedAt: now},
	}
	for _, e := range entries {
		if err := s.Points().Append(ctx, e); err != nil {
			t.Fatalf("Append() error: %v", err)
		}
	}

	total, err := s.Points().Total(ctx, "JORDAN")
	if err != nil {
		t.Fatalf("Total() error: %v", err)
	}
	if total != 25 {
		t.Errorf("Total() = %d, want 25 (case-insensitive sum)", total)
	}

	recent, err := s.Points().TotalSince(ctx, "Jordan", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("TotalSince() error: %v", err)
	}
	if recent != 15 {
		t.Errorf("TotalSince() = %d, want 15", recent)
	}

	hist, err := s.Points().ListByPlayer(ctx, "Jordan", 2)
	if err != nil {
		t.Fatalf("ListByPlayer() error: %v", err)
	}
	if len(hist) != 2 || hist[0].ID != "c" {
		t.Errorf("ListByPlayer() = %+v, want newest first, limited to 2", hist)
	}

	players, err := s.Points().Players(ctx)
	if err != nil {
		t.Fatalf("Players() error: %v", err)
	}
	if len(players) != 2 {
		t.Errorf("Players() = %v, want 2 distinct players", players)
	}
}

func TestAchievementUnlockOnce(t *testing.T) {
	ctx := context.Background()
	s := New()

	first, err := s.Achievements().Unlock(ctx, "Jordan", "first_game", time.Now())
	if err != nil {
		t.Fatalf("Unlock() error: %v", err)
	}
	if !first {
		t.Error("first Unlock() = false, want true")
	}

	again, err := s.Achievements().Unlock(ctx, "jordan", "first_game", time.Now())
	if err != nil {
		t.Fatalf("Unlock() error: %v", err)
	}
	if again {
		t.Error("second Unlock() = true, want false")
	}

	unlocked, err := s.Achievements().ListUnlocked(ctx, "JORDAN")
	if err != nil {
		t.Fatalf("ListUnlocked() error: %v", err)
	}
	if len(unlocked) != 1 {
		t.Errorf("ListUnlocked() = %v, want exactly one unlock", unlocked)
	}
}

func TestEventsCalendar(t *testing.T) {
	ctx := context.Background()
	s := New()

	mar, err := s.Events().Create(ctx, domain.Event{Title: "Scrimmage", Date: "2025-03-15", StartTime: "10:00"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	s.Events().Create(ctx, domain.Event{Title: "Tournament", Date: "2025-04-05"})
	s.Events().Create(ctx, domain.Event{Title: "Morning run", Date: "2025-03-15", StartTime: "08:00"})

	byMonth, err := s.Events().ByMonth(ctx, 2025, time.March)
	if err != nil {
		t.Fatalf("ByMonth() error: %v", err)
	}
	if len(byMonth) != 2 || byMonth[0].Title != "Morning run" {
		t.Errorf("ByMonth() = %v, want 2 March events ordered by time", titles(byMonth))
	}

	byDate, err := s.Events().ByDate(ctx, "2025-04-05")
	if err != nil {
		t.Fatalf("ByDate() error: %v", err)
	}
	if len(byDate) != 1 || byDate[0].Title != "Tournament" {
		t.Errorf("ByDate() = %v, want the tournament", titles(byDate))
	}

	mar.Title = "Saturday scrimmage"
	if _, err := s.Events().Update(ctx, mar); err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	got, _ := s.Events().Get(ctx, mar.ID)
	if got.Title != "Saturday scrimmage" {
		t.Errorf("Get() after update = %q", got.Title)
	}

	if err := s.Events().Delete(ctx, mar.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := s.Events().Get(ctx, mar.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get() after delete = %v, want ErrNotFound", err)
	}
	if err := s.Events().Delete(ctx, 999); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Delete() missing event = %v, want ErrNotFound", err)
	}
}

func TestAuditNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()

	base := time.Now()
	for i := 0; i < 5; i++ {
		err := s.Audit().Append(ctx, domain.AuditEntry{
			ID:        string(rune('a' + i)),
			Actor:     "admin",
			Action:    "schedule_game",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("Append() error: %v", err)
		}
	}

	list, err := s.Audit().List(ctx, 3)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(list) != 3 || list[0].ID != "e" {
		t.Errorf("List() = %+v, want 3 newest entries first", list)
	}
}

func names(rs []domain.Response) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Name
	}
	return out
}

func titles(es []domain.Event) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.Title
	}
	return out
}
