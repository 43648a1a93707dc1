// Package memstore is the in-memory storage backend. It backs the app
// when neither Postgres nor SQLite is reachable; everything lives for
// the lifetime of the process.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"courtside/internal/domain"
	"courtside/internal/storage"
)

type Store struct {
	mu sync.Mutex

	games      map[int64]domain.Game
	nextGameID int64

	// responses[gameID][lower(name)]
	responses  map[int64]map[string]domain.Response
	nextRespID int64

	stats   map[string]domain.PlayerStats
	points  []domain.PointsEntry
	unlocks map[string]map[string]time.Time

	events      map[int64]domain.Event
	nextEventID int64

	audit []domain.AuditEntry
}

func New() *Store {
	return &Store{
		games:     make(map[int64]domain.Game),
		responses: make(map[int64]map[string]domain.Response),
		stats:     make(map[string]domain.PlayerStats),
		unlocks:   make(map[string]map[string]time.Time),
		events:    make(map[int64]domain.Event),
	}
}

func (s *Store) Games() storage.GameStore               { return (*gameStore)(s) }
func (s *Store) Responses() storage.ResponseStore       { return (*responseStore)(s) }
func (s *Store) Stats() storage.StatsStore              { return (*statsStore)(s) }
func (s *Store) Points() storage.PointsStore            { return (*pointsStore)(s) }
func (s *Store) Achievements() storage.AchievementStore { return (*achievementStore)(s) }
func (s *Store) Events() storage.EventStore             { return (*eventStore)(s) }
func (s *Store) Audit() storage.AuditStore              { return (*auditStore)(s) }

func (s *Store) Kind() string { return "memory" }
func (s *Store) Close() error { return nil }

func key(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

func copyGuests(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func copyResponse(r domain.Response) domain.Response {
	r.Guests = copyGuests(r.Guests)
	return r
}

type gameStore Store

func (s *gameStore) Create(ctx context.Context, game domain.Game) (domain.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, g := range s.games {
		if g.IsActive {
			g.IsActive = false
			s.games[id] = g
		}
	}

	s.nextGameID++
	game.ID = s.nextGameID
	game.IsActive = true
	if game.CreatedAt.IsZero() {
		game.CreatedAt = time.Now()
	}
	s.games[game.ID] = game
	return game, nil
}

func (s *gameStore) Current(ctx context.Context) (domain.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current domain.Game
	found := false
	for _, g := range s.games {
		if g.IsActive && (!found || g.ID > current.ID) {
			current = g
			found = true
		}
	}
	if !found {
		return domain.Game{}, storage.ErrNoActiveGame
	}
	return current, nil
}

func (s *gameStore) Get(ctx context.Context, id int64) (domain.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[id]
	if !ok {
		return domain.Game{}, storage.ErrNotFound
	}
	return g, nil
}

func (s *gameStore) List(ctx context.Context) ([]domain.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Game, 0, len(s.games))
	for _, g := range s.games {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *gameStore) MarkReminded(ctx context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[id]
	if !ok {
		return storage.ErrNotFound
	}
	g.ReminderSentAt = at
	s.games[id] = g
	return nil
}

type responseStore Store

func (s *responseStore) Upsert(ctx context.Context, resp domain.Response) (domain.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byName, ok := s.responses[resp.GameID]
	if !ok {
		byName = make(map[string]domain.Response)
		s.responses[resp.GameID] = byName
	}

	now := time.Now()
	k := key(resp.Name)
	if existing, ok := byName[k]; ok {
		resp.ID = existing.ID
		resp.CreatedAt = existing.CreatedAt
	} else {
		s.nextRespID++
		resp.ID = s.nextRespID
		if resp.CreatedAt.IsZero() {
			resp.CreatedAt = now
		}
	}
	resp.UpdatedAt = now
	byName[k] = copyResponse(resp)
	return resp, nil
}

func (s *responseStore) Get(ctx context.Context, gameID int64, name string) (domain.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.responses[gameID][key(name)]
	if !ok {
		return domain.Response{}, storage.ErrNotFound
	}
	return copyResponse(r), nil
}

func (s *responseStore) ListByGame(ctx context.Context, gameID int64) ([]domain.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Response, 0, len(s.responses[gameID]))
	for _, r := range s.responses[gameID] {
		out = append(out, copyResponse(r))
	}
	sortResponses(out)
	return out, nil
}

func (s *responseStore) ListAll(ctx context.Context) ([]domain.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Response
	for _, byName := range s.responses {
		for _, r := range byName {
			out = append(out, copyResponse(r))
		}
	}
	sortResponses(out)
	return out, nil
}

func (s *responseStore) UpdateStatus(ctx context.Context, gameID int64, names []string, status domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byName := s.responses[gameID]
	now := time.Now()
	for _, name := range names {
		if r, ok := byName[key(name)]; ok {
			r.Status = status
			r.UpdatedAt = now
			byName[key(name)] = r
		}
	}
	return nil
}

func (s *responseStore) Delete(ctx context.Context, gameID int64, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byName := s.responses[gameID]
	for _, name := range names {
		delete(byName, key(name))
	}
	return nil
}

func (s *responseStore) KnownEmails(ctx context.Context) ([]domain.PlayerEmail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	latest := make(map[string]domain.Response)
	for _, byName := range s.responses {
		for k, r := range byName {
			if r.Email == "" {
				continue
			}
			if prev, ok := latest[k]; !ok || r.UpdatedAt.After(prev.UpdatedAt) {
				latest[k] = r
			}
		}
	}

	out := make([]domain.PlayerEmail, 0, len(latest))
	for _, r := range latest {
		out = append(out, domain.PlayerEmail{Player: r.Name, Email: r.Email})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Player < out[j].Player })
	return out, nil
}

func sortResponses(rs []domain.Response) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].ID < rs[j].ID
		}
		return rs[i].CreatedAt.Before(rs[j].CreatedAt)
	})
}

type statsStore Store

func (s *statsStore) Get(ctx context.Context, player string) (domain.PlayerStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.stats[key(player)]; ok {
		return st, nil
	}
	return domain.PlayerStats{Player: player}, nil
}

func (s *statsStore) Put(ctx context.Context, stats domain.PlayerStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stats.UpdatedAt.IsZero() {
		stats.UpdatedAt = time.Now()
	}
	s.stats[key(stats.Player)] = stats
	return nil
}

func (s *statsStore) All(ctx context.Context) ([]domain.PlayerStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.PlayerStats, 0, len(s.stats))
	for _, st := range s.stats {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Player < out[j].Player })
	return out, nil
}

type pointsStore Store

func (s *pointsStore) Append(ctx context.Context, entry domain.PointsEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

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
	s.points = append(s.points, entry)
	return nil
}

func (s *pointsStore) Total(ctx context.Context, player string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, e := range s.points {
		if key(e.Player) == key(player) {
			total += e.Points
		}
	}
	return total, nil
}

func (s *pointsStore) TotalSince(ctx context.Context, player string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, e := range s.points {
		if key(e.Player) == key(player) && !e.CreatedAt.Before(since) {
			total += e.Points
		}
	}
	return total, nil
}

func (s *pointsStore) ListByPlayer(ctx context.Context, player string, limit int) ([]domain.PointsEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.PointsEntry
	for _, e := range s.points {
		if key(e.Player) == key(player) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *pointsStore) Players(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]string)
	for _, e := range s.points {
		if _, ok := seen[key(e.Player)]; !ok {
			seen[key(e.Player)] = e.Player
		}
	}
	out := make([]string, 0, len(seen))
	for _, name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (s *pointsStore) All(ctx context.Context) ([]domain.PointsEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.PointsEntry, len(s.points))
	copy(out, s.points)
	return out, nil
}

type achievementStore Store

func (s *achievementStore) Unlock(ctx context.Context, player, achievementID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(player)
	byID, ok := s.unlocks[k]
	if !ok {
		byID = make(map[string]time.Time)
		s.unlocks[k] = byID
	}
	if _, ok := byID[achievementID]; ok {
		return false, nil
	}
	byID[achievementID] = at
	return true, nil
}

func (s *achievementStore) ListUnlocked(ctx context.Context, player string) ([]domain.AchievementUnlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.AchievementUnlock
	for id, at := range s.unlocks[key(player)] {
		out = append(out, domain.AchievementUnlock{Player: player, AchievementID: id, UnlockedAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UnlockedAt.Before(out[j].UnlockedAt) })
	return out, nil
}

func (s *achievementStore) All(ctx context.Context) ([]domain.AchievementUnlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.AchievementUnlock
	for player, byID := range s.unlocks {
		for id, at := range byID {
			out = append(out, domain.AchievementUnlock{Player: player, AchievementID: id, UnlockedAt: at})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Player == out[j].Player {
			return out[i].AchievementID < out[j].AchievementID
		}
		return out[i].Player < out[j].Player
	})
	return out, nil
}

type eventStore Store

func (s *eventStore) Create(ctx context.Context, event domain.Event) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextEventID++
	event.ID = s.nextEventID
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	event.UpdatedAt = event.CreatedAt
	s.events[event.ID] = event
	return event, nil
}

func (s *eventStore) Update(ctx context.Context, event domain.Event) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.events[event.ID]
	if !ok {
		return domain.Event{}, storage.ErrNotFound
	}
	event.CreatedAt = existing.CreatedAt
	event.UpdatedAt = time.Now()
	s.events[event.ID] = event
	return event, nil
}

func (s *eventStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.events, id)
	return nil
}

func (s *eventStore) Get(ctx context.Context, id int64) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return domain.Event{}, storage.ErrNotFound
	}
	return e, nil
}

func (s *eventStore) ByDate(ctx context.Context, date string) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Event
	for _, e := range s.events {
		if e.Date == date {
			out = append(out, e)
		}
	}
	sortEvents(out)
	return out, nil
}

func (s *eventStore) ByMonth(ctx context.Context, year int, month time.Month) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
	var out []domain.Event
	for _, e := range s.events {
		if strings.HasPrefix(e.Date, prefix) {
			out = append(out, e)
		}
	}
	sortEvents(out)
	return out, nil
}

func (s *eventStore) List(ctx context.Context) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e)
	}
	sortEvents(out)
	return out, nil
}

func sortEvents(es []domain.Event) {
	sort.Slice(es, func(i, j int) bool {
		if es[i].Date == es[j].Date {
			if es[i].StartTime == es[j].StartTime {
				return es[i].ID < es[j].ID
			}
			return es[i].StartTime < es[j].StartTime
		}
		return es[i].Date < es[j].Date
	})
}

type auditStore Store

func (s *auditStore) Append(ctx context.Context, entry domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

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
	s.audit = append(s.audit, entry)
	return nil
}

func (s *auditStore) List(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.AuditEntry, len(s.audit))
	copy(out, s.audit)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
