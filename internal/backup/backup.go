// Package backup exports every store into a JSON snapshot and ships it
// to an external endpoint. Off-site copies are the only recovery path
// for the sqlite and memory drivers.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/errgroup"

	"courtside/internal/config"
	"courtside/internal/constants"
	"courtside/internal/domain"
	"courtside/internal/storage"
)

// ErrDisabled indicates no backup endpoint is configured.
var ErrDisabled = errors.New("backup is not configured")

// Snapshot is one full export of the persistent state.
type Snapshot struct {
	TakenAt      time.Time                  `json:"taken_at"`
	Driver       string                     `json:"driver"`
	Games        []domain.Game              `json:"games"`
	Responses    []domain.Response          `json:"responses"`
	PlayerStats  []domain.PlayerStats       `json:"player_stats"`
	Points       []domain.PointsEntry       `json:"points"`
	Achievements []domain.AchievementUnlock `json:"achievements"`
	Events       []domain.Event             `json:"events"`
}

type Service struct {
	store  storage.Store
	cfg    *config.Config
	client *fasthttp.Client
	logger zerolog.Logger
}

func NewService(store storage.Store, cfg *config.Config, logger zerolog.Logger) *Service {
	return &Service{
		store: store,
		cfg:   cfg,
		client: &fasthttp.Client{
			MaxConnsPerHost:     4,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger,
	}
}

// Enabled reports whether snapshot uploads are configured.
func (s *Service) Enabled() bool {
	return s.cfg.BackupEnabled()
}

// Snapshot collects every store into one export.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{TakenAt: time.Now().UTC(), Driver: s.store.Kind()}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Games, err = s.store.Games().List(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Responses, err = s.store.Responses().ListAll(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.PlayerStats, err = s.store.Stats().All(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Points, err = s.store.Points().All(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Achievements, err = s.store.Achievements().All(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Events, err = s.store.Events().List(gCtx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to collect snapshot: %w", err)
	}
	return snap, nil
}

// Run takes a snapshot and uploads it. Returns ErrDisabled when no
// endpoint is configured.
func (s *Service) Run(ctx context.Context) error {
	if !s.Enabled() {
		return ErrDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, constants.BackupTimeout)
	defer cancel()

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := s.upload(ctx, body); err != nil {
		return err
	}

	s.logger.Info().
		Int("games", len(snap.Games)).
		Int("responses", len(snap.Responses)).
		Int("points", len(snap.Points)).
		Int("bytes", len(body)).
		Msg("backup uploaded")
	return nil
}

func (s *Service) upload(ctx context.Context, body []byte) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.cfg.BackupURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if s.cfg.BackupToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.BackupToken)
	}
	req.SetBody(body)

	if deadline, ok := ctx.Deadline(); ok {
		err := s.client.DoDeadline(req, resp, deadline)
		if err != nil {
			return fmt.Errorf("failed to upload backup: %w", err)
		}
	} else {
		if err := s.client.Do(req, resp); err != nil {
			return fmt.Errorf("failed to upload backup: %w", err)
		}
	}

	if code := resp.StatusCode(); code < 200 || code > 299 {
		return fmt.Errorf("backup endpoint returned %d", code)
	}
	return nil
}
