package fx

import (
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"courtside/internal/auth"
	"courtside/internal/backup"
	"courtside/internal/config"
	"courtside/internal/database"
	"courtside/internal/logger"
	"courtside/internal/mailer"
	"courtside/internal/server"
	"courtside/internal/service"
	"courtside/internal/storage"
	"courtside/internal/worker"
)

func ProvideLogger(cfg *config.Config) zerolog.Logger {
	return logger.New(cfg.LogLevel)
}

// Store facet providers so services depend on the narrow interfaces.
func ProvideGames(st storage.Store) storage.GameStore               { return st.Games() }
func ProvideResponses(st storage.Store) storage.ResponseStore       { return st.Responses() }
func ProvideStats(st storage.Store) storage.StatsStore              { return st.Stats() }
func ProvidePoints(st storage.Store) storage.PointsStore            { return st.Points() }
func ProvideAchievements(st storage.Store) storage.AchievementStore { return st.Achievements() }
func ProvideEvents(st storage.Store) storage.EventStore             { return st.Events() }
func ProvideAudit(st storage.Store) storage.AuditStore              { return st.Audit() }

var Module = fx.Options(
	fx.Provide(config.Load),
	fx.Provide(ProvideLogger),
	fx.Provide(database.Open),
	// store facets
	fx.Provide(ProvideGames),
	fx.Provide(ProvideResponses),
	fx.Provide(ProvideStats),
	fx.Provide(ProvidePoints),
	fx.Provide(ProvideAchievements),
	fx.Provide(ProvideEvents),
	fx.Provide(ProvideAudit),
	// mail
	fx.Provide(mailer.New),
	// svc
	fx.Provide(service.NewWaitlistService),
	fx.Provide(service.NewGamificationService),
	fx.Provide(service.NewGameService),
	fx.Provide(service.NewRSVPService),
	fx.Provide(service.NewTeamService),
	fx.Provide(service.NewCalendarService),
	fx.Provide(auth.NewService),
	fx.Provide(backup.NewService),
	fx.Provide(worker.New),
	// server
	fx.Provide(server.New),
)
