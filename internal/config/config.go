package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"courtside/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	ServerPort string
	LogLevel   string

	// Storage. DBDriver is "auto", "postgres", "sqlite" or "memory".
	// Under "auto" the first reachable backend wins: postgres when
	// DatabaseURL is set, then sqlite at DBPath, then memory.
	DBDriver    string
	DatabaseURL string
	DBPath      string

	GameCapacity    int
	RSVPCutoffDays  int
	DefaultLocation string

	AdminUsername     string
	AdminPasswordHash string
	SessionSecret     string
	SessionTTL        time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	AppURL       string

	ReminderInterval time.Duration

	BackupURL      string
	BackupToken    string
	BackupInterval time.Duration
}

func Load() (*Config, error) {
	// Missing .env is fine, real deployments use the environment.
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		DBDriver:          getEnv("DB_DRIVER", "auto"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		DBPath:            getEnv("DB_PATH", "courtside.db"),
		GameCapacity:      getEnvInt("GAME_CAPACITY", constants.DefaultCapacity),
		RSVPCutoffDays:    getEnvInt("RSVP_CUTOFF_DAYS", constants.DefaultCutoffDays),
		DefaultLocation:   getEnv("DEFAULT_LOCATION", constants.DefaultLocation),
		AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		SessionSecret:     getEnv("SESSION_SECRET", ""),
		SessionTTL:        time.Duration(getEnvInt("SESSION_TTL_MINUTES", 30)) * time.Minute,
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getEnv("SMTP_PORT", "587"),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:          getEnv("SMTP_FROM", ""),
		AppURL:            getEnv("APP_URL", "http://localhost:8080"),
		ReminderInterval:  time.Duration(getEnvInt("REMINDER_INTERVAL_MINUTES", 30)) * time.Minute,
		BackupURL:         getEnv("BACKUP_URL", ""),
		BackupToken:       getEnv("BACKUP_TOKEN", ""),
		BackupInterval:    time.Duration(getEnvInt("BACKUP_INTERVAL_MINUTES", 360)) * time.Minute,
	}

	switch cfg.DBDriver {
	case "auto", "postgres", "sqlite", "memory":
	default:
		return nil, fmt.Errorf("DB_DRIVER must be auto, postgres, sqlite or memory, got %q", cfg.DBDriver)
	}
	if cfg.GameCapacity < 1 {
		return nil, fmt.Errorf("GAME_CAPACITY must be at least 1, got %d", cfg.GameCapacity)
	}
	if cfg.RSVPCutoffDays < 0 {
		return nil, fmt.Errorf("RSVP_CUTOFF_DAYS must not be negative, got %d", cfg.RSVPCutoffDays)
	}

	// No configured secret means sessions do not survive a restart.
	if cfg.SessionSecret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		cfg.SessionSecret = hex.EncodeToString(buf)
	}

	return cfg, nil
}

// MailEnabled reports whether outbound email is configured.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

// AdminEnabled reports whether the admin surface can authenticate anyone.
func (c *Config) AdminEnabled() bool {
	return c.AdminPasswordHash != ""
}

// BackupEnabled reports whether snapshot uploads are configured.
func (c *Config) BackupEnabled() bool {
	return c.BackupURL != ""
}

// Log writes the resolved configuration at startup. Secrets are reduced
// to set/unset booleans.
func (c *Config) Log(logger zerolog.Logger) {
	logger.Info().
		Str("server_port", c.ServerPort).
		Str("log_level", c.LogLevel).
		Str("db_driver", c.DBDriver).
		Str("db_path", c.DBPath).
		Bool("database_url_set", c.DatabaseURL != "").
		Int("game_capacity", c.GameCapacity).
		Int("rsvp_cutoff_days", c.RSVPCutoffDays).
		Str("default_location", c.DefaultLocation).
		Bool("mail_enabled", c.MailEnabled()).
		Bool("admin_enabled", c.AdminEnabled()).
		Bool("backup_enabled", c.BackupEnabled()).
		Dur("reminder_interval", c.ReminderInterval).
		Msg("configuration loaded")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
