package constants

import "time"

const (
	DatabaseTimeout = 5 * time.Second
	RequestTimeout  = 30 * time.Second
	MailTimeout     = 15 * time.Second
	BackupTimeout   = 30 * time.Second
)

const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultCapacity   = 15
	DefaultCutoffDays = 1
	DefaultLocation   = "Arc: Health and Fitness Centre"
)

const (
	LeaderboardLimit   = 10
	PointsHistoryLimit = 20
	AuditLogLimit      = 100
)

// ReminderWindow is how close to tip-off a game must be before the
// reminder batch goes out.
const ReminderWindow = 24 * time.Hour
