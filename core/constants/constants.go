package constants

import "time"

// Database pool settings
const (
	DatabaseMaxOpenConns    = 25
	DatabaseMaxIdleConns    = 10
	DatabaseConnMaxLifetime = 30 // minutes
	DatabaseSSLMode         = "disable"
)

// Request handling
const (
	DefaultRequestTimeout = 30 * time.Second
	ContextTokenData      = "token_data"
	HeaderRequestID       = "X-Request-ID"
)

// Scheduling limits
const (
	// MinSlotDurationMinutes is the smallest slot a rule may generate.
	MinSlotDurationMinutes = 15
	// MaxScheduleRangeDays caps preview/generation windows.
	MaxScheduleRangeDays = 366
)

// Redis keys
const (
	// RedisKeySlotsGenerated marks a (profile, service, date) as already generated.
	// Format args: profile id, service id, date (YYYY-MM-DD).
	RedisKeySlotsGenerated    = "slots:generated:%s:%s:%s"
	RedisKeySlotsGeneratedTTL = 90 * 24 * time.Hour
)

// Asynq queues
const (
	QueueDefault = "default"
)
