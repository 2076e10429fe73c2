package cache

import (
	"context"
	"fmt"

	"welllink-api/core/config"
	"welllink-api/core/constants"
	"welllink-api/core/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// Init connects the shared redis client. The cache is advisory: callers must
// tolerate a nil client (redis down at boot) and cache errors.
func Init(cfg config.RedisConfig) error {
	client = redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Error("Failed to connect to redis", "addr", cfg.Addr, "error", err)
		client = nil
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis initialized successfully", "addr", cfg.Addr, "db", cfg.DB)
	return nil
}

func Client() *redis.Client {
	return client
}

func slotsGeneratedKey(profileID, serviceID uuid.UUID, date string) string {
	return fmt.Sprintf(constants.RedisKeySlotsGenerated, profileID, serviceID, date)
}

// MarkSlotsGenerated records that slots for the given profile/service/date were
// persisted, so re-running generation skips the date.
func MarkSlotsGenerated(ctx context.Context, profileID, serviceID uuid.UUID, date string) error {
	if client == nil {
		return nil
	}
	return client.Set(ctx, slotsGeneratedKey(profileID, serviceID, date), 1, constants.RedisKeySlotsGeneratedTTL).Err()
}

// HasSlotsGenerated reports whether generation already ran for the date.
func HasSlotsGenerated(ctx context.Context, profileID, serviceID uuid.UUID, date string) (bool, error) {
	if client == nil {
		return false, nil
	}
	n, err := client.Exists(ctx, slotsGeneratedKey(profileID, serviceID, date)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
