package database

import (
	"context"
	"fmt"
	"time"

	"github.com/physickd/platform/pkg/common/config"
	"github.com/physickd/platform/pkg/common/logger"
	"github.com/redis/go-redis/v9"
)

// NewRedis builds a client and pings it. A failed ping is logged but the
// client is still returned so callers can decide whether Redis is optional.
func NewRedis(cfg *config.Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Log.WithError(err).Error("Failed to connect to Redis")
	} else {
		logger.Log.Info("Connected to Redis")
	}

	return client
}
