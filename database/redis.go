package database

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"sparrow/config"
)

var RDB *redis.Client

// ConnectRedis is optional: with no REDIS_URL, or when the server is not
// reachable, RDB stays nil and events are only delivered in process.
func ConnectRedis(cfg *config.Config, log *zap.Logger) {
	if cfg.RedisURL == "" {
		log.Info("redis disabled")
		return
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisURL,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, continuing without it", zap.String("addr", cfg.RedisURL), zap.Error(err))
		client.Close()
		return
	}

	RDB = client
	log.Info("redis connected", zap.String("addr", cfg.RedisURL))
}
