package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tvp-go/internal/config"
	"tvp-go/internal/tv"
)

// NewNotifierFromConfig creates the notification sink selected by cfg.Type.
// Redis sinks also log each change so the local log stays complete.
func NewNotifierFromConfig(cfg config.NotifyConfig, log tv.Logger) (tv.Notifier, error) {
	switch cfg.Type {
	case "log", "":
		return NewLog(log), nil
	case "none":
		return Nop{}, nil
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("redis notifier requires redis_addr to be set")
		}
		client := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
		}

		channel := cfg.RedisChannel
		if channel == "" {
			channel = config.DefaultRedisChannel
		}
		return Multi{NewLog(log), NewRedis(client, channel)}, nil
	default:
		return nil, fmt.Errorf("unknown notify type: %s", cfg.Type)
	}
}
