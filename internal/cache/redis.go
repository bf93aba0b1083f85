// Package cache provides the shared redis client.
package cache

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/registra/internal/config"
	"go.uber.org/fx"
)

// Module wires the redis client.
var Module = fx.Module("cache",
	fx.Provide(NewRedis),
)

// NewRedis opens the redis connection used for token caching and the
// event stream. Returns nil when no address is configured so consumers
// can degrade to direct lookups.
func NewRedis(lc fx.Lifecycle, cfg config.Config) *redis.Client {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(ctx context.Context) error {
			_ = ctx
			return client.Close()
		},
	})

	return client
}
