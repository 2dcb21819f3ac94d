package ratelimit

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/serenatalabs/serenata/internal/config"
	"go.uber.org/fx"
)

// NewRedisClient returns nil when redis is not configured; the locker
// is optional everywhere it is consumed.
func NewRedisClient(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}

var Module = fx.Module("rate.limit",
	fx.Provide(NewRedisClient),
	fx.Provide(NewLocker),
)
