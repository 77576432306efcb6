package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
)

// Redis holds the client backing token revocation.
type Redis struct {
	Client *redis.Client
}

// NewRedis builds the client and checks connectivity once. An unreachable server is logged,
// not fatal: revocation checks fail closed until it comes back.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	opts := redisOptions(cfg)
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("unable to reach redis",
			zap.String("addr", opts.Addr),
			zap.Int("db", opts.DB),
			zap.Error(err),
		)
	} else {
		logger.Info("connected to redis",
			zap.String("addr", opts.Addr),
			zap.Int("pool_size", opts.PoolSize),
		)
	}

	return &Redis{Client: client}
}

func redisOptions(cfg config.RedisConfig) *redis.Options {
	opts := &redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout(),
	}
	if timeout := cfg.IOTimeout(); timeout > 0 {
		opts.ReadTimeout = timeout
		opts.WriteTimeout = timeout
	}
	if opts.PoolSize < 0 {
		opts.PoolSize = 0
	}
	return opts
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
