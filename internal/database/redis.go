package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sing3demons/authgateway/internal/config"
	"github.com/sing3demons/authgateway/pkg/logAction"
	"github.com/sing3demons/authgateway/pkg/logger"
	"github.com/sing3demons/authgateway/pkg/mlog"
)

// NewRedis connects and pings; the client backs the shared key tier.
func NewRedis(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	start := time.Now()
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := rdb.Ping(pingCtx).Err()

	mlog.L(ctx).SetDependencyMetadata(logger.DependencyMetadata{
		Dependency:   "redis",
		ResponseTime: time.Since(start).Milliseconds(),
	}).Info(logAction.DB_RESPONSE(logAction.DB_READ, "redis PING"), map[string]any{"addr": cfg.Addr, "ok": err == nil})

	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}
