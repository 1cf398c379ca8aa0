package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/config"
)

// Stores are the server's two backends: PostgreSQL keeps artifacts,
// results, the folder library and the bank; Redis caches compiled HTML
// and queues incoming results.
type Stores struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client
}

// Connect opens both backends. Nothing is left open when either fails.
func Connect(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Stores, error) {
	pool, err := openPostgres(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	rdb, err := openRedis(ctx, cfg, log)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &Stores{Pool: pool, Redis: rdb}, nil
}

// Ping reports the first backend that does not answer.
func (s *Stores) Ping(ctx context.Context) error {
	if err := s.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if err := s.Redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

func (s *Stores) Close() {
	_ = s.Redis.Close()
	s.Pool.Close()
}
