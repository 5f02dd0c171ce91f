package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"rtb-bidder/internal/config/configs"
)

const pingTimeout = 5 * time.Second

// NewPostgresPool opens a pool for cfg and pings the server. The caller
// closes the pool.
func NewPostgresPool(ctx context.Context, cfg configs.Postgres) (*pgxpool.Pool, error) {
	poolConf, err := pgxpool.ParseConfig(cfg.Addr.String())
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConf)
	if err != nil {
		return nil, err
	}

	ctxPing, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err = pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
