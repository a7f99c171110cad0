package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/l1jgo/assetstage/internal/config"
	"go.uber.org/zap"
)

const applicationName = "assetstage-journal"

// DB wraps the journal's pgx connection pool.
type DB struct {
	Pool *pgxpool.Pool
	log  *zap.Logger
}

// poolConfig shapes the pool for the journal's single flushing writer: a
// connection is held per flush, so MinConns never exceeds MaxConns and idle
// connections are health-checked once per flush interval.
func poolConfig(cfg config.JournalConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	poolCfg.MinConns = min(int32(cfg.MaxIdleConns), poolCfg.MaxConns)
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.FlushInterval > 0 {
		poolCfg.HealthCheckPeriod = max(cfg.FlushInterval, time.Second)
	}
	if _, ok := poolCfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}
	return poolCfg, nil
}

func NewDB(ctx context.Context, cfg config.JournalConfig, log *zap.Logger) (*DB, error) {
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	log.Info("journal database connected",
		zap.Int32("max_conns", poolCfg.MaxConns),
		zap.Int32("min_conns", poolCfg.MinConns),
		zap.String("application", poolCfg.ConnConfig.RuntimeParams["application_name"]))
	return &DB{Pool: pool, log: log}, nil
}

// Close logs how often the journal acquired a connection, then closes the pool.
func (db *DB) Close() {
	st := db.Pool.Stat()
	db.log.Info("journal database closed",
		zap.Int64("acquires", st.AcquireCount()),
		zap.Int64("empty_acquires", st.EmptyAcquireCount()))
	db.Pool.Close()
}
