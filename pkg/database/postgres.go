package database

import (
	"context"
	"fmt"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prohmpiriya/donation-rush/pkg/config"
	"github.com/prohmpiriya/donation-rush/pkg/retry"
)

type options struct {
	tracing        bool
	connectTimeout time.Duration
	retry          *retry.Config
}

// Option tunes NewPostgres
type Option func(*options)

// WithTracing traces every query through otelpgx
func WithTracing(enabled bool) Option {
	return func(o *options) { o.tracing = enabled }
}

// WithConnectTimeout bounds each connection attempt
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) { o.connectTimeout = d }
}

// WithConnectRetry replaces the startup retry policy
func WithConnectRetry(cfg *retry.Config) Option {
	return func(o *options) { o.retry = cfg }
}

// PostgresDB is the donation ledger's connection pool
type PostgresDB struct {
	pool *pgxpool.Pool
}

// NewPostgres opens a pool and pings it, retrying while the database is
// still starting
func NewPostgres(ctx context.Context, cfg *config.DatabaseConfig, opts ...Option) (*PostgresDB, error) {
	o := &options{
		connectTimeout: 10 * time.Second,
		retry: &retry.Config{
			MaxRetries:      3,
			InitialInterval: 2 * time.Second,
			MaxInterval:     10 * time.Second,
			Multiplier:      1.5,
		},
	}
	for _, opt := range opts {
		opt(o)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}
	poolConfig.ConnConfig.ConnectTimeout = o.connectTimeout
	if o.tracing {
		poolConfig.ConnConfig.Tracer = otelpgx.NewTracer()
	}

	var pool *pgxpool.Pool
	err = retry.Do(ctx, o.retry, func(ctx context.Context) error {
		p, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return &PostgresDB{pool: pool}, nil
}

func (db *PostgresDB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// HealthCheck runs SELECT 1 with a 5s budget
func (db *PostgresDB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var one int
	if err := db.pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

func (db *PostgresDB) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return db.pool.Exec(ctx, sql, args...)
}

func (db *PostgresDB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return db.pool.Query(ctx, sql, args...)
}

func (db *PostgresDB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return db.pool.QueryRow(ctx, sql, args...)
}

// Migrate applies statements in order inside one transaction
func (db *PostgresDB) Migrate(ctx context.Context, statements ...string) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migration %d: %w", i, err)
		}
	}
	return tx.Commit(ctx)
}
