// Package persistence is the single source of truth for cross-restart
// continuity: trades, daily metrics, market-analysis snapshots,
// system events, and the singleton bot_state row, all in PostgreSQL.
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the PostgreSQL connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// Config holds connection parameters.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// Open creates the connection pool and pings it once before
// returning.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("persistence: parse config: %w", err)
	}
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("persistence: create pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("persistence: ping: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close releases the pool.
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// HealthCheck reports whether the pool can still reach the database.
func (db *DB) HealthCheck(ctx context.Context) error {
	if db.Pool == nil {
		return fmt.Errorf("persistence: no pool configured")
	}
	return db.Pool.Ping(ctx)
}

// Migrate runs the schema statements in order. Every statement is
// idempotent (IF NOT EXISTS, or ON CONFLICT DO NOTHING for the
// bot_state seed row) so Migrate is safe to call on every
// daemon start.
func (db *DB) Migrate(ctx context.Context) error {
	if db.Pool == nil {
		return nil
	}

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id BIGSERIAL PRIMARY KEY,
			open_time TIMESTAMPTZ NOT NULL,
			close_time TIMESTAMPTZ,
			symbol VARCHAR(20) NOT NULL,
			direction VARCHAR(4) NOT NULL,
			entry DECIMAL(20, 8) NOT NULL,
			exit DECIMAL(20, 8),
			sl DECIMAL(20, 8) NOT NULL,
			tp DECIMAL(20, 8) NOT NULL,
			lot DECIMAL(10, 2) NOT NULL,
			pnl DECIMAL(20, 8),
			status VARCHAR(20) NOT NULL DEFAULT 'OPEN',
			confidence DOUBLE PRECISION,
			setup_quality INTEGER,
			smc_steps JSONB,
			reasoning TEXT,
			session VARCHAR(20),
			timeframe VARCHAR(10),
			ticket BIGINT UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_status ON trades(status)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_open_time ON trades(open_time)`,

		`CREATE TABLE IF NOT EXISTS daily_metrics (
			date DATE PRIMARY KEY,
			daily_pnl DOUBLE PRECISION NOT NULL DEFAULT 0,
			cumulative_pnl DOUBLE PRECISION NOT NULL DEFAULT 0,
			trades_count INTEGER NOT NULL DEFAULT 0,
			wins INTEGER NOT NULL DEFAULT 0,
			losses INTEGER NOT NULL DEFAULT 0,
			win_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			max_drawdown DOUBLE PRECISION NOT NULL DEFAULT 0,
			account_balance DOUBLE PRECISION NOT NULL DEFAULT 0,
			risk_utilization DOUBLE PRECISION NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS market_analysis (
			id BIGSERIAL PRIMARY KEY,
			at TIMESTAMPTZ NOT NULL,
			timeframe VARCHAR(10),
			price DOUBLE PRECISION NOT NULL,
			trend VARCHAR(10),
			session VARCHAR(20),
			ob_count INTEGER,
			bos_detected BOOLEAN,
			grabs_count INTEGER,
			vwap DOUBLE PRECISION,
			rsi DOUBLE PRECISION,
			atr DOUBLE PRECISION,
			setup_quality INTEGER,
			ai_confidence DOUBLE PRECISION,
			analysis JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_market_analysis_at ON market_analysis(at)`,

		`CREATE TABLE IF NOT EXISTS system_events (
			id BIGSERIAL PRIMARY KEY,
			at TIMESTAMPTZ NOT NULL,
			kind VARCHAR(20) NOT NULL,
			severity VARCHAR(10) NOT NULL,
			message TEXT NOT NULL,
			details JSONB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_system_events_at ON system_events(at)`,

		`CREATE TABLE IF NOT EXISTS bot_state (
			id INTEGER PRIMARY KEY DEFAULT 1,
			is_running BOOLEAN NOT NULL DEFAULT false,
			trading_mode VARCHAR(10) NOT NULL DEFAULT 'Paper',
			risk_percentage DOUBLE PRECISION NOT NULL DEFAULT 0.01,
			max_risk_amount DOUBLE PRECISION NOT NULL DEFAULT 1000,
			last_updated TIMESTAMPTZ NOT NULL DEFAULT now(),
			session_id VARCHAR(64),
			configuration JSONB,
			CONSTRAINT bot_state_singleton CHECK (id = 1)
		)`,
		`INSERT INTO bot_state (id, is_running, trading_mode, risk_percentage, max_risk_amount)
			VALUES (1, false, 'Paper', 0.01, 1000)
			ON CONFLICT (id) DO NOTHING`,
	}

	for _, stmt := range migrations {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("persistence: migration failed: %w", err)
		}
	}
	return nil
}
