package persistence

import (
	"context"
	"fmt"
	"time"
)

// UpsertDailyMetrics writes today's rollup, recomputing win_rate from
// wins/trades_count. Called in the same logical step as CloseTrade so
// the two stay consistent.
func (db *DB) UpsertDailyMetrics(ctx context.Context, m *DailyMetrics) error {
	if db.Pool == nil {
		return nil
	}
	if m.TradesCount > 0 {
		m.WinRate = float64(m.Wins) / float64(m.TradesCount)
	}

	_, err := db.Pool.Exec(ctx, `
		INSERT INTO daily_metrics (
			date, daily_pnl, cumulative_pnl, trades_count, wins, losses,
			win_rate, max_drawdown, account_balance, risk_utilization, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now())
		ON CONFLICT (date) DO UPDATE SET
			daily_pnl = EXCLUDED.daily_pnl,
			cumulative_pnl = EXCLUDED.cumulative_pnl,
			trades_count = EXCLUDED.trades_count,
			wins = EXCLUDED.wins,
			losses = EXCLUDED.losses,
			win_rate = EXCLUDED.win_rate,
			max_drawdown = EXCLUDED.max_drawdown,
			account_balance = EXCLUDED.account_balance,
			risk_utilization = EXCLUDED.risk_utilization,
			updated_at = now()`,
		m.Date, m.DailyPnL, m.CumulativePnL, m.TradesCount, m.Wins, m.Losses,
		m.WinRate, m.MaxDrawdown, m.AccountBalance, m.RiskUtilization)
	if err != nil {
		return fmt.Errorf("persistence: upsert daily metrics: %w", err)
	}
	return nil
}

// DailyMetricsFor returns the rollup for date, or a zero-valued record
// if none exists yet.
func (db *DB) DailyMetricsFor(ctx context.Context, date time.Time) (*DailyMetrics, error) {
	m := &DailyMetrics{Date: date}
	if db.Pool == nil {
		return m, nil
	}

	row := db.Pool.QueryRow(ctx, `
		SELECT daily_pnl, cumulative_pnl, trades_count, wins, losses,
		       win_rate, max_drawdown, account_balance, risk_utilization
		FROM daily_metrics WHERE date = $1`, date)
	err := row.Scan(&m.DailyPnL, &m.CumulativePnL, &m.TradesCount, &m.Wins, &m.Losses,
		&m.WinRate, &m.MaxDrawdown, &m.AccountBalance, &m.RiskUtilization)
	if err != nil {
		return m, nil // no rollup yet today; zero value is the correct start
	}
	return m, nil
}
