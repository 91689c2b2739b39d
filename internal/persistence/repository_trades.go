package persistence

import (
	"context"
	"encoding/json"
	"fmt"
)

// InsertTradeOpen writes the open-half of a trade, returning its row
// id. It must be called before CloseTrade for the same ticket.
func (db *DB) InsertTradeOpen(ctx context.Context, t *TradeRecord) (int64, error) {
	if db.Pool == nil {
		return 0, nil
	}

	stepsJSON, err := json.Marshal(t.SMCSteps)
	if err != nil {
		stepsJSON = []byte("[]")
	}

	var id int64
	err = db.Pool.QueryRow(ctx, `
		INSERT INTO trades (
			open_time, symbol, direction, entry, sl, tp, lot, status,
			confidence, setup_quality, smc_steps, reasoning, session, timeframe, ticket
		) VALUES ($1,$2,$3,$4,$5,$6,$7,'OPEN',$8,$9,$10,$11,$12,$13,$14)
		RETURNING id`,
		t.OpenTime, t.Symbol, t.Direction, t.Entry, t.StopLoss, t.TakeProfit, t.Lot,
		t.Confidence, t.SetupQuality, stepsJSON, t.Reasoning, t.Session, t.Timeframe, t.Ticket,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("persistence: insert trade open: %w", err)
	}
	return id, nil
}

// CloseTrade updates the close-half of a trade by broker ticket. The
// caller folds pnl into DailyMetrics (UpsertDailyMetrics) in the same
// logical step so the two stay consistent.
func (db *DB) CloseTrade(ctx context.Context, ticket uint64, closeTime interface{}, exit, pnl float64, status string) error {
	if db.Pool == nil {
		return nil
	}
	_, err := db.Pool.Exec(ctx, `
		UPDATE trades SET close_time = $1, exit = $2, pnl = $3, status = $4
		WHERE ticket = $5`,
		closeTime, exit, pnl, status, ticket)
	if err != nil {
		return fmt.Errorf("persistence: close trade: %w", err)
	}
	return nil
}

// OpenTrades returns every trade still recorded with status OPEN, in
// open-time order. The supervisor cross-references these against the
// broker's authoritative position list on start to recover from a
// crash.
func (db *DB) OpenTrades(ctx context.Context) ([]TradeRecord, error) {
	if db.Pool == nil {
		return nil, nil
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT id, ticket, open_time, symbol, direction, entry, sl, tp, lot,
		       confidence, setup_quality, smc_steps, reasoning, session, timeframe
		FROM trades WHERE status = 'OPEN' ORDER BY open_time`)
	if err != nil {
		return nil, fmt.Errorf("persistence: open trades: %w", err)
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var (
			t            TradeRecord
			confidence   *float64
			setupQuality *int
			stepsJSON    []byte
			reasoning    *string
			session      *string
			timeframe    *string
		)
		if err := rows.Scan(&t.ID, &t.Ticket, &t.OpenTime, &t.Symbol, &t.Direction,
			&t.Entry, &t.StopLoss, &t.TakeProfit, &t.Lot,
			&confidence, &setupQuality, &stepsJSON, &reasoning, &session, &timeframe); err != nil {
			return nil, fmt.Errorf("persistence: scan open trade: %w", err)
		}
		if confidence != nil {
			t.Confidence = *confidence
		}
		if setupQuality != nil {
			t.SetupQuality = *setupQuality
		}
		if len(stepsJSON) > 0 {
			_ = json.Unmarshal(stepsJSON, &t.SMCSteps)
		}
		if reasoning != nil {
			t.Reasoning = *reasoning
		}
		if session != nil {
			t.Session = *session
		}
		if timeframe != nil {
			t.Timeframe = *timeframe
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("persistence: open trades: %w", err)
	}
	return out, nil
}

// TradesToday returns the count of trades opened since startOfDay, for
// the max_trades_per_day blocker's durable view (the in-memory
// risk.Gate counter is authoritative within a run; this backs restart
// reconciliation).
func (db *DB) TradesToday(ctx context.Context, startOfDay interface{}) (int, error) {
	if db.Pool == nil {
		return 0, nil
	}
	var count int
	err := db.Pool.QueryRow(ctx, `
		SELECT count(*) FROM trades WHERE open_time >= $1`, startOfDay).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("persistence: trades today: %w", err)
	}
	return count, nil
}
