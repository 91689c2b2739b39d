package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// LoadBotState reads the singleton row; the supervisor reconciles
// against it on every tick and on daemon start.
func (db *DB) LoadBotState(ctx context.Context) (*BotState, error) {
	if db.Pool == nil {
		return &BotState{TradingMode: ModePaper}, nil
	}

	row := db.Pool.QueryRow(ctx, `
		SELECT is_running, trading_mode, risk_percentage, max_risk_amount,
		       last_updated, session_id, configuration
		FROM bot_state WHERE id = 1`)

	var (
		st            BotState
		tradingMode   string
		sessionID     *string
		configuration []byte
	)
	if err := row.Scan(&st.IsRunning, &tradingMode, &st.RiskPercentage, &st.MaxRiskAmount,
		&st.LastUpdated, &sessionID, &configuration); err != nil {
		return nil, fmt.Errorf("persistence: load bot state: %w", err)
	}
	st.TradingMode = TradingMode(tradingMode)
	if sessionID != nil {
		st.SessionID = *sessionID
	}
	if len(configuration) > 0 {
		_ = json.Unmarshal(configuration, &st.Configuration)
	}
	return &st, nil
}

// SaveBotState writes the singleton row. Every write goes through
// this one UPDATE against id=1, so writers serialize on the row lock.
func (db *DB) SaveBotState(ctx context.Context, st *BotState) error {
	if db.Pool == nil {
		return nil
	}

	configJSON, err := json.Marshal(st.Configuration)
	if err != nil {
		configJSON = []byte("{}")
	}

	now := time.Now().UTC()
	_, err = db.Pool.Exec(ctx, `
		UPDATE bot_state
		SET is_running = $1, trading_mode = $2, risk_percentage = $3,
		    max_risk_amount = $4, last_updated = $5, session_id = $6,
		    configuration = $7
		WHERE id = 1`,
		st.IsRunning, string(st.TradingMode), st.RiskPercentage, st.MaxRiskAmount,
		now, st.SessionID, configJSON)
	if err != nil {
		return fmt.Errorf("persistence: save bot state: %w", err)
	}
	st.LastUpdated = now
	return nil
}
