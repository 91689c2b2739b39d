package persistence

import (
	"context"
	"encoding/json"
	"fmt"
)

// InsertMarketAnalysis persists one tick's MarketAnalysis snapshot.
func (db *DB) InsertMarketAnalysis(ctx context.Context, s *MarketAnalysisSnapshot) error {
	if db.Pool == nil {
		return nil
	}

	analysisJSON, err := json.Marshal(s.Analysis)
	if err != nil {
		analysisJSON = []byte("{}")
	}

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO market_analysis (
			at, timeframe, price, trend, session, ob_count, bos_detected,
			grabs_count, vwap, rsi, atr, setup_quality, ai_confidence, analysis
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		s.At, s.Timeframe, s.Price, s.Trend, s.Session, s.OBCount, s.BOSDetected,
		s.GrabsCount, s.VWAP, s.RSI, s.ATR, s.SetupQuality, s.AIConfidence, analysisJSON)
	if err != nil {
		return fmt.Errorf("persistence: insert market analysis: %w", err)
	}
	return nil
}
