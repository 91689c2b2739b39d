package signal

import (
	"testing"
	"time"

	"github.com/followthefloww9/gold-digger/internal/analysis"
)

func cleanBullishAnalysis() *analysis.MarketAnalysis {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return &analysis.MarketAnalysis{
		At:           now,
		CurrentPrice: 2681.00,
		Trend:        analysis.TrendBullish,
		SessionLevels: analysis.SessionLevels{
			SessionHigh: 2685, SessionLow: 2670,
		},
		OrderBlocks: []analysis.OrderBlock{
			{Kind: analysis.OBBullish, Top: 2680.00, Bottom: 2679.00, Status: analysis.OBFresh, Strength: 8, FormedAt: now},
		},
		BOS: analysis.BOSFinding{Detected: true, Direction: analysis.BOSBullish, Strength: 8, At: now},
		LiquidityGrabs: []analysis.LiquidityGrab{
			{Kind: analysis.LiquidityUpward, Price: 2678, At: now},
		},
		Indicators:   analysis.Indicators{VWAP: 2690, EMA50: 2675, EMA200: 2660, RSI: 55, ATR: 1.2},
		SetupQuality: 10,
	}
}

// TestCleanBullishSetup: a fresh bullish
// order block, an upward liquidity grab, and a strength-8 bullish BOS
// should produce a BUY signal with the documented entry/SL/TP math.
func TestCleanBullishSetup(t *testing.T) {
	ma := cleanBullishAnalysis()
	cfg := Config{AccountBalance: 100000, RiskPercentage: 0.01, MaxRiskAmount: 1000}

	sig := Evaluate(ma, cfg)

	if sig.Direction != Buy {
		t.Fatalf("expected BUY, got %s (reasons: %v)", sig.Direction, sig.Reasons)
	}
	if sig.Entry != 2680.00 {
		t.Errorf("expected entry 2680.00, got %f", sig.Entry)
	}
	wantSL := 2679.00 - 5*0.01
	if abs(sig.StopLoss-wantSL) > 1e-9 {
		t.Errorf("expected stop_loss %f, got %f", wantSL, sig.StopLoss)
	}
	if sig.RiskRewardRatio < 1.5 {
		t.Errorf("expected risk/reward >= 1.5, got %f", sig.RiskRewardRatio)
	}
}

func TestMissingLiquidityGrabDemotesToHold(t *testing.T) {
	ma := cleanBullishAnalysis()
	ma.LiquidityGrabs = nil
	sig := Evaluate(ma, Config{AccountBalance: 100000, RiskPercentage: 0.01, MaxRiskAmount: 1000})
	if sig.Direction != Hold {
		t.Fatalf("expected HOLD without a liquidity grab, got %s", sig.Direction)
	}
}

func TestMissingAlignedOrderBlockDemotesToHold(t *testing.T) {
	ma := cleanBullishAnalysis()
	ma.OrderBlocks[0].Kind = analysis.OBBearish // misaligned with bullish BOS
	sig := Evaluate(ma, Config{AccountBalance: 100000, RiskPercentage: 0.01, MaxRiskAmount: 1000})
	if sig.Direction != Hold {
		t.Fatalf("expected HOLD with a misaligned order block, got %s", sig.Direction)
	}
}

func TestNoBOSDemotesToHold(t *testing.T) {
	ma := cleanBullishAnalysis()
	ma.BOS = analysis.BOSFinding{Detected: false, Direction: analysis.BOSNeutral}
	sig := Evaluate(ma, Config{AccountBalance: 100000, RiskPercentage: 0.01, MaxRiskAmount: 1000})
	if sig.Direction != Hold {
		t.Fatalf("expected HOLD without a BOS, got %s", sig.Direction)
	}
}

func TestConfidenceClampedTo95(t *testing.T) {
	ma := cleanBullishAnalysis()
	ma.SetupQuality = 10
	sig := Evaluate(ma, Config{AccountBalance: 100000, RiskPercentage: 0.01, MaxRiskAmount: 1000})
	if sig.Confidence > 0.95 {
		t.Errorf("expected confidence clamped to 0.95, got %f", sig.Confidence)
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
