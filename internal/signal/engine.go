// Package signal composes a MarketAnalysis into a tentative trade
// signal, applying the four mandatory SMC validation gates before it
// ever proposes a direction.
package signal

import (
	"math"
	"time"

	"github.com/followthefloww9/gold-digger/internal/analysis"
	"github.com/followthefloww9/gold-digger/internal/sizing"
)

type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
	Hold Direction = "HOLD"
)

// Signal is the tentative trade decision SignalEngine produces, later
// refined by AIValidator and gated by RiskGate.
type Signal struct {
	Direction        Direction
	Confidence       float64
	Entry            float64
	StopLoss         float64
	TakeProfit       float64
	RiskRewardRatio  float64
	LotSize          float64
	SetupQuality     int
	Reasons          []string
	Analysis         *analysis.MarketAnalysis
	AIValidated      bool
	AIConfidence     float64
	Timestamp        time.Time
}

// Config carries the account/risk context SignalEngine needs to size
// a position; it does not own risk policy (RiskGate does).
type Config struct {
	AccountBalance float64
	RiskPercentage float64 // e.g. 0.01 for 1%
	MaxRiskAmount  float64
	MinRiskReward  float64 // default 1.5
}

const defaultMinRiskReward = 1.5

func hold(reason string, ma *analysis.MarketAnalysis) *Signal {
	return &Signal{
		Direction: Hold,
		Reasons:   []string{reason},
		Analysis:  ma,
		Timestamp: ma.At,
	}
}

// Evaluate composes ma into a Signal. It is a pure function of its
// inputs: the same MarketAnalysis and Config always yield the same
// Signal.
func Evaluate(ma *analysis.MarketAnalysis, cfg Config) *Signal {
	minRR := cfg.MinRiskReward
	if minRR <= 0 {
		minRR = defaultMinRiskReward
	}

	// Gate 1: session levels non-empty.
	if ma.SessionLevels.SessionHigh == 0 && ma.SessionLevels.SessionLow == 0 {
		return hold("session levels unavailable", ma)
	}

	// Gate 2: at least one liquidity grab in the last two recorded.
	recent := ma.LiquidityGrabs
	if len(recent) > 2 {
		recent = recent[len(recent)-2:]
	}
	if len(recent) == 0 {
		return hold("no recent liquidity grab", ma)
	}

	// Gate 3: BOS detected with non-neutral direction.
	if !ma.BOS.Detected || ma.BOS.Direction == analysis.BOSNeutral {
		return hold("no break of structure", ma)
	}

	// Gate 4: a fresh order block aligned with BOS direction.
	wantKind := analysis.OBBullish
	if ma.BOS.Direction == analysis.BOSBearish {
		wantKind = analysis.OBBearish
	}
	ob, ok := strongestAlignedBlock(ma.OrderBlocks, wantKind)
	if !ok {
		return hold("no fresh order block aligned with break of structure", ma)
	}

	direction := Buy
	if ma.BOS.Direction == analysis.BOSBearish {
		direction = Sell
	}

	entry, stopLoss, takeProfit := computeLevels(direction, ob, ma.Indicators.VWAP)

	riskRewardRatio := riskReward(entry, stopLoss, takeProfit)

	confidence := computeConfidence(ma)

	size, err := sizing.Calculate(cfg.AccountBalance, cfg.RiskPercentage, cfg.MaxRiskAmount, entry, stopLoss)
	if err != nil {
		return hold("invalid stop distance: "+err.Error(), ma)
	}

	if size.LotSize < sizing.MinLot {
		return hold("position size below minimum lot", ma)
	}
	if riskRewardRatio < minRR {
		return hold("risk/reward below minimum threshold", ma)
	}

	return &Signal{
		Direction:       direction,
		Confidence:      confidence,
		Entry:           entry,
		StopLoss:        stopLoss,
		TakeProfit:      takeProfit,
		RiskRewardRatio: riskRewardRatio,
		LotSize:         size.LotSize,
		SetupQuality:    ma.SetupQuality,
		Reasons:         buildReasons(ma, ob),
		Analysis:        ma,
		Timestamp:       ma.At,
	}
}

func strongestAlignedBlock(obs []analysis.OrderBlock, kind analysis.OBKind) (analysis.OrderBlock, bool) {
	var best analysis.OrderBlock
	found := false
	for _, ob := range obs {
		if ob.Status != analysis.OBFresh || ob.Kind != kind {
			continue
		}
		if !found || ob.Strength > best.Strength {
			best = ob
			found = true
		}
	}
	return best, found
}

func computeLevels(direction Direction, ob analysis.OrderBlock, vwap float64) (entry, stopLoss, takeProfit float64) {
	const fivePips = 5 * 0.01

	if direction == Buy {
		entry = ob.Top
		stopLoss = ob.Bottom - fivePips
		risk := entry - stopLoss
		tpRatio := entry + 2*risk
		if vwap > entry {
			takeProfit = math.Min(vwap, tpRatio)
		} else {
			takeProfit = tpRatio
		}
		return
	}

	entry = ob.Bottom
	stopLoss = ob.Top + fivePips
	risk := stopLoss - entry
	tpRatio := entry - 2*risk
	if vwap < entry {
		takeProfit = math.Max(vwap, tpRatio)
	} else {
		takeProfit = tpRatio
	}
	return
}

func riskReward(entry, stopLoss, takeProfit float64) float64 {
	risk := math.Abs(entry - stopLoss)
	if risk == 0 {
		return 0
	}
	return math.Abs(takeProfit-entry) / risk
}

// computeConfidence: base 0.60 for passing all four gates, +0.05 per
// setup-quality point above 5, +0.10 for >=2 liquidity grabs, +0.10
// for BOS strength >=7, clamped to 0.95.
func computeConfidence(ma *analysis.MarketAnalysis) float64 {
	confidence := 0.60
	confidence += 0.05 * float64(ma.SetupQuality-5)
	if len(ma.LiquidityGrabs) >= 2 {
		confidence += 0.10
	}
	if ma.BOS.Strength >= 7 {
		confidence += 0.10
	}
	if confidence > 0.95 {
		confidence = 0.95
	}
	if confidence < 0 {
		confidence = 0
	}
	return confidence
}

func buildReasons(ma *analysis.MarketAnalysis, ob analysis.OrderBlock) []string {
	reasons := []string{
		"break of structure: " + string(ma.BOS.Direction),
		"order block aligned: " + string(ob.Kind),
	}
	if len(ma.LiquidityGrabs) > 0 {
		reasons = append(reasons, "liquidity grab present")
	}
	return reasons
}
