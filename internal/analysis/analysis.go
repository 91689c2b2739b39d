// Package analysis implements SMCAnalyzer: a pure function from a bar
// series to a structured MarketAnalysis value, combining Smart Money
// Concepts primitives (order blocks, break of structure, liquidity
// grabs, session levels) with a standard indicator set.
package analysis

import (
	"errors"
	"time"

	"github.com/followthefloww9/gold-digger/internal/bar"
)

// ErrInvalidInput is returned when the input series fails the shared
// bar.ValidateSeries checks; callers must skip the tick rather than
// treat this as fatal.
var ErrInvalidInput = errors.New("analysis: invalid input")

type TrendDirection string

const (
	TrendBullish  TrendDirection = "bullish"
	TrendBearish  TrendDirection = "bearish"
	TrendNeutral  TrendDirection = "neutral"
)

type OBKind string

const (
	OBBullish OBKind = "bullish"
	OBBearish OBKind = "bearish"
)

type OBStatus string

const (
	OBFresh     OBStatus = "fresh"
	OBMitigated OBStatus = "mitigated"
)

// OrderBlock is a strongly directional candle whose range is unusually
// wide versus ATR, treated as a zone where further trading may resume.
type OrderBlock struct {
	Kind      OBKind
	Top       float64
	Bottom    float64
	FormedAt  time.Time
	Strength  float64 // 1..10
	Status    OBStatus
	Timeframe bar.Timeframe
}

type BOSDirection string

const (
	BOSBullish BOSDirection = "bullish"
	BOSBearish BOSDirection = "bearish"
	BOSNeutral BOSDirection = "neutral"
)

// BOSFinding is a close that exceeds the prior swing high/low.
type BOSFinding struct {
	Detected   bool
	Direction  BOSDirection
	BreakPrice float64
	At         time.Time
	Strength   float64
}

type LiquidityKind string

const (
	LiquidityUpward   LiquidityKind = "upward"
	LiquidityDownward LiquidityKind = "downward"
)

// LiquidityGrab is a quick wick beyond a prior extreme that immediately
// reverses: stop-hunting in SMC vocabulary.
type LiquidityGrab struct {
	Kind     LiquidityKind
	Price    float64
	At       time.Time
	Strength float64
}

// SessionLevels are pure window statistics over the bar series.
type SessionLevels struct {
	SessionHigh  float64
	SessionLow   float64
	PrevDayHigh  float64
	PrevDayLow   float64
	WeeklyHigh   float64
	WeeklyLow    float64
}

// Indicators is the standard set SMCAnalyzer always computes.
type Indicators struct {
	VWAP  float64
	EMA21 float64
	EMA50 float64
	EMA200 float64
	RSI   float64
	ATR   float64
}

// MarketAnalysis is the fully populated, immutable output of
// SMCAnalyzer for the last bar of a series. It is never mutated after
// construction; it may be persisted for replay.
type MarketAnalysis struct {
	At             time.Time
	CurrentPrice   float64
	Trend          TrendDirection
	SessionLevels  SessionLevels
	OrderBlocks    []OrderBlock
	BOS            BOSFinding
	LiquidityGrabs []LiquidityGrab
	Indicators     Indicators
	SetupQuality   int
	Symbol         bar.Symbol
	Timeframe      bar.Timeframe
}

// pip is the XAU/USD price increment.
const pip = 0.01

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// Analyze runs the full SMC + indicator pipeline over bars and returns
// a MarketAnalysis for the last bar. It is pure and deterministic:
// Analyze(bars) == Analyze(bars) for identical input.
func Analyze(symbol bar.Symbol, tf bar.Timeframe, bars []bar.Bar) (*MarketAnalysis, error) {
	if err := bar.ValidateSeries(bars); err != nil {
		return nil, errors.Join(ErrInvalidInput, err)
	}

	ind := computeIndicators(bars)
	sl := computeSessionLevels(bars)
	obs := DetectOrderBlocks(bars, tf, ind.atrSeries)
	bos := DetectBOS(bars)
	grabs := DetectLiquidityGrabs(bars)
	trend := determineTrend(bars[len(bars)-1].Close, ind.EMA50, ind.EMA200)
	quality := computeSetupQuality(trend, obs, bos, grabs, ind.RSI)

	return &MarketAnalysis{
		At:             bars[len(bars)-1].Time,
		CurrentPrice:   bars[len(bars)-1].Close,
		Trend:          trend,
		SessionLevels:  sl,
		OrderBlocks:    obs,
		BOS:            bos,
		LiquidityGrabs: grabs,
		Indicators:     ind.Indicators,
		SetupQuality:   quality,
		Symbol:         symbol,
		Timeframe:      tf,
	}, nil
}

func determineTrend(close, ema50, ema200 float64) TrendDirection {
	switch {
	case close > ema50 && ema50 > ema200:
		return TrendBullish
	case close < ema50 && ema50 < ema200:
		return TrendBearish
	default:
		return TrendNeutral
	}
}
