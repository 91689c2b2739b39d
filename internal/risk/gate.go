// Package risk implements the risk gate: the hard-blocker chain and
// risk-score computation that stand between a validated Signal and an
// order going to the broker, plus the running counters (daily P&L,
// trade counts) the gate needs to evaluate those blockers.
package risk

import (
	"fmt"
	"sync"
	"time"

	"github.com/followthefloww9/gold-digger/internal/signal"
	"github.com/followthefloww9/gold-digger/internal/sizing"
)

// Config holds the tunable hard risk limits.
type Config struct {
	MaxDailyLoss      float64 // default 500
	MaxDrawdown       float64 // default 0.10
	MaxTradesPerDay   int     // default 4
	MaxTradesPerHour  int     // supplemented sub-limit, default 2
	MinRiskReward     float64 // default 1.5
	MaxRiskPerTrade   float64 // fraction of balance, default 0.01
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxDailyLoss:     500,
		MaxDrawdown:      0.10,
		MaxTradesPerDay:  4,
		MaxTradesPerHour: 2,
		MinRiskReward:    1.5,
		MaxRiskPerTrade:  0.01,
	}
}

// AccountInfo is the broker-reported account snapshot a decision is
// evaluated against.
type AccountInfo struct {
	Balance float64
	Equity  float64
}

// Decision is RiskGate's verdict on a Signal.
type Decision struct {
	Approved        bool
	Reasons         []string
	AdjustedLotSize float64
	RiskScore       int
}

// Gate owns the running risk counters (daily/hourly trade counts,
// daily realized P&L) and evaluates signals against them. The struct
// is mutex-guarded but mutated only from the supervisor tick.
type Gate struct {
	mu sync.RWMutex
	cfg Config

	dailyPnL       float64
	dailyTrades    int
	hourlyTrades   int
	dailyResetAt   time.Time
	hourlyResetAt  time.Time
}

// NewGate builds a Gate with its counters reset to "now".
func NewGate(cfg Config, now time.Time) *Gate {
	return &Gate{
		cfg:           cfg,
		dailyResetAt:  startOfDayUTC(now),
		hourlyResetAt: startOfHourUTC(now),
	}
}

func startOfDayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func startOfHourUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC)
}

// ResetCountersIfElapsed rolls the daily/hourly counters over when the
// UTC calendar date/hour has changed.
func (g *Gate) ResetCountersIfElapsed(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if startOfDayUTC(now).After(g.dailyResetAt) {
		g.dailyPnL = 0
		g.dailyTrades = 0
		g.dailyResetAt = startOfDayUTC(now)
	}
	if startOfHourUTC(now).After(g.hourlyResetAt) {
		g.hourlyTrades = 0
		g.hourlyResetAt = startOfHourUTC(now)
	}
}

// SeedDailyTrades primes the daily trade counter from a durable
// source, so the per-day cap survives a daemon restart mid-day. It
// only ever raises the counter.
func (g *Gate) SeedDailyTrades(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n > g.dailyTrades {
		g.dailyTrades = n
	}
}

// RegisterTradeOpened records that a new position was opened, for the
// trade-count blockers.
func (g *Gate) RegisterTradeOpened() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dailyTrades++
	g.hourlyTrades++
}

// RegisterTradeClosed folds a realized P&L into the daily total.
func (g *Gate) RegisterTradeClosed(pnl float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dailyPnL += pnl
}

// DailyPnL returns the running daily realized P&L.
func (g *Gate) DailyPnL() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.dailyPnL
}

// DailyTradeCount returns the running daily trade count.
func (g *Gate) DailyTradeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.dailyTrades
}

// Evaluate applies the hard-blocker chain (in order; first failing
// blocks) and, if every blocker clears, computes the risk score.
// Blocker order: daily loss, drawdown, daily trade count, hourly trade
// count, missing/invalid levels, R:R floor, lot-size/risk-amount.
func (g *Gate) Evaluate(sig *signal.Signal, acct AccountInfo) Decision {
	g.mu.RLock()
	dailyPnL := g.dailyPnL
	dailyTrades := g.dailyTrades
	hourlyTrades := g.hourlyTrades
	g.mu.RUnlock()

	if dailyPnL <= -g.cfg.MaxDailyLoss {
		return Decision{Approved: false, Reasons: []string{
			fmt.Sprintf("Daily loss limit reached: $%.2f", g.cfg.MaxDailyLoss),
		}}
	}

	if acct.Balance > 0 {
		drawdown := (acct.Balance - acct.Equity) / acct.Balance
		if drawdown >= g.cfg.MaxDrawdown {
			return Decision{Approved: false, Reasons: []string{
				fmt.Sprintf("Drawdown limit reached: %.1f%%", drawdown*100),
			}}
		}
	}

	if dailyTrades >= g.cfg.MaxTradesPerDay {
		return Decision{Approved: false, Reasons: []string{
			fmt.Sprintf("Daily trade count limit reached: %d", g.cfg.MaxTradesPerDay),
		}}
	}

	if g.cfg.MaxTradesPerHour > 0 && hourlyTrades >= g.cfg.MaxTradesPerHour {
		return Decision{Approved: false, Reasons: []string{
			fmt.Sprintf("Hourly trade count limit reached: %d", g.cfg.MaxTradesPerHour),
		}}
	}

	if sig.Entry <= 0 || sig.StopLoss <= 0 || sig.TakeProfit <= 0 {
		return Decision{Approved: false, Reasons: []string{"missing or invalid entry/stop_loss/take_profit"}}
	}

	minRR := g.cfg.MinRiskReward
	if minRR <= 0 {
		minRR = 1.5
	}
	if sig.RiskRewardRatio < minRR {
		return Decision{Approved: false, Reasons: []string{
			fmt.Sprintf("risk/reward %.2f below minimum %.2f", sig.RiskRewardRatio, minRR),
		}}
	}

	stopDistance := absF(sig.Entry - sig.StopLoss)
	if stopDistance <= 0 {
		return Decision{Approved: false, Reasons: []string{sizing.ErrInvalidStop.Error()}}
	}
	maxRiskPerTrade := g.cfg.MaxRiskPerTrade
	if maxRiskPerTrade <= 0 {
		maxRiskPerTrade = 0.01
	}
	actualRisk := sig.LotSize * sizing.ContractSize * stopDistance
	if sig.LotSize == 0 || actualRisk > acct.Balance*maxRiskPerTrade {
		return Decision{Approved: false, Reasons: []string{
			fmt.Sprintf("computed risk amount $%.2f exceeds per-trade budget", actualRisk),
		}}
	}

	score := computeRiskScore(sig, acct)

	return Decision{
		Approved:        true,
		Reasons:         nil,
		AdjustedLotSize: sig.LotSize,
		RiskScore:       score,
	}
}

// computeRiskScore grades an approved signal 1-10 from its R:R, setup
// quality, confidence, risk share, and the account's equity ratio.
func computeRiskScore(sig *signal.Signal, acct AccountInfo) int {
	score := 5.0

	switch {
	case sig.RiskRewardRatio >= 3:
		score += 2
	case sig.RiskRewardRatio >= 2:
		score += 1
	}

	switch {
	case sig.SetupQuality >= 8:
		score += 2
	case sig.SetupQuality >= 6:
		score += 1
	}

	if sig.Confidence >= 0.8 {
		score += 1
	}

	riskPct := riskPercentageOf(sig, acct)
	switch {
	case riskPct <= 0.5:
		score += 1
	case riskPct >= 2.0:
		score -= 1
	}

	if acct.Balance > 0 {
		equityRatio := acct.Equity / acct.Balance
		switch {
		case equityRatio >= 0.98:
			score += 1
		case equityRatio <= 0.90:
			score -= 2
		}
	}

	return int(clamp(score, 1, 10))
}

func riskPercentageOf(sig *signal.Signal, acct AccountInfo) float64 {
	if acct.Balance <= 0 {
		return 0
	}
	riskAmount := sig.LotSize * sizing.ContractSize * absF(sig.Entry-sig.StopLoss)
	return riskAmount / acct.Balance * 100
}

func absF(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
