package risk

import (
	"testing"
	"time"

	"github.com/followthefloww9/gold-digger/internal/signal"
)

func validSignal() *signal.Signal {
	return &signal.Signal{
		Direction:       signal.Buy,
		Entry:           2680.00,
		StopLoss:        2678.95,
		TakeProfit:      2682.10,
		RiskRewardRatio: 2.0,
		LotSize:         0.1,
		SetupQuality:    8,
		Confidence:      0.85,
	}
}

func TestApprovesCleanSignal(t *testing.T) {
	g := NewGate(DefaultConfig(), time.Now())
	decision := g.Evaluate(validSignal(), AccountInfo{Balance: 100000, Equity: 100000})
	if !decision.Approved {
		t.Fatalf("expected approval, got reasons: %v", decision.Reasons)
	}
	if decision.RiskScore < 1 || decision.RiskScore > 10 {
		t.Errorf("risk score out of range: %d", decision.RiskScore)
	}
}

func TestBlocksOnDailyLossLimit(t *testing.T) {
	g := NewGate(DefaultConfig(), time.Now())
	g.RegisterTradeClosed(-500)
	decision := g.Evaluate(validSignal(), AccountInfo{Balance: 100000, Equity: 100000})
	if decision.Approved {
		t.Fatal("expected rejection at the daily loss limit")
	}
}

func TestBlocksOnDrawdown(t *testing.T) {
	g := NewGate(DefaultConfig(), time.Now())
	decision := g.Evaluate(validSignal(), AccountInfo{Balance: 100000, Equity: 89000})
	if decision.Approved {
		t.Fatal("expected rejection at 10% drawdown")
	}
}

func TestBlocksOnDailyTradeCount(t *testing.T) {
	g := NewGate(DefaultConfig(), time.Now())
	for i := 0; i < 4; i++ {
		g.RegisterTradeOpened()
	}
	decision := g.Evaluate(validSignal(), AccountInfo{Balance: 100000, Equity: 100000})
	if decision.Approved {
		t.Fatal("expected rejection at the daily trade count limit")
	}
}

func TestBlocksOnHourlyTradeCount(t *testing.T) {
	g := NewGate(DefaultConfig(), time.Now())
	g.RegisterTradeOpened()
	g.RegisterTradeOpened()
	decision := g.Evaluate(validSignal(), AccountInfo{Balance: 100000, Equity: 100000})
	if decision.Approved {
		t.Fatal("expected rejection at the hourly trade count limit")
	}
}

func TestBlocksOnLowRiskReward(t *testing.T) {
	g := NewGate(DefaultConfig(), time.Now())
	sig := validSignal()
	sig.RiskRewardRatio = 1.0
	decision := g.Evaluate(sig, AccountInfo{Balance: 100000, Equity: 100000})
	if decision.Approved {
		t.Fatal("expected rejection below the minimum risk/reward")
	}
}

func TestCounterResetsOnNewDay(t *testing.T) {
	yesterday := time.Now().AddDate(0, 0, -1)
	g := NewGate(DefaultConfig(), yesterday)
	g.RegisterTradeClosed(-500)
	g.ResetCountersIfElapsed(time.Now())
	if g.DailyPnL() != 0 {
		t.Errorf("expected daily P&L reset to 0, got %f", g.DailyPnL())
	}
}

func TestSeedDailyTradesOnlyRaises(t *testing.T) {
	g := NewGate(DefaultConfig(), time.Now())
	g.SeedDailyTrades(3)
	if g.DailyTradeCount() != 3 {
		t.Fatalf("seeded count = %d, want 3", g.DailyTradeCount())
	}
	g.SeedDailyTrades(1)
	if g.DailyTradeCount() != 3 {
		t.Errorf("seed must never lower the counter, got %d", g.DailyTradeCount())
	}
}
