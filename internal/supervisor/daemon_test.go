package supervisor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/followthefloww9/gold-digger/internal/bar"
	"github.com/followthefloww9/gold-digger/internal/broker"
	"github.com/followthefloww9/gold-digger/internal/events"
	"github.com/followthefloww9/gold-digger/internal/marketdata"
	"github.com/followthefloww9/gold-digger/internal/persistence"
	"github.com/followthefloww9/gold-digger/internal/risk"
)

func newTestSupervisor(t *testing.T) (*Supervisor, *marketdata.MemorySource, *broker.Executor) {
	t.Helper()

	source := marketdata.NewMemorySource()
	source.PushBar(bar.XAUUSD, bar.M5, bar.Bar{
		Time: time.Now().UTC().Add(-time.Minute),
		Open: 2680, High: 2681, Low: 2679, Close: 2680, Volume: 100,
	})

	port := broker.NewPaperBroker(source, 100000)
	executor := broker.NewExecutor(port, 3)
	gate := risk.NewGate(risk.DefaultConfig(), time.Now().UTC())
	bus := events.NewBus(64)
	t.Cleanup(bus.Close)

	cfg := DefaultConfig()
	cfg.HeartbeatInterval = 10 * time.Millisecond
	cfg.AnalysisInterval = time.Hour

	sup := New(&persistence.DB{}, bus, source, executor, gate, nil, cfg, zerolog.Nop())
	return sup, source, executor
}

func TestStartStopLifecycle(t *testing.T) {
	sup, _, _ := newTestSupervisor(t)
	ctx := context.Background()

	res, err := sup.Start(ctx, true, 0, 0)
	if err != nil || res != StartOK {
		t.Fatalf("Start = %s, %v; want ok", res, err)
	}
	if res, _ := sup.Start(ctx, true, 0, 0); res != StartAlreadyRunning {
		t.Errorf("second Start = %s, want already_running", res)
	}

	st := sup.Status(ctx)
	if !st.DaemonRunning {
		t.Error("expected daemon_running=true after Start")
	}
	if st.SessionID == "" {
		t.Error("expected a session_id after Start")
	}
	if st.TradingMode != persistence.ModePaper {
		t.Errorf("trading mode = %s, want Paper", st.TradingMode)
	}

	if res, err := sup.Stop(ctx); err != nil || res != StopOK {
		t.Fatalf("Stop = %s, %v; want ok", res, err)
	}
	if res, _ := sup.Stop(ctx); res != StopNotRunning {
		t.Errorf("second Stop = %s, want not_running", res)
	}
	if st := sup.Status(ctx); st.DaemonRunning {
		t.Error("expected daemon_running=false after Stop")
	}
}

// TestStartupReconciliationAdoptsAndForceCloses covers the cold
// restart: the executor's in-memory set starts empty, the trade log
// says two tickets are open, and the broker still holds only one of
// them. The held ticket must be adopted; the missing one must produce
// a CRITICAL reconciliation event.
func TestStartupReconciliationAdoptsAndForceCloses(t *testing.T) {
	source := marketdata.NewMemorySource()
	source.PushBar(bar.XAUUSD, bar.M5, bar.Bar{
		Time: time.Now().UTC().Add(-time.Minute),
		Open: 2680, High: 2681, Low: 2679, Close: 2680, Volume: 100,
	})
	port := broker.NewPaperBroker(source, 100000)
	executor := broker.NewExecutor(port, 3)
	gate := risk.NewGate(risk.DefaultConfig(), time.Now().UTC())
	bus := events.NewBus(64)
	defer bus.Close()

	var mu sync.Mutex
	var reconciled []events.Event
	got := make(chan struct{}, 4)
	bus.Subscribe(func(ev events.Event) {
		if ev.Payload == events.PayloadStateReconciliation {
			mu.Lock()
			reconciled = append(reconciled, ev)
			mu.Unlock()
			got <- struct{}{}
		}
	})

	sup := New(&persistence.DB{}, bus, source, executor, gate, nil, DefaultConfig(), zerolog.Nop())

	ctx := context.Background()
	source.SetQuote(bar.XAUUSD, 2680.00, 2680.00, time.Now().UTC())
	fill, err := port.Open(ctx, bar.XAUUSD, broker.Buy, 0.1, 2670.00, 2690.00, "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	sup.reconcileStartup(ctx, []persistence.TradeRecord{
		{Ticket: fill.Ticket, Symbol: "XAUUSD", Direction: "BUY", Entry: fill.FillPrice, StopLoss: 2670.00, TakeProfit: 2690.00, Lot: 0.1},
		{Ticket: 9001, Symbol: "XAUUSD", Direction: "BUY", Entry: 2685.00, StopLoss: 2675.00, TakeProfit: 2695.00, Lot: 0.1},
	})

	if executor.OpenCount() != 1 {
		t.Fatalf("expected the broker-held ticket adopted, open count = %d", executor.OpenCount())
	}
	adopted := executor.Positions()
	if len(adopted) != 1 || adopted[0].Ticket != fill.Ticket {
		t.Fatalf("expected ticket %d in the executor, got %v", fill.Ticket, adopted)
	}

	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the reconciliation event")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(reconciled) != 1 {
		t.Fatalf("expected exactly one reconciliation event, got %d", len(reconciled))
	}
	if tk, ok := reconciled[0].Details["ticket"].(uint64); !ok || tk != 9001 {
		t.Errorf("reconciliation event ticket = %v, want 9001", reconciled[0].Details["ticket"])
	}
	if reconciled[0].Severity != events.SeverityCritical {
		t.Errorf("reconciliation severity = %s, want CRITICAL", reconciled[0].Severity)
	}
}

// TestLoopClosesPositionOnStopLoss drives the exit half of the tick:
// an open BUY whose stop trades through on the next bar must be closed
// by the running loop without any operator action.
func TestLoopClosesPositionOnStopLoss(t *testing.T) {
	sup, source, executor := newTestSupervisor(t)
	ctx := context.Background()

	source.SetQuote(bar.XAUUSD, 2680.00, 2680.00, time.Now().UTC())
	if _, err := executor.Open(ctx, broker.OpenParams{
		Symbol: bar.XAUUSD, Side: broker.Buy, Volume: 0.1,
		StopLoss: 2678.95, TakeProfit: 2690.00,
	}); err != nil {
		t.Fatalf("open: %v", err)
	}

	source.PushBar(bar.XAUUSD, bar.M5, bar.Bar{
		Time: time.Now().UTC(),
		Open: 2679.50, High: 2679.60, Low: 2678.90, Close: 2678.95, Volume: 80,
	})

	if res, err := sup.Start(ctx, true, 0, 0); err != nil || res != StartOK {
		t.Fatalf("Start = %s, %v; want ok", res, err)
	}
	defer sup.Stop(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for executor.OpenCount() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for the loop to close the position")
		}
		time.Sleep(5 * time.Millisecond)
	}

	for _, p := range executor.Positions() {
		if p.Status != broker.StatusClosedSL {
			t.Errorf("status = %s, want CLOSED_SL", p.Status)
		}
	}
}
