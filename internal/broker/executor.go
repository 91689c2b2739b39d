package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/followthefloww9/gold-digger/internal/bar"
)

// Executor is the sole mutator of the open-position set. All
// open/close/modify calls against the underlying Port for a given
// symbol are serialized by the supervisor's tick order, so Executor
// itself only needs to protect its in-memory map against concurrent
// reads (status endpoint, event fan-out) racing the tick.
type Executor struct {
	port         Port
	maxPositions int

	mu        sync.RWMutex
	positions map[uint64]*Position
}

// NewExecutor builds an Executor bound to port, enforcing at most
// maxPositions concurrently open.
func NewExecutor(port Port, maxPositions int) *Executor {
	return &Executor{
		port:         port,
		maxPositions: maxPositions,
		positions:    make(map[uint64]*Position),
	}
}

// Port returns the underlying broker connection, so callers (the
// Supervisor's account-snapshot and price lookups) don't need their
// own reference to it.
func (e *Executor) Port() Port {
	return e.port
}

// OpenCount returns the number of currently open positions.
func (e *Executor) OpenCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n := 0
	for _, p := range e.positions {
		if p.Status == StatusOpen {
			n++
		}
	}
	return n
}

// AtCapacity reports whether opening one more position would exceed
// max_positions.
func (e *Executor) AtCapacity() bool {
	return e.OpenCount() >= e.maxPositions
}

// Positions returns a snapshot of all positions this Executor knows
// about, open and closed.
func (e *Executor) Positions() []*Position {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Position, 0, len(e.positions))
	for _, p := range e.positions {
		out = append(out, p)
	}
	return out
}

// OpenParams bundles everything needed to open a position, including
// the entry-time audit fields the TradeRecord will eventually carry.
type OpenParams struct {
	Symbol              bar.Symbol
	Side                Side
	Volume              float64
	StopLoss            float64
	TakeProfit           float64
	Comment             string
	ConfidenceAtEntry   float64
	SetupQualityAtEntry int
	SMCStepsAtEntry     []string
}

// Open translates an approved signal into a broker order and records
// the resulting Position. It is the only path by which a Position
// enters the open set.
func (e *Executor) Open(ctx context.Context, p OpenParams) (*Position, error) {
	if e.AtCapacity() {
		return nil, fmt.Errorf("broker: at max open positions (%d)", e.maxPositions)
	}

	fill, err := e.port.Open(ctx, p.Symbol, p.Side, p.Volume, p.StopLoss, p.TakeProfit, p.Comment)
	if err != nil {
		return nil, fmt.Errorf("broker: open rejected: %w", err)
	}

	pos := &Position{
		Ticket:              fill.Ticket,
		Symbol:              p.Symbol,
		Side:                p.Side,
		Volume:              p.Volume,
		EntryPrice:          fill.FillPrice,
		StopLoss:            p.StopLoss,
		TakeProfit:          p.TakeProfit,
		OpenedAt:            time.Now().UTC(),
		CurrentPrice:        fill.FillPrice,
		Status:              StatusOpen,
		ConfidenceAtEntry:   p.ConfidenceAtEntry,
		SetupQualityAtEntry: p.SetupQualityAtEntry,
		SMCStepsAtEntry:     p.SMCStepsAtEntry,
	}

	e.mu.Lock()
	e.positions[pos.Ticket] = pos
	e.mu.Unlock()

	return pos, nil
}

// EvaluateTick feeds one bar's high/low for symbol to every open
// position on that symbol, closing any that hit SL or TP (SL wins on
// a same-bar tie), and returns the positions that closed this tick.
func (e *Executor) EvaluateTick(ctx context.Context, symbol bar.Symbol, lastPrice, barHigh, barLow float64) ([]*Position, error) {
	e.mu.Lock()
	var candidates []*Position
	for _, p := range e.positions {
		if p.Symbol != symbol || p.Status != StatusOpen {
			continue
		}
		p.CurrentPrice = lastPrice
		p.UnrealizedPnL = PnL(p.Side, p.EntryPrice, lastPrice, Ounces(p.Volume))
		candidates = append(candidates, p)
	}
	e.mu.Unlock()

	var closed []*Position
	for _, p := range candidates {
		status, exit, hit := evaluateExit(p, barLow, barHigh)
		if !hit {
			continue
		}
		if err := e.closePosition(ctx, p, status, exit); err != nil {
			return closed, err
		}
		closed = append(closed, p)
	}
	return closed, nil
}

func (e *Executor) closePosition(ctx context.Context, p *Position, status Status, exitPrice float64) error {
	result, err := e.port.Close(ctx, p.Ticket)
	if err != nil {
		// Broker close failures retry on subsequent ticks until the
		// position reconciles against the broker's own list.
		return fmt.Errorf("broker: close ticket %d: %w", p.Ticket, err)
	}

	// SL/TP exits are booked at the triggered level itself; other
	// closes use the broker's reported exit price when it has one.
	exit := result.ExitPrice
	if exit == 0 || status == StatusClosedSL || status == StatusClosedTP {
		exit = exitPrice
	}

	pnl := PnL(p.Side, p.EntryPrice, exit, Ounces(p.Volume))
	now := time.Now().UTC()

	e.mu.Lock()
	p.Status = status
	p.ClosedAt = &now
	p.ExitPrice = &exit
	p.RealizedPnL = &pnl
	e.mu.Unlock()

	return nil
}

// CloseManual closes ticket at its current price, for operator stop
// actions or a stop-all request.
func (e *Executor) CloseManual(ctx context.Context, ticket uint64) error {
	e.mu.RLock()
	p, ok := e.positions[ticket]
	e.mu.RUnlock()
	if !ok || p.Status != StatusOpen {
		return fmt.Errorf("broker: ticket %d not open", ticket)
	}
	return e.closePosition(ctx, p, StatusClosedManual, p.CurrentPrice)
}

// LiquidateAll closes every open position at its last known price,
// used by the "emergency stop" shutdown policy.
func (e *Executor) LiquidateAll(ctx context.Context) error {
	for _, p := range e.Positions() {
		if p.Status != StatusOpen {
			continue
		}
		if err := e.closePosition(ctx, p, StatusClosedForced, p.CurrentPrice); err != nil {
			return err
		}
	}
	return nil
}

// Reconcile implements crash recovery: for every position this
// Executor still thinks is open, check whether the broker's
// authoritative list still reports the ticket. If not, mark it
// CLOSED_FORCED at the last known price; the caller is responsible
// for emitting the CRITICAL StateReconciliation event.
func (e *Executor) Reconcile(ctx context.Context) ([]*Position, error) {
	live, err := e.port.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("broker: reconcile: %w", err)
	}
	liveTickets := make(map[uint64]bool, len(live))
	for _, lp := range live {
		liveTickets[lp.Ticket] = true
	}

	var forced []*Position
	e.mu.Lock()
	for _, p := range e.positions {
		if p.Status != StatusOpen {
			continue
		}
		if liveTickets[p.Ticket] {
			continue
		}
		now := time.Now().UTC()
		exit := p.CurrentPrice
		pnl := PnL(p.Side, p.EntryPrice, exit, Ounces(p.Volume))
		p.Status = StatusClosedForced
		p.ClosedAt = &now
		p.ExitPrice = &exit
		p.RealizedPnL = &pnl
		forced = append(forced, p)
	}
	e.mu.Unlock()

	return forced, nil
}

// Adopt registers a position the broker reports as open but this
// Executor doesn't yet know about (the other half of crash recovery:
// adopt tickets the broker still holds).
func (e *Executor) Adopt(pp PortPosition) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.positions[pp.Ticket]; exists {
		return
	}
	e.positions[pp.Ticket] = &Position{
		Ticket:       pp.Ticket,
		Symbol:       pp.Symbol,
		Side:         pp.Side,
		Volume:       pp.Volume,
		EntryPrice:   pp.EntryPrice,
		StopLoss:     pp.StopLoss,
		TakeProfit:   pp.TakeProfit,
		OpenedAt:     pp.OpenedAt,
		CurrentPrice: pp.EntryPrice,
		Status:       StatusOpen,
	}
}
