package broker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/followthefloww9/gold-digger/internal/bar"
	"github.com/followthefloww9/gold-digger/internal/marketdata"
)

// PaperBroker is an in-process Port implementation: it assigns
// synthetic tickets, fills at the last observed price, and tracks its
// own account balance/equity as paper trades close.
type PaperBroker struct {
	source marketdata.Source

	nextTicket uint64

	mu       sync.RWMutex
	balance  float64
	equity   float64
	currency string
	open     map[uint64]PortPosition
}

// NewPaperBroker builds a PaperBroker seeded with startBalance and
// reading prices from source.
func NewPaperBroker(source marketdata.Source, startBalance float64) *PaperBroker {
	return &PaperBroker{
		source:   source,
		balance:  startBalance,
		equity:   startBalance,
		currency: "USD",
		open:     make(map[uint64]PortPosition),
	}
}

// Open assigns the next synthetic ticket and fills at the current
// observed price (bid for a sell, ask for a buy).
func (p *PaperBroker) Open(ctx context.Context, symbol bar.Symbol, side Side, volume, sl, tp float64, comment string) (Fill, error) {
	bid, ask, at, err := p.source.CurrentPrice(ctx, symbol)
	if err != nil {
		return Fill{}, fmt.Errorf("paper broker: no current price for %s: %w", symbol, err)
	}
	fillPrice := ask
	if side == Sell {
		fillPrice = bid
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	ticket := atomic.AddUint64(&p.nextTicket, 1)

	p.mu.Lock()
	p.open[ticket] = PortPosition{
		Ticket: ticket, Symbol: symbol, Side: side, Volume: volume,
		EntryPrice: fillPrice, StopLoss: sl, TakeProfit: tp, OpenedAt: at,
	}
	p.mu.Unlock()

	return Fill{Ticket: ticket, FillPrice: fillPrice}, nil
}

// Close exits ticket at the current observed price and folds the
// resulting P&L into the paper account balance, identically to the
// live path.
func (p *PaperBroker) Close(ctx context.Context, ticket uint64) (CloseResult, error) {
	p.mu.Lock()
	pos, ok := p.open[ticket]
	if !ok {
		p.mu.Unlock()
		return CloseResult{}, fmt.Errorf("paper broker: unknown ticket %d", ticket)
	}
	delete(p.open, ticket)
	p.mu.Unlock()

	bid, ask, _, err := p.source.CurrentPrice(ctx, pos.Symbol)
	if err != nil {
		return CloseResult{}, fmt.Errorf("paper broker: no current price for %s: %w", pos.Symbol, err)
	}
	exit := bid
	if pos.Side == Sell {
		exit = ask
	}

	pnl := PnL(pos.Side, pos.EntryPrice, exit, Ounces(pos.Volume))
	p.mu.Lock()
	p.balance += pnl
	p.equity = p.balance
	p.mu.Unlock()

	return CloseResult{ExitPrice: exit}, nil
}

// Modify updates SL/TP on an open paper position.
func (p *PaperBroker) Modify(ctx context.Context, ticket uint64, sl, tp float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos, ok := p.open[ticket]
	if !ok {
		return fmt.Errorf("paper broker: unknown ticket %d", ticket)
	}
	pos.StopLoss = sl
	pos.TakeProfit = tp
	p.open[ticket] = pos
	return nil
}

// CurrentPrice delegates straight to the market data feed driving the
// paper broker: paper SL/TP is evaluated off the same tick stream as
// the live path.
func (p *PaperBroker) CurrentPrice(ctx context.Context, symbol bar.Symbol) (float64, float64, time.Time, error) {
	return p.source.CurrentPrice(ctx, symbol)
}

// Positions returns the broker's authoritative view of open paper
// positions, used by BrokerExecutor.Reconcile.
func (p *PaperBroker) Positions(ctx context.Context) ([]PortPosition, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PortPosition, 0, len(p.open))
	for _, pos := range p.open {
		out = append(out, pos)
	}
	return out, nil
}

// AccountInfo returns the paper account's running balance/equity.
func (p *PaperBroker) AccountInfo(ctx context.Context) (AccountSnapshot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return AccountSnapshot{Balance: p.balance, Equity: p.equity, Currency: p.currency}, nil
}

// MarketOpen always reports true for paper mode: it has no real
// exchange session to close against. A live broker implementation
// answers from its own session calendar instead.
func (p *PaperBroker) MarketOpen(symbol bar.Symbol, now time.Time) bool {
	return true
}

var _ Port = (*PaperBroker)(nil)
