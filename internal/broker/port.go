// Package broker owns the open-position set, translating approved
// signals into broker operations through the Port abstraction and
// evaluating SL/TP on every tick.
package broker

import (
	"context"
	"time"

	"github.com/followthefloww9/gold-digger/internal/bar"
)

// Side is the direction of a position.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Opposite returns the other side, used to close out a position.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Sign returns +1 for BUY, -1 for SELL, used in the P&L formula.
func (s Side) Sign() float64 {
	if s == Buy {
		return 1
	}
	return -1
}

// Fill is the result of a successful open().
type Fill struct {
	Ticket    uint64
	FillPrice float64
}

// CloseResult is the result of a successful close().
type CloseResult struct {
	ExitPrice float64
}

// AccountSnapshot mirrors risk.AccountInfo but is owned by the broker
// port, since it's the broker that is authoritative for balance/equity.
type AccountSnapshot struct {
	Balance  float64
	Equity   float64
	Currency string
}

// Port is the broker abstraction. Paper mode and a live broker both
// implement it; Executor never talks to a concrete broker SDK
// directly.
type Port interface {
	Open(ctx context.Context, symbol bar.Symbol, side Side, volume, sl, tp float64, comment string) (Fill, error)
	Close(ctx context.Context, ticket uint64) (CloseResult, error)
	Modify(ctx context.Context, ticket uint64, sl, tp float64) error
	CurrentPrice(ctx context.Context, symbol bar.Symbol) (bid, ask float64, at time.Time, err error)
	Positions(ctx context.Context) ([]PortPosition, error)
	AccountInfo(ctx context.Context) (AccountSnapshot, error)
	MarketOpen(symbol bar.Symbol, now time.Time) bool
}

// PortPosition is the broker's authoritative view of an open
// position, used by Executor to reconcile after a crash.
type PortPosition struct {
	Ticket     uint64
	Symbol     bar.Symbol
	Side       Side
	Volume     float64
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	OpenedAt   time.Time
}
