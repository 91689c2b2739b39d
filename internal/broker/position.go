package broker

import (
	"time"

	"github.com/followthefloww9/gold-digger/internal/bar"
)

type Status string

const (
	StatusOpen         Status = "OPEN"
	StatusClosedSL     Status = "CLOSED_SL"
	StatusClosedTP     Status = "CLOSED_TP"
	StatusClosedManual Status = "CLOSED_MANUAL"
	StatusClosedForced Status = "CLOSED_FORCED"
)

// Position is owned exclusively by BrokerExecutor from open until it
// is moved to the closed log in Persistence.
type Position struct {
	Ticket       uint64
	Symbol       bar.Symbol
	Side         Side
	Volume       float64
	EntryPrice   float64
	StopLoss     float64
	TakeProfit   float64
	OpenedAt     time.Time
	CurrentPrice float64
	UnrealizedPnL float64
	Status       Status
	ClosedAt     *time.Time
	ExitPrice    *float64
	RealizedPnL  *float64

	ConfidenceAtEntry   float64
	SetupQualityAtEntry int
	SMCStepsAtEntry     []string
}

// PnL computes side * (exit - entry) * ounces.
func PnL(side Side, entry, exit, ounces float64) float64 {
	return side.Sign() * (exit - entry) * ounces
}

// Ounces converts a lot size into ounces using the shared gold
// contract constant.
func Ounces(lot float64) float64 {
	return lot * 100 // sizing.ContractSize, kept local to avoid an import cycle on a single constant
}

// evaluateExit checks a bar's range against SL and TP, with the
// SL-wins tie-break when both would trigger in the same bar.
func evaluateExit(p *Position, barLow, barHigh float64) (Status, float64, bool) {
	switch p.Side {
	case Buy:
		slHit := barLow <= p.StopLoss
		tpHit := barHigh >= p.TakeProfit
		switch {
		case slHit:
			return StatusClosedSL, p.StopLoss, true
		case tpHit:
			return StatusClosedTP, p.TakeProfit, true
		}
	case Sell:
		slHit := barHigh >= p.StopLoss
		tpHit := barLow <= p.TakeProfit
		switch {
		case slHit:
			return StatusClosedSL, p.StopLoss, true
		case tpHit:
			return StatusClosedTP, p.TakeProfit, true
		}
	}
	return "", 0, false
}
