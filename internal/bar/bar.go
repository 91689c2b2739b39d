// Package bar defines the OHLCV value types shared by every stage of
// the trading pipeline.
package bar

import (
	"errors"
	"time"
)

// Timeframe is a supported candle period.
type Timeframe string

const (
	M1  Timeframe = "M1"
	M5  Timeframe = "M5"
	M15 Timeframe = "M15"
	H1  Timeframe = "H1"
	H4  Timeframe = "H4"
	D1  Timeframe = "D1"
)

// Minutes returns the timeframe's period in minutes.
func (t Timeframe) Minutes() int {
	switch t {
	case M1:
		return 1
	case M5:
		return 5
	case M15:
		return 15
	case H1:
		return 60
	case H4:
		return 240
	case D1:
		return 1440
	default:
		return 0
	}
}

// Symbol is an opaque instrument identifier. This build only ever
// trades XAUUSD but the type keeps the pipeline honest about what it
// passes around.
type Symbol string

const XAUUSD Symbol = "XAUUSD"

// Bar is one OHLCV candle.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// MinSeriesLength is the minimum number of bars SMCAnalyzer requires.
const MinSeriesLength = 50

var (
	ErrEmptySeries     = errors.New("bar: empty series")
	ErrNonMonotonic    = errors.New("bar: non-monotonic series")
	ErrTooShort        = errors.New("bar: series shorter than minimum required length")
	ErrInvalidOHLC     = errors.New("bar: invalid OHLC values")
)

// ValidateSeries checks the invariants every consumer of a bar series
// relies on: strictly increasing time, sane OHLC, and a minimum length.
func ValidateSeries(bars []Bar) error {
	if len(bars) == 0 {
		return ErrEmptySeries
	}
	if len(bars) < MinSeriesLength {
		return ErrTooShort
	}
	for i, b := range bars {
		if b.High < b.Low || b.High < b.Open || b.High < b.Close || b.Low > b.Open || b.Low > b.Close {
			return ErrInvalidOHLC
		}
		if i > 0 && !b.Time.After(bars[i-1].Time) {
			return ErrNonMonotonic
		}
	}
	return nil
}
