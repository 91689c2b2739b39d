package analysis

import (
	"sort"

	"github.com/followthefloww9/gold-digger/internal/bar"
)

// obRangeATRMultiple is the minimum range-to-ATR ratio a candle must
// clear to be treated as an order block.
const obRangeATRMultiple = 1.5

// DetectOrderBlocks scans bars[10:len-6) for strongly directional
// candles (range > 1.5*ATR at that index) and keeps at most the five
// most recent, ranked by formed_at then strength descending.
func DetectOrderBlocks(bars []bar.Bar, tf bar.Timeframe, atrSeries []float64) []OrderBlock {
	if len(bars) < 17 {
		return nil
	}

	var blocks []OrderBlock
	for i := 10; i < len(bars)-6; i++ {
		atr := atrSeries[i]
		if atr == 0 {
			continue
		}
		b := bars[i]
		rangeHL := b.High - b.Low
		if rangeHL <= obRangeATRMultiple*atr {
			continue
		}

		kind := OBBearish
		if b.Close > b.Open {
			kind = OBBullish
		}

		strength := clamp(2*rangeHL/atr, 1, 10)

		blocks = append(blocks, OrderBlock{
			Kind:      kind,
			Top:       b.High,
			Bottom:    b.Low,
			FormedAt:  b.Time,
			Strength:  strength,
			Status:    OBFresh,
			Timeframe: tf,
		})
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		if !blocks[i].FormedAt.Equal(blocks[j].FormedAt) {
			return blocks[i].FormedAt.After(blocks[j].FormedAt)
		}
		return blocks[i].Strength > blocks[j].Strength
	})

	if len(blocks) > 5 {
		blocks = blocks[:5]
	}
	return blocks
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
