package analysis

import (
	"testing"
	"time"

	"github.com/followthefloww9/gold-digger/internal/bar"
)

// flatSeries builds a minimal valid series of n bars, all priced
// around base, strictly increasing in time by one minute per bar.
func flatSeries(n int, base float64) []bar.Bar {
	bars := make([]bar.Bar, n)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		bars[i] = bar.Bar{
			Time:   start.Add(time.Duration(i) * time.Minute),
			Open:   base,
			High:   base + 0.5,
			Low:    base - 0.5,
			Close:  base,
			Volume: 100,
		}
	}
	return bars
}

func TestAnalyzeRejectsShortSeries(t *testing.T) {
	bars := flatSeries(10, 2680)
	_, err := Analyze(bar.XAUUSD, bar.M5, bars)
	if err == nil {
		t.Fatal("expected error for series shorter than 50 bars")
	}
}

func TestAnalyzeRejectsNonMonotonicSeries(t *testing.T) {
	bars := flatSeries(60, 2680)
	// Break strict ordering by duplicating a timestamp.
	bars[30].Time = bars[29].Time
	_, err := Analyze(bar.XAUUSD, bar.M5, bars)
	if err == nil {
		t.Fatal("expected error for non-monotonic series")
	}
}

func TestAnalyzeFlatSeriesIsNeutralWithNoSetups(t *testing.T) {
	bars := flatSeries(60, 2680)
	ma, err := Analyze(bar.XAUUSD, bar.M5, bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ma.Trend != TrendNeutral {
		t.Errorf("expected neutral trend on a flat series, got %s", ma.Trend)
	}
	if ma.BOS.Detected {
		t.Error("flat series should not produce a BOS finding")
	}
	if len(ma.OrderBlocks) != 0 {
		t.Errorf("flat series should not produce order blocks, got %d", len(ma.OrderBlocks))
	}
}

// TestDetectOrderBlockOnWideRangeCandle crafts one candle with a range
// far exceeding the local ATR and checks it is picked up as a bullish
// order block.
func TestDetectOrderBlockOnWideRangeCandle(t *testing.T) {
	bars := flatSeries(60, 2680)
	// Widen one candle's range well past 1.5x the surrounding ATR
	// (surrounding candles have a 1.0 range).
	bars[40].Open = 2680
	bars[40].Close = 2685
	bars[40].High = 2685.5
	bars[40].Low = 2679.5

	atrSeries := computeATRSeries(bars, 14)
	obs := DetectOrderBlocks(bars, bar.M5, atrSeries)

	found := false
	for _, ob := range obs {
		if ob.FormedAt.Equal(bars[40].Time) {
			found = true
			if ob.Kind != OBBullish {
				t.Errorf("expected bullish order block, got %s", ob.Kind)
			}
			if ob.Top != bars[40].High || ob.Bottom != bars[40].Low {
				t.Errorf("order block bounds mismatch: top=%f bottom=%f", ob.Top, ob.Bottom)
			}
		}
	}
	if !found {
		t.Fatal("expected an order block at the wide-range candle")
	}
}

func TestDetectBOSBullishBreak(t *testing.T) {
	bars := flatSeries(30, 2680)
	// Prior 5-bar window (bars 20-24, indices 10-14 of the 20-bar
	// context) stays at the flat high; push the last 5 bars (25-29) to
	// a new high.
	for i := 25; i < 30; i++ {
		bars[i].High = 2690
		bars[i].Close = 2689
	}
	finding := DetectBOS(bars)
	if !finding.Detected || finding.Direction != BOSBullish {
		t.Fatalf("expected bullish BOS, got detected=%v direction=%s", finding.Detected, finding.Direction)
	}
	if finding.Strength != bosStrength {
		t.Errorf("expected fixed strength %v, got %v", bosStrength, finding.Strength)
	}
}

func TestDetectLiquidityGrabUpward(t *testing.T) {
	bars := flatSeries(20, 2680)
	// Candle 10 wicks well above the prior high then the next candle
	// closes back below candle 10's open: an upward liquidity grab.
	bars[10].High = bars[9].High * 1.01
	bars[10].Open = 2680
	bars[11].Close = 2679

	grabs := DetectLiquidityGrabs(bars)
	if len(grabs) == 0 {
		t.Fatal("expected at least one liquidity grab")
	}
	last := grabs[len(grabs)-1]
	if last.Kind != LiquidityUpward {
		t.Errorf("expected upward grab, got %s", last.Kind)
	}
}

func TestSetupQualityClampedToRange(t *testing.T) {
	q := computeSetupQuality(TrendNeutral, nil, BOSFinding{}, nil, 90)
	if q < 1 || q > 10 {
		t.Fatalf("setup quality out of range: %d", q)
	}
}

func TestVWAPHandlesZeroVolume(t *testing.T) {
	bars := flatSeries(60, 2680)
	for i := range bars {
		bars[i].Volume = 0
	}
	vwap := computeVWAP(bars)
	if vwap <= 0 {
		t.Fatalf("expected a positive VWAP even with zero volume, got %f", vwap)
	}
}

func TestRSIFallsBackTo50WhenFlat(t *testing.T) {
	bars := flatSeries(60, 2680)
	rsi := computeRSI(bars, 14)
	if rsi < 45 || rsi > 55 {
		t.Errorf("expected RSI near 50 on a flat series, got %f", rsi)
	}
}

func BenchmarkAnalyze(b *testing.B) {
	bars := flatSeries(200, 2680)
	// Vary the series a little so the detectors have real work to do.
	for i := range bars {
		bars[i].High += float64(i%7) * 0.3
		bars[i].Low -= float64(i%5) * 0.2
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Analyze(bar.XAUUSD, bar.M5, bars); err != nil {
			b.Fatal(err)
		}
	}
}
