package analysis

import "github.com/followthefloww9/gold-digger/internal/bar"

// indicatorResult bundles the public Indicators value with the
// per-bar ATR series order-block detection needs but that has no place
// in the public MarketAnalysis shape.
type indicatorResult struct {
	Indicators
	atrSeries []float64
}

func computeIndicators(bars []bar.Bar) indicatorResult {
	vwap := computeVWAP(bars)
	ema21 := computeEMA(bars, 21)
	ema50 := computeEMA(bars, 50)
	ema200 := computeEMA(bars, 200)
	rsi := computeRSI(bars, 14)
	atrSeries := computeATRSeries(bars, 14)

	atr := 0.0
	if len(atrSeries) > 0 {
		atr = atrSeries[len(atrSeries)-1]
	}

	return indicatorResult{
		Indicators: Indicators{
			VWAP:   vwap,
			EMA21:  ema21,
			EMA50:  ema50,
			EMA200: ema200,
			RSI:    rsi,
			ATR:    atr,
		},
		atrSeries: atrSeries,
	}
}

// computeVWAP is the cumulative volume-weighted average price over the
// whole series. Volume defaulted to 1 when zero so the denominator
// never goes to zero.
func computeVWAP(bars []bar.Bar) float64 {
	var numerator, denominator float64
	for _, b := range bars {
		v := b.Volume
		if v == 0 {
			v = 1
		}
		typical := (b.High + b.Low + b.Close) / 3
		numerator += typical * v
		denominator += v
	}
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

// computeEMA returns the exponential moving average of closes with the
// given span, falling back to the last close when the series is
// shorter than the span.
func computeEMA(bars []bar.Bar, span int) float64 {
	if len(bars) < span {
		return bars[len(bars)-1].Close
	}
	k := 2.0 / (float64(span) + 1.0)
	ema := bars[0].Close
	for _, b := range bars[1:] {
		ema = b.Close*k + ema*(1-k)
	}
	return ema
}

// computeRSI implements Wilder-style averaging of gains/losses over
// period bars. Returns 50 when undefined (flat series, insufficient
// data).
func computeRSI(bars []bar.Bar, period int) float64 {
	if len(bars) <= period {
		return 50
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := bars[i].Close - bars[i-1].Close
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss += -delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(bars); i++ {
		delta := bars[i].Close - bars[i-1].Close
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	rsi := 100 - (100 / (1 + rs))
	if rsi != rsi { // NaN guard
		return 50
	}
	return rsi
}

// trueRange returns the true range of bar i against the prior close.
func trueRange(bars []bar.Bar, i int) float64 {
	if i == 0 {
		return bars[i].High - bars[i].Low
	}
	hl := bars[i].High - bars[i].Low
	hc := abs(bars[i].High - bars[i-1].Close)
	lc := abs(bars[i].Low - bars[i-1].Close)
	tr := hl
	if hc > tr {
		tr = hc
	}
	if lc > tr {
		tr = lc
	}
	return tr
}

// computeATRSeries returns, for every bar index, the mean true range
// over the trailing period bars (or over however many bars are
// available before index period). Index i of the returned slice lines
// up with bars[i]; a mean that comes out zero or NaN falls back to
// that bar's own true range.
func computeATRSeries(bars []bar.Bar, period int) []float64 {
	series := make([]float64, len(bars))
	for i := range bars {
		start := i - period + 1
		if start < 0 {
			start = 0
		}
		var sum float64
		count := 0
		for j := start; j <= i; j++ {
			sum += trueRange(bars, j)
			count++
		}
		if count == 0 {
			series[i] = trueRange(bars, i)
			continue
		}
		atr := sum / float64(count)
		if atr != atr || atr == 0 {
			atr = trueRange(bars, i)
		}
		series[i] = atr
	}
	return series
}
