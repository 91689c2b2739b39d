package analysis

import "github.com/followthefloww9/gold-digger/internal/bar"

// computeSessionLevels produces pure window statistics: session
// high/low over the last 50 bars, prev-day high/low over the last 24
// bars (falling back to the session window when fewer bars are
// available), and weekly variants over the last 50 bars.
func computeSessionLevels(bars []bar.Bar) SessionLevels {
	sessionWindow := window(bars, 50)
	sHigh, sLow := highLow(sessionWindow)

	dayWindow := window(bars, 24)
	var dHigh, dLow float64
	if len(dayWindow) > 0 {
		dHigh, dLow = highLow(dayWindow)
	} else {
		dHigh, dLow = sHigh, sLow
	}

	weeklyWindow := window(bars, 50)
	wHigh, wLow := highLow(weeklyWindow)

	return SessionLevels{
		SessionHigh: sHigh,
		SessionLow:  sLow,
		PrevDayHigh: dHigh,
		PrevDayLow:  dLow,
		WeeklyHigh:  wHigh,
		WeeklyLow:   wLow,
	}
}

func window(bars []bar.Bar, n int) []bar.Bar {
	if n > len(bars) {
		n = len(bars)
	}
	return bars[len(bars)-n:]
}

func highLow(bars []bar.Bar) (high, low float64) {
	if len(bars) == 0 {
		return 0, 0
	}
	high, low = bars[0].High, bars[0].Low
	for _, b := range bars[1:] {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return high, low
}
