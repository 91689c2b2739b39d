package analysis

import "github.com/followthefloww9/gold-digger/internal/bar"

// bosStrength is the fixed strength assigned whenever a break of
// structure is detected.
const bosStrength = 7

// DetectBOS looks for a rolling 5-bar max/min break over the last 20
// bars: the most recent 5-bar high/low breaking out beyond the 5-bar
// high/low immediately preceding it.
func DetectBOS(bars []bar.Bar) BOSFinding {
	if len(bars) < 10 {
		return BOSFinding{Detected: false, Direction: BOSNeutral}
	}

	context := window(bars, 20)
	last5 := window(context, 5)

	priorStart := len(context) - 10
	priorEnd := len(context) - 5
	if priorStart < 0 {
		priorStart = 0
	}
	if priorEnd <= priorStart {
		return BOSFinding{Detected: false, Direction: BOSNeutral}
	}
	prior5 := context[priorStart:priorEnd]

	lastHigh, lastLow := highLow(last5)
	priorHigh, priorLow := highLow(prior5)

	lastBar := context[len(context)-1]

	switch {
	case lastHigh > priorHigh:
		return BOSFinding{
			Detected:   true,
			Direction:  BOSBullish,
			BreakPrice: lastHigh,
			At:         lastBar.Time,
			Strength:   bosStrength,
		}
	case lastLow < priorLow:
		return BOSFinding{
			Detected:   true,
			Direction:  BOSBearish,
			BreakPrice: lastLow,
			At:         lastBar.Time,
			Strength:   bosStrength,
		}
	default:
		return BOSFinding{Detected: false, Direction: BOSNeutral}
	}
}
