package analysis

import "github.com/followthefloww9/gold-digger/internal/bar"

const (
	upwardGrabMultiple   = 1.002
	downwardGrabMultiple = 0.998
)

// DetectLiquidityGrabs scans bars[5:len-2) for a quick wick beyond a
// prior extreme that immediately reverses, keeping only the last three
// found.
func DetectLiquidityGrabs(bars []bar.Bar) []LiquidityGrab {
	if len(bars) < 8 {
		return nil
	}

	var grabs []LiquidityGrab
	for i := 5; i < len(bars)-2; i++ {
		cur, prev, next := bars[i], bars[i-1], bars[i+1]

		if cur.High > prev.High*upwardGrabMultiple && next.Close < cur.Open {
			grabs = append(grabs, LiquidityGrab{
				Kind:     LiquidityUpward,
				Price:    cur.High,
				At:       cur.Time,
				Strength: gradeGrabStrength(cur.High, prev.High),
			})
			continue
		}

		if cur.Low < prev.Low*downwardGrabMultiple && next.Close > cur.Open {
			grabs = append(grabs, LiquidityGrab{
				Kind:     LiquidityDownward,
				Price:    cur.Low,
				At:       cur.Time,
				Strength: gradeGrabStrength(prev.Low, cur.Low),
			})
		}
	}

	if len(grabs) > 3 {
		grabs = grabs[len(grabs)-3:]
	}
	return grabs
}

// gradeGrabStrength scales the overshoot past the prior extreme into a
// 1..10 strength, steeper overshoots scoring higher.
func gradeGrabStrength(extreme, prior float64) float64 {
	if prior == 0 {
		return 5
	}
	overshoot := abs(extreme-prior) / prior
	return clamp(5+overshoot*1000, 1, 10)
}
