package supervisor

import (
	"testing"
	"time"
)

func utc(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

// TestWeekendSkip: Saturday is always closed, Friday closes at 22:00
// UTC, Sunday reopens at 22:00 UTC.
func TestWeekendSkip(t *testing.T) {
	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"saturday noon", utc(2026, time.August, 1, 12, 0), false},
		{"friday before close", utc(2026, time.July, 31, 21, 59), true},
		{"friday after close", utc(2026, time.July, 31, 22, 0), false},
		{"sunday before reopen", utc(2026, time.August, 2, 21, 59), false},
		{"sunday after reopen", utc(2026, time.August, 2, 22, 0), true},
		{"wednesday midday", utc(2026, time.July, 29, 12, 0), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MarketOpen(tc.at); got != tc.want {
				t.Errorf("MarketOpen(%s) = %v, want %v", tc.at, got, tc.want)
			}
		})
	}
}

func TestCurrentSessionWindows(t *testing.T) {
	cases := []struct {
		name string
		at   time.Time
		want Session
	}{
		{"asian start", utc(2026, time.July, 29, 22, 0), SessionAsian},
		{"asian wraps past midnight", utc(2026, time.July, 30, 3, 0), SessionAsian},
		{"asian end exclusive", utc(2026, time.July, 30, 7, 0), SessionLondon},
		{"london mid", utc(2026, time.July, 30, 8, 30), SessionLondon},
		{"between london and ny", utc(2026, time.July, 30, 11, 0), SessionNone},
		{"new york start", utc(2026, time.July, 30, 13, 30), SessionNewYork},
		{"new york end exclusive", utc(2026, time.July, 30, 16, 0), SessionNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CurrentSession(tc.at); got != tc.want {
				t.Errorf("CurrentSession(%s) = %s, want %s", tc.at, got, tc.want)
			}
		})
	}
}
