package supervisor

import "time"

// Session is a named trading session window, UTC.
type Session string

const (
	SessionAsian   Session = "ASIAN"
	SessionLondon  Session = "LONDON"
	SessionNewYork Session = "NEW_YORK"
	SessionNone    Session = "NONE"
)

// CurrentSession maps a UTC instant to its trading session: Asian
// 22:00-07:00, London 07:00-10:00, New York 13:30-16:00. Windows are
// evaluated in that order; the first match wins.
func CurrentSession(now time.Time) Session {
	now = now.UTC()
	h, m := now.Hour(), now.Minute()
	minutesOfDay := h*60 + m

	asianStart, asianEnd := 22*60, 7*60
	londonStart, londonEnd := 7*60, 10*60
	nyStart, nyEnd := 13*60+30, 16*60

	if inWindow(minutesOfDay, asianStart, asianEnd) {
		return SessionAsian
	}
	if inWindow(minutesOfDay, londonStart, londonEnd) {
		return SessionLondon
	}
	if inWindow(minutesOfDay, nyStart, nyEnd) {
		return SessionNewYork
	}
	return SessionNone
}

// inWindow reports whether minuteOfDay falls in [start, end), where a
// window that wraps past midnight (start > end) is treated as
// spanning two days.
func inWindow(minuteOfDay, start, end int) bool {
	if start <= end {
		return minuteOfDay >= start && minuteOfDay < end
	}
	return minuteOfDay >= start || minuteOfDay < end
}

// MarketOpen reports whether gold is tradable at now: closed on
// Saturday, closed Friday from 22:00 UTC, closed Sunday before 22:00
// UTC. Otherwise open (gold trades nearly continuously through the
// weekday sessions).
func MarketOpen(now time.Time) bool {
	now = now.UTC()
	switch now.Weekday() {
	case time.Saturday:
		return false
	case time.Friday:
		return now.Hour() < 22
	case time.Sunday:
		return now.Hour() >= 22
	default:
		return true
	}
}
