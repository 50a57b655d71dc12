// Package schedule is the scheduling core: clock arithmetic, shift-window
// resolution, and slot generation. Everything here is pure; storage and HTTP
// live elsewhere.
package schedule

import "fmt"

// SlotGranularity is the fixed step, in minutes, at which candidate start
// times are generated. It is global: per-service or per-location granularity
// is deliberately not supported.
const SlotGranularity = 20

const minutesPerDay = 24 * 60

// Interval is a half-open [Start, End) range of minutes since midnight.
type Interval struct {
	Start int
	End   int
}

// ParseClock parses strict "HH:mm" (two-digit 24h hours, two-digit minutes)
// into minutes since midnight. Any other shape is rejected.
func ParseClock(s string) (int, bool) {
	if len(s) != 5 || s[2] != ':' {
		return 0, false
	}
	for _, i := range [...]int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	hours := int(s[0]-'0')*10 + int(s[1]-'0')
	mins := int(s[3]-'0')*10 + int(s[4]-'0')
	if hours > 23 || mins > 59 {
		return 0, false
	}
	return hours*60 + mins, true
}

// FormatClock renders minutes since midnight as "HH:mm", clamping out-of-range
// input to the day.
func FormatClock(mins int) string {
	if mins < 0 {
		mins = 0
	}
	if mins > minutesPerDay-1 {
		mins = minutesPerDay - 1
	}
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

// RoundUpToSlot rounds a duration up to the next multiple of SlotGranularity.
// Even a 5-minute service occupies a full slot.
func RoundUpToSlot(durationMinutes int) int {
	if durationMinutes <= SlotGranularity {
		return SlotGranularity
	}
	rem := durationMinutes % SlotGranularity
	if rem == 0 {
		return durationMinutes
	}
	return durationMinutes + SlotGranularity - rem
}

// Overlaps reports whether two half-open intervals intersect. Intervals that
// merely touch at an endpoint do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && aEnd > bStart
}

// OverlapsAny reports whether [start, end) intersects any busy interval.
func OverlapsAny(start, end int, busy []Interval) bool {
	for _, b := range busy {
		if Overlaps(start, end, b.Start, b.End) {
			return true
		}
	}
	return false
}

// ValidDate checks the strict YYYY-MM-DD shape. Calendar validity is not
// checked; callers treat the date as an opaque key.
func ValidDate(s string) bool {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return false
	}
	for i, c := range s {
		if i == 4 || i == 7 {
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
