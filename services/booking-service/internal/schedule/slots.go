package schedule

// AvailableStarts returns the bookable start times within the shift window
// for a booking of the given duration, as ascending "HH:mm" strings.
//
// Candidates step by SlotGranularity (not by duration) so short and long
// services interleave on the same grid. A candidate is valid only when the
// whole interval fits inside the window and overlaps no busy interval.
func AvailableStarts(window Interval, durationMinutes int, busy []Interval) []string {
	if durationMinutes <= 0 || window.End <= window.Start {
		return nil
	}

	var starts []string
	for t := window.Start; t+durationMinutes <= window.End; t += SlotGranularity {
		if OverlapsAny(t, t+durationMinutes, busy) {
			continue
		}
		starts = append(starts, FormatClock(t))
	}
	return starts
}

// FitsFreely is the advisory conflict guard: it reports whether the candidate
// interval is non-degenerate and overlaps no occupied interval. It exists to
// reject the common non-racing case quickly; the storage exclusion constraint
// remains the final authority under concurrency.
func FitsFreely(candidate Interval, busy []Interval) bool {
	if candidate.End <= candidate.Start {
		return false
	}
	return !OverlapsAny(candidate.Start, candidate.End, busy)
}
