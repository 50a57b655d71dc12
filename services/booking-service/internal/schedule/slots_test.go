package schedule

import (
	"reflect"
	"testing"
)

func TestAvailableStarts_EmptyDay(t *testing.T) {
	// 09:00-13:00, 20-minute service, nothing booked: 13 slots 09:00..12:40.
	window := Interval{Start: 540, End: 780}
	starts := AvailableStarts(window, 20, nil)
	if len(starts) != 13 {
		t.Fatalf("expected 13 slots, got %d (%v)", len(starts), starts)
	}
	if starts[0] != "09:00" || starts[len(starts)-1] != "12:40" {
		t.Fatalf("unexpected slot range: %v", starts)
	}
}

func TestAvailableStarts_AroundBusyInterval(t *testing.T) {
	// Busy 10:00-10:40 removes the 10:00 and 10:20 starts; 09:40 and 10:40 survive.
	window := Interval{Start: 540, End: 780}
	busy := []Interval{{Start: 600, End: 640}}
	starts := AvailableStarts(window, 20, busy)

	got := make(map[string]bool, len(starts))
	for _, s := range starts {
		got[s] = true
	}
	if got["10:00"] || got["10:20"] {
		t.Fatalf("busy starts leaked into result: %v", starts)
	}
	if !got["09:40"] || !got["10:40"] {
		t.Fatalf("expected 09:40 and 10:40 to remain: %v", starts)
	}
}

func TestAvailableStarts_NoPartialTrailingSlot(t *testing.T) {
	// 60-minute service in a 09:00-10:30 window: only 09:00 and 09:20 fit fully.
	window := Interval{Start: 540, End: 630}
	starts := AvailableStarts(window, 60, nil)
	want := []string{"09:00", "09:20"}
	if !reflect.DeepEqual(starts, want) {
		t.Fatalf("got %v, want %v", starts, want)
	}
}

func TestAvailableStarts_DegenerateInputs(t *testing.T) {
	if s := AvailableStarts(Interval{Start: 600, End: 600}, 20, nil); s != nil {
		t.Fatalf("empty window produced slots: %v", s)
	}
	if s := AvailableStarts(Interval{Start: 600, End: 540}, 20, nil); s != nil {
		t.Fatalf("inverted window produced slots: %v", s)
	}
	if s := AvailableStarts(Interval{Start: 540, End: 780}, 0, nil); s != nil {
		t.Fatalf("zero duration produced slots: %v", s)
	}
	if s := AvailableStarts(Interval{Start: 540, End: 780}, -20, nil); s != nil {
		t.Fatalf("negative duration produced slots: %v", s)
	}
}

func TestAvailableStarts_Properties(t *testing.T) {
	window := Interval{Start: 480, End: 1020}
	busy := []Interval{
		{Start: 500, End: 560},
		{Start: 700, End: 760},
		{Start: 900, End: 1020},
	}
	for _, duration := range []int{20, 40, 60, 120} {
		starts := AvailableStarts(window, duration, busy)
		prev := -1
		for _, s := range starts {
			mins, ok := ParseClock(s)
			if !ok {
				t.Fatalf("slot %q is not HH:mm", s)
			}
			// Containment: slot >= window start, slot + d <= window end.
			if mins < window.Start || mins+duration > window.End {
				t.Fatalf("slot %s (d=%d) escapes window", s, duration)
			}
			// No false positives: result never overlaps busy.
			if OverlapsAny(mins, mins+duration, busy) {
				t.Fatalf("slot %s (d=%d) overlaps a busy interval", s, duration)
			}
			// Ascending order.
			if mins <= prev {
				t.Fatalf("slots out of order at %s", s)
			}
			prev = mins
		}
		// No false negatives: every granularity-aligned free position is present.
		got := make(map[int]bool, len(starts))
		for _, s := range starts {
			m, _ := ParseClock(s)
			got[m] = true
		}
		for c := window.Start; c+duration <= window.End; c += SlotGranularity {
			if !OverlapsAny(c, c+duration, busy) && !got[c] {
				t.Fatalf("free position %s (d=%d) missing from result", FormatClock(c), duration)
			}
		}
	}
}

func TestAvailableStarts_Idempotent(t *testing.T) {
	window := Interval{Start: 540, End: 780}
	busy := []Interval{{Start: 600, End: 640}, {Start: 720, End: 740}}
	first := AvailableStarts(window, 40, busy)
	second := AvailableStarts(window, 40, busy)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical inputs produced different output:\n%v\n%v", first, second)
	}
}

func TestFitsFreely(t *testing.T) {
	busy := []Interval{{Start: 600, End: 640}}
	cases := []struct {
		candidate Interval
		want      bool
	}{
		{Interval{Start: 540, End: 560}, true},
		{Interval{Start: 580, End: 620}, false},
		{Interval{Start: 640, End: 700}, true}, // touching endpoint
		{Interval{Start: 560, End: 600}, true}, // touching endpoint
		{Interval{Start: 600, End: 600}, false},
		{Interval{Start: 620, End: 600}, false},
	}
	for _, c := range cases {
		if got := FitsFreely(c.candidate, busy); got != c.want {
			t.Fatalf("FitsFreely(%v) = %v, want %v", c.candidate, got, c.want)
		}
	}
}
