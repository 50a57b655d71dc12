package schedule

import "testing"

func TestParseClock(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"00:00", 0, true},
		{"09:00", 540, true},
		{"23:59", 1439, true},
		{"24:00", 0, false},
		{"12:60", 0, false},
		{"9:00", 0, false},
		{"09:0", 0, false},
		{"09-00", 0, false},
		{"ab:cd", 0, false},
		{"", 0, false},
		{"09:00 ", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseClock(c.in)
		if ok != c.ok || got != c.want {
			t.Fatalf("ParseClock(%q) = (%d, %v), want (%d, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestFormatClockClamps(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "00:00"},
		{540, "09:00"},
		{1439, "23:59"},
		{-10, "00:00"},
		{2000, "23:59"},
	}
	for _, c := range cases {
		if got := FormatClock(c.in); got != c.want {
			t.Fatalf("FormatClock(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRoundUpToSlot(t *testing.T) {
	cases := []struct{ in, want int }{
		{5, 20},
		{20, 20},
		{21, 40},
		{40, 40},
		{45, 60},
		{1, 20},
	}
	for _, c := range cases {
		if got := RoundUpToSlot(c.in); got != c.want {
			t.Fatalf("RoundUpToSlot(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestOverlapsIsSymmetric(t *testing.T) {
	pairs := [][4]int{
		{540, 600, 570, 630},
		{540, 600, 600, 660},
		{0, 1440, 100, 200},
		{100, 200, 300, 400},
	}
	for _, p := range pairs {
		ab := Overlaps(p[0], p[1], p[2], p[3])
		ba := Overlaps(p[2], p[3], p[0], p[1])
		if ab != ba {
			t.Fatalf("Overlaps not symmetric for %v", p)
		}
	}
}

func TestOverlapsTouchingEndpointsDoNot(t *testing.T) {
	// [09:00, 10:00) and [10:00, 11:00)
	if Overlaps(540, 600, 600, 660) {
		t.Fatal("touching intervals must not overlap")
	}
	if !Overlaps(540, 600, 599, 660) {
		t.Fatal("expected one-minute overlap to be detected")
	}
}

func TestValidDate(t *testing.T) {
	valid := []string{"2026-01-28", "2026-02-30", "0000-00-00"}
	for _, s := range valid {
		if !ValidDate(s) {
			t.Fatalf("ValidDate(%q) = false, want true", s)
		}
	}
	invalid := []string{"2026-1-28", "2026/01/28", "20260128", "2026-01-28 ", "abcd-ef-gh", ""}
	for _, s := range invalid {
		if ValidDate(s) {
			t.Fatalf("ValidDate(%q) = true, want false", s)
		}
	}
}
