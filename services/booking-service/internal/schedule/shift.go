package schedule

import (
	"errors"
	"fmt"

	"github.com/slotline/slotline/services/booking-service/internal/model"
)

// ErrShiftConfig marks shift settings that are internally inconsistent. This
// is an administrative data error, not user input: retrying will not help
// until the configuration is fixed.
var ErrShiftConfig = errors.New("shift settings inconsistent")

// ResolveShiftWindow maps a worker's shift assignment for a day onto the
// location's concrete shift window. Missing settings, a missing assignment,
// or an "off" assignment mean the worker is unavailable that day (ok=false),
// which is a normal outcome, not an error.
func ResolveShiftWindow(settings *model.ShiftSettings, shift *model.WorkerShift) (Interval, bool, error) {
	if settings == nil || shift == nil || shift.Type == model.ShiftOff {
		return Interval{}, false, nil
	}

	var win Interval
	switch shift.Type {
	case model.ShiftMorning:
		win = Interval{Start: settings.MorningStart, End: settings.MorningEnd}
	case model.ShiftAfternoon:
		win = Interval{Start: settings.AfternoonStart, End: settings.AfternoonEnd}
	default:
		return Interval{}, false, fmt.Errorf("%w: unknown shift type %q", ErrShiftConfig, shift.Type)
	}

	if win.End <= win.Start {
		return Interval{}, false, fmt.Errorf("%w: %s window [%d, %d) for location %s",
			ErrShiftConfig, shift.Type, win.Start, win.End, settings.LocationID)
	}
	return win, true, nil
}

// ValidateSettings enforces the shift-settings invariant at write time:
// morning_start < morning_end <= afternoon_start < afternoon_end, with both
// sub-windows inside the work day.
func ValidateSettings(s model.ShiftSettings) error {
	if s.WorkStart < 0 || s.WorkEnd > minutesPerDay || s.WorkEnd <= s.WorkStart {
		return fmt.Errorf("work day [%d, %d) is invalid", s.WorkStart, s.WorkEnd)
	}
	if s.MorningStart >= s.MorningEnd {
		return fmt.Errorf("morning window [%d, %d) is invalid", s.MorningStart, s.MorningEnd)
	}
	if s.MorningEnd > s.AfternoonStart {
		return fmt.Errorf("morning window may not run into the afternoon window")
	}
	if s.AfternoonStart >= s.AfternoonEnd {
		return fmt.Errorf("afternoon window [%d, %d) is invalid", s.AfternoonStart, s.AfternoonEnd)
	}
	if s.MorningStart < s.WorkStart || s.AfternoonEnd > s.WorkEnd {
		return fmt.Errorf("shift windows must lie within the work day")
	}
	return nil
}
