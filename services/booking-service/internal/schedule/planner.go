package schedule

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/slotline/slotline/services/booking-service/internal/model"
)

const dayLayout = "2006-01-02"

// WeeklyTemplate maps weekdays to shift types. Weekdays not present expand to
// an explicit "off" row so a re-plan overwrites stale assignments.
type WeeklyTemplate map[time.Weekday]model.ShiftType

// ExpandTemplate applies a weekly template to every date in [from, until],
// producing the worker-shift rows the planner upserts. Dates are enumerated
// with a daily recurrence rule.
func ExpandTemplate(workerID string, tpl WeeklyTemplate, from, until string) ([]model.WorkerShift, error) {
	start, err := time.ParseInLocation(dayLayout, from, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid from date %q", from)
	}
	end, err := time.ParseInLocation(dayLayout, until, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid until date %q", until)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("until %s precedes from %s", until, from)
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: start,
		Until:   end,
	})
	if err != nil {
		return nil, fmt.Errorf("build recurrence: %w", err)
	}

	var shifts []model.WorkerShift
	for _, day := range rule.All() {
		shiftType, ok := tpl[day.Weekday()]
		if !ok {
			shiftType = model.ShiftOff
		}
		shifts = append(shifts, model.WorkerShift{
			WorkerID: workerID,
			Day:      day.Format(dayLayout),
			Type:     shiftType,
		})
	}
	return shifts, nil
}
