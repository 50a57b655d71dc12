package message

import (
	"strings"
	"testing"
)

func TestBookedEmail(t *testing.T) {
	subject, body := BookedEmail(Booked{
		ServiceName: "Haircut",
		Day:         "2026-03-02",
		Start:       "09:00",
		End:         "09:40",
		ClientName:  "Ada",
	})
	if !strings.Contains(subject, "2026-03-02") {
		t.Errorf("subject missing day: %q", subject)
	}
	if !strings.Contains(body, "Hi Ada") {
		t.Errorf("body missing greeting: %q", body)
	}
	if !strings.Contains(body, "09:00 to 09:40") {
		t.Errorf("body missing interval: %q", body)
	}
}

func TestBookedEmailWithoutName(t *testing.T) {
	_, body := BookedEmail(Booked{Day: "2026-03-02", Start: "09:00", End: "09:40"})
	if !strings.Contains(body, "Hi there") {
		t.Errorf("expected fallback greeting, got %q", body)
	}
}

func TestCancelledEmailIncludesReasonWhenPresent(t *testing.T) {
	_, withReason := CancelledEmail(Cancelled{Day: "2026-03-02", Start: "09:00", Reason: "worker sick"})
	if !strings.Contains(withReason, "worker sick") {
		t.Errorf("reason missing: %q", withReason)
	}

	_, without := CancelledEmail(Cancelled{Day: "2026-03-02", Start: "09:00"})
	if strings.Contains(without, "Reason:") {
		t.Errorf("unexpected reason line: %q", without)
	}
}
