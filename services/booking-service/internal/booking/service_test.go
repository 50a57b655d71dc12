package booking

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/slotline/slotline/services/booking-service/internal/model"
	"github.com/slotline/slotline/services/booking-service/internal/schedule"
)

type fakeScheduleStore struct {
	workers  map[string]model.Worker
	settings *model.ShiftSettings
	shifts   map[string]model.ShiftType // workerID + "|" + day
	services map[string]model.WorkerService
	swapOK   bool
	upserted []model.WorkerShift
}

func (f *fakeScheduleStore) GetLocation(ctx context.Context, locationID string) (model.Location, error) {
	return model.Location{ID: locationID, IsActive: true, MaxActiveWorkers: 10}, nil
}

func (f *fakeScheduleStore) GetShiftSettings(ctx context.Context, locationID string) (*model.ShiftSettings, error) {
	return f.settings, nil
}

func (f *fakeScheduleStore) GetWorker(ctx context.Context, locationID, workerID string) (model.Worker, error) {
	w, ok := f.workers[workerID]
	if !ok {
		return model.Worker{}, pgx.ErrNoRows
	}
	return w, nil
}

func (f *fakeScheduleStore) GetWorkerShift(ctx context.Context, workerID, day string) (*model.WorkerShift, error) {
	t, ok := f.shifts[workerID+"|"+day]
	if !ok {
		return nil, nil
	}
	return &model.WorkerShift{WorkerID: workerID, Day: day, Type: t}, nil
}

func (f *fakeScheduleStore) GetWorkerService(ctx context.Context, workerID, serviceID string) (model.WorkerService, error) {
	ws, ok := f.services[workerID+"|"+serviceID]
	if !ok {
		return model.WorkerService{}, pgx.ErrNoRows
	}
	return ws, nil
}

func (f *fakeScheduleStore) UpsertWorkerShifts(ctx context.Context, shifts []model.WorkerShift) error {
	f.upserted = append(f.upserted, shifts...)
	return nil
}

func (f *fakeScheduleStore) SwapWorkerShifts(ctx context.Context, workerA, workerB, day string) (bool, error) {
	return f.swapOK, nil
}

// fakeCalendar plays the role of both stores and of the exclusion
// constraint: every Create checks the shared hold list under one lock, the
// same way the database serializes constraint checks.
type fakeCalendar struct {
	mu     sync.Mutex
	holds  []schedule.Interval
	appts  []model.Appointment
	blocks []model.CalendarBlock

	// advisory is what OccupiedIntervals reports, which can deliberately lag
	// behind holds to simulate two writers racing past the pre-check.
	advisory []schedule.Interval
}

func exclusionViolation() error {
	return &pgconn.PgError{Code: "23P01", ConstraintName: "calendar_holds_no_overlap"}
}

func (f *fakeCalendar) acquireHold(iv schedule.Interval) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if schedule.OverlapsAny(iv.Start, iv.End, f.holds) {
		return exclusionViolation()
	}
	f.holds = append(f.holds, iv)
	return nil
}

func (f *fakeCalendar) Create(ctx context.Context, client model.Client, a *model.Appointment) (model.Appointment, error) {
	if err := f.acquireHold(schedule.Interval{Start: a.StartMinute, End: a.EndMinute}); err != nil {
		return model.Appointment{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	created := *a
	created.ID = "appt-1"
	created.ClientID = "client-1"
	f.appts = append(f.appts, created)
	return created, nil
}

func (f *fakeCalendar) OccupiedIntervals(ctx context.Context, locationID, workerID, day string) ([]schedule.Interval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]schedule.Interval, len(f.advisory))
	copy(out, f.advisory)
	return out, nil
}

func (f *fakeCalendar) Get(ctx context.Context, locationID, appointmentID string) (model.Appointment, error) {
	return model.Appointment{}, pgx.ErrNoRows
}

func (f *fakeCalendar) SetStatus(ctx context.Context, locationID, appointmentID string, next model.AppointmentStatus, actor, reason string) (model.Appointment, error) {
	for _, a := range f.appts {
		if a.ID == appointmentID {
			a.Status = next
			return a, nil
		}
	}
	return model.Appointment{}, pgx.ErrNoRows
}

func (f *fakeCalendar) CancelDay(ctx context.Context, locationID, workerID, day, actor, reason string) ([]model.Appointment, error) {
	var affected []model.Appointment
	for i := range f.appts {
		if f.appts[i].Day == day && f.appts[i].Status != model.StatusCancelled {
			f.appts[i].Status = model.StatusCancelled
			affected = append(affected, f.appts[i])
		}
	}
	return affected, nil
}

func (f *fakeCalendar) ListDay(ctx context.Context, locationID, workerID, day string) ([]model.Appointment, error) {
	return f.appts, nil
}

// blockStore view of the same calendar.

type fakeBlocks struct{ cal *fakeCalendar }

func (f *fakeBlocks) Create(ctx context.Context, b *model.CalendarBlock) (string, error) {
	if err := f.cal.acquireHold(schedule.Interval{Start: b.StartMinute, End: b.EndMinute}); err != nil {
		return "", err
	}
	f.cal.mu.Lock()
	defer f.cal.mu.Unlock()
	created := *b
	created.ID = "block-1"
	f.cal.blocks = append(f.cal.blocks, created)
	return created.ID, nil
}

func (f *fakeBlocks) Update(ctx context.Context, b *model.CalendarBlock) error {
	f.cal.mu.Lock()
	defer f.cal.mu.Unlock()
	for i := range f.cal.blocks {
		if f.cal.blocks[i].ID != b.ID {
			continue
		}
		old := f.cal.blocks[i]
		f.dropHoldLocked(schedule.Interval{Start: old.StartMinute, End: old.EndMinute})
		next := schedule.Interval{Start: b.StartMinute, End: b.EndMinute}
		if schedule.OverlapsAny(next.Start, next.End, f.cal.holds) {
			f.cal.holds = append(f.cal.holds, schedule.Interval{Start: old.StartMinute, End: old.EndMinute})
			return exclusionViolation()
		}
		f.cal.holds = append(f.cal.holds, next)
		f.cal.blocks[i] = *b
		return nil
	}
	return pgx.ErrNoRows
}

func (f *fakeBlocks) Delete(ctx context.Context, locationID, blockID string) error {
	f.cal.mu.Lock()
	defer f.cal.mu.Unlock()
	for i := range f.cal.blocks {
		if f.cal.blocks[i].ID == blockID {
			f.dropHoldLocked(schedule.Interval{Start: f.cal.blocks[i].StartMinute, End: f.cal.blocks[i].EndMinute})
			f.cal.blocks = append(f.cal.blocks[:i], f.cal.blocks[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeBlocks) dropHoldLocked(iv schedule.Interval) {
	for i := range f.cal.holds {
		if f.cal.holds[i] == iv {
			f.cal.holds = append(f.cal.holds[:i], f.cal.holds[i+1:]...)
			return
		}
	}
}

func (f *fakeBlocks) OccupiedIntervals(ctx context.Context, locationID, workerID, day string) ([]schedule.Interval, error) {
	return nil, nil
}

func (f *fakeBlocks) ListDay(ctx context.Context, locationID, workerID, day string) ([]model.CalendarBlock, error) {
	f.cal.mu.Lock()
	defer f.cal.mu.Unlock()
	return f.cal.blocks, nil
}

const (
	testLocation = "loc-1"
	testWorker   = "w-1"
	testService  = "svc-1"
	testDay      = "2026-03-02"
)

func newTestService(t *testing.T) (*Service, *fakeScheduleStore, *fakeCalendar) {
	t.Helper()
	schedules := &fakeScheduleStore{
		workers: map[string]model.Worker{
			testWorker: {ID: testWorker, LocationID: testLocation, IsActive: true},
		},
		settings: &model.ShiftSettings{
			LocationID:     testLocation,
			WorkStart:      8 * 60,
			WorkEnd:        20 * 60,
			MorningStart:   9 * 60,
			MorningEnd:     13 * 60,
			AfternoonStart: 14 * 60,
			AfternoonEnd:   18 * 60,
		},
		shifts: map[string]model.ShiftType{
			testWorker + "|" + testDay: model.ShiftMorning,
		},
		services: map[string]model.WorkerService{
			testWorker + "|" + testService: {
				ID:              "ws-1",
				WorkerID:        testWorker,
				ServiceID:       testService,
				ServiceName:     "Haircut",
				DurationMinutes: 40,
				Price:           decimal.NewFromInt(30),
				IsActive:        true,
				ServiceActive:   true,
			},
		},
		swapOK: true,
	}
	cal := &fakeCalendar{}
	logger := slog.New(slog.DiscardHandler)
	svc := NewService(schedules, cal, &fakeBlocks{cal: cal}, logger)
	return svc, schedules, cal
}

func bookReq() BookRequest {
	return BookRequest{
		LocationID: testLocation,
		WorkerID:   testWorker,
		ServiceID:  testService,
		Day:        testDay,
		Start:      "09:00",
		ClientName: "Ada",
	}
}

func TestBookHappyPath(t *testing.T) {
	svc, _, cal := newTestService(t)

	created, err := svc.Book(context.Background(), bookReq())
	require.NoError(t, err)
	require.Equal(t, "Haircut", created.ServiceName)
	require.Equal(t, 40, created.ServiceDuration)
	require.Equal(t, 9*60, created.StartMinute)
	require.Equal(t, 9*60+40, created.EndMinute)
	require.Equal(t, model.StatusPending, created.Status)
	require.Len(t, cal.appts, 1)
}

func TestBookRoundsDurationUpToSlot(t *testing.T) {
	svc, schedules, _ := newTestService(t)
	ws := schedules.services[testWorker+"|"+testService]
	ws.DurationMinutes = 25
	schedules.services[testWorker+"|"+testService] = ws

	created, err := svc.Book(context.Background(), bookReq())
	require.NoError(t, err)
	require.Equal(t, 40, created.ServiceDuration)
	require.Equal(t, 9*60+40, created.EndMinute)
}

func TestBookValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	tests := []struct {
		name   string
		mutate func(*BookRequest)
	}{
		{"bad day", func(r *BookRequest) { r.Day = "03/02/2026" }},
		{"bad start", func(r *BookRequest) { r.Start = "9:00" }},
		{"outside window", func(r *BookRequest) { r.Start = "12:40" }}, // 40min service ends 13:20
		{"before window", func(r *BookRequest) { r.Start = "08:00" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := bookReq()
			tc.mutate(&req)
			_, err := svc.Book(context.Background(), req)
			require.True(t, IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestBookOffDayRejected(t *testing.T) {
	svc, schedules, _ := newTestService(t)
	delete(schedules.shifts, testWorker+"|"+testDay)

	_, err := svc.Book(context.Background(), bookReq())
	require.True(t, IsValidation(err))
}

func TestBookUnknownWorker(t *testing.T) {
	svc, _, _ := newTestService(t)
	req := bookReq()
	req.WorkerID = "nobody"

	_, err := svc.Book(context.Background(), req)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestBookInactiveServiceRejected(t *testing.T) {
	svc, schedules, _ := newTestService(t)
	ws := schedules.services[testWorker+"|"+testService]
	ws.ServiceActive = false
	schedules.services[testWorker+"|"+testService] = ws

	_, err := svc.Book(context.Background(), bookReq())
	require.True(t, IsValidation(err))
}

func TestBookAdvisoryCheckCatchesKnownOverlap(t *testing.T) {
	svc, _, cal := newTestService(t)
	cal.advisory = []schedule.Interval{{Start: 9 * 60, End: 9*60 + 40}}

	_, err := svc.Book(context.Background(), bookReq())
	require.ErrorIs(t, err, ErrSlotTaken)
	require.Empty(t, cal.appts)
}

func TestBookTouchingIntervalsDoNotConflict(t *testing.T) {
	svc, _, cal := newTestService(t)
	cal.advisory = []schedule.Interval{{Start: 9 * 60, End: 9*60 + 40}}
	cal.holds = []schedule.Interval{{Start: 9 * 60, End: 9*60 + 40}}

	req := bookReq()
	req.Start = "09:40"
	_, err := svc.Book(context.Background(), req)
	require.NoError(t, err)
}

// Two writers race for the same slot with a stale advisory picture: both
// pass the pre-check, the hold decides, exactly one wins.
func TestBookConcurrentExactlyOneWins(t *testing.T) {
	svc, _, cal := newTestService(t)

	const racers = 8
	errs := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Book(context.Background(), bookReq())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var won, lost, other int
	for err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrSlotTaken):
			lost++
		default:
			other++
		}
	}
	require.Equal(t, 1, won, "exactly one booking must win")
	require.Equal(t, racers-1, lost)
	require.Zero(t, other)
	require.Len(t, cal.appts, 1)
}

func TestSlots(t *testing.T) {
	svc, _, cal := newTestService(t)
	cal.advisory = []schedule.Interval{{Start: 10 * 60, End: 10*60 + 40}}

	starts, err := svc.Slots(context.Background(), testLocation, testWorker, testService, testDay)
	require.NoError(t, err)
	// Morning 09:00-13:00, 40min service: 09:00..12:20 minus the busy block.
	require.Contains(t, starts, "09:00")
	require.Contains(t, starts, "12:20")
	require.NotContains(t, starts, "10:00")
	require.NotContains(t, starts, "10:20")
	require.NotContains(t, starts, "09:40")
	require.Contains(t, starts, "10:40")
}

func TestSlotsOffDayIsEmptyNotError(t *testing.T) {
	svc, schedules, _ := newTestService(t)
	schedules.shifts[testWorker+"|"+testDay] = model.ShiftOff

	starts, err := svc.Slots(context.Background(), testLocation, testWorker, testService, testDay)
	require.NoError(t, err)
	require.Empty(t, starts)
	require.NotNil(t, starts)
}

func TestBlockConflictsWithAppointment(t *testing.T) {
	svc, _, cal := newTestService(t)

	_, err := svc.Book(context.Background(), bookReq())
	require.NoError(t, err)

	// The hold list already contains the appointment even though the block
	// store's own advisory view is empty.
	_, err = svc.Block(context.Background(), BlockRequest{
		LocationID: testLocation,
		WorkerID:   testWorker,
		Day:        testDay,
		Start:      "09:20",
		End:        "10:00",
		Note:       "walk-in",
	})
	require.ErrorIs(t, err, ErrSlotTaken)
	require.Empty(t, cal.blocks)
}

func TestBlockOutsideShiftWindowAllowed(t *testing.T) {
	svc, _, cal := newTestService(t)

	id, err := svc.Block(context.Background(), BlockRequest{
		LocationID: testLocation,
		WorkerID:   testWorker,
		Day:        testDay,
		Start:      "19:00",
		End:        "20:00",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Len(t, cal.blocks, 1)
}

func TestBlockRejectsInvertedInterval(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Block(context.Background(), BlockRequest{
		LocationID: testLocation,
		WorkerID:   testWorker,
		Day:        testDay,
		Start:      "10:00",
		End:        "10:00",
	})
	require.True(t, IsValidation(err))
}

func TestUpdateBlockMovesHold(t *testing.T) {
	svc, _, _ := newTestService(t)

	id, err := svc.Block(context.Background(), BlockRequest{
		LocationID: testLocation,
		WorkerID:   testWorker,
		Day:        testDay,
		Start:      "10:00",
		End:        "11:00",
	})
	require.NoError(t, err)

	err = svc.UpdateBlock(context.Background(), UpdateBlockRequest{
		LocationID: testLocation,
		WorkerID:   testWorker,
		BlockID:    id,
		Day:        testDay,
		Start:      "11:00",
		End:        "12:00",
	})
	require.NoError(t, err)

	// The old 10:00 slot is free again, the new one is held.
	_, err = svc.Book(context.Background(), bookReq())
	require.NoError(t, err)
	_, err = svc.Block(context.Background(), BlockRequest{
		LocationID: testLocation,
		WorkerID:   testWorker,
		Day:        testDay,
		Start:      "11:20",
		End:        "11:40",
	})
	require.ErrorIs(t, err, ErrSlotTaken)
}

func TestUpdateBlockConflictRollsBack(t *testing.T) {
	svc, _, cal := newTestService(t)

	id, err := svc.Block(context.Background(), BlockRequest{
		LocationID: testLocation,
		WorkerID:   testWorker,
		Day:        testDay,
		Start:      "10:00",
		End:        "11:00",
	})
	require.NoError(t, err)
	_, err = svc.Book(context.Background(), bookReq())
	require.NoError(t, err)

	// Moving onto the 09:00 appointment fails and the original hold stays.
	err = svc.UpdateBlock(context.Background(), UpdateBlockRequest{
		LocationID: testLocation,
		WorkerID:   testWorker,
		BlockID:    id,
		Day:        testDay,
		Start:      "09:00",
		End:        "09:40",
	})
	require.ErrorIs(t, err, ErrSlotTaken)
	require.Equal(t, 10*60, cal.blocks[0].StartMinute)
}

func TestDeleteBlockReleasesHold(t *testing.T) {
	svc, _, cal := newTestService(t)

	id, err := svc.Block(context.Background(), BlockRequest{
		LocationID: testLocation,
		WorkerID:   testWorker,
		Day:        testDay,
		Start:      "09:00",
		End:        "09:40",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBlock(context.Background(), testLocation, id))
	require.Empty(t, cal.blocks)

	_, err = svc.Book(context.Background(), bookReq())
	require.NoError(t, err)
}

func TestDeleteBlockUnknownID(t *testing.T) {
	svc, _, _ := newTestService(t)
	err := svc.DeleteBlock(context.Background(), testLocation, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSwapShiftsBlockedByAppointments(t *testing.T) {
	svc, schedules, _ := newTestService(t)
	schedules.workers["w-2"] = model.Worker{ID: "w-2", LocationID: testLocation, IsActive: true}
	schedules.swapOK = false

	err := svc.SwapShifts(context.Background(), testLocation, testWorker, "w-2", testDay)
	require.ErrorIs(t, err, ErrSwapBlocked)
}

func TestSwapShiftsSelfSwapRejected(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.SwapShifts(context.Background(), testLocation, testWorker, testWorker, testDay)
	require.True(t, IsValidation(err))
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.SetStatus(context.Background(), testLocation, "appt-1", model.AppointmentStatus("paused"), "staff", "")
	require.True(t, IsValidation(err))
}

func TestCancelDayCountsAffected(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Book(context.Background(), bookReq())
	require.NoError(t, err)

	n, err := svc.CancelDay(context.Background(), testLocation, testWorker, testDay, "owner", "sick")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestPlanWeekUpsertsEveryDay(t *testing.T) {
	svc, schedules, _ := newTestService(t)

	tpl := schedule.WeeklyTemplate{
		1: model.ShiftMorning,   // Monday
		3: model.ShiftAfternoon, // Wednesday
	}
	n, err := svc.PlanWeek(context.Background(), testLocation, testWorker, tpl, "2026-03-02", "2026-03-08")
	require.NoError(t, err)
	require.Equal(t, 7, n)
	require.Len(t, schedules.upserted, 7)

	byDay := map[string]model.ShiftType{}
	for _, s := range schedules.upserted {
		byDay[s.Day] = s.Type
	}
	require.Equal(t, model.ShiftMorning, byDay["2026-03-02"])
	require.Equal(t, model.ShiftAfternoon, byDay["2026-03-04"])
	require.Equal(t, model.ShiftOff, byDay["2026-03-03"])
}
