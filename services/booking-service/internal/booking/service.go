// Package booking is the write path of the calendar: it validates requests,
// resolves shift windows, runs the advisory overlap check, and hands the
// final word to the storage exclusion constraint.
package booking

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/slotline/slotline/services/booking-service/internal/metrics"
	"github.com/slotline/slotline/services/booking-service/internal/model"
	"github.com/slotline/slotline/services/booking-service/internal/schedule"
	"github.com/slotline/slotline/services/booking-service/internal/storage"
)

type ScheduleStore interface {
	GetLocation(ctx context.Context, locationID string) (model.Location, error)
	GetShiftSettings(ctx context.Context, locationID string) (*model.ShiftSettings, error)
	GetWorker(ctx context.Context, locationID, workerID string) (model.Worker, error)
	GetWorkerShift(ctx context.Context, workerID, day string) (*model.WorkerShift, error)
	GetWorkerService(ctx context.Context, workerID, serviceID string) (model.WorkerService, error)
	UpsertWorkerShifts(ctx context.Context, shifts []model.WorkerShift) error
	SwapWorkerShifts(ctx context.Context, workerA, workerB, day string) (bool, error)
}

type AppointmentStore interface {
	Create(ctx context.Context, client model.Client, a *model.Appointment) (model.Appointment, error)
	OccupiedIntervals(ctx context.Context, locationID, workerID, day string) ([]schedule.Interval, error)
	Get(ctx context.Context, locationID, appointmentID string) (model.Appointment, error)
	SetStatus(ctx context.Context, locationID, appointmentID string, next model.AppointmentStatus, actor, reason string) (model.Appointment, error)
	CancelDay(ctx context.Context, locationID, workerID, day, actor, reason string) ([]model.Appointment, error)
	ListDay(ctx context.Context, locationID, workerID, day string) ([]model.Appointment, error)
}

type BlockStore interface {
	Create(ctx context.Context, b *model.CalendarBlock) (string, error)
	Update(ctx context.Context, b *model.CalendarBlock) error
	Delete(ctx context.Context, locationID, blockID string) error
	OccupiedIntervals(ctx context.Context, locationID, workerID, day string) ([]schedule.Interval, error)
	ListDay(ctx context.Context, locationID, workerID, day string) ([]model.CalendarBlock, error)
}

type Service struct {
	schedules    ScheduleStore
	appointments AppointmentStore
	blocks       BlockStore
	logger       *slog.Logger
}

func NewService(schedules ScheduleStore, appointments AppointmentStore, blocks BlockStore, logger *slog.Logger) *Service {
	return &Service{
		schedules:    schedules,
		appointments: appointments,
		blocks:       blocks,
		logger:       logger,
	}
}

// occupied loads the appointment and block intervals concurrently. A failure
// on either side fails the whole load; booking against half a picture would
// invite phantom availability.
func (s *Service) occupied(ctx context.Context, locationID, workerID, day string) ([]schedule.Interval, error) {
	g, gctx := errgroup.WithContext(ctx)
	var appts, blocks []schedule.Interval
	g.Go(func() error {
		var err error
		appts, err = s.appointments.OccupiedIntervals(gctx, locationID, workerID, day)
		return err
	})
	g.Go(func() error {
		var err error
		blocks, err = s.blocks.OccupiedIntervals(gctx, locationID, workerID, day)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return append(appts, blocks...), nil
}

// window resolves the bookable interval for the worker on the day. ok=false
// means the worker is off; an error means the location's shift settings are
// broken and the request cannot be judged.
func (s *Service) window(ctx context.Context, locationID, workerID, day string) (schedule.Interval, bool, error) {
	settings, err := s.schedules.GetShiftSettings(ctx, locationID)
	if err != nil {
		return schedule.Interval{}, false, err
	}
	shift, err := s.schedules.GetWorkerShift(ctx, workerID, day)
	if err != nil {
		return schedule.Interval{}, false, err
	}
	return schedule.ResolveShiftWindow(settings, shift)
}

type BookRequest struct {
	LocationID  string
	WorkerID    string
	ServiceID   string
	Day         string
	Start       string
	ClientName  string
	ClientEmail string
	ClientPhone string
}

// Book places an appointment. The advisory overlap check filters the common
// case cheaply; the calendar hold's exclusion constraint is the authority
// when two writers race past it.
func (s *Service) Book(ctx context.Context, req BookRequest) (model.Appointment, error) {
	if !schedule.ValidDate(req.Day) {
		return model.Appointment{}, invalidField("day", "must be YYYY-MM-DD")
	}
	start, ok := schedule.ParseClock(req.Start)
	if !ok {
		return model.Appointment{}, invalidField("start", "must be HH:mm")
	}

	worker, err := s.schedules.GetWorker(ctx, req.LocationID, req.WorkerID)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.Appointment{}, ErrNotFound
		}
		return model.Appointment{}, err
	}
	if !worker.IsActive {
		return model.Appointment{}, invalidField("worker_id", "worker is not active")
	}

	ws, err := s.schedules.GetWorkerService(ctx, req.WorkerID, req.ServiceID)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.Appointment{}, invalidField("service_id", "worker does not offer this service")
		}
		return model.Appointment{}, err
	}
	if !ws.IsActive || !ws.ServiceActive {
		return model.Appointment{}, invalidField("service_id", "service is not active")
	}

	duration := schedule.RoundUpToSlot(ws.DurationMinutes)
	candidate := schedule.Interval{Start: start, End: start + duration}

	win, working, err := s.window(ctx, req.LocationID, req.WorkerID, req.Day)
	if err != nil {
		return model.Appointment{}, err
	}
	if !working {
		return model.Appointment{}, invalidField("day", "worker is off that day")
	}
	if candidate.Start < win.Start || candidate.End > win.End {
		return model.Appointment{}, invalidField("start", "appointment does not fit the shift window")
	}

	busy, err := s.occupied(ctx, req.LocationID, req.WorkerID, req.Day)
	if err != nil {
		return model.Appointment{}, err
	}
	if !schedule.FitsFreely(candidate, busy) {
		metrics.IncConflictRejected("advisory")
		return model.Appointment{}, ErrSlotTaken
	}

	appt := &model.Appointment{
		LocationID:      req.LocationID,
		WorkerID:        req.WorkerID,
		WorkerServiceID: ws.ID,
		ServiceName:     ws.ServiceName,
		ServiceDuration: duration,
		ServicePrice:    ws.Price,
		Day:             req.Day,
		StartMinute:     candidate.Start,
		EndMinute:       candidate.End,
		Status:          model.StatusPending,
	}
	client := model.Client{Name: req.ClientName, Email: req.ClientEmail, Phone: req.ClientPhone}

	created, err := s.appointments.Create(ctx, client, appt)
	if err != nil {
		if storage.IsConflict(err) {
			metrics.IncConflictRejected("constraint")
			s.logger.Info("booking lost the race for a slot",
				"worker_id", req.WorkerID, "day", req.Day, "start", req.Start)
			return model.Appointment{}, ErrSlotTaken
		}
		return model.Appointment{}, err
	}
	metrics.IncAppointmentsBooked()
	return created, nil
}

// Slots returns the free start times for a worker, service and day as HH:mm
// strings. An off day yields an empty list, not an error.
func (s *Service) Slots(ctx context.Context, locationID, workerID, serviceID, day string) ([]string, error) {
	if !schedule.ValidDate(day) {
		return nil, invalidField("day", "must be YYYY-MM-DD")
	}
	ws, err := s.schedules.GetWorkerService(ctx, workerID, serviceID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, invalidField("service_id", "worker does not offer this service")
		}
		return nil, err
	}
	if !ws.IsActive || !ws.ServiceActive {
		return nil, invalidField("service_id", "service is not active")
	}

	win, working, err := s.window(ctx, locationID, workerID, day)
	if err != nil {
		return nil, err
	}
	metrics.IncSlotQueries()
	if !working {
		return []string{}, nil
	}

	busy, err := s.occupied(ctx, locationID, workerID, day)
	if err != nil {
		return nil, err
	}
	duration := schedule.RoundUpToSlot(ws.DurationMinutes)
	starts := schedule.AvailableStarts(win, duration, busy)
	if starts == nil {
		starts = []string{}
	}
	return starts, nil
}

type BlockRequest struct {
	LocationID string
	WorkerID   string
	Day        string
	Start      string
	End        string
	Note       string
}

// Block reserves an interval with no client attached. Unlike bookings, a
// block may extend outside the shift window; a worker can block their lunch
// even on a day the calendar says they are off.
func (s *Service) Block(ctx context.Context, req BlockRequest) (string, error) {
	if !schedule.ValidDate(req.Day) {
		return "", invalidField("day", "must be YYYY-MM-DD")
	}
	start, ok := schedule.ParseClock(req.Start)
	if !ok {
		return "", invalidField("start", "must be HH:mm")
	}
	end, ok := schedule.ParseClock(req.End)
	if !ok {
		return "", invalidField("end", "must be HH:mm")
	}
	if end <= start {
		return "", invalidField("end", "must be after start")
	}

	worker, err := s.schedules.GetWorker(ctx, req.LocationID, req.WorkerID)
	if err != nil {
		if storage.IsNotFound(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	if !worker.IsActive {
		return "", invalidField("worker_id", "worker is not active")
	}

	busy, err := s.occupied(ctx, req.LocationID, req.WorkerID, req.Day)
	if err != nil {
		return "", err
	}
	candidate := schedule.Interval{Start: start, End: end}
	if !schedule.FitsFreely(candidate, busy) {
		metrics.IncConflictRejected("advisory")
		return "", ErrSlotTaken
	}

	id, err := s.blocks.Create(ctx, &model.CalendarBlock{
		LocationID:  req.LocationID,
		WorkerID:    req.WorkerID,
		Day:         req.Day,
		StartMinute: start,
		EndMinute:   end,
		Note:        req.Note,
	})
	if err != nil {
		if storage.IsConflict(err) {
			metrics.IncConflictRejected("constraint")
			return "", ErrSlotTaken
		}
		return "", err
	}
	metrics.IncBlocksCreated()
	return id, nil
}

type UpdateBlockRequest struct {
	LocationID string
	WorkerID   string
	BlockID    string
	Day        string
	Start      string
	End        string
	Note       string
}

// UpdateBlock moves or renames an existing block. No advisory check here: the
// occupied set would contain the block's own interval and reject harmless
// no-op moves, so the hold swap inside the storage transaction decides alone.
func (s *Service) UpdateBlock(ctx context.Context, req UpdateBlockRequest) error {
	if !schedule.ValidDate(req.Day) {
		return invalidField("day", "must be YYYY-MM-DD")
	}
	start, ok := schedule.ParseClock(req.Start)
	if !ok {
		return invalidField("start", "must be HH:mm")
	}
	end, ok := schedule.ParseClock(req.End)
	if !ok {
		return invalidField("end", "must be HH:mm")
	}
	if end <= start {
		return invalidField("end", "must be after start")
	}

	err := s.blocks.Update(ctx, &model.CalendarBlock{
		ID:          req.BlockID,
		LocationID:  req.LocationID,
		WorkerID:    req.WorkerID,
		Day:         req.Day,
		StartMinute: start,
		EndMinute:   end,
		Note:        req.Note,
	})
	if err != nil {
		if storage.IsNotFound(err) {
			return ErrNotFound
		}
		if storage.IsConflict(err) {
			metrics.IncConflictRejected("constraint")
			return ErrSlotTaken
		}
		return err
	}
	return nil
}

// DeleteBlock removes a block and releases its calendar hold.
func (s *Service) DeleteBlock(ctx context.Context, locationID, blockID string) error {
	err := s.blocks.Delete(ctx, locationID, blockID)
	if err != nil {
		if storage.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// SetStatus applies a lifecycle transition. Un-cancelling re-acquires the
// calendar hold and can lose to whoever took the slot in the meantime.
func (s *Service) SetStatus(ctx context.Context, locationID, appointmentID string, next model.AppointmentStatus, actor, reason string) (model.Appointment, error) {
	if !next.Valid() {
		return model.Appointment{}, invalidField("status", "unknown status")
	}
	updated, err := s.appointments.SetStatus(ctx, locationID, appointmentID, next, actor, reason)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.Appointment{}, ErrNotFound
		}
		if storage.IsConflict(err) {
			metrics.IncConflictRejected("constraint")
			return model.Appointment{}, ErrSlotTaken
		}
		return model.Appointment{}, err
	}
	metrics.IncStatusChange(string(updated.Status))
	return updated, nil
}

// SwapShifts exchanges two workers' shift types for one day, refusing when
// either has live appointments.
func (s *Service) SwapShifts(ctx context.Context, locationID, workerA, workerB, day string) error {
	if !schedule.ValidDate(day) {
		return invalidField("day", "must be YYYY-MM-DD")
	}
	if workerA == workerB {
		return invalidField("worker_b", "cannot swap a worker with themselves")
	}
	for _, id := range []string{workerA, workerB} {
		if _, err := s.schedules.GetWorker(ctx, locationID, id); err != nil {
			if storage.IsNotFound(err) {
				return ErrNotFound
			}
			return err
		}
	}
	ok, err := s.schedules.SwapWorkerShifts(ctx, workerA, workerB, day)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSwapBlocked
	}
	return nil
}

// CancelDay wipes a worker's day and returns how many appointments fell.
func (s *Service) CancelDay(ctx context.Context, locationID, workerID, day, actor, reason string) (int, error) {
	if !schedule.ValidDate(day) {
		return 0, invalidField("day", "must be YYYY-MM-DD")
	}
	affected, err := s.appointments.CancelDay(ctx, locationID, workerID, day, actor, reason)
	if err != nil {
		return 0, err
	}
	for range affected {
		metrics.IncStatusChange(string(model.StatusCancelled))
	}
	return len(affected), nil
}

// PlanWeek expands a weekly template into per-day shift rows and stores them.
func (s *Service) PlanWeek(ctx context.Context, locationID, workerID string, tpl schedule.WeeklyTemplate, from, until string) (int, error) {
	if _, err := s.schedules.GetWorker(ctx, locationID, workerID); err != nil {
		if storage.IsNotFound(err) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	shifts, err := schedule.ExpandTemplate(workerID, tpl, from, until)
	if err != nil {
		return 0, invalidField("from", err.Error())
	}
	if err := s.schedules.UpsertWorkerShifts(ctx, shifts); err != nil {
		return 0, err
	}
	return len(shifts), nil
}

// DaySchedule returns the worker's appointments and blocks for rendering.
func (s *Service) DaySchedule(ctx context.Context, locationID, workerID, day string) ([]model.Appointment, []model.CalendarBlock, error) {
	if !schedule.ValidDate(day) {
		return nil, nil, invalidField("day", "must be YYYY-MM-DD")
	}
	appts, err := s.appointments.ListDay(ctx, locationID, workerID, day)
	if err != nil {
		return nil, nil, err
	}
	blocks, err := s.blocks.ListDay(ctx, locationID, workerID, day)
	if err != nil {
		return nil, nil, err
	}
	return appts, blocks, nil
}
