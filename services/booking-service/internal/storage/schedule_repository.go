package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/slotline/slotline/libs/db"
	"github.com/slotline/slotline/services/booking-service/internal/model"
)

// ScheduleRepository covers the configuration side of the calendar: locations,
// shift settings, workers, per-day shift assignments, and the service catalog.
type ScheduleRepository struct {
	pool *db.Pool
}

func NewScheduleRepository(pool *db.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

func (r *ScheduleRepository) GetLocation(ctx context.Context, locationID string) (model.Location, error) {
	var loc model.Location
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, is_active, max_active_workers, created_at
		FROM locations
		WHERE id = $1
	`, locationID).Scan(&loc.ID, &loc.Name, &loc.IsActive, &loc.MaxActiveWorkers, &loc.CreatedAt)
	return loc, err
}

func (r *ScheduleRepository) CreateLocation(ctx context.Context, name string, maxActiveWorkers int) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO locations (name, max_active_workers)
		VALUES ($1, $2)
		RETURNING id::text
	`, name, maxActiveWorkers).Scan(&id)
	return id, err
}

// GetShiftSettings returns (nil, nil) when the location has no settings row;
// the resolver treats that as "worker unavailable", not an error.
func (r *ScheduleRepository) GetShiftSettings(ctx context.Context, locationID string) (*model.ShiftSettings, error) {
	var s model.ShiftSettings
	err := r.pool.QueryRow(ctx, `
		SELECT location_id::text, work_start_minute, work_end_minute,
			morning_start_minute, morning_end_minute,
			afternoon_start_minute, afternoon_end_minute
		FROM shift_settings
		WHERE location_id = $1
	`, locationID).Scan(&s.LocationID, &s.WorkStart, &s.WorkEnd,
		&s.MorningStart, &s.MorningEnd, &s.AfternoonStart, &s.AfternoonEnd)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *ScheduleRepository) UpsertShiftSettings(ctx context.Context, s model.ShiftSettings) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO shift_settings
			(location_id, work_start_minute, work_end_minute,
			 morning_start_minute, morning_end_minute,
			 afternoon_start_minute, afternoon_end_minute)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (location_id) DO UPDATE
		SET work_start_minute = EXCLUDED.work_start_minute,
			work_end_minute = EXCLUDED.work_end_minute,
			morning_start_minute = EXCLUDED.morning_start_minute,
			morning_end_minute = EXCLUDED.morning_end_minute,
			afternoon_start_minute = EXCLUDED.afternoon_start_minute,
			afternoon_end_minute = EXCLUDED.afternoon_end_minute,
			updated_at = now()
	`, s.LocationID, s.WorkStart, s.WorkEnd,
		s.MorningStart, s.MorningEnd, s.AfternoonStart, s.AfternoonEnd)
	return err
}

func (r *ScheduleRepository) GetWorker(ctx context.Context, locationID, workerID string) (model.Worker, error) {
	var w model.Worker
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, location_id::text, name, is_active, created_at
		FROM workers
		WHERE id = $1 AND location_id = $2
	`, workerID, locationID).Scan(&w.ID, &w.LocationID, &w.Name, &w.IsActive, &w.CreatedAt)
	return w, err
}

func (r *ScheduleRepository) ListWorkers(ctx context.Context, locationID string) ([]model.Worker, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, location_id::text, name, is_active, created_at
		FROM workers
		WHERE location_id = $1
		ORDER BY created_at ASC
	`, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Worker
	for rows.Next() {
		var w model.Worker
		if err := rows.Scan(&w.ID, &w.LocationID, &w.Name, &w.IsActive, &w.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *ScheduleRepository) CreateWorker(ctx context.Context, locationID, name string) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO workers (location_id, name, is_active)
		VALUES ($1, $2, false)
		RETURNING id::text
	`, locationID, name).Scan(&id)
	return id, err
}

// ActivateWorker flips a worker active while holding the location row lock,
// so the active-worker count can never exceed the location's cap even under
// concurrent activations.
func (r *ScheduleRepository) ActivateWorker(ctx context.Context, locationID, workerID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var maxWorkers int
	if err := tx.QueryRow(ctx, `
		SELECT max_active_workers FROM locations WHERE id = $1 FOR UPDATE
	`, locationID).Scan(&maxWorkers); err != nil {
		return err
	}

	var active int
	if err := tx.QueryRow(ctx, `
		SELECT count(*) FROM workers WHERE location_id = $1 AND is_active
	`, locationID).Scan(&active); err != nil {
		return err
	}
	if active >= maxWorkers {
		return fmt.Errorf("location %s has %d of %d active workers: %w", locationID, active, maxWorkers, ErrCapacityReached)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE workers SET is_active = true WHERE id = $1 AND location_id = $2
	`, workerID, locationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return tx.Commit(ctx)
}

// GetWorkerShift returns (nil, nil) when no row exists for the day, which the
// resolver reads as "off".
func (r *ScheduleRepository) GetWorkerShift(ctx context.Context, workerID, day string) (*model.WorkerShift, error) {
	var s model.WorkerShift
	err := r.pool.QueryRow(ctx, `
		SELECT worker_id::text, day::text, shift_type
		FROM worker_shifts
		WHERE worker_id = $1 AND day = $2
	`, workerID, day).Scan(&s.WorkerID, &s.Day, &s.Type)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// UpsertWorkerShifts writes a batch of per-day assignments in one
// transaction, keyed (worker, day).
func (r *ScheduleRepository) UpsertWorkerShifts(ctx context.Context, shifts []model.WorkerShift) error {
	if len(shifts) == 0 {
		return nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, s := range shifts {
		if _, err := tx.Exec(ctx, `
			INSERT INTO worker_shifts (worker_id, day, shift_type)
			VALUES ($1, $2, $3)
			ON CONFLICT (worker_id, day) DO UPDATE
			SET shift_type = EXCLUDED.shift_type,
				updated_at = now()
		`, s.WorkerID, s.Day, s.Type); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// SwapWorkerShifts exchanges two workers' assignments for one day. The
// precondition (neither worker has live appointments that day) is re-checked
// inside the transaction; a failed precondition aborts with no rows altered.
func (r *ScheduleRepository) SwapWorkerShifts(ctx context.Context, workerA, workerB, day string) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var liveCount int
	if err := tx.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments
		WHERE worker_id = ANY($1::uuid[]) AND day = $2 AND status <> 'cancelled'
	`, []string{workerA, workerB}, day).Scan(&liveCount); err != nil {
		return false, err
	}
	if liveCount > 0 {
		return false, nil
	}

	shiftFor := func(workerID string) (string, error) {
		var t string
		err := tx.QueryRow(ctx, `
			SELECT shift_type FROM worker_shifts WHERE worker_id = $1 AND day = $2
		`, workerID, day).Scan(&t)
		if IsNotFound(err) {
			return string(model.ShiftOff), nil
		}
		return t, err
	}

	typeA, err := shiftFor(workerA)
	if err != nil {
		return false, err
	}
	typeB, err := shiftFor(workerB)
	if err != nil {
		return false, err
	}

	for _, pair := range []struct{ worker, shift string }{
		{workerA, typeB},
		{workerB, typeA},
	} {
		if _, err := tx.Exec(ctx, `
			INSERT INTO worker_shifts (worker_id, day, shift_type)
			VALUES ($1, $2, $3)
			ON CONFLICT (worker_id, day) DO UPDATE
			SET shift_type = EXCLUDED.shift_type,
				updated_at = now()
		`, pair.worker, day, pair.shift); err != nil {
			return false, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// GetWorkerService loads the bookable worker-service pair with its catalog
// activity flags; the booking flow rejects inactive pairs.
func (r *ScheduleRepository) GetWorkerService(ctx context.Context, workerID, serviceID string) (model.WorkerService, error) {
	var ws model.WorkerService
	err := r.pool.QueryRow(ctx, `
		SELECT ws.id::text, ws.worker_id::text, ws.service_id::text, s.name,
			ws.duration_minutes, ws.price, ws.is_active, s.is_active
		FROM worker_services ws
		JOIN services s ON s.id = ws.service_id
		WHERE ws.worker_id = $1 AND ws.service_id = $2
	`, workerID, serviceID).Scan(&ws.ID, &ws.WorkerID, &ws.ServiceID, &ws.ServiceName,
		&ws.DurationMinutes, &ws.Price, &ws.IsActive, &ws.ServiceActive)
	return ws, err
}

func (r *ScheduleRepository) UpsertWorkerService(ctx context.Context, ws model.WorkerService) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO worker_services (worker_id, service_id, duration_minutes, price, is_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (worker_id, service_id) DO UPDATE
		SET duration_minutes = EXCLUDED.duration_minutes,
			price = EXCLUDED.price,
			is_active = EXCLUDED.is_active
		RETURNING id::text
	`, ws.WorkerID, ws.ServiceID, ws.DurationMinutes, ws.Price, ws.IsActive).Scan(&id)
	return id, err
}

func (r *ScheduleRepository) CreateService(ctx context.Context, locationID, name string) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO services (location_id, name)
		VALUES ($1, $2)
		RETURNING id::text
	`, locationID, name).Scan(&id)
	return id, err
}
