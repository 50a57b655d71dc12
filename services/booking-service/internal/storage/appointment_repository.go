package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/slotline/slotline/libs/db"
	"github.com/slotline/slotline/services/booking-service/internal/model"
	"github.com/slotline/slotline/services/booking-service/internal/outbox"
	"github.com/slotline/slotline/services/booking-service/internal/schedule"
)

type AppointmentRepository struct {
	pool   *db.Pool
	events *outbox.Repository
}

func NewAppointmentRepository(pool *db.Pool, events *outbox.Repository) *AppointmentRepository {
	return &AppointmentRepository{pool: pool, events: events}
}

func (r *AppointmentRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const appointmentColumns = `
	id::text, location_id::text, worker_id::text,
	COALESCE(client_id::text, ''), COALESCE(worker_service_id::text, ''),
	service_name, service_duration_minutes, service_price,
	day::text, start_minute, end_minute, status,
	cancelled_at, COALESCE(cancelled_by, ''), COALESCE(cancellation_reason, ''), created_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	var cancelledAt *time.Time
	err := row.Scan(
		&a.ID, &a.LocationID, &a.WorkerID,
		&a.ClientID, &a.WorkerServiceID,
		&a.ServiceName, &a.ServiceDuration, &a.ServicePrice,
		&a.Day, &a.StartMinute, &a.EndMinute, &a.Status,
		&cancelledAt, &a.CancelledBy, &a.CancelReason, &a.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	a.CancelledAt = cancelledAt
	return a, nil
}

// Insert persists the appointment together with its calendar hold in one
// transaction. The hold insert is where the exclusion constraint fires when a
// concurrent writer got there first; callers classify that with IsConflict.
func (r *AppointmentRepository) Insert(ctx context.Context, tx pgx.Tx, a *model.Appointment) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO appointments
			(location_id, worker_id, client_id, worker_service_id,
			 service_name, service_duration_minutes, service_price,
			 day, start_minute, end_minute, status)
		VALUES ($1, $2, NULLIF($3, '')::uuid, NULLIF($4, '')::uuid, $5, $6, $7, $8::date, $9, $10, $11)
		RETURNING id::text
	`, a.LocationID, a.WorkerID, a.ClientID, a.WorkerServiceID,
		a.ServiceName, a.ServiceDuration, a.ServicePrice,
		a.Day, a.StartMinute, a.EndMinute, a.Status).Scan(&id)
	if err != nil {
		return "", err
	}
	if err := insertHold(ctx, tx, a.WorkerID, a.Day, a.StartMinute, a.EndMinute, holdSourceAppointment, id); err != nil {
		return "", err
	}
	return id, nil
}

// Create runs the whole booking write in one transaction: client upsert,
// appointment row, calendar hold, and the booked event in the outbox. If the
// hold trips the exclusion constraint everything rolls back together.
func (r *AppointmentRepository) Create(ctx context.Context, client model.Client, a *model.Appointment) (model.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if client.Name != "" || client.Email != "" {
		clientID, err := r.UpsertClient(ctx, tx, client)
		if err != nil {
			return model.Appointment{}, err
		}
		a.ClientID = clientID
	}

	id, err := r.Insert(ctx, tx, a)
	if err != nil {
		return model.Appointment{}, err
	}

	evt, err := outbox.AppointmentEvent(outbox.TopicAppointmentBooked, id, outbox.AppointmentBooked{
		AppointmentID: id,
		LocationID:    a.LocationID,
		WorkerID:      a.WorkerID,
		ServiceName:   a.ServiceName,
		Day:           a.Day,
		Start:         schedule.FormatClock(a.StartMinute),
		End:           schedule.FormatClock(a.EndMinute),
		ClientName:    client.Name,
		ClientEmail:   client.Email,
	})
	if err != nil {
		return model.Appointment{}, err
	}
	if err := r.events.Insert(ctx, tx, evt); err != nil {
		return model.Appointment{}, err
	}

	row := tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	created, err := scanAppointment(row)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}
	return created, nil
}

// OccupiedIntervals returns the (start, end) pairs of all non-cancelled
// appointments for the worker and day.
func (r *AppointmentRepository) OccupiedIntervals(ctx context.Context, locationID, workerID, day string) ([]schedule.Interval, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT start_minute, end_minute
		FROM appointments
		WHERE location_id = $1 AND worker_id = $2 AND day = $3::date AND status <> 'cancelled'
	`, locationID, workerID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedule.Interval
	for rows.Next() {
		var iv schedule.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

func (r *AppointmentRepository) Get(ctx context.Context, locationID, appointmentID string) (model.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND location_id = $2
	`, appointmentID, locationID)
	return scanAppointment(row)
}

// SetStatus moves an appointment through its lifecycle. Cancelling stamps the
// actor/reason/time and releases the calendar hold; un-cancelling clears the
// metadata and re-acquires the hold, which can itself conflict if the slot
// has been taken in the meantime.
func (r *AppointmentRepository) SetStatus(ctx context.Context, locationID, appointmentID string, next model.AppointmentStatus, actor, reason string) (model.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND location_id = $2
		FOR UPDATE
	`, appointmentID, locationID)
	current, err := scanAppointment(row)
	if err != nil {
		return model.Appointment{}, err
	}

	wasCancelled := current.Status == model.StatusCancelled
	toCancelled := next == model.StatusCancelled

	switch {
	case toCancelled && !wasCancelled:
		if _, err := tx.Exec(ctx, `
			UPDATE appointments
			SET status = 'cancelled', cancelled_at = now(), cancelled_by = $3, cancellation_reason = $4
			WHERE id = $1 AND location_id = $2
		`, appointmentID, locationID, actor, reason); err != nil {
			return model.Appointment{}, err
		}
		if err := releaseHold(ctx, tx, holdSourceAppointment, appointmentID); err != nil {
			return model.Appointment{}, err
		}
	case !toCancelled && wasCancelled:
		if _, err := tx.Exec(ctx, `
			UPDATE appointments
			SET status = $3, cancelled_at = NULL, cancelled_by = NULL, cancellation_reason = NULL
			WHERE id = $1 AND location_id = $2
		`, appointmentID, locationID, next); err != nil {
			return model.Appointment{}, err
		}
		if err := insertHold(ctx, tx, current.WorkerID, current.Day, current.StartMinute, current.EndMinute, holdSourceAppointment, appointmentID); err != nil {
			return model.Appointment{}, err
		}
	default:
		if _, err := tx.Exec(ctx, `
			UPDATE appointments SET status = $3 WHERE id = $1 AND location_id = $2
		`, appointmentID, locationID, next); err != nil {
			return model.Appointment{}, err
		}
	}

	row = tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND location_id = $2
	`, appointmentID, locationID)
	updated, err := scanAppointment(row)
	if err != nil {
		return model.Appointment{}, err
	}

	var evt outbox.Event
	if toCancelled && !wasCancelled {
		evt, err = outbox.AppointmentEvent(outbox.TopicAppointmentCancelled, updated.ID, outbox.AppointmentCancelled{
			AppointmentID: updated.ID,
			LocationID:    updated.LocationID,
			WorkerID:      updated.WorkerID,
			Day:           updated.Day,
			Start:         schedule.FormatClock(updated.StartMinute),
			CancelledBy:   actor,
			Reason:        reason,
		})
	} else {
		evt, err = outbox.AppointmentEvent(outbox.TopicAppointmentStatus, updated.ID, outbox.AppointmentStatusChanged{
			AppointmentID: updated.ID,
			LocationID:    updated.LocationID,
			Status:        string(updated.Status),
		})
	}
	if err != nil {
		return model.Appointment{}, err
	}
	if err := r.events.Insert(ctx, tx, evt); err != nil {
		return model.Appointment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}
	return updated, nil
}

// CancelDay cancels every non-cancelled appointment for the worker and day in
// one transaction and returns the affected rows so callers can notify each
// client. The precondition read and the batch write share the transaction; no
// retry loop exists because a failed precondition will not fix itself within
// the same request.
func (r *AppointmentRepository) CancelDay(ctx context.Context, locationID, workerID, day, actor, reason string) ([]model.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE location_id = $1 AND worker_id = $2 AND day = $3::date AND status <> 'cancelled'
		ORDER BY start_minute ASC
		FOR UPDATE
	`, locationID, workerID, day)
	if err != nil {
		return nil, err
	}
	var affected []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		affected = append(affected, a)
	}
	rows.Close()
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	if len(affected) == 0 {
		return nil, tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE appointments
		SET status = 'cancelled', cancelled_at = now(), cancelled_by = $4, cancellation_reason = $5
		WHERE location_id = $1 AND worker_id = $2 AND day = $3::date AND status <> 'cancelled'
	`, locationID, workerID, day, actor, reason); err != nil {
		return nil, err
	}
	for _, a := range affected {
		if err := releaseHold(ctx, tx, holdSourceAppointment, a.ID); err != nil {
			return nil, err
		}
		evt, err := outbox.AppointmentEvent(outbox.TopicAppointmentCancelled, a.ID, outbox.AppointmentCancelled{
			AppointmentID: a.ID,
			LocationID:    a.LocationID,
			WorkerID:      a.WorkerID,
			Day:           a.Day,
			Start:         schedule.FormatClock(a.StartMinute),
			CancelledBy:   actor,
			Reason:        reason,
		})
		if err != nil {
			return nil, err
		}
		if err := r.events.Insert(ctx, tx, evt); err != nil {
			return nil, err
		}
	}

	summary, err := outbox.AppointmentEvent(outbox.TopicDayCancelled, workerID, outbox.DayCancelled{
		LocationID: locationID,
		WorkerID:   workerID,
		Day:        day,
		Count:      len(affected),
		Reason:     reason,
	})
	if err != nil {
		return nil, err
	}
	summary.AggregateType = "worker_day"
	if err := r.events.Insert(ctx, tx, summary); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return affected, nil
}

func (r *AppointmentRepository) ListDay(ctx context.Context, locationID, workerID, day string) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE location_id = $1 AND worker_id = $2 AND day = $3::date
		ORDER BY start_minute ASC
	`, locationID, workerID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpsertClient finds or creates a client row by email. Clients without an
// email always get a fresh row.
func (r *AppointmentRepository) UpsertClient(ctx context.Context, tx pgx.Tx, c model.Client) (string, error) {
	if c.Email != "" {
		var id string
		err := tx.QueryRow(ctx, `
			INSERT INTO clients (name, email, phone)
			VALUES ($1, $2, $3)
			ON CONFLICT (email) WHERE email <> '' DO UPDATE
			SET name = EXCLUDED.name, phone = EXCLUDED.phone
			RETURNING id::text
		`, c.Name, c.Email, c.Phone).Scan(&id)
		return id, err
	}
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO clients (name, email, phone)
		VALUES ($1, '', $2)
		RETURNING id::text
	`, c.Name, c.Phone).Scan(&id)
	return id, err
}
