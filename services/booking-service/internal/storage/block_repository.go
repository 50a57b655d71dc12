package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/slotline/slotline/libs/db"
	"github.com/slotline/slotline/services/booking-service/internal/model"
	"github.com/slotline/slotline/services/booking-service/internal/schedule"
)

type BlockRepository struct {
	pool *db.Pool
}

func NewBlockRepository(pool *db.Pool) *BlockRepository {
	return &BlockRepository{pool: pool}
}

func (r *BlockRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// Insert persists the block and its calendar hold in one transaction; the
// hold shares the exclusion constraint with appointments, so a block can
// never overlap either kind.
func (r *BlockRepository) Insert(ctx context.Context, tx pgx.Tx, b *model.CalendarBlock) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO calendar_blocks (location_id, worker_id, day, start_minute, end_minute, note)
		VALUES ($1, $2, $3::date, $4, $5, $6)
		RETURNING id::text
	`, b.LocationID, b.WorkerID, b.Day, b.StartMinute, b.EndMinute, b.Note).Scan(&id)
	if err != nil {
		return "", err
	}
	if err := insertHold(ctx, tx, b.WorkerID, b.Day, b.StartMinute, b.EndMinute, holdSourceBlock, id); err != nil {
		return "", err
	}
	return id, nil
}

// Create wraps Insert in its own transaction for callers that have no other
// writes to bundle. Blocks emit no outbox events; nobody is notified about a
// worker's own break.
func (r *BlockRepository) Create(ctx context.Context, b *model.CalendarBlock) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id, err := r.Insert(ctx, tx, b)
	if err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

// Update moves or renames a block. The hold is replaced inside the same
// transaction, so shrinking then conflicting with a concurrent insert rolls
// everything back.
func (r *BlockRepository) Update(ctx context.Context, b *model.CalendarBlock) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE calendar_blocks
		SET day = $3::date, start_minute = $4, end_minute = $5, note = $6
		WHERE id = $1 AND location_id = $2
	`, b.ID, b.LocationID, b.Day, b.StartMinute, b.EndMinute, b.Note)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	if err := releaseHold(ctx, tx, holdSourceBlock, b.ID); err != nil {
		return err
	}
	if err := insertHold(ctx, tx, b.WorkerID, b.Day, b.StartMinute, b.EndMinute, holdSourceBlock, b.ID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *BlockRepository) Delete(ctx context.Context, locationID, blockID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		DELETE FROM calendar_blocks WHERE id = $1 AND location_id = $2
	`, blockID, locationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	if err := releaseHold(ctx, tx, holdSourceBlock, blockID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// OccupiedIntervals returns the (start, end) pairs of all blocks for the
// worker and day.
func (r *BlockRepository) OccupiedIntervals(ctx context.Context, locationID, workerID, day string) ([]schedule.Interval, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT start_minute, end_minute
		FROM calendar_blocks
		WHERE location_id = $1 AND worker_id = $2 AND day = $3::date
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

func (r *BlockRepository) ListDay(ctx context.Context, locationID, workerID, day string) ([]model.CalendarBlock, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, location_id::text, worker_id::text, day::text,
			start_minute, end_minute, note, created_at
		FROM calendar_blocks
		WHERE location_id = $1 AND worker_id = $2 AND day = $3::date
		ORDER BY start_minute ASC
	`, locationID, workerID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.CalendarBlock
	for rows.Next() {
		var b model.CalendarBlock
		if err := rows.Scan(&b.ID, &b.LocationID, &b.WorkerID, &b.Day,
			&b.StartMinute, &b.EndMinute, &b.Note, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
