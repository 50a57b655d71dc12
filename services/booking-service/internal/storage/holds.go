package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Hold sources. One hold row exists per live appointment or block; the
// exclusion constraint on calendar_holds is the authoritative overlap guard
// for both kinds at once.
const (
	holdSourceAppointment = "appointment"
	holdSourceBlock       = "block"
)

func insertHold(ctx context.Context, tx pgx.Tx, workerID, day string, startMinute, endMinute int, source, sourceID string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO calendar_holds (worker_id, day, during, source, source_id)
		VALUES ($1, $2::date, int4range($3, $4), $5, $6)
	`, workerID, day, startMinute, endMinute, source, sourceID)
	return err
}

func releaseHold(ctx context.Context, tx pgx.Tx, source, sourceID string) error {
	_, err := tx.Exec(ctx, `
		DELETE FROM calendar_holds WHERE source = $1 AND source_id = $2
	`, source, sourceID)
	return err
}
