package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/slotline/slotline/libs/db"
	"github.com/slotline/slotline/services/booking-service/internal/model"
)

type StaffRepository struct {
	pool *db.Pool
}

func NewStaffRepository(pool *db.Pool) *StaffRepository {
	return &StaffRepository{pool: pool}
}

// GetByEmail returns (nil, nil) when no active staff user matches.
func (r *StaffRepository) GetByEmail(ctx context.Context, email string) (*model.StaffUser, error) {
	var u model.StaffUser
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, location_id::text, email, password_hash, role, is_active
		FROM staff_users
		WHERE email = $1 AND is_active = true
	`, email).Scan(&u.ID, &u.LocationID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *StaffRepository) Create(ctx context.Context, u *model.StaffUser) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO staff_users (location_id, email, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, true)
		RETURNING id::text
	`, u.LocationID, u.Email, u.PasswordHash, u.Role).Scan(&id)
	return id, err
}
