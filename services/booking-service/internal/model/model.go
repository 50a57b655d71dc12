// Package model holds the booking-service entities. Times inside the service
// are minutes since midnight; HH:mm and YYYY-MM-DD strings exist only at the
// HTTP boundary.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

type ShiftType string

const (
	ShiftMorning   ShiftType = "morning"
	ShiftAfternoon ShiftType = "afternoon"
	ShiftOff       ShiftType = "off"
)

func (s ShiftType) Valid() bool {
	return s == ShiftMorning || s == ShiftAfternoon || s == ShiftOff
}

type Location struct {
	ID               string
	Name             string
	IsActive         bool
	MaxActiveWorkers int
	CreatedAt        time.Time
}

// ShiftSettings is the per-location shift window configuration, one row per
// location. All fields are minutes since midnight.
type ShiftSettings struct {
	LocationID     string
	WorkStart      int
	WorkEnd        int
	MorningStart   int
	MorningEnd     int
	AfternoonStart int
	AfternoonEnd   int
}

type Worker struct {
	ID         string
	LocationID string
	Name       string
	IsActive   bool
	CreatedAt  time.Time
}

// WorkerShift assigns a shift type to a worker for one day. Absence of a row
// means the worker is off.
type WorkerShift struct {
	WorkerID string
	Day      string // YYYY-MM-DD
	Type     ShiftType
}

type Service struct {
	ID         string
	LocationID string
	Name       string
	IsActive   bool
}

// WorkerService is a service as offered by one worker: its duration and price
// belong to the pair, not the catalog entry.
type WorkerService struct {
	ID              string
	WorkerID        string
	ServiceID       string
	ServiceName     string
	DurationMinutes int
	Price           decimal.Decimal
	IsActive        bool
	ServiceActive   bool
}

type Client struct {
	ID    string
	Name  string
	Email string
	Phone string
}

// Appointment snapshots the worker-service name/duration/price at booking
// time so later catalog edits never rewrite history.
type Appointment struct {
	ID              string
	LocationID      string
	WorkerID        string
	ClientID        string
	WorkerServiceID string
	ServiceName     string
	ServiceDuration int
	ServicePrice    decimal.Decimal
	Day             string // YYYY-MM-DD
	StartMinute     int
	EndMinute       int
	Status          AppointmentStatus
	CancelledAt     *time.Time
	CancelledBy     string
	CancelReason    string
	CreatedAt       time.Time
}

// CalendarBlock is a manually reserved interval with no client: a break, a
// walk-in hold, personal time.
type CalendarBlock struct {
	ID          string
	LocationID  string
	WorkerID    string
	Day         string // YYYY-MM-DD
	StartMinute int
	EndMinute   int
	Note        string
	CreatedAt   time.Time
}

type StaffUser struct {
	ID           string
	LocationID   string
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
}
