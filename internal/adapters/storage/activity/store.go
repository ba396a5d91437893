package activity

import (
	"context"
	"errors"

	"rollcall/internal/domain/attendance"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("activity record not found")

// Store persists attendance records (the "activities" collection).
type Store interface {
	List(ctx context.Context) ([]attendance.Record, error)
	GetByID(ctx context.Context, id string) (attendance.Record, error)
	// Save upserts identity and schedule fields. Attendance history is never written by Save.
	Save(ctx context.Context, r attendance.Record) error
	Delete(ctx context.Context, id string) error
	// ApplyAttendance sets attendance[date] for every entry in one transaction.
	// Any unknown record id fails the whole batch with ErrNotFound and nothing is written.
	ApplyAttendance(ctx context.Context, date string, entries []attendance.Entry) error
}
