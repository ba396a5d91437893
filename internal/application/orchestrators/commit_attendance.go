package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"rollcall/internal/domain/attendance"
)

// ErrEmptyDraft is returned when a save is attempted with no marks in the draft.
var ErrEmptyDraft = errors.New("no attendance marks to save")

// CommitFailedError reports that the store rejected the batched write.
// Nothing was persisted and the draft is still valid for a retry.
type CommitFailedError struct {
	Cause error
}

func (e *CommitFailedError) Error() string {
	return "attendance commit failed: " + e.Cause.Error()
}

func (e *CommitFailedError) Unwrap() error {
	return e.Cause
}

// AttendanceWriter applies a batch of marks atomically.
type AttendanceWriter interface {
	ApplyAttendance(ctx context.Context, date string, entries []attendance.Entry) error
}

// CommitAttendanceInput carries the draft to persist.
type CommitAttendanceInput struct {
	Activity string
	Draft    *attendance.Draft
}

// CommitAttendanceDeps holds dependencies for CommitAttendance.
type CommitAttendanceDeps struct {
	Store   AttendanceWriter
	Refresh func(ctx context.Context) error
}

// CommitAttendanceResult summarizes a successful commit.
type CommitAttendanceResult struct {
	Date    string
	Written int
}

// ExecuteCommitAttendance persists every draft mark as attendance[draft date] in one transaction.
// PRE: Draft was opened for the sheet's date
// POST: On success all marks are stored and a new snapshot is published;
//
//	on failure nothing is stored and the draft is unchanged
//
// INVARIANT: Exactly the draft's keys are written; re-committing the same draft is a no-op change
func ExecuteCommitAttendance(ctx context.Context, input CommitAttendanceInput, deps CommitAttendanceDeps) (CommitAttendanceResult, error) {
	if input.Draft == nil || input.Draft.Len() == 0 {
		return CommitAttendanceResult{}, ErrEmptyDraft
	}

	date := input.Draft.Date()
	entries := input.Draft.Entries()
	if err := deps.Store.ApplyAttendance(ctx, date, entries); err != nil {
		slog.Error("attendance_event", "event", "commit_failed", "activity", input.Activity, "date", date, "entries", len(entries), "error", err)
		return CommitAttendanceResult{}, &CommitFailedError{Cause: err}
	}

	slog.Info("attendance_event", "event", "draft_committed", "activity", input.Activity, "date", date, "entries", len(entries))
	refreshAfterWrite(ctx, deps.Refresh, "commit_attendance")
	return CommitAttendanceResult{Date: date, Written: len(entries)}, nil
}
