package attendance

import (
	"errors"
	"slices"
	"time"
)

// DateLayout is the calendar-date key format used in attendance maps.
const DateLayout = "2006-01-02"

// Domain errors
var (
	ErrEmptyID       = errors.New("record id cannot be empty")
	ErrEmptyActivity = errors.New("record activity cannot be empty")
	ErrInvalidDayID  = errors.New("day ids must be between 0 (Sunday) and 6 (Saturday)")
	ErrInvalidDate   = errors.New("dates must use YYYY-MM-DD")
)

// Record is one student's enrolment in one activity series.
// Attendance maps a YYYY-MM-DD date to the status recorded that day.
type Record struct {
	ID              string            `json:"id" bson:"_id"`
	Activity        string            `json:"activity" bson:"activity"`
	DayIDs          []int             `json:"dayIds" bson:"dayIds"`
	SpecificDates   []string          `json:"specificDates" bson:"specificDates"`
	VerifiedClass   string            `json:"verifiedClass" bson:"verifiedClass"`
	VerifiedClassNo string            `json:"verifiedClassNo" bson:"verifiedClassNo"`
	VerifiedName    string            `json:"verifiedName" bson:"verifiedName"`
	Sex             string            `json:"sex" bson:"sex"`
	RawPhone        string            `json:"rawPhone" bson:"rawPhone"`
	Location        string            `json:"location" bson:"location"`
	Time            string            `json:"time" bson:"time"`
	Attendance      map[string]Status `json:"attendance" bson:"attendance"`
}

// Validate checks if the Record has valid data.
// PRE: Record struct is populated
// POST: Returns nil if valid, error otherwise
func (r *Record) Validate() error {
	if r.ID == "" {
		return ErrEmptyID
	}
	if r.Activity == "" {
		return ErrEmptyActivity
	}
	for _, d := range r.DayIDs {
		if d < 0 || d > 6 {
			return ErrInvalidDayID
		}
	}
	for _, d := range r.SpecificDates {
		if _, err := time.Parse(DateLayout, d); err != nil {
			return ErrInvalidDate
		}
	}
	return nil
}

// ScheduledOn reports whether the record's activity runs on date.
// Explicit dates override the weekly pattern when present.
// INVARIANT: Record fields are not mutated
func (r *Record) ScheduledOn(date string) bool {
	if len(r.SpecificDates) > 0 {
		return slices.Contains(r.SpecificDates, date)
	}
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return false
	}
	return slices.Contains(r.DayIDs, int(day.Weekday()))
}

// StatusOn returns the status recorded for date, if any.
// INVARIANT: Record fields are not mutated
func (r *Record) StatusOn(date string) (Status, bool) {
	s, ok := r.Attendance[date]
	return s, ok
}

// ClassKey is the roster sort key: class, a dash, then class number.
func (r *Record) ClassKey() string {
	return r.VerifiedClass + "-" + r.VerifiedClassNo
}

// Clone returns a deep copy so snapshots can be handed out without sharing maps.
func (r Record) Clone() Record {
	r.DayIDs = slices.Clone(r.DayIDs)
	r.SpecificDates = slices.Clone(r.SpecificDates)
	if r.Attendance != nil {
		m := make(map[string]Status, len(r.Attendance))
		for k, v := range r.Attendance {
			m[k] = v
		}
		r.Attendance = m
	}
	return r
}

// Today formats now in loc as a date key.
// Callers compute it once per attendance session and reuse the value.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return now.In(loc).Format(DateLayout)
}
