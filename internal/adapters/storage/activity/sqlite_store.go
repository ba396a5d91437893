package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"rollcall/internal/adapters/storage"
	"rollcall/internal/domain/attendance"
)

// SQLiteStore implements Store using SQLite. Records live in activity_record and
// each attendance map entry is one activity_attendance row.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new SQLiteStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const recordColumns = "id, activity, day_ids, specific_dates, verified_class, verified_class_no, verified_name, sex, raw_phone, location, time"

// List retrieves every record with its attendance history.
// PRE: none
// POST: Returns records ordered by id
func (s *SQLiteStore) List(ctx context.Context) ([]attendance.Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+recordColumns+" FROM activity_record ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []attendance.Record
	index := make(map[string]int)
	for rows.Next() {
		r, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		index[r.ID] = len(records)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	marks, err := s.db.QueryContext(ctx, "SELECT record_id, date, status FROM activity_attendance")
	if err != nil {
		return nil, err
	}
	defer marks.Close()
	for marks.Next() {
		var id, date, status string
		if err := marks.Scan(&id, &date, &status); err != nil {
			return nil, err
		}
		i, ok := index[id]
		if !ok {
			continue
		}
		if records[i].Attendance == nil {
			records[i].Attendance = make(map[string]attendance.Status)
		}
		records[i].Attendance[date] = attendance.Status(status)
	}
	return records, marks.Err()
}

// GetByID retrieves one record with its attendance history.
// PRE: id is non-empty
// POST: Returns the record or ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (attendance.Record, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM activity_record WHERE id = ?", id)
	r, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return attendance.Record{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return attendance.Record{}, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT date, status FROM activity_attendance WHERE record_id = ?", id)
	if err != nil {
		return attendance.Record{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var date, status string
		if err := rows.Scan(&date, &status); err != nil {
			return attendance.Record{}, err
		}
		if r.Attendance == nil {
			r.Attendance = make(map[string]attendance.Status)
		}
		r.Attendance[date] = attendance.Status(status)
	}
	return r, rows.Err()
}

// Save upserts a record's identity and schedule fields.
// PRE: r has been validated
// POST: Record row is inserted or updated; attendance rows are untouched
func (s *SQLiteStore) Save(ctx context.Context, r attendance.Record) error {
	dayIDs, err := json.Marshal(nonNilInts(r.DayIDs))
	if err != nil {
		return err
	}
	dates, err := json.Marshal(nonNilStrings(r.SpecificDates))
	if err != nil {
		return err
	}

	cols := strings.Split(recordColumns, ", ")
	updates := make([]string, 0, len(cols)-1)
	for _, c := range cols[1:] {
		updates = append(updates, c+"=excluded."+c)
	}
	query := fmt.Sprintf(
		"INSERT INTO activity_record (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		recordColumns,
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
		strings.Join(updates, ", "),
	)
	_, err = s.db.ExecContext(ctx, query,
		r.ID, r.Activity, string(dayIDs), string(dates),
		r.VerifiedClass, r.VerifiedClassNo, r.VerifiedName, r.Sex, r.RawPhone,
		r.Location, r.Time,
	)
	return err
}

// Delete removes a record and, by cascade, its attendance history.
// PRE: id is non-empty
// POST: Record with given id is removed
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM activity_record WHERE id = ?", id)
	return err
}

// ApplyAttendance writes every entry for date in a single transaction.
// PRE: entries is non-empty; statuses are valid
// POST: All marks are visible together, or none are
func (s *SQLiteStore) ApplyAttendance(ctx context.Context, date string, entries []attendance.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range entries {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM activity_record WHERE id = ?", e.RecordID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", e.RecordID, ErrNotFound)
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO activity_attendance (record_id, date, status) VALUES (?, ?, ?) ON CONFLICT(record_id, date) DO UPDATE SET status=excluded.status",
			e.RecordID, date, string(e.Status),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// scanRecord extracts a Record from a row scanner function.
func scanRecord(scan func(dest ...any) error) (attendance.Record, error) {
	var r attendance.Record
	var dayIDs, dates string
	if err := scan(
		&r.ID, &r.Activity, &dayIDs, &dates,
		&r.VerifiedClass, &r.VerifiedClassNo, &r.VerifiedName, &r.Sex, &r.RawPhone,
		&r.Location, &r.Time,
	); err != nil {
		return attendance.Record{}, err
	}
	if err := json.Unmarshal([]byte(dayIDs), &r.DayIDs); err != nil {
		return attendance.Record{}, fmt.Errorf("record %s day_ids: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(dates), &r.SpecificDates); err != nil {
		return attendance.Record{}, fmt.Errorf("record %s specific_dates: %w", r.ID, err)
	}
	return r, nil
}

func nonNilInts(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
