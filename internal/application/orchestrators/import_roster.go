package orchestrators

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	activityStore "rollcall/internal/adapters/storage/activity"
	"rollcall/internal/domain/attendance"
)

// RosterStoreForImport defines the store interface needed by ImportRoster.
type RosterStoreForImport interface {
	List(ctx context.Context) ([]attendance.Record, error)
	GetByID(ctx context.Context, id string) (attendance.Record, error)
	Save(ctx context.Context, r attendance.Record) error
}

// ImportRosterInput carries the CSV stream and import options.
type ImportRosterInput struct {
	Reader         io.Reader
	AdminAccountID string
	DryRun         bool
	UpdateMode     bool
}

// ImportRosterResult holds aggregate counts and per-row errors from an import run.
type ImportRosterResult struct {
	Total   int              `json:"total"`
	Created int              `json:"created"`
	Updated int              `json:"updated"`
	Skipped int              `json:"skipped"`
	Errors  []ImportRowError `json:"errors"`
	DryRun  bool             `json:"dryRun"`
	Unknown []string         `json:"unknownColumns,omitempty"`
}

// ImportRowError describes a validation or processing error for a single CSV row.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportRosterDeps holds external dependencies for the import orchestrator.
type ImportRosterDeps struct {
	Store      RosterStoreForImport
	GenerateID func() string
	Refresh    func(ctx context.Context) error
}

// ImportValidationError is returned when the CSV structure is invalid.
type ImportValidationError struct {
	Message string
}

func (e *ImportValidationError) Error() string {
	return e.Message
}

var rosterColumns = []string{"ID", "ACTIVITY", "DAYIDS", "SPECIFICDATES", "CLASS", "CLASSNO", "NAME", "SEX", "PHONE", "LOCATION", "TIME"}

// ExecuteImportRoster parses a roster CSV and creates or updates attendance records.
// PRE: Reader holds a CSV with a header row including ACTIVITY and NAME
// POST: Records are created/updated/skipped per DryRun and UpdateMode; counts and
//
//	per-row errors are returned
//
// INVARIANT: Attendance history is never written; DryRun performs no writes
// INVARIANT: A row without ID matches an existing student of the same activity
//
//	by class and class number (by name when either is blank)
func ExecuteImportRoster(ctx context.Context, input ImportRosterInput, deps ImportRosterDeps) (ImportRosterResult, error) {
	// Spreadsheet exports may start with a UTF-8 BOM or be UTF-16 with one.
	cr := csv.NewReader(transform.NewReader(input.Reader, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return ImportRosterResult{}, &ImportValidationError{Message: "CSV is empty"}
	}
	if err != nil {
		return ImportRosterResult{}, &ImportValidationError{Message: "unreadable CSV header: " + err.Error()}
	}

	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[strings.ToUpper(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"ACTIVITY", "NAME"} {
		if _, ok := colIdx[required]; !ok {
			return ImportRosterResult{}, &ImportValidationError{Message: "CSV missing required column: " + required}
		}
	}

	knownCols := make(map[string]bool, len(rosterColumns))
	for _, c := range rosterColumns {
		knownCols[c] = true
	}
	result := ImportRosterResult{DryRun: input.DryRun}
	for _, h := range header {
		if !knownCols[strings.ToUpper(strings.TrimSpace(h))] {
			result.Unknown = append(result.Unknown, h)
		}
	}

	getCol := func(row []string, col string) string {
		i, ok := colIdx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	// known maps natural keys to record ids; loaded on the first row without an ID.
	var known map[string]string
	rowNum := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			result.Total++
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: "malformed row: " + err.Error()})
			continue
		}
		result.Total++

		dayIDs, err := parseDayIDs(getCol(row, "DAYIDS"))
		if err != nil {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: err.Error()})
			continue
		}
		rec := attendance.Record{
			ID:              getCol(row, "ID"),
			Activity:        getCol(row, "ACTIVITY"),
			DayIDs:          dayIDs,
			SpecificDates:   splitList(getCol(row, "SPECIFICDATES")),
			VerifiedClass:   getCol(row, "CLASS"),
			VerifiedClassNo: getCol(row, "CLASSNO"),
			VerifiedName:    getCol(row, "NAME"),
			Sex:             getCol(row, "SEX"),
			RawPhone:        getCol(row, "PHONE"),
			Location:        getCol(row, "LOCATION"),
			Time:            getCol(row, "TIME"),
		}
		if rec.VerifiedName == "" {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: "name is required"})
			continue
		}

		exists := false
		if rec.ID != "" {
			_, lookupErr := deps.Store.GetByID(ctx, rec.ID)
			switch {
			case lookupErr == nil:
				exists = true
			case !errors.Is(lookupErr, activityStore.ErrNotFound):
				slog.Error("roster_import_lookup_failed", "row", rowNum, "id", rec.ID, "err", lookupErr)
				result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: "lookup failed (see server log)"})
				continue
			}
		} else {
			if known == nil {
				if known, err = loadNaturalKeys(ctx, deps.Store); err != nil {
					return ImportRosterResult{}, err
				}
			}
			if id, ok := known[naturalKey(rec)]; ok {
				rec.ID = id
				exists = true
			} else {
				rec.ID = deps.GenerateID()
			}
		}

		if err := rec.Validate(); err != nil {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: err.Error()})
			continue
		}
		if exists && !input.UpdateMode {
			result.Skipped++
			continue
		}

		if !input.DryRun {
			if err := deps.Store.Save(ctx, rec); err != nil {
				slog.Error("roster_import_save_failed", "row", rowNum, "id", rec.ID, "err", err)
				result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: "save failed (see server log)"})
				continue
			}
		}
		if exists {
			result.Updated++
		} else {
			result.Created++
			if known != nil {
				known[naturalKey(rec)] = rec.ID
			}
		}
	}

	slog.Info("roster_import",
		"admin", input.AdminAccountID,
		"dry_run", input.DryRun,
		"update_mode", input.UpdateMode,
		"total", result.Total,
		"created", result.Created,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
	)

	if !input.DryRun && result.Created+result.Updated > 0 {
		refreshAfterWrite(ctx, deps.Refresh, "import_roster")
	}
	return result, nil
}

// naturalKey identifies a student within an activity when the CSV has no ID:
// class and class number when both are given, otherwise the name.
func naturalKey(r attendance.Record) string {
	if r.VerifiedClass != "" && r.VerifiedClassNo != "" {
		return r.Activity + "\x00" + r.VerifiedClass + "\x00" + r.VerifiedClassNo
	}
	return r.Activity + "\x00\x00\x00" + r.VerifiedName
}

func loadNaturalKeys(ctx context.Context, store RosterStoreForImport) (map[string]string, error) {
	records, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load roster for matching: %w", err)
	}
	known := make(map[string]string, len(records))
	for _, r := range records {
		known[naturalKey(r)] = r.ID
	}
	return known, nil
}

// splitList splits a ';'-separated cell, dropping blanks.
func splitList(cell string) []string {
	var out []string
	for _, part := range strings.Split(cell, ";") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDayIDs(cell string) ([]int, error) {
	parts := splitList(cell)
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid day id %q", p)
		}
		ids = append(ids, n)
	}
	return ids, nil
}
