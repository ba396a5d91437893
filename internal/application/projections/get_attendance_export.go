package projections

import (
	"bytes"
	"errors"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"rollcall/internal/domain/attendance"
)

// ErrNoStudents is returned when an export is requested for an activity without records.
var ErrNoStudents = errors.New("no students found for this activity")

var exportStudentHeaders = []string{"班別", "學號", "姓名", "性別", "電話"}

const (
	exportMonthLabel = "月"
	exportDayLabel   = "日"
)

// AttendanceExport is a rendered CSV ready for download.
type AttendanceExport struct {
	Filename string
	Content  []byte // UTF-8 with a leading byte-order mark
	Students int
	Dates    []string
}

// ExportFilename returns the download name for an activity's sheet.
func ExportFilename(activity string) string {
	return activity + "_出席總表.csv"
}

// QueryGetAttendanceExport renders the full attendance history of activity as a
// calendar grid: title block, month and day header rows, one row per student in
// roster order, then a legend.
// PRE: none
// POST: Returns ErrNoStudents when no record belongs to activity
// INVARIANT: Every field is double-quoted; embedded quotes are doubled
func QueryGetAttendanceExport(activity string, records []attendance.Record) (AttendanceExport, error) {
	roster := QueryGetRoster(records, activity)
	if len(roster) == 0 {
		return AttendanceExport{}, ErrNoStudents
	}

	// First record in input order describes the activity.
	var location, when string
	for _, r := range records {
		if r.Activity == activity {
			location, when = r.Location, r.Time
			break
		}
	}

	dates := collectDates(roster)

	var body strings.Builder
	writeRow(&body, activity+" 出席總表")
	writeRow(&body, "地點：", location)
	writeRow(&body, "時間：", when)

	monthRow := append(append([]string{}, exportStudentHeaders...), exportMonthLabel)
	dayRow := append(make([]string, len(exportStudentHeaders)), exportDayLabel)
	lastMonth := ""
	for _, d := range dates {
		yearMonth, month, day := splitDate(d)
		if yearMonth != lastMonth {
			monthRow = append(monthRow, month)
			lastMonth = yearMonth
		} else {
			monthRow = append(monthRow, "")
		}
		dayRow = append(dayRow, day)
	}
	writeRow(&body, monthRow...)
	writeRow(&body, dayRow...)

	for _, r := range roster {
		row := []string{r.VerifiedClass, r.VerifiedClassNo, r.VerifiedName, r.Sex, r.RawPhone, ""}
		for _, d := range dates {
			s, _ := r.StatusOn(d)
			row = append(row, s.Symbol())
		}
		writeRow(&body, row...)
	}

	body.WriteString("\n")
	for _, e := range attendance.Legend() {
		writeRow(&body, e.Symbol, e.Label)
	}

	content, err := withBOM(body.String())
	if err != nil {
		return AttendanceExport{}, err
	}
	return AttendanceExport{
		Filename: ExportFilename(activity),
		Content:  content,
		Students: len(roster),
		Dates:    dates,
	}, nil
}

// collectDates returns every date key recorded for any roster member, sorted.
func collectDates(roster []attendance.Record) []string {
	seen := make(map[string]bool)
	var dates []string
	for _, r := range roster {
		for d := range r.Attendance {
			if !seen[d] {
				seen[d] = true
				dates = append(dates, d)
			}
		}
	}
	sort.Strings(dates)
	return dates
}

// splitDate breaks YYYY-MM-DD into its year-month prefix and unpadded month and day.
// Keys that do not parse are passed through as the day so the column is still labelled.
func splitDate(d string) (yearMonth, month, day string) {
	parts := strings.Split(d, "-")
	if len(parts) != 3 {
		return d, "", d
	}
	m, errM := strconv.Atoi(parts[1])
	dd, errD := strconv.Atoi(parts[2])
	if errM != nil || errD != nil {
		return d, "", d
	}
	return parts[0] + "-" + parts[1], strconv.Itoa(m), strconv.Itoa(dd)
}

// writeRow appends one CSV line with every field quoted.
// encoding/csv only quotes when needed, so quoting is done here.
func writeRow(b *strings.Builder, fields ...string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
}

// withBOM encodes s as UTF-8 with a leading byte-order mark.
func withBOM(s string) ([]byte, error) {
	var buf bytes.Buffer
	w := transform.NewWriter(&buf, unicode.UTF8BOM.NewEncoder())
	if _, err := w.Write([]byte(s)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
