package attendance_test

import (
	"errors"
	"testing"
	"time"

	"rollcall/internal/domain/attendance"
)

// TestRecord_Validate tests validation of attendance records.
func TestRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		record  attendance.Record
		wantErr error
	}{
		{
			name:   "valid weekly record",
			record: attendance.Record{ID: "r1", Activity: "Choir", DayIDs: []int{1, 3}},
		},
		{
			name:   "valid dated record",
			record: attendance.Record{ID: "r1", Activity: "Choir", SpecificDates: []string{"2024-01-05"}},
		},
		{
			name:    "empty id",
			record:  attendance.Record{Activity: "Choir"},
			wantErr: attendance.ErrEmptyID,
		},
		{
			name:    "empty activity",
			record:  attendance.Record{ID: "r1"},
			wantErr: attendance.ErrEmptyActivity,
		},
		{
			name:    "day id out of range",
			record:  attendance.Record{ID: "r1", Activity: "Choir", DayIDs: []int{7}},
			wantErr: attendance.ErrInvalidDayID,
		},
		{
			name:    "malformed date",
			record:  attendance.Record{ID: "r1", Activity: "Choir", SpecificDates: []string{"05/01/2024"}},
			wantErr: attendance.ErrInvalidDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestRecord_ScheduledOn covers the weekly rule and the explicit-date override.
// 2024-01-05 is a Friday (day 5).
func TestRecord_ScheduledOn(t *testing.T) {
	tests := []struct {
		name   string
		record attendance.Record
		date   string
		want   bool
	}{
		{"weekly match", attendance.Record{DayIDs: []int{5}}, "2024-01-05", true},
		{"weekly miss", attendance.Record{DayIDs: []int{1, 2}}, "2024-01-05", false},
		{"specific match", attendance.Record{SpecificDates: []string{"2024-01-05"}}, "2024-01-05", true},
		{"specific overrides weekday", attendance.Record{DayIDs: []int{5}, SpecificDates: []string{"2024-01-06"}}, "2024-01-05", false},
		{"no schedule", attendance.Record{}, "2024-01-05", false},
		{"bad date", attendance.Record{DayIDs: []int{5}}, "not-a-date", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.ScheduledOn(tt.date); got != tt.want {
				t.Errorf("ScheduledOn(%q) = %v, want %v", tt.date, got, tt.want)
			}
		})
	}
}

// TestRecord_Clone verifies the copy does not share the attendance map.
func TestRecord_Clone(t *testing.T) {
	orig := attendance.Record{ID: "r1", DayIDs: []int{1}, Attendance: map[string]attendance.Status{"2024-01-05": attendance.StatusPresent}}
	cp := orig.Clone()
	cp.Attendance["2024-01-05"] = attendance.StatusAbsent
	cp.DayIDs[0] = 4

	if orig.Attendance["2024-01-05"] != attendance.StatusPresent {
		t.Error("clone mutated original attendance map")
	}
	if orig.DayIDs[0] != 1 {
		t.Error("clone mutated original day ids")
	}
}

// TestToday verifies the date key honours the configured location.
func TestToday(t *testing.T) {
	hk := time.FixedZone("HKT", 8*3600)
	now := time.Date(2024, 1, 4, 17, 30, 0, 0, time.UTC)
	if got := attendance.Today(now, hk); got != "2024-01-05" {
		t.Errorf("Today() = %q, want 2024-01-05", got)
	}
	if got := attendance.Today(now, time.UTC); got != "2024-01-04" {
		t.Errorf("Today() = %q, want 2024-01-04", got)
	}
}

// TestParseStatus accepts every member and rejects anything else.
func TestParseStatus(t *testing.T) {
	for _, s := range attendance.Statuses {
		got, err := attendance.ParseStatus(string(s))
		if err != nil || got != s {
			t.Errorf("ParseStatus(%q) = %q, %v", s, got, err)
		}
	}
	if _, err := attendance.ParseStatus("PRESENT"); !errors.Is(err, attendance.ErrInvalidStatus) {
		t.Errorf("ParseStatus(PRESENT) error = %v, want ErrInvalidStatus", err)
	}
}

// TestLegend pins the legend order and keeps the late/leave symbol clash visible.
func TestLegend(t *testing.T) {
	want := []attendance.LegendEntry{
		{Symbol: "✓", Label: "出席"},
		{Symbol: "L", Label: "遲到"},
		{Symbol: "A", Label: "缺席"},
		{Symbol: "S", Label: "病假"},
		{Symbol: "L", Label: "事假"},
		{Symbol: "?", Label: "未知"},
	}
	got := attendance.Legend()
	if len(got) != len(want) {
		t.Fatalf("Legend() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Legend()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
	if attendance.StatusLate.Symbol() != attendance.StatusLeave.Symbol() {
		t.Error("late and leave are expected to share a symbol")
	}
	if attendance.Status("bogus").Symbol() != "" {
		t.Error("unknown values should have no symbol")
	}
}
