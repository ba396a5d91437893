package projections

import (
	"testing"

	"rollcall/internal/domain/attendance"
)

// 2024-01-05 is a Friday.
const friday = "2024-01-05"

func rec(id, activity string, days []int, dates []string) attendance.Record {
	return attendance.Record{ID: id, Activity: activity, DayIDs: days, SpecificDates: dates}
}

// TestQueryGetTodaysActivities_WeeklyAndSpecific verifies both scheduling rules and dedupe.
// PRE: records for four activities, two scheduled today by different rules
// POST: sorted unique names for the two scheduled activities
func TestQueryGetTodaysActivities_WeeklyAndSpecific(t *testing.T) {
	records := []attendance.Record{
		rec("1", "Orchestra", []int{5}, nil),
		rec("2", "Orchestra", []int{5}, nil),
		rec("3", "Chess", nil, []string{friday}),
		rec("4", "Art", []int{1}, nil),
		rec("5", "Drama", []int{5}, []string{"2024-01-12"}),
	}

	got := QueryGetTodaysActivities(records, friday)
	want := []string{"Chess", "Orchestra"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

// TestQueryGetTodaysActivities_AnyRecordQualifies verifies one matching record is enough.
func TestQueryGetTodaysActivities_AnyRecordQualifies(t *testing.T) {
	records := []attendance.Record{
		rec("1", "Choir", []int{2}, nil),
		rec("2", "Choir", nil, []string{friday}),
	}
	got := QueryGetTodaysActivities(records, friday)
	if len(got) != 1 || got[0] != "Choir" {
		t.Errorf("got %v, want [Choir]", got)
	}
}

// TestQueryGetTodaysActivities_Empty returns nil for no matches.
func TestQueryGetTodaysActivities_Empty(t *testing.T) {
	if got := QueryGetTodaysActivities(nil, friday); len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}

// TestQueryGetRoster_LocaleOrderAndStability verifies collation order and that ties keep input order.
// PRE: mixed-case class names and two records with an identical class key
// POST: "1a" sorts before "1B" (byte order would reverse them); tied records keep input order
func TestQueryGetRoster_LocaleOrderAndStability(t *testing.T) {
	records := []attendance.Record{
		{ID: "x", Activity: "Choir", VerifiedClass: "1B", VerifiedClassNo: "01"},
		{ID: "dup1", Activity: "Choir", VerifiedClass: "1a", VerifiedClassNo: "02"},
		{ID: "other", Activity: "Band", VerifiedClass: "1a", VerifiedClassNo: "01"},
		{ID: "y", Activity: "Choir", VerifiedClass: "1a", VerifiedClassNo: "01"},
		{ID: "dup2", Activity: "Choir", VerifiedClass: "1a", VerifiedClassNo: "02"},
	}

	got := QueryGetRoster(records, "Choir")
	want := []string{"y", "dup1", "dup2", "x"}
	if len(got) != len(want) {
		t.Fatalf("roster len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("roster[%d] = %s, want %s", i, got[i].ID, want[i])
		}
	}
	if records[0].ID != "x" {
		t.Error("input slice was reordered")
	}
}

// TestQueryGetActivityNames returns every distinct name.
func TestQueryGetActivityNames(t *testing.T) {
	records := []attendance.Record{rec("1", "b", nil, nil), rec("2", "a", nil, nil), rec("3", "b", nil, nil)}
	got := QueryGetActivityNames(records)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("got %v", got)
	}
}
