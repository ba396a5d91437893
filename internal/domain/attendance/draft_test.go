package attendance_test

import (
	"testing"

	"rollcall/internal/domain/attendance"
)

func rosterFixture() []attendance.Record {
	return []attendance.Record{
		{ID: "a", Attendance: map[string]attendance.Status{"2024-01-05": attendance.StatusPresent, "2024-01-04": attendance.StatusSick}},
		{ID: "b", Attendance: map[string]attendance.Status{"2024-01-04": attendance.StatusLate}},
		{ID: "c"},
		{ID: "d", Attendance: map[string]attendance.Status{"2024-01-05": attendance.StatusUnknown}},
	}
}

// TestOpenDraft_SeedsOnlyRecordedMembers verifies members without a mark for the date stay out.
// PRE: roster with two members marked on 2024-01-05
// POST: draft has exactly those two keys with the persisted values
func TestOpenDraft_SeedsOnlyRecordedMembers(t *testing.T) {
	d := attendance.OpenDraft(rosterFixture(), "2024-01-05")

	if d.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", d.Len())
	}
	if s, ok := d.Get("a"); !ok || s != attendance.StatusPresent {
		t.Errorf("Get(a) = %q, %v", s, ok)
	}
	if s, ok := d.Get("d"); !ok || s != attendance.StatusUnknown {
		t.Errorf("Get(d) = %q, %v", s, ok)
	}
	for _, id := range []string{"b", "c"} {
		if _, ok := d.Get(id); ok {
			t.Errorf("Get(%s) present, want absent", id)
		}
	}
	if d.Date() != "2024-01-05" {
		t.Errorf("Date() = %q", d.Date())
	}
}

// TestDraft_SetRoundTrip verifies every status reads back unchanged.
func TestDraft_SetRoundTrip(t *testing.T) {
	d := attendance.OpenDraft(nil, "2024-01-05")
	for _, s := range attendance.Statuses {
		d.Set("x", s)
		if got, ok := d.Get("x"); !ok || got != s {
			t.Errorf("Set/Get(%q) = %q, %v", s, got, ok)
		}
	}
	if d.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after overwrites", d.Len())
	}
}

// TestDraft_SetInvalidPanics treats an out-of-enumeration status as a programming error.
func TestDraft_SetInvalidPanics(t *testing.T) {
	d := attendance.OpenDraft(nil, "2024-01-05")
	defer func() {
		if recover() == nil {
			t.Error("expected panic for invalid status")
		}
	}()
	d.Set("x", attendance.Status("tardy"))
}

// TestDraft_EntriesSortedAndIsolated verifies Entries order and that Marks is a copy.
func TestDraft_EntriesSortedAndIsolated(t *testing.T) {
	d := attendance.OpenDraft(nil, "2024-01-05")
	d.Set("z", attendance.StatusAbsent)
	d.Set("m", attendance.StatusLeave)

	entries := d.Entries()
	if len(entries) != 2 || entries[0].RecordID != "m" || entries[1].RecordID != "z" {
		t.Errorf("Entries() = %+v", entries)
	}

	marks := d.Marks()
	marks["m"] = attendance.StatusPresent
	if s, _ := d.Get("m"); s != attendance.StatusLeave {
		t.Error("Marks() should return a copy")
	}
}

// TestOpenDraft_FreshPerSession verifies edits on one draft never leak into a reopened one.
func TestOpenDraft_FreshPerSession(t *testing.T) {
	roster := rosterFixture()
	first := attendance.OpenDraft(roster, "2024-01-05")
	first.Set("c", attendance.StatusAbsent)

	second := attendance.OpenDraft(roster, "2024-01-05")
	if _, ok := second.Get("c"); ok {
		t.Error("reopened draft carried over an uncommitted edit")
	}
}
