package snapshot_test

import (
	"testing"
	"time"

	"rollcall/internal/domain/activityconfig"
	"rollcall/internal/domain/attendance"
	"rollcall/internal/domain/snapshot"
)

// TestNew_CopiesInputs verifies later edits to the source slices do not reach the snapshot.
func TestNew_CopiesInputs(t *testing.T) {
	records := []attendance.Record{{ID: "a", Activity: "Choir", Attendance: map[string]attendance.Status{"2024-01-05": attendance.StatusPresent}}}
	configs := []activityconfig.Config{{Activity: "Choir", Password: "1234"}}

	s := snapshot.New(3, time.Now(), records, configs)
	records[0].Attendance["2024-01-05"] = attendance.StatusAbsent
	records[0].ID = "changed"

	if s.Version != 3 {
		t.Errorf("Version = %d", s.Version)
	}
	if s.Records[0].ID != "a" || s.Records[0].Attendance["2024-01-05"] != attendance.StatusPresent {
		t.Errorf("snapshot record mutated: %+v", s.Records[0])
	}
	c, ok := s.Config("Choir")
	if !ok || c.Password != "1234" {
		t.Errorf("Config(Choir) = %+v, %v", c, ok)
	}
	if _, ok := s.Config("Band"); ok {
		t.Error("Config(Band) should be missing")
	}
}
