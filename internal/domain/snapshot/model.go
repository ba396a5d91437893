package snapshot

import (
	"time"

	"rollcall/internal/domain/activityconfig"
	"rollcall/internal/domain/attendance"
)

// Snapshot is an immutable copy of both collections at one version.
// Consumers must not mutate Records or Configs.
type Snapshot struct {
	Version uint64
	TakenAt time.Time
	Records []attendance.Record
	Configs map[string]activityconfig.Config
}

// New copies records and configs into a snapshot.
// PRE: version is greater than any previously published version
// POST: Returned snapshot shares no maps or slices with the inputs
func New(version uint64, takenAt time.Time, records []attendance.Record, configs []activityconfig.Config) Snapshot {
	s := Snapshot{
		Version: version,
		TakenAt: takenAt,
		Records: make([]attendance.Record, len(records)),
		Configs: make(map[string]activityconfig.Config, len(configs)),
	}
	for i, r := range records {
		s.Records[i] = r.Clone()
	}
	for _, c := range configs {
		s.Configs[c.Activity] = c
	}
	return s
}

// Config returns the settings for activity, if configured.
func (s Snapshot) Config(activity string) (activityconfig.Config, bool) {
	c, ok := s.Configs[activity]
	return c, ok
}
