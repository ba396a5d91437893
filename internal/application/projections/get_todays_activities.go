package projections

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"rollcall/internal/domain/attendance"
)

// QueryGetTodaysActivities returns the distinct activity names scheduled on today,
// in ascending byte order.
// PRE: today is a YYYY-MM-DD key
// POST: Result is deduplicated and sorted; records are not mutated
func QueryGetTodaysActivities(records []attendance.Record, today string) []string {
	seen := make(map[string]bool)
	var names []string
	for i := range records {
		r := &records[i]
		if seen[r.Activity] || !r.ScheduledOn(today) {
			continue
		}
		seen[r.Activity] = true
		names = append(names, r.Activity)
	}
	sort.Strings(names)
	return names
}

// QueryGetActivityNames returns every distinct activity name, sorted.
func QueryGetActivityNames(records []attendance.Record) []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range records {
		if !seen[r.Activity] {
			seen[r.Activity] = true
			names = append(names, r.Activity)
		}
	}
	sort.Strings(names)
	return names
}

// QueryGetRoster returns the records enrolled in activity, ordered by class key
// ("class-classNo") under locale-aware collation. Equal keys keep input order.
// PRE: none
// POST: Result is a new slice; records are not reordered
func QueryGetRoster(records []attendance.Record, activity string) []attendance.Record {
	var roster []attendance.Record
	for _, r := range records {
		if r.Activity == activity {
			roster = append(roster, r)
		}
	}
	sortByClassKey(roster)
	return roster
}

// sortByClassKey stable-sorts records by ClassKey using the root collation.
func sortByClassKey(records []attendance.Record) {
	keys := make([]string, len(records))
	for i := range records {
		keys[i] = records[i].ClassKey()
	}
	idx := make([]int, len(records))
	for i := range idx {
		idx[i] = i
	}
	// Collator keeps internal buffers; one per sort.
	c := collate.New(language.Und)
	sort.SliceStable(idx, func(a, b int) bool {
		return c.CompareString(keys[idx[a]], keys[idx[b]]) < 0
	})
	sorted := make([]attendance.Record, len(records))
	for i, j := range idx {
		sorted[i] = records[j]
	}
	copy(records, sorted)
}
