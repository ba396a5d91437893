package attendance

import (
	"fmt"
	"sort"
)

// Draft holds uncommitted marks for one open attendance sheet.
// Keys are record ids; only ids the user touched or that were already
// recorded for the session date are present.
type Draft struct {
	date    string
	entries map[string]Status
}

// Entry is a single draft mark.
type Entry struct {
	RecordID string `json:"recordId"`
	Status   Status `json:"status"`
}

// OpenDraft seeds a draft for date from roster members that already have a mark that day.
// PRE: date is a YYYY-MM-DD key
// POST: Draft contains exactly the roster ids with attendance[date] set
func OpenDraft(roster []Record, date string) *Draft {
	d := &Draft{date: date, entries: make(map[string]Status)}
	for _, r := range roster {
		if s, ok := r.StatusOn(date); ok {
			d.entries[r.ID] = s
		}
	}
	return d
}

// Date returns the session date the draft was opened for.
func (d *Draft) Date() string { return d.date }

// Set overwrites or inserts the mark for recordID.
// PRE: status is a member of the enumeration
// POST: Get(recordID) returns status
func (d *Draft) Set(recordID string, status Status) {
	if !status.Valid() {
		panic(fmt.Sprintf("attendance: invalid status %q", status))
	}
	d.entries[recordID] = status
}

// Get returns the mark for recordID, if any.
func (d *Draft) Get(recordID string) (Status, bool) {
	s, ok := d.entries[recordID]
	return s, ok
}

// Len returns the number of marks in the draft.
func (d *Draft) Len() int { return len(d.entries) }

// Entries returns the marks ordered by record id.
func (d *Draft) Entries() []Entry {
	out := make([]Entry, 0, len(d.entries))
	for id, s := range d.entries {
		out = append(out, Entry{RecordID: id, Status: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordID < out[j].RecordID })
	return out
}

// Marks returns a copy of the draft as a map.
func (d *Draft) Marks() map[string]Status {
	m := make(map[string]Status, len(d.entries))
	for k, v := range d.entries {
		m[k] = v
	}
	return m
}
