package attendance

import (
	"errors"
	"fmt"
)

// Status is the attendance mark recorded for one student on one date.
type Status string

// Status constants
const (
	StatusPresent Status = "present"
	StatusLate    Status = "late"
	StatusAbsent  Status = "absent" // unexplained absence
	StatusSick    Status = "sick"
	StatusLeave   Status = "leave"
	StatusUnknown Status = "unknown"
)

// Statuses lists every status in legend order.
var Statuses = []Status{StatusPresent, StatusLate, StatusAbsent, StatusSick, StatusLeave, StatusUnknown}

// ErrInvalidStatus is returned when a value is not a member of the status enumeration.
var ErrInvalidStatus = errors.New("status must be one of: present, late, absent, sick, leave, unknown")

var statusLabels = map[Status]string{
	StatusPresent: "出席",
	StatusLate:    "遲到",
	StatusAbsent:  "缺席",
	StatusSick:    "病假",
	StatusLeave:   "事假",
	StatusUnknown: "未知",
}

// late and leave share "L". The export legend lists both rows so readers can see the clash.
var statusSymbols = map[Status]string{
	StatusPresent: "✓",
	StatusLate:    "L",
	StatusAbsent:  "A",
	StatusSick:    "S",
	StatusLeave:   "L",
	StatusUnknown: "?",
}

// ParseStatus converts a raw string into a Status.
// PRE: none
// POST: Returns the matching Status or ErrInvalidStatus
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%q: %w", raw, ErrInvalidStatus)
	}
	return s, nil
}

// Valid reports whether s is a member of the enumeration.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the display label, or "" for values outside the enumeration.
func (s Status) Label() string {
	return statusLabels[s]
}

// Symbol returns the single-character export symbol, or "" for values outside the enumeration.
func (s Status) Symbol() string {
	return statusSymbols[s]
}

// LegendEntry pairs an export symbol with its label.
type LegendEntry struct {
	Symbol string
	Label  string
}

// Legend returns the fixed export legend in status order.
func Legend() []LegendEntry {
	out := make([]LegendEntry, 0, len(Statuses))
	for _, s := range Statuses {
		out = append(out, LegendEntry{Symbol: s.Symbol(), Label: s.Label()})
	}
	return out
}
