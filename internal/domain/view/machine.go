// Package view models the screen a terminal is on as an explicit state machine.
// Data that belongs to a state (the pending activity selection, the open
// attendance sheet) lives only while the machine is in that state.
package view

import (
	"errors"
	"fmt"
	"slices"

	"rollcall/internal/domain/attendance"
)

// State names a screen.
type State string

// State constants
const (
	StateActivityList    State = "activity_list"
	StateAttendanceSheet State = "attendance_sheet"
	StateAdminLogin      State = "admin_login"
	StateAdminConsole    State = "admin_console"
)

// Domain errors
var (
	ErrInvalidTransition = errors.New("transition not allowed from current view")
	ErrNoSelection       = errors.New("no activity selected")
	ErrSaveInFlight      = errors.New("a save is already in progress")
	ErrNotOnRoster       = errors.New("record is not on this activity's roster")
)

var transitions = map[State][]State{
	StateActivityList:    {StateAttendanceSheet, StateAdminLogin},
	StateAttendanceSheet: {StateActivityList},
	StateAdminLogin:      {StateActivityList, StateAdminConsole},
	StateAdminConsole:    {StateActivityList, StateAdminLogin},
}

// Sheet is the open attendance session. It exists only in StateAttendanceSheet.
type Sheet struct {
	Activity string
	Date     string
	Draft    *attendance.Draft
	members  map[string]bool
	saving   bool
}

// Saving reports whether a commit for this sheet is outstanding.
func (s *Sheet) Saving() bool { return s.saving }

// Machine tracks one terminal's current screen. It is not safe for concurrent use.
type Machine struct {
	state    State
	selected string
	sheet    *Sheet
}

// New returns a machine on the activity list.
func New() *Machine {
	return &Machine{state: StateActivityList}
}

// State returns the current screen.
func (m *Machine) State() State { return m.state }

func (m *Machine) moveTo(to State) error {
	if !slices.Contains(transitions[m.state], to) {
		return fmt.Errorf("%s -> %s: %w", m.state, to, ErrInvalidTransition)
	}
	m.state = to
	m.selected = ""
	m.sheet = nil
	return nil
}

// Selected returns the activity awaiting its passcode, if any.
func (m *Machine) Selected() (string, bool) {
	return m.selected, m.selected != ""
}

// Select records the activity the user picked from the list.
// PRE: state is ActivityList
// POST: Selected() returns activity
func (m *Machine) Select(activity string) error {
	if m.state != StateActivityList {
		return fmt.Errorf("select in %s: %w", m.state, ErrInvalidTransition)
	}
	m.selected = activity
	return nil
}

// ClearSelection dismisses the passcode prompt.
func (m *Machine) ClearSelection() {
	if m.state == StateActivityList {
		m.selected = ""
	}
}

// OpenSheet enters the attendance sheet for the selected activity with a draft
// seeded from roster marks on date.
// PRE: state is ActivityList and activity is the current selection
// POST: state is AttendanceSheet with a fresh draft
func (m *Machine) OpenSheet(activity, date string, roster []attendance.Record) error {
	if m.state == StateActivityList && m.selected != activity {
		return ErrNoSelection
	}
	if err := m.moveTo(StateAttendanceSheet); err != nil {
		return err
	}
	members := make(map[string]bool, len(roster))
	for _, r := range roster {
		members[r.ID] = true
	}
	m.sheet = &Sheet{
		Activity: activity,
		Date:     date,
		Draft:    attendance.OpenDraft(roster, date),
		members:  members,
	}
	return nil
}

// Sheet returns the open sheet, or false outside StateAttendanceSheet.
func (m *Machine) Sheet() (*Sheet, bool) {
	return m.sheet, m.sheet != nil
}

// Mark sets a draft status for one roster member.
// PRE: state is AttendanceSheet, no save outstanding
// POST: draft holds status for recordID
func (m *Machine) Mark(recordID string, status attendance.Status) error {
	if m.sheet == nil {
		return fmt.Errorf("mark in %s: %w", m.state, ErrInvalidTransition)
	}
	if m.sheet.saving {
		return ErrSaveInFlight
	}
	if !m.sheet.members[recordID] {
		return ErrNotOnRoster
	}
	m.sheet.Draft.Set(recordID, status)
	return nil
}

// BeginSave flags the sheet as saving and returns it.
// PRE: state is AttendanceSheet, no save outstanding
// POST: Saving() is true until FinishSave
func (m *Machine) BeginSave() (*Sheet, error) {
	if m.sheet == nil {
		return nil, fmt.Errorf("save in %s: %w", m.state, ErrInvalidTransition)
	}
	if m.sheet.saving {
		return nil, ErrSaveInFlight
	}
	m.sheet.saving = true
	return m.sheet, nil
}

// FinishSave ends an outstanding save. On success the sheet closes and the
// terminal returns to the activity list; on failure the draft is kept.
func (m *Machine) FinishSave(committed bool) error {
	if m.sheet == nil || !m.sheet.saving {
		return fmt.Errorf("finish save in %s: %w", m.state, ErrInvalidTransition)
	}
	if !committed {
		m.sheet.saving = false
		return nil
	}
	return m.moveTo(StateActivityList)
}

// LeaveSheet discards the draft and returns to the activity list.
func (m *Machine) LeaveSheet() error {
	if m.sheet != nil && m.sheet.saving {
		return ErrSaveInFlight
	}
	if m.state != StateAttendanceSheet {
		return fmt.Errorf("leave sheet in %s: %w", m.state, ErrInvalidTransition)
	}
	return m.moveTo(StateActivityList)
}

// EnterAdminLogin moves from the activity list to the admin sign-in screen.
func (m *Machine) EnterAdminLogin() error {
	return m.moveTo(StateAdminLogin)
}

// BackToList leaves the admin sign-in screen without signing in.
func (m *Machine) BackToList() error {
	if m.state != StateAdminLogin {
		return fmt.Errorf("back in %s: %w", m.state, ErrInvalidTransition)
	}
	return m.moveTo(StateActivityList)
}

// SignedIn moves from the sign-in screen to the console.
func (m *Machine) SignedIn() error {
	if m.state == StateAdminConsole {
		return nil
	}
	return m.moveTo(StateAdminConsole)
}

// SignedOut returns an admin screen to the activity list.
func (m *Machine) SignedOut() error {
	switch m.state {
	case StateAdminConsole, StateAdminLogin:
		return m.moveTo(StateActivityList)
	}
	return nil
}

// SessionLost sends the console back to sign-in when the admin session disappears.
func (m *Machine) SessionLost() {
	if m.state == StateAdminConsole {
		_ = m.moveTo(StateAdminLogin)
	}
}
