package web

import (
	"log/slog"
	"net/http"
	"slices"

	"rollcall/internal/application/orchestrators"
	"rollcall/internal/domain/attendance"
	"rollcall/internal/domain/view"
)

// handleTodaysActivities handles GET /api/activities
func (s *server) handleTodaysActivities(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.latest(w)
	if !ok {
		return
	}
	today := s.today()
	writeJSON(w, http.StatusOK, map[string]any{
		"date":       today,
		"version":    snap.Version,
		"activities": s.projector.TodaysActivities(snap, today),
	})
}

// scheduledToday replies 404 unless activity runs today.
func (s *server) scheduledToday(w http.ResponseWriter, activities []string, activity string) bool {
	if !slices.Contains(activities, activity) {
		writeJSONError(w, http.StatusNotFound, "activity is not scheduled today")
		return false
	}
	return true
}

// handleSelectActivity handles POST /api/activities/{name}/select
func (s *server) handleSelectActivity(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	snap, ok := s.latest(w)
	if !ok {
		return
	}
	if !s.scheduledToday(w, s.projector.TodaysActivities(snap, s.today()), name) {
		return
	}

	t := s.terminals.acquire(w, r)
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.machine.Select(name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.buildView(r, t, snap))
}

// handleClearSelection handles DELETE /api/activities/selection
func (s *server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	t := s.terminals.acquire(w, r)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.machine.ClearSelection()
	w.WriteHeader(http.StatusNoContent)
}

// handleUnlockActivity handles POST /api/activities/{name}/unlock.
// The passcode is checked against the latest snapshot's config; on success the
// sheet opens with today's date fixed for both seeding and commit.
func (s *server) handleUnlockActivity(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var body struct {
		Password string `json:"password"`
	}
	if err := strictDecode(r, &body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	snap, ok := s.latest(w)
	if !ok {
		return
	}

	t := s.terminals.acquire(w, r)
	t.mu.Lock()
	defer t.mu.Unlock()

	m := t.machine
	if m.State() != view.StateActivityList {
		writeError(w, view.ErrInvalidTransition)
		return
	}
	if sel, ok := m.Selected(); !ok || sel != name {
		writeError(w, view.ErrNoSelection)
		return
	}
	today := s.today()
	if !s.scheduledToday(w, s.projector.TodaysActivities(snap, today), name) {
		return
	}

	err := orchestrators.ExecuteUnlockActivity(
		orchestrators.UnlockActivityInput{Activity: name, Password: body.Password},
		orchestrators.UnlockActivityDeps{Configs: snap},
	)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := m.OpenSheet(name, today, s.projector.Roster(snap, name)); err != nil {
		writeError(w, err)
		return
	}
	sheet, _ := m.Sheet()
	slog.Info("attendance_event", "event", "sheet_opened", "activity", name, "date", today, "seeded", sheet.Draft.Len())
	writeJSON(w, http.StatusOK, s.buildView(r, t, snap))
}

// handleGetSheet handles GET /api/sheet
func (s *server) handleGetSheet(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.latest(w)
	if !ok {
		return
	}
	t := s.terminals.acquire(w, r)
	t.mu.Lock()
	defer t.mu.Unlock()

	sheet, ok := t.machine.Sheet()
	if !ok {
		writeError(w, view.ErrInvalidTransition)
		return
	}
	writeJSON(w, http.StatusOK, s.buildSheet(snap, sheet))
}

// handleMark handles PUT /api/sheet/marks/{id}
func (s *server) handleMark(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var body struct {
		Status string `json:"status"`
	}
	if err := strictDecode(r, &body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	status, err := attendance.ParseStatus(body.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	t := s.terminals.acquire(w, r)
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.machine.Mark(id, status); err != nil {
		writeError(w, err)
		return
	}
	sheet, _ := t.machine.Sheet()
	writeJSON(w, http.StatusOK, map[string]any{
		"id":     id,
		"status": status,
		"marked": sheet.Draft.Len(),
	})
}

// handleSaveSheet handles POST /api/sheet/save.
// The terminal lock is released while the store commits so the client can keep
// polling; the machine's saving flag rejects a second save meanwhile.
func (s *server) handleSaveSheet(w http.ResponseWriter, r *http.Request) {
	t := s.terminals.acquire(w, r)

	t.mu.Lock()
	sheet, err := t.machine.BeginSave()
	t.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := orchestrators.ExecuteCommitAttendance(r.Context(),
		orchestrators.CommitAttendanceInput{Activity: sheet.Activity, Draft: sheet.Draft},
		orchestrators.CommitAttendanceDeps{Store: s.deps.Records, Refresh: s.deps.Refresh},
	)

	t.mu.Lock()
	finishErr := t.machine.FinishSave(err == nil)
	t.mu.Unlock()
	if finishErr != nil {
		slog.Warn("attendance_event", "event", "finish_save_failed", "error", finishErr)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"activity": sheet.Activity,
		"date":     result.Date,
		"written":  result.Written,
	})
}

// handleCancelSheet handles POST /api/sheet/cancel
func (s *server) handleCancelSheet(w http.ResponseWriter, r *http.Request) {
	t := s.terminals.acquire(w, r)
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.machine.LeaveSheet(); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
