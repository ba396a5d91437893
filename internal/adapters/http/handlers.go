package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"

	"rollcall/internal/adapters/http/middleware"
	"rollcall/internal/application/orchestrators"
	"rollcall/internal/application/projections"
	"rollcall/internal/domain/attendance"
	"rollcall/internal/domain/snapshot"
	"rollcall/internal/domain/view"
)

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	writeJSONError(w, http.StatusInternalServerError, "internal server error")
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response_encode_failed", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps domain and orchestrator errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var commitErr *orchestrators.CommitFailedError
	var importErr *orchestrators.ImportValidationError
	switch {
	case errors.Is(err, orchestrators.ErrInvalidCredentials):
		writeJSONError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, orchestrators.ErrAccountLocked):
		writeJSONError(w, http.StatusLocked, err.Error())
	case errors.Is(err, orchestrators.ErrWrongActivityPassword):
		writeJSONError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, orchestrators.ErrInvalidConfigPassword),
		errors.Is(err, orchestrators.ErrEmptyActivityName),
		errors.Is(err, orchestrators.ErrInvalidRecipient),
		errors.Is(err, attendance.ErrInvalidStatus):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &importErr):
		writeJSONError(w, http.StatusBadRequest, importErr.Message)
	case errors.Is(err, orchestrators.ErrEmptyDraft):
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &commitErr):
		writeJSONError(w, http.StatusBadGateway, "attendance could not be saved, please try again")
	case errors.Is(err, orchestrators.ErrSendFailed):
		writeJSONError(w, http.StatusBadGateway, orchestrators.ErrSendFailed.Error())
	case errors.Is(err, projections.ErrNoStudents), errors.Is(err, view.ErrNotOnRoster):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, view.ErrInvalidTransition),
		errors.Is(err, view.ErrSaveInFlight),
		errors.Is(err, view.ErrNoSelection):
		writeJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, orchestrators.ErrNoSnapshot):
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
	default:
		internalError(w, err)
	}
}

// latest returns the current snapshot or replies 503 when none has loaded.
func (s *server) latest(w http.ResponseWriter) (snapshot.Snapshot, bool) {
	snap, ok := s.deps.Hub.Latest()
	if !ok {
		writeError(w, orchestrators.ErrNoSnapshot)
		return snapshot.Snapshot{}, false
	}
	return snap, true
}

func (s *server) today() string {
	return attendance.Today(s.deps.Now(), s.deps.Location)
}

// requireAdmin checks the session for admin role and returns the session.
// Returns false if the request should not proceed.
func requireAdmin(w http.ResponseWriter, r *http.Request) (middleware.Session, bool) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		slog.Warn("auth_denied", "path", r.URL.Path, "reason", "no session")
		writeJSONError(w, http.StatusUnauthorized, "not authenticated")
		return middleware.Session{}, false
	}
	if sess.Role != "admin" {
		slog.Warn("auth_denied", "path", r.URL.Path, "account_id", sess.AccountID, "role", sess.Role, "required", "admin")
		writeJSONError(w, http.StatusForbidden, "forbidden")
		return middleware.Session{}, false
	}
	return sess, true
}

// handleHealth handles GET /healthz
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap, loaded := s.deps.Hub.Latest()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"loaded":    loaded,
		"version":   snap.Version,
		"terminals": s.terminals.len(),
	})
}

// handleCSRFToken handles GET /api/csrf for clients posting multipart forms.
func (s *server) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"token": csrf.Token(r)})
}

type sheetRow struct {
	ID      string            `json:"id"`
	Class   string            `json:"class"`
	ClassNo string            `json:"classNo"`
	Name    string            `json:"name"`
	Sex     string            `json:"sex"`
	Status  attendance.Status `json:"status,omitempty"`
}

type statusOption struct {
	Value  attendance.Status `json:"value"`
	Label  string            `json:"label"`
	Symbol string            `json:"symbol"`
}

type sheetView struct {
	Activity string         `json:"activity"`
	Date     string         `json:"date"`
	Saving   bool           `json:"saving"`
	Marked   int            `json:"marked"`
	Rows     []sheetRow     `json:"rows"`
	Statuses []statusOption `json:"statuses"`
}

type consoleView struct {
	Email    string                           `json:"email"`
	Overview []projections.ActivityCompletion `json:"overview"`
}

type viewResponse struct {
	State      view.State   `json:"state"`
	Today      string       `json:"today"`
	Version    uint64       `json:"version"`
	Activities []string     `json:"activities,omitempty"`
	Selected   string       `json:"selected,omitempty"`
	Sheet      *sheetView   `json:"sheet,omitempty"`
	Console    *consoleView `json:"console,omitempty"`
}

// syncSession drops a console whose admin session has gone.
// PRE: t.mu is held
func syncSession(r *http.Request, t *terminal) {
	if t.machine.State() != view.StateAdminConsole {
		return
	}
	if _, ok := middleware.GetSessionFromContext(r.Context()); !ok {
		t.machine.SessionLost()
		slog.Info("auth_event", "event", "console_session_lost")
	}
}

// buildView renders the terminal's current screen.
// PRE: t.mu is held
func (s *server) buildView(r *http.Request, t *terminal, snap snapshot.Snapshot) viewResponse {
	syncSession(r, t)
	m := t.machine
	resp := viewResponse{State: m.State(), Today: s.today(), Version: snap.Version}

	switch m.State() {
	case view.StateActivityList:
		resp.Activities = s.projector.TodaysActivities(snap, resp.Today)
		resp.Selected, _ = m.Selected()
	case view.StateAttendanceSheet:
		sheet, _ := m.Sheet()
		resp.Sheet = s.buildSheet(snap, sheet)
	case view.StateAdminConsole:
		sess, _ := middleware.GetSessionFromContext(r.Context())
		resp.Console = &consoleView{
			Email:    sess.Email,
			Overview: s.projector.CompletionOverview(snap, resp.Today),
		}
	}
	return resp
}

// buildSheet lists the current roster with the draft's marks.
func (s *server) buildSheet(snap snapshot.Snapshot, sheet *view.Sheet) *sheetView {
	roster := s.projector.Roster(snap, sheet.Activity)
	marks := sheet.Draft.Marks()
	rows := make([]sheetRow, 0, len(roster))
	for _, rec := range roster {
		rows = append(rows, sheetRow{
			ID:      rec.ID,
			Class:   rec.VerifiedClass,
			ClassNo: rec.VerifiedClassNo,
			Name:    rec.VerifiedName,
			Sex:     rec.Sex,
			Status:  marks[rec.ID],
		})
	}
	options := make([]statusOption, 0, len(attendance.Statuses))
	for _, st := range attendance.Statuses {
		options = append(options, statusOption{Value: st, Label: st.Label(), Symbol: st.Symbol()})
	}
	return &sheetView{
		Activity: sheet.Activity,
		Date:     sheet.Date,
		Saving:   sheet.Saving(),
		Marked:   len(marks),
		Rows:     rows,
		Statuses: options,
	}
}

// handleView handles GET /api/view
func (s *server) handleView(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.latest(w)
	if !ok {
		return
	}
	t := s.terminals.acquire(w, r)
	t.mu.Lock()
	defer t.mu.Unlock()
	writeJSON(w, http.StatusOK, s.buildView(r, t, snap))
}
