package web

import (
	"log/slog"
	"mime"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"rollcall/internal/adapters/http/middleware"
	"rollcall/internal/application/orchestrators"
	"rollcall/internal/application/projections"
	"rollcall/internal/domain/view"
)

// maxImportBytes bounds roster uploads.
const maxImportBytes = 5 << 20

// handleAdminEnter handles POST /api/admin/enter. A terminal that already
// carries an admin session goes straight to the console.
func (s *server) handleAdminEnter(w http.ResponseWriter, r *http.Request) {
	snap, _ := s.deps.Hub.Latest()
	t := s.terminals.acquire(w, r)
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.machine.EnterAdminLogin(); err != nil {
		writeError(w, err)
		return
	}
	if middleware.IsAdmin(r.Context()) {
		if err := t.machine.SignedIn(); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, s.buildView(r, t, snap))
}

// handleAdminBack handles POST /api/admin/back
func (s *server) handleAdminBack(w http.ResponseWriter, r *http.Request) {
	snap, _ := s.deps.Hub.Latest()
	t := s.terminals.acquire(w, r)
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.machine.BackToList(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.buildView(r, t, snap))
}

// handleLogin handles POST /login with either a JSON or a form body.
func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var input orchestrators.LoginInput
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := strictDecode(r, &body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		input = orchestrators.LoginInput{Email: body.Email, Password: body.Password}
	} else {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid form submission")
			return
		}
		input = orchestrators.LoginInput{Email: r.FormValue("email"), Password: r.FormValue("password")}
	}

	result, err := orchestrators.ExecuteLogin(r.Context(), input, orchestrators.LoginDeps{
		AccountStore: s.deps.Accounts,
		Now:          s.deps.Now,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := s.sessions.Create(result.AccountID, result.Email, result.Role)
	if err != nil {
		internalError(w, err)
		return
	}
	middleware.SetSessionCookie(w, token)
	sess, _ := s.sessions.Get(token)
	r = r.WithContext(middleware.ContextWithSession(r.Context(), sess))

	snap, _ := s.deps.Hub.Latest()
	t := s.terminals.acquire(w, r)
	t.mu.Lock()
	defer t.mu.Unlock()
	m := t.machine
	if m.State() == view.StateActivityList {
		if err := m.EnterAdminLogin(); err != nil {
			slog.Warn("auth_event", "event", "console_transition_failed", "step", "enter_admin_login", "error", err)
		}
	}
	// An open sheet stays open; the session is valid either way.
	if err := m.SignedIn(); err != nil {
		slog.Warn("auth_event", "event", "console_transition_failed", "step", "signed_in", "state", m.State(), "error", err)
	}
	writeJSON(w, http.StatusOK, s.buildView(r, t, snap))
}

// handleLogout handles POST /logout
func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.SessionToken(r); token != "" {
		s.sessions.Delete(token)
	}
	middleware.ClearSessionCookie(w)
	if sess, ok := middleware.GetSessionFromContext(r.Context()); ok {
		slog.Info("auth_event", "event", "logout", "account_id", sess.AccountID)
	}

	t := s.terminals.acquire(w, r)
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.machine.SignedOut(); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAdminOverview handles GET /api/admin/overview
func (s *server) handleAdminOverview(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	snap, ok := s.latest(w)
	if !ok {
		return
	}
	today := s.today()
	writeJSON(w, http.StatusOK, map[string]any{
		"date":     today,
		"version":  snap.Version,
		"overview": s.projector.CompletionOverview(snap, today),
	})
}

type adminActivity struct {
	Name           string `json:"name"`
	Students       int    `json:"students"`
	Configured     bool   `json:"configured"`
	ScheduledToday bool   `json:"scheduledToday"`
}

// handleAdminActivities handles GET /api/admin/activities
func (s *server) handleAdminActivities(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	snap, ok := s.latest(w)
	if !ok {
		return
	}
	today := s.projector.TodaysActivities(snap, s.today())
	names := s.projector.ActivityNames(snap)
	out := make([]adminActivity, 0, len(names))
	for _, name := range names {
		_, configured := snap.Config(name)
		out = append(out, adminActivity{
			Name:           name,
			Students:       len(s.projector.Roster(snap, name)),
			Configured:     configured,
			ScheduledToday: slices.Contains(today, name),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// knownActivity replies 404 unless some record belongs to activity.
func (s *server) knownActivity(w http.ResponseWriter, activity string) bool {
	snap, ok := s.latest(w)
	if !ok {
		return false
	}
	if !slices.Contains(s.projector.ActivityNames(snap), activity) {
		writeJSONError(w, http.StatusNotFound, "unknown activity")
		return false
	}
	return true
}

// handleSetActivityPassword handles PUT /api/admin/activities/{name}/password
func (s *server) handleSetActivityPassword(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	name := r.PathValue("name")
	var body struct {
		Password string `json:"password"`
	}
	if err := strictDecode(r, &body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !s.knownActivity(w, name) {
		return
	}

	err := orchestrators.ExecuteSaveActivityPassword(r.Context(),
		orchestrators.SaveActivityPasswordInput{Activity: name, Password: body.Password, ChangedBy: sess.Email},
		orchestrators.SaveActivityPasswordDeps{Store: s.deps.Configs, Refresh: s.deps.Refresh},
	)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExport handles GET /api/admin/activities/{name}/export
func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	snap, ok := s.latest(w)
	if !ok {
		return
	}
	name := r.PathValue("name")
	export, err := projections.QueryGetAttendanceExport(name, snap.Records)
	if err != nil {
		writeError(w, err)
		return
	}

	slog.Info("admin_event", "event", "export_downloaded", "activity", name, "by", sess.Email, "students", export.Students, "dates", len(export.Dates))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": export.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(export.Content)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(export.Content); err != nil {
		slog.Warn("admin_event", "event", "export_write_failed", "error", err)
	}
}

// handleEmailExport handles POST /api/admin/activities/{name}/export/email
func (s *server) handleEmailExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	var body struct {
		To string `json:"to"`
	}
	if err := strictDecode(r, &body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	res, err := orchestrators.ExecuteEmailExport(r.Context(),
		orchestrators.EmailExportInput{Activity: r.PathValue("name"), To: body.To, RequestedBy: sess.Email},
		orchestrators.EmailExportDeps{
			Snapshots: s.deps.Hub,
			Sender:    s.deps.Sender,
			From:      s.deps.EmailFrom,
			ReplyTo:   s.deps.EmailReplyTo,
		},
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"messageId": res.MessageID,
		"sentAt":    res.SentAt,
	})
}

// handleImportRoster handles POST /api/admin/roster/import.
// Accepts a multipart upload (field "file"), a JSON body {"csv": ...}, or a raw
// text/csv body. dryRun and update may be given as query or form values.
func (s *server) handleImportRoster(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	input := orchestrators.ImportRosterInput{AdminAccountID: sess.AccountID}
	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "multipart/form-data"):
		if err := r.ParseMultipartForm(maxImportBytes); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid upload")
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "file is required")
			return
		}
		defer file.Close()
		input.Reader = file
		input.DryRun = formBool(r, "dryRun")
		input.UpdateMode = formBool(r, "update")
	case strings.HasPrefix(contentType, "application/json"):
		var body struct {
			CSV    string `json:"csv"`
			DryRun bool   `json:"dryRun"`
			Update bool   `json:"update"`
		}
		if err := strictDecode(r, &body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		input.Reader = strings.NewReader(body.CSV)
		input.DryRun = body.DryRun
		input.UpdateMode = body.Update
	default:
		input.Reader = r.Body
		input.DryRun = formBool(r, "dryRun")
		input.UpdateMode = formBool(r, "update")
	}

	result, err := orchestrators.ExecuteImportRoster(r.Context(), input, orchestrators.ImportRosterDeps{
		Store:      s.deps.Records,
		GenerateID: uuid.NewString,
		Refresh:    s.deps.Refresh,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func formBool(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.FormValue(key))
	return v
}

// handlePerf handles GET /api/admin/perf?window=15m
func (s *server) handlePerf(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	if s.deps.Collector == nil {
		writeJSONError(w, http.StatusNotFound, "timing collection is disabled")
		return
	}
	window := time.Hour
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeJSONError(w, http.StatusBadRequest, "window must be a positive duration")
			return
		}
		window = d
	}
	writeJSON(w, http.StatusOK, s.deps.Collector.Snapshot(time.Now().Add(-window), 10))
}
