package web

import (
	"context"
	"net/http"
	"time"

	"rollcall/internal/adapters/email"
	"rollcall/internal/adapters/feed"
	"rollcall/internal/adapters/http/middleware"
	"rollcall/internal/adapters/http/perf"
	accountStore "rollcall/internal/adapters/storage/account"
	activityStore "rollcall/internal/adapters/storage/activity"
	activityConfigStore "rollcall/internal/adapters/storage/activityconfig"
	"rollcall/internal/application/projections"
)

// Deps holds everything the HTTP layer needs.
type Deps struct {
	Accounts accountStore.Store
	Records  activityStore.Store
	Configs  activityConfigStore.Store
	Hub      *feed.Hub
	// Refresh reloads both collections and publishes a new snapshot.
	Refresh func(ctx context.Context) error

	Sender       email.Sender
	EmailFrom    string
	EmailReplyTo string

	Location *time.Location
	Now      func() time.Time

	CSRFKey            []byte
	TrustedOrigins     []string
	RateLimitPerSecond int
	SlowRequestMs      int
	Collector          *perf.Collector

	// Sessions defaults to a fresh in-memory store.
	Sessions *middleware.SessionStore
}

type server struct {
	deps      Deps
	sessions  *middleware.SessionStore
	terminals *terminalStore
	projector *projections.Projector
	help      []byte
}

// NewMux wires HTTP handlers for the app.
func NewMux(deps Deps) (http.Handler, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.Sessions == nil {
		deps.Sessions = middleware.NewSessionStore()
	}
	if deps.RateLimitPerSecond <= 0 {
		deps.RateLimitPerSecond = 20
	}

	help, err := renderHelp()
	if err != nil {
		return nil, err
	}

	s := &server{
		deps:      deps,
		sessions:  deps.Sessions,
		terminals: newTerminalStore(deps.Now),
		projector: projections.NewProjector(),
		help:      help,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	limiter := middleware.NewRateLimiter(deps.RateLimitPerSecond, time.Second)

	// Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(deps.CSRFKey, deps.TrustedOrigins),
		middleware.Auth(s.sessions),
		middleware.RateLimit(limiter),
		middleware.Timing(deps.Collector, deps.SlowRequestMs),
	), nil
}

func (s *server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /help", s.handleHelp)
	mux.HandleFunc("GET /api/csrf", s.handleCSRFToken)

	// Terminal flow
	mux.HandleFunc("GET /api/view", s.handleView)
	mux.HandleFunc("GET /api/activities", s.handleTodaysActivities)
	mux.HandleFunc("POST /api/activities/{name}/select", s.handleSelectActivity)
	mux.HandleFunc("DELETE /api/activities/selection", s.handleClearSelection)
	mux.HandleFunc("POST /api/activities/{name}/unlock", s.handleUnlockActivity)
	mux.HandleFunc("GET /api/sheet", s.handleGetSheet)
	mux.HandleFunc("PUT /api/sheet/marks/{id}", s.handleMark)
	mux.HandleFunc("POST /api/sheet/save", s.handleSaveSheet)
	mux.HandleFunc("POST /api/sheet/cancel", s.handleCancelSheet)
	mux.HandleFunc("GET /api/events", s.handleEvents)

	// Admin
	mux.HandleFunc("POST /api/admin/enter", s.handleAdminEnter)
	mux.HandleFunc("POST /api/admin/back", s.handleAdminBack)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("GET /api/admin/overview", s.handleAdminOverview)
	mux.HandleFunc("GET /api/admin/activities", s.handleAdminActivities)
	mux.HandleFunc("PUT /api/admin/activities/{name}/password", s.handleSetActivityPassword)
	mux.HandleFunc("GET /api/admin/activities/{name}/export", s.handleExport)
	mux.HandleFunc("POST /api/admin/activities/{name}/export/email", s.handleEmailExport)
	mux.HandleFunc("POST /api/admin/roster/import", s.handleImportRoster)
	mux.HandleFunc("GET /api/admin/perf", s.handlePerf)
}
