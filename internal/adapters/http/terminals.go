package web

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"rollcall/internal/adapters/http/middleware"
	"rollcall/internal/domain/view"
)

const terminalCookieName = "rollcall_terminal"

// terminalIdleTimeout drops machines for browsers that have gone away.
const terminalIdleTimeout = 12 * time.Hour

// terminal is one browser's view state. mu serializes its transitions.
type terminal struct {
	mu       sync.Mutex
	machine  *view.Machine
	lastSeen time.Time
}

type terminalStore struct {
	mu        sync.Mutex
	terminals map[string]*terminal
	now       func() time.Time
	lastSweep time.Time
}

func newTerminalStore(now func() time.Time) *terminalStore {
	return &terminalStore{
		terminals: make(map[string]*terminal),
		now:       now,
		lastSweep: now(),
	}
}

// acquire returns the caller's terminal, creating one and setting the cookie
// when the request carries no known terminal id.
func (ts *terminalStore) acquire(w http.ResponseWriter, r *http.Request) *terminal {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	now := ts.now()
	if now.Sub(ts.lastSweep) > time.Hour {
		ts.sweepLocked(now)
	}

	if c, err := r.Cookie(terminalCookieName); err == nil {
		if t, ok := ts.terminals[c.Value]; ok {
			t.lastSeen = now
			return t
		}
	}

	id := uuid.NewString()
	t := &terminal{machine: view.New(), lastSeen: now}
	ts.terminals[id] = t
	http.SetCookie(w, &http.Cookie{
		Name:     terminalCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   middleware.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
	slog.Debug("terminal_event", "event", "terminal_created", "terminals", len(ts.terminals))
	return t
}

func (ts *terminalStore) sweepLocked(now time.Time) {
	ts.lastSweep = now
	for id, t := range ts.terminals {
		if now.Sub(t.lastSeen) > terminalIdleTimeout {
			delete(ts.terminals, id)
		}
	}
}

func (ts *terminalStore) len() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.terminals)
}
