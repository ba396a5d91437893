package orchestrators

import (
	"errors"
	"log/slog"

	"rollcall/internal/domain/activityconfig"
)

// ErrWrongActivityPassword is returned when the passcode does not unlock the activity.
var ErrWrongActivityPassword = errors.New("wrong activity password")

// ActivityConfigSource looks up an activity's settings. snapshot.Snapshot satisfies it.
type ActivityConfigSource interface {
	Config(activity string) (activityconfig.Config, bool)
}

// UnlockActivityInput carries the passcode attempt.
type UnlockActivityInput struct {
	Activity string
	Password string
}

// UnlockActivityDeps holds dependencies for UnlockActivity.
type UnlockActivityDeps struct {
	Configs ActivityConfigSource
}

// ExecuteUnlockActivity checks a passcode against the activity's config.
// PRE: Activity is non-empty
// POST: Returns nil only when a config exists and its passcode equals Password
// INVARIANT: No state is written; there is no lock-out on repeated failures
func ExecuteUnlockActivity(input UnlockActivityInput, deps UnlockActivityDeps) error {
	cfg, ok := deps.Configs.Config(input.Activity)
	if !ok || !cfg.Matches(input.Password) {
		slog.Info("attendance_event", "event", "unlock_failed", "activity", input.Activity, "configured", ok)
		return ErrWrongActivityPassword
	}
	slog.Info("attendance_event", "event", "unlock_success", "activity", input.Activity)
	return nil
}
