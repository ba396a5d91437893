package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"rollcall/internal/domain/activityconfig"
)

// ErrInvalidConfigPassword is returned when a new passcode is not exactly 4 digits.
var ErrInvalidConfigPassword = errors.New("activity password must be exactly 4 digits")

// ErrEmptyActivityName is returned when no activity is named.
var ErrEmptyActivityName = errors.New("activity name is required")

// ActivityConfigWriter stores activity settings.
type ActivityConfigWriter interface {
	Save(ctx context.Context, c activityconfig.Config) error
}

// SaveActivityPasswordInput carries the new passcode.
type SaveActivityPasswordInput struct {
	Activity  string
	Password  string
	ChangedBy string
}

// SaveActivityPasswordDeps holds dependencies for SaveActivityPassword.
type SaveActivityPasswordDeps struct {
	Store   ActivityConfigWriter
	Refresh func(ctx context.Context) error
}

// ExecuteSaveActivityPassword sets an activity's passcode.
// PRE: caller is a signed-in admin
// POST: Config holds Password; invalid input writes nothing
func ExecuteSaveActivityPassword(ctx context.Context, input SaveActivityPasswordInput, deps SaveActivityPasswordDeps) error {
	if input.Activity == "" {
		return ErrEmptyActivityName
	}
	if err := activityconfig.ValidatePassword(input.Password); err != nil {
		return ErrInvalidConfigPassword
	}

	if err := deps.Store.Save(ctx, activityconfig.Config{Activity: input.Activity, Password: input.Password}); err != nil {
		return err
	}

	slog.Info("admin_event", "event", "activity_password_set", "activity", input.Activity, "by", input.ChangedBy)
	refreshAfterWrite(ctx, deps.Refresh, "save_activity_password")
	return nil
}
