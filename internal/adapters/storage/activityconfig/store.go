package activityconfig

import (
	"context"

	domain "rollcall/internal/domain/activityconfig"
)

// Store persists per-activity settings (the "activity_configs" collection).
type Store interface {
	List(ctx context.Context) ([]domain.Config, error)
	// Get returns the config for activity; ok is false when none exists.
	Get(ctx context.Context, activity string) (domain.Config, bool, error)
	// Save creates the config or replaces its password, leaving any other stored fields alone.
	Save(ctx context.Context, c domain.Config) error
}
