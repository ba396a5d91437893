package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"rollcall/internal/domain/activityconfig"
	"rollcall/internal/domain/attendance"
	"rollcall/internal/domain/snapshot"
)

// RecordLister loads every attendance record.
type RecordLister interface {
	List(ctx context.Context) ([]attendance.Record, error)
}

// ConfigLister loads every activity config.
type ConfigLister interface {
	List(ctx context.Context) ([]activityconfig.Config, error)
}

// SnapshotPublisher receives each new snapshot.
type SnapshotPublisher interface {
	Publish(s snapshot.Snapshot) bool
}

// SnapshotRefresher reloads both collections and publishes numbered snapshots.
// Refreshes are serialized so a later version never carries older data.
type SnapshotRefresher struct {
	Records   RecordLister
	Configs   ConfigLister
	Publisher SnapshotPublisher
	Now       func() time.Time

	mu      sync.Mutex
	version uint64
}

// ExecuteRefreshSnapshot loads records and configs and publishes them as the next version.
// PRE: Records, Configs and Publisher are set
// POST: On success the publisher holds a snapshot newer than any previous one
func (r *SnapshotRefresher) ExecuteRefreshSnapshot(ctx context.Context) (snapshot.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.Records.List(ctx)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("load records: %w", err)
	}
	configs, err := r.Configs.List(ctx)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("load activity configs: %w", err)
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	r.version++
	s := snapshot.New(r.version, now(), records, configs)
	r.Publisher.Publish(s)
	slog.Debug("feed_event", "event", "snapshot_published", "version", s.Version, "records", len(s.Records), "configs", len(s.Configs))
	return s, nil
}

// Refresh is ExecuteRefreshSnapshot without the snapshot, for use as a post-write hook.
func (r *SnapshotRefresher) Refresh(ctx context.Context) error {
	_, err := r.ExecuteRefreshSnapshot(ctx)
	return err
}

// refreshAfterWrite runs a post-write refresh. A failed refresh is logged and
// does not undo the write; the next refresh catches up.
func refreshAfterWrite(ctx context.Context, refresh func(context.Context) error, op string) {
	if refresh == nil {
		return
	}
	if err := refresh(ctx); err != nil {
		slog.Error("feed_event", "event", "refresh_failed", "after", op, "error", err)
	}
}
