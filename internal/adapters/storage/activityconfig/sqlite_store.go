package activityconfig

import (
	"context"
	"database/sql"
	"errors"

	"rollcall/internal/adapters/storage"
	domain "rollcall/internal/domain/activityconfig"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new SQLiteStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// List retrieves every activity config.
// PRE: none
// POST: Returns configs ordered by activity
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Config, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT activity, password FROM activity_config ORDER BY activity")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Config
	for rows.Next() {
		var c domain.Config
		if err := rows.Scan(&c.Activity, &c.Password); err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// Get retrieves the config for activity.
// PRE: activity is non-empty
// POST: ok is false and err nil when no config exists
func (s *SQLiteStore) Get(ctx context.Context, activity string) (domain.Config, bool, error) {
	var c domain.Config
	err := s.db.QueryRowContext(ctx, "SELECT activity, password FROM activity_config WHERE activity = ?", activity).
		Scan(&c.Activity, &c.Password)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Config{}, false, nil
	}
	if err != nil {
		return domain.Config{}, false, err
	}
	return c, true, nil
}

// Save upserts the passcode for an activity.
// PRE: c.Password has been validated
// POST: Config row exists with c.Password
func (s *SQLiteStore) Save(ctx context.Context, c domain.Config) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO activity_config (activity, password) VALUES (?, ?) ON CONFLICT(activity) DO UPDATE SET password=excluded.password",
		c.Activity, c.Password,
	)
	return err
}
