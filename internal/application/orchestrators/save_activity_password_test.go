package orchestrators

import (
	"context"
	"errors"
	"testing"

	"rollcall/internal/domain/activityconfig"
)

// mockConfigWriter records saved configs.
type mockConfigWriter struct {
	saved []activityconfig.Config
}

// Save implements ActivityConfigWriter.
// PRE: c.Password is valid
// POST: c is appended to saved
func (m *mockConfigWriter) Save(_ context.Context, c activityconfig.Config) error {
	m.saved = append(m.saved, c)
	return nil
}

func TestExecuteSaveActivityPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"four digits", "0420", nil},
		{"three digits", "123", ErrInvalidConfigPassword},
		{"five digits", "12345", ErrInvalidConfigPassword},
		{"letters", "12a4", ErrInvalidConfigPassword},
		{"full-width digits", "１２３４", ErrInvalidConfigPassword},
		{"empty", "", ErrInvalidConfigPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockConfigWriter{}
			refreshes := 0
			err := ExecuteSaveActivityPassword(context.Background(),
				SaveActivityPasswordInput{Activity: "Chess", Password: tt.password, ChangedBy: "admin"},
				SaveActivityPasswordDeps{Store: store, Refresh: func(context.Context) error { refreshes++; return nil }},
			)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				if len(store.saved) != 0 || refreshes != 0 {
					t.Errorf("invalid password caused a write: %v", store.saved)
				}
				return
			}
			if len(store.saved) != 1 || store.saved[0] != (activityconfig.Config{Activity: "Chess", Password: tt.password}) {
				t.Errorf("saved = %v", store.saved)
			}
			if refreshes != 1 {
				t.Errorf("refreshes = %d", refreshes)
			}
		})
	}
}

func TestExecuteSaveActivityPassword_RequiresActivity(t *testing.T) {
	err := ExecuteSaveActivityPassword(context.Background(), SaveActivityPasswordInput{Password: "1234"}, SaveActivityPasswordDeps{Store: &mockConfigWriter{}})
	if !errors.Is(err, ErrEmptyActivityName) {
		t.Errorf("err = %v", err)
	}
}
