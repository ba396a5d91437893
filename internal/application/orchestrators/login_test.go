package orchestrators

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"rollcall/internal/domain/account"
)

// mockAccountStore implements the account store interfaces for testing.
type mockAccountStore struct {
	accounts map[string]account.Account
	saves    int
}

func newMockAccountStore() *mockAccountStore {
	return &mockAccountStore{accounts: make(map[string]account.Account)}
}

// GetByEmail implements AccountStoreForLogin.
// PRE: email is non-empty
// POST: returns the account or an error if not found
func (m *mockAccountStore) GetByEmail(_ context.Context, email string) (account.Account, error) {
	a, ok := m.accounts[strings.ToLower(email)]
	if !ok {
		return account.Account{}, errors.New("not found")
	}
	return a, nil
}

// Save implements AccountStoreForLogin.
// PRE: a is valid
// POST: a is stored by email
func (m *mockAccountStore) Save(_ context.Context, a account.Account) error {
	m.saves++
	m.accounts[strings.ToLower(a.Email)] = a
	return nil
}

// Count implements AccountStoreForCreate.
func (m *mockAccountStore) Count(_ context.Context) (int, error) {
	return len(m.accounts), nil
}

const testAdminPassword = "correct horse battery"

func seededStore(t *testing.T) *mockAccountStore {
	t.Helper()
	store := newMockAccountStore()
	if _, err := ExecuteCreateAccount(context.Background(), CreateAccountInput{
		Email: "admin@school.example", Password: testAdminPassword, Role: account.RoleAdmin,
	}, CreateAccountDeps{AccountStore: store}); err != nil {
		t.Fatalf("create: %v", err)
	}
	return store
}

// TestExecuteLogin_Success verifies valid credentials return the account.
// PRE: seeded admin
// POST: result carries id, email and role
func TestExecuteLogin_Success(t *testing.T) {
	store := seededStore(t)
	res, err := ExecuteLogin(context.Background(), LoginInput{Email: "Admin@School.example ", Password: testAdminPassword}, LoginDeps{AccountStore: store, Now: fixedNow})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Role != account.RoleAdmin || res.AccountID == "" {
		t.Errorf("result = %+v", res)
	}
}

func TestExecuteLogin_InvalidCredentials(t *testing.T) {
	store := seededStore(t)
	tests := []struct {
		name  string
		input LoginInput
	}{
		{"empty email", LoginInput{Password: testAdminPassword}},
		{"empty password", LoginInput{Email: "admin@school.example"}},
		{"unknown email", LoginInput{Email: "who@school.example", Password: testAdminPassword}},
		{"wrong password", LoginInput{Email: "admin@school.example", Password: "wrong password!"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExecuteLogin(context.Background(), tt.input, LoginDeps{AccountStore: store, Now: fixedNow})
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("err = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

// TestExecuteLogin_LockoutAndExpiry verifies five failures lock the account until the deadline.
// PRE: seeded admin
// POST: sixth attempt locked even with the right password; after 15 minutes login succeeds and resets the counter
func TestExecuteLogin_LockoutAndExpiry(t *testing.T) {
	store := seededStore(t)
	now := fixedNow()
	deps := LoginDeps{AccountStore: store, Now: func() time.Time { return now }}

	for i := 0; i < account.MaxFailedLogins; i++ {
		if _, err := ExecuteLogin(context.Background(), LoginInput{Email: "admin@school.example", Password: "nope nope nope"}, deps); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: err = %v", i+1, err)
		}
	}
	if _, err := ExecuteLogin(context.Background(), LoginInput{Email: "admin@school.example", Password: testAdminPassword}, deps); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("err = %v, want ErrAccountLocked", err)
	}

	now = now.Add(account.LockoutDuration)
	if _, err := ExecuteLogin(context.Background(), LoginInput{Email: "admin@school.example", Password: testAdminPassword}, deps); err != nil {
		t.Fatalf("after lockout: %v", err)
	}
	acct := store.accounts["admin@school.example"]
	if acct.FailedLogins != 0 || !acct.LockedUntil.IsZero() {
		t.Errorf("counter not reset: %+v", acct)
	}
}

func TestExecuteCreateAccount_DuplicateEmail(t *testing.T) {
	store := seededStore(t)
	_, err := ExecuteCreateAccount(context.Background(), CreateAccountInput{
		Email: "ADMIN@school.example", Password: testAdminPassword, Role: account.RoleStaff,
	}, CreateAccountDeps{AccountStore: store})
	if !errors.Is(err, ErrEmailAlreadyExists) {
		t.Errorf("err = %v", err)
	}
}

func TestExecuteSeedAdmin(t *testing.T) {
	store := newMockAccountStore()
	deps := CreateAccountDeps{AccountStore: store}

	created, err := ExecuteSeedAdmin(context.Background(), deps, "admin@school.example", testAdminPassword)
	if err != nil || !created {
		t.Fatalf("first seed: created=%v err=%v", created, err)
	}
	created, err = ExecuteSeedAdmin(context.Background(), deps, "other@school.example", testAdminPassword)
	if err != nil || created {
		t.Fatalf("second seed: created=%v err=%v", created, err)
	}
	if len(store.accounts) != 1 {
		t.Errorf("accounts = %d", len(store.accounts))
	}
}

func TestExecuteSeedAdmin_ShortPassword(t *testing.T) {
	_, err := ExecuteSeedAdmin(context.Background(), CreateAccountDeps{AccountStore: newMockAccountStore()}, "admin@school.example", "short")
	if !errors.Is(err, account.ErrPasswordTooShort) {
		t.Errorf("err = %v", err)
	}
}
