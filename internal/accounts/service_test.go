package accounts_test

import (
	"context"
	"errors"
	"testing"

	"github.com/vaultline/vaultline/internal/accounts"
	"go.uber.org/zap"
)

func newService(t *testing.T) *accounts.Service {
	t.Helper()
	return accounts.NewService(accounts.NewMemoryRepository(), zap.NewNop())
}

func TestSignupLogin_roundTrip(t *testing.T) {
	svc := newService(t)

	created, err := svc.Signup(context.Background(), "alice@example.com", "password123", "Alice")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if created.SubjectID() == "" {
		t.Fatal("expected non-empty subject id")
	}
	if created.DisplayName != "Alice" {
		t.Errorf("display name = %q, want Alice", created.DisplayName)
	}

	logged, err := svc.Login(context.Background(), "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if logged.ID != created.ID {
		t.Errorf("login returned a different account: %s vs %s", logged.ID, created.ID)
	}
}

func TestSignup_defaultDisplayName(t *testing.T) {
	svc := newService(t)

	a, err := svc.Signup(context.Background(), "bob@example.com", "password123", "")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if a.DisplayName != "bob" {
		t.Errorf("display name = %q, want bob", a.DisplayName)
	}
}

func TestSignup_duplicateEmail(t *testing.T) {
	svc := newService(t)

	if _, err := svc.Signup(context.Background(), "alice@example.com", "password123", ""); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	_, err := svc.Signup(context.Background(), "alice@example.com", "password456", "")
	if !errors.Is(err, accounts.ErrDuplicateEmail) {
		t.Fatalf("err = %v, want ErrDuplicateEmail", err)
	}
}

func TestSignup_shortPassword(t *testing.T) {
	svc := newService(t)
	if _, err := svc.Signup(context.Background(), "alice@example.com", "short", ""); err == nil {
		t.Fatal("expected error for short password")
	}
}

func TestLogin_badCredentials(t *testing.T) {
	svc := newService(t)

	if _, err := svc.Signup(context.Background(), "alice@example.com", "password123", ""); err != nil {
		t.Fatalf("signup: %v", err)
	}

	if _, err := svc.Login(context.Background(), "alice@example.com", "wrong-password"); !errors.Is(err, accounts.ErrInvalidCredentials) {
		t.Errorf("wrong password: err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(context.Background(), "nobody@example.com", "password123"); !errors.Is(err, accounts.ErrInvalidCredentials) {
		t.Errorf("unknown email: err = %v, want ErrInvalidCredentials", err)
	}
}
