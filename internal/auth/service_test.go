package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestService(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	svc, err := NewService(NewMemStore(), "test-secret", opts...)
	if err != nil {
		t.Fatal(err)
	}
	return svc
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Ana@Example.com", "correct-horse")
	if err != nil {
		t.Fatal(err)
	}
	if user.Email != "ana@example.com" {
		t.Fatalf("email must be normalized, got %q", user.Email)
	}
	if user.PasswordHash == "correct-horse" || user.PasswordHash == "" {
		t.Fatal("password must be stored hashed")
	}

	pair, got, err := svc.IssueTokenPair(ctx, "ana@example.com", "correct-horse")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != user.ID {
		t.Fatalf("unexpected user: %s", got.ID)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}

	principal, err := svc.AuthenticateToken(ctx, pair.AccessToken)
	if err != nil {
		t.Fatal(err)
	}
	if principal.User.ID != user.ID {
		t.Fatalf("principal mismatch: %s", principal.User.ID)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "dup@example.com", "password-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Register(ctx, "dup@example.com", "password-2"); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, _ = svc.Register(ctx, "u@example.com", "password-1")
	if _, _, err := svc.IssueTokenPair(ctx, "u@example.com", "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAccessTokenExpiry(t *testing.T) {
	current := time.Now()
	svc := newTestService(t,
		WithAccessTTL(time.Minute),
		WithClock(func() time.Time { return current }),
	)
	ctx := context.Background()
	_, _ = svc.Register(ctx, "exp@example.com", "password-1")
	pair, _, err := svc.IssueTokenPair(ctx, "exp@example.com", "password-1")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.AuthenticateToken(ctx, pair.AccessToken); err != nil {
		t.Fatalf("token should be valid before expiry: %v", err)
	}

	current = current.Add(2 * time.Minute)
	if _, err := svc.AuthenticateToken(ctx, pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after expiry, got %v", err)
	}
}

func TestRefreshRotation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, _ = svc.Register(ctx, "rot@example.com", "password-1")
	pair, _, err := svc.IssueTokenPair(ctx, "rot@example.com", "password-1")
	if err != nil {
		t.Fatal(err)
	}

	next, _, err := svc.RefreshTokenPair(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatal(err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Fatal("refresh token must rotate")
	}

	// The old token is revoked after rotation.
	if _, _, err := svc.RefreshTokenPair(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for reused refresh token, got %v", err)
	}
}

func TestRefreshTamperedSecret(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, _ = svc.Register(ctx, "tamper@example.com", "password-1")
	pair, _, err := svc.IssueTokenPair(ctx, "tamper@example.com", "password-1")
	if err != nil {
		t.Fatal(err)
	}
	id := strings.SplitN(pair.RefreshToken, ".", 2)[0]
	if _, _, err := svc.RefreshTokenPair(ctx, id+".forged-secret"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestGrantsGateIntakeAccess(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	a, _ := svc.Register(ctx, "a@example.com", "password-1")
	b, _ := svc.Register(ctx, "b@example.com", "password-1")

	if err := svc.GrantAccess(ctx, Grant{IntakeID: "int-1", UserID: a.ID, Role: RolePartyA}); err != nil {
		t.Fatal(err)
	}

	role, err := svc.RoleForIntake(ctx, a.ID, "int-1")
	if err != nil || role != RolePartyA {
		t.Fatalf("expected party_a role, got %q err=%v", role, err)
	}
	if _, err := svc.RoleForIntake(ctx, b.ID, "int-1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for ungranted user, got %v", err)
	}

	if err := svc.GrantAccess(ctx, Grant{IntakeID: "int-1", UserID: b.ID, Role: Role("owner")}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown role, got %v", err)
	}
}
