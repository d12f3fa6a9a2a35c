package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/msomdec/authcore/internal/domain"
	"github.com/msomdec/authcore/internal/repository/sqlite"
	"github.com/msomdec/authcore/internal/service"
)

const testJWTSecret = "test-secret-key-for-unit-tests-0123456789"

func newTestAuthService(t *testing.T) (*service.AuthService, *sqlite.DB) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// Use cost 4 for fast tests.
	auth := service.NewAuthService(
		db.Users(),
		service.NewBcryptHasher(4, 0),
		service.NewTokenIssuer([]byte(testJWTSecret)),
	)
	return auth, db
}

func ashaInput() service.RegisterInput {
	return service.RegisterInput{
		Name:     "Asha",
		Email:    "asha@x.io",
		Phone:    "555",
		Password: "pw1",
	}
}

func TestAuthService_Register_Success(t *testing.T) {
	auth, db := newTestAuthService(t)
	ctx := context.Background()

	res, err := auth.Register(ctx, ashaInput())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.Token == "" {
		t.Fatal("expected non-empty token")
	}
	if res.User.ID == "" {
		t.Fatal("expected user ID to be assigned")
	}
	if res.User.PasswordHash == "" || res.User.PasswordHash == "pw1" {
		t.Fatalf("expected hashed password, got %q", res.User.PasswordHash)
	}

	stored, err := db.Users().FindByEmail(ctx, "asha@x.io")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if stored == nil || stored.ID != res.User.ID {
		t.Fatalf("expected stored user %s, got %+v", res.User.ID, stored)
	}
	if stored.Name != "Asha" || stored.Phone != "555" {
		t.Fatalf("unexpected stored fields: %+v", stored)
	}
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := auth.Register(ctx, ashaInput()); err != nil {
		t.Fatalf("first Register: %v", err)
	}

	in := ashaInput()
	in.Name = "Someone Else"
	in.Password = "different"
	_, err := auth.Register(ctx, in)
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestAuthService_Register_ConcurrentDuplicates(t *testing.T) {
	auth, _ := newTestAuthService(t)

	const attempts = 8
	var created, duplicates atomic.Int32

	var g errgroup.Group
	for range attempts {
		g.Go(func() error {
			_, err := auth.Register(context.Background(), ashaInput())
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, domain.ErrDuplicateEmail):
				duplicates.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created.Load() != 1 {
		t.Fatalf("expected exactly 1 registration, got %d", created.Load())
	}
	if duplicates.Load() != attempts-1 {
		t.Fatalf("expected %d duplicates, got %d", attempts-1, duplicates.Load())
	}
}

func TestAuthService_Register_PasswordTooLong(t *testing.T) {
	auth, _ := newTestAuthService(t)

	in := ashaInput()
	in.Password = string(make([]byte, 73))
	_, err := auth.Register(context.Background(), in)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()

	reg, err := auth.Register(ctx, ashaInput())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	res, err := auth.Login(ctx, "asha@x.io", "pw1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Token == "" {
		t.Fatal("expected non-empty token")
	}
	if res.User.ID != reg.User.ID {
		t.Fatalf("expected user %s, got %s", reg.User.ID, res.User.ID)
	}
}

func TestAuthService_Login_Failures(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := auth.Register(ctx, ashaInput()); err != nil {
		t.Fatalf("Register: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "asha@x.io", "nope"},
		{"unknown email", "nobody@x.io", "pw1"},
		{"email differs in case", "ASHA@x.io", "pw1"},
		{"empty password", "asha@x.io", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := auth.Login(ctx, tt.email, tt.password)
			if !errors.Is(err, domain.ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
			if res != nil {
				t.Fatalf("expected nil result, got %+v", res)
			}
			if err.Error() != domain.ErrInvalidCredentials.Error() {
				t.Fatalf("failure message leaks detail: %q", err.Error())
			}
		})
	}
}

func TestAuthService_Authenticate(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()

	reg, err := auth.Register(ctx, ashaInput())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	user, err := auth.Authenticate(ctx, reg.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if user.ID != reg.User.ID || user.Email != "asha@x.io" {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestAuthService_Authenticate_Rejected(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()

	expired, err := service.NewTokenIssuer([]byte(testJWTSecret), service.WithClock(func() time.Time {
		return time.Now().Add(-service.TokenTTL - time.Minute)
	})).Issue("whoever")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	orphan, err := service.NewTokenIssuer([]byte(testJWTSecret)).Issue("deleted-user")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	for name, token := range map[string]string{
		"empty":        "",
		"garbage":      "abc.def.ghi",
		"expired":      expired,
		"unknown user": orphan,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := auth.Authenticate(ctx, token)
			if !errors.Is(err, domain.ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
		})
	}
}
