package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/msomdec/authcore/internal/domain"
	"github.com/msomdec/authcore/internal/repository/sqlite"
)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUserRepository_Create(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewUserRepository(db)
	ctx := context.Background()

	user := &domain.User{
		Email:        "test@example.com",
		Name:         "Test User",
		Phone:        "5550001",
		PasswordHash: "hashedpw",
	}

	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if user.ID == "" {
		t.Fatal("expected user ID to be set after create")
	}
	if user.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewUserRepository(db)
	ctx := context.Background()

	user1 := &domain.User{Email: "dup@example.com", Name: "User 1", PasswordHash: "hash1"}
	if err := repo.Create(ctx, user1); err != nil {
		t.Fatalf("Create user1: %v", err)
	}

	user2 := &domain.User{Email: "dup@example.com", Name: "User 2", PasswordHash: "hash2"}
	err := repo.Create(ctx, user2)
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	if user2.ID != "" {
		t.Fatalf("expected no ID on rejected user, got %q", user2.ID)
	}
}

func TestUserRepository_Create_ConcurrentDuplicates(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewUserRepository(db)
	ctx := context.Background()

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = repo.Create(ctx, &domain.User{Email: "race@example.com", Name: "Racer", PasswordHash: "h"})
		}()
	}
	wg.Wait()

	var created, duplicates int
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, domain.ErrDuplicateEmail):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if created != 1 || duplicates != attempts-1 {
		t.Fatalf("expected 1 created and %d duplicates, got %d and %d", attempts-1, created, duplicates)
	}
}

func TestUserRepository_EmailIsCaseSensitive(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewUserRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, &domain.User{Email: "Case@example.com", Name: "Upper", PasswordHash: "h"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	found, err := repo.FindByEmail(ctx, "case@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if found != nil {
		t.Fatalf("expected no match for differently-cased email, got %+v", found)
	}
}

func TestUserRepository_GetByID(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewUserRepository(db)
	ctx := context.Background()

	user := &domain.User{Email: "byid@example.com", Name: "By ID", Phone: "123", PasswordHash: "hash"}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create: %v", err)
	}

	found, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	if found.Email != user.Email {
		t.Fatalf("expected email %q, got %q", user.Email, found.Email)
	}
	if found.Name != user.Name || found.Phone != user.Phone {
		t.Fatalf("expected name/phone %q/%q, got %q/%q", user.Name, user.Phone, found.Name, found.Phone)
	}
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewUserRepository(db)

	_, err := repo.GetByID(context.Background(), "00000000-0000-0000-0000-000000000000")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepository_FindByEmail(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewUserRepository(db)
	ctx := context.Background()

	user := &domain.User{Email: "byemail@example.com", Name: "By Email", PasswordHash: "hash"}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create: %v", err)
	}

	found, err := repo.FindByEmail(ctx, "byemail@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if found == nil {
		t.Fatal("expected user, got nil")
	}
	if found.ID != user.ID {
		t.Fatalf("expected id %s, got %s", user.ID, found.ID)
	}
	if found.PasswordHash != "hash" {
		t.Fatalf("expected stored hash, got %q", found.PasswordHash)
	}
}

func TestUserRepository_FindByEmail_NoMatch(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewUserRepository(db)

	found, err := repo.FindByEmail(context.Background(), "nonexistent@example.com")
	if err != nil {
		t.Fatalf("expected no error for a missing email, got %v", err)
	}
	if found != nil {
		t.Fatalf("expected nil user, got %+v", found)
	}
}

func TestUserRepository_ClosedDatabase(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewUserRepository(db)
	db.Close()

	_, err := repo.FindByEmail(context.Background(), "any@example.com")
	if err == nil {
		t.Fatal("expected error from closed database")
	}
}
