package auth

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/simp-lee/bankoffice/internal/domain"
)

// setupTestDB creates an in-memory SQLite database with the User table.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&domain.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	ctx := context.Background()

	user := &domain.User{Name: "Alice", Email: "alice@bank.example", PasswordHash: "x"}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if user.ID == 0 {
		t.Fatal("expected non-zero ID after Create")
	}

	got, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Email != "alice@bank.example" {
		t.Errorf("Email = %q", got.Email)
	}

	byEmail, err := repo.GetByEmail(ctx, "  ALICE@bank.example ")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Errorf("GetByEmail ID = %d, want %d", byEmail.ID, user.ID)
	}
}

func TestUserRepository_NotFound(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))

	if _, err := repo.GetByID(context.Background(), 999); !domain.IsNotFound(err) {
		t.Errorf("GetByID: expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetByEmail(context.Background(), "nobody@bank.example"); !domain.IsNotFound(err) {
		t.Errorf("GetByEmail: expected ErrNotFound, got %v", err)
	}
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, &domain.User{Name: "A", Email: "dup@bank.example"}); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	err := repo.Create(ctx, &domain.User{Name: "B", Email: "dup@bank.example"})
	if !domain.IsAlreadyExists(err) {
		t.Errorf("expected AlreadyExists, got %v", err)
	}
}
