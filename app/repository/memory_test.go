package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/entity"
	"github.com/vibast-solutions/ms-go-accounts/app/repository"
)

func TestMemoryUserRepository_CreateAndFind(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	ctx := context.Background()

	user := &entity.User{Fullname: "Alice", Email: "a@x.com", PasswordHash: "hash"}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if user.ID != 1 {
		t.Fatalf("expected ID 1, got %d", user.ID)
	}

	if err := repo.Create(ctx, &entity.User{Fullname: "Again", Email: "a@x.com"}); !errors.Is(err, repository.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	if repo.Count() != 1 {
		t.Fatalf("expected exactly one user, got %d", repo.Count())
	}

	found, _ := repo.FindByEmail(ctx, "a@x.com")
	if found == nil || found.ID != 1 {
		t.Fatalf("unexpected user: %+v", found)
	}

	found.Fullname = "mutated"
	again, _ := repo.FindByID(ctx, 1)
	if again.Fullname != "Alice" {
		t.Fatalf("store must not share state with callers")
	}

	missing, err := repo.FindByID(ctx, 42)
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil, got %+v %v", missing, err)
	}
}

func TestMemoryUserRepository_ConsumeResetToken(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	user := &entity.User{
		Email:               "a@x.com",
		PasswordHash:        "old",
		ResetToken:          sql.NullString{String: "digest", Valid: true},
		ResetTokenExpiresAt: sql.NullTime{Time: now.Add(30 * time.Minute), Valid: true},
	}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if ok, _ := repo.ConsumeResetToken(ctx, user.ID, "wrong", "new", now); ok {
		t.Fatalf("expected wrong token to be rejected")
	}
	if ok, _ := repo.ConsumeResetToken(ctx, user.ID, "digest", "new", now.Add(30*time.Minute+time.Second)); ok {
		t.Fatalf("expected expired token to be rejected")
	}
	if ok, _ := repo.ConsumeResetToken(ctx, user.ID, "digest", "new", now.Add(30*time.Minute)); !ok {
		t.Fatalf("expected token to be consumed at expiry instant")
	}
	if ok, _ := repo.ConsumeResetToken(ctx, user.ID, "digest", "newer", now); ok {
		t.Fatalf("expected token to be single use")
	}

	stored, _ := repo.FindByID(ctx, user.ID)
	if stored.PasswordHash != "new" || stored.ResetToken.Valid {
		t.Fatalf("unexpected stored user: %+v", stored)
	}
}

func TestMemoryUserRepository_UpdateFailure(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	ctx := context.Background()

	user := &entity.User{Email: "a@x.com", ImagePath: "old.png"}
	_ = repo.Create(ctx, user)

	repo.FailUpdate = errors.New("disk full")
	if err := repo.UpdateProfile(ctx, user.ID, "A", "a@x.com", "new.png"); err == nil {
		t.Fatalf("expected update error")
	}

	stored, _ := repo.FindByID(ctx, user.ID)
	if stored.ImagePath != "old.png" {
		t.Fatalf("expected stored record untouched, got %q", stored.ImagePath)
	}
}

func TestMemoryUserRepository_UpdateProfileTouchesOnlyProfile(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	user := &entity.User{Fullname: "A", Email: "a@x.com", PasswordHash: "old", ImagePath: "p"}
	_ = repo.Create(ctx, user)
	if err := repo.SetResetToken(ctx, user.ID, "digest", now.Add(time.Hour)); err != nil {
		t.Fatalf("set reset token failed: %v", err)
	}

	if err := repo.UpdateProfile(ctx, user.ID, "B", "b@x.com", "p2"); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	stored, _ := repo.FindByID(ctx, user.ID)
	if stored.PasswordHash != "old" || !stored.HasActiveResetToken(now) || stored.ResetToken.String != "digest" {
		t.Fatalf("expected password and reset token untouched, got %+v", stored)
	}
	if stored.Fullname != "B" || stored.Email != "b@x.com" || stored.ImagePath != "p2" {
		t.Fatalf("expected profile columns updated, got %+v", stored)
	}
}

func TestMemoryUserRepository_UpdateMissingUser(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	ctx := context.Background()

	user := &entity.User{Email: "a@x.com"}
	_ = repo.Create(ctx, user)
	repo.Delete(ctx, user.ID)

	if err := repo.UpdateProfile(ctx, user.ID, "A", "a@x.com", "p"); !errors.Is(err, repository.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := repo.SetResetToken(ctx, user.ID, "digest", time.Now()); !errors.Is(err, repository.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
