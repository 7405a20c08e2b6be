package repository

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/entity"
)

// MemoryUserRepository is an in-process user store with the same semantics as
// UserRepository. Stored users are copied in and out so callers never share state.
type MemoryUserRepository struct {
	mu     sync.Mutex
	nextID uint64
	users  map[uint64]entity.User

	// FailUpdate, when set, is returned by UpdateProfile and SetResetToken instead of writing.
	FailUpdate error
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[uint64]entity.User)}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTaken(user.Email, 0) {
		return ErrDuplicateEmail
	}

	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.Email == email }), nil
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id uint64) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *MemoryUserRepository) FindByResetToken(_ context.Context, tokenHash string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.ResetToken.Valid && u.ResetToken.String == tokenHash }), nil
}

func (r *MemoryUserRepository) UpdateProfile(_ context.Context, id uint64, fullname, email, imagePath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailUpdate != nil {
		return r.FailUpdate
	}
	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	if r.emailTaken(email, id) {
		return ErrDuplicateEmail
	}

	u.Fullname = fullname
	u.Email = email
	u.ImagePath = imagePath
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return nil
}

func (r *MemoryUserRepository) SetResetToken(_ context.Context, id uint64, tokenHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailUpdate != nil {
		return r.FailUpdate
	}
	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}

	u.ResetToken = sql.NullString{String: tokenHash, Valid: true}
	u.ResetTokenExpiresAt = sql.NullTime{Time: expiresAt.UTC(), Valid: true}
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return nil
}

// Delete removes a user. Updates racing with it report ErrUserNotFound.
func (r *MemoryUserRepository) Delete(_ context.Context, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}

func (r *MemoryUserRepository) ConsumeResetToken(_ context.Context, userID uint64, tokenHash, passwordHash string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok || !u.ResetToken.Valid || u.ResetToken.String != tokenHash || !u.HasActiveResetToken(now) {
		return false, nil
	}

	u.PasswordHash = passwordHash
	u.ClearResetToken()
	u.UpdatedAt = now.UTC()
	r.users[userID] = u
	return true, nil
}

// Count returns the number of stored users.
func (r *MemoryUserRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func (r *MemoryUserRepository) find(match func(*entity.User) bool) *entity.User {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if match(&u) {
			found := u
			return &found
		}
	}
	return nil
}

func (r *MemoryUserRepository) emailTaken(email string, exceptID uint64) bool {
	for id, u := range r.users {
		if id != exceptID && u.Email == email {
			return true
		}
	}
	return false
}
