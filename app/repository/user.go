package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/entity"
)

const userColumns = `id, fullname, email, password_hash, image_path, reset_token, reset_token_expires_at, created_at, updated_at`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (fullname, email, password_hash, image_path, reset_token, reset_token_expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		user.Fullname,
		user.Email,
		user.PasswordHash,
		user.ImagePath,
		user.ResetToken,
		utcNullTime(user.ResetTokenExpiresAt),
		user.CreatedAt.UTC(),
		user.UpdatedAt.UTC(),
	)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateEmail
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = uint64(id)
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users WHERE email = ?
	`
	return r.findOne(ctx, query, email)
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*entity.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users WHERE id = ?
	`
	return r.findOne(ctx, query, id)
}

// FindByResetToken looks a user up by the stored digest of a reset token.
func (r *UserRepository) FindByResetToken(ctx context.Context, tokenHash string) (*entity.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users WHERE reset_token = ?
	`
	return r.findOne(ctx, query, tokenHash)
}

// UpdateProfile writes only the profile columns so concurrent password and
// reset-token changes on the same row are preserved.
func (r *UserRepository) UpdateProfile(ctx context.Context, id uint64, fullname, email, imagePath string) error {
	query := `
		UPDATE users SET
			fullname = ?,
			email = ?,
			image_path = ?,
			updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query, fullname, email, imagePath, time.Now().UTC(), id)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return r.requireRow(ctx, result, id)
}

// SetResetToken stores the digest of a new reset token, replacing any previous one.
func (r *UserRepository) SetResetToken(ctx context.Context, id uint64, tokenHash string, expiresAt time.Time) error {
	query := `
		UPDATE users SET
			reset_token = ?,
			reset_token_expires_at = ?,
			updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query, tokenHash, expiresAt.UTC(), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return r.requireRow(ctx, result, id)
}

// ConsumeResetToken replaces the password and clears the reset fields only if
// tokenHash is still the user's active token at now. It reports whether a row
// was updated, so at most one concurrent confirmation wins.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, userID uint64, tokenHash, passwordHash string, now time.Time) (bool, error) {
	query := `
		UPDATE users SET
			password_hash = ?,
			reset_token = NULL,
			reset_token_expires_at = NULL,
			updated_at = ?
		WHERE id = ? AND reset_token = ? AND reset_token_expires_at >= ?
	`
	result, err := r.db.ExecContext(ctx, query, passwordHash, now.UTC(), userID, tokenHash, now.UTC())
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg any) (*entity.User, error) {
	user := &entity.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Fullname,
		&user.Email,
		&user.PasswordHash,
		&user.ImagePath,
		&user.ResetToken,
		&user.ResetTokenExpiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// requireRow returns ErrUserNotFound when an update matched no row. MySQL
// reports zero affected rows for unchanged values, so existence is checked
// before concluding the row is gone.
func (r *UserRepository) requireRow(ctx context.Context, result sql.Result, id uint64) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var one int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return ErrUserNotFound
	}
	return err
}

func utcNullTime(t sql.NullTime) sql.NullTime {
	if !t.Valid {
		return t
	}
	return sql.NullTime{Time: t.Time.UTC(), Valid: true}
}
