package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinicware/clinic-api/internal/model"
	"github.com/clinicware/clinic-api/internal/repository"
	"github.com/clinicware/clinic-api/pkg/apierror"
)

type userRepository struct {
	BaseRepository
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{NewBaseRepository(db)}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, role, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.GetDB().ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Verified,
		now,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return apierror.Conflict("email already registered", err)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := r.GetDB().GetContext(ctx, &user, `SELECT * FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierror.NotFound("user")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.GetDB().GetContext(ctx, &user, `SELECT * FROM users WHERE email = $1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierror.NotFound("user")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context) ([]*model.User, error) {
	var users []*model.User
	err := r.GetDB().SelectContext(ctx, &users, `SELECT * FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *userRepository) ListUnverified(ctx context.Context) ([]*model.User, error) {
	query := `SELECT * FROM users WHERE verified = FALSE ORDER BY created_at DESC`
	var users []*model.User
	if err := r.GetDB().SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list unverified users: %w", err)
	}
	return users, nil
}

func (r *userRepository) SetVerified(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `UPDATE users SET verified = TRUE, updated_at = $1 WHERE id = $2 RETURNING *`
	var user model.User
	err := r.GetDB().GetContext(ctx, &user, query, time.Now(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierror.NotFound("user")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to verify user: %w", err)
	}
	return &user, nil
}

// Delete removes the user row; session rows cascade at the schema level so a
// rejected user cannot keep an authenticated session.
func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.GetDB().ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apierror.NotFound("user")
	}
	return nil
}
