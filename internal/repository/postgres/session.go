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
)

type sessionRepository struct {
	BaseRepository
}

func NewSessionRepository(db *sqlx.DB) repository.SessionRepository {
	return &sessionRepository{NewBaseRepository(db)}
}

func (r *sessionRepository) Create(ctx context.Context, session *model.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`
	session.CreatedAt = time.Now()
	_, err := r.GetDB().ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.ExpiresAt,
		session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Get resolves a session id to the session and its owner in one round trip.
// An unknown id is not an error; the caller treats it as unauthenticated.
func (r *sessionRepository) Get(ctx context.Context, id string) (*model.Session, *model.User, error) {
	query := `
		SELECT s.id AS session_id, s.user_id, s.expires_at, s.created_at AS session_created_at,
		       u.id, u.name, u.email, u.password_hash, u.role, u.verified, u.created_at, u.updated_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = $1
	`
	var row struct {
		SessionID        string    `db:"session_id"`
		SessionUserID    uuid.UUID `db:"user_id"`
		ExpiresAt        time.Time `db:"expires_at"`
		SessionCreatedAt time.Time `db:"session_created_at"`
		model.User
	}
	err := r.GetDB().GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get session: %w", err)
	}

	session := &model.Session{
		ID:        row.SessionID,
		UserID:    row.SessionUserID,
		ExpiresAt: row.ExpiresAt,
		CreatedAt: row.SessionCreatedAt,
	}
	user := row.User
	return session, &user, nil
}

func (r *sessionRepository) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	_, err := r.GetDB().ExecContext(ctx, `UPDATE sessions SET expires_at = $1 WHERE id = $2`, expiresAt, id)
	if err != nil {
		return fmt.Errorf("failed to extend session: %w", err)
	}
	return nil
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.GetDB().ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *sessionRepository) DeleteForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.GetDB().ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}
