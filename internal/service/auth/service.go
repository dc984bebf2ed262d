package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicware/clinic-api/config"
	"github.com/clinicware/clinic-api/internal/email"
	"github.com/clinicware/clinic-api/internal/model"
	"github.com/clinicware/clinic-api/internal/repository"
	redisrepo "github.com/clinicware/clinic-api/internal/repository/redis"
	"github.com/clinicware/clinic-api/pkg/apierror"
	"github.com/clinicware/clinic-api/pkg/security"
)

// Login failure messages. The generic one deliberately does not reveal
// whether the email or the password was wrong; the unverified one is
// distinct so staff know to wait for admin approval rather than retry.
const (
	msgInvalidCredentials = "invalid email or password"
	msgUnverifiedAccount  = "account pending verification by an administrator"
)

// Service is the session manager and the authentication boundary. It is the
// only component that touches session storage; nothing else in the system
// trusts client-supplied identity except through ValidateSession.
type Service struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	index    *redisrepo.SessionIndex
	hasher   security.PasswordHasher
	mailer   email.Service
	cfg      config.SessionConfig
	logger   zerolog.Logger
}

func NewService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	index *redisrepo.SessionIndex,
	hasher security.PasswordHasher,
	mailer email.Service,
	cfg config.SessionConfig,
	logger zerolog.Logger,
) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		index:    index,
		hasher:   hasher,
		mailer:   mailer,
		cfg:      cfg,
		logger:   logger,
	}
}

// Signup registers a new, unverified staff account. A duplicate email
// surfaces as Conflict from the repository's unique constraint.
func (s *Service) Signup(ctx context.Context, req *model.SignupRequest) (*model.User, error) {
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apierror.Validation(err.Error())
	}

	user := &model.User{
		ID:           uuid.New(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		Verified:     false,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.mailer.SendWelcome(ctx, user.Email, user.Name); err != nil {
		s.logger.Warn().Err(err).Str("email", user.Email).Msg("welcome mail failed")
	}

	s.logger.Info().Str("email", user.Email).Str("role", user.Role).Msg("staff account created")
	return user, nil
}

// Login checks credentials and, for verified accounts only, establishes a
// session. Unverified accounts never obtain a session.
func (s *Service) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apierror.IsKind(err, apierror.KindNotFound) {
			return nil, apierror.Unauthenticated(msgInvalidCredentials)
		}
		return nil, err
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, apierror.Unauthenticated(msgInvalidCredentials)
	}

	if !user.Verified {
		return nil, apierror.Forbidden(msgUnverifiedAccount)
	}

	token, session, err := s.CreateSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("email", user.Email).Msg("login")
	return &model.LoginResponse{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		User:      user,
	}, nil
}

// Logout invalidates the current session.
func (s *Service) Logout(ctx context.Context, session *model.Session) error {
	return s.InvalidateSession(ctx, session)
}

// CreateSession issues a fresh opaque token and persists its digest with a
// fixed-duration expiry. The raw token is returned once and never stored.
func (s *Service) CreateSession(ctx context.Context, userID uuid.UUID) (string, *model.Session, error) {
	token, err := security.GenerateSessionToken()
	if err != nil {
		return "", nil, apierror.Internal(err)
	}

	session := &model.Session{
		ID:        security.SessionIDFromToken(token),
		UserID:    userID,
		ExpiresAt: time.Now().Add(s.cfg.Duration),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", nil, err
	}

	if err := s.index.Add(ctx, userID, session.ID); err != nil {
		s.logger.Warn().Err(err).Msg("session index add failed")
	}

	return token, session, nil
}

// ValidateSession resolves a client token to its user. Missing, malformed,
// unknown and expired tokens all come back as (nil, nil, nil): the caller is
// simply unauthenticated, never served an error page. A session inside the
// renewal window gets its expiry pushed out before this returns.
func (s *Service) ValidateSession(ctx context.Context, token string) (*model.User, *model.Session, error) {
	if token == "" {
		return nil, nil, nil
	}

	session, user, err := s.sessions.Get(ctx, security.SessionIDFromToken(token))
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, nil
	}

	now := time.Now()
	if session.Expired(now) {
		// Lazy cleanup; the row is dead either way.
		if err := s.sessions.Delete(ctx, session.ID); err != nil {
			s.logger.Warn().Err(err).Msg("expired session cleanup failed")
		}
		if err := s.index.Remove(ctx, session.UserID, session.ID); err != nil {
			s.logger.Warn().Err(err).Msg("session index remove failed")
		}
		return nil, nil, nil
	}

	if session.ExpiresAt.Sub(now) < s.cfg.RenewalWindow {
		session.ExpiresAt = now.Add(s.cfg.Duration)
		if err := s.sessions.UpdateExpiry(ctx, session.ID, session.ExpiresAt); err != nil {
			// A lost extension only shortens the session slightly.
			s.logger.Warn().Err(err).Msg("session renewal failed")
		}
	}

	return user, session, nil
}

// InvalidateSession deletes one session; subsequent validations fail.
func (s *Service) InvalidateSession(ctx context.Context, session *model.Session) error {
	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		return err
	}
	if err := s.index.Remove(ctx, session.UserID, session.ID); err != nil {
		s.logger.Warn().Err(err).Msg("session index remove failed")
	}
	return nil
}

// InvalidateUserSessions revokes every session a user holds, across all
// server processes. Used when an admin rejects an account.
func (s *Service) InvalidateUserSessions(ctx context.Context, userID uuid.UUID) error {
	if err := s.sessions.DeleteForUser(ctx, userID); err != nil {
		return err
	}
	if err := s.index.Purge(ctx, userID); err != nil {
		s.logger.Warn().Err(err).Msg("session index purge failed")
	}
	return nil
}
