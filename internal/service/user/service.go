package user

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicware/clinic-api/internal/email"
	"github.com/clinicware/clinic-api/internal/model"
	"github.com/clinicware/clinic-api/internal/repository"
	redisrepo "github.com/clinicware/clinic-api/internal/repository/redis"
	"github.com/clinicware/clinic-api/pkg/apierror"
)

// SessionRevoker is the slice of the auth service this workflow needs: when
// an account is rejected, every session it holds must die with it.
type SessionRevoker interface {
	InvalidateUserSessions(ctx context.Context, userID uuid.UUID) error
}

// Service is the admin-side account verification workflow: a pending
// account either becomes verified or is removed outright.
type Service struct {
	repo    repository.UserRepository
	revoker SessionRevoker
	index   *redisrepo.SessionIndex
	mailer  email.Service
	logger  zerolog.Logger
}

func NewService(repo repository.UserRepository, revoker SessionRevoker, index *redisrepo.SessionIndex, mailer email.Service, logger zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		revoker: revoker,
		index:   index,
		mailer:  mailer,
		logger:  logger,
	}
}

func (s *Service) ListUsers(ctx context.Context) ([]*model.User, error) {
	return s.repo.List(ctx)
}

func (s *Service) ListUnverified(ctx context.Context) ([]*model.User, error) {
	return s.repo.ListUnverified(ctx)
}

// Verify flips a pending account to verified. Verified accounts keep all
// their history; the transition is one way.
func (s *Service) Verify(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.repo.SetVerified(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.mailer.SendAccountVerified(ctx, user.Email, user.Name); err != nil {
		s.logger.Warn().Err(err).Str("email", user.Email).Msg("verification mail failed")
	}

	s.logger.Info().Str("email", user.Email).Msg("account verified")
	return user, nil
}

// Reject hard-deletes an account and revokes every session it holds. The
// acting admin cannot reject themselves.
func (s *Service) Reject(ctx context.Context, actorID, id uuid.UUID) error {
	if actorID == id {
		return apierror.Forbidden("cannot reject your own account")
	}

	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.revoker.InvalidateUserSessions(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Str("email", user.Email).Msg("account rejected and removed")
	return nil
}

// ActiveSessions lists the live session ids tracked for a user. Empty when
// the Redis index is not configured.
func (s *Service) ActiveSessions(ctx context.Context, id uuid.UUID) ([]string, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.index.Members(ctx, id)
}
