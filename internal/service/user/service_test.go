package user

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicware/clinic-api/config"
	"github.com/clinicware/clinic-api/internal/email"
	"github.com/clinicware/clinic-api/internal/model"
	"github.com/clinicware/clinic-api/internal/repository/memory"
	redisrepo "github.com/clinicware/clinic-api/internal/repository/redis"
	"github.com/clinicware/clinic-api/internal/service/auth"
	"github.com/clinicware/clinic-api/pkg/apierror"
	"github.com/clinicware/clinic-api/pkg/security"
)

type fixture struct {
	svc      *Service
	auth     *auth.Service
	users    *memory.UserRepository
	sessions *memory.SessionRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	users := memory.NewUserRepository()
	sessions := memory.NewSessionRepository(users)
	index, err := redisrepo.NewSessionIndex("")
	require.NoError(t, err)
	mailer := email.NewService(config.SMTPConfig{}, zerolog.Nop())

	authSvc := auth.NewService(
		users,
		sessions,
		index,
		security.NewBcryptHasher(4),
		mailer,
		config.SessionConfig{Duration: time.Hour, RenewalWindow: 30 * time.Minute},
		zerolog.Nop(),
	)
	svc := NewService(users, authSvc, index, mailer, zerolog.Nop())
	return &fixture{svc: svc, auth: authSvc, users: users, sessions: sessions}
}

func (f *fixture) addUser(t *testing.T, email, role string, verified bool) *model.User {
	t.Helper()
	u := &model.User{
		ID:           uuid.New(),
		Name:         "Test User",
		Email:        email,
		PasswordHash: "x",
		Role:         role,
		Verified:     verified,
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func TestVerifyMarksAccountVerified(t *testing.T) {
	f := newFixture(t)
	pending := f.addUser(t, "pending@clinic.test", model.RoleVolunteer, false)

	got, err := f.svc.Verify(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.True(t, got.Verified)

	stored, err := f.users.Get(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.True(t, stored.Verified)
}

func TestVerifyUnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Verify(context.Background(), uuid.New())
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))
}

func TestListUnverifiedOnlyReturnsPending(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "admin@clinic.test", model.RoleAdmin, true)
	pending := f.addUser(t, "pending@clinic.test", model.RoleVolunteer, false)

	got, err := f.svc.ListUnverified(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, pending.ID, got[0].ID)
}

func TestRejectRemovesUserAndSessions(t *testing.T) {
	f := newFixture(t)
	admin := f.addUser(t, "admin@clinic.test", model.RoleAdmin, true)
	target := f.addUser(t, "pending@clinic.test", model.RoleVolunteer, true)

	token, _, err := f.auth.CreateSession(context.Background(), target.ID)
	require.NoError(t, err)
	require.Equal(t, 1, f.sessions.Count())

	require.NoError(t, f.svc.Reject(context.Background(), admin.ID, target.ID))

	_, err = f.users.Get(context.Background(), target.ID)
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))
	assert.Equal(t, 0, f.sessions.Count())

	user, _, err := f.auth.ValidateSession(context.Background(), token)
	require.NoError(t, err)
	assert.Nil(t, user, "revoked sessions no longer validate")
}

func TestRejectSelfIsForbidden(t *testing.T) {
	f := newFixture(t)
	admin := f.addUser(t, "admin@clinic.test", model.RoleAdmin, true)

	err := f.svc.Reject(context.Background(), admin.ID, admin.ID)
	assert.True(t, apierror.IsKind(err, apierror.KindForbidden))

	_, err = f.users.Get(context.Background(), admin.ID)
	assert.NoError(t, err, "the account survives a self-reject attempt")
}

func TestRejectUnknownUser(t *testing.T) {
	f := newFixture(t)
	admin := f.addUser(t, "admin@clinic.test", model.RoleAdmin, true)

	err := f.svc.Reject(context.Background(), admin.ID, uuid.New())
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))
}

func TestActiveSessionsUnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ActiveSessions(context.Background(), uuid.New())
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))
}
