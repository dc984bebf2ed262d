package auth

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
	"github.com/clinicware/clinic-api/pkg/apierror"
	"github.com/clinicware/clinic-api/pkg/security"
)

type fixture struct {
	svc      *Service
	users    *memory.UserRepository
	sessions *memory.SessionRepository
}

func newFixture(t *testing.T, cfg config.SessionConfig) *fixture {
	t.Helper()

	users := memory.NewUserRepository()
	sessions := memory.NewSessionRepository(users)
	index, err := redisrepo.NewSessionIndex("")
	require.NoError(t, err)

	svc := NewService(
		users,
		sessions,
		index,
		security.NewBcryptHasher(4), // minimal cost, tests only
		email.NewService(config.SMTPConfig{}, zerolog.Nop()),
		cfg,
		zerolog.Nop(),
	)
	return &fixture{svc: svc, users: users, sessions: sessions}
}

func defaultSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		Duration:      24 * time.Hour,
		RenewalWindow: 12 * time.Hour,
	}
}

func (f *fixture) signup(t *testing.T, email, role string) *model.User {
	t.Helper()
	user, err := f.svc.Signup(context.Background(), &model.SignupRequest{
		Name:     "Test User",
		Email:    email,
		Password: "password123",
		Role:     role,
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) verify(t *testing.T, id uuid.UUID) {
	t.Helper()
	_, err := f.users.SetVerified(context.Background(), id)
	require.NoError(t, err)
}

func TestSignupCreatesUnverifiedAccount(t *testing.T) {
	f := newFixture(t, defaultSessionConfig())

	user := f.signup(t, "staff@clinic.test", model.RoleVolunteer)
	assert.False(t, user.Verified)
	assert.Equal(t, model.RoleVolunteer, user.Role)
	assert.NotEqual(t, "password123", user.PasswordHash, "password must be hashed")
}

func TestSignupDuplicateEmail(t *testing.T) {
	f := newFixture(t, defaultSessionConfig())
	f.signup(t, "staff@clinic.test", model.RoleVolunteer)

	_, err := f.svc.Signup(context.Background(), &model.SignupRequest{
		Name:     "Other",
		Email:    "staff@clinic.test",
		Password: "password456",
		Role:     model.RoleAdmin,
	})
	assert.True(t, apierror.IsKind(err, apierror.KindConflict))
}

func TestLoginUnknownEmailGenericMessage(t *testing.T) {
	f := newFixture(t, defaultSessionConfig())

	_, err := f.svc.Login(context.Background(), "nobody@clinic.test", "password123")
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindUnauthenticated))
	assert.Contains(t, err.Error(), msgInvalidCredentials)
}

func TestLoginWrongPasswordGenericMessage(t *testing.T) {
	f := newFixture(t, defaultSessionConfig())
	user := f.signup(t, "staff@clinic.test", model.RoleVolunteer)
	f.verify(t, user.ID)

	_, err := f.svc.Login(context.Background(), "staff@clinic.test", "wrong-password")
	require.Error(t, err)
	assert.Contains(t, err.Error(), msgInvalidCredentials)
	assert.Equal(t, 0, f.sessions.Count())
}

func TestLoginUnverifiedAccountCreatesNoSession(t *testing.T) {
	f := newFixture(t, defaultSessionConfig())
	f.signup(t, "pending@clinic.test", model.RoleVolunteer)

	_, err := f.svc.Login(context.Background(), "pending@clinic.test", "password123")
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindForbidden))
	assert.Contains(t, err.Error(), msgUnverifiedAccount, "the unverified message is distinct from bad credentials")
	assert.Equal(t, 0, f.sessions.Count(), "no session for an unverified account")
}

func TestLoginVerifiedAccountEstablishesSession(t *testing.T) {
	f := newFixture(t, defaultSessionConfig())
	user := f.signup(t, "staff@clinic.test", model.RoleVolunteer)
	f.verify(t, user.ID)

	resp, err := f.svc.Login(context.Background(), "staff@clinic.test", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.True(t, resp.ExpiresAt.After(time.Now()))
	assert.Equal(t, 1, f.sessions.Count())

	// The issued token round-trips through validation.
	got, session, err := f.svc.ValidateSession(context.Background(), resp.Token)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, user.ID, session.UserID)
}

func TestValidateSessionUnknownToken(t *testing.T) {
	f := newFixture(t, defaultSessionConfig())

	user, session, err := f.svc.ValidateSession(context.Background(), "not-a-real-token")
	require.NoError(t, err, "an unknown token is unauthenticated, not an error")
	assert.Nil(t, user)
	assert.Nil(t, session)
}

func TestValidateSessionEmptyToken(t *testing.T) {
	f := newFixture(t, defaultSessionConfig())

	user, _, err := f.svc.ValidateSession(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestValidateSessionExpired(t *testing.T) {
	// Zero duration: sessions are born expired.
	f := newFixture(t, config.SessionConfig{Duration: -time.Minute, RenewalWindow: time.Minute})
	user := f.signup(t, "staff@clinic.test", model.RoleVolunteer)
	f.verify(t, user.ID)

	token, _, err := f.svc.CreateSession(context.Background(), user.ID)
	require.NoError(t, err)

	got, session, err := f.svc.ValidateSession(context.Background(), token)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Nil(t, session)
	assert.Equal(t, 0, f.sessions.Count(), "expired rows are cleaned up lazily")
}

func TestValidateSessionSlidingRenewal(t *testing.T) {
	// Renewal window larger than the duration: every validation renews.
	f := newFixture(t, config.SessionConfig{Duration: time.Hour, RenewalWindow: 2 * time.Hour})
	user := f.signup(t, "staff@clinic.test", model.RoleVolunteer)
	f.verify(t, user.ID)

	token, created, err := f.svc.CreateSession(context.Background(), user.ID)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, renewed, err := f.svc.ValidateSession(context.Background(), token)
	require.NoError(t, err)
	require.NotNil(t, renewed)
	assert.True(t, renewed.ExpiresAt.After(created.ExpiresAt), "expiry slides forward")

	// The extension is persisted, not just returned.
	stored, _, err := f.sessions.Get(context.Background(), renewed.ID)
	require.NoError(t, err)
	assert.Equal(t, renewed.ExpiresAt, stored.ExpiresAt)
}

func TestValidateSessionOutsideRenewalWindowKeepsExpiry(t *testing.T) {
	f := newFixture(t, config.SessionConfig{Duration: 24 * time.Hour, RenewalWindow: time.Minute})
	user := f.signup(t, "staff@clinic.test", model.RoleVolunteer)
	f.verify(t, user.ID)

	token, created, err := f.svc.CreateSession(context.Background(), user.ID)
	require.NoError(t, err)

	_, session, err := f.svc.ValidateSession(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, created.ExpiresAt, session.ExpiresAt)
}

func TestLogoutInvalidatesSession(t *testing.T) {
	f := newFixture(t, defaultSessionConfig())
	user := f.signup(t, "staff@clinic.test", model.RoleVolunteer)
	f.verify(t, user.ID)

	resp, err := f.svc.Login(context.Background(), "staff@clinic.test", "password123")
	require.NoError(t, err)

	_, session, err := f.svc.ValidateSession(context.Background(), resp.Token)
	require.NoError(t, err)
	require.NotNil(t, session)

	require.NoError(t, f.svc.Logout(context.Background(), session))

	got, _, err := f.svc.ValidateSession(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Nil(t, got, "a logged-out session no longer validates")
}

func TestInvalidateUserSessionsRevokesAll(t *testing.T) {
	f := newFixture(t, defaultSessionConfig())
	user := f.signup(t, "staff@clinic.test", model.RoleVolunteer)
	f.verify(t, user.ID)

	t1, _, err := f.svc.CreateSession(context.Background(), user.ID)
	require.NoError(t, err)
	t2, _, err := f.svc.CreateSession(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, 2, f.sessions.Count())

	require.NoError(t, f.svc.InvalidateUserSessions(context.Background(), user.ID))

	for _, token := range []string{t1, t2} {
		got, _, err := f.svc.ValidateSession(context.Background(), token)
		require.NoError(t, err)
		assert.Nil(t, got)
	}
}

func TestSessionTokenNotStoredRaw(t *testing.T) {
	f := newFixture(t, defaultSessionConfig())
	user := f.signup(t, "staff@clinic.test", model.RoleVolunteer)
	f.verify(t, user.ID)

	token, session, err := f.svc.CreateSession(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, token, session.ID)
	assert.Equal(t, security.SessionIDFromToken(token), session.ID)
}
