package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicware/clinic-api/internal/model"
	"github.com/clinicware/clinic-api/internal/repository"
)

type SessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	users    *UserRepository
}

// NewSessionRepository shares the user repository so Get can join the
// session to its owner, like the SQL implementation does.
func NewSessionRepository(users *UserRepository) *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]*model.Session),
		users:    users,
	}
}

var _ repository.SessionRepository = (*SessionRepository)(nil)

func copySession(s *model.Session) *model.Session {
	cp := *s
	return &cp
}

func (r *SessionRepository) Create(_ context.Context, session *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session.CreatedAt = time.Now()
	r.sessions[session.ID] = copySession(session)
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*model.Session, *model.User, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return nil, nil, nil
	}
	session := copySession(s)
	r.mu.Unlock()

	user, err := r.users.Get(ctx, session.UserID)
	if err != nil {
		// Owner gone means the session is dangling; treat as unknown.
		return nil, nil, nil
	}
	return session, user, nil
}

func (r *SessionRepository) UpdateExpiry(_ context.Context, id string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		s.ExpiresAt = expiresAt
	}
	return nil
}

func (r *SessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}

func (r *SessionRepository) DeleteForUser(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}

// Count reports the number of stored sessions, for tests.
func (r *SessionRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
