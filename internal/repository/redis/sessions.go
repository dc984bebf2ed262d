package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionIndex tracks the set of live session ids per user in Redis so that
// revoking a user (admin reject) can drop every one of their sessions in one
// sweep, even across server processes. The database rows stay the source of
// truth; the index is best effort and the service degrades to DB-only
// revocation when Redis is not configured.
type SessionIndex struct {
	client *redis.Client
}

// NewSessionIndex connects to Redis. An empty URL returns a nil-safe
// disabled index.
func NewSessionIndex(url string) (*SessionIndex, error) {
	if url == "" {
		return &SessionIndex{}, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &SessionIndex{client: client}, nil
}

// Enabled reports whether the index is backed by a live client.
func (i *SessionIndex) Enabled() bool {
	return i != nil && i.client != nil
}

func userSetKey(userID uuid.UUID) string {
	return fmt.Sprintf("user_sessions:%s", userID)
}

// Add registers a session id under its owning user.
func (i *SessionIndex) Add(ctx context.Context, userID uuid.UUID, sessionID string) error {
	if !i.Enabled() {
		return nil
	}
	return i.client.SAdd(ctx, userSetKey(userID), sessionID).Err()
}

// Remove drops a single session id; the set is deleted once empty.
func (i *SessionIndex) Remove(ctx context.Context, userID uuid.UUID, sessionID string) error {
	if !i.Enabled() {
		return nil
	}
	script := `
		local removed = redis.call('SREM', KEYS[1], ARGV[1])
		if removed > 0 then
			if redis.call('SCARD', KEYS[1]) == 0 then
				redis.call('DEL', KEYS[1])
			end
		end
		return removed
	`
	return i.client.Eval(ctx, script, []string{userSetKey(userID)}, sessionID).Err()
}

// Members returns all tracked session ids for a user.
func (i *SessionIndex) Members(ctx context.Context, userID uuid.UUID) ([]string, error) {
	if !i.Enabled() {
		return nil, nil
	}
	return i.client.SMembers(ctx, userSetKey(userID)).Result()
}

// Purge removes the whole per-user set after a bulk revocation.
func (i *SessionIndex) Purge(ctx context.Context, userID uuid.UUID) error {
	if !i.Enabled() {
		return nil
	}
	return i.client.Del(ctx, userSetKey(userID)).Err()
}

// Close releases the underlying connection.
func (i *SessionIndex) Close() error {
	if !i.Enabled() {
		return nil
	}
	return i.client.Close()
}
