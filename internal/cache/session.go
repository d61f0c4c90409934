package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"sharefun/internal/clock"
	"sharefun/internal/model"
	"sharefun/internal/repository"
)

const (
	// SessionKeyPrefix is the key prefix for a single session record
	SessionKeyPrefix = "session:"

	// UserSessionsPrefix is the key prefix for the set of session IDs owned by a user
	UserSessionsPrefix = "session:user:"
)

// RedisSessionStore implements repository.SessionRepository on Redis.
// Each session is a JSON string whose TTL ends at the session's expiry, so
// expired sessions disappear without a sweeper.
type RedisSessionStore struct {
	client *redis.Client
	clock  clock.Clock
}

var _ repository.SessionRepository = (*RedisSessionStore)(nil)

func NewSessionStore(client *redis.Client, clk clock.Clock) *RedisSessionStore {
	return &RedisSessionStore{client: client, clock: clk}
}

func sessionKey(id string) string {
	return SessionKeyPrefix + id
}

func userSessionsKey(userID int64) string {
	return fmt.Sprintf("%s%d", UserSessionsPrefix, userID)
}

// Create stores the session and indexes it under its user.
// Pipeline: SET (with TTL) + SADD + EXPIRE. Sessions share one TTL, so the
// index expires no earlier than its newest member.
func (s *RedisSessionStore) Create(ctx context.Context, session *model.Session) error {
	ttl := session.ExpiresAt.Sub(s.clock.Now())
	if ttl <= 0 {
		return model.ErrSessionExpired
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	userKey := userSessionsKey(session.UserID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(session.ID), data, ttl)
		pipe.SAdd(ctx, userKey, session.ID)
		pipe.Expire(ctx, userKey, ttl)
		return nil
	})
	if err != nil {
		log.WithError(err).WithField("user_id", session.UserID).Error("[SessionStore] Create FAILED")
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (*model.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

// Delete removes the session. Unknown IDs are not an error.
func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	session, err := s.Get(ctx, id)
	if errors.Is(err, model.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(id))
		pipe.SRem(ctx, userSessionsKey(session.UserID), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) DeleteAllForUser(ctx context.Context, userID int64) error {
	userKey := userSessionsKey(userID)
	ids, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("list user sessions: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, userKey)

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}

	log.WithFields(log.Fields{"user_id": userID, "count": len(ids)}).Info("[SessionStore] Revoked all sessions")
	return nil
}
