package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// SessionDuration is 7 days
	SessionDuration = 7 * 24 * time.Hour
	// SessionKeyPrefix is the Redis key prefix for sessions
	SessionKeyPrefix = "session:"
	// UserSessionKeyPrefix is the Redis key prefix for user->session mapping
	UserSessionKeyPrefix = "user_session:"
)

// SessionStore keeps bearer tokens in Redis. A user holds at most one session;
// signing in again replaces it and restarts the 7-day timer.
type SessionStore struct {
	rdb *redis.Client
}

func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

// Create issues a new session token for userID.
func (s *SessionStore) Create(ctx context.Context, userID string) (string, error) {
	if err := s.InvalidateUser(ctx, userID); err != nil {
		return "", err
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := base64.URLEncoding.EncodeToString(tokenBytes)

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, SessionKeyPrefix+token, userID, SessionDuration)
		pipe.Set(ctx, UserSessionKeyPrefix+userID, token, SessionDuration)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Validate returns the user ID of a live session. ok is false for unknown or
// expired tokens.
func (s *SessionStore) Validate(ctx context.Context, token string) (userID string, ok bool, err error) {
	if token == "" {
		return "", false, nil
	}
	userID, err = s.rdb.Get(ctx, SessionKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return userID, true, nil
}

// Refresh extends a live session by SessionDuration from now.
func (s *SessionStore) Refresh(ctx context.Context, token string) error {
	userID, ok, err := s.Validate(ctx, token)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("session not found")
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Expire(ctx, SessionKeyPrefix+token, SessionDuration)
		pipe.Expire(ctx, UserSessionKeyPrefix+userID, SessionDuration)
		return nil
	})
	return err
}

// Invalidate removes one session.
func (s *SessionStore) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	key := SessionKeyPrefix + token
	userID, err := s.rdb.Get(ctx, key).Result()
	if err == nil && userID != "" {
		s.rdb.Del(ctx, UserSessionKeyPrefix+userID)
	}
	return s.rdb.Del(ctx, key).Err()
}

// InvalidateUser removes the current session of userID, if any.
func (s *SessionStore) InvalidateUser(ctx context.Context, userID string) error {
	key := UserSessionKeyPrefix + userID
	token, err := s.rdb.Get(ctx, key).Result()
	if err == nil && token != "" {
		s.rdb.Del(ctx, SessionKeyPrefix+token)
	}
	return s.rdb.Del(ctx, key).Err()
}
