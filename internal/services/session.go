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

// SessionStore issues and resolves bearer session tokens.
type SessionStore interface {
	Create(ctx context.Context, accountID string) (string, error)
	// Validate returns the account id for token. ok is false for unknown or expired tokens.
	Validate(ctx context.Context, token string) (accountID string, ok bool, err error)
	Invalidate(ctx context.Context, token string) error
}

// RedisSessions keeps one live session per account.
type RedisSessions struct {
	rdb *redis.Client
}

func NewRedisSessions(rdb *redis.Client) *RedisSessions {
	return &RedisSessions{rdb: rdb}
}

// Create invalidates any existing session for the account and issues a new token,
// so the 7-day timer resets from the current sign-in.
func (s *RedisSessions) Create(ctx context.Context, accountID string) (string, error) {
	if err := s.invalidateAccount(ctx, accountID); err != nil {
		return "", err
	}

	token, err := newSessionToken()
	if err != nil {
		return "", err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, SessionKeyPrefix+token, accountID, SessionDuration)
	pipe.Set(ctx, UserSessionKeyPrefix+accountID, token, SessionDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}

func (s *RedisSessions) Validate(ctx context.Context, token string) (string, bool, error) {
	if token == "" {
		return "", false, nil
	}
	accountID, err := s.rdb.Get(ctx, SessionKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return accountID, accountID != "", nil
}

func (s *RedisSessions) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	sessionKey := SessionKeyPrefix + token

	accountID, err := s.rdb.Get(ctx, sessionKey).Result()
	if err == nil && accountID != "" {
		s.rdb.Del(ctx, UserSessionKeyPrefix+accountID)
	}
	return s.rdb.Del(ctx, sessionKey).Err()
}

func (s *RedisSessions) invalidateAccount(ctx context.Context, accountID string) error {
	userSessionKey := UserSessionKeyPrefix + accountID

	token, err := s.rdb.Get(ctx, userSessionKey).Result()
	if err == nil && token != "" {
		s.rdb.Del(ctx, SessionKeyPrefix+token)
	}
	return s.rdb.Del(ctx, userSessionKey).Err()
}

func newSessionToken() (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(tokenBytes), nil
}
