package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/paperpath/docusign-connect/internal/domain"
	"github.com/paperpath/docusign-connect/internal/repository"
)

// RedisSessionStore implements SessionStore backed by Redis. The token
// bundle is one JSON value per session, so the four token fields can only
// ever be overwritten together.
type RedisSessionStore struct {
	client redis.UniversalClient
}

var _ repository.SessionStore = (*RedisSessionStore)(nil)

// NewRedisSessionStore constructs a Redis-backed session store.
func NewRedisSessionStore(client redis.UniversalClient) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func tokensKey(sessionID string) string { return "ds:session:" + sessionID + ":tokens" }
func stateKey(sessionID string) string  { return "ds:session:" + sessionID + ":state" }

// SaveTokens overwrites the whole token bundle. The value expires with the
// refresh window since nothing in it is usable afterwards.
func (s *RedisSessionStore) SaveTokens(ctx context.Context, sessionID string, session domain.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ttl := time.Until(session.RefreshExpiresAt)
	if ttl <= 0 {
		ttl = time.Until(session.AccessExpiresAt)
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := s.client.Set(ctx, tokensKey(sessionID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// GetTokens loads the token bundle, returning (nil, nil) when absent.
func (s *RedisSessionStore) GetTokens(ctx context.Context, sessionID string) (*domain.Session, error) {
	bytes, err := s.client.Get(ctx, tokensKey(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	var session domain.Session
	if err := json.Unmarshal(bytes, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

// ClearTokens removes the token bundle.
func (s *RedisSessionStore) ClearTokens(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, tokensKey(sessionID)).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// SaveState stores the pending encrypted security state with TTL. A later
// login attempt overwrites any earlier pending state.
func (s *RedisSessionStore) SaveState(ctx context.Context, sessionID, state string, ttl time.Duration) error {
	if err := s.client.Set(ctx, stateKey(sessionID), state, ttl).Err(); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	return nil
}

// GetState loads the pending state, returning "" when absent.
func (s *RedisSessionStore) GetState(ctx context.Context, sessionID string) (string, error) {
	state, err := s.client.Get(ctx, stateKey(sessionID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("load state: %w", err)
	}
	return state, nil
}

// ClearState removes the pending state.
func (s *RedisSessionStore) ClearState(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, stateKey(sessionID)).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("clear state: %w", err)
	}
	return nil
}
