package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driven"
	"github.com/redis/go-redis/v9"
)

var _ driven.SessionStore = (*SessionStore)(nil)

// Key layout: the session record lives under its ID; token and refresh
// token map back to the ID; a per-user set tracks IDs for logout-everywhere.
const (
	sessKey    = "quarry:session:"
	sessByTok  = "quarry:session:token:"
	sessByRef  = "quarry:session:refresh:"
	sessByUser = "quarry:session:user:"
)

// SessionStore keeps sessions in Redis, expiry enforced by key TTL.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

// Save writes the session and its lookup indexes with a TTL matching
// ExpiresAt. Already-expired sessions are silently dropped.
func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, sessKey+session.ID, data, ttl)
	pipe.Set(ctx, sessByTok+session.Token, session.ID, ttl)
	pipe.Set(ctx, sessByRef+session.RefreshToken, session.ID, ttl)
	// The user set outlives individual sessions; stale members are pruned
	// on read.
	pipe.SAdd(ctx, sessByUser+session.UserID, session.ID)
	pipe.Expire(ctx, sessByUser+session.UserID, 30*24*time.Hour)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, sessKey+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

func (s *SessionStore) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	return s.getByIndex(ctx, sessByTok+token)
}

func (s *SessionStore) GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	return s.getByIndex(ctx, sessByRef+refreshToken)
}

func (s *SessionStore) getByIndex(ctx context.Context, key string) (*domain.Session, error) {
	id, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve session index: %w", err)
	}
	return s.Get(ctx, id)
}

// Delete removes a session and its indexes. Missing sessions are not an
// error; the TTL may have beaten us to it.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	session, err := s.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.drop(ctx, session)
}

func (s *SessionStore) DeleteByToken(ctx context.Context, token string) error {
	session, err := s.GetByToken(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.drop(ctx, session)
}

// DeleteByUser revokes every session the user has.
func (s *SessionStore) DeleteByUser(ctx context.Context, userID string) error {
	ids, err := s.client.SMembers(ctx, sessByUser+userID).Result()
	if err != nil {
		return fmt.Errorf("list user sessions: %w", err)
	}
	for _, id := range ids {
		_ = s.Delete(ctx, id)
	}
	s.client.Del(ctx, sessByUser+userID)
	return nil
}

// ListByUser returns the user's live sessions, pruning expired IDs from the
// user set as a side effect.
func (s *SessionStore) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	ids, err := s.client.SMembers(ctx, sessByUser+userID).Result()
	if err != nil {
		return nil, fmt.Errorf("list user sessions: %w", err)
	}

	var sessions []*domain.Session
	var stale []string
	for _, id := range ids {
		session, err := s.Get(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			stale = append(stale, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		if session.IsExpired() {
			stale = append(stale, id)
			continue
		}
		sessions = append(sessions, session)
	}

	if len(stale) > 0 {
		s.client.SRem(ctx, sessByUser+userID, stale)
	}
	return sessions, nil
}

func (s *SessionStore) drop(ctx context.Context, session *domain.Session) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, sessKey+session.ID)
	pipe.Del(ctx, sessByTok+session.Token)
	pipe.Del(ctx, sessByRef+session.RefreshToken)
	pipe.SRem(ctx, sessByUser+session.UserID, session.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
