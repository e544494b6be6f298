package driven

import (
	"context"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
)

// SessionStore persists login sessions. The Redis backend expires them
// via TTL; the PostgreSQL backend filters expired rows on read.
// Lookups for a missing session return domain.ErrNotFound.
type SessionStore interface {
	// Save upserts a session; token rotation reuses the session ID.
	Save(ctx context.Context, session *domain.Session) error

	Get(ctx context.Context, id string) (*domain.Session, error)
	GetByToken(ctx context.Context, token string) (*domain.Session, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error)

	Delete(ctx context.Context, id string) error
	DeleteByToken(ctx context.Context, token string) error

	// DeleteByUser closes every session the user holds (logout everywhere).
	DeleteByUser(ctx context.Context, userID string) error

	// ListByUser lists the user's live sessions.
	ListByUser(ctx context.Context, userID string) ([]*domain.Session, error)
}
