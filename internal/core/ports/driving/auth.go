package driving

import (
	"context"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
)

// AuthService is the authentication surface the HTTP layer drives.
// Tokens are JWTs backed by a stored session, so revoking the session
// kills the token before its expiry.
type AuthService interface {
	// Authenticate checks credentials and opens a session.
	Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)

	// ValidateToken resolves a bearer token into an auth context.
	// Expired tokens and revoked sessions fail with distinct errors.
	ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error)

	// RefreshToken rotates a session: the old token pair dies, a new one
	// is issued.
	RefreshToken(ctx context.Context, req domain.RefreshRequest) (*domain.LoginResponse, error)

	// Logout closes the session behind the given token.
	Logout(ctx context.Context, token string) error

	// LogoutAll closes every session the user holds.
	LogoutAll(ctx context.Context, userID string) error

	// ChangePassword verifies the current password before setting the new
	// one, then closes all sessions.
	ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error
}
