package driven

import "github.com/quarry-labs/quarry-core/internal/core/domain"

// AuthAdapter covers the cryptographic half of authentication: password
// hashing and JWT signing. Session persistence lives in SessionStore.
type AuthAdapter interface {
	HashPassword(password string) (string, error)

	// VerifyPassword reports whether password matches the stored hash.
	// It never says why a mismatch happened.
	VerifyPassword(password, hash string) bool

	GenerateToken(claims *domain.TokenClaims) (string, error)

	// ParseToken checks the signature and standard claims (including
	// expiry) and returns the embedded domain claims.
	ParseToken(token string) (*domain.TokenClaims, error)
}
