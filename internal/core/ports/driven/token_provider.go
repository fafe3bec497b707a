package driven

import (
	"context"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// TokenProvider provides access tokens for authenticated API calls.
type TokenProvider interface {
	// GetToken returns the access token to present to the provider.
	GetToken(ctx context.Context) (string, error)
}

// TokenRefresher exchanges refresh tokens with the identity provider.
type TokenRefresher interface {
	// Refresh obtains a new access token.
	// Returns an error wrapping domain.ErrAuthRevoked when the grant is
	// revoked or invalid; any other error is treated as transient.
	Refresh(ctx context.Context, refreshToken string) (*domain.Token, error)
}
