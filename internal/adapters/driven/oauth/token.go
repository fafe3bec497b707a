// Package oauth exchanges refresh tokens for access tokens with Google's
// OAuth 2.0 token endpoint.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// Ensure Refresher implements the TokenRefresher interface.
var _ driven.TokenRefresher = (*Refresher)(nil)

// DefaultTimeout bounds a single token request.
const DefaultTimeout = 30 * time.Second

// revokedCodes are the token endpoint error codes that mean the grant is gone.
var revokedCodes = map[string]bool{
	"invalid_grant":       true,
	"unauthorized_client": true,
	"invalid_client":      true,
}

// Refresher performs the refresh_token grant.
type Refresher struct {
	config *oauth2.Config
	client *http.Client
}

// NewRefresher creates a refresher for the given OAuth client.
// An empty TokenURL uses Google's endpoint.
func NewRefresher(settings domain.GoogleSettings) *Refresher {
	endpoint := google.Endpoint
	if settings.TokenURL != "" {
		endpoint = oauth2.Endpoint{
			AuthURL:   google.Endpoint.AuthURL,
			TokenURL:  settings.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		}
	}

	return &Refresher{
		config: &oauth2.Config{
			ClientID:     settings.ClientID,
			ClientSecret: settings.ClientSecret,
			Endpoint:     endpoint,
		},
		client: &http.Client{Timeout: DefaultTimeout},
	}
}

// Refresh exchanges the refresh token for a new access token.
func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (*domain.Token, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: empty refresh token", domain.ErrAuthRevoked)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.client)
	tok, err := r.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, classifyRefreshError(err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: token response has no access token", domain.ErrTransient)
	}

	result := &domain.Token{
		AccessToken: tok.AccessToken,
		Expiry:      tok.Expiry,
	}
	// The oauth2 package carries the old refresh token forward when the
	// endpoint did not rotate it.
	if tok.RefreshToken != refreshToken {
		result.RefreshToken = tok.RefreshToken
	}
	return result, nil
}

func classifyRefreshError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if revokedCodes[retrieveErr.ErrorCode] {
			return fmt.Errorf("%w: %w", domain.ErrAuthRevoked, err)
		}
		if retrieveErr.Response != nil && retrieveErr.Response.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %w", domain.ErrAuthRevoked, err)
		}
	}
	return fmt.Errorf("%w: refresh token: %w", domain.ErrTransient, err)
}
