package google

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// TokenSourceAdapter adapts a TokenProvider to oauth2.TokenSource.
// Refresh is owned by the credential gate, so the adapter never refreshes.
type TokenSourceAdapter struct {
	provider driven.TokenProvider
	ctx      context.Context
}

// NewTokenSource creates an oauth2.TokenSource from a TokenProvider.
// The returned TokenSource can be used with option.WithTokenSource() when
// creating Google API services.
func NewTokenSource(ctx context.Context, provider driven.TokenProvider) oauth2.TokenSource {
	return &TokenSourceAdapter{
		provider: provider,
		ctx:      ctx,
	}
}

// Token implements oauth2.TokenSource interface.
func (t *TokenSourceAdapter) Token() (*oauth2.Token, error) {
	accessToken, err := t.provider.GetToken(t.ctx)
	if err != nil {
		return nil, err
	}

	return &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}, nil
}

// CredentialTokenProvider serves the access token of a gated credential.
type CredentialTokenProvider struct {
	cred *domain.Credential
}

// Ensure CredentialTokenProvider implements the interface.
var _ driven.TokenProvider = (*CredentialTokenProvider)(nil)

// NewCredentialTokenProvider wraps a credential returned by the gate.
func NewCredentialTokenProvider(cred *domain.Credential) *CredentialTokenProvider {
	return &CredentialTokenProvider{cred: cred}
}

// GetToken returns the credential's access token.
func (p *CredentialTokenProvider) GetToken(_ context.Context) (string, error) {
	if p.cred == nil || p.cred.AccessToken == "" {
		return "", domain.ErrAuthInvalid
	}
	return p.cred.AccessToken, nil
}
