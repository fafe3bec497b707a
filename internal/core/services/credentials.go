package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
	"github.com/custodia-labs/calsync/internal/logger"
)

// RefreshBuffer is how long before expiry a token is proactively refreshed.
const RefreshBuffer = 5 * time.Minute

// CredentialGate validates and refreshes a user's access credential before
// any provider call, and owns the disconnection path.
type CredentialGate struct {
	users     driven.UserStore
	refresher driven.TokenRefresher
	notifier  driven.DisconnectNotifier
	buffer    time.Duration
	now       func() time.Time
}

// NewCredentialGate creates a credential gate.
// The refresher and notifier are optional. Without a refresher, expired
// tokens are tried optimistically; without a notifier, disconnection only
// removes the user's configuration.
func NewCredentialGate(
	users driven.UserStore,
	refresher driven.TokenRefresher,
	notifier driven.DisconnectNotifier,
) *CredentialGate {
	return &CredentialGate{
		users:     users,
		refresher: refresher,
		notifier:  notifier,
		buffer:    RefreshBuffer,
		now:       time.Now,
	}
}

// EnsureValidCredential returns a usable credential for the user.
// It returns an error wrapping domain.ErrDisconnected when the user must
// re-authenticate; the caller must make no provider calls for them.
func (g *CredentialGate) EnsureValidCredential(ctx context.Context, userID string) (*domain.Credential, error) {
	log := logger.FromContext(ctx)

	cfg, err := g.users.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrDisconnected)
	}
	if err != nil {
		return nil, fmt.Errorf("get user config: %w", err)
	}

	cred := domain.CredentialFromConfig(userID, cfg)
	if !cred.NeedsRefresh(g.now(), g.buffer) {
		return cred, nil
	}

	if cred.RefreshToken == "" || g.refresher == nil {
		if cred.AccessToken == "" {
			return nil, g.disconnectErr(ctx, userID, "no access or refresh token")
		}
		// Nothing to refresh with. Let the provider decide.
		log.Debug("no refresh available, trying existing token")
		cred.Stale = true
		return cred, nil
	}

	tok, err := g.refresher.Refresh(ctx, cred.RefreshToken)
	switch {
	case errors.Is(err, domain.ErrAuthRevoked):
		return nil, g.disconnectErr(ctx, userID, err.Error())
	case err != nil:
		if cred.AccessToken == "" {
			return nil, fmt.Errorf("%w: %w", domain.ErrTokenRefreshFailed, err)
		}
		log.Warn("token refresh failed, trying previous token: %v", err)
		cred.Stale = true
		return cred, nil
	}

	g.persist(ctx, userID, tok)
	cred.AccessToken = tok.AccessToken
	cred.Expiry = tok.Expiry
	if tok.RefreshToken != "" {
		cred.RefreshToken = tok.RefreshToken
	}
	log.Debug("access token refreshed, expires %s", tok.Expiry.Format(time.RFC3339))
	return cred, nil
}

// HandleAuthFailure reacts to the provider rejecting a credential.
// One refresh is attempted; any failure disconnects the user.
// Returns nil only if a fresh token was obtained.
func (g *CredentialGate) HandleAuthFailure(ctx context.Context, userID string) error {
	cfg, err := g.users.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user config: %w", err)
	}

	refreshToken := cfg.RefreshToken()
	if refreshToken == "" || g.refresher == nil {
		return g.disconnectErr(ctx, userID, "credential rejected, no refresh token")
	}

	tok, err := g.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		return g.disconnectErr(ctx, userID, fmt.Sprintf("credential rejected, refresh failed: %v", err))
	}

	g.persist(ctx, userID, tok)
	return nil
}

// Disconnect notifies the sink's companion channel that the user must
// re-authenticate and, once delivered, removes the user's configuration.
func (g *CredentialGate) Disconnect(ctx context.Context, userID, reason string) error {
	log := logger.FromContext(ctx)
	log.Warn("disconnecting user %s: %s", userID, reason)

	if g.notifier != nil {
		if err := g.notifier.NotifyDisconnected(ctx, userID, reason); err != nil {
			// Keep the config so the next cycle tries again.
			return fmt.Errorf("notify disconnected: %w", err)
		}
	}

	if err := g.users.Delete(ctx, userID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete user config: %w", err)
	}
	return nil
}

// disconnectErr disconnects the user and returns an error wrapping
// domain.ErrDisconnected.
func (g *CredentialGate) disconnectErr(ctx context.Context, userID, reason string) error {
	if err := g.Disconnect(ctx, userID, reason); err != nil {
		logger.FromContext(ctx).Error("disconnect user %s: %v", userID, err)
	}
	return fmt.Errorf("user %s: %w: %s", userID, domain.ErrDisconnected, reason)
}

func (g *CredentialGate) persist(ctx context.Context, userID string, tok *domain.Token) {
	if err := g.users.Merge(ctx, userID, tok.Fields()); err != nil {
		logger.FromContext(ctx).Warn("failed to persist refreshed token for %s: %v", userID, err)
	}
}
