package service

import (
	"context"
	"log/slog"

	"github.com/holmwood/idcheck/pkg/cryptox"
	"github.com/holmwood/idcheck/pkg/slogx"
)

// ClientAuthenticator verifies that the caller presenting a grant is a
// registered relying party. Credentials come from configuration, loaded once
// at process start and immutable afterwards. Authentication always runs
// before any ledger access so unauthenticated callers learn nothing about
// code existence.
type ClientAuthenticator struct {
	// SecretHashes maps client_id to the argon2id PHC hash of its secret.
	SecretHashes map[string]string
}

// Authenticate checks the presented credentials against the registered
// clients. Returns ErrInvalidClient on any failure; the reason is logged,
// never returned to the caller.
func (a *ClientAuthenticator) Authenticate(ctx context.Context, clientID, clientSecret string) error {
	l := slogx.FromContext(ctx)

	if clientID == "" || clientSecret == "" {
		return ErrInvalidClient
	}

	hash, ok := a.SecretHashes[clientID]
	if !ok {
		l.Info("token exchange client authentication failed: unknown client", slog.String("client_id", clientID))
		return ErrInvalidClient
	}

	if err := cryptox.VerifySecret(clientSecret, hash); err != nil {
		l.Info("token exchange client authentication failed", slog.String("client_id", clientID))
		return ErrInvalidClient
	}

	return nil
}
