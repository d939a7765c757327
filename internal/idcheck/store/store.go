package store

import (
	"context"
	"errors"
	"time"

	"github.com/holmwood/idcheck/internal/idcheck/domain"
)

var ErrNotFound = errors.New("store: not found")

// Store is the root data access interface. Concrete drivers (sqlite today)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable.
type Store interface {
	AuthorizationCodes() AuthorizationCodes
	AccessTokens() AccessTokens
	Sessions() Sessions

	ApplyMigrations() error

	// WithTx executes a function within a transaction. If fn returns an
	// error the transaction is rolled back, otherwise it is committed. The
	// token exchange uses this to make token persistence and code marking a
	// single commit.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transaction-scoped store.
type Tx interface {
	AuthorizationCodes() AuthorizationCodes
	AccessTokens() AccessTokens
	Sessions() Sessions
}

type AuthorizationCodes interface {
	// CreateAuthorizationCode stores a freshly minted code record with no
	// issued access token.
	CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error

	// GetAuthorizationCodeByHash fetches a code record by fingerprint.
	// Returns ErrNotFound when the code is unknown; that is an expected
	// outcome, not an infrastructure failure.
	GetAuthorizationCodeByHash(ctx context.Context, hash string) (domain.AuthorizationCode, error)

	// MarkExchanged conditionally records the issued token fingerprint on a
	// code. The update succeeds only if issued_access_token was still null;
	// it reports false when another exchange won the race. This is the only
	// mutation the table ever sees.
	MarkExchanged(ctx context.Context, codeHash, tokenHash string, at time.Time) (bool, error)

	// DeleteAuthorizationCodesCreatedBefore evicts codes older than the
	// retention cutoff. Exchanged codes inside the window are kept for
	// replay detection.
	DeleteAuthorizationCodesCreatedBefore(ctx context.Context, cutoff time.Time) error
}

type AccessTokens interface {
	// CreateAccessToken stores a new token record.
	CreateAccessToken(ctx context.Context, t domain.AccessToken) error

	// GetAccessTokenByHash resolves a token fingerprint to its record.
	// Revoked tokens return ErrNotFound, indistinguishable from tokens that
	// never existed.
	GetAccessTokenByHash(ctx context.Context, hash string) (domain.AccessToken, error)

	// RevokeAccessToken invalidates a previously issued token. Returns
	// ErrNotFound when the token cannot be located (already revoked or
	// never issued).
	RevokeAccessToken(ctx context.Context, hash string) error

	// DeleteExpiredAccessTokens removes tokens past their advisory lifetime.
	DeleteExpiredAccessTokens(ctx context.Context, now time.Time) error
}

type Sessions interface {
	// CreateSession inserts a verification session. Called by the upstream
	// flow, not by the exchange engine.
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSession returns a session by id.
	GetSession(ctx context.Context, id string) (domain.Session, error)

	// IncrementAttemptCount bumps the verification attempt counter.
	IncrementAttemptCount(ctx context.Context, id string) error
}
