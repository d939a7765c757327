package sqlite

import (
	"context"
	"time"

	"github.com/holmwood/idcheck/internal/idcheck/domain"
	"github.com/holmwood/idcheck/internal/idcheck/store"
)

type accessTokensRepo struct {
	db dbtx
}

func (r *accessTokensRepo) CreateAccessToken(ctx context.Context, t domain.AccessToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO access_tokens (id, token_hash, resource_id, session_id, issued_at, ttl_seconds, revoked)
		VALUES (?, ?, ?, ?, ?, ?, 0)`,
		t.ID, t.TokenHash, t.ResourceID, t.SessionID, t.IssuedAt, int64(t.TTL.Seconds()),
	)
	return err
}

func (r *accessTokensRepo) GetAccessTokenByHash(ctx context.Context, hash string) (domain.AccessToken, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, token_hash, resource_id, session_id, issued_at, ttl_seconds, revoked
		FROM access_tokens
		WHERE token_hash = ? AND revoked = 0`,
		hash,
	)

	var (
		t          domain.AccessToken
		ttlSeconds int64
	)
	if err := row.Scan(&t.ID, &t.TokenHash, &t.ResourceID, &t.SessionID, &t.IssuedAt, &ttlSeconds, &t.Revoked); err != nil {
		return domain.AccessToken{}, mapNotFound(err)
	}

	t.TTL = time.Duration(ttlSeconds) * time.Second
	return t, nil
}

func (r *accessTokensRepo) RevokeAccessToken(ctx context.Context, hash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE access_tokens
		SET revoked = 1
		WHERE token_hash = ? AND revoked = 0`,
		hash,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *accessTokensRepo) DeleteExpiredAccessTokens(ctx context.Context, now time.Time) error {
	// ttl_seconds is advisory to consumers but still bounds retention here.
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM access_tokens
		WHERE datetime(issued_at, '+' || ttl_seconds || ' seconds') < datetime(?)`,
		now,
	)
	return err
}
