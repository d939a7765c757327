package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/holmwood/idcheck/internal/idcheck/domain"
)

type authorizationCodesRepo struct {
	db dbtx
}

func (r *authorizationCodesRepo) CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO authorization_codes (id, code_hash, session_id, resource_id, issued_access_token, exchanged_at, created_at)
		VALUES (?, ?, ?, ?, NULL, NULL, ?)`,
		code.ID, code.CodeHash, code.SessionID, code.ResourceID, code.CreatedAt,
	)
	return err
}

func (r *authorizationCodesRepo) GetAuthorizationCodeByHash(ctx context.Context, hash string) (domain.AuthorizationCode, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, code_hash, session_id, resource_id, issued_access_token, exchanged_at, created_at
		FROM authorization_codes
		WHERE code_hash = ?`,
		hash,
	)

	var (
		c         domain.AuthorizationCode
		issued    sql.NullString
		exchanged sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.CodeHash, &c.SessionID, &c.ResourceID, &issued, &exchanged, &c.CreatedAt); err != nil {
		return domain.AuthorizationCode{}, mapNotFound(err)
	}

	c.IssuedAccessToken = mapNullString(issued)
	c.ExchangedAt = mapNullTime(exchanged)
	return c, nil
}

// MarkExchanged is the compare-and-set guard behind single-use codes. The
// WHERE clause only matches while issued_access_token is still null, so of
// any number of concurrent exchange attempts exactly one observes a row
// update.
func (r *authorizationCodesRepo) MarkExchanged(ctx context.Context, codeHash, tokenHash string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE authorization_codes
		SET issued_access_token = ?, exchanged_at = ?
		WHERE code_hash = ? AND issued_access_token IS NULL`,
		tokenHash, at, codeHash,
	)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *authorizationCodesRepo) DeleteAuthorizationCodesCreatedBefore(ctx context.Context, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM authorization_codes
		WHERE created_at < ?`,
		cutoff,
	)
	return err
}
