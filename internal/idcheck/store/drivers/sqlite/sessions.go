package sqlite

import (
	"context"

	"github.com/holmwood/idcheck/internal/idcheck/domain"
	"github.com/holmwood/idcheck/internal/idcheck/store"
)

type sessionsRepo struct {
	db dbtx
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, redirect_uri, state, client_id, resource_id, attempt_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.AuthParams.RedirectURI, s.AuthParams.State, s.AuthParams.ClientID,
		s.ResourceID, s.AttemptCount, s.CreatedAt,
	)
	return err
}

func (r *sessionsRepo) GetSession(ctx context.Context, id string) (domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, redirect_uri, state, client_id, resource_id, attempt_count, created_at
		FROM sessions
		WHERE id = ?`,
		id,
	)

	var s domain.Session
	if err := row.Scan(
		&s.ID, &s.AuthParams.RedirectURI, &s.AuthParams.State, &s.AuthParams.ClientID,
		&s.ResourceID, &s.AttemptCount, &s.CreatedAt,
	); err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	return s, nil
}

func (r *sessionsRepo) IncrementAttemptCount(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET attempt_count = attempt_count + 1
		WHERE id = ?`,
		id,
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
