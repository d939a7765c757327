package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/holmwood/idcheck/internal/idcheck/domain"
	"github.com/holmwood/idcheck/internal/idcheck/store"
	"github.com/holmwood/idcheck/pkg/cryptox"
	"github.com/holmwood/idcheck/pkg/idx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())
	return st
}

func seedTestSession(t *testing.T, st *Store) domain.Session {
	t.Helper()

	session := domain.Session{
		ID: idx.New().String(),
		AuthParams: domain.AuthParams{
			RedirectURI: "https://relying-party.example/callback",
			State:       "state",
			ClientID:    "passport-web",
		},
		ResourceID:   idx.New().String(),
		AttemptCount: 0,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, st.Sessions().CreateSession(context.Background(), session))
	return session
}

func seedTestCode(t *testing.T, st *Store, session domain.Session) domain.AuthorizationCode {
	t.Helper()

	code := domain.AuthorizationCode{
		ID:         idx.New().String(),
		CodeHash:   cryptox.FingerprintToken(idx.New().String()),
		SessionID:  session.ID,
		ResourceID: session.ResourceID,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, st.AuthorizationCodes().CreateAuthorizationCode(context.Background(), code))
	return code
}

func TestMarkExchangedIsSingleShot(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	session := seedTestSession(t, st)
	code := seedTestCode(t, st, session)

	now := time.Now()

	marked, err := st.AuthorizationCodes().MarkExchanged(ctx, code.CodeHash, "token-hash-1", now)
	require.NoError(t, err)
	require.True(t, marked)

	// Second attempt must lose and must not overwrite the original marking.
	marked, err = st.AuthorizationCodes().MarkExchanged(ctx, code.CodeHash, "token-hash-2", now.Add(time.Second))
	require.NoError(t, err)
	require.False(t, marked)

	record, err := st.AuthorizationCodes().GetAuthorizationCodeByHash(ctx, code.CodeHash)
	require.NoError(t, err)
	require.True(t, record.Exchanged())
	require.Equal(t, "token-hash-1", *record.IssuedAccessToken)
	require.NotNil(t, record.ExchangedAt)
}

func TestMarkExchangedUnknownCode(t *testing.T) {
	st := newTestStore(t)

	marked, err := st.AuthorizationCodes().MarkExchanged(context.Background(), "missing", "token-hash", time.Now())
	require.NoError(t, err)
	require.False(t, marked)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	session := seedTestSession(t, st)
	code := seedTestCode(t, st, session)

	token := domain.AccessToken{
		ID:         idx.New().String(),
		TokenHash:  "tx-token-hash",
		ResourceID: session.ResourceID,
		SessionID:  session.ID,
		IssuedAt:   time.Now(),
		TTL:        time.Hour,
	}

	sentinel := errors.New("abort")
	err := st.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.AccessTokens().CreateAccessToken(ctx, token); err != nil {
			return err
		}
		if _, err := tx.AuthorizationCodes().MarkExchanged(ctx, code.CodeHash, token.TokenHash, time.Now()); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	// Neither the token row nor the marking survive the rollback.
	_, err = st.AccessTokens().GetAccessTokenByHash(ctx, token.TokenHash)
	require.ErrorIs(t, err, store.ErrNotFound)

	record, err := st.AuthorizationCodes().GetAuthorizationCodeByHash(ctx, code.CodeHash)
	require.NoError(t, err)
	require.False(t, record.Exchanged())
}

func TestWithTxCommits(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	session := seedTestSession(t, st)
	code := seedTestCode(t, st, session)

	token := domain.AccessToken{
		ID:         idx.New().String(),
		TokenHash:  "committed-token-hash",
		ResourceID: session.ResourceID,
		SessionID:  session.ID,
		IssuedAt:   time.Now(),
		TTL:        time.Hour,
	}

	err := st.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.AccessTokens().CreateAccessToken(ctx, token); err != nil {
			return err
		}
		_, err := tx.AuthorizationCodes().MarkExchanged(ctx, code.CodeHash, token.TokenHash, time.Now())
		return err
	})
	require.NoError(t, err)

	fetched, err := st.AccessTokens().GetAccessTokenByHash(ctx, token.TokenHash)
	require.NoError(t, err)
	require.Equal(t, session.ResourceID, fetched.ResourceID)
	require.Equal(t, time.Hour, fetched.TTL)
}

func TestRevokeAccessToken(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	session := seedTestSession(t, st)

	token := domain.AccessToken{
		ID:         idx.New().String(),
		TokenHash:  "revocable-token-hash",
		ResourceID: session.ResourceID,
		SessionID:  session.ID,
		IssuedAt:   time.Now(),
		TTL:        time.Hour,
	}
	require.NoError(t, st.AccessTokens().CreateAccessToken(ctx, token))

	require.NoError(t, st.AccessTokens().RevokeAccessToken(ctx, token.TokenHash))

	// Revoked tokens are invisible to lookups and to repeat revocations.
	_, err := st.AccessTokens().GetAccessTokenByHash(ctx, token.TokenHash)
	require.ErrorIs(t, err, store.ErrNotFound)

	err = st.AccessTokens().RevokeAccessToken(ctx, token.TokenHash)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSessionAttemptCount(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	session := seedTestSession(t, st)

	require.NoError(t, st.Sessions().IncrementAttemptCount(ctx, session.ID))
	require.NoError(t, st.Sessions().IncrementAttemptCount(ctx, session.ID))

	fetched, err := st.Sessions().GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, 2, fetched.AttemptCount)

	require.ErrorIs(t, st.Sessions().IncrementAttemptCount(ctx, "missing"), store.ErrNotFound)
}

func TestGetSessionNotFound(t *testing.T) {
	st := newTestStore(t)

	_, err := st.Sessions().GetSession(context.Background(), "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDuplicateCodeHashRejected(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	session := seedTestSession(t, st)
	code := seedTestCode(t, st, session)

	dup := code
	dup.ID = idx.New().String()
	require.Error(t, st.AuthorizationCodes().CreateAuthorizationCode(ctx, dup))
}
