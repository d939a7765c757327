package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/holmwood/idcheck/internal/idcheck/audit"
	"github.com/holmwood/idcheck/internal/idcheck/domain"
	"github.com/holmwood/idcheck/internal/idcheck/store"
	"github.com/holmwood/idcheck/pkg/cryptox"
	"github.com/holmwood/idcheck/pkg/idx"
	"github.com/holmwood/idcheck/pkg/oauthx"
	"github.com/holmwood/idcheck/pkg/slogx"
)

var (
	ErrInvalidClient        = errors.New("invalid_client")
	ErrInvalidRequest       = errors.New("invalid_request")
	ErrUnsupportedGrantType = errors.New("unsupported_grant_type")

	// ErrInvalidGrant covers every grant-validation failure. The specific
	// causes below wrap it so handlers treat them uniformly while audit and
	// logging can tell them apart.
	ErrInvalidGrant = errors.New("invalid_grant")
	ErrCodeExpired  = fmt.Errorf("%w: authorization code expired", ErrInvalidGrant)
	ErrCodeReplayed = fmt.Errorf("%w: authorization code used too many times", ErrInvalidGrant)
	ErrRevokeFailed = fmt.Errorf("%w: failed to revoke access token", ErrInvalidGrant)
)

// ExchangeService redeems a one-time authorization code for a bearer access
// token. Each call is an independent stateless invocation; all state lives
// in the ledgers, and the single-use guarantee rests on the code ledger's
// conditional update, not on in-process locking.
type ExchangeService struct {
	Store    store.Store
	Clients  *ClientAuthenticator
	Audit    *audit.Emitter
	CodeTTL  time.Duration
	TokenTTL time.Duration
}

// ExchangeRequest carries the parsed token request form.
type ExchangeRequest struct {
	ClientID     string
	ClientSecret string
	GrantType    string
	Code         string
	RedirectURI  string
}

// Exchange drives the token exchange: authenticate client, validate the
// grant, look up and validate the code, check the redirect binding against
// the originating session, then mint and persist a token while marking the
// code exchanged in a single commit.
//
// A code presented twice is a replay, not a retry: the previously issued
// token is revoked (best-effort) and the caller gets the same generic
// invalid_grant as for an unknown code.
func (s *ExchangeService) Exchange(ctx context.Context, req ExchangeRequest) (*oauthx.TokenResponse, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)

	// Client authentication runs before any ledger access.
	if err := s.Clients.Authenticate(ctx, req.ClientID, req.ClientSecret); err != nil {
		s.Audit.Emit(ctx, audit.Event{Type: audit.EventClientAuthFailed, ClientID: req.ClientID})
		return nil, err
	}

	if strings.TrimSpace(req.GrantType) != "authorization_code" {
		s.Audit.Emit(ctx, audit.Event{Type: audit.EventMalformedRequest, ClientID: req.ClientID})
		return nil, ErrUnsupportedGrantType
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		s.Audit.Emit(ctx, audit.Event{Type: audit.EventMalformedRequest, ClientID: req.ClientID})
		return nil, fmt.Errorf("%w: code is required", ErrInvalidRequest)
	}
	redirectURI := strings.TrimSpace(req.RedirectURI)

	authCode, err := s.Store.AuthorizationCodes().GetAuthorizationCodeByHash(ctx, cryptox.FingerprintToken(code))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Indistinguishable, to the caller, from an expired or evicted
			// code.
			l.Error("access token could not be issued: authorization code not found")
			s.Audit.Emit(ctx, audit.Event{Type: audit.EventUnknownCode, ClientID: req.ClientID})
			return nil, ErrInvalidGrant
		}
		s.Audit.Emit(ctx, audit.Event{Type: audit.EventExchangeError, ClientID: req.ClientID})
		return nil, err
	}

	// Replay check precedes expiry: an exchanged code is an attack signal
	// even after it has aged out.
	if authCode.Exchanged() {
		return nil, s.handleReplay(ctx, req.ClientID, authCode)
	}

	if s.isExpired(authCode, now) {
		l.Error("access token could not be issued: authorization code expired",
			"created_at", authCode.CreatedAt,
		)
		s.Audit.Emit(ctx, audit.Event{
			Type:      audit.EventCodeExpired,
			SessionID: authCode.SessionID,
			ClientID:  req.ClientID,
		})
		return nil, ErrCodeExpired
	}

	session, err := s.Store.Sessions().GetSession(ctx, authCode.SessionID)
	if err != nil {
		s.Audit.Emit(ctx, audit.Event{Type: audit.EventExchangeError, ClientID: req.ClientID})
		return nil, fmt.Errorf("fetching session for code: %w", err)
	}

	if redirectMismatch(session.AuthParams.RedirectURI, redirectURI) {
		// Do not leak which side was wrong.
		l.Error("redirect URI in token request does not match session",
			"resource_id", authCode.ResourceID,
		)
		s.Audit.Emit(ctx, audit.Event{
			Type:      audit.EventRedirectMismatch,
			SessionID: authCode.SessionID,
			ClientID:  req.ClientID,
		})
		return nil, ErrInvalidGrant
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		s.Audit.Emit(ctx, audit.Event{Type: audit.EventExchangeError, ClientID: req.ClientID})
		return nil, err
	}
	tokenHash := cryptox.FingerprintToken(token)

	record := domain.AccessToken{
		ID:         idx.New().String(),
		TokenHash:  tokenHash,
		ResourceID: authCode.ResourceID,
		SessionID:  authCode.SessionID,
		IssuedAt:   now,
		TTL:        s.TokenTTL,
	}

	// Token persistence and code marking are one commit: the conditional
	// update is the single-use gate, and a lost race rolls the token row
	// back so no second valid token ever survives.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.AccessTokens().CreateAccessToken(ctx, record); err != nil {
			return err
		}

		marked, err := tx.AuthorizationCodes().MarkExchanged(ctx, authCode.CodeHash, tokenHash, now)
		if err != nil {
			return err
		}
		if !marked {
			return ErrCodeReplayed
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCodeReplayed) {
			// A concurrent exchange won the race between our validation read
			// and the conditional update. Re-read to find the winner's token
			// and escalate exactly like a sequential replay.
			current, lookupErr := s.Store.AuthorizationCodes().GetAuthorizationCodeByHash(ctx, authCode.CodeHash)
			if lookupErr != nil {
				s.Audit.Emit(ctx, audit.Event{Type: audit.EventExchangeError, ClientID: req.ClientID})
				return nil, lookupErr
			}
			return nil, s.handleReplay(ctx, req.ClientID, current)
		}
		s.Audit.Emit(ctx, audit.Event{Type: audit.EventExchangeError, ClientID: req.ClientID})
		return nil, err
	}

	s.Audit.Emit(ctx, audit.Event{
		Type:      audit.EventAccessTokenIssued,
		SessionID: authCode.SessionID,
		ClientID:  req.ClientID,
	})

	return &oauthx.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.TokenTTL.Seconds()),
	}, nil
}

// ResolveAccessToken resolves a bearer token to its ledger record. Revoked
// and unknown tokens both return store.ErrNotFound.
func (s *ExchangeService) ResolveAccessToken(ctx context.Context, token string) (domain.AccessToken, error) {
	return s.Store.AccessTokens().GetAccessTokenByHash(ctx, cryptox.FingerprintToken(token))
}

// handleReplay escalates a replayed code: revoke the token it previously
// produced, emit the replay audit signal, and return the generic
// invalid_grant outcome. Revocation is best-effort cleanup; the replay is
// rejected regardless.
func (s *ExchangeService) handleReplay(ctx context.Context, clientID string, authCode domain.AuthorizationCode) error {
	l := slogx.FromContext(ctx)

	l.Error("authorization code has been used multiple times",
		"exchanged_at", authCode.ExchangedAt,
	)
	s.Audit.Emit(ctx, audit.Event{
		Type:      audit.EventCodeReplayed,
		SessionID: authCode.SessionID,
		ClientID:  clientID,
	})

	if authCode.IssuedAccessToken == nil {
		return ErrCodeReplayed
	}

	err := s.Store.AccessTokens().RevokeAccessToken(ctx, *authCode.IssuedAccessToken)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		l.Error("failed to revoke access token issued for replayed code", "error", err)
		return ErrRevokeFailed
	}
	return ErrCodeReplayed
}

// isExpired reports whether the code's age has reached the configured
// lifetime. Expiry is only checked on codes that exist; a found-and-expired
// code is an expected outcome.
func (s *ExchangeService) isExpired(code domain.AuthorizationCode, now time.Time) bool {
	ttl := s.CodeTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return now.Sub(code.CreatedAt) >= ttl
}

// redirectMismatch applies the binding rule: both absent passes, exactly one
// absent fails, otherwise exact string equality.
func redirectMismatch(stored, presented string) bool {
	if stored == "" && presented == "" {
		return false
	}
	if stored == "" || presented == "" {
		return true
	}
	return stored != presented
}
