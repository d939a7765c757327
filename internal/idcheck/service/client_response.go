package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/holmwood/idcheck/internal/idcheck/audit"
	"github.com/holmwood/idcheck/internal/idcheck/domain"
	"github.com/holmwood/idcheck/internal/idcheck/store"
	"github.com/holmwood/idcheck/pkg/cryptox"
	"github.com/holmwood/idcheck/pkg/idx"
	"github.com/holmwood/idcheck/pkg/slogx"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNoRedirectURI   = errors.New("session has no redirect URI")
)

// ClientResponseService closes out a verification session: it either mints a
// fresh single-use authorization code and hands back the redirect the relying
// party should follow, or, when the session recorded no verification
// attempts, sends the caller back with access_denied.
type ClientResponseService struct {
	Store store.Store
	Audit *audit.Emitter
}

// ClientResponse is the outcome of ending a session.
type ClientResponse struct {
	RedirectURI string
}

// BuildClientResponse ends the session identified by sessionID. A session
// with zero attempts means the user never completed a verification journey,
// which maps to the access_denied OAuth2 redirect rather than a code.
func (s *ClientResponseService) BuildClientResponse(ctx context.Context, sessionID string) (*ClientResponse, error) {
	l := slogx.FromContext(ctx)

	session, err := s.Store.Sessions().GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if session.AuthParams.RedirectURI == "" {
		return nil, ErrNoRedirectURI
	}

	if session.AttemptCount == 0 {
		l.Info("session ended without verification attempts",
			"resource_id", session.ResourceID,
		)
		redirect, err := accessDeniedRedirect(session.AuthParams)
		if err != nil {
			return nil, err
		}
		s.Audit.Emit(ctx, audit.Event{
			Type:      audit.EventSessionCompleted,
			SessionID: session.ID,
			ClientID:  session.AuthParams.ClientID,
		})
		return &ClientResponse{RedirectURI: redirect}, nil
	}

	code, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return nil, err
	}

	record := domain.AuthorizationCode{
		ID:         idx.New().String(),
		CodeHash:   cryptox.FingerprintToken(code),
		SessionID:  session.ID,
		ResourceID: session.ResourceID,
		CreatedAt:  time.Now(),
	}
	if err := s.Store.AuthorizationCodes().CreateAuthorizationCode(ctx, record); err != nil {
		return nil, fmt.Errorf("persisting authorization code: %w", err)
	}

	redirect, err := codeRedirect(session.AuthParams, code)
	if err != nil {
		return nil, err
	}

	s.Audit.Emit(ctx, audit.Event{
		Type:      audit.EventSessionCompleted,
		SessionID: session.ID,
		ClientID:  session.AuthParams.ClientID,
	})

	return &ClientResponse{RedirectURI: redirect}, nil
}

func codeRedirect(params domain.AuthParams, code string) (string, error) {
	u, err := url.Parse(params.RedirectURI)
	if err != nil {
		return "", fmt.Errorf("parsing session redirect URI: %w", err)
	}

	q := u.Query()
	q.Set("code", code)
	if params.State != "" {
		q.Set("state", params.State)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func accessDeniedRedirect(params domain.AuthParams) (string, error) {
	u, err := url.Parse(params.RedirectURI)
	if err != nil {
		return "", fmt.Errorf("parsing session redirect URI: %w", err)
	}

	q := u.Query()
	q.Set("error", "access_denied")
	q.Set("error_description", "access_denied")
	if params.State != "" {
		q.Set("state", params.State)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
