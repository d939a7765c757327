package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/holmwood/idcheck/internal/idcheck/service"
	"github.com/holmwood/idcheck/pkg/httpx"
	"github.com/holmwood/idcheck/pkg/oauthx"
	"github.com/holmwood/idcheck/pkg/slogx"
)

// TokenHandler serves POST /v1/oauth2/token
// Accepts application/x-www-form-urlencoded per the RFC 6749 framework. The
// only supported grant type is authorization_code.
type TokenHandler struct {
	ExchangeService *service.ExchangeService
}

func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		oauthx.ErrInvalidContentType.WriteError(w)
		return
	}

	if err := r.ParseForm(); err != nil {
		oauthx.ErrInvalidFormBody.WriteError(w)
		return
	}

	req := service.ExchangeRequest{
		ClientID:     strings.TrimSpace(r.Form.Get("client_id")),
		ClientSecret: r.Form.Get("client_secret"),
		GrantType:    r.Form.Get("grant_type"),
		Code:         r.Form.Get("code"),
		RedirectURI:  r.Form.Get("redirect_uri"),
	}

	response, err := h.ExchangeService.Exchange(ctx, req)
	if err != nil {
		// Specific invalid_grant causes carry the legacy descriptions; they
		// must be matched before the generic wrap.
		switch {
		case errors.Is(err, service.ErrInvalidClient):
			oauthx.ErrInvalidClient.WriteError(w)
		case errors.Is(err, service.ErrUnsupportedGrantType):
			oauthx.ErrUnsupportedGrantType.WriteError(w)
		case errors.Is(err, service.ErrInvalidRequest):
			oauthx.ErrInvalidRequest.WriteError(w)
		case errors.Is(err, service.ErrCodeExpired):
			oauthx.ErrInvalidGrant.WithDescription("Authorization code expired").WriteError(w)
		case errors.Is(err, service.ErrCodeReplayed):
			oauthx.ErrInvalidGrant.WithDescription("Authorization code used too many times").WriteError(w)
		case errors.Is(err, service.ErrRevokeFailed):
			oauthx.ErrInvalidGrant.WithDescription("Failed to revoke access token").WriteError(w)
		case errors.Is(err, service.ErrInvalidGrant):
			oauthx.ErrInvalidGrant.WriteError(w)
		default:
			log.Error("authorization_code grant failed", "err", err)
			oauthx.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, response)
}
