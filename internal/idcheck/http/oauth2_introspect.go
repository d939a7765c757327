package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/holmwood/idcheck/internal/idcheck/service"
	"github.com/holmwood/idcheck/internal/idcheck/store"
	"github.com/holmwood/idcheck/pkg/httpx"
	"github.com/holmwood/idcheck/pkg/oauthx"
	"github.com/holmwood/idcheck/pkg/slogx"
)

// IntrospectHandler serves POST /v1/oauth2/introspect
// Resource servers present a bearer token and their client credentials and
// learn whether the token is active. Per RFC 7662 an unknown, expired, or
// revoked token is reported as inactive, never as an error.
type IntrospectHandler struct {
	ExchangeService *service.ExchangeService
	Clients         *service.ClientAuthenticator
}

func (h *IntrospectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	clientID := strings.TrimSpace(r.Form.Get("client_id"))
	clientSecret := r.Form.Get("client_secret")
	token := strings.TrimSpace(r.Form.Get("token"))

	if err := h.Clients.Authenticate(ctx, clientID, clientSecret); err != nil {
		oauthx.ErrInvalidClient.WriteError(w)
		return
	}

	if token == "" {
		oauthx.ErrInvalidRequest.WriteError(w)
		return
	}

	record, err := h.ExchangeService.ResolveAccessToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteJSON(w, http.StatusOK, oauthx.IntrospectionResponse{Active: false})
			return
		}
		log.Error("token introspection failed", "err", err)
		oauthx.ErrServerError.WriteError(w)
		return
	}

	if record.TTL > 0 && time.Since(record.IssuedAt) >= record.TTL {
		httpx.WriteJSON(w, http.StatusOK, oauthx.IntrospectionResponse{Active: false})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, oauthx.IntrospectionResponse{
		Active:     true,
		ResourceID: record.ResourceID,
		SessionID:  record.SessionID,
	})
}
