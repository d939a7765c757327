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

// ClientResponseHandler serves POST /v1/sessions/client-response
// Called by the verification front end when a session ends. The session is
// identified by the session-id header; the response carries the redirect URI
// the relying party should be sent to.
type ClientResponseHandler struct {
	ClientResponseService *service.ClientResponseService
}

func (h *ClientResponseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	sessionID := strings.TrimSpace(r.Header.Get("session-id"))
	if sessionID == "" {
		oauthx.ErrInvalidRequest.WithDescription("session-id header is required").WriteError(w)
		return
	}

	response, err := h.ClientResponseService.BuildClientResponse(ctx, sessionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			oauthx.ErrInvalidRequest.WithDescription("unknown session").WriteError(w)
		case errors.Is(err, service.ErrNoRedirectURI):
			oauthx.ErrInvalidRequest.WithDescription("session has no redirect URI").WriteError(w)
		default:
			log.Error("building client response failed", "err", err)
			oauthx.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, oauthx.ClientResponse{RedirectURI: response.RedirectURI})
}
