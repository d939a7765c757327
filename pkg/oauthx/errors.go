// Package oauthx provides RFC 6749 error and response types shared by the
// HTTP handlers and any client of the service.
package oauthx

import (
	"fmt"
	"net/http"

	"github.com/holmwood/idcheck/pkg/httpx"
)

// OAuth2 error codes per RFC 6749.
const (
	ErrorCodeInvalidRequest       = "invalid_request"
	ErrorCodeInvalidClient        = "invalid_client"
	ErrorCodeInvalidGrant         = "invalid_grant"
	ErrorCodeUnsupportedGrantType = "unsupported_grant_type"
	ErrorCodeAccessDenied         = "access_denied"
	ErrorCodeServerError          = "server_error"
)

// Error represents a standard OAuth2 error response per RFC 6749. It
// implements the error interface and can be written directly to an HTTP
// response.
type Error struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Code is the OAuth2 error code (e.g., "invalid_request", "invalid_grant")
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WithDescription returns a copy of the error carrying a different
// description. The status and error code are preserved so callers cannot be
// given a discriminating status oracle.
func (e *Error) WithDescription(description string) *Error {
	return &Error{
		StatusCode:  e.StatusCode,
		Code:        e.Code,
		Description: description,
	}
}

// WriteError writes this Error to an HTTP response writer as an OAuth2
// `{error, error_description}` body.
func (e *Error) WriteError(w http.ResponseWriter) {
	body := map[string]string{"error": e.Code}
	if e.Description != "" {
		body["error_description"] = e.Description
	}
	httpx.WriteJSON(w, e.StatusCode, body)
}

var (
	// ErrInvalidRequest is returned when the request is missing a required
	// parameter or is otherwise malformed.
	ErrInvalidRequest = &Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	// ErrInvalidClient is returned when client authentication failed.
	ErrInvalidClient = &Error{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidClient,
		Description: "client authentication failed",
	}

	// ErrInvalidGrant is returned when the provided authorization code is
	// unknown, expired, already exchanged, or bound to a different redirect
	// URI. All of those causes share this error code so the caller cannot
	// distinguish them.
	ErrInvalidGrant = &Error{
		StatusCode: http.StatusBadRequest,
		Code:       ErrorCodeInvalidGrant,
	}

	// ErrUnsupportedGrantType is returned when the grant type is not
	// authorization_code.
	ErrUnsupportedGrantType = &Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeUnsupportedGrantType,
		Description: "grant type not supported",
	}

	// ErrServerError is returned when a ledger or other infrastructure
	// dependency failed.
	ErrServerError = &Error{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}

	// ErrInvalidContentType is returned when the Content-Type header is not
	// application/x-www-form-urlencoded.
	ErrInvalidContentType = &Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "content-type must be application/x-www-form-urlencoded",
	}

	// ErrInvalidFormBody is returned when the form body cannot be parsed.
	ErrInvalidFormBody = &Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "invalid form body",
	}
)
