package domain

import "time"

// AuthParams are the OAuth2 request parameters captured when the relying
// party started the user's verification flow. The stored redirect URI is the
// binding target the token exchange validates against.
type AuthParams struct {
	RedirectURI string
	State       string
	ClientID    string
}

// Session is a verification session created by the upstream flow. The
// exchange engine only reads it; AttemptCount is mutated by the verification
// steps and consulted when building the client response.
type Session struct {
	ID           string
	AuthParams   AuthParams
	ResourceID   string
	AttemptCount int
	CreatedAt    time.Time
}
