package oauthx

// TokenResponse represents the OAuth2 token endpoint response per RFC 6749.
type TokenResponse struct {
	// AccessToken is the opaque bearer token unlocking the verification
	// result downstream
	AccessToken string `json:"access_token"`

	// TokenType is always "Bearer"
	TokenType string `json:"token_type"`

	// ExpiresIn is the advisory lifetime in seconds of the access token
	ExpiresIn int `json:"expires_in"`
}

// ErrorResponse represents a standard OAuth2 error response body, used when
// parsing responses client-side.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// IntrospectionResponse is returned by the introspection endpoint. When a
// token is inactive only Active is set.
type IntrospectionResponse struct {
	Active bool `json:"active"`

	ResourceID string `json:"resource_id,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
}

// ClientResponse carries the redirect target handed back to the relying
// party when a verification session completes. The redirect URI includes
// either an authorization code and the client's state, or an access_denied
// error.
type ClientResponse struct {
	RedirectURI string `json:"redirect_uri"`
}
