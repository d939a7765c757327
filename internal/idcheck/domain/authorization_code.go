package domain

import "time"

// AuthorizationCode is the ledger record for a one-time authorization code
// issued when a verification session completes. The raw code value is never
// stored; the record is keyed by its SHA-256 fingerprint.
//
// IssuedAccessToken is nil until the code is exchanged, then set exactly
// once. A record with a non-nil IssuedAccessToken that is presented again is
// a replay. Records are retained after exchange for replay detection and are
// only evicted once they age past the configured retention window.
type AuthorizationCode struct {
	ID         string
	CodeHash   string
	SessionID  string
	ResourceID string

	// IssuedAccessToken holds the fingerprint of the token minted for this
	// code, nil until the first successful exchange.
	IssuedAccessToken *string
	ExchangedAt       *time.Time

	CreatedAt time.Time
}

// Exchanged reports whether the code has already been redeemed.
func (c AuthorizationCode) Exchanged() bool {
	return c.IssuedAccessToken != nil
}
