package domain

import "time"

// AccessToken is the ledger record for an issued bearer token. Keyed by the
// token's SHA-256 fingerprint; the raw bearer value only ever appears in the
// token response.
//
// TTL is advisory to downstream consumers. Revoked tokens stay in the table
// so revocation is visible to resolution, and are cleaned up by housekeeping
// once past their lifetime.
type AccessToken struct {
	ID         string
	TokenHash  string
	ResourceID string
	SessionID  string
	IssuedAt   time.Time
	TTL        time.Duration
	Revoked    bool
}
