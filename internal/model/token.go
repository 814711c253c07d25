package model

import "time"

// Token models a row in the `tokens` table: one row per issued
// access/refresh pair.  A token is usable for authentication only while
// !Revoked && now < ExpiresAt.  Rotation additionally requires the access
// expiry (ExpiresAt) to be in the future, not just the refresh expiry.
//
// Fields:
//  ID               – primary key identifier.
//  AccountID        – owner of the pair.
//  AccessToken      – the signed JWT string as issued.
//  RefreshToken     – the opaque refresh secret.
//  ExpiresAt        – access-token expiry.
//  RefreshExpiresAt – refresh-token expiry.
//  Revoked          – whether the pair has been revoked.
//  RevokedReason    – free-text reason recorded at revocation (nullable).
//  RevokedAt        – when the pair was revoked (nullable).
//  IPAddress        – client IP recorded at issuance.
//  UserAgent        – client user agent recorded at issuance.
//  CreatedAt        – timestamp of issuance.
type Token struct {
	ID               uint64     // tokens.id
	AccountID        uint64     // tokens.account_id
	AccessToken      string     // tokens.access_token
	RefreshToken     string     // tokens.refresh_token
	ExpiresAt        time.Time  // tokens.expires_at
	RefreshExpiresAt time.Time  // tokens.refresh_expires_at
	Revoked          bool       // tokens.revoked
	RevokedReason    *string    // tokens.revoked_reason (nullable)
	RevokedAt        *time.Time // tokens.revoked_at (nullable)
	IPAddress        string     // tokens.ip_address
	UserAgent        string     // tokens.user_agent
	CreatedAt        time.Time  // tokens.created_at
}

// Usable reports whether the token may still authenticate at the given time.
func (t *Token) Usable(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}
