package model

import "time"

// Session models a row in the `sessions` table: one row per login event.
// A session is a logical presence (device tracking, concurrent-session
// limits) while a Token is a credential artifact; the two share an account
// but are not linked to each other by foreign key.
//
// Fields:
//  ID           – primary key identifier.
//  AccountID    – owner of the session.
//  SessionToken – unique opaque identifier handed to the client.
//  IPAddress    – client IP recorded at login.
//  UserAgent    – client user agent recorded at login.
//  DeviceType   – coarse device classification ("web", "mobile", ...).
//  Location     – optional coarse location string.
//  LoginAt      – when the session started.
//  LogoutAt     – when the session was terminated (nullable).
//  LastActivity – last authenticated request seen on this session.
//  ExpiresAt    – session expiry.
//  IsActive     – false once terminated.
type Session struct {
	ID           uint64     // sessions.id
	AccountID    uint64     // sessions.account_id
	SessionToken string     // sessions.session_token (unique)
	IPAddress    string     // sessions.ip_address
	UserAgent    string     // sessions.user_agent
	DeviceType   string     // sessions.device_type
	Location     string     // sessions.location
	LoginAt      time.Time  // sessions.login_at
	LogoutAt     *time.Time // sessions.logout_at (nullable)
	LastActivity time.Time  // sessions.last_activity
	ExpiresAt    time.Time  // sessions.expires_at
	IsActive     bool       // sessions.is_active
}

// Valid reports whether the session still authenticates at the given time.
func (s *Session) Valid(now time.Time) bool {
	return s.IsActive && now.Before(s.ExpiresAt)
}
