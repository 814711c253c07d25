// Package queue defines the security events exchanged over the message broker.
package queue

// Event types published on the auth.events queue.
const (
	EventLoginSucceeded = "login_succeeded"
	EventLoginFailed    = "login_failed"
	EventAccountLocked  = "account_locked"
	EventTokenRevoked   = "token_revoked"
	EventBulkRevocation = "bulk_revocation"
	EventSessionsEnded  = "sessions_terminated"
)

// SecurityEvent is published for every authentication-relevant action. It
// carries enough context for downstream consumers to build an audit trail
// without querying the primary database.
type SecurityEvent struct {
	Type      string `json:"type"`
	AccountID uint64 `json:"account_id,omitempty"`
	Username  string `json:"username,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Count     int64  `json:"count,omitempty"`
	At        string `json:"at"`
}
