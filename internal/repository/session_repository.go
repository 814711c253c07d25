package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/employee-management/internal/model"
)

// SessionRepo persists logical login sessions (the 'sessions' table).
// Sessions model a human presence per device; they share an account with
// token rows but are not linked to them.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

const sessionCols = "id,account_id,session_token,ip_address,user_agent,device_type,location,login_at,logout_at,last_activity,expires_at,is_active"

// Create inserts a session and fills in the generated ID. A missing
// account maps to ErrNotFound; a duplicate session token to ErrConflict.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO sessions (account_id, session_token, ip_address, user_agent,
		   device_type, location, login_at, last_activity, expires_at, is_active)
		 VALUES (?,?,?,?,?,?,?,?,?,1)`,
		s.AccountID, s.SessionToken, s.IPAddress, s.UserAgent,
		s.DeviceType, s.Location, s.LoginAt, s.LastActivity, s.ExpiresAt)
	if err != nil {
		msg := strings.ToLower(err.Error())
		switch {
		case strings.Contains(msg, "1452"):
			return ErrNotFound
		case strings.Contains(msg, "1062"):
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.IsActive = true
	return nil
}

// GetByToken fetches a session by its unique token string.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (model.Session, error) {
	var (
		s        model.Session
		logoutAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+sessionCols+" FROM sessions WHERE session_token=? LIMIT 1", token).
		Scan(&s.ID, &s.AccountID, &s.SessionToken, &s.IPAddress, &s.UserAgent,
			&s.DeviceType, &s.Location, &s.LoginAt, &logoutAt,
			&s.LastActivity, &s.ExpiresAt, &s.IsActive)
	if err == sql.ErrNoRows {
		return model.Session{}, ErrNotFound
	}
	if err != nil {
		return model.Session{}, err
	}
	if logoutAt.Valid {
		t := logoutAt.Time
		s.LogoutAt = &t
	}
	return s, nil
}

// TerminateByID ends a session, recording the logout time. Terminating an
// already terminated session is an idempotent success.
func (r *SessionRepo) TerminateByID(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET is_active=0, logout_at=UTC_TIMESTAMP() WHERE id=? AND is_active=1",
		id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var exists bool
	if err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM sessions WHERE id=?)", id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

// TerminateAllForAccount ends every active session for the account
// (logout-everywhere) and returns how many were caught.
func (r *SessionRepo) TerminateAllForAccount(ctx context.Context, accountID uint64) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET is_active=0, logout_at=UTC_TIMESTAMP() WHERE account_id=? AND is_active=1",
		accountID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateLastActivity stamps the session with the current time. Called on
// authenticated requests; callers may throttle how often.
func (r *SessionRepo) UpdateLastActivity(ctx context.Context, token string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET last_activity=UTC_TIMESTAMP() WHERE session_token=? AND is_active=1",
		token)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ExtendExpiry pushes the session expiry out to the given time (remember-me).
func (r *SessionRepo) ExtendExpiry(ctx context.Context, token string, until time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET expires_at=? WHERE session_token=? AND is_active=1",
		until, token)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Cleanup hard-deletes every session whose expiry precedes the threshold
// and returns the number of rows removed.
func (r *SessionRepo) Cleanup(ctx context.Context, threshold time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < ?", threshold)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListActiveForAccount returns the account's live sessions, newest first.
func (r *SessionRepo) ListActiveForAccount(ctx context.Context, accountID uint64) ([]model.Session, error) {
	return r.listWhere(ctx, "account_id=? AND is_active=1 AND expires_at > UTC_TIMESTAMP()", accountID)
}

// ListHistory returns every session the account ever opened, newest first.
func (r *SessionRepo) ListHistory(ctx context.Context, accountID uint64) ([]model.Session, error) {
	return r.listWhere(ctx, "account_id=?", accountID)
}

// ListExpired returns sessions past their expiry that have not been purged.
func (r *SessionRepo) ListExpired(ctx context.Context) ([]model.Session, error) {
	return r.listWhere(ctx, "expires_at <= UTC_TIMESTAMP()")
}

// ListInactiveSince returns live sessions with no activity since the cutoff.
func (r *SessionRepo) ListInactiveSince(ctx context.Context, cutoff time.Time) ([]model.Session, error) {
	return r.listWhere(ctx, "is_active=1 AND last_activity < ?", cutoff)
}

// ListByDeviceType filters the account's sessions by device classification.
func (r *SessionRepo) ListByDeviceType(ctx context.Context, accountID uint64, deviceType string) ([]model.Session, error) {
	return r.listWhere(ctx, "account_id=? AND device_type=?", accountID, deviceType)
}

// ListByLocation filters the account's sessions by recorded location.
func (r *SessionRepo) ListByLocation(ctx context.Context, accountID uint64, location string) ([]model.Session, error) {
	return r.listWhere(ctx, "account_id=? AND location=?", accountID, location)
}

func (r *SessionRepo) listWhere(ctx context.Context, where string, args ...interface{}) ([]model.Session, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+sessionCols+" FROM sessions WHERE "+where+" ORDER BY login_at DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Session
	for rows.Next() {
		var (
			s        model.Session
			logoutAt sql.NullTime
		)
		if err := rows.Scan(&s.ID, &s.AccountID, &s.SessionToken, &s.IPAddress, &s.UserAgent,
			&s.DeviceType, &s.Location, &s.LoginAt, &logoutAt,
			&s.LastActivity, &s.ExpiresAt, &s.IsActive); err != nil {
			return nil, err
		}
		if logoutAt.Valid {
			t := logoutAt.Time
			s.LogoutAt = &t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountActiveForAccount returns the number of live sessions for the account.
func (r *SessionRepo) CountActiveForAccount(ctx context.Context, accountID uint64) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE account_id=? AND is_active=1 AND expires_at > UTC_TIMESTAMP()",
		accountID).Scan(&n)
	return n, err
}

// CountActive returns the number of live sessions system-wide.
func (r *SessionRepo) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE is_active=1 AND expires_at > UTC_TIMESTAMP()").Scan(&n)
	return n, err
}

// IsValid reports whether a session with this token exists, is active and
// has not expired.
func (r *SessionRepo) IsValid(ctx context.Context, token string) (bool, error) {
	var ok bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM sessions
		   WHERE session_token=? AND is_active=1 AND expires_at > UTC_TIMESTAMP())`,
		token).Scan(&ok)
	return ok, err
}
