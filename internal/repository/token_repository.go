package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/employee-management/internal/model"
)

// TokenRepo persists issued access/refresh pairs (the 'tokens' table).
// A pair authenticates only while !revoked && now < expires_at; rotation
// additionally requires the access expiry to be in the future.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

const tokenCols = "id,account_id,access_token,refresh_token,expires_at,refresh_expires_at,revoked,revoked_reason,revoked_at,ip_address,user_agent,created_at"

// Create inserts a freshly issued pair and fills in the generated ID.
// A missing account maps to ErrNotFound via the FK failure.
func (r *TokenRepo) Create(ctx context.Context, t *model.Token) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO tokens (account_id, access_token, refresh_token,
		   expires_at, refresh_expires_at, ip_address, user_agent)
		 VALUES (?,?,?,?,?,?,?)`,
		t.AccountID, t.AccessToken, t.RefreshToken,
		t.ExpiresAt, t.RefreshExpiresAt, t.IPAddress, t.UserAgent)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1452") {
			return ErrNotFound
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// GetByID fetches a pair by id.
func (r *TokenRepo) GetByID(ctx context.Context, id uint64) (model.Token, error) {
	return r.getWhere(ctx, "id=?", id)
}

// GetByAccessToken fetches a pair by its access-token string.
func (r *TokenRepo) GetByAccessToken(ctx context.Context, access string) (model.Token, error) {
	return r.getWhere(ctx, "access_token=?", access)
}

// GetByRefreshToken fetches a pair by its refresh-token string.
func (r *TokenRepo) GetByRefreshToken(ctx context.Context, refresh string) (model.Token, error) {
	return r.getWhere(ctx, "refresh_token=?", refresh)
}

func (r *TokenRepo) getWhere(ctx context.Context, where string, args ...interface{}) (model.Token, error) {
	var (
		t      model.Token
		reason sql.NullString
		revAt  sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+tokenCols+" FROM tokens WHERE "+where+" LIMIT 1", args...).
		Scan(&t.ID, &t.AccountID, &t.AccessToken, &t.RefreshToken,
			&t.ExpiresAt, &t.RefreshExpiresAt, &t.Revoked, &reason, &revAt,
			&t.IPAddress, &t.UserAgent, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return model.Token{}, ErrNotFound
	}
	if err != nil {
		return model.Token{}, err
	}
	if reason.Valid {
		s := reason.String
		t.RevokedReason = &s
	}
	if revAt.Valid {
		at := revAt.Time
		t.RevokedAt = &at
	}
	return t, nil
}

// RevokeByID marks a pair revoked with a reason. Revoking an already
// revoked pair is an idempotent success; only a missing row is an error.
func (r *TokenRepo) RevokeByID(ctx context.Context, id uint64, reason string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE tokens SET revoked=1, revoked_reason=?, revoked_at=UTC_TIMESTAMP() WHERE id=? AND revoked=0",
		reason, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var exists bool
	if err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM tokens WHERE id=?)", id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return nil // already revoked
}

// RevokeAllForAccount bulk-revokes the account's currently active,
// non-expired pairs and returns how many were caught. Runs as a single
// statement; a pair issued concurrently may or may not be included
// (last-write-wins, accepted).
func (r *TokenRepo) RevokeAllForAccount(ctx context.Context, accountID uint64, reason string) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE tokens SET revoked=1, revoked_reason=?, revoked_at=UTC_TIMESTAMP()
		 WHERE account_id=? AND revoked=0 AND expires_at > UTC_TIMESTAMP()`,
		reason, accountID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RevokeByIP bulk-revokes all active pairs issued from the given IP.
// Incident-response primitive; same race posture as RevokeAllForAccount.
func (r *TokenRepo) RevokeByIP(ctx context.Context, ip, reason string) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE tokens SET revoked=1, revoked_reason=?, revoked_at=UTC_TIMESTAMP()
		 WHERE ip_address=? AND revoked=0 AND expires_at > UTC_TIMESTAMP()`,
		reason, ip)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RotateRefresh replaces the refresh-token string and expiry on an existing
// pair. Rotation is refused once the pair is revoked or its access expiry
// has passed: an access-expired pair forces a full re-login rather than a
// silent refresh.
func (r *TokenRepo) RotateRefresh(ctx context.Context, oldRefresh, newRefresh string, newExp time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE tokens SET refresh_token=?, refresh_expires_at=?
		 WHERE refresh_token=? AND revoked=0 AND expires_at > UTC_TIMESTAMP()`,
		newRefresh, newExp, oldRefresh)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var exists bool
	if err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM tokens WHERE refresh_token=?)", oldRefresh).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrInvalidState
}

// Cleanup hard-deletes every pair whose access expiry precedes the
// threshold and returns the number of rows removed.
func (r *TokenRepo) Cleanup(ctx context.Context, threshold time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM tokens WHERE expires_at < ?", threshold)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListActive returns the account's non-revoked, non-expired pairs.
func (r *TokenRepo) ListActive(ctx context.Context, accountID uint64) ([]model.Token, error) {
	return r.listWhere(ctx, "account_id=? AND revoked=0 AND expires_at > UTC_TIMESTAMP()", accountID)
}

// ListExpired returns the account's pairs past their access expiry.
func (r *TokenRepo) ListExpired(ctx context.Context, accountID uint64) ([]model.Token, error) {
	return r.listWhere(ctx, "account_id=? AND expires_at <= UTC_TIMESTAMP()", accountID)
}

// ListRevoked returns the account's revoked pairs.
func (r *TokenRepo) ListRevoked(ctx context.Context, accountID uint64) ([]model.Token, error) {
	return r.listWhere(ctx, "account_id=? AND revoked=1", accountID)
}

// ListHistory returns every pair ever issued to the account, newest first.
func (r *TokenRepo) ListHistory(ctx context.Context, accountID uint64) ([]model.Token, error) {
	return r.listWhere(ctx, "account_id=?", accountID)
}

func (r *TokenRepo) listWhere(ctx context.Context, where string, args ...interface{}) ([]model.Token, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+tokenCols+" FROM tokens WHERE "+where+" ORDER BY created_at DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Token
	for rows.Next() {
		var (
			t      model.Token
			reason sql.NullString
			revAt  sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.AccountID, &t.AccessToken, &t.RefreshToken,
			&t.ExpiresAt, &t.RefreshExpiresAt, &t.Revoked, &reason, &revAt,
			&t.IPAddress, &t.UserAgent, &t.CreatedAt); err != nil {
			return nil, err
		}
		if reason.Valid {
			s := reason.String
			t.RevokedReason = &s
		}
		if revAt.Valid {
			at := revAt.Time
			t.RevokedAt = &at
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// IsAccessTokenValid reports whether a pair with this access string exists,
// is not revoked and has not passed its access expiry.
func (r *TokenRepo) IsAccessTokenValid(ctx context.Context, access string) (bool, error) {
	var ok bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM tokens
		   WHERE access_token=? AND revoked=0 AND expires_at > UTC_TIMESTAMP())`,
		access).Scan(&ok)
	return ok, err
}

// IsRefreshTokenValid reports whether a pair with this refresh string
// exists, is not revoked and has not passed its refresh expiry.
func (r *TokenRepo) IsRefreshTokenValid(ctx context.Context, refresh string) (bool, error) {
	var ok bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM tokens
		   WHERE refresh_token=? AND revoked=0 AND refresh_expires_at > UTC_TIMESTAMP())`,
		refresh).Scan(&ok)
	return ok, err
}

// CountActive returns the number of currently usable pairs system-wide.
func (r *TokenRepo) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tokens WHERE revoked=0 AND expires_at > UTC_TIMESTAMP()").Scan(&n)
	return n, err
}

// CountActiveByIP returns active-pair counts grouped by origin IP.
func (r *TokenRepo) CountActiveByIP(ctx context.Context) (map[string]int64, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT ip_address, COUNT(*) FROM tokens
		 WHERE revoked=0 AND expires_at > UTC_TIMESTAMP() GROUP BY ip_address`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			ip string
			n  int64
		)
		if err := rows.Scan(&ip, &n); err != nil {
			return nil, err
		}
		counts[ip] = n
	}
	return counts, rows.Err()
}
