package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/employee-management/internal/auth"
	"github.com/iliyamo/employee-management/internal/model"
)

// AccountRepo persists credential records (the 'accounts' table).
type AccountRepo struct{ DB *sql.DB }

func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{DB: db} }

const accountCols = "id,username,email,password_hash,role_id,employee_id,is_active,failed_logins,locked_until,reset_token,reset_token_expiry,created_at,updated_at"

// Create hashes the password and inserts the account, returning its ID.
// Unique violations map to ErrUsernameExists/ErrEmailExists; a missing role
// maps to ErrNotFound.
func (r *AccountRepo) Create(ctx context.Context, username, email, password string, roleID uint64, cost int) (uint64, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := auth.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO accounts (username, email, password_hash, role_id) VALUES (?,?,?,?)",
		username, email, hash, roleID)
	if err != nil {
		msg := strings.ToLower(err.Error())
		switch {
		case strings.Contains(msg, "1062") && strings.Contains(msg, "username"):
			return 0, ErrUsernameExists
		case strings.Contains(msg, "1062"):
			return 0, ErrEmailExists
		case strings.Contains(msg, "1452"): // FK failure -> role does not exist
			return 0, ErrNotFound
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches an account by id.
func (r *AccountRepo) GetByID(ctx context.Context, id uint64) (model.Account, error) {
	return r.getWhere(ctx, "id=?", id)
}

// GetByUsername fetches an account by normalized username.
func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (model.Account, error) {
	return r.getWhere(ctx, "username=?", strings.ToLower(strings.TrimSpace(username)))
}

// GetByEmail fetches an account by normalized email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	return r.getWhere(ctx, "email=?", strings.ToLower(strings.TrimSpace(email)))
}

// GetByResetToken fetches the account holding a still-valid reset token.
func (r *AccountRepo) GetByResetToken(ctx context.Context, token string) (model.Account, error) {
	return r.getWhere(ctx, "reset_token=? AND reset_token_expiry > UTC_TIMESTAMP()", token)
}

func (r *AccountRepo) getWhere(ctx context.Context, where string, args ...interface{}) (model.Account, error) {
	var (
		a          model.Account
		employeeID sql.NullInt64
		lockedTil  sql.NullTime
		resetTok   sql.NullString
		resetExp   sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+accountCols+" FROM accounts WHERE "+where+" LIMIT 1", args...).
		Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.RoleID, &employeeID,
			&a.IsActive, &a.FailedLogins, &lockedTil, &resetTok, &resetExp,
			&a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Account{}, ErrNotFound
	}
	if err != nil {
		return model.Account{}, err
	}
	if employeeID.Valid {
		v := uint64(employeeID.Int64)
		a.EmployeeID = &v
	}
	if lockedTil.Valid {
		t := lockedTil.Time
		a.LockedUntil = &t
	}
	if resetTok.Valid {
		s := resetTok.String
		a.ResetToken = &s
	}
	if resetExp.Valid {
		t := resetExp.Time
		a.ResetTokenExpiry = &t
	}
	return a, nil
}

// RecordLoginFailure increments the failed-login counter and sets the
// lockout timestamp once the counter reaches maxFailures. Returns the
// counter value after the increment.
func (r *AccountRepo) RecordLoginFailure(ctx context.Context, id uint64, maxFailures int, lockFor time.Duration) (int, error) {
	lockUntil := time.Now().UTC().Add(lockFor)
	res, err := r.DB.ExecContext(ctx,
		`UPDATE accounts
		 SET failed_logins = failed_logins + 1,
		     locked_until = IF(failed_logins >= ?, ?, locked_until)
		 WHERE id=?`,
		maxFailures-1, lockUntil, id)
	if err != nil {
		return 0, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, ErrNotFound
	}
	var count int
	err = r.DB.QueryRowContext(ctx, "SELECT failed_logins FROM accounts WHERE id=?", id).Scan(&count)
	return count, err
}

// ResetLoginFailures clears the counter and any lockout after a successful login.
func (r *AccountRepo) ResetLoginFailures(ctx context.Context, id uint64) error {
	return r.exec(ctx, "UPDATE accounts SET failed_logins=0, locked_until=NULL WHERE id=?", id)
}

// UpdatePassword stores a new bcrypt hash.
func (r *AccountRepo) UpdatePassword(ctx context.Context, id uint64, password string, cost int) error {
	hash, err := auth.HashPassword(password, cost)
	if err != nil {
		return err
	}
	return r.exec(ctx, "UPDATE accounts SET password_hash=? WHERE id=?", hash, id)
}

// SetResetToken attaches a password-reset token with an expiry.
func (r *AccountRepo) SetResetToken(ctx context.Context, id uint64, token string, exp time.Time) error {
	return r.exec(ctx, "UPDATE accounts SET reset_token=?, reset_token_expiry=? WHERE id=?", token, exp, id)
}

// ClearResetToken removes the reset token after use.
func (r *AccountRepo) ClearResetToken(ctx context.Context, id uint64) error {
	return r.exec(ctx, "UPDATE accounts SET reset_token=NULL, reset_token_expiry=NULL WHERE id=?", id)
}

// AssignRole repoints the account at another role. A missing role maps to
// ErrNotFound via the FK failure.
func (r *AccountRepo) AssignRole(ctx context.Context, id, roleID uint64) error {
	err := r.exec(ctx, "UPDATE accounts SET role_id=? WHERE id=?", roleID, id)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "1452") {
		return ErrNotFound
	}
	return err
}

// Deactivate soft-disables the account; tokens and sessions stay in place
// but authentication is refused at the service layer.
func (r *AccountRepo) Deactivate(ctx context.Context, id uint64) error {
	return r.exec(ctx, "UPDATE accounts SET is_active=0 WHERE id=?", id)
}

// Delete hard-deletes the account. The schema cascades the delete to the
// account's tokens and sessions; its role is left untouched.
func (r *AccountRepo) Delete(ctx context.Context, id uint64) error {
	return r.exec(ctx, "DELETE FROM accounts WHERE id=?", id)
}

// exec runs a statement that targets one row and maps zero affected rows to
// ErrNotFound.
func (r *AccountRepo) exec(ctx context.Context, q string, args ...interface{}) error {
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
