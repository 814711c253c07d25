package model

import "time"

// Account represents a credential record as stored in the `accounts` table.
// An account is the authentication identity; the optional EmployeeID links
// it to an employee profile.  Relations are expressed as plain foreign-key
// identifiers rather than navigation references so that ownership stays a
// one-way graph: the stores resolve Role and Employee on demand.
//
// Fields:
//  ID               – primary key identifier of the account.
//  Username         – unique login name.
//  Email            – unique email address.
//  PasswordHash     – bcrypt hashed password.
//  RoleID           – foreign key into the roles table.
//  EmployeeID       – optional foreign key into the employees table.
//  IsActive         – whether the account may authenticate.
//  FailedLogins     – consecutive failed login attempts since the last success.
//  LockedUntil      – account is locked while now < LockedUntil (nullable).
//  ResetToken       – optional password-reset token (nullable).
//  ResetTokenExpiry – expiry of the reset token (nullable).
//  CreatedAt        – timestamp of creation.
//  UpdatedAt        – timestamp of last update.
type Account struct {
	ID               uint64     // accounts.id
	Username         string     // accounts.username
	Email            string     // accounts.email
	PasswordHash     string     // accounts.password_hash
	RoleID           uint64     // accounts.role_id (references roles.id)
	EmployeeID       *uint64    // accounts.employee_id (nullable)
	IsActive         bool       // accounts.is_active
	FailedLogins     int        // accounts.failed_logins
	LockedUntil      *time.Time // accounts.locked_until (nullable)
	ResetToken       *string    // accounts.reset_token (nullable)
	ResetTokenExpiry *time.Time // accounts.reset_token_expiry (nullable)
	CreatedAt        time.Time  // accounts.created_at
	UpdatedAt        time.Time  // accounts.updated_at
}

// Locked reports whether the account is currently locked out.
func (a *Account) Locked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}

// Role represents a row in the `roles` table: a named bundle of nine
// independent capability flags.  An account's effective permission set is
// exactly its role's true flags; there are no per-account overrides.
type Role struct {
	ID                 uint64    // roles.id
	Name               string    // roles.name (unique)
	Description        string    // roles.description
	CanViewEmployees   bool      // roles.can_view_employees
	CanEditEmployees   bool      // roles.can_edit_employees
	CanDeleteEmployees bool      // roles.can_delete_employees
	CanViewAttendance  bool      // roles.can_view_attendance
	CanEditAttendance  bool      // roles.can_edit_attendance
	CanGenerateReports bool      // roles.can_generate_reports
	CanManageUsers     bool      // roles.can_manage_users
	CanManageRoles     bool      // roles.can_manage_roles
	CanAccessAdmin     bool      // roles.can_access_admin
	IsActive           bool      // roles.is_active
	CreatedAt          time.Time // roles.created_at
	UpdatedAt          time.Time // roles.updated_at
}
