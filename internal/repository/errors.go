// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// auth service and handlers to distinguish between failure scenarios
// without inspecting database driver errors. For example, ErrRoleInUse
// signals that a role cannot be deleted because accounts still reference
// it, while ErrInvalidState marks lifecycle violations such as rotating
// a revoked token.
package repository

import "errors"

// ErrNotFound is returned when the requested account, role, token or
// session row does not exist. Handlers translate this into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrInvalidState is returned when an operation conflicts with a record's
// lifecycle: rotating a revoked pair, or rotating a pair whose access
// token has already expired. Handlers translate this into HTTP 409.
var ErrInvalidState = errors.New("invalid state")

// ErrRoleInUse is returned when a role delete is blocked because at least
// one account still references the role. The guard lives at the
// application layer; the schema alone does not express it.
var ErrRoleInUse = errors.New("role is referenced by accounts")

// ErrUsernameExists and ErrEmailExists surface unique-constraint
// violations on account creation as distinct, user-reportable failures.
var (
	ErrUsernameExists = errors.New("username already exists")
	ErrEmailExists    = errors.New("email already exists")
)

// ErrConflict is returned for other unique or dependent-state violations,
// such as checking in twice on the same working day.
var ErrConflict = errors.New("conflict")
