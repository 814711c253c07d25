package auth

import "github.com/iliyamo/employee-management/internal/model"

// permissionFlags maps each role capability flag to its claim string.  The
// table is the single place a new permission has to be added; issuance and
// documentation both derive from it.
var permissionFlags = []struct {
	claim   string
	enabled func(*model.Role) bool
}{
	{PermViewEmployees, func(r *model.Role) bool { return r.CanViewEmployees }},
	{PermEditEmployees, func(r *model.Role) bool { return r.CanEditEmployees }},
	{PermDeleteEmployees, func(r *model.Role) bool { return r.CanDeleteEmployees }},
	{PermViewAttendance, func(r *model.Role) bool { return r.CanViewAttendance }},
	{PermEditAttendance, func(r *model.Role) bool { return r.CanEditAttendance }},
	{PermGenerateReports, func(r *model.Role) bool { return r.CanGenerateReports }},
	{PermManageUsers, func(r *model.Role) bool { return r.CanManageUsers }},
	{PermManageRoles, func(r *model.Role) bool { return r.CanManageRoles }},
	{PermAdminAccess, func(r *model.Role) bool { return r.CanAccessAdmin }},
}

// PermissionsForRole returns the claim strings for exactly the flags that
// are true on the role, in table order.
func PermissionsForRole(r *model.Role) []string {
	perms := make([]string, 0, len(permissionFlags))
	for _, pf := range permissionFlags {
		if pf.enabled(r) {
			perms = append(perms, pf.claim)
		}
	}
	return perms
}
