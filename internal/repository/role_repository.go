package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/employee-management/internal/model"
)

// RoleRepo persists permission bundles (the 'roles' table).
type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

const roleCols = "id,name,description,can_view_employees,can_edit_employees,can_delete_employees,can_view_attendance,can_edit_attendance,can_generate_reports,can_manage_users,can_manage_roles,can_access_admin,is_active,created_at,updated_at"

// Create inserts a role and returns its ID. Duplicate names map to ErrConflict.
func (r *RoleRepo) Create(ctx context.Context, role *model.Role) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO roles (name, description,
		   can_view_employees, can_edit_employees, can_delete_employees,
		   can_view_attendance, can_edit_attendance, can_generate_reports,
		   can_manage_users, can_manage_roles, can_access_admin, is_active)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		role.Name, role.Description,
		role.CanViewEmployees, role.CanEditEmployees, role.CanDeleteEmployees,
		role.CanViewAttendance, role.CanEditAttendance, role.CanGenerateReports,
		role.CanManageUsers, role.CanManageRoles, role.CanAccessAdmin, role.IsActive)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrConflict
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a role by id.
func (r *RoleRepo) GetByID(ctx context.Context, id uint64) (model.Role, error) {
	return r.getWhere(ctx, "id=?", id)
}

// GetByName fetches a role by its unique name.
func (r *RoleRepo) GetByName(ctx context.Context, name string) (model.Role, error) {
	return r.getWhere(ctx, "name=?", name)
}

func (r *RoleRepo) getWhere(ctx context.Context, where string, args ...interface{}) (model.Role, error) {
	var role model.Role
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+roleCols+" FROM roles WHERE "+where+" LIMIT 1", args...).
		Scan(&role.ID, &role.Name, &role.Description,
			&role.CanViewEmployees, &role.CanEditEmployees, &role.CanDeleteEmployees,
			&role.CanViewAttendance, &role.CanEditAttendance, &role.CanGenerateReports,
			&role.CanManageUsers, &role.CanManageRoles, &role.CanAccessAdmin,
			&role.IsActive, &role.CreatedAt, &role.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Role{}, ErrNotFound
	}
	return role, err
}

// List returns all roles ordered by name.
func (r *RoleRepo) List(ctx context.Context) ([]model.Role, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+roleCols+" FROM roles ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []model.Role
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description,
			&role.CanViewEmployees, &role.CanEditEmployees, &role.CanDeleteEmployees,
			&role.CanViewAttendance, &role.CanEditAttendance, &role.CanGenerateReports,
			&role.CanManageUsers, &role.CanManageRoles, &role.CanAccessAdmin,
			&role.IsActive, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// Update rewrites the role's description, flags and active state.
func (r *RoleRepo) Update(ctx context.Context, role *model.Role) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE roles SET name=?, description=?,
		   can_view_employees=?, can_edit_employees=?, can_delete_employees=?,
		   can_view_attendance=?, can_edit_attendance=?, can_generate_reports=?,
		   can_manage_users=?, can_manage_roles=?, can_access_admin=?, is_active=?
		 WHERE id=?`,
		role.Name, role.Description,
		role.CanViewEmployees, role.CanEditEmployees, role.CanDeleteEmployees,
		role.CanViewAttendance, role.CanEditAttendance, role.CanGenerateReports,
		role.CanManageUsers, role.CanManageRoles, role.CanAccessAdmin, role.IsActive,
		role.ID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a role. The delete is blocked with ErrRoleInUse while any
// account still references it; the schema blocks but does not cascade, so
// the guard is checked here before issuing the delete.
func (r *RoleRepo) Delete(ctx context.Context, id uint64) error {
	var refs int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM accounts WHERE role_id=?", id).Scan(&refs)
	if err != nil {
		return err
	}
	if refs > 0 {
		return ErrRoleInUse
	}
	res, err := r.DB.ExecContext(ctx, "DELETE FROM roles WHERE id=?", id)
	if err != nil {
		// Lost the race with a concurrent account insert; the FK reports it.
		if strings.Contains(strings.ToLower(err.Error()), "1451") {
			return ErrRoleInUse
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
