package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/employee-management/internal/model"
	"github.com/iliyamo/employee-management/internal/repository"
)

// RoleHandler administers permission bundles. Routes carrying it sit behind
// the manage_roles guard.
type RoleHandler struct {
	Roles *repository.RoleRepo
}

func NewRoleHandler(r *repository.RoleRepo) *RoleHandler {
	return &RoleHandler{Roles: r}
}

type roleReq struct {
	Name               string `json:"name"`
	Description        string `json:"description"`
	CanViewEmployees   bool   `json:"can_view_employees"`
	CanEditEmployees   bool   `json:"can_edit_employees"`
	CanDeleteEmployees bool   `json:"can_delete_employees"`
	CanViewAttendance  bool   `json:"can_view_attendance"`
	CanEditAttendance  bool   `json:"can_edit_attendance"`
	CanGenerateReports bool   `json:"can_generate_reports"`
	CanManageUsers     bool   `json:"can_manage_users"`
	CanManageRoles     bool   `json:"can_manage_roles"`
	CanAccessAdmin     bool   `json:"can_access_admin"`
	IsActive           *bool  `json:"is_active"`
}

type roleResp struct {
	ID                 uint64 `json:"id"`
	Name               string `json:"name"`
	Description        string `json:"description"`
	CanViewEmployees   bool   `json:"can_view_employees"`
	CanEditEmployees   bool   `json:"can_edit_employees"`
	CanDeleteEmployees bool   `json:"can_delete_employees"`
	CanViewAttendance  bool   `json:"can_view_attendance"`
	CanEditAttendance  bool   `json:"can_edit_attendance"`
	CanGenerateReports bool   `json:"can_generate_reports"`
	CanManageUsers     bool   `json:"can_manage_users"`
	CanManageRoles     bool   `json:"can_manage_roles"`
	CanAccessAdmin     bool   `json:"can_access_admin"`
	IsActive           bool   `json:"is_active"`
}

func (req *roleReq) toModel() (model.Role, error) {
	name := strings.ToUpper(strings.TrimSpace(req.Name))
	if name == "" {
		return model.Role{}, errors.New("name required")
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return model.Role{
		Name:               name,
		Description:        req.Description,
		CanViewEmployees:   req.CanViewEmployees,
		CanEditEmployees:   req.CanEditEmployees,
		CanDeleteEmployees: req.CanDeleteEmployees,
		CanViewAttendance:  req.CanViewAttendance,
		CanEditAttendance:  req.CanEditAttendance,
		CanGenerateReports: req.CanGenerateReports,
		CanManageUsers:     req.CanManageUsers,
		CanManageRoles:     req.CanManageRoles,
		CanAccessAdmin:     req.CanAccessAdmin,
		IsActive:           active,
	}, nil
}

func roleRespFrom(r model.Role) roleResp {
	return roleResp{
		ID:                 r.ID,
		Name:               r.Name,
		Description:        r.Description,
		CanViewEmployees:   r.CanViewEmployees,
		CanEditEmployees:   r.CanEditEmployees,
		CanDeleteEmployees: r.CanDeleteEmployees,
		CanViewAttendance:  r.CanViewAttendance,
		CanEditAttendance:  r.CanEditAttendance,
		CanGenerateReports: r.CanGenerateReports,
		CanManageUsers:     r.CanManageUsers,
		CanManageRoles:     r.CanManageRoles,
		CanAccessAdmin:     r.CanAccessAdmin,
		IsActive:           r.IsActive,
	}
}

// Create adds a permission bundle.
func (h *RoleHandler) Create(c echo.Context) error {
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	role, err := req.toModel()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	id, err := h.Roles.Create(ctx, &role)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "role name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create role failed"})
	}
	role.ID = id
	return c.JSON(http.StatusCreated, roleRespFrom(role))
}

// Get returns one role.
func (h *RoleHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	role, err := h.Roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "role not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load role failed"})
	}
	return c.JSON(http.StatusOK, roleRespFrom(role))
}

// List returns every role.
func (h *RoleHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	roles, err := h.Roles.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list roles failed"})
	}
	out := make([]roleResp, 0, len(roles))
	for _, r := range roles {
		out = append(out, roleRespFrom(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"roles": out})
}

// Update rewrites a role's flags. Accounts pick the change up on their next
// token issuance; already-issued tokens keep their embedded permissions
// until expiry.
func (h *RoleHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	role, err := req.toModel()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	role.ID = id

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Roles.Update(ctx, &role); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "role not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "role name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update role failed"})
	}
	return c.JSON(http.StatusOK, roleRespFrom(role))
}

// Delete removes an unreferenced role; a role still assigned to accounts is
// refused with 409.
func (h *RoleHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Roles.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "role not found"})
		case errors.Is(err, repository.ErrRoleInUse):
			return c.JSON(http.StatusConflict, echo.Map{"error": "role still assigned to accounts"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete role failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
