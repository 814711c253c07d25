package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/employee-management/internal/model"
	"github.com/iliyamo/employee-management/internal/repository"
)

// EmployeeHandler exposes staff-profile CRUD.
type EmployeeHandler struct {
	Employees *repository.EmployeeRepo
}

func NewEmployeeHandler(e *repository.EmployeeRepo) *EmployeeHandler {
	return &EmployeeHandler{Employees: e}
}

type employeeReq struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Position   string `json:"position"`
	Department string `json:"department"`
	HireDate   string `json:"hire_date"` // YYYY-MM-DD
	IsActive   *bool  `json:"is_active"`
}

type employeeResp struct {
	ID         uint64 `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Position   string `json:"position"`
	Department string `json:"department"`
	HireDate   string `json:"hire_date"`
	IsActive   bool   `json:"is_active"`
}

func employeeRespFrom(e model.Employee) employeeResp {
	return employeeResp{
		ID:         e.ID,
		FirstName:  e.FirstName,
		LastName:   e.LastName,
		Email:      e.Email,
		Position:   e.Position,
		Department: e.Department,
		HireDate:   e.HireDate.Format("2006-01-02"),
		IsActive:   e.IsActive,
	}
}

func (req *employeeReq) toModel() (model.Employee, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.FirstName == "" || req.LastName == "" || req.Email == "" {
		return model.Employee{}, errors.New("first_name/last_name/email required")
	}
	hire, err := time.ParseInLocation("2006-01-02", req.HireDate, time.UTC)
	if err != nil {
		return model.Employee{}, errors.New("hire_date must be YYYY-MM-DD")
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return model.Employee{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Position:   req.Position,
		Department: req.Department,
		HireDate:   hire,
		IsActive:   active,
	}, nil
}

func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// Create adds a staff profile.
func (h *EmployeeHandler) Create(c echo.Context) error {
	var req employeeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	emp, err := req.toModel()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	id, err := h.Employees.Create(ctx, &emp)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create employee failed"})
	}
	emp.ID = id
	return c.JSON(http.StatusCreated, employeeRespFrom(emp))
}

// Get returns one profile by id.
func (h *EmployeeHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	emp, err := h.Employees.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "employee not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load employee failed"})
	}
	return c.JSON(http.StatusOK, employeeRespFrom(emp))
}

// List returns profiles, active ones only unless ?include_inactive=true.
func (h *EmployeeHandler) List(c echo.Context) error {
	onlyActive := c.QueryParam("include_inactive") != "true"

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	emps, err := h.Employees.List(ctx, onlyActive)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list employees failed"})
	}
	out := make([]employeeResp, 0, len(emps))
	for _, e := range emps {
		out = append(out, employeeRespFrom(e))
	}
	return c.JSON(http.StatusOK, echo.Map{"employees": out})
}

// Update rewrites a profile.
func (h *EmployeeHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req employeeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	emp, err := req.toModel()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	emp.ID = id

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Employees.Update(ctx, &emp); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "employee not found"})
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update employee failed"})
	}
	return c.JSON(http.StatusOK, employeeRespFrom(emp))
}

// Delete removes a profile.
func (h *EmployeeHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Employees.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "employee not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete employee failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
