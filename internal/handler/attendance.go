package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/employee-management/internal/model"
	"github.com/iliyamo/employee-management/internal/repository"
)

// AttendanceHandler exposes check-in/check-out and attendance queries.
type AttendanceHandler struct {
	Employees *repository.EmployeeRepo
}

func NewAttendanceHandler(e *repository.EmployeeRepo) *AttendanceHandler {
	return &AttendanceHandler{Employees: e}
}

type checkInReq struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

type attendancePart struct {
	ID         uint64     `json:"id"`
	EmployeeID uint64     `json:"employee_id"`
	Date       string     `json:"date"`
	CheckIn    time.Time  `json:"check_in"`
	CheckOut   *time.Time `json:"check_out,omitempty"`
	Status     string     `json:"status"`
	Notes      string     `json:"notes,omitempty"`
}

func attendancePartFrom(a model.Attendance) attendancePart {
	return attendancePart{
		ID:         a.ID,
		EmployeeID: a.EmployeeID,
		Date:       a.Date.Format("2006-01-02"),
		CheckIn:    a.CheckIn,
		CheckOut:   a.CheckOut,
		Status:     a.Status,
		Notes:      a.Notes,
	}
}

// CheckIn opens today's attendance row for the employee in the path.
func (h *AttendanceHandler) CheckIn(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req checkInReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	status := strings.ToUpper(strings.TrimSpace(req.Status))
	if status == "" {
		status = "PRESENT"
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	rowID, err := h.Employees.CheckIn(ctx, id, status, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "already checked in today"})
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "employee not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "check-in failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": rowID, "status": status})
}

// CheckOut closes today's open attendance row.
func (h *AttendanceHandler) CheckOut(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Employees.CheckOut(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no open check-in today"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "check-out failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "checked out"})
}

// ListForEmployee returns one employee's rows in a date range; the range
// defaults to the last 30 days.
func (h *AttendanceHandler) ListForEmployee(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now
	if s := c.QueryParam("from"); s != "" {
		if from, err = time.ParseInLocation("2006-01-02", s, time.UTC); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "from must be YYYY-MM-DD"})
		}
	}
	if s := c.QueryParam("to"); s != "" {
		if to, err = time.ParseInLocation("2006-01-02", s, time.UTC); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "to must be YYYY-MM-DD"})
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	rows, err := h.Employees.ListAttendanceForEmployee(ctx, id, from, to)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list attendance failed"})
	}
	out := make([]attendancePart, 0, len(rows))
	for _, a := range rows {
		out = append(out, attendancePartFrom(a))
	}
	return c.JSON(http.StatusOK, echo.Map{"attendance": out})
}

// ListForDate returns every employee's row for one working day, defaulting
// to today. Feeds daily attendance reports.
func (h *AttendanceHandler) ListForDate(c echo.Context) error {
	day := time.Now().UTC()
	if s := c.QueryParam("date"); s != "" {
		var err error
		if day, err = time.ParseInLocation("2006-01-02", s, time.UTC); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	rows, err := h.Employees.ListAttendanceForDate(ctx, day)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list attendance failed"})
	}
	out := make([]attendancePart, 0, len(rows))
	for _, a := range rows {
		out = append(out, attendancePartFrom(a))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"date":       day.Format("2006-01-02"),
		"attendance": out,
	})
}
