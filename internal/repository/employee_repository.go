package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/employee-management/internal/model"
)

// EmployeeRepo provides CRUD over staff profiles and their attendance rows.
type EmployeeRepo struct{ DB *sql.DB }

func NewEmployeeRepo(db *sql.DB) *EmployeeRepo { return &EmployeeRepo{DB: db} }

const employeeCols = "id,first_name,last_name,email,position,department,hire_date,is_active,created_at,updated_at"

// Create inserts an employee and returns its ID.
func (r *EmployeeRepo) Create(ctx context.Context, e *model.Employee) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO employees (first_name, last_name, email, position, department, hire_date, is_active)
		 VALUES (?,?,?,?,?,?,?)`,
		e.FirstName, e.LastName, strings.ToLower(strings.TrimSpace(e.Email)),
		e.Position, e.Department, e.HireDate, e.IsActive)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches an employee by id.
func (r *EmployeeRepo) GetByID(ctx context.Context, id uint64) (model.Employee, error) {
	var e model.Employee
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+employeeCols+" FROM employees WHERE id=? LIMIT 1", id).
		Scan(&e.ID, &e.FirstName, &e.LastName, &e.Email, &e.Position,
			&e.Department, &e.HireDate, &e.IsActive, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Employee{}, ErrNotFound
	}
	return e, err
}

// List returns employees ordered by last name, optionally only active ones.
func (r *EmployeeRepo) List(ctx context.Context, onlyActive bool) ([]model.Employee, error) {
	q := "SELECT " + employeeCols + " FROM employees"
	if onlyActive {
		q += " WHERE is_active=1"
	}
	q += " ORDER BY last_name, first_name"
	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Employee
	for rows.Next() {
		var e model.Employee
		if err := rows.Scan(&e.ID, &e.FirstName, &e.LastName, &e.Email, &e.Position,
			&e.Department, &e.HireDate, &e.IsActive, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Update rewrites the employee's profile fields.
func (r *EmployeeRepo) Update(ctx context.Context, e *model.Employee) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE employees SET first_name=?, last_name=?, email=?, position=?, department=?, hire_date=?, is_active=?
		 WHERE id=?`,
		e.FirstName, e.LastName, strings.ToLower(strings.TrimSpace(e.Email)),
		e.Position, e.Department, e.HireDate, e.IsActive, e.ID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrEmailExists
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete hard-deletes the employee row. Accounts referencing it keep
// working; the schema nulls their employee_id.
func (r *EmployeeRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM employees WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ----- attendance -----

const attendanceCols = "id,employee_id,work_date,check_in,check_out,status,notes"

// CheckIn opens today's attendance row for the employee. A second check-in
// on the same working day maps to ErrConflict through the unique key on
// (employee_id, work_date); a missing employee maps to ErrNotFound.
func (r *EmployeeRepo) CheckIn(ctx context.Context, employeeID uint64, status, notes string) (uint64, error) {
	now := time.Now().UTC()
	day := now.Truncate(24 * time.Hour)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO attendance (employee_id, work_date, check_in, status, notes) VALUES (?,?,?,?,?)",
		employeeID, day, now, status, notes)
	if err != nil {
		msg := strings.ToLower(err.Error())
		switch {
		case strings.Contains(msg, "1062"):
			return 0, ErrConflict
		case strings.Contains(msg, "1452"):
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

// CheckOut closes today's open attendance row for the employee.
func (r *EmployeeRepo) CheckOut(ctx context.Context, employeeID uint64) error {
	day := time.Now().UTC().Truncate(24 * time.Hour)
	res, err := r.DB.ExecContext(ctx,
		"UPDATE attendance SET check_out=UTC_TIMESTAMP() WHERE employee_id=? AND work_date=? AND check_out IS NULL",
		employeeID, day)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAttendanceForEmployee returns the employee's rows between from and to
// inclusive, newest first.
func (r *EmployeeRepo) ListAttendanceForEmployee(ctx context.Context, employeeID uint64, from, to time.Time) ([]model.Attendance, error) {
	return r.listAttendance(ctx,
		"employee_id=? AND work_date BETWEEN ? AND ?", employeeID, from, to)
}

// ListAttendanceForDate returns every employee's row for one working day.
func (r *EmployeeRepo) ListAttendanceForDate(ctx context.Context, day time.Time) ([]model.Attendance, error) {
	return r.listAttendance(ctx, "work_date=?", day.UTC().Truncate(24*time.Hour))
}

func (r *EmployeeRepo) listAttendance(ctx context.Context, where string, args ...interface{}) ([]model.Attendance, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+attendanceCols+" FROM attendance WHERE "+where+" ORDER BY work_date DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Attendance
	for rows.Next() {
		var (
			a        model.Attendance
			checkOut sql.NullTime
		)
		if err := rows.Scan(&a.ID, &a.EmployeeID, &a.Date, &a.CheckIn, &checkOut, &a.Status, &a.Notes); err != nil {
			return nil, err
		}
		if checkOut.Valid {
			t := checkOut.Time
			a.CheckOut = &t
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
