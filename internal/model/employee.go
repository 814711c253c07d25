package model

import "time"

// Employee represents a staff profile in the `employees` table.  Accounts
// reference employees optionally; an employee may exist without a login.
type Employee struct {
	ID         uint64    // employees.id
	FirstName  string    // employees.first_name
	LastName   string    // employees.last_name
	Email      string    // employees.email (unique)
	Position   string    // employees.position
	Department string    // employees.department
	HireDate   time.Time // employees.hire_date
	IsActive   bool      // employees.is_active
	CreatedAt  time.Time // employees.created_at
	UpdatedAt  time.Time // employees.updated_at
}

// Attendance models one working day for one employee.  CheckOut stays nil
// until the employee checks out.
type Attendance struct {
	ID         uint64     // attendance.id
	EmployeeID uint64     // attendance.employee_id
	Date       time.Time  // attendance.work_date (date only, UTC midnight)
	CheckIn    time.Time  // attendance.check_in
	CheckOut   *time.Time // attendance.check_out (nullable)
	Status     string     // attendance.status (PRESENT, LATE, ABSENT, ...)
	Notes      string     // attendance.notes
}
