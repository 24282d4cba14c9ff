package models

import "time"

// EmployeeStatus enumerates employment states.
type EmployeeStatus string

const (
	EmployeeActive   EmployeeStatus = "active"
	EmployeeInactive EmployeeStatus = "inactive"
	EmployeeOnLeave  EmployeeStatus = "on_leave"
)

// Employee represents an employee whose government documents are tracked.
type Employee struct {
	ID             string         `db:"id" json:"id"`
	CompanyID      string         `db:"company_id" json:"company_id"`
	Name           string         `db:"name" json:"name"`
	Trade          string         `db:"trade" json:"trade"`
	Mobile         string         `db:"mobile" json:"mobile"`
	JoiningDate    time.Time      `db:"joining_date" json:"joining_date"`
	Nationality    *string        `db:"nationality" json:"nationality,omitempty"`
	PassportNumber *string        `db:"passport_number" json:"passport_number,omitempty"`
	Status         EmployeeStatus `db:"status" json:"status"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// EmployeeWithCompany joins the owning company name for list views.
type EmployeeWithCompany struct {
	Employee
	CompanyName string `db:"company_name" json:"company_name"`
}

// EmployeeFilter captures filtering criteria for listing employees.
type EmployeeFilter struct {
	CompanyID string
	Status    *EmployeeStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
