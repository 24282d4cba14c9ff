package models

import (
	"time"

	"github.com/lib/pq"
)

// Well-known document type keys used by the dependency checker. The catalog
// may define additional types beyond these.
const (
	DocTypePassport        = "passport"
	DocTypeVisa            = "visa"
	DocTypeWorkPermit      = "work_permit"
	DocTypeNationalID      = "national_id"
	DocTypeHealthInsurance = "health_insurance"
	DocTypeILOE            = "iloe"
	DocTypeMedicalFitness  = "medical_fitness"
)

// DocumentType is a catalog entry describing one kind of tracked document.
// Reference data: created by configuration, rarely mutated.
type DocumentType struct {
	Key            string         `db:"key" json:"key"`
	DisplayName    string         `db:"display_name" json:"display_name"`
	Mandatory      bool           `db:"mandatory" json:"mandatory"`
	HasExpiry      bool           `db:"has_expiry" json:"has_expiry"`
	RequiredFields pq.StringArray `db:"required_fields" json:"required_fields"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// DocumentRecord tracks one instance of a document for one employee. Renewal
// creates a fresh active instance and supersedes the old one, so the chain of
// prior instances is preserved.
type DocumentRecord struct {
	ID          string     `db:"id" json:"id"`
	EmployeeID  string     `db:"employee_id" json:"employee_id"`
	TypeKey     string     `db:"type_key" json:"type_key"`
	IssueDate   *time.Time `db:"issue_date" json:"issue_date,omitempty"`
	ExpiryDate  *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	Fields      JSONMap    `db:"fields" json:"fields"`
	FileName    *string    `db:"file_name" json:"file_name,omitempty"`
	FilePath    *string    `db:"file_path" json:"file_path,omitempty"`
	FileSize    *int64     `db:"file_size" json:"file_size,omitempty"`
	FileType    *string    `db:"file_type" json:"file_type,omitempty"`
	Active      bool       `db:"active" json:"active"`
	RenewedFrom *string    `db:"renewed_from" json:"renewed_from,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// DocumentWithEmployee joins employee and company names for alert feeds.
type DocumentWithEmployee struct {
	DocumentRecord
	EmployeeName string `db:"employee_name" json:"employee_name"`
	CompanyID    string `db:"company_id" json:"company_id"`
	CompanyName  string `db:"company_name" json:"company_name"`
}

// DocumentFilter captures filtering criteria for listing documents.
type DocumentFilter struct {
	EmployeeID string
	TypeKey    string
	ActiveOnly bool
	Page       int
	PageSize   int
}
