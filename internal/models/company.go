package models

import "time"

// Company represents an owning organization whose employees are tracked.
type Company struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	TradeLicense *string   `db:"trade_license" json:"trade_license,omitempty"`
	ContactEmail *string   `db:"contact_email" json:"contact_email,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CompanyFilter captures filtering criteria for listing companies.
type CompanyFilter struct {
	Search   string
	Page     int
	PageSize int
}
