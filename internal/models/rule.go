package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FineType describes how a fine accrues once the grace period has lapsed.
type FineType string

const (
	FineDaily   FineType = "daily"
	FineMonthly FineType = "monthly"
	FineOneTime FineType = "one_time"
)

// Valid reports whether the fine type is one of the known accrual modes.
func (f FineType) Valid() bool {
	switch f {
	case FineDaily, FineMonthly, FineOneTime:
		return true
	}
	return false
}

// ComplianceRule stores one rule row. CompanyID is nil for the single global
// rule per document type; company rows override the global row field by
// field, so every overridable column is nullable.
type ComplianceRule struct {
	ID                string           `db:"id" json:"id"`
	CompanyID         *string          `db:"company_id" json:"company_id,omitempty"`
	TypeKey           string           `db:"type_key" json:"type_key"`
	GraceDays         *int             `db:"grace_days" json:"grace_days,omitempty"`
	FineRate          *decimal.Decimal `db:"fine_rate" json:"fine_rate,omitempty"`
	FineType          *FineType        `db:"fine_type" json:"fine_type,omitempty"`
	FineCap           *decimal.Decimal `db:"fine_cap" json:"fine_cap,omitempty"`
	MandatoryOverride *bool            `db:"mandatory_override" json:"mandatory_override,omitempty"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updated_at"`
}

// IsGlobal reports whether the rule applies to every company.
func (r ComplianceRule) IsGlobal() bool {
	return r.CompanyID == nil
}

// RuleFilter captures filtering criteria for listing rules.
type RuleFilter struct {
	CompanyID *string
	TypeKey   string
}
