package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/manpowerhq/compliance-api/internal/compliance"
	"github.com/manpowerhq/compliance-api/internal/models"
)

// CompanyCard is one company's compliance rollup on the dashboard.
type CompanyCard struct {
	CompanyID      string                   `json:"company_id"`
	CompanyName    string                   `json:"company_name"`
	Employees      int                      `json:"employees"`
	TotalFine      decimal.Decimal          `json:"total_fine"`
	DailyBurnRate  decimal.Decimal          `json:"daily_burn_rate"`
	CompletionRate float64                  `json:"completion_rate"`
	StatusCounts   map[compliance.State]int `json:"status_counts"`
}

// ExpiringDocumentEntry is one row of the expiry alert feed.
type ExpiringDocumentEntry struct {
	DocumentID   string    `json:"document_id"`
	TypeKey      string    `json:"type_key"`
	EmployeeID   string    `json:"employee_id"`
	EmployeeName string    `json:"employee_name"`
	CompanyID    string    `json:"company_id"`
	CompanyName  string    `json:"company_name"`
	ExpiryDate   time.Time `json:"expiry_date"`
	DaysLeft     int       `json:"days_left"`
}

// DashboardResponse is the global back-office dashboard payload.
type DashboardResponse struct {
	AsOf           time.Time               `json:"as_of"`
	Global         compliance.GroupSummary `json:"global"`
	Companies      []CompanyCard           `json:"companies"`
	ExpiringSoon   []ExpiringDocumentEntry `json:"expiring_soon"`
	RecentActivity []models.AuditLog       `json:"recent_activity"`
}
