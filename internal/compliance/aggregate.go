package compliance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/manpowerhq/compliance-api/internal/models"
)

// DocumentStatus is the full engine output for one document.
type DocumentStatus struct {
	Document        models.DocumentRecord `json:"document"`
	State           State                 `json:"state"`
	Mandatory       bool                  `json:"mandatory"`
	Fine            FineResult            `json:"fine"`
	DaysUntilExpiry *int                  `json:"days_until_expiry,omitempty"`
}

// EmployeeSummary is the derived compliance view for one employee. It is
// never stored; recompute it from a snapshot whenever needed.
type EmployeeSummary struct {
	EmployeeID      string              `json:"employee_id"`
	CompanyID       string              `json:"company_id"`
	Status          State               `json:"status"`
	UrgentTypeKey   string              `json:"urgent_type_key,omitempty"`
	TotalFine       decimal.Decimal     `json:"total_fine"`
	DailyBurnRate   decimal.Decimal     `json:"daily_burn_rate"`
	Documents       []DocumentStatus    `json:"documents"`
	Warnings        []DependencyWarning `json:"warnings"`
	MandatoryLapsed bool                `json:"mandatory_lapsed"`
}

// GroupSummary rolls employee summaries up to a company or global scope.
type GroupSummary struct {
	Employees      int             `json:"employees"`
	TotalFine      decimal.Decimal `json:"total_fine"`
	DailyBurnRate  decimal.Decimal `json:"daily_burn_rate"`
	StatusCounts   map[State]int   `json:"status_counts"`
	CompletionRate float64         `json:"completion_rate"`
}

// SummarizeEmployee folds per-document results into one employee view. The
// representative status is the highest-priority document state; ties break
// toward the nearest expiry so the urgent document is the one to act on first.
func SummarizeEmployee(employee models.Employee, docs []DocumentStatus, warnings []DependencyWarning) EmployeeSummary {
	summary := EmployeeSummary{
		EmployeeID:    employee.ID,
		CompanyID:     employee.CompanyID,
		Status:        StateValid,
		TotalFine:     decimal.Zero,
		DailyBurnRate: decimal.Zero,
		Documents:     docs,
		Warnings:      warnings,
	}

	var urgent *DocumentStatus
	for i := range docs {
		doc := &docs[i]
		summary.TotalFine = summary.TotalFine.Add(doc.Fine.Amount)
		summary.DailyBurnRate = summary.DailyBurnRate.Add(doc.Fine.BurnRate)
		if doc.Mandatory && doc.State == StateIncomplete {
			summary.MandatoryLapsed = true
		}
		if urgent == nil || worseThan(*doc, *urgent) {
			urgent = doc
		}
	}
	if urgent != nil {
		summary.Status = urgent.State
		summary.UrgentTypeKey = urgent.Document.TypeKey
	}
	return summary
}

// worseThan orders document statuses by state priority, then nearest expiry.
func worseThan(a, b DocumentStatus) bool {
	if a.State.Priority() != b.State.Priority() {
		return a.State.Priority() > b.State.Priority()
	}
	switch {
	case a.Document.ExpiryDate == nil:
		return false
	case b.Document.ExpiryDate == nil:
		return true
	default:
		return a.Document.ExpiryDate.Before(*b.Document.ExpiryDate)
	}
}

// SummarizeGroup rolls up employee summaries. The completion rate counts
// employees with no lapsed mandatory documents.
func SummarizeGroup(employees []EmployeeSummary) GroupSummary {
	group := GroupSummary{
		Employees:     len(employees),
		TotalFine:     decimal.Zero,
		DailyBurnRate: decimal.Zero,
		StatusCounts:  make(map[State]int),
	}
	if len(employees) == 0 {
		return group
	}

	complete := 0
	for _, emp := range employees {
		group.TotalFine = group.TotalFine.Add(emp.TotalFine)
		group.DailyBurnRate = group.DailyBurnRate.Add(emp.DailyBurnRate)
		group.StatusCounts[emp.Status]++
		if !emp.MandatoryLapsed {
			complete++
		}
	}
	group.CompletionRate = float64(complete) / float64(len(employees))
	return group
}

// daysUntil computes the signed whole-day distance to expiry, nil when the
// document has none.
func daysUntil(doc models.DocumentRecord, asOf time.Time) *int {
	if doc.ExpiryDate == nil {
		return nil
	}
	d := DaysBetween(asOf, *doc.ExpiryDate)
	return &d
}
