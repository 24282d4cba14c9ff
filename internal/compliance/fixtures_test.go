package compliance

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/manpowerhq/compliance-api/internal/models"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func datePtr(year int, month time.Month, day int) *time.Time {
	d := date(year, month, day)
	return &d
}

func intPtr(v int) *int                            { return &v }
func strPtr(v string) *string                      { return &v }
func decPtr(v decimal.Decimal) *decimal.Decimal    { return &v }
func fineTypePtr(v models.FineType) *models.FineType { return &v }

func visaType() models.DocumentType {
	return models.DocumentType{
		Key:            models.DocTypeVisa,
		DisplayName:    "Residence Visa",
		Mandatory:      true,
		HasExpiry:      true,
		RequiredFields: pq.StringArray{"visa_number"},
	}
}

func passportType() models.DocumentType {
	return models.DocumentType{
		Key:            models.DocTypePassport,
		DisplayName:    "Passport",
		Mandatory:      true,
		HasExpiry:      true,
		RequiredFields: pq.StringArray{"passport_number"},
	}
}

func photoType() models.DocumentType {
	return models.DocumentType{
		Key:         "profile_photo",
		DisplayName: "Profile Photo",
		Mandatory:   false,
		HasExpiry:   false,
	}
}

func visaDoc(expiry time.Time) models.DocumentRecord {
	issue := expiry.AddDate(-2, 0, 0)
	return models.DocumentRecord{
		ID:         "doc-visa-1",
		EmployeeID: "emp-1",
		TypeKey:    models.DocTypeVisa,
		IssueDate:  &issue,
		ExpiryDate: &expiry,
		Fields:     models.JSONMap{"visa_number": "784-1987-1234567-1"},
		Active:     true,
	}
}

func passportDoc(expiry time.Time) models.DocumentRecord {
	issue := expiry.AddDate(-10, 0, 0)
	return models.DocumentRecord{
		ID:         "doc-passport-1",
		EmployeeID: "emp-1",
		TypeKey:    models.DocTypePassport,
		IssueDate:  &issue,
		ExpiryDate: &expiry,
		Fields:     models.JSONMap{"passport_number": "N1234567"},
		Active:     true,
	}
}

func dailyRule(rate, cap int64, graceDays int) EffectiveRule {
	return EffectiveRule{
		TypeKey:   models.DocTypeVisa,
		GraceDays: graceDays,
		FineRate:  decimal.NewFromInt(rate),
		FineType:  models.FineDaily,
		FineCap:   decimal.NewFromInt(cap),
		Mandatory: true,
	}
}

func globalVisaRule() models.ComplianceRule {
	return models.ComplianceRule{
		ID:       "rule-visa-global",
		TypeKey:  models.DocTypeVisa,
		GraceDays: intPtr(30),
		FineRate: decPtr(decimal.NewFromInt(50)),
		FineType: fineTypePtr(models.FineDaily),
		FineCap:  decPtr(decimal.NewFromInt(5000)),
	}
}
