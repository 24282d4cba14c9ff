package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/manpowerhq/compliance-api/internal/compliance"
	"github.com/manpowerhq/compliance-api/internal/models"
	"github.com/manpowerhq/compliance-api/pkg/export"
	"github.com/manpowerhq/compliance-api/pkg/storage"
)

type evaluatorStub struct{}

func (evaluatorStub) EvaluateCompanyEmployees(ctx context.Context, companyID string, asOf time.Time) ([]compliance.EmployeeSummary, error) {
	expiry := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	days := -10
	return []compliance.EmployeeSummary{
		{
			EmployeeID:    "emp-1",
			CompanyID:     companyID,
			Status:        compliance.StatePenaltyActive,
			UrgentTypeKey: "visa",
			TotalFine:     decimal.NewFromInt(500),
			DailyBurnRate: decimal.NewFromInt(50),
			Documents: []compliance.DocumentStatus{
				{
					Document: models.DocumentRecord{
						ID:         "doc-1",
						EmployeeID: "emp-1",
						TypeKey:    "visa",
						ExpiryDate: &expiry,
						Active:     true,
					},
					State:           compliance.StatePenaltyActive,
					Mandatory:       true,
					Fine:            compliance.FineResult{Amount: decimal.NewFromInt(500), BurnRate: decimal.NewFromInt(50)},
					DaysUntilExpiry: &days,
				},
			},
		},
	}, nil
}

type employeeListerStub struct{}

func (employeeListerStub) ListByCompany(ctx context.Context, companyID string) ([]models.Employee, error) {
	return []models.Employee{{ID: "emp-1", CompanyID: companyID, Name: "Ravi Kumar"}}, nil
}

type companyFinderStub struct{}

func (companyFinderStub) FindByID(ctx context.Context, id string) (*models.Company, error) {
	return &models.Company{ID: id, Name: "Falcon Contracting"}, nil
}

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	cfg := ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}
	svc := NewExportService(evaluatorStub{}, employeeListerStub{}, companyFinderStub{}, store, signer, cfg, zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())
	return svc, store
}

func TestExportServiceGenerateCSV(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-1",
		Type:      models.ReportTypeFineExposure,
		Params:    models.ReportJobParams{CompanyID: "company-1", Format: models.ReportFormatCSV},
		CreatedBy: "admin",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.NotEmpty(t, result.RelativePath)
	require.Contains(t, result.URL, "/exports/")

	data, err := os.ReadFile(store.Path(result.RelativePath))
	require.NoError(t, err)
	require.Contains(t, string(data), "Ravi Kumar")
	require.Contains(t, string(data), "500.00")
}

func TestExportServiceGeneratePDF(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-2",
		Type:      models.ReportTypeEmployeeCompliance,
		Params:    models.ReportJobParams{CompanyID: "company-1", Format: models.ReportFormatPDF},
		CreatedBy: "admin",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, models.ReportFormatPDF, result.Format)

	info, err := os.Stat(store.Path(result.RelativePath))
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestExportServiceRejectsBadAsOf(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:     "job-3",
		Type:   models.ReportTypeFineExposure,
		Params: models.ReportJobParams{CompanyID: "company-1", AsOf: "03/01/2026", Format: models.ReportFormatCSV},
	}
	_, err := svc.Generate(context.Background(), job)
	require.Error(t, err)
}
