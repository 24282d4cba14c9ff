package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/manpowerhq/compliance-api/internal/compliance"
	"github.com/manpowerhq/compliance-api/internal/models"
	"github.com/manpowerhq/compliance-api/pkg/export"
	"github.com/manpowerhq/compliance-api/pkg/storage"
)

type exportEvaluator interface {
	EvaluateCompanyEmployees(ctx context.Context, companyID string, asOf time.Time) ([]compliance.EmployeeSummary, error)
}

type exportEmployeeLister interface {
	ListByCompany(ctx context.Context, companyID string) ([]models.Employee, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds compliance datasets and persists rendered files.
type ExportService struct {
	evaluator exportEvaluator
	employees exportEmployeeLister
	companies employeeCompanyRepository
	storage   fileStorage
	csv       csvRenderer
	pdf       pdfRenderer
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(evaluator exportEvaluator, employees exportEmployeeLister, companies employeeCompanyRepository, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		evaluator: evaluator,
		employees: employees,
		companies: companies,
		storage:   store,
		csv:       csv,
		pdf:       pdf,
		signer:    signer,
		logger:    logger,
		cfg:       cfg,
	}
}

// Generate builds the dataset for a job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/exports/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl, defaulting to the configured ResultTTL.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	companyPart := sanitizeFilename(job.Params.CompanyID)
	return fmt.Sprintf("%s_%s_%s.%s", string(job.Type), companyPart, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	asOf, err := parseReportAsOf(job.Params.AsOf)
	if err != nil {
		return export.Dataset{}, "", err
	}
	summaries, err := s.evaluator.EvaluateCompanyEmployees(ctx, job.Params.CompanyID, asOf)
	if err != nil {
		return export.Dataset{}, "", err
	}
	names, err := s.employeeNames(ctx, job.Params.CompanyID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	companyName := s.companyName(ctx, job.Params.CompanyID)

	switch job.Type {
	case models.ReportTypeFineExposure:
		return buildFineExposureDataset(summaries, names), fmt.Sprintf("Fine Exposure %s", companyName), nil
	case models.ReportTypeEmployeeCompliance:
		return buildEmployeeComplianceDataset(summaries, names), fmt.Sprintf("Document Compliance %s", companyName), nil
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) employeeNames(ctx context.Context, companyID string) (map[string]string, error) {
	employees, err := s.employees.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(employees))
	for _, emp := range employees {
		names[emp.ID] = emp.Name
	}
	return names, nil
}

func (s *ExportService) companyName(ctx context.Context, companyID string) string {
	company, err := s.companies.FindByID(ctx, companyID)
	if err != nil {
		s.logger.Warn("company lookup for export title failed", zap.String("company_id", companyID), zap.Error(err))
		return companyID
	}
	return company.Name
}

func buildFineExposureDataset(summaries []compliance.EmployeeSummary, names map[string]string) export.Dataset {
	headers := []string{"Employee", "Status", "Urgent Document", "Total Fine", "Daily Burn Rate", "Mandatory Lapsed"}
	rows := make([]map[string]string, 0, len(summaries))
	for _, emp := range summaries {
		rows = append(rows, map[string]string{
			"Employee":         employeeLabel(emp.EmployeeID, names),
			"Status":           string(emp.Status),
			"Urgent Document":  emp.UrgentTypeKey,
			"Total Fine":       emp.TotalFine.StringFixed(2),
			"Daily Burn Rate":  emp.DailyBurnRate.StringFixed(2),
			"Mandatory Lapsed": fmt.Sprintf("%t", emp.MandatoryLapsed),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func buildEmployeeComplianceDataset(summaries []compliance.EmployeeSummary, names map[string]string) export.Dataset {
	headers := []string{"Employee", "Document", "State", "Expiry Date", "Days Until Expiry", "Fine", "Mandatory"}
	rows := make([]map[string]string, 0, len(summaries))
	for _, emp := range summaries {
		for _, doc := range emp.Documents {
			rows = append(rows, map[string]string{
				"Employee":          employeeLabel(emp.EmployeeID, names),
				"Document":          doc.Document.TypeKey,
				"State":             string(doc.State),
				"Expiry Date":       formatExportDate(doc.Document.ExpiryDate),
				"Days Until Expiry": formatExportDays(doc.DaysUntilExpiry),
				"Fine":              doc.Fine.Amount.StringFixed(2),
				"Mandatory":         fmt.Sprintf("%t", doc.Mandatory),
			})
		}
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func employeeLabel(id string, names map[string]string) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return id
}

func formatExportDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func formatExportDays(days *int) string {
	if days == nil {
		return ""
	}
	return fmt.Sprintf("%d", *days)
}

func parseReportAsOf(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	asOf, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid as_of date %q", raw)
	}
	return asOf, nil
}
