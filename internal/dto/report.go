package dto

import "github.com/manpowerhq/compliance-api/internal/models"

// ReportRequest asks for an asynchronous export.
type ReportRequest struct {
	Type      models.ReportType   `json:"type" binding:"required"`
	CompanyID string              `json:"company_id" binding:"required"`
	AsOf      string              `json:"as_of"`
	Format    models.ReportFormat `json:"format" binding:"required"`
}

// ReportJobResponse acknowledges a queued export job.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress and the signed result URL.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"result_url,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
