package models

import (
	"encoding/json"
	"time"
)

// ReportFormat is an export file format
type ReportFormat string

const (
	FormatXLSX ReportFormat = "xlsx"
	FormatCSV  ReportFormat = "csv"
	FormatPDF  ReportFormat = "pdf"
)

// IsValid reports whether f is a supported export format
func (f ReportFormat) IsValid() bool {
	return f == FormatXLSX || f == FormatCSV || f == FormatPDF
}

// ContentType returns the MIME type served on download
func (f ReportFormat) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSV:
		return "text/csv"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// GeneratedReportStatus tracks an export through the queue
type GeneratedReportStatus string

const (
	GeneratedPending    GeneratedReportStatus = "PENDING"
	GeneratedProcessing GeneratedReportStatus = "PROCESSING"
	GeneratedCompleted  GeneratedReportStatus = "COMPLETED"
	GeneratedFailed     GeneratedReportStatus = "FAILED"
)

// GeneratedReport is an export requested through the report builder
type GeneratedReport struct {
	ID            string                `json:"id" db:"id"`
	ReportType    string                `json:"reportType" db:"report_type" example:"students"`
	Format        ReportFormat          `json:"format" db:"format" example:"xlsx"`
	Columns       []string              `json:"columns" db:"columns"`
	Filters       map[string]string     `json:"filters" db:"filters"`
	Status        GeneratedReportStatus `json:"status" db:"status"`
	RequestedBy   int64                 `json:"requestedBy" db:"requested_by"`
	InstitutionID *int64                `json:"institutionId,omitempty" db:"institution_id"`
	TemplateID    *int64                `json:"templateId,omitempty" db:"template_id"`
	JobID         *int64                `json:"jobId,omitempty" db:"job_id"`
	StorageKey    *string               `json:"-" db:"storage_key"`
	FileName      *string               `json:"fileName,omitempty" db:"file_name"`
	RowCount      *int                  `json:"rowCount,omitempty" db:"row_count"`
	ErrorMessage  *string               `json:"errorMessage,omitempty" db:"error_message"`
	CreatedAt     time.Time             `json:"createdAt" db:"created_at"`
	CompletedAt   *time.Time            `json:"completedAt,omitempty" db:"completed_at"`
}

// ReportTemplate is a saved report builder configuration
type ReportTemplate struct {
	ID            int64             `json:"id" db:"id"`
	Name          string            `json:"name" db:"name" example:"Unassigned CE students"`
	Description   *string           `json:"description,omitempty" db:"description"`
	ReportType    string            `json:"reportType" db:"report_type"`
	Columns       []string          `json:"columns" db:"columns"`
	Filters       map[string]string `json:"filters" db:"filters"`
	Format        ReportFormat      `json:"format" db:"format"`
	IsPublic      bool              `json:"isPublic" db:"is_public"`
	CreatedBy     int64             `json:"createdBy" db:"created_by"`
	InstitutionID *int64            `json:"institutionId,omitempty" db:"institution_id"`
	CreatedAt     time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time         `json:"updatedAt" db:"updated_at"`
}

// FiltersJSON encodes filters for the JSONB column
func FiltersJSON(filters map[string]string) ([]byte, error) {
	if filters == nil {
		filters = map[string]string{}
	}
	return json.Marshal(filters)
}

// JobStatus is the state of a queued job
type JobStatus string

const (
	JobPending   JobStatus = "PENDING"
	JobActive    JobStatus = "ACTIVE"
	JobCompleted JobStatus = "COMPLETED"
	JobFailed    JobStatus = "FAILED"
)

// Job is the administrator's view of a background job row
type Job struct {
	ID          int64           `json:"id" example:"42"`
	Queue       string          `json:"queue" example:"email"`
	JobType     string          `json:"jobType" example:"email.send"`
	Payload     json.RawMessage `json:"payload" swaggertype:"object"`
	Status      JobStatus       `json:"status"`
	State       string          `json:"state" example:"discarded"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"maxAttempts"`
	RunAt       time.Time       `json:"runAt"`
	AttemptedAt *time.Time      `json:"attemptedAt,omitempty"`
	LastError   *string         `json:"lastError,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	FinalizedAt *time.Time      `json:"finalizedAt,omitempty"`
}

// QueueStat is the number of jobs in one queue and status
type QueueStat struct {
	Queue  string    `json:"queue"`
	Status JobStatus `json:"status"`
	Count  int64     `json:"count"`
}
