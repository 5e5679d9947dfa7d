package dto

// ReportRequest asks for a report to be generated
type ReportRequest struct {
	ReportType string            `json:"reportType" example:"students"`
	Columns    []string          `json:"columns"`
	Filters    map[string]string `json:"filters"`
	Format     string            `json:"format" example:"xlsx"`
	TemplateID *int64            `json:"templateId" binding:"omitempty,min=1"`
}

// ReportTemplateRequest creates or updates a saved report template
type ReportTemplateRequest struct {
	Name        string            `json:"name" binding:"required,max=150"`
	Description *string           `json:"description" binding:"omitempty,max=1000"`
	ReportType  string            `json:"reportType" binding:"required"`
	Columns     []string          `json:"columns" binding:"required,min=1"`
	Filters     map[string]string `json:"filters"`
	Format      string            `json:"format" binding:"required,oneof=xlsx csv pdf"`
	IsPublic    bool              `json:"isPublic"`
}

// ReportAccepted is returned when a report was queued
type ReportAccepted struct {
	ID     string `json:"id" example:"0b1f6c8e-6a51-4c1a-9e35-5f5a6d1f0c2a"`
	JobID  int64  `json:"jobId" example:"42"`
	Status string `json:"status" example:"PENDING"`
}

// JobStatsResponse summarises the job queue
type JobStatsResponse struct {
	Queues map[string]map[string]int64 `json:"queues"`
}
