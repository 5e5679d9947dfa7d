package models

import (
	"encoding/json"
	"time"
)

// Audit actions written by services in addition to the request middleware
const (
	AuditActionCreate            = "CREATE"
	AuditActionUpdate            = "UPDATE"
	AuditActionDelete            = "DELETE"
	AuditActionLogin             = "LOGIN"
	AuditActionLogout            = "LOGOUT"
	AuditActionMentorAutoAssign  = "MENTOR_AUTO_ASSIGN"
	AuditActionGrievanceEscalate = "GRIEVANCE_ESCALATE"
	AuditActionReportGenerate    = "REPORT_GENERATE"
	AuditActionStudentImport     = "STUDENT_IMPORT"
)

// AuditLog is one row of the audit trail
type AuditLog struct {
	ID         int64           `json:"id" db:"id"`
	UserID     *int64          `json:"userId,omitempty" db:"user_id"`
	RoleType   *RoleType       `json:"roleType,omitempty" db:"role_type"`
	Action     string          `json:"action" db:"action" example:"UPDATE"`
	EntityType string          `json:"entityType" db:"entity_type" example:"grievances"`
	EntityID   *string         `json:"entityId,omitempty" db:"entity_id"`
	Method     *string         `json:"method,omitempty" db:"method"`
	Path       *string         `json:"path,omitempty" db:"path"`
	StatusCode *int            `json:"statusCode,omitempty" db:"status_code"`
	IPAddress  *string         `json:"ipAddress,omitempty" db:"ip_address"`
	UserAgent  *string         `json:"userAgent,omitempty" db:"user_agent"`
	Details    json.RawMessage `json:"details,omitempty" db:"details" swaggertype:"object"`
	CreatedAt  time.Time       `json:"createdAt" db:"created_at"`
}

// AuditLogFilter narrows audit log listings
type AuditLogFilter struct {
	UserID     *int64
	Action     string
	EntityType string
	From       *time.Time
	To         *time.Time
}
