package services

import (
	"context"

	appauth "github.com/placeintern/backend/internal/app/auth"
	"github.com/placeintern/backend/internal/app/models"
)

// Services defined in this package:
// - AuthService: login, token rotation and session monitoring
// - AuditService: audit trail writes and listing
// - NotificationService: in-app notifications, websocket push and email
// - InstitutionService: institutions, branches and batches
// - UserService: account administration
// - StudentService / StaffService: enrolment and bulk import
// - MentorService: manual and automatic mentor assignment
// - InternshipService: applications and monthly reports
// - GrievanceService: grievance workflow and escalation
// - DocumentService: uploads, verification and downloads
// - ReportService: report builder requests, templates and the export job
// - DashboardService: per-role summary counts
// - JobService: job queue administration

// Auditor writes explicit audit entries for domain events
type Auditor interface {
	Record(ctx context.Context, actor appauth.Actor, action, entityType, entityID string, details map[string]any)
}

// Mailer queues templated emails
type Mailer interface {
	Send(ctx context.Context, user *models.User, template string, data map[string]any) error
}

// Notifier delivers in-app notifications
type Notifier interface {
	NotifyUser(ctx context.Context, user *models.User, notice Notice)
}

// Notice is one notification with an optional email
type Notice struct {
	Title         string
	Body          string
	Category      models.NotificationCategory
	Link          string
	EmailTemplate string
	EmailData     map[string]any
}
