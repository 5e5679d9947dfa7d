package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/placeintern/backend/internal/db"
)

// Repositories holds all the repository instances
type Repositories struct {
	UserRepository             *UserRepository
	TokenRepository            *TokenRepository
	InstitutionRepository      *InstitutionRepository
	StudentRepository          *StudentRepository
	StaffRepository            *StaffRepository
	MentorAssignmentRepository *MentorAssignmentRepository
	ApplicationRepository      *ApplicationRepository
	MonthlyReportRepository    *MonthlyReportRepository
	GrievanceRepository        *GrievanceRepository
	DocumentRepository         *DocumentRepository
	NotificationRepository     *NotificationRepository
	AuditLogRepository         *AuditLogRepository
	ReportRepository           *ReportRepository
	DashboardRepository        *DashboardRepository
}

// NewRepositories initializes all repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		UserRepository:             NewUserRepository(db),
		TokenRepository:            NewTokenRepository(db),
		InstitutionRepository:      NewInstitutionRepository(db),
		StudentRepository:          NewStudentRepository(db),
		StaffRepository:            NewStaffRepository(db),
		MentorAssignmentRepository: NewMentorAssignmentRepository(db),
		ApplicationRepository:      NewApplicationRepository(db),
		MonthlyReportRepository:    NewMonthlyReportRepository(db),
		GrievanceRepository:        NewGrievanceRepository(db),
		DocumentRepository:         NewDocumentRepository(db),
		NotificationRepository:     NewNotificationRepository(db),
		AuditLogRepository:         NewAuditLogRepository(db),
		ReportRepository:           NewReportRepository(db),
		DashboardRepository:        NewDashboardRepository(db),
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func newStatementBuilder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func count(ctx context.Context, q db.DBTX, query squirrel.SelectBuilder) (int64, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int64
	if err := q.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("error counting rows: %w", err)
	}
	return total, nil
}
