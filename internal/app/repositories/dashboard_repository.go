package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/placeintern/backend/internal/db"
)

// InstitutionCounts are the headline numbers of one institution
type InstitutionCounts struct {
	InstitutionID       int64            `json:"institutionId"`
	InstitutionName     string           `json:"institutionName"`
	District            string           `json:"district"`
	Students            int64            `json:"students"`
	AssignedStudents    int64            `json:"assignedStudents"`
	UnassignedStudents  int64            `json:"unassignedStudents"`
	Staff               int64            `json:"staff"`
	ApprovedInternships int64            `json:"approvedInternships"`
	OpenGrievances      int64            `json:"openGrievances"`
	ApplicationsByState map[string]int64 `json:"applicationsByStatus,omitempty"`
	ReportsByState      map[string]int64 `json:"reportsByStatus,omitempty"`
}

// FacultyCounts are the headline numbers of one mentor
type FacultyCounts struct {
	Mentees             int64 `json:"mentees"`
	PendingReports      int64 `json:"pendingReports"`
	PendingApplications int64 `json:"pendingApplications"`
	OpenGrievances      int64 `json:"openGrievances"`
}

// DashboardRepository computes aggregate counts
type DashboardRepository struct {
	db *pgxpool.Pool
}

// NewDashboardRepository creates a new DashboardRepository
func NewDashboardRepository(db *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{db: db}
}

const institutionCountsSQL = `
	SELECT i.id, i.name, i.district,
	    (SELECT COUNT(*) FROM students s WHERE s.institution_id = i.id AND s.is_active),
	    (SELECT COUNT(DISTINCT ma.student_id) FROM mentor_assignments ma
	        JOIN students s ON s.id = ma.student_id
	        WHERE s.institution_id = i.id AND s.is_active AND ma.is_active),
	    (SELECT COUNT(*) FROM staff st WHERE st.institution_id = i.id AND st.is_active),
	    (SELECT COUNT(*) FROM internship_applications a
	        JOIN students s ON s.id = a.student_id
	        WHERE s.institution_id = i.id AND a.status = 'APPROVED'),
	    (SELECT COUNT(*) FROM grievances g
	        WHERE g.institution_id = i.id AND g.status IN ('SUBMITTED', 'IN_REVIEW', 'ESCALATED'))
	FROM institutions i`

func scanInstitutionCounts(row scanner) (*InstitutionCounts, error) {
	c := &InstitutionCounts{}
	if err := row.Scan(&c.InstitutionID, &c.InstitutionName, &c.District, &c.Students, &c.AssignedStudents,
		&c.Staff, &c.ApprovedInternships, &c.OpenGrievances); err != nil {
		return nil, err
	}
	c.UnassignedStudents = c.Students - c.AssignedStudents
	return c, nil
}

// InstitutionSummary returns the counts of one institution including status breakdowns
func (r *DashboardRepository) InstitutionSummary(ctx context.Context, institutionID int64) (*InstitutionCounts, error) {
	c, err := scanInstitutionCounts(r.db.QueryRow(ctx, institutionCountsSQL+` WHERE i.id = $1`, institutionID))
	if err != nil {
		return nil, fmt.Errorf("error computing institution counts: %w", err)
	}

	c.ApplicationsByState, err = groupCounts(ctx, r.db, `
		SELECT a.status, COUNT(*) FROM internship_applications a
		JOIN students s ON s.id = a.student_id
		WHERE s.institution_id = $1 GROUP BY a.status`, institutionID)
	if err != nil {
		return nil, err
	}
	c.ReportsByState, err = groupCounts(ctx, r.db, `
		SELECT r.status, COUNT(*) FROM monthly_reports r
		JOIN students s ON s.id = r.student_id
		WHERE s.institution_id = $1 GROUP BY r.status`, institutionID)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// StateOverview returns counts for every active institution
func (r *DashboardRepository) StateOverview(ctx context.Context) ([]InstitutionCounts, error) {
	rows, err := r.db.Query(ctx, institutionCountsSQL+` WHERE i.is_active ORDER BY i.district, i.name`)
	if err != nil {
		return nil, fmt.Errorf("error computing state overview: %w", err)
	}
	defer rows.Close()

	var out []InstitutionCounts
	for rows.Next() {
		c, err := scanInstitutionCounts(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning institution counts: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// FacultySummary returns the workload of one mentor
func (r *DashboardRepository) FacultySummary(ctx context.Context, staffID int64) (*FacultyCounts, error) {
	c := &FacultyCounts{}
	err := r.db.QueryRow(ctx, `
		SELECT
		    (SELECT COUNT(*) FROM mentor_assignments WHERE mentor_id = $1 AND is_active),
		    (SELECT COUNT(*) FROM monthly_reports r
		        JOIN mentor_assignments ma ON ma.student_id = r.student_id AND ma.is_active
		        WHERE ma.mentor_id = $1 AND r.status = 'SUBMITTED'),
		    (SELECT COUNT(*) FROM internship_applications a
		        JOIN mentor_assignments ma ON ma.student_id = a.student_id AND ma.is_active
		        WHERE ma.mentor_id = $1 AND a.status IN ('APPLIED', 'UNDER_REVIEW')),
		    (SELECT COUNT(*) FROM grievances g
		        JOIN mentor_assignments ma ON ma.student_id = g.student_id AND ma.is_active
		        WHERE ma.mentor_id = $1 AND g.escalation_level = 'FACULTY'
		          AND g.status IN ('SUBMITTED', 'IN_REVIEW', 'ESCALATED'))`,
		staffID).Scan(&c.Mentees, &c.PendingReports, &c.PendingApplications, &c.OpenGrievances)
	if err != nil {
		return nil, fmt.Errorf("error computing faculty counts: %w", err)
	}
	return c, nil
}

// StudentReportCounts returns how many monthly reports a student has per status
func (r *DashboardRepository) StudentReportCounts(ctx context.Context, studentID int64) (map[string]int64, error) {
	return groupCounts(ctx, r.db, `SELECT status, COUNT(*) FROM monthly_reports WHERE student_id = $1 GROUP BY status`, studentID)
}

func groupCounts(ctx context.Context, q db.DBTX, sql string, args ...any) (map[string]int64, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error grouping counts: %w", err)
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("error scanning grouped count: %w", err)
		}
		out[key] = n
	}
	return out, rows.Err()
}
