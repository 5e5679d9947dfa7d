// Package reportbuilder describes the ad-hoc reports users can build, validates
// report requests against that catalog and compiles them into SQL.
package reportbuilder

import (
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/pkg/helpers"
)

// FilterType is the value type a filter accepts
type FilterType string

const (
	FilterString FilterType = "string"
	FilterEnum   FilterType = "enum"
	FilterInt    FilterType = "int"
	FilterDate   FilterType = "date"
)

// Column is one selectable output column
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	expr  string
}

// Filter is one accepted filter
type Filter struct {
	Key    string     `json:"key"`
	Label  string     `json:"label"`
	Type   FilterType `json:"type"`
	Values []string   `json:"values,omitempty"`
	apply  func(value any) squirrel.Sqlizer
}

// ReportType is a catalog entry
type ReportType struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Columns []Column `json:"columns"`
	Filters []Filter `json:"filters"`

	from        string
	joins       []string
	orderBy     []string
	institution string
}

// Column returns the column with key
func (t *ReportType) Column(key string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Key == key {
			return c, true
		}
	}
	return Column{}, false
}

// Filter returns the filter with key
func (t *ReportType) Filter(key string) (Filter, bool) {
	for _, f := range t.Filters {
		if f.Key == key {
			return f, true
		}
	}
	return Filter{}, false
}

// InstitutionFilterKey is present on every report type
const InstitutionFilterKey = "institution_id"

func eq(expr string) func(any) squirrel.Sqlizer {
	return func(v any) squirrel.Sqlizer { return squirrel.Eq{expr: v} }
}

func gte(expr string) func(any) squirrel.Sqlizer {
	return func(v any) squirrel.Sqlizer { return squirrel.GtOrEq{expr: v} }
}

// lteDay includes the whole given day for timestamp columns
func lteDay(expr string) func(any) squirrel.Sqlizer {
	return func(v any) squirrel.Sqlizer {
		return squirrel.Expr(expr+" < (?::date + INTERVAL '1 day')", v)
	}
}

// ilike matches the value literally as a substring
func ilike(expr string) func(any) squirrel.Sqlizer {
	return func(v any) squirrel.Sqlizer { return squirrel.ILike{expr: helpers.LikePattern(fmt.Sprint(v))} }
}

func boolean(expr string) func(any) squirrel.Sqlizer {
	return func(v any) squirrel.Sqlizer { return squirrel.Eq{expr: v == "true"} }
}

func institutionFilter(expr string) Filter {
	return Filter{Key: InstitutionFilterKey, Label: "Institution", Type: FilterInt, apply: eq(expr)}
}

func statusValues[S ~string](values ...S) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

const (
	studentName = "u.first_name || ' ' || u.last_name"
	mentorName  = "COALESCE(mu.first_name || ' ' || mu.last_name, '')"
)

var catalog = []*ReportType{
	{
		Key:   "students",
		Label: "Students",
		from:  "students s",
		joins: []string{
			"JOIN users u ON u.id = s.user_id",
			"JOIN institutions i ON i.id = s.institution_id",
			"JOIN branches b ON b.id = s.branch_id",
			"LEFT JOIN batches bt ON bt.id = s.batch_id",
			"LEFT JOIN mentor_assignments ma ON ma.student_id = s.id AND ma.is_active AND ma.academic_year = s.academic_year",
			"LEFT JOIN staff st ON st.id = ma.mentor_id",
			"LEFT JOIN users mu ON mu.id = st.user_id",
		},
		orderBy:     []string{"i.name", "b.code", "s.roll_number"},
		institution: "s.institution_id",
		Columns: []Column{
			{Key: "roll_number", Label: "Roll Number", expr: "s.roll_number"},
			{Key: "name", Label: "Name", expr: studentName},
			{Key: "email", Label: "Email", expr: "u.email"},
			{Key: "phone", Label: "Phone", expr: "COALESCE(u.phone, '')"},
			{Key: "institution", Label: "Institution", expr: "i.name"},
			{Key: "branch", Label: "Branch", expr: "b.name"},
			{Key: "batch", Label: "Batch", expr: "COALESCE(bt.name, '')"},
			{Key: "semester", Label: "Semester", expr: "s.semester"},
			{Key: "academic_year", Label: "Academic Year", expr: "s.academic_year"},
			{Key: "mentor", Label: "Mentor", expr: mentorName},
			{Key: "active", Label: "Active", expr: "s.is_active"},
		},
		Filters: []Filter{
			institutionFilter("s.institution_id"),
			{Key: "branch_code", Label: "Branch code", Type: FilterString, apply: eq("b.code")},
			{Key: "academic_year", Label: "Academic year", Type: FilterString, apply: eq("s.academic_year")},
			{Key: "semester", Label: "Semester", Type: FilterInt, apply: eq("s.semester")},
			{Key: "mentor_status", Label: "Mentor status", Type: FilterEnum, Values: []string{"ASSIGNED", "UNASSIGNED"},
				apply: func(v any) squirrel.Sqlizer {
					if v == "ASSIGNED" {
						return squirrel.NotEq{"ma.id": nil}
					}
					return squirrel.Eq{"ma.id": nil}
				}},
			{Key: "active", Label: "Active", Type: FilterEnum, Values: []string{"true", "false"}, apply: boolean("s.is_active")},
		},
	},
	{
		Key:   "mentor_assignments",
		Label: "Mentor assignments",
		from:  "mentor_assignments ma",
		joins: []string{
			"JOIN students s ON s.id = ma.student_id",
			"JOIN users u ON u.id = s.user_id",
			"JOIN branches b ON b.id = s.branch_id",
			"JOIN institutions i ON i.id = s.institution_id",
			"JOIN staff st ON st.id = ma.mentor_id",
			"JOIN users mu ON mu.id = st.user_id",
		},
		orderBy:     []string{"i.name", "mu.last_name", "mu.first_name", "s.roll_number"},
		institution: "s.institution_id",
		Columns: []Column{
			{Key: "roll_number", Label: "Roll Number", expr: "s.roll_number"},
			{Key: "student_name", Label: "Student", expr: studentName},
			{Key: "branch", Label: "Branch", expr: "b.name"},
			{Key: "mentor_name", Label: "Mentor", expr: mentorName},
			{Key: "mentor_designation", Label: "Designation", expr: "st.designation"},
			{Key: "institution", Label: "Institution", expr: "i.name"},
			{Key: "academic_year", Label: "Academic Year", expr: "ma.academic_year"},
			{Key: "assigned_at", Label: "Assigned At", expr: "ma.assigned_at"},
			{Key: "reason", Label: "Reason", expr: "COALESCE(ma.assignment_reason, '')"},
			{Key: "active", Label: "Active", expr: "ma.is_active"},
		},
		Filters: []Filter{
			institutionFilter("s.institution_id"),
			{Key: "academic_year", Label: "Academic year", Type: FilterString, apply: eq("ma.academic_year")},
			{Key: "branch_code", Label: "Branch code", Type: FilterString, apply: eq("b.code")},
			{Key: "active", Label: "Active", Type: FilterEnum, Values: []string{"true", "false"}, apply: boolean("ma.is_active")},
			{Key: "assigned_from", Label: "Assigned from", Type: FilterDate, apply: gte("ma.assigned_at")},
			{Key: "assigned_to", Label: "Assigned to", Type: FilterDate, apply: lteDay("ma.assigned_at")},
		},
	},
	{
		Key:   "internship_applications",
		Label: "Internship applications",
		from:  "internship_applications a",
		joins: []string{
			"JOIN students s ON s.id = a.student_id",
			"JOIN users u ON u.id = s.user_id",
			"JOIN branches b ON b.id = s.branch_id",
			"JOIN institutions i ON i.id = s.institution_id",
		},
		orderBy:     []string{"i.name", "s.roll_number", "a.created_at"},
		institution: "s.institution_id",
		Columns: []Column{
			{Key: "roll_number", Label: "Roll Number", expr: "s.roll_number"},
			{Key: "student_name", Label: "Student", expr: studentName},
			{Key: "branch", Label: "Branch", expr: "b.name"},
			{Key: "institution", Label: "Institution", expr: "i.name"},
			{Key: "company_name", Label: "Company", expr: "a.company_name"},
			{Key: "industry_sector", Label: "Sector", expr: "a.industry_sector"},
			{Key: "role_title", Label: "Role", expr: "a.role_title"},
			{Key: "start_date", Label: "Start Date", expr: "a.start_date"},
			{Key: "end_date", Label: "End Date", expr: "a.end_date"},
			{Key: "stipend", Label: "Stipend", expr: "COALESCE(a.stipend::text, '')"},
			{Key: "status", Label: "Status", expr: "a.status"},
			{Key: "remarks", Label: "Remarks", expr: "COALESCE(a.remarks, '')"},
		},
		Filters: []Filter{
			institutionFilter("s.institution_id"),
			{Key: "status", Label: "Status", Type: FilterEnum, apply: eq("a.status"), Values: statusValues(
				models.ApplicationApplied, models.ApplicationUnderReview, models.ApplicationApproved,
				models.ApplicationRejected, models.ApplicationWithdrawn, models.ApplicationCompleted)},
			{Key: "branch_code", Label: "Branch code", Type: FilterString, apply: eq("b.code")},
			{Key: "industry_sector", Label: "Sector contains", Type: FilterString, apply: ilike("a.industry_sector")},
			{Key: "company_name", Label: "Company contains", Type: FilterString, apply: ilike("a.company_name")},
			{Key: "start_from", Label: "Starting from", Type: FilterDate, apply: gte("a.start_date")},
			{Key: "start_to", Label: "Starting until", Type: FilterDate, apply: lteDay("a.start_date")},
		},
	},
	{
		Key:   "monthly_reports",
		Label: "Monthly reports",
		from:  "monthly_reports r",
		joins: []string{
			"JOIN internship_applications a ON a.id = r.application_id",
			"JOIN students s ON s.id = r.student_id",
			"JOIN users u ON u.id = s.user_id",
			"JOIN institutions i ON i.id = s.institution_id",
		},
		orderBy:     []string{"i.name", "s.roll_number", "r.report_year", "r.report_month"},
		institution: "s.institution_id",
		Columns: []Column{
			{Key: "roll_number", Label: "Roll Number", expr: "s.roll_number"},
			{Key: "student_name", Label: "Student", expr: studentName},
			{Key: "institution", Label: "Institution", expr: "i.name"},
			{Key: "company_name", Label: "Company", expr: "a.company_name"},
			{Key: "period", Label: "Period", expr: "r.report_year::text || '-' || LPAD(r.report_month::text, 2, '0')"},
			{Key: "hours_worked", Label: "Hours", expr: "r.hours_worked"},
			{Key: "status", Label: "Status", expr: "r.status"},
			{Key: "submitted_at", Label: "Submitted At", expr: "r.submitted_at"},
			{Key: "reviewed_at", Label: "Reviewed At", expr: "r.reviewed_at"},
			{Key: "reviewer_remarks", Label: "Remarks", expr: "COALESCE(r.reviewer_remarks, '')"},
		},
		Filters: []Filter{
			institutionFilter("s.institution_id"),
			{Key: "status", Label: "Status", Type: FilterEnum, apply: eq("r.status"), Values: statusValues(
				models.ReportSubmitted, models.ReportApproved, models.ReportRejected)},
			{Key: "report_year", Label: "Year", Type: FilterInt, apply: eq("r.report_year")},
			{Key: "report_month", Label: "Month", Type: FilterInt, apply: eq("r.report_month")},
		},
	},
	{
		Key:   "grievances",
		Label: "Grievances",
		from:  "grievances g",
		joins: []string{
			"JOIN students s ON s.id = g.student_id",
			"JOIN users u ON u.id = s.user_id",
			"JOIN institutions i ON i.id = g.institution_id",
		},
		orderBy:     []string{"g.created_at DESC", "g.id"},
		institution: "g.institution_id",
		Columns: []Column{
			{Key: "id", Label: "ID", expr: "g.id"},
			{Key: "roll_number", Label: "Roll Number", expr: "s.roll_number"},
			{Key: "student_name", Label: "Student", expr: studentName},
			{Key: "institution", Label: "Institution", expr: "i.name"},
			{Key: "category", Label: "Category", expr: "g.category"},
			{Key: "subject", Label: "Subject", expr: "g.subject"},
			{Key: "status", Label: "Status", expr: "g.status"},
			{Key: "escalation_level", Label: "Level", expr: "g.escalation_level"},
			{Key: "created_at", Label: "Filed At", expr: "g.created_at"},
			{Key: "resolved_at", Label: "Resolved At", expr: "g.resolved_at"},
			{Key: "resolution", Label: "Resolution", expr: "COALESCE(g.resolution, '')"},
		},
		Filters: []Filter{
			institutionFilter("g.institution_id"),
			{Key: "status", Label: "Status", Type: FilterEnum, apply: eq("g.status"), Values: statusValues(
				models.GrievanceSubmitted, models.GrievanceInReview, models.GrievanceEscalated,
				models.GrievanceResolved, models.GrievanceClosed)},
			{Key: "category", Label: "Category", Type: FilterEnum, apply: eq("g.category"), Values: statusValues(
				models.GrievanceCategoryWorkplace, models.GrievanceCategoryStipend, models.GrievanceCategoryMentor,
				models.GrievanceCategorySafety, models.GrievanceCategoryAcademic, models.GrievanceCategoryOther)},
			{Key: "escalation_level", Label: "Level", Type: FilterEnum, apply: eq("g.escalation_level"), Values: statusValues(
				models.LevelFaculty, models.LevelPrincipal, models.LevelStateDirectorate)},
			{Key: "created_from", Label: "Filed from", Type: FilterDate, apply: gte("g.created_at")},
			{Key: "created_to", Label: "Filed until", Type: FilterDate, apply: lteDay("g.created_at")},
		},
	},
}

// Catalog returns every report type
func Catalog() []*ReportType {
	return catalog
}

// Lookup finds a report type by key
func Lookup(key string) (*ReportType, bool) {
	for _, t := range catalog {
		if t.Key == key {
			return t, true
		}
	}
	return nil, false
}
