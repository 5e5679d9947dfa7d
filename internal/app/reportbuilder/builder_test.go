package reportbuilder

import (
	"errors"
	"strings"
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func institution(id int64) *int64 { return &id }

var principal = Scope{Role: models.RolePrincipal, InstitutionID: institution(4)}
var state = Scope{Role: models.RoleStateDirectorate}

func validationDetails(t *testing.T, err error) map[string]interface{} {
	t.Helper()
	require.ErrorIs(t, err, apperrors.ErrValidationFailed)
	var ce *apperrors.CustomError
	require.True(t, errors.As(err, &ce))
	return ce.Details
}

func TestCatalogIsConsistent(t *testing.T) {
	keys := map[string]bool{}
	for _, rt := range Catalog() {
		assert.False(t, keys[rt.Key], "duplicate report type %s", rt.Key)
		keys[rt.Key] = true

		_, ok := rt.Filter(InstitutionFilterKey)
		assert.True(t, ok, "%s has no institution filter", rt.Key)

		cols := map[string]bool{}
		for _, c := range rt.Columns {
			assert.False(t, cols[c.Key], "%s: duplicate column %s", rt.Key, c.Key)
			cols[c.Key] = true
			assert.NotEmpty(t, c.expr)
		}
		for _, f := range rt.Filters {
			assert.NotNil(t, f.apply, "%s: filter %s", rt.Key, f.Key)
			if f.Type == FilterEnum {
				assert.NotEmpty(t, f.Values)
			}
		}
	}
	for _, k := range []string{"students", "mentor_assignments", "internship_applications", "monthly_reports", "grievances"} {
		assert.True(t, keys[k], k)
	}
}

func TestValidateAcceptsAndForcesInstitution(t *testing.T) {
	req, err := Validate(Request{
		ReportType: "students",
		Columns:    []string{"roll_number", "name"},
		Filters:    map[string]string{"semester": "6", "mentor_status": "UNASSIGNED", "branch_code": " "},
		Format:     "XLSX",
	}, principal)
	require.NoError(t, err)

	assert.Equal(t, models.FormatXLSX, req.Format)
	assert.Equal(t, "4", req.Filters[InstitutionFilterKey])
	assert.Equal(t, "6", req.Filters["semester"])
	assert.NotContains(t, req.Filters, "branch_code")
}

func TestValidateStateMayQueryAnyInstitution(t *testing.T) {
	req, err := Validate(Request{ReportType: "grievances", Columns: []string{"id"}, Format: "csv"}, state)
	require.NoError(t, err)
	assert.NotContains(t, req.Filters, InstitutionFilterKey)

	req, err = Validate(Request{
		ReportType: "grievances", Columns: []string{"id"}, Format: "csv",
		Filters: map[string]string{InstitutionFilterKey: "9"},
	}, state)
	require.NoError(t, err)
	assert.Equal(t, "9", req.Filters[InstitutionFilterKey])
}

func TestValidateRejectsOtherInstitution(t *testing.T) {
	_, err := Validate(Request{
		ReportType: "students", Columns: []string{"name"}, Format: "csv",
		Filters: map[string]string{InstitutionFilterKey: "5"},
	}, principal)
	assert.ErrorIs(t, err, apperrors.ErrOutOfScope)
}

func TestValidateRejectsStudents(t *testing.T) {
	_, err := Validate(Request{ReportType: "students", Columns: []string{"name"}, Format: "csv"},
		Scope{Role: models.RoleStudent, InstitutionID: institution(4)})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestValidateRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{"unknown type", Request{ReportType: "payroll", Columns: []string{"x"}, Format: "csv"}, "reportType"},
		{"no columns", Request{ReportType: "students", Format: "csv"}, "columns"},
		{"unknown column", Request{ReportType: "students", Columns: []string{"salary"}, Format: "csv"}, "columns"},
		{"duplicate column", Request{ReportType: "students", Columns: []string{"name", "name"}, Format: "csv"}, "columns"},
		{"bad format", Request{ReportType: "students", Columns: []string{"name"}, Format: "docx"}, "format"},
		{"unknown filter", Request{ReportType: "students", Columns: []string{"name"}, Format: "csv",
			Filters: map[string]string{"caste": "x"}}, "filters.caste"},
		{"bad int", Request{ReportType: "students", Columns: []string{"name"}, Format: "csv",
			Filters: map[string]string{"semester": "sixth"}}, "filters.semester"},
		{"bad enum", Request{ReportType: "grievances", Columns: []string{"id"}, Format: "csv",
			Filters: map[string]string{"status": "LOST"}}, "filters.status"},
		{"bad date", Request{ReportType: "grievances", Columns: []string{"id"}, Format: "csv",
			Filters: map[string]string{"created_from": "01/02/2025"}}, "filters.created_from"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.req, principal)
			details := validationDetails(t, err)
			assert.Contains(t, details, tt.field)
		})
	}
}

func TestCompile(t *testing.T) {
	req, err := Validate(Request{
		ReportType: "internship_applications",
		Columns:    []string{"roll_number", "company_name", "status"},
		Filters:    map[string]string{"status": "APPROVED", "start_to": "2025-06-30"},
		Format:     "pdf",
	}, principal)
	require.NoError(t, err)

	compiled, err := Compile(req, 500)
	require.NoError(t, err)
	assert.Equal(t, []string{"Roll Number", "Company", "Status"}, compiled.Headers)
	assert.Equal(t, "Internship applications", compiled.Title)

	sql, args, err := compiled.Query.PlaceholderFormat(squirrel.Dollar).ToSql()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sql, "SELECT s.roll_number, a.company_name, a.status FROM internship_applications a"))
	assert.Contains(t, sql, "s.institution_id = $1")
	assert.Contains(t, sql, "a.status = $2")
	assert.Contains(t, sql, "a.start_date < ($3::date + INTERVAL '1 day')")
	assert.Contains(t, sql, "LIMIT 500")
	assert.Equal(t, []interface{}{int64(4), "APPROVED", "2025-06-30"}, args)
}

func TestCompileMentorStatusFilter(t *testing.T) {
	compiled, err := Compile(Request{
		ReportType: "students",
		Columns:    []string{"name"},
		Filters:    map[string]string{"mentor_status": "UNASSIGNED", "active": "true"},
	}, 0)
	require.NoError(t, err)

	sql, args, err := compiled.Query.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "ma.id IS NULL")
	assert.Contains(t, sql, "s.is_active = ?")
	assert.NotContains(t, sql, "LIMIT")
	assert.Equal(t, []interface{}{true}, args)
}

func TestCompileEscapesContainsFilters(t *testing.T) {
	compiled, err := Compile(Request{
		ReportType: "internship_applications",
		Columns:    []string{"company_name"},
		Filters:    map[string]string{"company_name": "100%_Steel"},
	}, 0)
	require.NoError(t, err)

	sql, args, err := compiled.Query.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "a.company_name ILIKE ?")
	assert.Equal(t, []interface{}{`%100\%\_Steel%`}, args)
}
