package reportbuilder

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/pkg/apperrors"
)

// Request is a report the caller asked for
type Request struct {
	ReportType string
	Columns    []string
	Filters    map[string]string
	Format     models.ReportFormat
}

// Scope is who is asking
type Scope struct {
	Role          models.RoleType
	InstitutionID *int64
}

func (s Scope) crossInstitution() bool {
	return s.Role == models.RoleStateDirectorate || s.Role == models.RoleSystemAdmin
}

// Validate checks req against the catalog and the caller's scope and returns a
// normalized copy. Institution-bound callers always get their institution
// filter forced onto the request.
func Validate(req Request, scope Scope) (Request, error) {
	if scope.Role == models.RoleStudent || !scope.Role.IsValid() {
		return Request{}, apperrors.NewForbiddenError("this role cannot build reports")
	}

	details := map[string]interface{}{}
	out := Request{
		ReportType: strings.TrimSpace(req.ReportType),
		Format:     models.ReportFormat(strings.ToLower(string(req.Format))),
		Filters:    map[string]string{},
	}

	rt, ok := Lookup(out.ReportType)
	if !ok {
		return Request{}, apperrors.NewValidationError("invalid report request",
			map[string]interface{}{"reportType": fmt.Sprintf("unknown report type %q", req.ReportType)})
	}

	if !out.Format.IsValid() {
		details["format"] = fmt.Sprintf("unsupported format %q, use xlsx, csv or pdf", req.Format)
	}

	if len(req.Columns) == 0 {
		details["columns"] = "at least one column is required"
	}
	seen := make(map[string]bool, len(req.Columns))
	for _, key := range req.Columns {
		key = strings.TrimSpace(key)
		if _, ok := rt.Column(key); !ok {
			details["columns"] = fmt.Sprintf("unknown column %q", key)
			break
		}
		if seen[key] {
			details["columns"] = fmt.Sprintf("duplicate column %q", key)
			break
		}
		seen[key] = true
		out.Columns = append(out.Columns, key)
	}

	for key, value := range req.Filters {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		f, ok := rt.Filter(key)
		if !ok {
			details["filters."+key] = "unknown filter"
			continue
		}
		if err := checkValue(f, value); err != nil {
			details["filters."+key] = err.Error()
			continue
		}
		out.Filters[key] = value
	}

	if len(details) > 0 {
		return Request{}, apperrors.NewValidationError("invalid report request", details)
	}

	if !scope.crossInstitution() {
		if scope.InstitutionID == nil {
			return Request{}, apperrors.NewForbiddenError("no institution is linked to this account")
		}
		own := strconv.FormatInt(*scope.InstitutionID, 10)
		if v, ok := out.Filters[InstitutionFilterKey]; ok && v != own {
			return Request{}, apperrors.ErrOutOfScope
		}
		out.Filters[InstitutionFilterKey] = own
	}

	return out, nil
}

func checkValue(f Filter, value string) error {
	switch f.Type {
	case FilterInt:
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return fmt.Errorf("must be an integer")
		}
	case FilterDate:
		if _, err := time.Parse("2006-01-02", value); err != nil {
			return fmt.Errorf("must be a date in YYYY-MM-DD format")
		}
	case FilterEnum:
		for _, allowed := range f.Values {
			if value == allowed {
				return nil
			}
		}
		return fmt.Errorf("must be one of %s", strings.Join(f.Values, ", "))
	case FilterString:
		if len(value) > 200 {
			return fmt.Errorf("must be at most 200 characters")
		}
	}
	return nil
}

// Compiled is a report query ready to run
type Compiled struct {
	Title   string
	Headers []string
	Query   squirrel.SelectBuilder
}

// Compile turns a validated request into a select query capped at maxRows
func Compile(req Request, maxRows int) (*Compiled, error) {
	rt, ok := Lookup(req.ReportType)
	if !ok {
		return nil, fmt.Errorf("%w: unknown report type %q", apperrors.ErrValidationFailed, req.ReportType)
	}

	exprs := make([]string, 0, len(req.Columns))
	headers := make([]string, 0, len(req.Columns))
	for _, key := range req.Columns {
		col, ok := rt.Column(key)
		if !ok {
			return nil, fmt.Errorf("%w: unknown column %q", apperrors.ErrValidationFailed, key)
		}
		exprs = append(exprs, col.expr)
		headers = append(headers, col.Label)
	}

	q := squirrel.Select(exprs...).From(rt.from)
	for _, j := range rt.joins {
		q = q.JoinClause(j)
	}

	// catalog order keeps the generated SQL stable
	for _, f := range rt.Filters {
		v, ok := req.Filters[f.Key]
		if !ok {
			continue
		}
		if f.Type == FilterInt {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: filter %s must be an integer", apperrors.ErrValidationFailed, f.Key)
			}
			q = q.Where(f.apply(n))
			continue
		}
		q = q.Where(f.apply(v))
	}

	q = q.OrderBy(rt.orderBy...)
	if maxRows > 0 {
		q = q.Limit(uint64(maxRows))
	}

	return &Compiled{Title: rt.Label, Headers: headers, Query: q}, nil
}
