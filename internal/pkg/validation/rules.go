package validation

import (
	"regexp"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/placeintern/backend/internal/app/models"
)

// Validation rule patterns
var (
	// Email validation pattern
	EmailPattern = `^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`

	// Academic year such as 2024-25
	AcademicYearPattern = `^(\d{4})-(\d{2})$`

	// Roll numbers are institution assigned, alphanumeric with / and -
	RollNumberPattern = `^[A-Za-z0-9/\-]{1,30}$`

	// Name validation min/max length
	NameMinLength = 1
	NameMaxLength = 100
)

// CompiledPatterns caches compiled regex patterns for better performance
var CompiledPatterns = struct {
	Email        *regexp.Regexp
	AcademicYear *regexp.Regexp
	RollNumber   *regexp.Regexp
}{
	Email:        regexp.MustCompile(EmailPattern),
	AcademicYear: regexp.MustCompile(AcademicYearPattern),
	RollNumber:   regexp.MustCompile(RollNumberPattern),
}

// IsAcademicYear reports whether s names two consecutive years, e.g. 2024-25
func IsAcademicYear(s string) bool {
	m := CompiledPatterns.AcademicYear.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	return (start+1)%100 == end
}

// IsReportMonth reports whether m is a calendar month
func IsReportMonth(m int) bool {
	return m >= 1 && m <= 12
}

// RegisterCustomRules adds the role_type, academic_year and report_month tags to v
func RegisterCustomRules(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"role_type": func(fl validator.FieldLevel) bool {
			return models.RoleType(fl.Field().String()).IsValid()
		},
		"academic_year": func(fl validator.FieldLevel) bool {
			return IsAcademicYear(fl.Field().String())
		},
		"report_month": func(fl validator.FieldLevel) bool {
			return IsReportMonth(int(fl.Field().Int()))
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

// String validation
type StringValidation struct {
	Value    string
	MinLen   int
	MaxLen   int
	Required bool
	Pattern  *regexp.Regexp
}

// NewStringValidation creates a new string validation
func NewStringValidation(value string) *StringValidation {
	return &StringValidation{
		Value:    value,
		Required: true,
	}
}

// WithMinLength sets minimum length
func (v *StringValidation) WithMinLength(min int) *StringValidation {
	v.MinLen = min
	return v
}

// WithMaxLength sets maximum length
func (v *StringValidation) WithMaxLength(max int) *StringValidation {
	v.MaxLen = max
	return v
}

// WithPattern sets regex pattern
func (v *StringValidation) WithPattern(pattern *regexp.Regexp) *StringValidation {
	v.Pattern = pattern
	return v
}

// WithRequired sets if field is required
func (v *StringValidation) WithRequired(required bool) *StringValidation {
	v.Required = required
	return v
}

// Validate performs validation
func (v *StringValidation) Validate() bool {
	if v.Required && v.Value == "" {
		return false
	}

	// Skip other validations for empty optional values
	if !v.Required && v.Value == "" {
		return true
	}

	if v.MinLen > 0 && len(v.Value) < v.MinLen {
		return false
	}
	if v.MaxLen > 0 && len(v.Value) > v.MaxLen {
		return false
	}
	if v.Pattern != nil && !v.Pattern.MatchString(v.Value) {
		return false
	}
	return true
}

// NumericValidation checks an integer against inclusive bounds
type NumericValidation struct {
	Value int
	Min   int
	Max   int
}

// NewNumericValidation creates a new numeric validation
func NewNumericValidation(value int) *NumericValidation {
	return &NumericValidation{Value: value}
}

// WithMin sets minimum value
func (v *NumericValidation) WithMin(min int) *NumericValidation {
	v.Min = min
	return v
}

// WithMax sets maximum value
func (v *NumericValidation) WithMax(max int) *NumericValidation {
	v.Max = max
	return v
}

// Validate performs validation
func (v *NumericValidation) Validate() bool {
	if v.Min != 0 && v.Value < v.Min {
		return false
	}
	if v.Max != 0 && v.Value > v.Max {
		return false
	}
	return true
}
