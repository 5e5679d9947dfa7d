package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAcademicYear(t *testing.T) {
	assert.True(t, IsAcademicYear("2024-25"))
	assert.True(t, IsAcademicYear("2099-00"))
	assert.False(t, IsAcademicYear("2024-26"))
	assert.False(t, IsAcademicYear("2024/25"))
	assert.False(t, IsAcademicYear("24-25"))
}

func TestStringValidation(t *testing.T) {
	assert.True(t, NewStringValidation("230101").WithPattern(CompiledPatterns.RollNumber).Validate())
	assert.False(t, NewStringValidation("23 01").WithPattern(CompiledPatterns.RollNumber).Validate())
	assert.False(t, NewStringValidation("").Validate())
	assert.True(t, NewStringValidation("").WithRequired(false).Validate())
	assert.False(t, NewStringValidation("abc").WithMaxLength(2).Validate())
}

func TestNumericValidation(t *testing.T) {
	assert.True(t, NewNumericValidation(6).WithMin(1).WithMax(8).Validate())
	assert.False(t, NewNumericValidation(9).WithMin(1).WithMax(8).Validate())
}

func TestRegisterCustomRules(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterCustomRules(v))

	type request struct {
		Role  string `validate:"role_type"`
		Year  string `validate:"academic_year"`
		Month int    `validate:"report_month"`
	}

	assert.NoError(t, v.Struct(request{Role: "PRINCIPAL", Year: "2025-26", Month: 3}))
	assert.Error(t, v.Struct(request{Role: "ADMIN", Year: "2025-26", Month: 3}))
	assert.Error(t, v.Struct(request{Role: "PRINCIPAL", Year: "2025-27", Month: 3}))
	assert.Error(t, v.Struct(request{Role: "PRINCIPAL", Year: "2025-26", Month: 13}))
}
