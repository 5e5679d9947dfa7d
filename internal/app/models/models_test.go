package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGrievanceTransitions(t *testing.T) {
	tests := []struct {
		from, to GrievanceStatus
		allowed  bool
	}{
		{GrievanceSubmitted, GrievanceInReview, true},
		{GrievanceSubmitted, GrievanceEscalated, true},
		{GrievanceSubmitted, GrievanceResolved, false},
		{GrievanceInReview, GrievanceResolved, true},
		{GrievanceInReview, GrievanceEscalated, true},
		{GrievanceEscalated, GrievanceInReview, true},
		{GrievanceEscalated, GrievanceResolved, true},
		{GrievanceResolved, GrievanceClosed, true},
		{GrievanceResolved, GrievanceInReview, false},
		{GrievanceClosed, GrievanceInReview, false},
		{GrievanceSubmitted, GrievanceClosed, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestEscalationChain(t *testing.T) {
	next, ok := LevelFaculty.Next()
	assert.True(t, ok)
	assert.Equal(t, LevelPrincipal, next)

	next, ok = LevelPrincipal.Next()
	assert.True(t, ok)
	assert.Equal(t, LevelStateDirectorate, next)

	_, ok = LevelStateDirectorate.Next()
	assert.False(t, ok)

	assert.Equal(t, RolePrincipal, LevelPrincipal.HandledBy())
	level, ok := LevelForRole(RoleStateDirectorate)
	assert.True(t, ok)
	assert.Equal(t, LevelStateDirectorate, level)
	_, ok = LevelForRole(RoleStudent)
	assert.False(t, ok)
}

func TestApplicationTransitions(t *testing.T) {
	assert.True(t, ApplicationApplied.CanTransitionTo(ApplicationUnderReview))
	assert.True(t, ApplicationApplied.CanTransitionTo(ApplicationApproved))
	assert.True(t, ApplicationUnderReview.CanTransitionTo(ApplicationRejected))
	assert.True(t, ApplicationApproved.CanTransitionTo(ApplicationCompleted))
	assert.True(t, ApplicationApproved.CanTransitionTo(ApplicationWithdrawn))
	assert.False(t, ApplicationApproved.CanTransitionTo(ApplicationRejected))
	assert.False(t, ApplicationRejected.CanTransitionTo(ApplicationApproved))
	assert.False(t, ApplicationWithdrawn.CanTransitionTo(ApplicationApplied))
	assert.False(t, ApplicationCompleted.CanTransitionTo(ApplicationWithdrawn))
}

func TestMonthlyReportTransitions(t *testing.T) {
	assert.True(t, ReportSubmitted.CanTransitionTo(ReportApproved))
	assert.True(t, ReportSubmitted.CanTransitionTo(ReportRejected))
	assert.True(t, ReportRejected.CanTransitionTo(ReportSubmitted))
	assert.False(t, ReportApproved.CanTransitionTo(ReportRejected))
	assert.False(t, ReportApproved.CanTransitionTo(ReportSubmitted))
}

func TestCoversMonth(t *testing.T) {
	app := InternshipApplication{
		StartDate: time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC),
	}
	assert.True(t, app.CoversMonth(1, 2026))
	assert.True(t, app.CoversMonth(6, 2026))
	assert.True(t, app.CoversMonth(3, 2026))
	assert.False(t, app.CoversMonth(12, 2025))
	assert.False(t, app.CoversMonth(7, 2026))
}

func TestStaffCapacity(t *testing.T) {
	limited := Staff{MaxMentees: 2}
	assert.True(t, limited.HasCapacity(1))
	assert.False(t, limited.HasCapacity(2))

	unlimited := Staff{}
	assert.True(t, unlimited.HasCapacity(500))
}

func TestRoleScope(t *testing.T) {
	assert.True(t, RolePrincipal.IsInstitutionScoped())
	assert.False(t, RoleStateDirectorate.IsInstitutionScoped())
	assert.True(t, RoleType("SYSTEM_ADMIN").IsValid())
	assert.False(t, RoleType("ADMIN").IsValid())
}
