package auth

import (
	"context"
	"testing"

	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lookups struct {
	students map[int64]*models.Student
	staff    map[int64]*models.Staff
	mentors  map[[2]int64]bool
}

func (l lookups) GetByUserID(_ context.Context, userID int64) (*models.Student, error) {
	if s, ok := l.students[userID]; ok {
		return s, nil
	}
	return nil, apperrors.ErrStudentNotFound
}

type staffLookup struct{ lookups }

func (l staffLookup) GetByUserID(_ context.Context, userID int64) (*models.Staff, error) {
	if s, ok := l.staff[userID]; ok {
		return s, nil
	}
	return nil, apperrors.ErrStaffNotFound
}

func (l lookups) IsActiveMentor(_ context.Context, mentorID, studentID int64) (bool, error) {
	return l.mentors[[2]int64{mentorID, studentID}], nil
}

func id(v int64) *int64 { return &v }

func TestActorScope(t *testing.T) {
	principal := Actor{UserID: 1, Role: models.RolePrincipal, InstitutionID: id(3)}
	assert.NoError(t, principal.CheckInstitution(3))
	assert.ErrorIs(t, principal.CheckInstitution(4), apperrors.ErrOutOfScope)

	state := Actor{UserID: 2, Role: models.RoleStateDirectorate}
	assert.NoError(t, state.CheckInstitution(4))
	_, err := state.Institution()
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestCanAccessStudent(t *testing.T) {
	l := lookups{
		students: map[int64]*models.Student{10: {ID: 100, UserID: 10, InstitutionID: 3}},
		staff:    map[int64]*models.Staff{20: {ID: 200, UserID: 20, InstitutionID: 3}, 21: {ID: 201, UserID: 21, InstitutionID: 3}},
		mentors:  map[[2]int64]bool{{200, 100}: true},
	}
	svc := NewAuthorizationService(l, staffLookup{l}, l)
	student := l.students[10]
	ctx := context.Background()

	require.NoError(t, svc.CanAccessStudent(ctx, Actor{UserID: 10, Role: models.RoleStudent}, student))
	assert.ErrorIs(t, svc.CanAccessStudent(ctx, Actor{UserID: 11, Role: models.RoleStudent}, student), apperrors.ErrPermissionDenied)

	require.NoError(t, svc.CanAccessStudent(ctx, Actor{UserID: 20, Role: models.RoleFacultySupervisor}, student))
	assert.ErrorIs(t, svc.CanAccessStudent(ctx, Actor{UserID: 21, Role: models.RoleFacultySupervisor}, student), apperrors.ErrPermissionDenied)

	require.NoError(t, svc.CanAccessStudent(ctx, Actor{UserID: 30, Role: models.RolePrincipal, InstitutionID: id(3)}, student))
	assert.ErrorIs(t, svc.CanAccessStudent(ctx, Actor{UserID: 31, Role: models.RolePrincipal, InstitutionID: id(9)}, student), apperrors.ErrOutOfScope)

	require.NoError(t, svc.CanAccessStudent(ctx, Actor{UserID: 40, Role: models.RoleStateDirectorate}, student))
}

func TestStudentOfRequiresStudentRole(t *testing.T) {
	l := lookups{students: map[int64]*models.Student{10: {ID: 100, UserID: 10}}}
	svc := NewAuthorizationService(l, staffLookup{l}, l)

	s, err := svc.StudentOf(context.Background(), Actor{UserID: 10, Role: models.RoleStudent})
	require.NoError(t, err)
	assert.Equal(t, int64(100), s.ID)

	_, err = svc.StudentOf(context.Background(), Actor{UserID: 10, Role: models.RolePrincipal})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	_, err = svc.StudentOf(context.Background(), Actor{UserID: 99, Role: models.RoleStudent})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}
