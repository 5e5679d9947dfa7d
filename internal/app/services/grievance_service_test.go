package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/app/models/dto"
	"github.com/placeintern/backend/internal/pkg/apperrors"
	"github.com/placeintern/backend/internal/pkg/email"
)

type memoryGrievances struct {
	dir    *directory
	nextID int64
	items  map[int64]models.Grievance
	events map[int64][]models.GrievanceEvent
}

func newMemoryGrievances(dir *directory) *memoryGrievances {
	return &memoryGrievances{dir: dir, items: map[int64]models.Grievance{}, events: map[int64][]models.GrievanceEvent{}}
}

func (m *memoryGrievances) Create(_ context.Context, g *models.Grievance, actorID int64) error {
	m.nextID++
	g.ID = m.nextID
	m.items[g.ID] = *g
	m.events[g.ID] = append(m.events[g.ID], models.GrievanceEvent{
		GrievanceID: g.ID, FromStatus: g.Status, ToStatus: g.Status,
		FromLevel: g.EscalationLevel, ToLevel: g.EscalationLevel, ActorID: actorID,
	})
	return nil
}

func (m *memoryGrievances) GetByID(_ context.Context, id int64) (*models.Grievance, error) {
	g, ok := m.items[id]
	if !ok {
		return nil, apperrors.ErrGrievanceNotFound
	}
	return &g, nil
}

func (m *memoryGrievances) History(_ context.Context, id int64) ([]models.GrievanceEvent, error) {
	return m.events[id], nil
}

func (m *memoryGrievances) List(_ context.Context, filter models.GrievanceFilter, _, _ int) ([]models.Grievance, int64, error) {
	var out []models.Grievance
	for _, g := range m.items {
		if filter.Level != nil && g.EscalationLevel != *filter.Level {
			orphaned := filter.WithOrphaned && g.EscalationLevel == models.LevelFaculty &&
				!m.dir.hasLiveMentor(g.StudentID, nil)
			if !orphaned {
				continue
			}
		}
		if filter.MentorUserID != nil && !m.dir.hasLiveMentor(g.StudentID, filter.MentorUserID) {
			continue
		}
		if filter.StudentID != nil && g.StudentID != *filter.StudentID {
			continue
		}
		if filter.InstitutionID != nil && g.InstitutionID != *filter.InstitutionID {
			continue
		}
		out = append(out, g)
	}
	return out, int64(len(out)), nil
}

func (m *memoryGrievances) ApplyTransition(_ context.Context, g *models.Grievance, e *models.GrievanceEvent) error {
	current := m.items[g.ID]
	if current.Status != e.FromStatus || current.EscalationLevel != e.FromLevel {
		return apperrors.ErrInvalidTransition
	}
	m.items[g.ID] = *g
	m.events[g.ID] = append(m.events[g.ID], *e)
	return nil
}

type grievanceFixture struct {
	svc      *GrievanceService
	store    *memoryGrievances
	notifier *recordingNotifier
	audit    *recordingAuditor
	dir      *directory
	student  *models.Student
	mentor   *models.Staff
}

func newGrievanceFixture() *grievanceFixture {
	dir := newDirectory()
	student := dir.addStudent(&models.Student{ID: 100, UserID: 10, InstitutionID: 3})
	mentor := dir.addStaff(&models.Staff{ID: 200, UserID: 20, InstitutionID: 3})
	dir.mentor(mentor.ID, student.ID)

	f := &grievanceFixture{
		store:    newMemoryGrievances(dir),
		notifier: &recordingNotifier{},
		audit:    &recordingAuditor{},
		dir:      dir,
		student:  student,
		mentor:   mentor,
	}
	f.svc = NewGrievanceService(f.store, studentDir{dir}, dir, dir.authz(), f.notifier, f.audit, testLogger)
	return f
}

func (f *grievanceFixture) file(t *testing.T) *models.Grievance {
	t.Helper()
	g, err := f.svc.File(context.Background(), studentActor(f.student), &dto.GrievanceRequest{
		Category: "STIPEND", Subject: "Stipend delayed", Description: "No stipend for two months",
	})
	require.NoError(t, err)
	return g
}

func TestGrievanceFileRoutesToMentor(t *testing.T) {
	f := newGrievanceFixture()
	g := f.file(t)

	assert.Equal(t, models.GrievanceSubmitted, g.Status)
	assert.Equal(t, models.LevelFaculty, g.EscalationLevel)
	require.NotNil(t, g.AssignedTo)
	assert.Equal(t, f.mentor.UserID, *g.AssignedTo)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, f.mentor.UserID, f.notifier.sent[0].UserID)
}

func TestGrievanceEscalatesThroughChain(t *testing.T) {
	f := newGrievanceFixture()
	ctx := context.Background()
	g := f.file(t)

	g, err := f.svc.Escalate(ctx, facultyActor(f.mentor), g.ID, &dto.GrievanceActionRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.GrievanceEscalated, g.Status)
	assert.Equal(t, models.LevelPrincipal, g.EscalationLevel)
	assert.Nil(t, g.AssignedTo)

	_, err = f.svc.Review(ctx, facultyActor(f.mentor), g.ID, &dto.GrievanceActionRequest{})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied, "faculty no longer handles it")

	_, err = f.svc.Review(ctx, principalActor(30, 4), g.ID, &dto.GrievanceActionRequest{})
	assert.ErrorIs(t, err, apperrors.ErrOutOfScope, "principal of another institution")

	principal := principalActor(30, 3)
	g, err = f.svc.Review(ctx, principal, g.ID, &dto.GrievanceActionRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.GrievanceInReview, g.Status)

	g, err = f.svc.Escalate(ctx, principal, g.ID, &dto.GrievanceActionRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.LevelStateDirectorate, g.EscalationLevel)

	_, err = f.svc.Escalate(ctx, stateActor(40), g.ID, &dto.GrievanceActionRequest{})
	assert.ErrorIs(t, err, apperrors.ErrEscalationLimitReached)

	require.Len(t, f.audit.entries, 2)
	assert.Equal(t, models.AuditActionGrievanceEscalate, f.audit.entries[1].Action)
	assert.Equal(t, "STATE_DIRECTORATE", f.audit.entries[1].Details["toLevel"])

	history, err := f.svc.Get(ctx, stateActor(40), g.ID)
	require.NoError(t, err)
	assert.Len(t, history.History, 4)
}

func TestGrievanceResolveAndClose(t *testing.T) {
	f := newGrievanceFixture()
	ctx := context.Background()
	g := f.file(t)

	_, err := f.svc.Close(ctx, studentActor(f.student), g.ID, &dto.GrievanceActionRequest{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition, "only resolved grievances close")

	_, err = f.svc.Resolve(ctx, facultyActor(f.mentor), g.ID, &dto.ResolveGrievanceRequest{Resolution: "Paid"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition, "must be reviewed first")

	_, err = f.svc.Review(ctx, facultyActor(f.mentor), g.ID, &dto.GrievanceActionRequest{})
	require.NoError(t, err)
	g, err = f.svc.Resolve(ctx, facultyActor(f.mentor), g.ID, &dto.ResolveGrievanceRequest{Resolution: "Company paid arrears"})
	require.NoError(t, err)
	assert.Equal(t, models.GrievanceResolved, g.Status)
	assert.NotNil(t, g.ResolvedAt)
	assert.Equal(t, "Company paid arrears", *g.Resolution)

	last := f.notifier.sent[len(f.notifier.sent)-1]
	assert.Equal(t, f.student.UserID, last.UserID)
	assert.Equal(t, email.TemplateGrievanceUpdate, last.Notice.EmailTemplate)
	assert.Equal(t, "RESOLVED", last.Notice.EmailData["status"])

	g, err = f.svc.Close(ctx, studentActor(f.student), g.ID, &dto.GrievanceActionRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.GrievanceClosed, g.Status)
	assert.NotNil(t, g.ClosedAt)
}

func TestGrievanceListScopesByRole(t *testing.T) {
	f := newGrievanceFixture()
	ctx := context.Background()
	g := f.file(t)

	items, _, err := f.svc.List(ctx, principalActor(30, 3), models.GrievanceFilter{}, 1, 20)
	require.NoError(t, err)
	assert.Empty(t, items, "still at faculty level")

	_, err = f.svc.Escalate(ctx, facultyActor(f.mentor), g.ID, &dto.GrievanceActionRequest{})
	require.NoError(t, err)

	items, _, err = f.svc.List(ctx, principalActor(30, 3), models.GrievanceFilter{}, 1, 20)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	items, _, err = f.svc.List(ctx, studentActor(f.student), models.GrievanceFilter{}, 1, 20)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestGrievanceWithoutMentorGoesToPrincipal(t *testing.T) {
	f := newGrievanceFixture()
	ctx := context.Background()
	orphan := f.dir.addStudent(&models.Student{ID: 101, UserID: 11, InstitutionID: 3})

	g, err := f.svc.File(ctx, studentActor(orphan), &dto.GrievanceRequest{
		Category: "SAFETY", Subject: "No safety gear", Description: "Shop floor has no gloves",
	})
	require.NoError(t, err)
	assert.Equal(t, models.LevelPrincipal, g.EscalationLevel)
	assert.Nil(t, g.AssignedTo)
	assert.Empty(t, f.notifier.sent)

	principal := principalActor(30, 3)
	items, _, err := f.svc.List(ctx, principal, models.GrievanceFilter{}, 1, 20)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, g.ID, items[0].ID)

	g, err = f.svc.Review(ctx, principal, g.ID, &dto.GrievanceActionRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.GrievanceInReview, g.Status)

	g, err = f.svc.Resolve(ctx, principal, g.ID, &dto.ResolveGrievanceRequest{Resolution: "Gloves issued"})
	require.NoError(t, err)
	assert.Equal(t, models.GrievanceResolved, g.Status)
}

func TestGrievanceOfDeactivatedMentorFallsToPrincipal(t *testing.T) {
	f := newGrievanceFixture()
	ctx := context.Background()
	g := f.file(t)
	principal := principalActor(30, 3)

	_, err := f.svc.Review(ctx, principal, g.ID, &dto.GrievanceActionRequest{})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied, "mentor still handles it")

	f.mentor.User.IsActive = false

	_, err = f.svc.Review(ctx, facultyActor(f.mentor), g.ID, &dto.GrievanceActionRequest{})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	items, _, err := f.svc.List(ctx, principal, models.GrievanceFilter{}, 1, 20)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	g, err = f.svc.Review(ctx, principal, g.ID, &dto.GrievanceActionRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.LevelFaculty, g.EscalationLevel)

	g, err = f.svc.Escalate(ctx, principal, g.ID, &dto.GrievanceActionRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.LevelPrincipal, g.EscalationLevel)
	assert.Equal(t, models.GrievanceEscalated, g.Status)
}

func TestGrievanceFollowsReassignedMentor(t *testing.T) {
	f := newGrievanceFixture()
	ctx := context.Background()
	g := f.file(t)
	successor := f.dir.addStaff(&models.Staff{ID: 201, UserID: 21, InstitutionID: 3})
	f.dir.reassign(successor.ID, f.student.ID)

	_, err := f.svc.Review(ctx, facultyActor(f.mentor), g.ID, &dto.GrievanceActionRequest{})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied, "previous mentor")

	items, _, err := f.svc.List(ctx, facultyActor(successor), models.GrievanceFilter{}, 1, 20)
	require.NoError(t, err)
	require.Len(t, items, 1)

	g, err = f.svc.Review(ctx, facultyActor(successor), g.ID, &dto.GrievanceActionRequest{})
	require.NoError(t, err)
	require.NotNil(t, g.AssignedTo)
	assert.Equal(t, successor.UserID, *g.AssignedTo)
}
