package services

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/app/models/dto"
	"github.com/placeintern/backend/internal/app/repositories"
	"github.com/placeintern/backend/internal/pkg/apperrors"
	"github.com/placeintern/backend/internal/pkg/email"
)

// mentorship keeps students, staff and assignments together so loads and
// unassigned lists stay consistent with what the service persisted
type mentorship struct {
	students    map[int64]*models.Student
	staff       map[int64]*models.Staff
	assignments []models.MentorAssignment
	batches     int
	singles     int
}

func newMentorship() *mentorship {
	return &mentorship{students: map[int64]*models.Student{}, staff: map[int64]*models.Staff{}}
}

func (m *mentorship) addStudent(id, institutionID int64) *models.Student {
	s := &models.Student{
		ID: id, UserID: id * 10, InstitutionID: institutionID, IsActive: true,
		User: &models.User{ID: id * 10, FirstName: "Student", Email: "student@example.com"},
	}
	m.students[id] = s
	return s
}

func (m *mentorship) addMentor(id, institutionID int64, maxMentees int, name string) *models.Staff {
	s := &models.Staff{
		ID: id, UserID: id * 10, InstitutionID: institutionID, MaxMentees: maxMentees, IsActive: true,
		User: &models.User{ID: id * 10, FirstName: name, LastName: "Kaur", Email: "mentor@example.com", IsActive: true},
	}
	m.staff[id] = s
	return s
}

func (m *mentorship) active(studentID int64, year string) *models.MentorAssignment {
	for i := range m.assignments {
		a := &m.assignments[i]
		if a.StudentID == studentID && a.IsActive && (year == "" || a.AcademicYear == year) {
			return a
		}
	}
	return nil
}

func (m *mentorship) load(mentorID int64, year string) int {
	n := 0
	for _, a := range m.assignments {
		if a.MentorID == mentorID && a.IsActive && a.AcademicYear == year {
			n++
		}
	}
	return n
}

type menteeSource struct{ *mentorship }

func (m menteeSource) GetByID(_ context.Context, id int64) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, apperrors.ErrStudentNotFound
}

func (m menteeSource) ListUnassigned(_ context.Context, institutionID int64, year string, _ *int64) ([]models.Student, error) {
	var out []models.Student
	for _, s := range m.students {
		if s.InstitutionID == institutionID && s.IsActive && m.active(s.ID, year) == nil {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type mentorSource struct{ *mentorship }

func (m mentorSource) GetByID(_ context.Context, id int64) (*models.Staff, error) {
	if s, ok := m.staff[id]; ok {
		return s, nil
	}
	return nil, apperrors.ErrStaffNotFound
}

func (m mentorSource) ListMentorLoads(_ context.Context, institutionID int64, year string, _ *int64, ids []int64) ([]models.MentorLoad, error) {
	wanted := map[int64]bool{}
	for _, id := range ids {
		wanted[id] = true
	}
	var out []models.MentorLoad
	for _, s := range m.staff {
		if s.InstitutionID != institutionID || !s.IsActive || (len(ids) > 0 && !wanted[s.ID]) {
			continue
		}
		out = append(out, models.MentorLoad{Mentor: *s, Load: m.load(s.ID, year)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mentor.ID < out[j].Mentor.ID })
	return out, nil
}

type assignmentStore struct{ *mentorship }

func (m assignmentStore) place(a models.MentorAssignment) {
	if prev := m.active(a.StudentID, a.AcademicYear); prev != nil {
		prev.IsActive = false
	}
	a.ID = int64(len(m.assignments) + 1)
	a.IsActive = true
	m.assignments = append(m.assignments, a)
}

func (m assignmentStore) Assign(_ context.Context, a *models.MentorAssignment) error {
	m.singles++
	m.place(*a)
	a.ID = int64(len(m.assignments))
	a.IsActive = true
	return nil
}

func (m assignmentStore) AssignBatch(_ context.Context, batch []models.MentorAssignment) error {
	m.batches++
	for _, a := range batch {
		m.place(a)
	}
	return nil
}

func (m assignmentStore) GetByID(_ context.Context, id int64) (*models.MentorAssignment, error) {
	for i := range m.assignments {
		if m.assignments[i].ID == id {
			a := m.assignments[i]
			a.Student = m.students[a.StudentID]
			return &a, nil
		}
	}
	return nil, apperrors.ErrAssignmentNotFound
}

func (m assignmentStore) GetActiveForStudent(_ context.Context, studentID int64) (*models.MentorAssignment, error) {
	if a := m.active(studentID, ""); a != nil {
		out := *a
		return &out, nil
	}
	return nil, apperrors.ErrAssignmentNotFound
}

func (m assignmentStore) List(context.Context, repositories.AssignmentFilter, int, int) ([]models.MentorAssignment, int64, error) {
	return m.assignments, int64(len(m.assignments)), nil
}

func (m assignmentStore) Deactivate(_ context.Context, id int64) error {
	for i := range m.assignments {
		if m.assignments[i].ID == id {
			m.assignments[i].IsActive = false
			return nil
		}
	}
	return apperrors.ErrAssignmentNotFound
}

type mentorFixture struct {
	svc      *MentorService
	data     *mentorship
	notifier *recordingNotifier
	audit    *recordingAuditor
}

func newMentorFixture() *mentorFixture {
	f := &mentorFixture{data: newMentorship(), notifier: &recordingNotifier{}, audit: &recordingAuditor{}}
	f.svc = NewMentorService(menteeSource{f.data}, mentorSource{f.data}, assignmentStore{f.data},
		newDirectory().authz(), f.notifier, f.audit, testLogger)
	return f
}

func (f *mentorFixture) noticesFor(userID int64) []Notice {
	var out []Notice
	for _, n := range f.notifier.sent {
		if n.UserID == userID {
			out = append(out, n.Notice)
		}
	}
	return out
}

const testYear = "2025-26"

func TestAutoAssignBalancesAndReports(t *testing.T) {
	f := newMentorFixture()
	ctx := context.Background()
	busy := f.data.addMentor(1, 3, 0, "Harpreet")
	idle := f.data.addMentor(2, 3, 3, "Gurpreet")
	f.data.addMentor(9, 4, 0, "Elsewhere")
	for id := int64(100); id < 105; id++ {
		f.data.addStudent(id, 3)
	}
	f.data.assignments = append(f.data.assignments, models.MentorAssignment{
		ID: 1, StudentID: 100, MentorID: busy.ID, AcademicYear: testYear, IsActive: true,
	})

	res, err := f.svc.AutoAssign(ctx, principalActor(50, 3), 3, &dto.AutoAssignRequest{AcademicYear: testYear})
	require.NoError(t, err)

	assert.Equal(t, 1, f.data.batches, "all placements persist together")
	assert.Zero(t, f.data.singles)
	assert.Equal(t, 4, res.Assigned)
	assert.Equal(t, 0, res.Skipped)
	assert.Empty(t, res.Unassigned)

	require.Len(t, res.PerMentor, 2)
	assert.Equal(t, dto.MentorLoadChange{MentorID: 1, Name: "Harpreet Kaur", Before: 1, After: 3}, res.PerMentor[0])
	assert.Equal(t, dto.MentorLoadChange{MentorID: 2, Name: "Gurpreet Kaur", Before: 0, After: 2, MaxMentees: 3}, res.PerMentor[1])

	for id := int64(101); id < 105; id++ {
		notices := f.noticesFor(id * 10)
		require.Len(t, notices, 1, "student %d", id)
		assert.Equal(t, email.TemplateMentorAssigned, notices[0].EmailTemplate)
		assert.Equal(t, "student", notices[0].EmailData["audience"])
	}
	assert.Empty(t, f.noticesFor(1000), "already assigned student")

	busyNotices := f.noticesFor(busy.UserID)
	require.Len(t, busyNotices, 1)
	assert.Equal(t, 2, busyNotices[0].EmailData["count"])
	idleNotices := f.noticesFor(idle.UserID)
	require.Len(t, idleNotices, 1)
	assert.Equal(t, 2, idleNotices[0].EmailData["count"])

	require.Len(t, f.audit.entries, 1)
	entry := f.audit.entries[0]
	assert.Equal(t, models.AuditActionMentorAutoAssign, entry.Action)
	assert.Equal(t, "3", entry.EntityID)
	assert.Equal(t, 4, entry.Details["assigned"])
	assert.Equal(t, 0, entry.Details["unassigned"])
	assert.Equal(t, 2, entry.Details["mentors"])
	assert.Equal(t, testYear, entry.Details["academicYear"])
}

func TestAutoAssignReportsStudentsLeftOver(t *testing.T) {
	f := newMentorFixture()
	f.data.addMentor(1, 3, 1, "Harpreet")
	f.data.addStudent(100, 3)
	f.data.addStudent(101, 3)

	res, err := f.svc.AutoAssign(context.Background(), principalActor(50, 3), 3, &dto.AutoAssignRequest{AcademicYear: testYear})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Assigned)
	assert.Equal(t, []int64{101}, res.Unassigned)
	assert.Equal(t, 1, f.audit.entries[0].Details["unassigned"])
}

func TestAutoAssignRejects(t *testing.T) {
	f := newMentorFixture()
	ctx := context.Background()
	f.data.addStudent(100, 3)

	_, err := f.svc.AutoAssign(ctx, principalActor(50, 4), 3, &dto.AutoAssignRequest{AcademicYear: testYear})
	assert.ErrorIs(t, err, apperrors.ErrOutOfScope)

	_, err = f.svc.AutoAssign(ctx, principalActor(50, 3), 3, &dto.AutoAssignRequest{AcademicYear: testYear})
	assert.ErrorIs(t, err, apperrors.ErrNoMentorsAvailable)
	assert.Zero(t, f.data.batches)
	assert.Empty(t, f.audit.entries)
}

func TestAssignChecksCapacity(t *testing.T) {
	f := newMentorFixture()
	ctx := context.Background()
	full := f.data.addMentor(1, 3, 1, "Harpreet")
	f.data.addStudent(100, 3)
	f.data.addStudent(101, 3)
	actor := principalActor(50, 3)

	a, err := f.svc.Assign(ctx, actor, &dto.AssignMentorRequest{StudentID: 100, MentorID: full.ID, AcademicYear: testYear})
	require.NoError(t, err)
	assert.Equal(t, full.ID, a.MentorID)
	assert.Len(t, f.noticesFor(1000), 1)
	assert.Len(t, f.noticesFor(full.UserID), 1)

	_, err = f.svc.Assign(ctx, actor, &dto.AssignMentorRequest{StudentID: 101, MentorID: full.ID, AcademicYear: testYear})
	assert.ErrorIs(t, err, apperrors.ErrMentorAtCapacity)

	again, err := f.svc.Assign(ctx, actor, &dto.AssignMentorRequest{StudentID: 100, MentorID: full.ID, AcademicYear: testYear})
	require.NoError(t, err, "repeating the current assignment is a no-op")
	assert.Equal(t, a.ID, again.ID)
	assert.Equal(t, 1, f.data.singles)

	_, err = f.svc.Assign(ctx, actor, &dto.AssignMentorRequest{StudentID: 100, MentorID: 77, AcademicYear: testYear})
	assert.ErrorIs(t, err, apperrors.ErrMentorNotFound)
}

func TestAssignReassignsStudent(t *testing.T) {
	f := newMentorFixture()
	ctx := context.Background()
	first := f.data.addMentor(1, 3, 0, "Harpreet")
	second := f.data.addMentor(2, 3, 0, "Gurpreet")
	f.data.addStudent(100, 3)
	actor := principalActor(50, 3)

	_, err := f.svc.Assign(ctx, actor, &dto.AssignMentorRequest{StudentID: 100, MentorID: first.ID, AcademicYear: testYear})
	require.NoError(t, err)
	_, err = f.svc.Assign(ctx, actor, &dto.AssignMentorRequest{StudentID: 100, MentorID: second.ID, AcademicYear: testYear})
	require.NoError(t, err)

	current := f.data.active(100, testYear)
	require.NotNil(t, current)
	assert.Equal(t, second.ID, current.MentorID)
	assert.Equal(t, 0, f.data.load(first.ID, testYear))
	assert.Equal(t, 1, f.data.load(second.ID, testYear))
	assert.Len(t, f.noticesFor(1000), 2)
}

func TestAssignRejectsInactiveOrForeignStudent(t *testing.T) {
	f := newMentorFixture()
	ctx := context.Background()
	m := f.data.addMentor(1, 3, 0, "Harpreet")
	f.data.addStudent(100, 3).IsActive = false
	f.data.addStudent(101, 4)
	actor := principalActor(50, 3)

	_, err := f.svc.Assign(ctx, actor, &dto.AssignMentorRequest{StudentID: 100, MentorID: m.ID, AcademicYear: testYear})
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = f.svc.Assign(ctx, actor, &dto.AssignMentorRequest{StudentID: 101, MentorID: m.ID, AcademicYear: testYear})
	assert.ErrorIs(t, err, apperrors.ErrOutOfScope)
	assert.Empty(t, f.data.assignments)
}
