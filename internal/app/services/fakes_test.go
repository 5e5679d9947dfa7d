package services

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	appauth "github.com/placeintern/backend/internal/app/auth"
	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/pkg/apperrors"
)

var testLogger = zerolog.Nop()

// directory is an in-memory lookup of students, staff and mentorships
type directory struct {
	students map[int64]*models.Student
	staff    map[int64]*models.Staff
	mentors  map[[2]int64]bool
}

func newDirectory() *directory {
	return &directory{
		students: map[int64]*models.Student{},
		staff:    map[int64]*models.Staff{},
		mentors:  map[[2]int64]bool{},
	}
}

func (d *directory) addStudent(s *models.Student) *models.Student {
	if s.User == nil {
		s.User = &models.User{ID: s.UserID, Email: "student@example.com", FirstName: "Test", LastName: "Student"}
	}
	d.students[s.ID] = s
	return s
}

// addStaff registers an active staff member with an active account
func (d *directory) addStaff(s *models.Staff) *models.Staff {
	if s.User == nil {
		s.User = &models.User{ID: s.UserID, Email: "mentor@example.com", FirstName: "Test", LastName: "Mentor"}
	}
	s.IsActive = true
	s.User.IsActive = true
	d.staff[s.ID] = s
	return s
}

func (d *directory) mentor(staffID, studentID int64) {
	d.mentors[[2]int64{staffID, studentID}] = true
}

// reassign ends the student's current mentorship and starts one with staffID
func (d *directory) reassign(staffID, studentID int64) {
	for key := range d.mentors {
		if key[1] == studentID {
			delete(d.mentors, key)
		}
	}
	d.mentor(staffID, studentID)
}

// hasLiveMentor mirrors the repository's live mentor check
func (d *directory) hasLiveMentor(studentID int64, userID *int64) bool {
	for key := range d.mentors {
		m := d.staff[key[0]]
		if key[1] != studentID || !m.IsActive || !m.User.IsActive {
			continue
		}
		if userID == nil || *userID == m.UserID {
			return true
		}
	}
	return false
}

func (d *directory) authz() *appauth.AuthorizationService {
	return appauth.NewAuthorizationService(studentDir{d}, staffDir{d}, d)
}

func (d *directory) IsActiveMentor(_ context.Context, mentorID, studentID int64) (bool, error) {
	return d.mentors[[2]int64{mentorID, studentID}], nil
}

func (d *directory) GetActiveForStudent(_ context.Context, studentID int64) (*models.MentorAssignment, error) {
	for key := range d.mentors {
		if key[1] == studentID {
			m := d.staff[key[0]]
			return &models.MentorAssignment{StudentID: studentID, MentorID: m.ID, Mentor: m, IsActive: true}, nil
		}
	}
	return nil, apperrors.ErrAssignmentNotFound
}

type studentDir struct{ *directory }

func (d studentDir) GetByUserID(_ context.Context, userID int64) (*models.Student, error) {
	for _, s := range d.students {
		if s.UserID == userID {
			return s, nil
		}
	}
	return nil, apperrors.ErrStudentNotFound
}

func (d studentDir) GetByID(_ context.Context, id int64) (*models.Student, error) {
	if s, ok := d.students[id]; ok {
		return s, nil
	}
	return nil, apperrors.ErrStudentNotFound
}

type staffDir struct{ *directory }

func (d staffDir) GetByUserID(_ context.Context, userID int64) (*models.Staff, error) {
	for _, s := range d.staff {
		if s.UserID == userID {
			return s, nil
		}
	}
	return nil, apperrors.ErrStaffNotFound
}

type sentNotice struct {
	UserID int64
	Notice Notice
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotice
}

func (n *recordingNotifier) NotifyUser(_ context.Context, user *models.User, notice Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotice{UserID: user.ID, Notice: notice})
}

type auditEntry struct {
	Action   string
	EntityID string
	Details  map[string]any
}

type recordingAuditor struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (a *recordingAuditor) Record(_ context.Context, _ appauth.Actor, action, _, entityID string, details map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, auditEntry{Action: action, EntityID: entityID, Details: details})
}

func studentActor(s *models.Student) appauth.Actor {
	return appauth.Actor{UserID: s.UserID, Role: models.RoleStudent, InstitutionID: &s.InstitutionID}
}

func facultyActor(s *models.Staff) appauth.Actor {
	return appauth.Actor{UserID: s.UserID, Role: models.RoleFacultySupervisor, InstitutionID: &s.InstitutionID}
}

func principalActor(userID, institutionID int64) appauth.Actor {
	return appauth.Actor{UserID: userID, Role: models.RolePrincipal, InstitutionID: &institutionID}
}

func stateActor(userID int64) appauth.Actor {
	return appauth.Actor{UserID: userID, Role: models.RoleStateDirectorate}
}
