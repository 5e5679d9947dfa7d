package services

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/pkg/apperrors"
	"github.com/placeintern/backend/internal/pkg/email"
)

type enrolledStudents struct {
	created []*models.Student
	emails  map[string]bool
	rolls   map[string]bool
}

func newEnrolledStudents() *enrolledStudents {
	return &enrolledStudents{emails: map[string]bool{}, rolls: map[string]bool{}}
}

func (m *enrolledStudents) CreateWithUser(_ context.Context, user *models.User, s *models.Student) error {
	if m.emails[user.Email] {
		return apperrors.ErrEmailAlreadyExists
	}
	if m.rolls[s.RollNumber] {
		return apperrors.ErrRollNumberAlreadyExists
	}
	m.emails[user.Email] = true
	m.rolls[s.RollNumber] = true
	user.ID = int64(len(m.created) + 1000)
	s.ID = int64(len(m.created) + 1)
	s.UserID = user.ID
	s.User = user
	m.created = append(m.created, s)
	return nil
}

func (m *enrolledStudents) GetByID(context.Context, int64) (*models.Student, error) {
	return nil, apperrors.ErrStudentNotFound
}

func (m *enrolledStudents) GetByUserID(context.Context, int64) (*models.Student, error) {
	return nil, apperrors.ErrStudentNotFound
}

func (m *enrolledStudents) List(context.Context, models.StudentFilter, int, int) ([]models.Student, int64, error) {
	return nil, 0, nil
}

func (m *enrolledStudents) Update(context.Context, *models.Student) error { return nil }

func (m *enrolledStudents) Deactivate(context.Context, int64) error { return nil }

type branchCodes map[string]int64

func (b branchCodes) GetBranch(_ context.Context, id int64) (*models.Branch, error) {
	return &models.Branch{ID: id}, nil
}

func (b branchCodes) BranchCodes(context.Context, int64) (map[string]int64, error) { return b, nil }

func (b branchCodes) GetBatch(_ context.Context, id int64) (*models.Batch, error) {
	return &models.Batch{ID: id}, nil
}

type sentMail struct {
	To       string
	Template string
}

type recordingMailer struct{ sent []sentMail }

func (m *recordingMailer) Send(_ context.Context, user *models.User, template string, _ map[string]any) error {
	m.sent = append(m.sent, sentMail{To: user.Email, Template: template})
	return nil
}

type importFixture struct {
	svc      *StudentService
	students *enrolledStudents
	mailer   *recordingMailer
	audit    *recordingAuditor
}

func newImportFixture() *importFixture {
	f := &importFixture{students: newEnrolledStudents(), mailer: &recordingMailer{}, audit: &recordingAuditor{}}
	f.svc = NewStudentService(f.students, branchCodes{"CSE": 1, "ME": 2}, nil, newDirectory().authz(),
		f.mailer, f.audit, testLogger)
	return f
}

func (f *importFixture) run(t *testing.T, fileName string, r io.Reader) (int, int, map[int]string) {
	t.Helper()
	res, err := f.svc.Import(context.Background(), principalActor(50, 3), fileName, r, "2025-26")
	require.NoError(t, err)
	byRow := map[int]string{}
	for _, e := range res.Errors {
		byRow[e.Row] = e.Message
	}
	assert.Equal(t, res.Created+res.Failed, res.TotalRows)
	return res.Created, res.Failed, byRow
}

const importCSV = `Roll Number,First Name,Last Name,Email,Branch Code,Semester
230101,Aman,Singh,aman@example.com,cse,6
230102,Bani,,BANI@example.com,ME,5

230103,Chetan,Sharma,not-an-email,CSE,6
230104,Divya,Rani,divya@example.com,EE,6
230105,Esha,Gill,esha@example.com,CSE,9
230101,Farhan,Ali,farhan@example.com,CSE,6
230106,Gagan,Dhillon,bani@example.com,CSE,6
`

func TestImportCSVReportsEachRow(t *testing.T) {
	f := newImportFixture()
	created, failed, errs := f.run(t, "students.csv", strings.NewReader(importCSV))

	assert.Equal(t, 2, created)
	assert.Equal(t, 5, failed)
	assert.Equal(t, "email is missing or invalid", errs[5])
	assert.Equal(t, `unknown branch code "EE"`, errs[6])
	assert.Equal(t, "semester must be a number between 1 and 8", errs[7])
	assert.Equal(t, "duplicate roll number, already on row 2", errs[8])
	assert.Equal(t, "duplicate email, already on row 3", errs[9])

	require.Len(t, f.students.created, 2)
	first := f.students.created[0]
	assert.Equal(t, int64(1), first.BranchID)
	assert.Equal(t, int64(3), first.InstitutionID)
	assert.Equal(t, "2025-26", first.AcademicYear)
	assert.Equal(t, "bani@example.com", f.students.created[1].User.Email)

	require.Len(t, f.mailer.sent, 2)
	assert.Equal(t, email.TemplateWelcome, f.mailer.sent[0].Template)

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, models.AuditActionStudentImport, f.audit.entries[0].Action)
	assert.Equal(t, 2, f.audit.entries[0].Details["created"])
	assert.Equal(t, 5, f.audit.entries[0].Details["failed"])
}

func TestImportReportsExistingAccounts(t *testing.T) {
	f := newImportFixture()
	f.students.emails["aman@example.com"] = true

	created, failed, errs := f.run(t, "students.csv", strings.NewReader(
		"roll_number,first_name,last_name,email,branch_code,semester\n230101,Aman,Singh,aman@example.com,CSE,6\n"))
	assert.Equal(t, 0, created)
	assert.Equal(t, 1, failed)
	assert.Equal(t, apperrors.ErrEmailAlreadyExists.Error(), errs[2])
	assert.Empty(t, f.mailer.sent)
}

func TestImportRejectsMissingColumns(t *testing.T) {
	f := newImportFixture()
	_, err := f.svc.Import(context.Background(), principalActor(50, 3), "students.csv",
		strings.NewReader("roll_number,first_name,email\n230101,Aman,aman@example.com\n"), "2025-26")
	require.ErrorIs(t, err, apperrors.ErrValidationFailed)

	var ce *apperrors.CustomError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "last_name, branch_code, semester", ce.Details["columns"])
	assert.Empty(t, f.students.created)
	assert.Empty(t, f.audit.entries)
}

func TestImportRejectsBadInput(t *testing.T) {
	f := newImportFixture()
	ctx := context.Background()

	_, err := f.svc.Import(ctx, principalActor(50, 3), "students.txt", strings.NewReader("x"), "2025-26")
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedImportFormat)

	_, err = f.svc.Import(ctx, principalActor(50, 3), "students.csv", strings.NewReader(""), "2025-26")
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = f.svc.Import(ctx, principalActor(50, 3), "students.csv", strings.NewReader(importCSV), "2025")
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestImportXLSX(t *testing.T) {
	book := excelize.NewFile()
	sheet := book.GetSheetName(0)
	rows := [][]any{
		{"roll_number", "first_name", "last_name", "email", "branch_code", "semester", "academic_year"},
		{"230201", "Harleen", "Kaur", "harleen@example.com", "CSE", 6, "2024-25"},
		{"230202", "Ishaan", "", "ishaan@example.com", "ME", 4, ""},
		{"230201", "Jaspreet", "Kaur", "jaspreet@example.com", "CSE", 6, ""},
		{"230203", "Kiran", "", "kiran@example.com", "CSE", 6, "2024"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, book.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, book.Write(&buf))

	f := newImportFixture()
	created, failed, errs := f.run(t, "students.XLSX", &buf)

	assert.Equal(t, 2, created)
	assert.Equal(t, 2, failed)
	assert.Equal(t, "duplicate roll number, already on row 2", errs[4])
	assert.Equal(t, "academic_year must look like 2024-25", errs[5])
	require.Len(t, f.students.created, 2)
	assert.Equal(t, "2024-25", f.students.created[0].AcademicYear)
	assert.Equal(t, "2025-26", f.students.created[1].AcademicYear)
	assert.Equal(t, 4, f.students.created[1].Semester)
}
