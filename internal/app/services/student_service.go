package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	appauth "github.com/placeintern/backend/internal/app/auth"
	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/app/models/dto"
	"github.com/placeintern/backend/internal/pkg/apperrors"
	"github.com/placeintern/backend/internal/pkg/email"
	"github.com/placeintern/backend/internal/pkg/validation"
)

// StudentStore persists students
type StudentStore interface {
	CreateWithUser(ctx context.Context, user *models.User, student *models.Student) error
	GetByID(ctx context.Context, id int64) (*models.Student, error)
	GetByUserID(ctx context.Context, userID int64) (*models.Student, error)
	List(ctx context.Context, filter models.StudentFilter, page, size int) ([]models.Student, int64, error)
	Update(ctx context.Context, s *models.Student) error
	Deactivate(ctx context.Context, id int64) error
}

// BranchSource resolves branches and batches of an institution
type BranchSource interface {
	GetBranch(ctx context.Context, id int64) (*models.Branch, error)
	BranchCodes(ctx context.Context, institutionID int64) (map[string]int64, error)
	GetBatch(ctx context.Context, id int64) (*models.Batch, error)
}

// ProfileUpdater writes account fields shared by students and staff
type ProfileUpdater interface {
	Update(ctx context.Context, user *models.User) error
}

// StudentService manages student enrolment
type StudentService struct {
	students StudentStore
	branches BranchSource
	users    ProfileUpdater
	authz    *appauth.AuthorizationService
	mailer   Mailer
	audit    Auditor
	logger   zerolog.Logger
}

// NewStudentService creates a new StudentService
func NewStudentService(
	students StudentStore,
	branches BranchSource,
	users ProfileUpdater,
	authz *appauth.AuthorizationService,
	mailer Mailer,
	audit Auditor,
	logger zerolog.Logger,
) *StudentService {
	return &StudentService{
		students: students,
		branches: branches,
		users:    users,
		authz:    authz,
		mailer:   mailer,
		audit:    audit,
		logger:   logger,
	}
}

func (s *StudentService) checkPlacement(ctx context.Context, institutionID, branchID int64, batchID *int64) error {
	branch, err := s.branches.GetBranch(ctx, branchID)
	if err != nil {
		return err
	}
	if branch.InstitutionID != institutionID {
		return apperrors.ErrBranchNotFound
	}
	if batchID != nil {
		batch, err := s.branches.GetBatch(ctx, *batchID)
		if err != nil {
			return err
		}
		if batch.InstitutionID != institutionID {
			return apperrors.ErrBatchNotFound
		}
	}
	return nil
}

// Create enrols a student in the actor's institution and emails the login details
func (s *StudentService) Create(ctx context.Context, actor appauth.Actor, req *dto.CreateStudentRequest) (*models.Student, string, error) {
	institutionID, err := actor.Institution()
	if err != nil {
		return nil, "", err
	}
	if err := s.checkPlacement(ctx, institutionID, req.BranchID, req.BatchID); err != nil {
		return nil, "", err
	}

	user, temporary, err := newAccount(req.Email, req.FirstName, req.LastName, req.Phone, models.RoleStudent, &institutionID, "")
	if err != nil {
		return nil, "", err
	}
	student := &models.Student{
		InstitutionID: institutionID,
		BranchID:      req.BranchID,
		BatchID:       req.BatchID,
		RollNumber:    strings.TrimSpace(req.RollNumber),
		Semester:      req.Semester,
		AcademicYear:  req.AcademicYear,
		IsActive:      true,
	}
	if err := s.students.CreateWithUser(ctx, user, student); err != nil {
		return nil, "", err
	}

	s.sendWelcome(ctx, user, temporary)
	return student, temporary, nil
}

func (s *StudentService) sendWelcome(ctx context.Context, user *models.User, temporary string) {
	if err := s.mailer.Send(ctx, user, email.TemplateWelcome, welcomeData(user, temporary)); err != nil {
		s.logger.Error().Err(err).Int64("userId", user.ID).Msg("Failed to queue welcome email")
	}
}

// Get returns a student the actor may see
func (s *StudentService) Get(ctx context.Context, actor appauth.Actor, id int64) (*models.Student, error) {
	student, err := s.students.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanAccessStudent(ctx, actor, student); err != nil {
		return nil, err
	}
	return student, nil
}

// Me returns the student record of the caller
func (s *StudentService) Me(ctx context.Context, actor appauth.Actor) (*models.Student, error) {
	return s.authz.StudentOf(ctx, actor)
}

// List returns a page of students; institution bound actors only see their own institution
func (s *StudentService) List(ctx context.Context, actor appauth.Actor, filter models.StudentFilter, page, size int) ([]models.Student, int64, error) {
	if !actor.IsCrossInstitution() {
		institutionID, err := actor.Institution()
		if err != nil {
			return nil, 0, err
		}
		filter.InstitutionID = &institutionID
	}
	return s.students.List(ctx, filter, page, size)
}

// Update writes enrolment and account fields
func (s *StudentService) Update(ctx context.Context, actor appauth.Actor, id int64, req *dto.UpdateStudentRequest) (*models.Student, error) {
	student, err := s.students.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := actor.CheckInstitution(student.InstitutionID); err != nil {
		return nil, err
	}
	if err := s.checkPlacement(ctx, student.InstitutionID, req.BranchID, req.BatchID); err != nil {
		return nil, err
	}

	student.BranchID = req.BranchID
	student.BatchID = req.BatchID
	student.Semester = req.Semester
	student.AcademicYear = req.AcademicYear
	if err := s.students.Update(ctx, student); err != nil {
		return nil, err
	}

	student.User.FirstName = strings.TrimSpace(req.FirstName)
	student.User.LastName = strings.TrimSpace(req.LastName)
	student.User.Phone = req.Phone
	if err := s.users.Update(ctx, student.User); err != nil {
		return nil, err
	}
	return student, nil
}

// Deactivate disables a student and ends the active mentorship
func (s *StudentService) Deactivate(ctx context.Context, actor appauth.Actor, id int64) error {
	student, err := s.students.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := actor.CheckInstitution(student.InstitutionID); err != nil {
		return err
	}
	return s.students.Deactivate(ctx, id)
}

// Import enrols every valid row of an .xlsx or .csv upload. Rows are independent:
// a rejected row is reported and does not stop the others.
func (s *StudentService) Import(ctx context.Context, actor appauth.Actor, fileName string, r io.Reader, academicYear string) (*dto.ImportResult, error) {
	institutionID, err := actor.Institution()
	if err != nil {
		return nil, err
	}
	if !validation.IsAcademicYear(academicYear) {
		return nil, fmt.Errorf("%w: academicYear must look like 2024-25", apperrors.ErrValidationFailed)
	}

	rows, err := parseImportFile(fileName, r)
	if err != nil {
		return nil, err
	}

	branchCodes, err := s.branches.BranchCodes(ctx, institutionID)
	if err != nil {
		return nil, err
	}
	codes := make(map[string]int64, len(branchCodes))
	for code, id := range branchCodes {
		codes[strings.ToUpper(code)] = id
	}

	result := &dto.ImportResult{TotalRows: len(rows), Errors: []dto.ImportRowError{}}
	seenRoll := map[string]int{}
	seenEmail := map[string]int{}

	for _, row := range rows {
		roll := row.get("roll_number")
		fail := func(msg string) {
			result.Failed++
			result.Errors = append(result.Errors, dto.ImportRowError{Row: row.Line, RollNumber: roll, Message: msg})
		}

		student, user, msg := buildImportedStudent(row, institutionID, academicYear, codes)
		if msg != "" {
			fail(msg)
			continue
		}
		if line, ok := seenRoll[strings.ToUpper(roll)]; ok {
			fail(fmt.Sprintf("duplicate roll number, already on row %d", line))
			continue
		}
		if line, ok := seenEmail[user.Email]; ok {
			fail(fmt.Sprintf("duplicate email, already on row %d", line))
			continue
		}
		seenRoll[strings.ToUpper(roll)] = row.Line
		seenEmail[user.Email] = row.Line

		account, temporary, err := newAccount(user.Email, user.FirstName, user.LastName, nil, models.RoleStudent, &institutionID, "")
		if err != nil {
			fail("could not prepare the account")
			continue
		}
		if err := s.students.CreateWithUser(ctx, account, student); err != nil {
			switch {
			case errors.Is(err, apperrors.ErrEmailAlreadyExists),
				errors.Is(err, apperrors.ErrRollNumberAlreadyExists),
				errors.Is(err, apperrors.ErrBranchNotFound):
				fail(err.Error())
			default:
				s.logger.Error().Err(err).Int("row", row.Line).Msg("Failed to import student row")
				fail("could not save the student")
			}
			continue
		}

		result.Created++
		s.sendWelcome(ctx, account, temporary)
	}

	s.audit.Record(ctx, actor, models.AuditActionStudentImport, "students", "", map[string]any{
		"fileName": fileName,
		"total":    result.TotalRows,
		"created":  result.Created,
		"failed":   result.Failed,
	})
	s.logger.Info().Int64("institutionId", institutionID).Int("created", result.Created).Int("failed", result.Failed).Msg("Student import finished")
	return result, nil
}

// buildImportedStudent validates one import row. A non-empty message rejects the row.
func buildImportedStudent(row importRow, institutionID int64, academicYear string, codes map[string]int64) (*models.Student, *models.User, string) {
	roll := row.get("roll_number")
	if !validation.NewStringValidation(roll).WithPattern(validation.CompiledPatterns.RollNumber).Validate() {
		return nil, nil, "roll_number is missing or invalid"
	}
	first := row.get("first_name")
	if !validation.NewStringValidation(first).WithMinLength(validation.NameMinLength).WithMaxLength(validation.NameMaxLength).Validate() {
		return nil, nil, "first_name is missing or too long"
	}
	last := row.get("last_name")
	if !validation.NewStringValidation(last).WithRequired(false).WithMaxLength(validation.NameMaxLength).Validate() {
		return nil, nil, "last_name is too long"
	}

	addr, err := mail.ParseAddress(row.get("email"))
	if err != nil {
		return nil, nil, "email is missing or invalid"
	}
	emailAddr := strings.ToLower(addr.Address)

	branchID, ok := codes[strings.ToUpper(row.get("branch_code"))]
	if !ok {
		return nil, nil, fmt.Sprintf("unknown branch code %q", row.get("branch_code"))
	}

	semester, err := strconv.Atoi(row.get("semester"))
	if err != nil || !validation.NewNumericValidation(semester).WithMin(1).WithMax(8).Validate() {
		return nil, nil, "semester must be a number between 1 and 8"
	}

	year := academicYear
	if v := row.get("academic_year"); v != "" {
		if !validation.IsAcademicYear(v) {
			return nil, nil, "academic_year must look like 2024-25"
		}
		year = v
	}

	student := &models.Student{
		InstitutionID: institutionID,
		BranchID:      branchID,
		RollNumber:    roll,
		Semester:      semester,
		AcademicYear:  year,
		IsActive:      true,
	}
	user := &models.User{Email: emailAddr, FirstName: first, LastName: last}
	return student, user, ""
}
