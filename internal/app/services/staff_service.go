package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	appauth "github.com/placeintern/backend/internal/app/auth"
	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/app/models/dto"
	"github.com/placeintern/backend/internal/app/repositories"
	"github.com/placeintern/backend/internal/pkg/apperrors"
	"github.com/placeintern/backend/internal/pkg/email"
)

// StaffStore persists faculty supervisors
type StaffStore interface {
	CreateWithUser(ctx context.Context, user *models.User, staff *models.Staff) error
	GetByID(ctx context.Context, id int64) (*models.Staff, error)
	List(ctx context.Context, filter repositories.StaffFilter, page, size int) ([]models.Staff, int64, error)
	Update(ctx context.Context, s *models.Staff) error
	Deactivate(ctx context.Context, id int64) error
}

// StaffService manages faculty supervisors of an institution
type StaffService struct {
	staff    StaffStore
	branches BranchSource
	users    ProfileUpdater
	mailer   Mailer
	logger   zerolog.Logger
}

// NewStaffService creates a new StaffService
func NewStaffService(staff StaffStore, branches BranchSource, users ProfileUpdater, mailer Mailer, logger zerolog.Logger) *StaffService {
	return &StaffService{staff: staff, branches: branches, users: users, mailer: mailer, logger: logger}
}

func (s *StaffService) checkBranch(ctx context.Context, institutionID int64, branchID *int64) error {
	if branchID == nil {
		return nil
	}
	branch, err := s.branches.GetBranch(ctx, *branchID)
	if err != nil {
		return err
	}
	if branch.InstitutionID != institutionID {
		return apperrors.ErrBranchNotFound
	}
	return nil
}

// Create adds a faculty supervisor to the actor's institution
func (s *StaffService) Create(ctx context.Context, actor appauth.Actor, req *dto.CreateStaffRequest) (*models.Staff, string, error) {
	institutionID, err := actor.Institution()
	if err != nil {
		return nil, "", err
	}
	if err := s.checkBranch(ctx, institutionID, req.BranchID); err != nil {
		return nil, "", err
	}

	user, temporary, err := newAccount(req.Email, req.FirstName, req.LastName, req.Phone, models.RoleFacultySupervisor, &institutionID, "")
	if err != nil {
		return nil, "", err
	}
	staff := &models.Staff{
		InstitutionID: institutionID,
		BranchID:      req.BranchID,
		Designation:   strings.TrimSpace(req.Designation),
		MaxMentees:    req.MaxMentees,
		IsActive:      true,
	}
	if err := s.staff.CreateWithUser(ctx, user, staff); err != nil {
		return nil, "", err
	}

	if err := s.mailer.Send(ctx, user, email.TemplateWelcome, welcomeData(user, temporary)); err != nil {
		s.logger.Error().Err(err).Int64("userId", user.ID).Msg("Failed to queue welcome email")
	}
	return staff, temporary, nil
}

// Get returns a staff member of the actor's institution
func (s *StaffService) Get(ctx context.Context, actor appauth.Actor, id int64) (*models.Staff, error) {
	staff, err := s.staff.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := actor.CheckInstitution(staff.InstitutionID); err != nil {
		return nil, err
	}
	return staff, nil
}

// List returns a page of staff of the actor's institution
func (s *StaffService) List(ctx context.Context, actor appauth.Actor, filter repositories.StaffFilter, page, size int) ([]models.Staff, int64, error) {
	if !actor.IsCrossInstitution() {
		institutionID, err := actor.Institution()
		if err != nil {
			return nil, 0, err
		}
		filter.InstitutionID = &institutionID
	}
	return s.staff.List(ctx, filter, page, size)
}

// Update writes staff and account fields
func (s *StaffService) Update(ctx context.Context, actor appauth.Actor, id int64, req *dto.UpdateStaffRequest) (*models.Staff, error) {
	staff, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkBranch(ctx, staff.InstitutionID, req.BranchID); err != nil {
		return nil, err
	}

	staff.BranchID = req.BranchID
	staff.Designation = strings.TrimSpace(req.Designation)
	staff.MaxMentees = req.MaxMentees
	if err := s.staff.Update(ctx, staff); err != nil {
		return nil, err
	}

	staff.User.FirstName = strings.TrimSpace(req.FirstName)
	staff.User.LastName = strings.TrimSpace(req.LastName)
	staff.User.Phone = req.Phone
	if err := s.users.Update(ctx, staff.User); err != nil {
		return nil, err
	}
	return staff, nil
}

// Deactivate disables a staff member and the account
func (s *StaffService) Deactivate(ctx context.Context, actor appauth.Actor, id int64) error {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	return s.staff.Deactivate(ctx, id)
}
