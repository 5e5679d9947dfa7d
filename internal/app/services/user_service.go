package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	appauth "github.com/placeintern/backend/internal/app/auth"
	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/app/models/dto"
	"github.com/placeintern/backend/internal/pkg/apperrors"
	"github.com/placeintern/backend/internal/pkg/auth"
	"github.com/placeintern/backend/internal/pkg/email"
)

const temporaryPasswordLength = 12

// UserStore persists accounts
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter, page, size int) ([]models.User, int64, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePhone(ctx context.Context, userID int64, phone *string) error
	UpdatePassword(ctx context.Context, userID int64, hash string, mustChange bool) error
	SetActive(ctx context.Context, userID int64, active bool) error
	Delete(ctx context.Context, id int64) error
}

// StaffCreator creates a faculty account together with its staff record
type StaffCreator interface {
	CreateWithUser(ctx context.Context, user *models.User, staff *models.Staff) error
}

// UserService defines account administration
type UserService interface {
	CreateUser(ctx context.Context, actor appauth.Actor, req *dto.CreateUserRequest) (*dto.CreatedUserResponse, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context, filter models.UserFilter, page, size int) ([]models.User, int64, error)
	UpdateUser(ctx context.Context, id int64, req *dto.UpdateUserRequest) (*models.User, error)
	UpdatePhone(ctx context.Context, userID int64, phone *string) error
	SetActive(ctx context.Context, actor appauth.Actor, id int64, active bool) error
	ResetPassword(ctx context.Context, actor appauth.Actor, id int64) (*dto.PasswordResetResponse, error)
	DeleteUser(ctx context.Context, actor appauth.Actor, id int64) error
}

// userServiceImpl implements UserService
type userServiceImpl struct {
	users        UserStore
	staff        StaffCreator
	institutions interface {
		GetByID(ctx context.Context, id int64) (*models.Institution, error)
	}
	tokens interface {
		RevokeAllUserTokens(ctx context.Context, userID int64) error
	}
	mailer Mailer
	logger zerolog.Logger
}

// NewUserService creates a new UserService
func NewUserService(
	users UserStore,
	staff StaffCreator,
	institutions interface {
		GetByID(ctx context.Context, id int64) (*models.Institution, error)
	},
	tokens interface {
		RevokeAllUserTokens(ctx context.Context, userID int64) error
	},
	mailer Mailer,
	logger zerolog.Logger,
) UserService {
	return &userServiceImpl{
		users:        users,
		staff:        staff,
		institutions: institutions,
		tokens:       tokens,
		mailer:       mailer,
		logger:       logger,
	}
}

// newAccount builds an active account with a hashed password. When password is
// empty a temporary one is generated and returned.
func newAccount(emailAddr, firstName, lastName string, phone *string, role models.RoleType, institutionID *int64, password string) (*models.User, string, error) {
	temporary := ""
	if password == "" {
		var err error
		password, err = auth.GenerateTemporaryPassword(temporaryPasswordLength)
		if err != nil {
			return nil, "", fmt.Errorf("failed to generate temporary password: %w", err)
		}
		temporary = password
	} else if err := validatePassword(password); err != nil {
		return nil, "", err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", err
	}
	return &models.User{
		Email:              strings.ToLower(strings.TrimSpace(emailAddr)),
		Password:           hash,
		FirstName:          strings.TrimSpace(firstName),
		LastName:           strings.TrimSpace(lastName),
		Phone:              phone,
		RoleType:           role,
		InstitutionID:      institutionID,
		IsActive:           true,
		MustChangePassword: temporary != "",
	}, temporary, nil
}

func welcomeData(user *models.User, temporaryPassword string) map[string]any {
	return map[string]any{"email": user.Email, "temporaryPassword": temporaryPassword}
}

// CreateUser creates principals, state officers, administrators and faculty
func (s *userServiceImpl) CreateUser(ctx context.Context, actor appauth.Actor, req *dto.CreateUserRequest) (*dto.CreatedUserResponse, error) {
	switch {
	case !req.RoleType.IsValid():
		return nil, fmt.Errorf("%w: unknown role %q", apperrors.ErrValidationFailed, req.RoleType)
	case req.RoleType == models.RoleStudent:
		return nil, fmt.Errorf("%w: students are enrolled by their principal", apperrors.ErrValidationFailed)
	case req.RoleType.IsInstitutionScoped() && req.InstitutionID == nil:
		return nil, fmt.Errorf("%w: institutionId is required for role %s", apperrors.ErrValidationFailed, req.RoleType)
	case !req.RoleType.IsInstitutionScoped() && req.InstitutionID != nil:
		return nil, fmt.Errorf("%w: role %s cannot belong to an institution", apperrors.ErrValidationFailed, req.RoleType)
	}

	if req.InstitutionID != nil {
		if _, err := s.institutions.GetByID(ctx, *req.InstitutionID); err != nil {
			return nil, err
		}
	}

	user, temporary, err := newAccount(req.Email, req.FirstName, req.LastName, req.Phone, req.RoleType, req.InstitutionID, req.Password)
	if err != nil {
		return nil, err
	}

	if req.RoleType == models.RoleFacultySupervisor {
		staff := &models.Staff{InstitutionID: *req.InstitutionID, Designation: "Faculty Supervisor", IsActive: true}
		err = s.staff.CreateWithUser(ctx, user, staff)
	} else {
		err = s.users.Create(ctx, user)
	}
	if err != nil {
		return nil, err
	}

	if err := s.mailer.Send(ctx, user, email.TemplateWelcome, welcomeData(user, temporary)); err != nil {
		s.logger.Error().Err(err).Int64("userId", user.ID).Msg("Failed to queue welcome email")
	}
	s.logger.Info().Int64("userId", user.ID).Int64("createdBy", actor.UserID).Str("role", string(user.RoleType)).Msg("User created")

	return &dto.CreatedUserResponse{User: user, TemporaryPassword: temporary}, nil
}

// GetUser retrieves a user by ID
func (s *userServiceImpl) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// ListUsers returns a page of users
func (s *userServiceImpl) ListUsers(ctx context.Context, filter models.UserFilter, page, size int) ([]models.User, int64, error) {
	return s.users.List(ctx, filter, page, size)
}

// UpdateUser writes profile fields of a user
func (s *userServiceImpl) UpdateUser(ctx context.Context, id int64, req *dto.UpdateUserRequest) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.RoleType.IsInstitutionScoped() && req.InstitutionID == nil {
		return nil, fmt.Errorf("%w: institutionId is required for role %s", apperrors.ErrValidationFailed, user.RoleType)
	}
	if !user.RoleType.IsInstitutionScoped() && req.InstitutionID != nil {
		return nil, fmt.Errorf("%w: role %s cannot belong to an institution", apperrors.ErrValidationFailed, user.RoleType)
	}
	if req.InstitutionID != nil {
		if _, err := s.institutions.GetByID(ctx, *req.InstitutionID); err != nil {
			return nil, err
		}
	}

	user.FirstName = strings.TrimSpace(req.FirstName)
	user.LastName = strings.TrimSpace(req.LastName)
	user.Phone = req.Phone
	user.InstitutionID = req.InstitutionID
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdatePhone changes the caller's phone number
func (s *userServiceImpl) UpdatePhone(ctx context.Context, userID int64, phone *string) error {
	if phone != nil {
		trimmed := strings.TrimSpace(*phone)
		phone = &trimmed
		if trimmed == "" {
			phone = nil
		}
	}
	return s.users.UpdatePhone(ctx, userID, phone)
}

// SetActive activates or deactivates an account; deactivation signs the user out
func (s *userServiceImpl) SetActive(ctx context.Context, actor appauth.Actor, id int64, active bool) error {
	if id == actor.UserID && !active {
		return apperrors.NewBadRequestError("you cannot deactivate your own account")
	}
	if err := s.users.SetActive(ctx, id, active); err != nil {
		return err
	}
	if !active {
		if err := s.tokens.RevokeAllUserTokens(ctx, id); err != nil {
			s.logger.Warn().Err(err).Int64("userId", id).Msg("Failed to revoke tokens of deactivated user")
		}
	}
	return nil
}

// ResetPassword sets a temporary password, signs the user out and emails it
func (s *userServiceImpl) ResetPassword(ctx context.Context, actor appauth.Actor, id int64) (*dto.PasswordResetResponse, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := actor.CheckInstitution(derefInstitution(user.InstitutionID)); err != nil {
		return nil, err
	}

	temporary, err := auth.GenerateTemporaryPassword(temporaryPasswordLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate temporary password: %w", err)
	}
	hash, err := auth.HashPassword(temporary)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdatePassword(ctx, id, hash, true); err != nil {
		return nil, err
	}
	if err := s.tokens.RevokeAllUserTokens(ctx, id); err != nil {
		s.logger.Warn().Err(err).Int64("userId", id).Msg("Failed to revoke tokens after password reset")
	}
	if err := s.mailer.Send(ctx, user, email.TemplatePasswordReset, map[string]any{"temporaryPassword": temporary}); err != nil {
		s.logger.Error().Err(err).Int64("userId", id).Msg("Failed to queue password reset email")
	}
	return &dto.PasswordResetResponse{TemporaryPassword: temporary}, nil
}

// DeleteUser removes an account without dependent records
func (s *userServiceImpl) DeleteUser(ctx context.Context, actor appauth.Actor, id int64) error {
	if id == actor.UserID {
		return apperrors.NewBadRequestError("you cannot delete your own account")
	}
	return s.users.Delete(ctx, id)
}

func derefInstitution(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
