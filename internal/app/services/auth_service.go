package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	appauth "github.com/placeintern/backend/internal/app/auth"
	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/app/models/dto"
	"github.com/placeintern/backend/internal/pkg/apperrors"
	"github.com/placeintern/backend/internal/pkg/auth"
)

// AccountStore is the part of the user repository used for authentication
type AccountStore interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, userID int64) error
	UpdatePassword(ctx context.Context, userID int64, hash string, mustChange bool) error
}

// TokenStore persists refresh tokens
type TokenStore interface {
	CreateToken(ctx context.Context, token string, userID int64, expiryDate time.Time) error
	GetTokenByValue(ctx context.Context, token string) (int64, time.Time, error)
	RotateToken(ctx context.Context, oldToken, newToken string, userID int64, expiryDate time.Time) error
	RevokeToken(ctx context.Context, token string) error
	RevokeAllUserTokens(ctx context.Context, userID int64) error
}

// ProfileSources loads the role specific parts of a profile
type ProfileSources struct {
	Institutions interface {
		GetByID(ctx context.Context, id int64) (*models.Institution, error)
	}
	Students appauth.StudentLookup
	Staff    appauth.StaffLookup
}

// AuthService handles authentication operations
type AuthService struct {
	users      AccountStore
	tokens     TokenStore
	profiles   ProfileSources
	jwtService *auth.JWTService
	audit      Auditor
	logger     zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	users AccountStore,
	tokens TokenStore,
	profiles ProfileSources,
	jwtService *auth.JWTService,
	audit Auditor,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		profiles:   profiles,
		jwtService: jwtService,
		audit:      audit,
		logger:     logger,
	}
}

// validatePassword checks if password meets requirements
func validatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters long", apperrors.ErrInvalidPassword)
	}

	var hasLetter, hasDigit bool
	for _, char := range password {
		switch {
		case unicode.IsLetter(char):
			hasLetter = true
		case unicode.IsDigit(char):
			hasDigit = true
		}
	}
	if !hasLetter {
		return fmt.Errorf("%w: password must contain at least one letter", apperrors.ErrInvalidPassword)
	}
	if !hasDigit {
		return fmt.Errorf("%w: password must contain at least one digit", apperrors.ErrInvalidPassword)
	}
	return nil
}

// Login authenticates a user
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", apperrors.ErrValidationFailed)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !auth.CheckPassword(user.Password, req.Password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	token, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn().Err(err).Int64("userId", user.ID).Msg("Failed to update last login")
	} else {
		now := time.Now()
		user.LastLoginAt = &now
	}

	s.audit.Record(ctx, actorOf(user), models.AuditActionLogin, "users", fmt.Sprint(user.ID), nil)
	s.logger.Info().Int64("userId", user.ID).Str("role", string(user.RoleType)).Msg("User logged in")

	return &dto.AuthResponse{Token: *token, User: user}, nil
}

// RefreshToken rotates refreshToken and issues a new token pair
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, apperrors.ErrTokenInvalid
	}

	userID, _, err := s.tokens.GetTokenByValue(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load token owner: %w", err)
	}
	if !user.IsActive {
		if err := s.tokens.RevokeAllUserTokens(ctx, user.ID); err != nil {
			s.logger.Warn().Err(err).Int64("userId", user.ID).Msg("Failed to revoke tokens of disabled account")
		}
		return nil, apperrors.ErrAccountDisabled
	}

	pair, err := s.jwtService.GenerateTokenPair(user)
	if err != nil {
		return nil, fmt.Errorf("token generation error: %w", err)
	}
	if err := s.tokens.RotateToken(ctx, refreshToken, pair.RefreshToken, user.ID, pair.RefreshExpiresAt); err != nil {
		return nil, err
	}
	return tokenResponse(pair), nil
}

// Logout revokes refreshToken, or every refresh token of the user when it is empty
func (s *AuthService) Logout(ctx context.Context, actor appauth.Actor, refreshToken string) error {
	if refreshToken == "" {
		if err := s.tokens.RevokeAllUserTokens(ctx, actor.UserID); err != nil {
			return fmt.Errorf("failed to revoke tokens: %w", err)
		}
	} else {
		owner, _, err := s.tokens.GetTokenByValue(ctx, refreshToken)
		switch {
		case err == nil:
			if owner != actor.UserID {
				return apperrors.NewForbiddenError("refresh token belongs to another user")
			}
			if err := s.tokens.RevokeToken(ctx, refreshToken); err != nil && !errors.Is(err, apperrors.ErrTokenNotFound) {
				return fmt.Errorf("failed to revoke token: %w", err)
			}
		case apperrors.Is(err, apperrors.ErrTokenRevoked, apperrors.ErrTokenExpired, apperrors.ErrTokenNotFound):
			// already unusable
		default:
			return fmt.Errorf("failed to look up token: %w", err)
		}
	}

	s.audit.Record(ctx, actor, models.AuditActionLogout, "users", fmt.Sprint(actor.UserID), nil)
	return nil
}

// GetProfile returns the caller's account with role specific details
func (s *AuthService) GetProfile(ctx context.Context, userID int64) (*dto.ProfileResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := &dto.ProfileResponse{User: user}
	if user.InstitutionID != nil && s.profiles.Institutions != nil {
		inst, err := s.profiles.Institutions.GetByID(ctx, *user.InstitutionID)
		if err != nil {
			s.logger.Warn().Err(err).Int64("institutionId", *user.InstitutionID).Msg("Could not load institution for profile")
		} else {
			profile.Institution = inst
		}
	}

	switch user.RoleType {
	case models.RoleStudent:
		student, err := s.profiles.Students.GetByUserID(ctx, user.ID)
		if err != nil && !errors.Is(err, apperrors.ErrStudentNotFound) {
			return nil, fmt.Errorf("failed to get student information: %w", err)
		}
		profile.Student = student
	case models.RoleFacultySupervisor:
		staff, err := s.profiles.Staff.GetByUserID(ctx, user.ID)
		if err != nil && !errors.Is(err, apperrors.ErrStaffNotFound) {
			return nil, fmt.Errorf("failed to get staff information: %w", err)
		}
		profile.Staff = staff
	}

	return profile, nil
}

// ChangePassword replaces the caller's password and signs out every other session
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, req *dto.ChangePasswordRequest) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(user.Password, req.CurrentPassword) {
		return apperrors.NewCustomError(apperrors.ErrInvalidCredentials, "current password is incorrect")
	}
	if req.CurrentPassword == req.NewPassword {
		return fmt.Errorf("%w: new password must differ from the current one", apperrors.ErrInvalidPassword)
	}
	if err := validatePassword(req.NewPassword); err != nil {
		return err
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash, false); err != nil {
		return err
	}
	if err := s.tokens.RevokeAllUserTokens(ctx, userID); err != nil {
		s.logger.Warn().Err(err).Int64("userId", userID).Msg("Failed to revoke tokens after password change")
	}
	return nil
}

// Session reports the remaining lifetime of the presented access token
func (s *AuthService) Session(claims *auth.Claims) *dto.SessionResponse {
	status := s.jwtService.SessionStatus(claims)
	return &dto.SessionResponse{
		ExpiresAt:        status.ExpiresAt,
		RemainingSeconds: status.RemainingSeconds,
		Warning:          status.Warning,
		WarningSeconds:   int64(s.jwtService.SessionWarning() / time.Second),
	}
}

// ExtendSession issues a fresh token pair for a still valid session
func (s *AuthService) ExtendSession(ctx context.Context, claims *auth.Claims) (*dto.TokenResponse, error) {
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}
	return s.issueTokens(ctx, user)
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*dto.TokenResponse, error) {
	pair, err := s.jwtService.GenerateTokenPair(user)
	if err != nil {
		return nil, fmt.Errorf("token generation error: %w", err)
	}
	if err := s.tokens.CreateToken(ctx, pair.RefreshToken, user.ID, pair.RefreshExpiresAt); err != nil {
		return nil, fmt.Errorf("token saving error: %w", err)
	}
	return tokenResponse(pair), nil
}

func tokenResponse(pair *auth.TokenPair) *dto.TokenResponse {
	return &dto.TokenResponse{
		AccessToken:           pair.AccessToken,
		TokenType:             "Bearer",
		ExpiresIn:             int64(pair.ExpiresIn),
		ExpiresAt:             pair.AccessExpiresAt,
		RefreshToken:          pair.RefreshToken,
		RefreshTokenExpiresIn: int64(pair.RefreshExpiresIn),
	}
}

func actorOf(user *models.User) appauth.Actor {
	return appauth.Actor{UserID: user.ID, Role: user.RoleType, InstitutionID: user.InstitutionID}
}
