package dto

import (
	"time"

	"github.com/placeintern/backend/internal/app/models"
)

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"principal@gpc-ludhiana.edu.in"`
	Password string `json:"password" binding:"required" example:"Secret123"`
}

// TokenResponse represents JWT token information
type TokenResponse struct {
	AccessToken           string    `json:"accessToken"`
	TokenType             string    `json:"tokenType" example:"Bearer"`
	ExpiresIn             int64     `json:"expiresIn" example:"3600"`
	ExpiresAt             time.Time `json:"expiresAt"`
	RefreshToken          string    `json:"refreshToken,omitempty"`
	RefreshTokenExpiresIn int64     `json:"refreshTokenExpiresIn,omitempty" example:"604800"`
}

// RefreshTokenRequest represents refresh token request
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// LogoutRequest optionally names the refresh token to revoke; without it every token of the user is revoked
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ChangePasswordRequest changes the caller's password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8,max=72"`
}

// AuthResponse represents successful authentication response
type AuthResponse struct {
	Token TokenResponse `json:"token"`
	User  *models.User  `json:"user"`
}

// SessionResponse reports how long the presented access token stays valid
type SessionResponse struct {
	ExpiresAt        time.Time `json:"expiresAt"`
	RemainingSeconds int64     `json:"remainingSeconds" example:"240"`
	Warning          bool      `json:"warning" example:"true"`
	WarningSeconds   int64     `json:"warningSeconds" example:"300"`
}

// ProfileResponse is the caller's account with role specific details
type ProfileResponse struct {
	User        *models.User        `json:"user"`
	Institution *models.Institution `json:"institution,omitempty"`
	Student     *models.Student     `json:"student,omitempty"`
	Staff       *models.Staff       `json:"staff,omitempty"`
}
