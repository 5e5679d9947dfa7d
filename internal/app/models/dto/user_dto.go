package dto

import "github.com/placeintern/backend/internal/app/models"

// CreateUserRequest creates an account from the system admin console
type CreateUserRequest struct {
	Email         string          `json:"email" binding:"required,email"`
	FirstName     string          `json:"firstName" binding:"required,max=100"`
	LastName      string          `json:"lastName" binding:"required,max=100"`
	Phone         *string         `json:"phone" binding:"omitempty,max=20"`
	RoleType      models.RoleType `json:"roleType" binding:"required,role_type" example:"PRINCIPAL"`
	InstitutionID *int64          `json:"institutionId" binding:"omitempty,min=1"`
	Password      string          `json:"password" binding:"omitempty,min=8,max=72"`
}

// UpdateUserRequest updates account fields
type UpdateUserRequest struct {
	FirstName     string  `json:"firstName" binding:"required,max=100"`
	LastName      string  `json:"lastName" binding:"required,max=100"`
	Phone         *string `json:"phone" binding:"omitempty,max=20"`
	InstitutionID *int64  `json:"institutionId" binding:"omitempty,min=1"`
}

// SetActiveRequest toggles an account or record
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// UpdatePhoneRequest changes a user's phone number
type UpdatePhoneRequest struct {
	Phone *string `json:"phone" binding:"omitempty,max=20"`
}

// CreatedUserResponse returns the new account and, when generated, its temporary password
type CreatedUserResponse struct {
	User              *models.User `json:"user"`
	TemporaryPassword string       `json:"temporaryPassword,omitempty"`
}

// PasswordResetResponse is returned when an administrator resets a password
type PasswordResetResponse struct {
	TemporaryPassword string `json:"temporaryPassword"`
}
