package models

import (
	"time"
)

// User defines the user model based on the 'users' table
type User struct {
	ID                 int64      `json:"id" db:"id" example:"1"`
	Email              string     `json:"email" db:"email" example:"user@placeintern.in"`
	Password           string     `json:"-" db:"password"`
	FirstName          string     `json:"firstName" db:"first_name" example:"Harpreet"`
	LastName           string     `json:"lastName" db:"last_name" example:"Kaur"`
	Phone              *string    `json:"phone,omitempty" db:"phone" example:"+919876543210"`
	RoleType           RoleType   `json:"roleType" db:"role_type" example:"STUDENT"`
	InstitutionID      *int64     `json:"institutionId,omitempty" db:"institution_id" example:"1"`
	IsActive           bool       `json:"isActive" db:"is_active" example:"true"`
	MustChangePassword bool       `json:"mustChangePassword" db:"must_change_password"`
	LastLoginAt        *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
	CreatedAt          time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time  `json:"updatedAt" db:"updated_at"`
}

// FullName joins first and last name
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// UserFilter narrows user listings
type UserFilter struct {
	RoleType      *RoleType
	InstitutionID *int64
	IsActive      *bool
	Search        string
}
