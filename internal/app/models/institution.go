package models

import "time"

// Institution is a polytechnic college
type Institution struct {
	ID           int64     `json:"id" db:"id" example:"1"`
	Name         string    `json:"name" db:"name" example:"Government Polytechnic College, Amritsar"`
	Code         string    `json:"code" db:"code" example:"GPCASR"`
	District     string    `json:"district" db:"district" example:"Amritsar"`
	Address      *string   `json:"address,omitempty" db:"address"`
	ContactEmail *string   `json:"contactEmail,omitempty" db:"contact_email"`
	IsActive     bool      `json:"isActive" db:"is_active"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// Branch is a diploma discipline offered by an institution
type Branch struct {
	ID            int64  `json:"id" db:"id"`
	InstitutionID int64  `json:"institutionId" db:"institution_id"`
	Name          string `json:"name" db:"name" example:"Computer Engineering"`
	Code          string `json:"code" db:"code" example:"CE"`
}

// Batch groups students of one intake
type Batch struct {
	ID            int64      `json:"id" db:"id"`
	InstitutionID int64      `json:"institutionId" db:"institution_id"`
	Name          string     `json:"name" db:"name" example:"CE 2023-26"`
	AcademicYear  string     `json:"academicYear" db:"academic_year" example:"2025-26"`
	Semester      int        `json:"semester" db:"semester" example:"6"`
	StartDate     *time.Time `json:"startDate,omitempty" db:"start_date"`
	EndDate       *time.Time `json:"endDate,omitempty" db:"end_date"`
}
