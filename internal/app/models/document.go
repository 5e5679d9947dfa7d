package models

import "time"

// DocumentType enumerates the files students attach to their internship record
type DocumentType string

const (
	DocumentOfferLetter   DocumentType = "OFFER_LETTER"
	DocumentNOC           DocumentType = "NOC"
	DocumentJoiningReport DocumentType = "JOINING_REPORT"
	DocumentCertificate   DocumentType = "COMPLETION_CERTIFICATE"
	DocumentOther         DocumentType = "OTHER"
)

// Document is an uploaded file and its verification state
type Document struct {
	ID           int64        `json:"id" db:"id"`
	OwnerUserID  int64        `json:"ownerUserId" db:"owner_user_id"`
	StudentID    *int64       `json:"studentId,omitempty" db:"student_id"`
	DocumentType DocumentType `json:"documentType" db:"document_type"`
	FileName     string       `json:"fileName" db:"file_name" example:"offer_letter.pdf"`
	StorageKey   string       `json:"-" db:"storage_key"`
	FileURL      string       `json:"fileUrl" db:"file_url"`
	MimeType     string       `json:"mimeType" db:"mime_type" example:"application/pdf"`
	FileSize     int64        `json:"fileSize" db:"file_size"`
	IsVerified   bool         `json:"isVerified" db:"is_verified"`
	VerifiedBy   *int64       `json:"verifiedBy,omitempty" db:"verified_by"`
	VerifiedAt   *time.Time   `json:"verifiedAt,omitempty" db:"verified_at"`
	CreatedAt    time.Time    `json:"createdAt" db:"created_at"`
}
