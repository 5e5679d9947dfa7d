package models

import "time"

// NotificationCategory groups notifications for filtering on the client
type NotificationCategory string

const (
	NotificationGeneral     NotificationCategory = "GENERAL"
	NotificationMentor      NotificationCategory = "MENTOR"
	NotificationApplication NotificationCategory = "APPLICATION"
	NotificationReport      NotificationCategory = "REPORT"
	NotificationGrievance   NotificationCategory = "GRIEVANCE"
	NotificationExport      NotificationCategory = "EXPORT"
)

// Notification is an in-app message for one user
type Notification struct {
	ID        int64                `json:"id" db:"id"`
	UserID    int64                `json:"userId" db:"user_id"`
	Title     string               `json:"title" db:"title"`
	Body      string               `json:"body" db:"body"`
	Category  NotificationCategory `json:"category" db:"category"`
	Link      *string              `json:"link,omitempty" db:"link"`
	IsRead    bool                 `json:"isRead" db:"is_read"`
	CreatedAt time.Time            `json:"createdAt" db:"created_at"`
	ReadAt    *time.Time           `json:"readAt,omitempty" db:"read_at"`
}
