package dto

// UnreadCountResponse is the number of unread notifications
type UnreadCountResponse struct {
	Unread int64 `json:"unread" example:"3"`
}

// MarkAllReadResponse is the number of notifications marked read
type MarkAllReadResponse struct {
	Updated int64 `json:"updated" example:"3"`
}
