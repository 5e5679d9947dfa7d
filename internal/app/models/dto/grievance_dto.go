package dto

// GrievanceRequest files a grievance
type GrievanceRequest struct {
	Category    string `json:"category" binding:"required,oneof=WORKPLACE STIPEND MENTOR SAFETY ACADEMIC OTHER" example:"STIPEND"`
	Subject     string `json:"subject" binding:"required,max=200"`
	Description string `json:"description" binding:"required,max=5000"`
}

// GrievanceActionRequest carries the remarks of review, escalate and close actions
type GrievanceActionRequest struct {
	Remarks *string `json:"remarks" binding:"omitempty,max=2000"`
}

// ResolveGrievanceRequest resolves a grievance
type ResolveGrievanceRequest struct {
	Resolution string `json:"resolution" binding:"required,max=5000"`
}
