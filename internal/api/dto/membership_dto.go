package dto

import "time"

// CreateMembershipRequest payload. Dates use the YYYY-MM-DD layout; a null
// end date means the membership is the team's current parent link.
type CreateMembershipRequest struct {
	TargetID  string  `json:"target_id"`
	StartDate string  `json:"start_date"`
	EndDate   *string `json:"end_date"`
}

// UpdateMembershipRequest payload.
type UpdateMembershipRequest struct {
	StartDate string  `json:"start_date"`
	EndDate   *string `json:"end_date"`
}

// MembershipResponse response.
type MembershipResponse struct {
	ID        string     `json:"id"`
	SourceID  string     `json:"source_id"`
	TargetID  string     `json:"target_id"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// HierarchyMemberResponse is one traversal result row.
type HierarchyMemberResponse struct {
	TeamID   string `json:"team_id"`
	Key      string `json:"key"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	Type     string `json:"type"`
	IsActive bool   `json:"is_active"`
	Depth    int    `json:"depth"`
}
