package dto

import (
	"time"

	"github.com/spec-kit/team-hierarchy-service/internal/domain"
)

// CreateTeamRequest payload.
type CreateTeamRequest struct {
	Key  string          `json:"key"`
	Name string          `json:"name"`
	Code string          `json:"code"`
	Type domain.TeamType `json:"type"`
}

// UpdateTeamRequest payload; nil fields are left unchanged.
type UpdateTeamRequest struct {
	Name     *string `json:"name"`
	Code     *string `json:"code"`
	IsActive *bool   `json:"is_active"`
}

// TeamResponse response.
type TeamResponse struct {
	ID            string          `json:"id"`
	Key           string          `json:"key"`
	Name          string          `json:"name"`
	Code          string          `json:"code"`
	Type          domain.TeamType `json:"type"`
	IsActive      bool            `json:"is_active"`
	ActivatedAt   time.Time       `json:"activated_at"`
	DeactivatedAt *time.Time      `json:"deactivated_at,omitempty"`
	Version       int64           `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
