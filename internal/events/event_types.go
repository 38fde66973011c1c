package events

import (
	"time"

	"github.com/spec-kit/team-hierarchy-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTeamCreated       EventType = "team_created"
	EventTeamUpdated       EventType = "team_updated"
	EventTeamDeleted       EventType = "team_deleted"
	EventMembershipAdded   EventType = "membership_added"
	EventMembershipUpdated EventType = "membership_updated"
	EventMembershipRemoved EventType = "membership_removed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TeamID    string      `json:"team_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TeamChangedPayload payload for team lifecycle events.
type TeamChangedPayload struct {
	Key      string          `json:"key"`
	Code     string          `json:"code"`
	Type     domain.TeamType `json:"type"`
	IsActive bool            `json:"is_active"`
}

// MembershipChangedPayload payload for ledger mutations.
type MembershipChangedPayload struct {
	MembershipID string     `json:"membership_id"`
	TargetTeamID string     `json:"target_team_id"`
	StartDate    time.Time  `json:"start_date"`
	EndDate      *time.Time `json:"end_date,omitempty"`
}
