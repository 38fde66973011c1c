package domain

import "time"

// TeamType distinguishes leaf teams from grouping teams.
type TeamType string

const (
	TeamTypeTeam        TeamType = "TEAM"
	TeamTypeTeamOfTeams TeamType = "TEAM_OF_TEAMS"
)

// IsValid reports whether the value is a known team type.
func (t TeamType) IsValid() bool {
	return t == TeamTypeTeam || t == TeamTypeTeamOfTeams
}

// Team is the aggregate root of the membership ledger. Key is the durable
// natural key the graph projection joins on; Version backs optimistic
// concurrency on membership edits.
type Team struct {
	ID            string
	Key           string
	Name          string
	Code          string
	Type          TeamType
	IsActive      bool
	ActivatedAt   time.Time
	DeactivatedAt *time.Time
	IsDeleted     bool
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Memberships holds the team's non-deleted ledger rows when the
	// aggregate is loaded for a membership command.
	Memberships []TeamMembership
}

// CanBeParent reports whether the team may appear as a membership target.
func (t *Team) CanBeParent() bool {
	return t.Type == TeamTypeTeamOfTeams && !t.IsDeleted
}
