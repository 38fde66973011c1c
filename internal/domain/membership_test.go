package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTeam(id string, teamType TeamType) *Team {
	return &Team{
		ID:       id,
		Key:      id,
		Name:     "Team " + id,
		Code:     id,
		Type:     teamType,
		IsActive: true,
	}
}

func TestAddMembershipOpen(t *testing.T) {
	child := newTeam("platform", TeamTypeTeam)
	parent := newTeam("engineering", TeamTypeTeamOfTeams)

	m, err := child.AddMembership(parent, DateRange{Start: day("2024-01-01")})
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, child.ID, m.SourceID)
	assert.Equal(t, parent.ID, m.TargetID)
	assert.True(t, m.IsOpen())
	assert.Same(t, m, child.OpenMembership())
}

func TestAddMembershipRejectsWrongParentType(t *testing.T) {
	child := newTeam("platform", TeamTypeTeam)
	leaf := newTeam("infra", TeamTypeTeam)

	_, err := child.AddMembership(leaf, DateRange{Start: day("2024-01-01")})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Violations, RuleParentType)
}

func TestAddMembershipRejectsSelfParent(t *testing.T) {
	team := newTeam("engineering", TeamTypeTeamOfTeams)

	_, err := team.AddMembership(team, DateRange{Start: day("2024-01-01")})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Violations, RuleSelfParent)
}

func TestAddMembershipRejectsOverlap(t *testing.T) {
	child := newTeam("platform", TeamTypeTeam)
	parent := newTeam("engineering", TeamTypeTeamOfTeams)

	_, err := child.AddMembership(parent, DateRange{Start: day("2024-01-01"), End: dayPtr("2024-06-01")})
	require.NoError(t, err)

	_, err = child.AddMembership(parent, DateRange{Start: day("2024-03-01"), End: dayPtr("2024-09-01")})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Violations, RuleOverlap)
	// the failed command must not partially apply
	assert.Len(t, child.Memberships, 1)
}

func TestAddMembershipAllowsBackToBackRanges(t *testing.T) {
	child := newTeam("platform", TeamTypeTeam)
	engineering := newTeam("engineering", TeamTypeTeamOfTeams)
	infra := newTeam("infra", TeamTypeTeamOfTeams)

	_, err := child.AddMembership(engineering, DateRange{Start: day("2024-01-01"), End: dayPtr("2024-06-01")})
	require.NoError(t, err)

	// successor starting exactly at the previous end is legal
	_, err = child.AddMembership(infra, DateRange{Start: day("2024-06-01")})
	require.NoError(t, err)
	assert.Len(t, child.Memberships, 2)
}

func TestAddMembershipRejectsSecondOpen(t *testing.T) {
	child := newTeam("platform", TeamTypeTeam)
	engineering := newTeam("engineering", TeamTypeTeamOfTeams)
	infra := newTeam("infra", TeamTypeTeamOfTeams)

	_, err := child.AddMembership(engineering, DateRange{Start: day("2024-01-01")})
	require.NoError(t, err)

	_, err = child.AddMembership(infra, DateRange{Start: day("2025-01-01")})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Violations, RuleOneOpen)
	assert.Contains(t, validationErr.Violations, RuleOverlap)
}

func TestAddMembershipRejectsInvalidRange(t *testing.T) {
	child := newTeam("platform", TeamTypeTeam)
	parent := newTeam("engineering", TeamTypeTeamOfTeams)

	_, err := child.AddMembership(parent, DateRange{Start: day("2024-06-01"), End: dayPtr("2024-01-01")})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Violations, RuleDateOrder)
}

func TestUpdateMembershipExcludesSelfFromOverlap(t *testing.T) {
	child := newTeam("platform", TeamTypeTeam)
	parent := newTeam("engineering", TeamTypeTeamOfTeams)

	m, err := child.AddMembership(parent, DateRange{Start: day("2024-01-01"), End: dayPtr("2024-06-01")})
	require.NoError(t, err)

	// widening the row's own window must not collide with itself
	updated, err := child.UpdateMembership(m.ID, DateRange{Start: day("2024-01-01"), End: dayPtr("2024-09-01")})
	require.NoError(t, err)
	assert.Equal(t, dayPtr("2024-09-01"), updated.DateRange.End)
}

func TestUpdateMembershipRejectsOverlapWithSibling(t *testing.T) {
	child := newTeam("platform", TeamTypeTeam)
	engineering := newTeam("engineering", TeamTypeTeamOfTeams)
	infra := newTeam("infra", TeamTypeTeamOfTeams)

	_, err := child.AddMembership(engineering, DateRange{Start: day("2024-01-01"), End: dayPtr("2024-06-01")})
	require.NoError(t, err)
	second, err := child.AddMembership(infra, DateRange{Start: day("2024-06-01")})
	require.NoError(t, err)

	_, err = child.UpdateMembership(second.ID, DateRange{Start: day("2024-05-01")})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Violations, RuleOverlap)
}

func TestUpdateMembershipUnknownID(t *testing.T) {
	child := newTeam("platform", TeamTypeTeam)
	_, err := child.UpdateMembership("missing", DateRange{Start: day("2024-01-01")})
	assert.ErrorIs(t, err, ErrMembershipNotFound)
}

func TestRemoveMembershipSoftDeletes(t *testing.T) {
	child := newTeam("platform", TeamTypeTeam)
	parent := newTeam("engineering", TeamTypeTeamOfTeams)

	m, err := child.AddMembership(parent, DateRange{Start: day("2024-01-01")})
	require.NoError(t, err)

	removed, err := child.RemoveMembership(m.ID)
	require.NoError(t, err)
	assert.True(t, removed.IsDeleted)
	assert.Nil(t, child.OpenMembership())

	// soft-deleted rows leave the sibling set, so the window frees up
	_, err = child.AddMembership(parent, DateRange{Start: day("2024-01-01")})
	require.NoError(t, err)

	// and cannot be edited again
	_, err = child.RemoveMembership(m.ID)
	assert.ErrorIs(t, err, ErrMembershipNotFound)
}
