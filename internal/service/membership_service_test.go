package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/team-hierarchy-service/internal/domain"
	"github.com/spec-kit/team-hierarchy-service/internal/events"
	"github.com/spec-kit/team-hierarchy-service/internal/repository"
	apperrors "github.com/spec-kit/team-hierarchy-service/pkg/util/errorutil"
)

type fakeTeamRepo struct {
	teams map[string]*domain.Team
}

func newFakeTeamRepo(teams ...*domain.Team) *fakeTeamRepo {
	repo := &fakeTeamRepo{teams: make(map[string]*domain.Team)}
	for _, team := range teams {
		copied := *team
		repo.teams[team.ID] = &copied
	}
	return repo
}

func (r *fakeTeamRepo) Create(_ context.Context, team *domain.Team) error {
	copied := *team
	r.teams[team.ID] = &copied
	return nil
}

func (r *fakeTeamRepo) Update(_ context.Context, team *domain.Team) error {
	stored, ok := r.teams[team.ID]
	if !ok || stored.IsDeleted {
		return pgx.ErrNoRows
	}
	if stored.Version != team.Version {
		return repository.ErrVersionConflict
	}
	copied := *team
	copied.Version++
	r.teams[team.ID] = &copied
	team.Version = copied.Version
	return nil
}

func (r *fakeTeamRepo) SoftDelete(_ context.Context, id string, version int64) error {
	stored, ok := r.teams[id]
	if !ok || stored.IsDeleted {
		return pgx.ErrNoRows
	}
	if stored.Version != version {
		return repository.ErrVersionConflict
	}
	stored.IsDeleted = true
	stored.Version++
	return nil
}

func (r *fakeTeamRepo) GetByID(_ context.Context, id string) (*domain.Team, error) {
	stored, ok := r.teams[id]
	if !ok || stored.IsDeleted {
		return nil, pgx.ErrNoRows
	}
	copied := *stored
	return &copied, nil
}

func (r *fakeTeamRepo) List(_ context.Context, _ repository.TeamFilter) ([]domain.Team, error) {
	out := make([]domain.Team, 0, len(r.teams))
	for _, team := range r.teams {
		if !team.IsDeleted {
			out = append(out, *team)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *fakeTeamRepo) CodeOrNameTaken(_ context.Context, code, name, excludeID string) (bool, bool, error) {
	var codeTaken, nameTaken bool
	for _, team := range r.teams {
		if team.IsDeleted || team.ID == excludeID {
			continue
		}
		if team.Code == code {
			codeTaken = true
		}
		if team.Name == name {
			nameTaken = true
		}
	}
	return codeTaken, nameTaken, nil
}

func (r *fakeTeamRepo) Count(_ context.Context) (int64, error) {
	var count int64
	for _, team := range r.teams {
		if !team.IsDeleted {
			count++
		}
	}
	return count, nil
}

type fakeMembershipRepo struct {
	rows         map[string]*domain.TeamMembership
	staleVersion bool
	insertErr    error
}

func newFakeMembershipRepo() *fakeMembershipRepo {
	return &fakeMembershipRepo{rows: make(map[string]*domain.TeamMembership)}
}

func (r *fakeMembershipRepo) ListByTeam(_ context.Context, sourceID string) ([]domain.TeamMembership, error) {
	out := make([]domain.TeamMembership, 0, 4)
	for _, m := range r.rows {
		if m.SourceID == sourceID && !m.IsDeleted {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateRange.Start.Before(out[j].DateRange.Start) })
	return out, nil
}

func (r *fakeMembershipRepo) GetByID(_ context.Context, id string) (*domain.TeamMembership, error) {
	m, ok := r.rows[id]
	if !ok || m.IsDeleted {
		return nil, pgx.ErrNoRows
	}
	copied := *m
	return &copied, nil
}

func (r *fakeMembershipRepo) GetOpenByTeam(_ context.Context, sourceID string) (*domain.TeamMembership, error) {
	for _, m := range r.rows {
		if m.SourceID == sourceID && !m.IsDeleted && m.IsOpen() {
			copied := *m
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeMembershipRepo) Insert(_ context.Context, m *domain.TeamMembership, _ int64) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	if r.staleVersion {
		return repository.ErrVersionConflict
	}
	copied := *m
	r.rows[m.ID] = &copied
	return nil
}

func (r *fakeMembershipRepo) Update(_ context.Context, m *domain.TeamMembership, _ int64) error {
	if r.staleVersion {
		return repository.ErrVersionConflict
	}
	copied := *m
	r.rows[m.ID] = &copied
	return nil
}

func (r *fakeMembershipRepo) SoftDelete(_ context.Context, m *domain.TeamMembership, _ int64) error {
	if r.staleVersion {
		return repository.ErrVersionConflict
	}
	stored, ok := r.rows[m.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.IsDeleted = true
	return nil
}

type recordingDispatcher struct {
	published []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func teamOfTeams(id string) *domain.Team {
	return &domain.Team{ID: id, Key: id, Name: "Team " + id, Code: id, Type: domain.TeamTypeTeamOfTeams, IsActive: true, Version: 1}
}

func leafTeam(id string) *domain.Team {
	return &domain.Team{ID: id, Key: id, Name: "Team " + id, Code: id, Type: domain.TeamTypeTeam, IsActive: true, Version: 1}
}

func newMembershipFixture(t *testing.T, teams ...*domain.Team) (*MembershipService, *fakeMembershipRepo, *recordingDispatcher) {
	t.Helper()
	memberships := newFakeMembershipRepo()
	dispatcher := &recordingDispatcher{}
	svc := NewMembershipService(MembershipDependencies{
		TeamRepo:       newFakeTeamRepo(teams...),
		MembershipRepo: memberships,
		Dispatcher:     dispatcher,
		Logger:         zap.NewNop(),
	})
	return svc, memberships, dispatcher
}

func mustDate(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t
}

func TestAddMembershipPersistsAndPublishes(t *testing.T) {
	svc, memberships, dispatcher := newMembershipFixture(t, leafTeam("platform"), teamOfTeams("engineering"))

	m, err := svc.AddMembership(context.Background(), "platform", MembershipInput{
		TargetID: "engineering",
		Start:    mustDate("2024-01-01"),
	})
	require.NoError(t, err)
	assert.Equal(t, "engineering", m.TargetID)
	assert.True(t, m.IsOpen())

	stored, err := memberships.GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, "platform", stored.SourceID)

	require.Len(t, dispatcher.published, 1)
	assert.Equal(t, events.EventMembershipAdded, dispatcher.published[0].Type)
}

func TestAddMembershipRejectsTransitiveCycle(t *testing.T) {
	org := teamOfTeams("org")
	eng := teamOfTeams("engineering")
	platform := teamOfTeams("platform")
	svc, _, dispatcher := newMembershipFixture(t, org, eng, platform)

	ctx := context.Background()
	_, err := svc.AddMembership(ctx, "engineering", MembershipInput{TargetID: "org", Start: mustDate("2024-01-01")})
	require.NoError(t, err)
	_, err = svc.AddMembership(ctx, "platform", MembershipInput{TargetID: "engineering", Start: mustDate("2024-01-01")})
	require.NoError(t, err)

	// org -> platform would close the loop org -> engineering -> platform -> org
	_, err = svc.AddMembership(ctx, "org", MembershipInput{TargetID: "platform", Start: mustDate("2024-01-01")})
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	assert.Contains(t, domainErr.Details["violations"], domain.RuleCycle)

	// nothing was persisted or published for the rejected command
	assert.Len(t, dispatcher.published, 2)
}

func TestAddMembershipMapsStorageCycleToRuleViolation(t *testing.T) {
	svc, memberships, dispatcher := newMembershipFixture(t, leafTeam("platform"), teamOfTeams("engineering"))
	memberships.insertErr = repository.ErrCycleDetected

	_, err := svc.AddMembership(context.Background(), "platform", MembershipInput{
		TargetID: "engineering",
		Start:    mustDate("2024-01-01"),
	})
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	assert.Contains(t, domainErr.Details["violations"], domain.RuleCycle)
	assert.Empty(t, dispatcher.published)
}

func TestAddMembershipRejectsValidationFailure(t *testing.T) {
	svc, _, _ := newMembershipFixture(t, leafTeam("platform"), leafTeam("infra"))

	_, err := svc.AddMembership(context.Background(), "platform", MembershipInput{
		TargetID: "infra",
		Start:    mustDate("2024-01-01"),
	})
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	assert.Contains(t, domainErr.Details["violations"], domain.RuleParentType)
}

func TestAddMembershipParentNotFound(t *testing.T) {
	svc, _, _ := newMembershipFixture(t, leafTeam("platform"))

	_, err := svc.AddMembership(context.Background(), "platform", MembershipInput{
		TargetID: "ghost",
		Start:    mustDate("2024-01-01"),
	})
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestAddMembershipSurfacesVersionConflict(t *testing.T) {
	svc, memberships, dispatcher := newMembershipFixture(t, leafTeam("platform"), teamOfTeams("engineering"))
	memberships.staleVersion = true

	_, err := svc.AddMembership(context.Background(), "platform", MembershipInput{
		TargetID: "engineering",
		Start:    mustDate("2024-01-01"),
	})
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VERSION_CONFLICT", domainErr.Code)
	assert.Empty(t, dispatcher.published)
}

func TestUpdateMembershipMovesWindow(t *testing.T) {
	svc, _, dispatcher := newMembershipFixture(t, leafTeam("platform"), teamOfTeams("engineering"))

	ctx := context.Background()
	m, err := svc.AddMembership(ctx, "platform", MembershipInput{TargetID: "engineering", Start: mustDate("2024-01-01")})
	require.NoError(t, err)

	end := mustDate("2024-06-01")
	updated, err := svc.UpdateMembership(ctx, "platform", m.ID, mustDate("2024-01-01"), &end)
	require.NoError(t, err)
	require.NotNil(t, updated.DateRange.End)
	assert.Equal(t, end, *updated.DateRange.End)

	require.Len(t, dispatcher.published, 2)
	assert.Equal(t, events.EventMembershipUpdated, dispatcher.published[1].Type)
}

func TestRemoveMembershipSoftDeletesAndPublishes(t *testing.T) {
	svc, memberships, dispatcher := newMembershipFixture(t, leafTeam("platform"), teamOfTeams("engineering"))

	ctx := context.Background()
	m, err := svc.AddMembership(ctx, "platform", MembershipInput{TargetID: "engineering", Start: mustDate("2024-01-01")})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveMembership(ctx, "platform", m.ID))

	open, err := memberships.GetOpenByTeam(ctx, "platform")
	require.NoError(t, err)
	assert.Nil(t, open)

	require.Len(t, dispatcher.published, 2)
	assert.Equal(t, events.EventMembershipRemoved, dispatcher.published[1].Type)

	// removing the same row again reports not found
	err = svc.RemoveMembership(ctx, "platform", m.ID)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}
