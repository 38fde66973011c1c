package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/team-hierarchy-service/internal/domain"
	"github.com/spec-kit/team-hierarchy-service/internal/events"
	"github.com/spec-kit/team-hierarchy-service/internal/repository"
	apperrors "github.com/spec-kit/team-hierarchy-service/pkg/util/errorutil"
)

// MembershipService orchestrates ledger mutations: it loads the child team
// aggregate, runs the aggregate-level invariant checks, performs the cycle
// walk, persists inside one transaction and publishes the change event that
// triggers projection reconciliation.
type MembershipService struct {
	teams       repository.TeamRepository
	memberships repository.MembershipRepository
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// MembershipDependencies bundles collaborators.
type MembershipDependencies struct {
	TeamRepo       repository.TeamRepository
	MembershipRepo repository.MembershipRepository
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// NewMembershipService creates the service.
func NewMembershipService(deps MembershipDependencies) *MembershipService {
	return &MembershipService{
		teams:       deps.TeamRepo,
		memberships: deps.MembershipRepo,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
	}
}

// MembershipInput carries a membership command payload.
type MembershipInput struct {
	TargetID string
	Start    time.Time
	End      *time.Time
}

// AddMembership links a child team under a parent for the given window.
func (s *MembershipService) AddMembership(ctx context.Context, sourceID string, input MembershipInput) (*domain.TeamMembership, error) {
	team, err := s.loadAggregate(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	parent, err := s.teams.GetByID(ctx, input.TargetID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("parent team", map[string]any{"team_id": input.TargetID})
		}
		return nil, apperrors.MapError(err)
	}

	membership, err := team.AddMembership(parent, domain.NewDateRange(input.Start, input.End))
	if err != nil {
		return nil, mapMembershipError(err)
	}
	if err := s.rejectCycles(ctx, team.ID, parent.ID); err != nil {
		return nil, err
	}

	if err := s.memberships.Insert(ctx, membership, team.Version); err != nil {
		return nil, mapMembershipError(err)
	}

	s.publishMembershipEvent(ctx, events.EventMembershipAdded, membership)
	s.logger.Info("membership added",
		zap.String("team_id", team.ID),
		zap.String("parent_id", parent.ID),
		zap.String("membership_id", membership.ID),
	)
	return membership, nil
}

// UpdateMembership moves an existing row to a new validity window, keeping
// every invariant checked against the sibling set excluding the edited row.
func (s *MembershipService) UpdateMembership(ctx context.Context, sourceID, membershipID string, start time.Time, end *time.Time) (*domain.TeamMembership, error) {
	team, err := s.loadAggregate(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	membership, err := team.UpdateMembership(membershipID, domain.NewDateRange(start, end))
	if err != nil {
		return nil, mapMembershipError(err)
	}
	// Reopening a closed row changes the active chain; re-check reachability.
	if membership.IsOpen() {
		if err := s.rejectCycles(ctx, team.ID, membership.TargetID); err != nil {
			return nil, err
		}
	}

	if err := s.memberships.Update(ctx, membership, team.Version); err != nil {
		return nil, mapMembershipError(err)
	}

	s.publishMembershipEvent(ctx, events.EventMembershipUpdated, membership)
	return membership, nil
}

// RemoveMembership soft-deletes a row. The team may be left without an
// active parent.
func (s *MembershipService) RemoveMembership(ctx context.Context, sourceID, membershipID string) error {
	team, err := s.loadAggregate(ctx, sourceID)
	if err != nil {
		return err
	}

	membership, err := team.RemoveMembership(membershipID)
	if err != nil {
		return mapMembershipError(err)
	}
	if err := s.memberships.SoftDelete(ctx, membership, team.Version); err != nil {
		return mapMembershipError(err)
	}

	s.publishMembershipEvent(ctx, events.EventMembershipRemoved, membership)
	s.logger.Info("membership removed",
		zap.String("team_id", team.ID),
		zap.String("membership_id", membershipID),
	)
	return nil
}

// ListMemberships returns the team's non-deleted ledger rows.
func (s *MembershipService) ListMemberships(ctx context.Context, sourceID string) ([]domain.TeamMembership, error) {
	if _, err := s.loadAggregate(ctx, sourceID); err != nil {
		return nil, err
	}
	memberships, err := s.memberships.ListByTeam(ctx, sourceID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return memberships, nil
}

func (s *MembershipService) loadAggregate(ctx context.Context, sourceID string) (*domain.Team, error) {
	team, err := s.teams.GetByID(ctx, sourceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("team", map[string]any{"team_id": sourceID})
		}
		return nil, apperrors.MapError(err)
	}
	memberships, err := s.memberships.ListByTeam(ctx, sourceID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	team.Memberships = memberships
	return team, nil
}

// rejectCycles walks the open-membership chain upward from the proposed
// parent. The walk is bounded by the total team count, so a regression that
// slipped a cycle into the ledger cannot hang the check. It reads committed
// state only; the repository re-walks the chain inside the mutating
// transaction to catch edits racing past this check.
func (s *MembershipService) rejectCycles(ctx context.Context, childID, parentID string) error {
	cyclic, err := s.wouldCycle(ctx, childID, parentID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if cyclic {
		return apperrors.NewRuleViolations([]string{domain.RuleCycle})
	}
	return nil
}

func (s *MembershipService) wouldCycle(ctx context.Context, childID, parentID string) (bool, error) {
	if childID == parentID {
		return true, nil
	}
	bound, err := s.teams.Count(ctx)
	if err != nil {
		return false, err
	}

	current := parentID
	for steps := int64(0); steps < bound; steps++ {
		open, err := s.memberships.GetOpenByTeam(ctx, current)
		if err != nil {
			return false, err
		}
		if open == nil {
			return false, nil
		}
		if open.TargetID == childID {
			return true, nil
		}
		current = open.TargetID
	}
	// Walk exhausted the bound without reaching a root: the chain is
	// already cyclic, refuse to extend it.
	return true, nil
}

func (s *MembershipService) publishMembershipEvent(ctx context.Context, eventType events.EventType, m *domain.TeamMembership) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TeamID:    m.SourceID,
		Timestamp: time.Now().UTC(),
		Payload: events.MembershipChangedPayload{
			MembershipID: m.ID,
			TargetTeamID: m.TargetID,
			StartDate:    m.DateRange.Start,
			EndDate:      m.DateRange.End,
		},
	})
}

func mapMembershipError(err error) error {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return apperrors.NewRuleViolations(validationErr.Violations)
	case errors.Is(err, domain.ErrMembershipNotFound):
		return apperrors.NewNotFound("membership", nil)
	case errors.Is(err, repository.ErrCycleDetected):
		return apperrors.NewRuleViolations([]string{domain.RuleCycle})
	case errors.Is(err, repository.ErrVersionConflict):
		return apperrors.NewVersionConflict("team", nil)
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.NewNotFound("team", nil)
	default:
		return apperrors.MapError(err)
	}
}
