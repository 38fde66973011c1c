package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/team-hierarchy-service/internal/domain"
	"github.com/spec-kit/team-hierarchy-service/internal/events"
	"github.com/spec-kit/team-hierarchy-service/internal/repository"
	apperrors "github.com/spec-kit/team-hierarchy-service/pkg/util/errorutil"
)

// TeamService handles team identity commands and queries.
type TeamService struct {
	teams      repository.TeamRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TeamDependencies bundles collaborators.
type TeamDependencies struct {
	TeamRepo   repository.TeamRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewTeamService creates the service.
func NewTeamService(deps TeamDependencies) *TeamService {
	return &TeamService{
		teams:      deps.TeamRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// TeamCreateInput carries team creation fields.
type TeamCreateInput struct {
	Key  string
	Name string
	Code string
	Type domain.TeamType
}

// TeamUpdateInput carries partial team updates.
type TeamUpdateInput struct {
	Name     *string
	Code     *string
	IsActive *bool
}

// CreateTeam validates and persists a new team.
func (s *TeamService) CreateTeam(ctx context.Context, input TeamCreateInput) (*domain.Team, error) {
	name := strings.TrimSpace(input.Name)
	code := strings.TrimSpace(input.Code)
	if name == "" || code == "" {
		return nil, apperrors.NewValidationError("name and code required", nil)
	}
	if !input.Type.IsValid() {
		return nil, apperrors.NewValidationError("invalid team type", map[string]any{"type": string(input.Type)})
	}

	codeTaken, nameTaken, err := s.teams.CodeOrNameTaken(ctx, code, name, "")
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if codeTaken || nameTaken {
		return nil, apperrors.NewConflict("code or name already in use",
			map[string]any{"code_taken": codeTaken, "name_taken": nameTaken})
	}

	key := strings.TrimSpace(input.Key)
	if key == "" {
		key = deriveKey(code)
	}

	team := &domain.Team{
		Key:         key,
		Name:        name,
		Code:        code,
		Type:        input.Type,
		IsActive:    true,
		ActivatedAt: time.Now().UTC(),
	}
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishTeamEvent(ctx, events.EventTeamCreated, team)
	s.logger.Info("team created", zap.String("team_id", team.ID), zap.String("code", team.Code))
	return team, nil
}

// UpdateTeam applies partial identity changes with an optimistic version check.
func (s *TeamService) UpdateTeam(ctx context.Context, id string, input TeamUpdateInput) (*domain.Team, error) {
	team, err := s.teams.GetByID(ctx, id)
	if err != nil {
		return nil, mapTeamError(err, id)
	}

	if input.Name != nil {
		team.Name = strings.TrimSpace(*input.Name)
	}
	if input.Code != nil {
		team.Code = strings.TrimSpace(*input.Code)
	}
	if team.Name == "" || team.Code == "" {
		return nil, apperrors.NewValidationError("name and code required", nil)
	}

	codeTaken, nameTaken, err := s.teams.CodeOrNameTaken(ctx, team.Code, team.Name, team.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if codeTaken || nameTaken {
		return nil, apperrors.NewConflict("code or name already in use",
			map[string]any{"code_taken": codeTaken, "name_taken": nameTaken})
	}

	if input.IsActive != nil && *input.IsActive != team.IsActive {
		team.IsActive = *input.IsActive
		now := time.Now().UTC()
		if team.IsActive {
			team.ActivatedAt = now
			team.DeactivatedAt = nil
		} else {
			team.DeactivatedAt = &now
		}
	}

	if err := s.teams.Update(ctx, team); err != nil {
		return nil, mapTeamError(err, id)
	}

	s.publishTeamEvent(ctx, events.EventTeamUpdated, team)
	return team, nil
}

// DeleteTeam soft-deletes the team. Its memberships stop projecting after
// the next reconciliation run.
func (s *TeamService) DeleteTeam(ctx context.Context, id string) error {
	team, err := s.teams.GetByID(ctx, id)
	if err != nil {
		return mapTeamError(err, id)
	}
	if err := s.teams.SoftDelete(ctx, id, team.Version); err != nil {
		return mapTeamError(err, id)
	}

	s.publishTeamEvent(ctx, events.EventTeamDeleted, team)
	s.logger.Info("team deleted", zap.String("team_id", id))
	return nil
}

// GetTeam returns one team by id.
func (s *TeamService) GetTeam(ctx context.Context, id string) (*domain.Team, error) {
	team, err := s.teams.GetByID(ctx, id)
	if err != nil {
		return nil, mapTeamError(err, id)
	}
	return team, nil
}

// ListTeams returns teams matching the filter.
func (s *TeamService) ListTeams(ctx context.Context, filter repository.TeamFilter) ([]domain.Team, error) {
	teams, err := s.teams.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return teams, nil
}

func (s *TeamService) publishTeamEvent(ctx context.Context, eventType events.EventType, team *domain.Team) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TeamID:    team.ID,
		Timestamp: time.Now().UTC(),
		Payload: events.TeamChangedPayload{
			Key:      team.Key,
			Code:     team.Code,
			Type:     team.Type,
			IsActive: team.IsActive,
		},
	})
}

func deriveKey(code string) string {
	key := strings.ToLower(strings.TrimSpace(code))
	key = strings.ReplaceAll(key, " ", "-")
	return key
}

func mapTeamError(err error, id string) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.NewNotFound("team", map[string]any{"team_id": id})
	case errors.Is(err, repository.ErrVersionConflict):
		return apperrors.NewVersionConflict("team", map[string]any{"team_id": id})
	default:
		return apperrors.MapError(err)
	}
}
