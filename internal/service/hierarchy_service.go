package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/team-hierarchy-service/internal/domain"
	"github.com/spec-kit/team-hierarchy-service/internal/repository"
	apperrors "github.com/spec-kit/team-hierarchy-service/pkg/util/errorutil"
)

// HierarchyService answers traversal queries from the graph projection only.
type HierarchyService struct {
	graph    repository.GraphRepository
	maxDepth int
}

// NewHierarchyService creates the service.
func NewHierarchyService(graph repository.GraphRepository, maxDepth int) *HierarchyService {
	if maxDepth <= 0 {
		maxDepth = 64
	}
	return &HierarchyService{graph: graph, maxDepth: maxDepth}
}

// Ancestors returns the teams above teamID on the given date, nearest first.
func (s *HierarchyService) Ancestors(ctx context.Context, teamID string, on time.Time) ([]domain.HierarchyMember, error) {
	if err := s.ensureNode(ctx, teamID); err != nil {
		return nil, err
	}
	members, err := s.graph.Ancestors(ctx, teamID, on, s.maxDepth)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return members, nil
}

// Descendants returns the teams below teamID on the given date, nearest first.
func (s *HierarchyService) Descendants(ctx context.Context, teamID string, on time.Time) ([]domain.HierarchyMember, error) {
	if err := s.ensureNode(ctx, teamID); err != nil {
		return nil, err
	}
	members, err := s.graph.Descendants(ctx, teamID, on, s.maxDepth)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return members, nil
}

func (s *HierarchyService) ensureNode(ctx context.Context, teamID string) error {
	if _, err := s.graph.GetNode(ctx, teamID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("team", map[string]any{"team_id": teamID})
		}
		return apperrors.MapError(err)
	}
	return nil
}
