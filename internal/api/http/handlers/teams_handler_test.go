package handlers

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/team-hierarchy-service/internal/domain"
	"github.com/spec-kit/team-hierarchy-service/internal/repository"
	"github.com/spec-kit/team-hierarchy-service/internal/service"
)

// captureTeamRepo records the context the service layer receives.
type captureTeamRepo struct {
	gotCtx context.Context
}

func (r *captureTeamRepo) Create(ctx context.Context, team *domain.Team) error {
	r.gotCtx = ctx
	return nil
}

func (r *captureTeamRepo) Update(ctx context.Context, team *domain.Team) error {
	r.gotCtx = ctx
	return nil
}

func (r *captureTeamRepo) SoftDelete(ctx context.Context, id string, version int64) error {
	r.gotCtx = ctx
	return nil
}

func (r *captureTeamRepo) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	r.gotCtx = ctx
	return &domain.Team{ID: id, Name: "Platform", Code: "PLAT", Type: domain.TeamTypeTeam}, nil
}

func (r *captureTeamRepo) List(ctx context.Context, _ repository.TeamFilter) ([]domain.Team, error) {
	r.gotCtx = ctx
	return nil, nil
}

func (r *captureTeamRepo) CodeOrNameTaken(ctx context.Context, code, name, excludeID string) (bool, bool, error) {
	r.gotCtx = ctx
	return false, false, nil
}

func (r *captureTeamRepo) Count(ctx context.Context) (int64, error) {
	r.gotCtx = ctx
	return 0, nil
}

func TestListTeamsCarriesRequestDeadline(t *testing.T) {
	repo := &captureTeamRepo{}
	teamService := service.NewTeamService(service.TeamDependencies{
		TeamRepo: repo,
		Logger:   zap.NewNop(),
	})
	handler := NewTeamsHandler(teamService)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 30*time.Second)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	})
	app.Get("/teams", handler.ListTeams)

	resp, err := app.Test(httptest.NewRequest("GET", "/teams", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.NotNil(t, repo.gotCtx)
	_, hasDeadline := repo.gotCtx.Deadline()
	assert.True(t, hasDeadline)
}
