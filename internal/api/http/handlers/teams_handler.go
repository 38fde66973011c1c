package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/team-hierarchy-service/internal/api/dto"
	"github.com/spec-kit/team-hierarchy-service/internal/domain"
	"github.com/spec-kit/team-hierarchy-service/internal/repository"
	"github.com/spec-kit/team-hierarchy-service/internal/service"
	apperrors "github.com/spec-kit/team-hierarchy-service/pkg/util/errorutil"
)

// TeamsHandler manages team identity endpoints.
type TeamsHandler struct {
	service *service.TeamService
}

// NewTeamsHandler constructs handler.
func NewTeamsHandler(teamService *service.TeamService) *TeamsHandler {
	return &TeamsHandler{service: teamService}
}

// CreateTeam POST /teams.
func (h *TeamsHandler) CreateTeam(c *fiber.Ctx) error {
	var req dto.CreateTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	team, err := h.service.CreateTeam(c.UserContext(), service.TeamCreateInput{
		Key:  req.Key,
		Name: req.Name,
		Code: req.Code,
		Type: req.Type,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": teamResponse(team)})
}

// ListTeams GET /teams.
func (h *TeamsHandler) ListTeams(c *fiber.Ctx) error {
	filter := repository.TeamFilter{}
	if v := c.Query("type"); v != "" {
		teamType := domain.TeamType(v)
		if !teamType.IsValid() {
			return apperrors.NewValidationError("invalid team type", map[string]any{"type": v})
		}
		filter.Type = &teamType
	}
	if v := c.Query("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return apperrors.NewValidationError("invalid active filter", nil)
		}
		filter.IsActive = &active
	}
	filter.Limit = c.QueryInt("limit", 100)
	filter.Offset = c.QueryInt("offset", 0)

	teams, err := h.service.ListTeams(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TeamResponse, 0, len(teams))
	for i := range teams {
		items = append(items, teamResponse(&teams[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTeam GET /teams/:id.
func (h *TeamsHandler) GetTeam(c *fiber.Ctx) error {
	team, err := h.service.GetTeam(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": teamResponse(team)})
}

// UpdateTeam PATCH /teams/:id.
func (h *TeamsHandler) UpdateTeam(c *fiber.Ctx) error {
	var req dto.UpdateTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	team, err := h.service.UpdateTeam(c.UserContext(), c.Params("id"), service.TeamUpdateInput{
		Name:     req.Name,
		Code:     req.Code,
		IsActive: req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": teamResponse(team)})
}

// DeleteTeam DELETE /teams/:id.
func (h *TeamsHandler) DeleteTeam(c *fiber.Ctx) error {
	if err := h.service.DeleteTeam(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func teamResponse(team *domain.Team) dto.TeamResponse {
	return dto.TeamResponse{
		ID:            team.ID,
		Key:           team.Key,
		Name:          team.Name,
		Code:          team.Code,
		Type:          team.Type,
		IsActive:      team.IsActive,
		ActivatedAt:   team.ActivatedAt,
		DeactivatedAt: team.DeactivatedAt,
		Version:       team.Version,
		CreatedAt:     team.CreatedAt,
		UpdatedAt:     team.UpdatedAt,
	}
}
