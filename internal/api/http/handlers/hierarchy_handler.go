package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/team-hierarchy-service/internal/api/dto"
	"github.com/spec-kit/team-hierarchy-service/internal/domain"
	"github.com/spec-kit/team-hierarchy-service/internal/service"
	apperrors "github.com/spec-kit/team-hierarchy-service/pkg/util/errorutil"
)

// HierarchyHandler serves traversal queries from the graph projection.
type HierarchyHandler struct {
	service *service.HierarchyService
}

// NewHierarchyHandler constructs handler.
func NewHierarchyHandler(hierarchyService *service.HierarchyService) *HierarchyHandler {
	return &HierarchyHandler{service: hierarchyService}
}

// Ancestors GET /teams/:id/hierarchy/ancestors.
func (h *HierarchyHandler) Ancestors(c *fiber.Ctx) error {
	on, err := parseOnDate(c)
	if err != nil {
		return err
	}
	members, err := h.service.Ancestors(c.UserContext(), c.Params("id"), on)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": hierarchyMembers(members), "on": on.Format(dateLayout)})
}

// Descendants GET /teams/:id/hierarchy/descendants.
func (h *HierarchyHandler) Descendants(c *fiber.Ctx) error {
	on, err := parseOnDate(c)
	if err != nil {
		return err
	}
	members, err := h.service.Descendants(c.UserContext(), c.Params("id"), on)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": hierarchyMembers(members), "on": on.Format(dateLayout)})
}

func parseOnDate(c *fiber.Ctx) (time.Time, error) {
	raw := c.Query("on")
	if raw == "" {
		return time.Now().UTC(), nil
	}
	on, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError("invalid on date", map[string]any{"on": raw})
	}
	return on, nil
}

func hierarchyMembers(members []domain.HierarchyMember) []dto.HierarchyMemberResponse {
	items := make([]dto.HierarchyMemberResponse, 0, len(members))
	for _, member := range members {
		items = append(items, dto.HierarchyMemberResponse{
			TeamID:   member.Node.ID,
			Key:      member.Node.Key,
			Name:     member.Node.Name,
			Code:     member.Node.Code,
			Type:     string(member.Node.Type),
			IsActive: member.Node.IsActive,
			Depth:    member.Depth,
		})
	}
	return items
}
