package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/team-hierarchy-service/internal/api/dto"
	"github.com/spec-kit/team-hierarchy-service/internal/domain"
	"github.com/spec-kit/team-hierarchy-service/internal/service"
	apperrors "github.com/spec-kit/team-hierarchy-service/pkg/util/errorutil"
)

const dateLayout = "2006-01-02"

// MembershipsHandler manages the membership ledger endpoints.
type MembershipsHandler struct {
	service *service.MembershipService
}

// NewMembershipsHandler constructs handler.
func NewMembershipsHandler(membershipService *service.MembershipService) *MembershipsHandler {
	return &MembershipsHandler{service: membershipService}
}

// AddMembership POST /teams/:id/memberships.
func (h *MembershipsHandler) AddMembership(c *fiber.Ctx) error {
	var req dto.CreateMembershipRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TargetID == "" || req.StartDate == "" {
		return apperrors.NewValidationError("target_id and start_date required", nil)
	}
	start, end, err := parseWindow(req.StartDate, req.EndDate)
	if err != nil {
		return err
	}

	membership, err := h.service.AddMembership(c.UserContext(), c.Params("id"), service.MembershipInput{
		TargetID: req.TargetID,
		Start:    start,
		End:      end,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": membershipResponse(membership)})
}

// ListMemberships GET /teams/:id/memberships.
func (h *MembershipsHandler) ListMemberships(c *fiber.Ctx) error {
	memberships, err := h.service.ListMemberships(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.MembershipResponse, 0, len(memberships))
	for i := range memberships {
		items = append(items, membershipResponse(&memberships[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateMembership PATCH /teams/:id/memberships/:membershipID.
func (h *MembershipsHandler) UpdateMembership(c *fiber.Ctx) error {
	var req dto.UpdateMembershipRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.StartDate == "" {
		return apperrors.NewValidationError("start_date required", nil)
	}
	start, end, err := parseWindow(req.StartDate, req.EndDate)
	if err != nil {
		return err
	}

	membership, err := h.service.UpdateMembership(c.UserContext(), c.Params("id"), c.Params("membershipID"), start, end)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": membershipResponse(membership)})
}

// RemoveMembership DELETE /teams/:id/memberships/:membershipID.
func (h *MembershipsHandler) RemoveMembership(c *fiber.Ctx) error {
	if err := h.service.RemoveMembership(c.UserContext(), c.Params("id"), c.Params("membershipID")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func parseWindow(startDate string, endDate *string) (time.Time, *time.Time, error) {
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return time.Time{}, nil, apperrors.NewValidationError("invalid start_date", map[string]any{"start_date": startDate})
	}
	var end *time.Time
	if endDate != nil && *endDate != "" {
		parsed, err := time.Parse(dateLayout, *endDate)
		if err != nil {
			return time.Time{}, nil, apperrors.NewValidationError("invalid end_date", map[string]any{"end_date": *endDate})
		}
		end = &parsed
	}
	return start, end, nil
}

func membershipResponse(m *domain.TeamMembership) dto.MembershipResponse {
	return dto.MembershipResponse{
		ID:        m.ID,
		SourceID:  m.SourceID,
		TargetID:  m.TargetID,
		StartDate: m.DateRange.Start,
		EndDate:   m.DateRange.End,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
