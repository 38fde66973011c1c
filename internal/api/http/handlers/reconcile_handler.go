package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/team-hierarchy-service/internal/service"
)

// ReconcileHandler exposes the reconciliation engine to operational tooling.
type ReconcileHandler struct {
	service *service.ReconcileService
}

// NewReconcileHandler constructs handler.
func NewReconcileHandler(reconcileService *service.ReconcileService) *ReconcileHandler {
	return &ReconcileHandler{service: reconcileService}
}

// ReconcileAll POST /admin/reconcile.
func (h *ReconcileHandler) ReconcileAll(c *fiber.Ctx) error {
	summary, err := h.service.ReconcileAll(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

// ReconcileNodes POST /admin/reconcile/nodes.
func (h *ReconcileHandler) ReconcileNodes(c *fiber.Ctx) error {
	result, err := h.service.ReconcileNodes(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// ReconcileEdges POST /admin/reconcile/edges.
func (h *ReconcileHandler) ReconcileEdges(c *fiber.Ctx) error {
	result, err := h.service.ReconcileEdges(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}
