package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/team-hierarchy-service/internal/api/http/handlers"
	"github.com/spec-kit/team-hierarchy-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Teams          *handlers.TeamsHandler
	Memberships    *handlers.MembershipsHandler
	Hierarchy      *handlers.HierarchyHandler
	Reconcile      *handlers.ReconcileHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Reads require any authenticated caller;
// ledger mutations and reconciliation require the admin role.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authed := app.Group("", cfg.AuthMiddleware.Handle)
	admin := auth.RequireRole(auth.RoleAdmin)

	teams := authed.Group("/teams")
	teams.Get("", cfg.Teams.ListTeams)
	teams.Post("", admin, cfg.Teams.CreateTeam)
	teams.Get("/:id", cfg.Teams.GetTeam)
	teams.Patch("/:id", admin, cfg.Teams.UpdateTeam)
	teams.Delete("/:id", admin, cfg.Teams.DeleteTeam)

	teams.Get("/:id/memberships", cfg.Memberships.ListMemberships)
	teams.Post("/:id/memberships", admin, cfg.Memberships.AddMembership)
	teams.Patch("/:id/memberships/:membershipID", admin, cfg.Memberships.UpdateMembership)
	teams.Delete("/:id/memberships/:membershipID", admin, cfg.Memberships.RemoveMembership)

	teams.Get("/:id/hierarchy/ancestors", cfg.Hierarchy.Ancestors)
	teams.Get("/:id/hierarchy/descendants", cfg.Hierarchy.Descendants)

	adminGroup := authed.Group("/admin", admin)
	adminGroup.Post("/reconcile", cfg.Reconcile.ReconcileAll)
	adminGroup.Post("/reconcile/nodes", cfg.Reconcile.ReconcileNodes)
	adminGroup.Post("/reconcile/edges", cfg.Reconcile.ReconcileEdges)
}
