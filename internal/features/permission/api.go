package permission

import (
	"erp-admin/internal/config"
	"erp-admin/internal/middleware"
	"erp-admin/internal/policy"

	"github.com/gofiber/fiber/v2"
)

type PermissionApi struct {
	controller *PermissionController
	service    PermissionService
	config     *config.Config
}

func NewPermissionApi(controller *PermissionController, service PermissionService, config *config.Config) *PermissionApi {
	return &PermissionApi{
		controller: controller,
		service:    service,
		config:     config,
	}
}

// Setup registers all permission-related routes
func (h *PermissionApi) Setup(app *fiber.App) {
	api := app.Group("/api/permissions", middleware.AuthMiddleware(h.config.SkipAuth))

	canView := middleware.RequirePermission(h.service, policy.FeaturePermissions, policy.ActionView)
	canEdit := middleware.RequirePermission(h.service, policy.FeaturePermissions, policy.ActionEdit)

	api.Get("/", canView, h.controller.ListMatrices)
	api.Get("/:role", canView, h.controller.GetMatrix)
	api.Put("/:role", canEdit, h.controller.Save)
	api.Post("/:role/toggle", canEdit, h.controller.Toggle)
	api.Post("/:role/rows/:feature", canEdit, h.controller.SetRow)
	api.Post("/:role/columns/:action", canEdit, h.controller.SetColumn)
	api.Post("/:role/reset", canEdit, h.controller.Reset)
	api.Post("/:role/clear", canEdit, h.controller.Clear)
	api.Post("/:role/discard", canEdit, h.controller.Discard)
}
