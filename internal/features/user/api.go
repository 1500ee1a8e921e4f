package user

import (
	"erp-admin/internal/config"
	"erp-admin/internal/middleware"
	"erp-admin/internal/policy"

	"github.com/gofiber/fiber/v2"
)

type UserApi struct {
	controller *UserController
	config     *config.Config
	policies   middleware.PolicyProvider
}

func NewUserApi(controller *UserController, config *config.Config, policies middleware.PolicyProvider) *UserApi {
	return &UserApi{
		controller: controller,
		config:     config,
		policies:   policies,
	}
}

// Setup registers all user-related routes
func (h *UserApi) Setup(app *fiber.App) {
	users := app.Group("/api/users", middleware.AuthMiddleware(h.config.SkipAuth))

	users.Get("/", middleware.RequirePermission(h.policies, policy.FeatureUsers, policy.ActionView), h.controller.ListUsers)
	users.Get("/:id", middleware.RequirePermission(h.policies, policy.FeatureUsers, policy.ActionView), h.controller.GetUser)
	users.Post("/", middleware.RequirePermission(h.policies, policy.FeatureUsers, policy.ActionCreate), h.controller.CreateUser)
	users.Patch("/:id", middleware.RequirePermission(h.policies, policy.FeatureUsers, policy.ActionEdit), h.controller.UpdateUser)
	users.Delete("/:id", middleware.RequirePermission(h.policies, policy.FeatureUsers, policy.ActionDelete), h.controller.DeleteUser)

	users.Put("/:id/status", middleware.RequirePermission(h.policies, policy.FeatureUsers, policy.ActionEdit), h.controller.UpdateUserStatus)
	users.Post("/:id/temp-password", middleware.RequirePermission(h.policies, policy.FeatureUsers, policy.ActionEdit), h.controller.SetTempPassword)
	users.Post("/:id/reset-link", middleware.RequirePermission(h.policies, policy.FeatureUsers, policy.ActionEdit), h.controller.SendResetLink)
}
