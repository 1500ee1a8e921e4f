package auth

import (
	"erp-admin/internal/config"
	"erp-admin/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AuthApi struct {
	controller *AuthController
	config     *config.Config
}

func NewAuthApi(controller *AuthController, config *config.Config) *AuthApi {
	return &AuthApi{
		controller: controller,
		config:     config,
	}
}

// Setup registers all auth-related routes
func (h *AuthApi) Setup(app *fiber.App) {
	// Public routes
	app.Post("/api/login", h.controller.Login)
	app.Post("/api/logout", h.controller.Logout)

	// Session routes
	app.Get("/api/me", middleware.AuthMiddleware(h.config.SkipAuth), h.controller.Me)
	app.Post("/api/change-password", middleware.AuthMiddleware(h.config.SkipAuth), h.controller.ChangePassword)
}
