package audit

import (
	"erp-admin/internal/config"
	"erp-admin/internal/middleware"
	"erp-admin/internal/policy"

	"github.com/gofiber/fiber/v2"
)

type AuditApi struct {
	controller *AuditController
	config     *config.Config
	policies   middleware.PolicyProvider
}

func NewAuditApi(controller *AuditController, config *config.Config, policies middleware.PolicyProvider) *AuditApi {
	return &AuditApi{
		controller: controller,
		config:     config,
		policies:   policies,
	}
}

func (h *AuditApi) Setup(app *fiber.App) {
	audit := app.Group("/api/audit-logs", middleware.AuthMiddleware(h.config.SkipAuth))

	audit.Get("/", middleware.RequirePermission(h.policies, policy.FeaturePermissions, policy.ActionView), h.controller.ListLogs)
}
