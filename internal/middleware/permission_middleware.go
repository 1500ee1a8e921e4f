package middleware

import (
	"context"

	"erp-admin/internal/policy"
	"erp-admin/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

// PolicyProvider resolves the effective saved policy for a role.
type PolicyProvider interface {
	PolicyForRole(ctx context.Context, role policy.Role) (policy.Policy, error)
}

// RequirePermission checks that the caller's role has the given feature/action
// enabled in its saved policy.
func RequirePermission(provider PolicyProvider, feature policy.FeatureKey, action policy.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		role := policy.Role(claims.Role)
		if !policy.ValidRole(role) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Access denied: No roles assigned",
			})
		}

		p, err := provider.PolicyForRole(c.Context(), role)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal Server Error",
			})
		}

		if !p[feature][action] {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Access denied: Insufficient permissions for this action",
			})
		}

		return c.Next()
	}
}
