package permission

import (
	"errors"

	"erp-admin/internal/policy"
	"erp-admin/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type PermissionController struct {
	PermissionService PermissionService
	validate          *validator.Validate
}

func NewPermissionController(permissionService PermissionService) *PermissionController {
	return &PermissionController{
		PermissionService: permissionService,
		validate:          validator.New(),
	}
}

type ToggleRequest struct {
	Feature string `json:"feature" validate:"required"`
	Action  string `json:"action" validate:"required"`
	Value   *bool  `json:"value" validate:"required"`
}

type ValueRequest struct {
	Value *bool `json:"value" validate:"required"`
}

func (ctrl *PermissionController) respond(c *fiber.Ctx, view *MatrixView, err error) error {
	switch {
	case err == nil:
		return c.JSON(view)
	case errors.Is(err, ErrUnknownRole):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
}

// parseBody decodes and validates the request body. When it returns
// false the 400 response has already been written.
func (ctrl *PermissionController) parseBody(c *fiber.Ctx, dest interface{}) (bool, error) {
	if err := c.BodyParser(dest); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := ctrl.validate.Struct(dest); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": utils.ValidationErrors(err)})
	}
	return true, nil
}

// ListMatrices godoc
// @Summary      Get the permission matrix of every role
// @Tags         permissions
// @Produce      json
// @Success      200  {array} MatrixView
// @Router       /permissions [get]
func (ctrl *PermissionController) ListMatrices(c *fiber.Ctx) error {
	views, err := ctrl.PermissionService.GetAllMatrices(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(views)
}

// GetMatrix godoc
// @Summary      Get the permission matrix for a role
// @Tags         permissions
// @Produce      json
// @Param        role path string true "Role"
// @Success      200  {object} MatrixView
// @Router       /permissions/{role} [get]
func (ctrl *PermissionController) GetMatrix(c *fiber.Ctx) error {
	view, err := ctrl.PermissionService.GetMatrix(c.UserContext(), policy.Role(c.Params("role")))
	return ctrl.respond(c, view, err)
}

// Toggle godoc
// @Summary      Toggle a single permission cell
// @Description  Dependent actions are enabled or cleared automatically
// @Tags         permissions
// @Accept       json
// @Param        role  path string        true "Role"
// @Param        input body ToggleRequest true "Toggle Input"
// @Success      200  {object} MatrixView
// @Router       /permissions/{role}/toggle [post]
func (ctrl *PermissionController) Toggle(c *fiber.Ctx) error {
	var req ToggleRequest
	if ok, err := ctrl.parseBody(c, &req); !ok {
		return err
	}
	view, err := ctrl.PermissionService.Toggle(
		c.UserContext(),
		policy.Role(c.Params("role")),
		policy.FeatureKey(req.Feature),
		policy.Action(req.Action),
		*req.Value,
	)
	return ctrl.respond(c, view, err)
}

// SetRow godoc
// @Summary      Set every action for a feature
// @Tags         permissions
// @Accept       json
// @Param        role    path string       true "Role"
// @Param        feature path string       true "Feature"
// @Param        input   body ValueRequest true "Row Input"
// @Success      200  {object} MatrixView
// @Router       /permissions/{role}/rows/{feature} [post]
func (ctrl *PermissionController) SetRow(c *fiber.Ctx) error {
	var req ValueRequest
	if ok, err := ctrl.parseBody(c, &req); !ok {
		return err
	}
	view, err := ctrl.PermissionService.SetRow(
		c.UserContext(),
		policy.Role(c.Params("role")),
		policy.FeatureKey(c.Params("feature")),
		*req.Value,
	)
	return ctrl.respond(c, view, err)
}

// SetColumn godoc
// @Summary      Set one action across every feature
// @Tags         permissions
// @Accept       json
// @Param        role   path string       true "Role"
// @Param        action path string       true "Action"
// @Param        input  body ValueRequest true "Column Input"
// @Success      200  {object} MatrixView
// @Router       /permissions/{role}/columns/{action} [post]
func (ctrl *PermissionController) SetColumn(c *fiber.Ctx) error {
	var req ValueRequest
	if ok, err := ctrl.parseBody(c, &req); !ok {
		return err
	}
	view, err := ctrl.PermissionService.SetColumn(
		c.UserContext(),
		policy.Role(c.Params("role")),
		policy.Action(c.Params("action")),
		*req.Value,
	)
	return ctrl.respond(c, view, err)
}

// Reset godoc
// @Summary      Reset the draft to the role's default policy
// @Tags         permissions
// @Param        role path string true "Role"
// @Success      200  {object} MatrixView
// @Router       /permissions/{role}/reset [post]
func (ctrl *PermissionController) Reset(c *fiber.Ctx) error {
	view, err := ctrl.PermissionService.Reset(c.UserContext(), policy.Role(c.Params("role")))
	return ctrl.respond(c, view, err)
}

// Clear godoc
// @Summary      Clear every permission in the draft
// @Tags         permissions
// @Param        role path string true "Role"
// @Success      200  {object} MatrixView
// @Router       /permissions/{role}/clear [post]
func (ctrl *PermissionController) Clear(c *fiber.Ctx) error {
	view, err := ctrl.PermissionService.Clear(c.UserContext(), policy.Role(c.Params("role")))
	return ctrl.respond(c, view, err)
}

// Discard godoc
// @Summary      Drop unsaved edits and return the saved policy
// @Tags         permissions
// @Param        role path string true "Role"
// @Success      200  {object} MatrixView
// @Router       /permissions/{role}/discard [post]
func (ctrl *PermissionController) Discard(c *fiber.Ctx) error {
	view, err := ctrl.PermissionService.Discard(c.UserContext(), policy.Role(c.Params("role")))
	return ctrl.respond(c, view, err)
}

// Save godoc
// @Summary      Persist the draft as the role's active policy
// @Tags         permissions
// @Param        role path string true "Role"
// @Success      200  {object} MatrixView
// @Router       /permissions/{role} [put]
func (ctrl *PermissionController) Save(c *fiber.Ctx) error {
	view, err := ctrl.PermissionService.Save(c.UserContext(), policy.Role(c.Params("role")))
	return ctrl.respond(c, view, err)
}
