package user

import (
	"errors"
	"strconv"

	"erp-admin/internal/common/models"
	"erp-admin/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type UserController struct {
	UserService UserService
	validate    *validator.Validate
}

func NewUserController(userService UserService) *UserController {
	return &UserController{
		UserService: userService,
		validate:    validator.New(),
	}
}

type CreateUserRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=64"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role" validate:"required,oneof=admin creator reviewer viewer"`
	Status    string `json:"status,omitempty" validate:"omitempty,oneof=Active Inactive"`
}

type UpdateUserRequest struct {
	Username  *string `json:"username,omitempty" validate:"omitempty,min=3,max=64"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Role      *string `json:"role,omitempty" validate:"omitempty,oneof=admin creator reviewer viewer"`
	Status    *string `json:"status,omitempty" validate:"omitempty,oneof=Active Inactive"`
}

type UpdateUserStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=Active Inactive"`
}

type SetTempPasswordRequest struct {
	Password      string `json:"password" validate:"required,min=8"`
	ExpiresInMins int    `json:"expires_in_mins" validate:"required,min=1"`
	MustChange    bool   `json:"must_change"`
}

func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrLastAdmin):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrUsernameTaken):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": fiber.Map{"username": "Username already exists"},
		})
	case errors.Is(err, ErrWeakPassword):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": fiber.Map{"password": "Use upper, lower, number, symbol (any 3 of 4)"},
		})
	case errors.Is(err, ErrInvalidRole), errors.Is(err, ErrInvalidStatus):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}

// ListUsers godoc
// @Summary      List all users
// @Description  Get a paginated list of users with optional search/role/status filters
// @Tags         users
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        limit query int false "Items per page" default(50)
// @Param        search query string false "Substring match over username/name/email"
// @Param        role query string false "Filter by role"
// @Param        status query string false "Filter by status"
// @Success      200  {object} map[string]interface{}
// @Router       /users [get]
func (ctrl *UserController) ListUsers(c *fiber.Ctx) error {
	page, _ := strconv.ParseInt(c.Query("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(c.Query("limit", "50"), 10, 64)

	users, total, err := ctrl.UserService.ListUsers(
		c.UserContext(),
		c.Query("search"),
		c.Query("role"),
		c.Query("status"),
		page, limit,
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch users",
		})
	}

	return c.JSON(fiber.Map{
		"users": users,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// GetUser godoc
// @Summary      Get user by ID
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200  {object} models.User
// @Failure      404  {string} string "User not found"
// @Router       /users/{id} [get]
func (ctrl *UserController) GetUser(c *fiber.Ctx) error {
	user, err := ctrl.UserService.GetUserByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}
	return c.JSON(user)
}

// CreateUser godoc
// @Summary      Create user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        input body CreateUserRequest true "Create User Input"
// @Success      201  {object} models.User
// @Failure      400  {object} map[string]interface{}
// @Router       /users [post]
func (ctrl *UserController) CreateUser(c *fiber.Ctx) error {
	var req CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := ctrl.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": utils.ValidationErrors(err),
		})
	}

	user := &models.User{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		Status:    req.Status,
	}

	if err := ctrl.UserService.CreateUser(c.UserContext(), user, req.Password); err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

// UpdateUser godoc
// @Summary      Update user
// @Description  Partially update user fields. Demoting the last admin is rejected.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID"
// @Param        input body UpdateUserRequest true "Update User Input"
// @Success      200  {object} models.User
// @Failure      409  {string} string "Last admin protection"
// @Router       /users/{id} [patch]
func (ctrl *UserController) UpdateUser(c *fiber.Ctx) error {
	var req UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := ctrl.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": utils.ValidationErrors(err),
		})
	}

	updates := make(map[string]interface{})
	if req.Username != nil {
		updates["username"] = *req.Username
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.Role != nil {
		updates["role"] = *req.Role
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}

	user, err := ctrl.UserService.UpdateUser(c.UserContext(), c.Params("id"), updates)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(user)
}

// UpdateUserStatus godoc
// @Summary      Update user status
// @Tags         users
// @Accept       json
// @Param        id path string true "User ID"
// @Param        input body UpdateUserStatusRequest true "Status Input"
// @Success      200  {object} map[string]string
// @Router       /users/{id}/status [put]
func (ctrl *UserController) UpdateUserStatus(c *fiber.Ctx) error {
	var req UpdateUserStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := ctrl.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": utils.ValidationErrors(err),
		})
	}

	if err := ctrl.UserService.UpdateUserStatus(c.UserContext(), c.Params("id"), req.Status); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "User status updated successfully",
	})
}

// DeleteUser godoc
// @Summary      Delete user
// @Description  Delete a user by ID. Deleting the last admin is rejected.
// @Tags         users
// @Param        id path string true "User ID"
// @Success      200  {object} map[string]string
// @Failure      409  {string} string "Last admin protection"
// @Router       /users/{id} [delete]
func (ctrl *UserController) DeleteUser(c *fiber.Ctx) error {
	if err := ctrl.UserService.DeleteUser(c.UserContext(), c.Params("id")); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "User deleted successfully",
	})
}

// SetTempPassword godoc
// @Summary      Set a temporary password
// @Description  Stores a temporary bcrypt-hashed password with an expiry and an optional forced change on next login
// @Tags         users
// @Accept       json
// @Param        id path string true "User ID"
// @Param        input body SetTempPasswordRequest true "Temp Password Input"
// @Success      200  {object} map[string]string
// @Router       /users/{id}/temp-password [post]
func (ctrl *UserController) SetTempPassword(c *fiber.Ctx) error {
	var req SetTempPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := ctrl.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": utils.ValidationErrors(err),
		})
	}

	if err := ctrl.UserService.SetTempPassword(c.UserContext(), c.Params("id"), req.Password, req.ExpiresInMins, req.MustChange); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Temporary password set",
	})
}

// SendResetLink godoc
// @Summary      Record a password reset
// @Description  Stamps lastPasswordResetAt and forces a change on next login
// @Tags         users
// @Param        id path string true "User ID"
// @Success      200  {object} map[string]string
// @Router       /users/{id}/reset-link [post]
func (ctrl *UserController) SendResetLink(c *fiber.Ctx) error {
	if err := ctrl.UserService.RecordPasswordReset(c.UserContext(), c.Params("id")); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Reset recorded",
	})
}
