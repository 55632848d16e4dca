package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"jobtracker/internal/errors"
	"jobtracker/internal/service"
)

// AdminHandler handles user and role administration.
type AdminHandler struct {
	admin service.AdminService
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(admin service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// CreateUserRequest creates a confirmed account.
type CreateUserRequest struct {
	Email       string   `json:"email" validate:"required,email"`
	UserName    string   `json:"user_name" validate:"omitempty,max=255"`
	Password    string   `json:"password" validate:"required,min=6"`
	PhoneNumber string   `json:"phone_number" validate:"omitempty,max=50"`
	Roles       []string `json:"roles"`
}

// RoleAssignmentRequest names a user and a role.
type RoleAssignmentRequest struct {
	UserID   string `json:"user_id" validate:"required,uuid"`
	RoleName string `json:"role_name" validate:"required"`
}

// CreateRoleRequest names a new role.
type CreateRoleRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

// ListUsers godoc
// @Summary List users
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.UserSummary
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(c echo.Context) error {
	users, err := h.admin.ListUsers(c.Request().Context(), subject(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

// GetUser godoc
// @Summary Get a user
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} service.UserSummary
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/users/{id} [get]
func (h *AdminHandler) GetUser(c echo.Context) error {
	id, err := uuidParam(c)
	if err != nil {
		return err
	}

	user, err := h.admin.GetUser(c.Request().Context(), subject(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// CreateUser godoc
// @Summary Create a user
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateUserRequest true "User data"
// @Success 201 {object} service.UserSummary
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/users [post]
func (h *AdminHandler) CreateUser(c echo.Context) error {
	var req CreateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.admin.CreateUser(c.Request().Context(), subject(c), service.CreateUserInput{
		Email:       req.Email,
		UserName:    req.UserName,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		Roles:       req.Roles,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, user)
}

// DeleteUser godoc
// @Summary Delete a user and everything they own
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, err := uuidParam(c)
	if err != nil {
		return err
	}

	if err := h.admin.DeleteUser(c.Request().Context(), subject(c), id); err != nil {
		return fail(c, err)
	}
	return message(c, http.StatusOK, "User deleted.")
}

// AssignRole godoc
// @Summary Add a user to a role
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RoleAssignmentRequest true "User and role"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/assign-role [post]
func (h *AdminHandler) AssignRole(c echo.Context) error {
	var req RoleAssignmentRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.admin.AssignRole(c.Request().Context(), subject(c), uuid.MustParse(req.UserID), req.RoleName); err != nil {
		return fail(c, err)
	}
	return message(c, http.StatusOK, "Role assigned.")
}

// RemoveRole godoc
// @Summary Remove a user from a role
// @Description The last admin cannot lose the Admin role.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RoleAssignmentRequest true "User and role"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/remove-role [post]
func (h *AdminHandler) RemoveRole(c echo.Context) error {
	var req RoleAssignmentRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.admin.RemoveRole(c.Request().Context(), subject(c), uuid.MustParse(req.UserID), req.RoleName); err != nil {
		return fail(c, err)
	}
	return message(c, http.StatusOK, "Role removed.")
}

// ListRoles godoc
// @Summary List roles with member counts
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.RoleSummary
// @Router /admin/roles [get]
func (h *AdminHandler) ListRoles(c echo.Context) error {
	roles, err := h.admin.ListRoles(c.Request().Context(), subject(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, roles)
}

// CreateRole godoc
// @Summary Create a role
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateRoleRequest true "Role"
// @Success 201 {object} model.Role
// @Failure 400 {object} errors.ErrorResponse
// @Router /admin/roles [post]
func (h *AdminHandler) CreateRole(c echo.Context) error {
	var req CreateRoleRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	role, err := h.admin.CreateRole(c.Request().Context(), subject(c), req.Name)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, role)
}

// DeleteRole godoc
// @Summary Delete an unused custom role
// @Tags admin
// @Security BearerAuth
// @Param name path string true "Role name"
// @Success 204
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/roles/{name} [delete]
func (h *AdminHandler) DeleteRole(c echo.Context) error {
	if err := h.admin.DeleteRole(c.Request().Context(), subject(c), c.Param("name")); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Jobs godoc
// @Summary List every job application
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.AdminJob
// @Router /admin/jobs [get]
func (h *AdminHandler) Jobs(c echo.Context) error {
	jobs, err := h.admin.AllJobs(c.Request().Context(), subject(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, jobs)
}

// Stats godoc
// @Summary Dashboard statistics
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.Stats
// @Router /admin/stats [get]
func (h *AdminHandler) Stats(c echo.Context) error {
	stats, err := h.admin.Stats(c.Request().Context(), subject(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

func uuidParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid id",
			Code:  "INVALID_UUID",
		})
	}
	return id, nil
}
