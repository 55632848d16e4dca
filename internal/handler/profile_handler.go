package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"jobtracker/internal/service"
)

// ProfileHandler serves the caller's own account.
type ProfileHandler struct {
	profileService service.ProfileService
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(profileService service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// UpdateProfileRequest holds the editable profile fields. Omitted fields are left unchanged.
type UpdateProfileRequest struct {
	UserName    *string `json:"user_name" validate:"omitempty,min=1,max=255"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,max=50"`
}

// ChangePasswordRequest changes the caller's password. CurrentPassword may be
// empty for accounts that never had one.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

// ChangeEmailRequest starts an e-mail change.
type ChangeEmailRequest struct {
	NewEmail string `json:"new_email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// DeleteAccountRequest confirms a self-service deletion.
type DeleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}

// Get godoc
// @Summary Get the caller's profile
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.Profile
// @Failure 401 {object} errors.ErrorResponse
// @Router /profile [get]
func (h *ProfileHandler) Get(c echo.Context) error {
	profile, err := h.profileService.GetProfile(c.Request().Context(), subject(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}

// Update godoc
// @Summary Update the caller's profile
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "Profile fields"
// @Success 200 {object} service.Profile
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /profile [put]
func (h *ProfileHandler) Update(c echo.Context) error {
	var req UpdateProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	profile, err := h.profileService.UpdateProfile(c.Request().Context(), subject(c), service.UpdateProfileInput{
		UserName:    req.UserName,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}

// ChangePassword godoc
// @Summary Change the caller's password
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "Passwords"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /profile/change-password [post]
func (h *ProfileHandler) ChangePassword(c echo.Context) error {
	var req ChangePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.profileService.ChangePassword(c.Request().Context(), subject(c), req.CurrentPassword, req.NewPassword); err != nil {
		return fail(c, err)
	}
	return message(c, http.StatusOK, "Password changed.")
}

// ChangeEmail godoc
// @Summary Start an e-mail change
// @Description Sends a confirmation link to the new address. The change applies once it is confirmed.
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangeEmailRequest true "New e-mail"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /profile/change-email [post]
func (h *ProfileHandler) ChangeEmail(c echo.Context) error {
	var req ChangeEmailRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.profileService.ChangeEmail(c.Request().Context(), subject(c), req.NewEmail, req.Password); err != nil {
		return fail(c, err)
	}
	return message(c, http.StatusOK, "A confirmation link has been sent to the new address.")
}

// ConfirmEmail godoc
// @Summary Confirm an e-mail change
// @Tags profile
// @Accept json
// @Produce json
// @Param request body TokenRequest true "Confirmation token"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /profile/confirm-email [post]
func (h *ProfileHandler) ConfirmEmail(c echo.Context) error {
	var req TokenRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.profileService.ConfirmEmailChange(c.Request().Context(), req.Token); err != nil {
		return fail(c, err)
	}
	return message(c, http.StatusOK, "E-mail address changed.")
}

// Delete godoc
// @Summary Delete the caller's account
// @Description Removes the account with its applications and, for recruiters, its postings.
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body DeleteAccountRequest true "Password confirmation"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /profile [delete]
func (h *ProfileHandler) Delete(c echo.Context) error {
	var req DeleteAccountRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.profileService.DeleteAccount(c.Request().Context(), subject(c), req.Password); err != nil {
		return fail(c, err)
	}
	return message(c, http.StatusOK, "Account deleted.")
}
