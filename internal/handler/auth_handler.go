package handler

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"jobtracker/internal/model"
	"jobtracker/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
	// verifiedURL receives the browser after a legacy GET verification.
	verifiedURL string
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, verifiedURL string) *AuthHandler {
	return &AuthHandler{authService: authService, verifiedURL: verifiedURL}
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	UserName    string `json:"user_name" validate:"omitempty,max=255"`
	Password    string `json:"password" validate:"required,min=6"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,max=50"`
}

// RegisterResponse is returned after sign-up.
type RegisterResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
	Roles   []string    `json:"roles"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenRequest carries a one-time action token.
type TokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// EmailRequest carries an e-mail address.
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest completes a password reset.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} RegisterResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, roles, err := h.authService.Register(c.Request().Context(), service.RegisterInput{
		Email:       req.Email,
		UserName:    req.UserName,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusCreated, RegisterResponse{
		Message: "Registration successful. Please check your e-mail to verify your account.",
		User:    user,
		Roles:   roles,
	})
}

// Login godoc
// @Summary Login with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} service.AuthResult
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	result, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

// VerifyEmail godoc
// @Summary Confirm an e-mail address
// @Tags auth
// @Accept json
// @Produce json
// @Param request body TokenRequest true "Verification token"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /auth/verify-email [post]
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req TokenRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.authService.VerifyEmail(c.Request().Context(), req.Token); err != nil {
		return fail(c, err)
	}

	return message(c, http.StatusOK, "Email verified successfully.")
}

// VerifyEmailLink godoc
// @Summary Confirm an e-mail address from a link
// @Description Verifies the token and redirects to the configured front-end page with a status query parameter.
// @Tags auth
// @Param token query string true "Verification token"
// @Success 302
// @Router /auth/verify-email [get]
func (h *AuthHandler) VerifyEmailLink(c echo.Context) error {
	status := "success"
	if err := h.authService.VerifyEmail(c.Request().Context(), c.QueryParam("token")); err != nil {
		status = "error"
	}

	target, err := url.Parse(h.verifiedURL)
	if err != nil {
		return fail(c, err)
	}
	q := target.Query()
	q.Set("status", status)
	target.RawQuery = q.Encode()
	return c.Redirect(http.StatusFound, target.String())
}

// ResendVerification godoc
// @Summary Resend the verification e-mail
// @Description Always succeeds so the response does not reveal whether the address is registered.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body EmailRequest true "E-mail address"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /auth/resend-verification [post]
func (h *AuthHandler) ResendVerification(c echo.Context) error {
	var req EmailRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.authService.ResendVerification(c.Request().Context(), req.Email); err != nil {
		return fail(c, err)
	}

	return message(c, http.StatusOK, "If the account exists and is unconfirmed, a verification e-mail has been sent.")
}

// ForgotPassword godoc
// @Summary Request a password reset e-mail
// @Tags auth
// @Accept json
// @Produce json
// @Param request body EmailRequest true "E-mail address"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req EmailRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.authService.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return fail(c, err)
	}

	return message(c, http.StatusOK, "If the account exists, a password reset e-mail has been sent.")
}

// ResetPassword godoc
// @Summary Set a new password with a reset token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Reset data"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.authService.ResetPassword(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		return fail(c, err)
	}

	return message(c, http.StatusOK, "Password has been reset.")
}
