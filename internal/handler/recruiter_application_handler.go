package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"jobtracker/internal/service"
)

// RecruiterApplicationHandler handles requests for the Recruiter role.
type RecruiterApplicationHandler struct {
	recruiters service.RecruiterService
}

// NewRecruiterApplicationHandler creates a new recruiter application handler.
func NewRecruiterApplicationHandler(recruiters service.RecruiterService) *RecruiterApplicationHandler {
	return &RecruiterApplicationHandler{recruiters: recruiters}
}

// RecruiterApplicationRequest asks for the Recruiter role.
type RecruiterApplicationRequest struct {
	CompanyName    string `json:"company_name" validate:"required,max=255"`
	CompanyWebsite string `json:"company_website" validate:"required,url"`
	JobTitle       string `json:"job_title" validate:"required,max=255"`
	Motivation     string `json:"motivation" validate:"required"`
}

// RejectRequest carries the rejection reason.
type RejectRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// Submit godoc
// @Summary Apply for the Recruiter role
// @Tags recruiterapplications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RecruiterApplicationRequest true "Application data"
// @Success 201 {object} model.RecruiterApplication
// @Failure 400 {object} errors.ErrorResponse
// @Router /recruiterapplications [post]
func (h *RecruiterApplicationHandler) Submit(c echo.Context) error {
	var req RecruiterApplicationRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	app, err := h.recruiters.Submit(c.Request().Context(), subject(c), service.RecruiterApplicationInput{
		CompanyName:    req.CompanyName,
		CompanyWebsite: req.CompanyWebsite,
		JobTitle:       req.JobTitle,
		Motivation:     req.Motivation,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, app)
}

// MyApplication godoc
// @Summary Get the caller's latest recruiter application
// @Tags recruiterapplications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.RecruiterApplication
// @Failure 404 {object} errors.ErrorResponse
// @Router /recruiterapplications/my-application [get]
func (h *RecruiterApplicationHandler) MyApplication(c echo.Context) error {
	app, err := h.recruiters.MyApplication(c.Request().Context(), subject(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, app)
}

// List godoc
// @Summary List recruiter applications
// @Tags recruiterapplications
// @Produce json
// @Security BearerAuth
// @Param pending query bool false "Only pending applications"
// @Success 200 {array} model.RecruiterApplication
// @Failure 403 {object} errors.ErrorResponse
// @Router /recruiterapplications [get]
func (h *RecruiterApplicationHandler) List(c echo.Context) error {
	pendingOnly, _ := strconv.ParseBool(c.QueryParam("pending"))

	apps, err := h.recruiters.List(c.Request().Context(), subject(c), pendingOnly)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, apps)
}

// Get godoc
// @Summary Get a recruiter application
// @Tags recruiterapplications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Recruiter application ID"
// @Success 200 {object} model.RecruiterApplication
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /recruiterapplications/{id} [get]
func (h *RecruiterApplicationHandler) Get(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}

	app, err := h.recruiters.Get(c.Request().Context(), subject(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, app)
}

// Approve godoc
// @Summary Approve a recruiter application
// @Description Grants the Recruiter role in the same transaction.
// @Tags recruiterapplications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Recruiter application ID"
// @Success 200 {object} model.RecruiterApplication
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /recruiterapplications/{id}/approve [post]
func (h *RecruiterApplicationHandler) Approve(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}

	app, err := h.recruiters.Approve(c.Request().Context(), subject(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, app)
}

// Reject godoc
// @Summary Reject a recruiter application
// @Tags recruiterapplications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Recruiter application ID"
// @Param request body RejectRequest true "Rejection reason"
// @Success 200 {object} model.RecruiterApplication
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /recruiterapplications/{id}/reject [post]
func (h *RecruiterApplicationHandler) Reject(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req RejectRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	app, err := h.recruiters.Reject(c.Request().Context(), subject(c), id, req.Reason)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, app)
}
