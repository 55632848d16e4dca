package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"jobtracker/internal/service"
)

// JobPostingHandler handles job posting endpoints.
type JobPostingHandler struct {
	postings service.JobPostingService
}

// NewJobPostingHandler creates a new job posting handler.
func NewJobPostingHandler(postings service.JobPostingService) *JobPostingHandler {
	return &JobPostingHandler{postings: postings}
}

// JobPostingRequest represents the recruiter-editable posting fields.
type JobPostingRequest struct {
	Title               string           `json:"title" validate:"required,max=255"`
	CompanyName         string           `json:"company_name" validate:"required,max=255"`
	Description         string           `json:"description" validate:"required"`
	Location            string           `json:"location" validate:"max=255"`
	IsRemote            bool             `json:"is_remote"`
	SalaryRange         string           `json:"salary_range" validate:"max=100"`
	SalaryMin           *decimal.Decimal `json:"salary_min" swaggertype:"string"`
	SalaryMax           *decimal.Decimal `json:"salary_max" swaggertype:"string"`
	Requirements        string           `json:"requirements"`
	ApplicationDeadline time.Time        `json:"application_deadline" validate:"required"`
	IsActive            *bool            `json:"is_active"`
}

func (r JobPostingRequest) input() service.JobPostingInput {
	return service.JobPostingInput{
		Title:               r.Title,
		CompanyName:         r.CompanyName,
		Description:         r.Description,
		Location:            r.Location,
		IsRemote:            r.IsRemote,
		SalaryRange:         r.SalaryRange,
		SalaryMin:           r.SalaryMin,
		SalaryMax:           r.SalaryMax,
		Requirements:        r.Requirements,
		ApplicationDeadline: r.ApplicationDeadline,
		IsActive:            r.IsActive,
	}
}

// List godoc
// @Summary List job postings
// @Description Active postings are public. Admins may pass includeInactive=true to see every posting.
// @Tags jobpostings
// @Produce json
// @Param includeInactive query bool false "Include inactive postings (admin only)"
// @Success 200 {array} model.JobPosting
// @Router /jobpostings [get]
func (h *JobPostingHandler) List(c echo.Context) error {
	includeInactive, _ := strconv.ParseBool(c.QueryParam("includeInactive"))

	postings, err := h.postings.List(c.Request().Context(), subject(c), includeInactive)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, postings)
}

// Get godoc
// @Summary Get a job posting
// @Tags jobpostings
// @Produce json
// @Param id path int true "Job posting ID"
// @Success 200 {object} model.JobPosting
// @Failure 404 {object} errors.ErrorResponse
// @Router /jobpostings/{id} [get]
func (h *JobPostingHandler) Get(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}

	posting, err := h.postings.Get(c.Request().Context(), subject(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, posting)
}

// MyPostings godoc
// @Summary List the caller's postings
// @Tags jobpostings
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.JobPosting
// @Failure 403 {object} errors.ErrorResponse
// @Router /jobpostings/my-postings [get]
func (h *JobPostingHandler) MyPostings(c echo.Context) error {
	postings, err := h.postings.MyPostings(c.Request().Context(), subject(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, postings)
}

// Create godoc
// @Summary Create a job posting
// @Tags jobpostings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body JobPostingRequest true "Posting data"
// @Success 201 {object} model.JobPosting
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /jobpostings [post]
func (h *JobPostingHandler) Create(c echo.Context) error {
	var req JobPostingRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	posting, err := h.postings.Create(c.Request().Context(), subject(c), req.input())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, posting)
}

// Update godoc
// @Summary Update a job posting
// @Tags jobpostings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Job posting ID"
// @Param request body JobPostingRequest true "Posting data"
// @Success 200 {object} model.JobPosting
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /jobpostings/{id} [put]
func (h *JobPostingHandler) Update(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req JobPostingRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	posting, err := h.postings.Update(c.Request().Context(), subject(c), id, req.input())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, posting)
}

// Delete godoc
// @Summary Delete a job posting and its applications
// @Tags jobpostings
// @Security BearerAuth
// @Param id path int true "Job posting ID"
// @Success 204
// @Failure 403 {object} errors.ErrorResponse
// @Router /jobpostings/{id} [delete]
func (h *JobPostingHandler) Delete(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.postings.Delete(c.Request().Context(), subject(c), id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ToggleStatus godoc
// @Summary Activate or deactivate a job posting
// @Tags jobpostings
// @Produce json
// @Security BearerAuth
// @Param id path int true "Job posting ID"
// @Success 200 {object} model.JobPosting
// @Failure 403 {object} errors.ErrorResponse
// @Router /jobpostings/{id}/toggle-status [post]
func (h *JobPostingHandler) ToggleStatus(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}

	posting, err := h.postings.ToggleStatus(c.Request().Context(), subject(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, posting)
}

// Applicants godoc
// @Summary List applications to a job posting
// @Tags jobpostings
// @Produce json
// @Security BearerAuth
// @Param id path int true "Job posting ID"
// @Success 200 {array} service.Applicant
// @Failure 403 {object} errors.ErrorResponse
// @Router /jobpostings/{id}/applicants [get]
func (h *JobPostingHandler) Applicants(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}

	applicants, err := h.postings.Applicants(c.Request().Context(), subject(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, applicants)
}
