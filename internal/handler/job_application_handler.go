package handler

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"jobtracker/internal/errors"
	"jobtracker/internal/model"
	"jobtracker/internal/service"
)

// JobApplicationHandler handles job application endpoints.
type JobApplicationHandler struct {
	applications service.JobApplicationService
}

// NewJobApplicationHandler creates a new job application handler.
func NewJobApplicationHandler(applications service.JobApplicationService) *JobApplicationHandler {
	return &JobApplicationHandler{applications: applications}
}

// JobApplicationRequest represents a manually tracked application.
type JobApplicationRequest struct {
	CompanyName    string                  `json:"company_name" validate:"required,max=255"`
	Position       string                  `json:"position" validate:"required,max=255"`
	Status         model.ApplicationStatus `json:"status"`
	Deadline       time.Time               `json:"deadline"`
	Notes          string                  `json:"notes"`
	CompanyWebsite string                  `json:"company_website" validate:"omitempty,url"`
	JobURL         string                  `json:"job_url" validate:"omitempty,url"`
	CoverLetter    string                  `json:"cover_letter"`
}

// RecruiterStatusRequest is a recruiter's decision on an application.
type RecruiterStatusRequest struct {
	Status   model.RecruiterStatus `json:"status" validate:"required"`
	Feedback *string               `json:"feedback"`
}

func (r JobApplicationRequest) input() service.JobApplicationInput {
	return service.JobApplicationInput{
		CompanyName:    r.CompanyName,
		Position:       r.Position,
		Status:         r.Status,
		Deadline:       r.Deadline,
		Notes:          r.Notes,
		CompanyWebsite: r.CompanyWebsite,
		JobURL:         r.JobURL,
		CoverLetter:    r.CoverLetter,
	}
}

// List godoc
// @Summary List the caller's job applications
// @Tags jobapplications
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.JobApplication
// @Failure 401 {object} errors.ErrorResponse
// @Router /jobapplications [get]
func (h *JobApplicationHandler) List(c echo.Context) error {
	apps, err := h.applications.List(c.Request().Context(), subject(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, apps)
}

// Get godoc
// @Summary Get a job application
// @Description Owners, admins and the recruiter of the linked posting may read an application.
// @Tags jobapplications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Success 200 {object} model.JobApplication
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /jobapplications/{id} [get]
func (h *JobApplicationHandler) Get(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}

	app, err := h.applications.Get(c.Request().Context(), subject(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, app)
}

// Create godoc
// @Summary Track a new job application
// @Tags jobapplications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body JobApplicationRequest true "Application data"
// @Success 201 {object} model.JobApplication
// @Failure 400 {object} errors.ErrorResponse
// @Router /jobapplications [post]
func (h *JobApplicationHandler) Create(c echo.Context) error {
	var req JobApplicationRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	app, err := h.applications.Create(c.Request().Context(), subject(c), req.input())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, app)
}

// Update godoc
// @Summary Update a job application
// @Tags jobapplications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Param request body JobApplicationRequest true "Application data"
// @Success 200 {object} model.JobApplication
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /jobapplications/{id} [put]
func (h *JobApplicationHandler) Update(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req JobApplicationRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	app, err := h.applications.Update(c.Request().Context(), subject(c), id, req.input())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, app)
}

// Delete godoc
// @Summary Delete a job application
// @Tags jobapplications
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Success 204
// @Failure 403 {object} errors.ErrorResponse
// @Router /jobapplications/{id} [delete]
func (h *JobApplicationHandler) Delete(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.applications.Delete(c.Request().Context(), subject(c), id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Apply godoc
// @Summary Apply to a job posting
// @Description Accepts an optional CV (.pdf, .doc or .docx, at most 10 MB).
// @Tags jobapplications
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param jobPostingId path int true "Job posting ID"
// @Param notes formData string false "Notes"
// @Param coverLetter formData string false "Cover letter"
// @Param cv formData file false "CV file"
// @Success 201 {object} model.JobApplication
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /jobapplications/apply/{jobPostingId} [post]
func (h *JobApplicationHandler) Apply(c echo.Context) error {
	postingID, err := idParam(c, "jobPostingId")
	if err != nil {
		return err
	}

	in := service.ApplyInput{
		Notes:       c.FormValue("notes"),
		CoverLetter: c.FormValue("coverLetter"),
	}

	fh, err := c.FormFile("cv")
	switch {
	case stderrors.Is(err, http.ErrMissingFile):
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid multipart form",
			Code:  "INVALID_REQUEST",
		})
	default:
		file, err := fh.Open()
		if err != nil {
			return fail(c, err)
		}
		defer file.Close()
		in.File = file
		in.FileName = fh.Filename
		in.Size = fh.Size
		in.ContentType = fh.Header.Get(echo.HeaderContentType)
	}

	app, err := h.applications.Apply(c.Request().Context(), subject(c), postingID, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, app)
}

// UpdateRecruiterStatus godoc
// @Summary Record the recruiter's decision on an application
// @Tags jobapplications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Param request body RecruiterStatusRequest true "Decision"
// @Success 200 {object} model.JobApplication
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /jobapplications/{id}/recruiter-status [put]
func (h *JobApplicationHandler) UpdateRecruiterStatus(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req RecruiterStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	app, err := h.applications.UpdateRecruiterStatus(c.Request().Context(), subject(c), id, service.RecruiterStatusInput{
		Status:   req.Status,
		Feedback: req.Feedback,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, app)
}
