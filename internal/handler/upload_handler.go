package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"jobtracker/internal/storage"
)

// UploadHandler serves stored CV files.
type UploadHandler struct {
	files storage.FileStore
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(files storage.FileStore) *UploadHandler {
	return &UploadHandler{files: files}
}

// Serve godoc
// @Summary Download a stored CV
// @Tags uploads
// @Produce octet-stream
// @Param name path string true "File name"
// @Success 200 {file} file
// @Failure 404 {object} errors.ErrorResponse
// @Router /uploads/{name} [get]
func (h *UploadHandler) Serve(c echo.Context) error {
	name := c.Param("name")

	f, err := h.files.Open(c.Request().Context(), name)
	if err != nil {
		return fail(c, err)
	}
	defer f.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, `inline; filename="`+name+`"`)
	return c.Stream(http.StatusOK, storage.ContentType(name), f)
}
