package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
		expectedMsg    string
	}{
		{
			name:           "not found",
			err:            ErrJobPostingNotFound,
			expectedStatus: http.StatusNotFound,
			expectedCode:   "JOB_POSTING_NOT_FOUND",
			expectedMsg:    "job posting not found",
		},
		{
			name:           "wrapped validation keeps detail",
			err:            fmt.Errorf("%w: rejection reason is required", ErrValidation),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_FAILED",
			expectedMsg:    "validation failed: rejection reason is required",
		},
		{
			name:           "forbidden never explains why",
			err:            fmt.Errorf("%w: recruiter does not own posting 4", ErrForbidden),
			expectedStatus: http.StatusForbidden,
			expectedCode:   "FORBIDDEN",
			expectedMsg:    "not allowed",
		},
		{
			name:           "last admin is a business rule violation",
			err:            ErrLastAdmin,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "LAST_ADMIN",
			expectedMsg:    "cannot remove the last admin",
		},
		{
			name:           "unknown errors are hidden",
			err:            fmt.Errorf("sql: database is locked"),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   "INTERNAL_ERROR",
			expectedMsg:    "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.expectedStatus, httpErr.StatusCode)
			assert.Equal(t, tt.expectedCode, httpErr.Code)
			assert.Equal(t, tt.expectedMsg, httpErr.Message)
		})
	}
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(ErrDuplicateApplication))
	assert.False(t, IsClientError(fmt.Errorf("boom")))
}
