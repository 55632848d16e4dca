package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrUserNotFound is returned when a user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrJobPostingNotFound is returned when a job posting does not exist or is hidden from the caller.
	ErrJobPostingNotFound = errors.New("job posting not found")
	// ErrRecruiterApplicationNotFound is returned when a recruiter application does not exist.
	ErrRecruiterApplicationNotFound = errors.New("recruiter application not found")
	// ErrRoleNotFound is returned when a role name is unknown.
	ErrRoleNotFound = errors.New("role not found")

	// ErrUnauthorized is returned when the caller is not authenticated.
	ErrUnauthorized = errors.New("authentication required")
	// ErrForbidden is returned when the caller lacks ownership or the required role.
	ErrForbidden = errors.New("not allowed")
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrIncorrectPassword is returned when a password confirmation does not match.
	ErrIncorrectPassword = errors.New("incorrect password")
	// ErrEmailNotConfirmed is returned on login before the email address is verified.
	ErrEmailNotConfirmed = errors.New("email address is not confirmed")
	// ErrInvalidToken is returned when an action token is malformed, expired, or already used.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrValidation is returned when input fails business validation.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidFile is returned when an uploaded CV is missing, too large, or of a disallowed type.
	ErrInvalidFile = errors.New("invalid file")

	// ErrEmailTaken is returned when an email address is already registered.
	ErrEmailTaken = errors.New("email is already in use")
	// ErrUserNameTaken is returned when a user name is already registered.
	ErrUserNameTaken = errors.New("username is already taken")
	// ErrLastAdmin is returned when an operation would leave the system without an admin.
	ErrLastAdmin = errors.New("cannot remove the last admin")
	// ErrNotInRole is returned when removing a role the user does not hold.
	ErrNotInRole = errors.New("user is not in role")
	// ErrRoleInUse is returned when deleting a role that is still assigned or built in.
	ErrRoleInUse = errors.New("role cannot be deleted")
	// ErrPendingRecruiterApplication is returned when a user already has a pending recruiter application.
	ErrPendingRecruiterApplication = errors.New("you already have a pending recruiter application")
	// ErrAlreadyRecruiter is returned when a recruiter applies to become a recruiter.
	ErrAlreadyRecruiter = errors.New("user is already a recruiter")
	// ErrInvalidTransition is returned when a recruiter application is no longer pending.
	ErrInvalidTransition = errors.New("application has already been reviewed")
	// ErrDuplicateApplication is returned when a user applies twice to the same posting.
	ErrDuplicateApplication = errors.New("you have already applied to this job posting")
	// ErrPostingClosed is returned when applying to an inactive or expired posting.
	ErrPostingClosed = errors.New("job posting is not accepting applications")
	// ErrOwnPosting is returned when a recruiter applies to their own posting.
	ErrOwnPosting = errors.New("you cannot apply to your own job posting")
	// ErrNotPostingApplication is returned when recruiter fields are set on a manually tracked application.
	ErrNotPostingApplication = errors.New("application is not linked to a job posting")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

type mapping struct {
	target error
	status int
	code   string
}

// Order matters: more specific errors come first so wrapped chains resolve to them.
var mappings = []mapping{
	{ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{ErrJobPostingNotFound, http.StatusNotFound, "JOB_POSTING_NOT_FOUND"},
	{ErrRecruiterApplicationNotFound, http.StatusNotFound, "RECRUITER_APPLICATION_NOT_FOUND"},
	{ErrRoleNotFound, http.StatusNotFound, "ROLE_NOT_FOUND"},
	{ErrNotFound, http.StatusNotFound, "NOT_FOUND"},

	{ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
	{ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{ErrEmailNotConfirmed, http.StatusUnauthorized, "EMAIL_NOT_CONFIRMED"},
	{ErrForbidden, http.StatusForbidden, "FORBIDDEN"},

	{ErrIncorrectPassword, http.StatusBadRequest, "INCORRECT_PASSWORD"},
	{ErrInvalidToken, http.StatusBadRequest, "INVALID_TOKEN"},
	{ErrValidation, http.StatusBadRequest, "VALIDATION_FAILED"},
	{ErrInvalidFile, http.StatusBadRequest, "INVALID_FILE"},
	{ErrEmailTaken, http.StatusBadRequest, "EMAIL_TAKEN"},
	{ErrUserNameTaken, http.StatusBadRequest, "USERNAME_TAKEN"},
	{ErrLastAdmin, http.StatusBadRequest, "LAST_ADMIN"},
	{ErrNotInRole, http.StatusBadRequest, "NOT_IN_ROLE"},
	{ErrRoleInUse, http.StatusBadRequest, "ROLE_IN_USE"},
	{ErrPendingRecruiterApplication, http.StatusBadRequest, "PENDING_APPLICATION_EXISTS"},
	{ErrAlreadyRecruiter, http.StatusBadRequest, "ALREADY_RECRUITER"},
	{ErrInvalidTransition, http.StatusBadRequest, "INVALID_TRANSITION"},
	{ErrDuplicateApplication, http.StatusBadRequest, "DUPLICATE_APPLICATION"},
	{ErrPostingClosed, http.StatusBadRequest, "POSTING_CLOSED"},
	{ErrOwnPosting, http.StatusBadRequest, "OWN_POSTING"},
	{ErrNotPostingApplication, http.StatusBadRequest, "NOT_POSTING_APPLICATION"},
}

// MapErrorToHTTP maps domain errors to HTTP errors. Client-facing errors keep their
// full message (which may carry detail added with %w); anything else becomes a
// generic internal error.
func MapErrorToHTTP(err error) *HTTPError {
	for _, m := range mappings {
		if errors.Is(err, m.target) {
			msg := err.Error()
			if m.status == http.StatusForbidden || m.status == http.StatusUnauthorized {
				msg = m.target.Error()
			}
			return NewHTTPError(m.status, msg, m.code)
		}
	}
	return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
}

// IsClientError reports whether err maps to a 4xx response.
func IsClientError(err error) bool {
	return MapErrorToHTTP(err).StatusCode < http.StatusInternalServerError
}
