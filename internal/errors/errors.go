package errors

import (
	"errors"
	"net/http"

	"gorm.io/gorm"
)

var (
	// ErrStudentNotFound is returned when a student does not exist or was deleted.
	ErrStudentNotFound = errors.New("student not found")
	// ErrEnvironmentNotFound is returned when an environment does not exist or was deleted.
	ErrEnvironmentNotFound = errors.New("environment not found")
	// ErrEnvironmentInactive is returned when checking in to a disabled environment.
	ErrEnvironmentInactive = errors.New("environment is not active")
	// ErrActiveSessionExists is returned on check-in while the student holds an open session anywhere.
	ErrActiveSessionExists = errors.New("student already has an active check-in in another environment")
	// ErrNoActiveSession is returned on check-out without an open session.
	ErrNoActiveSession = errors.New("there is no active check-in to check out from")
	// ErrEnvironmentMismatch is returned when check-out targets another environment than the open session.
	ErrEnvironmentMismatch = errors.New("check-out must happen in the same environment as the check-in")
	// ErrInvalidAction is returned for an unknown ledger action.
	ErrInvalidAction = errors.New("action must be check_in or check_out")
	// ErrStudentConflict is returned when email or registration belongs to another active user.
	ErrStudentConflict = errors.New("email or registration already belongs to an active user")
	// ErrEnvironmentConflict is returned when the name belongs to another active environment.
	ErrEnvironmentConflict = errors.New("an active environment with this name already exists")
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountInactive is returned when a disabled user tries to log in.
	ErrAccountInactive = errors.New("account is not active")
	// ErrInvalidRefreshToken is returned when refresh token is invalid or expired.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	// ErrForbidden is returned when the caller may not act on the target.
	ErrForbidden = errors.New("insufficient permissions")
)

// ErrorResponse is the failure envelope returned by every endpoint.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// DataResponse is the success envelope returned by every endpoint.
type DataResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Success: false,
		Message: e.Message,
	}
}

// statusBySentinel lists the domain errors whose own text is safe to show
// to clients, in match order.
var statusBySentinel = []struct {
	err    error
	status int
}{
	{ErrStudentNotFound, http.StatusNotFound},
	{ErrEnvironmentNotFound, http.StatusNotFound},
	{ErrActiveSessionExists, http.StatusBadRequest},
	{ErrNoActiveSession, http.StatusBadRequest},
	{ErrEnvironmentMismatch, http.StatusBadRequest},
	{ErrEnvironmentInactive, http.StatusBadRequest},
	{ErrInvalidAction, http.StatusBadRequest},
	{ErrStudentConflict, http.StatusConflict},
	{ErrEnvironmentConflict, http.StatusConflict},
	{ErrInvalidCredentials, http.StatusUnauthorized},
	{ErrAccountInactive, http.StatusUnauthorized},
	{ErrInvalidRefreshToken, http.StatusUnauthorized},
	{ErrForbidden, http.StatusForbidden},
}

// MapErrorToHTTP maps domain errors to HTTP errors. Wrapped errors are
// matched with errors.Is and reported with the sentinel's message, so
// wrapping context never reaches the client.
func MapErrorToHTTP(err error) *HTTPError {
	for _, s := range statusBySentinel {
		if errors.Is(err, s.err) {
			return NewHTTPError(s.status, s.err.Error())
		}
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NewHTTPError(http.StatusNotFound, "record not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return NewHTTPError(http.StatusConflict, "duplicate record, check that the data does not already exist")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
