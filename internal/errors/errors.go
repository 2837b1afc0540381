package errors

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shuweic/mp3/internal/dto"
	"github.com/shuweic/mp3/internal/query"
	"github.com/shuweic/mp3/internal/services"
	"github.com/shuweic/mp3/internal/store"
)

// APIError is an error with the status and envelope it is rendered as.
type APIError struct {
	Status  int
	Message string
	Data    any
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

func NewAPIError(status int, message string) *APIError {
	return &APIError{Status: status, Message: message}
}

// Validation is a 400 for a bad field or query parameter.
func Validation(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, message)
}

// NotFound is a 404 for an id that resolves to no document.
func NotFound(message string) *APIError {
	return NewAPIError(http.StatusNotFound, message)
}

// BadReference is a 400 for a reference to a missing document.
func BadReference(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, message)
}

// Conflict is a 409 for a unique constraint violation.
func Conflict(message string) *APIError {
	return NewAPIError(http.StatusConflict, message)
}

var (
	ErrInvalidID     = NewAPIError(http.StatusBadRequest, "Invalid ID format")
	ErrNotFound      = NewAPIError(http.StatusNotFound, "Not Found")
	ErrInvalidBody   = NewAPIError(http.StatusBadRequest, "Invalid request body")
	ErrInvalidQuery  = NewAPIError(http.StatusBadRequest, "Invalid query parameter")
	ErrInternalError = NewAPIError(http.StatusInternalServerError, "Internal Server Error")
	ErrUnavailable   = NewAPIError(http.StatusServiceUnavailable, "Service Unavailable")
)

// Resolve maps any error returned by the services to its response. Errors
// with no mapping become ErrInternalError.
func Resolve(err error) *APIError {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}

	var verr *dto.ValidationError
	if stderrors.As(err, &verr) {
		return Validation(verr.Message)
	}

	var qerr *query.Error
	if stderrors.As(err, &qerr) {
		return Validation(qerr.Message)
	}

	switch {
	case stderrors.Is(err, services.ErrUserNotFound):
		return NotFound("User not found")
	case stderrors.Is(err, services.ErrTaskNotFound):
		return NotFound("Task not found")
	case stderrors.Is(err, services.ErrAssignedUserNotFound):
		return BadReference("assignedUser not found")
	case stderrors.Is(err, services.ErrEmailExists), stderrors.Is(err, store.ErrDuplicateKey):
		return Conflict("Email already exists")
	case stderrors.Is(err, store.ErrInvalidID):
		return ErrInvalidID
	case stderrors.Is(err, store.ErrUnsupportedQuery):
		return ErrInvalidQuery
	}

	return ErrInternalError
}

// Internal reports whether e hides an unexpected failure.
func (e *APIError) Internal() bool {
	return e.Status >= http.StatusInternalServerError
}

// RespondWithError writes e as a {message, data} envelope.
func RespondWithError(c *gin.Context, e *APIError) {
	c.JSON(e.Status, dto.Response{Message: e.Message, Data: e.Data})
}
