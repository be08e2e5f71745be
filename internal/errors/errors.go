// Package errors defines the structured error type shared across playerd and
// the constructors for the service's error taxonomy: validation (bad input),
// not-found (unknown handle), playback (fatal native failure, scoped to one
// session), and unimplemented (an engine lacking a capability).
package errors

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/playerd/internal/logger"
)

// Taxonomy codes carried on PlayerError.Code.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodePlayback      = "PLAYBACK_ERROR"
	CodeUnimplemented = "UNIMPLEMENTED"
	CodeInternal      = "INTERNAL_ERROR"
	CodeDatabase      = "DATABASE_ERROR"
)

// ErrUnimplemented is the sentinel wrapped by every unimplemented-operation
// error, so callers can branch on capability absence with errors.Is.
var ErrUnimplemented = errors.New("operation not implemented by this engine")

// PlayerError is a structured error with HTTP context.
type PlayerError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Context    map[string]interface{} `json:"context,omitempty"`
	Cause      error                  `json:"-"`
	HTTPStatus int                    `json:"-"`
}

func (e *PlayerError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *PlayerError) Unwrap() error {
	return e.Cause
}

// ToGinResponse sends the error as a standardized JSON response.
func (e *PlayerError) ToGinResponse(c *gin.Context) {
	statusCode := e.HTTPStatus
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}

	response := gin.H{
		"error": e.Message,
		"code":  e.Code,
	}
	if len(e.Context) > 0 {
		response["details"] = e.Context
	}

	logger.Error("HTTP error response", []logger.Field{
		logger.Int("status", statusCode),
		logger.String("code", e.Code),
		logger.String("message", e.Message),
		logger.String("path", c.Request.URL.Path),
		logger.String("method", c.Request.Method),
	})

	c.JSON(statusCode, response)
}

// Constructors

func NewValidationError(message string, field string) *PlayerError {
	return &PlayerError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Context:    map[string]interface{}{"field": field},
	}
}

func NewNotFoundError(resource string, id interface{}) *PlayerError {
	return &PlayerError{
		Code:       CodeNotFound,
		Message:    resource + " not found",
		HTTPStatus: http.StatusNotFound,
		Context:    map[string]interface{}{"resource": resource, "id": id},
	}
}

// NewPlaybackError wraps a fatal failure reported by a playback engine. It
// terminates the affected session only; other sessions are unaffected.
func NewPlaybackError(message string, cause error) *PlayerError {
	return &PlayerError{
		Code:       CodePlayback,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewUnimplementedError reports an operation the selected engine does not
// support. Wraps ErrUnimplemented.
func NewUnimplementedError(engineID string, operation string) *PlayerError {
	return &PlayerError{
		Code:       CodeUnimplemented,
		Message:    "operation not supported by engine",
		HTTPStatus: http.StatusNotImplemented,
		Context:    map[string]interface{}{"engine": engineID, "operation": operation},
		Cause:      ErrUnimplemented,
	}
}

func NewInternalError(message string, cause error) *PlayerError {
	return &PlayerError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewDatabaseError(operation string, cause error) *PlayerError {
	return &PlayerError{
		Code:       CodeDatabase,
		Message:    "Database operation failed",
		HTTPStatus: http.StatusInternalServerError,
		Context:    map[string]interface{}{"operation": operation},
		Cause:      cause,
	}
}

// Classification helpers

// IsNotFound reports whether err carries the not-found code.
func IsNotFound(err error) bool {
	var pe *PlayerError
	return errors.As(err, &pe) && pe.Code == CodeNotFound
}

// IsUnimplemented reports whether err stems from a missing engine capability.
func IsUnimplemented(err error) bool {
	return errors.Is(err, ErrUnimplemented)
}

// HTTP helpers

// HandleValidationError sends a validation error response.
func HandleValidationError(c *gin.Context, message string, field string) {
	NewValidationError(message, field).ToGinResponse(c)
}

// HandleNotFound sends a not found error response.
func HandleNotFound(c *gin.Context, resource string, id interface{}) {
	NewNotFoundError(resource, id).ToGinResponse(c)
}

// HandleInternalError sends an internal server error response.
func HandleInternalError(c *gin.Context, message string, err error) {
	NewInternalError(message, err).ToGinResponse(c)
}

// HandleError maps any error to its response, falling back to internal.
func HandleError(c *gin.Context, err error) {
	var pe *PlayerError
	if errors.As(err, &pe) {
		pe.ToGinResponse(c)
		return
	}
	NewInternalError("unexpected error", err).ToGinResponse(c)
}
