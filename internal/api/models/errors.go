// Package models provides API request and response types for the Iceberg
// REST catalog surface.
package models

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// Iceberg-style error type tags.
const (
	ErrorTypeNoSuchNamespace     = "NoSuchNamespaceException"
	ErrorTypeNoSuchTable         = "NoSuchTableException"
	ErrorTypeAlreadyExists       = "AlreadyExistsException"
	ErrorTypeNamespaceNotEmpty   = "NamespaceNotEmptyException"
	ErrorTypeUnprocessableEntity = "UnprocessableEntityException"
	ErrorTypeBadRequest          = "BadRequestException"
	ErrorTypeCommitFailed        = "CommitFailedException"
	ErrorTypeInternal            = "InternalServerError"
	ErrorTypeRateLimited         = "TooManyRequestsException"
)

// ErrorModel is the JSON error payload returned with further details on the
// error.
type ErrorModel struct {
	// Message is the human-readable error message.
	Message string `json:"message"`

	// Type is the internal type definition of the error, e.g.
	// NoSuchNamespaceException.
	Type string `json:"type"`

	// Code is the HTTP response code.
	Code int `json:"code"`

	// Stack is the optional stack trace, emitted in development mode only.
	Stack []string `json:"stack,omitempty"`
}

// IcebergErrorResponse is the JSON wrapper for all non-2xx responses.
type IcebergErrorResponse struct {
	Error ErrorModel `json:"error"`
}

// String returns a compact description of the wrapped error.
func (e *IcebergErrorResponse) String() string {
	return fmt.Sprintf("%s: %s", e.Error.Type, e.Error.Message)
}

// NewErrorResponse creates an error response with the given code, type tag,
// and message.
func NewErrorResponse(code int, errorType, message string) *IcebergErrorResponse {
	return &IcebergErrorResponse{
		Error: ErrorModel{
			Message: message,
			Type:    errorType,
			Code:    code,
		},
	}
}

// NewNotFoundError creates a 404 response for a missing resource. The
// resource argument selects the Iceberg exception tag ("namespace" or
// "table").
func NewNotFoundError(resource, message string) *IcebergErrorResponse {
	errorType := ErrorTypeNoSuchTable
	if resource == "namespace" {
		errorType = ErrorTypeNoSuchNamespace
	}
	return NewErrorResponse(404, errorType, message)
}

// NewConflictError creates a 409 already-exists response.
func NewConflictError(message string) *IcebergErrorResponse {
	return NewErrorResponse(409, ErrorTypeAlreadyExists, message)
}

// NewBadRequestError creates a 400 response.
func NewBadRequestError(message string) *IcebergErrorResponse {
	return NewErrorResponse(400, ErrorTypeBadRequest, message)
}

// NewInternalError creates a 500 response.
func NewInternalError(message string) *IcebergErrorResponse {
	return NewErrorResponse(500, ErrorTypeInternal, message)
}

// NewRateLimitedError creates a 429 response.
func NewRateLimitedError() *IcebergErrorResponse {
	return NewErrorResponse(429, ErrorTypeRateLimited, "Rate limit exceeded. Please try again later.")
}

// RespondWithError sends an IcebergErrorResponse with its embedded status
// code.
func RespondWithError(c *gin.Context, err *IcebergErrorResponse) {
	c.JSON(err.Error.Code, err)
}
