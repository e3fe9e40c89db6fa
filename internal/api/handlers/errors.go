// Package handlers provides HTTP handlers for the Iceberg REST catalog
// endpoints.
package handlers

import (
	"errors"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/janovincze/icecat/internal/api/models"
	"github.com/janovincze/icecat/internal/api/services"
)

// respondWithServiceError maps service-layer errors onto the Iceberg error
// envelope.
func respondWithServiceError(c *gin.Context, err error) {
	var (
		validationErr   *services.ValidationError
		notFoundErr     *services.NotFoundError
		conflictErr     *services.ConflictError
		notEmptyErr     *services.NotEmptyError
		unprocessable   *services.UnprocessableError
		preconditionErr *services.PreconditionFailedError
	)

	switch {
	case errors.As(err, &validationErr):
		models.RespondWithError(c, models.NewBadRequestError(validationErr.Error()))

	case errors.As(err, &notFoundErr):
		models.RespondWithError(c, models.NewNotFoundError(notFoundErr.Resource, notFoundErr.Error()))

	case errors.As(err, &conflictErr):
		models.RespondWithError(c, models.NewConflictError(conflictErr.Error()))

	case errors.As(err, &notEmptyErr):
		models.RespondWithError(c, models.NewErrorResponse(
			http.StatusConflict, models.ErrorTypeNamespaceNotEmpty, notEmptyErr.Error()))

	case errors.As(err, &unprocessable):
		models.RespondWithError(c, models.NewErrorResponse(
			http.StatusUnprocessableEntity, models.ErrorTypeUnprocessableEntity, unprocessable.Error()))

	case errors.As(err, &preconditionErr):
		models.RespondWithError(c, models.NewErrorResponse(
			http.StatusConflict, models.ErrorTypeCommitFailed, preconditionErr.Error()))

	default:
		resp := models.NewInternalError("Internal server error: " + err.Error())
		if gin.Mode() != gin.ReleaseMode {
			resp.Error.Stack = strings.Split(string(debug.Stack()), "\n")
		}
		models.RespondWithError(c, resp)
	}
}
