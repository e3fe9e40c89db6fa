package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/janovincze/icecat/internal/api/models"
	"github.com/janovincze/icecat/internal/api/services"
)

// CredentialHandler handles storage credential registration.
type CredentialHandler struct {
	service *services.CredentialService
}

// NewCredentialHandler creates a new CredentialHandler.
func NewCredentialHandler(service *services.CredentialService) *CredentialHandler {
	return &CredentialHandler{service: service}
}

// Upsert registers a credential for a warehouse prefix. An existing
// credential conflicts unless overwrite is set.
// POST /v1/:prefix/credentials
func (h *CredentialHandler) Upsert(c *gin.Context) {
	var req models.CredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		models.RespondWithError(c, models.NewBadRequestError("invalid request body: "+err.Error()))
		return
	}

	id, created, err := h.service.Upsert(c.Request.Context(), &req)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	c.JSON(status, models.CreateCredentialResponse{ID: id})
}
