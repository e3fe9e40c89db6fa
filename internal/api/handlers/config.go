package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/janovincze/icecat/internal/api/services"
)

// ConfigHandler serves the catalog configuration endpoint.
type ConfigHandler struct {
	service *services.ConfigService
}

// NewConfigHandler creates a new ConfigHandler.
func NewConfigHandler(service *services.ConfigService) *ConfigHandler {
	return &ConfigHandler{service: service}
}

// Get returns catalog defaults and overrides for the requested warehouse.
// GET /v1/config
func (h *ConfigHandler) Get(c *gin.Context) {
	cfg, err := h.service.Get(c.Request.Context(), c.Query("warehouse"))
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}
