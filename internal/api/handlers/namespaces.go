package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/janovincze/icecat/internal/api/models"
	"github.com/janovincze/icecat/internal/api/services"
)

// NamespaceHandler handles namespace-related HTTP requests.
type NamespaceHandler struct {
	service *services.NamespaceService
}

// NewNamespaceHandler creates a new NamespaceHandler.
func NewNamespaceHandler(service *services.NamespaceService) *NamespaceHandler {
	return &NamespaceHandler{service: service}
}

// parsePageSize reads the page_size query parameter; zero means unpaged.
func parsePageSize(c *gin.Context) (int, bool) {
	raw := c.Query("page_size")
	if raw == "" {
		return 0, true
	}
	size, err := strconv.Atoi(raw)
	if err != nil || size < 1 {
		models.RespondWithError(c, models.NewBadRequestError("invalid page_size: "+raw))
		return 0, false
	}
	return size, true
}

// List lists namespaces, optionally underneath a parent namespace.
// GET /v1/:prefix/namespaces
func (h *NamespaceHandler) List(c *gin.Context) {
	pageSize, ok := parsePageSize(c)
	if !ok {
		return
	}

	var parent []string
	if raw := c.Query("parent"); raw != "" {
		parent = services.ParseNamespace(raw)
	}

	resp, err := h.service.List(c.Request.Context(), parent, c.Query("page_token"), pageSize)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Create creates a namespace.
// POST /v1/:prefix/namespaces
func (h *NamespaceHandler) Create(c *gin.Context) {
	var req models.CreateNamespaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		models.RespondWithError(c, models.NewBadRequestError("invalid request body: "+err.Error()))
		return
	}

	resp, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get loads the metadata properties for a namespace.
// GET /v1/:prefix/namespaces/:namespace
func (h *NamespaceHandler) Get(c *gin.Context) {
	levels := services.ParseNamespace(c.Param("namespace"))

	resp, err := h.service.Get(c.Request.Context(), levels)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Head checks whether a namespace exists.
// HEAD /v1/:prefix/namespaces/:namespace
func (h *NamespaceHandler) Head(c *gin.Context) {
	levels := services.ParseNamespace(c.Param("namespace"))

	exists, err := h.service.Exists(c.Request.Context(), levels)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	if !exists {
		c.Status(http.StatusNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete drops an empty namespace.
// DELETE /v1/:prefix/namespaces/:namespace
func (h *NamespaceHandler) Delete(c *gin.Context) {
	levels := services.ParseNamespace(c.Param("namespace"))

	if err := h.service.Drop(c.Request.Context(), levels); err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateProperties sets or removes properties on a namespace.
// POST /v1/:prefix/namespaces/:namespace/properties
func (h *NamespaceHandler) UpdateProperties(c *gin.Context) {
	levels := services.ParseNamespace(c.Param("namespace"))

	var req models.UpdateNamespacePropertiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		models.RespondWithError(c, models.NewBadRequestError("invalid request body: "+err.Error()))
		return
	}

	resp, err := h.service.UpdateProperties(c.Request.Context(), levels, &req)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
