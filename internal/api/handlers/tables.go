package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/janovincze/icecat/internal/api/models"
	"github.com/janovincze/icecat/internal/api/services"
)

// TableHandler handles table-related HTTP requests.
type TableHandler struct {
	tables  *services.TableService
	commits *services.CommitService
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(tables *services.TableService, commits *services.CommitService) *TableHandler {
	return &TableHandler{tables: tables, commits: commits}
}

// List lists table identifiers underneath a namespace.
// GET /v1/:prefix/namespaces/:namespace/tables
func (h *TableHandler) List(c *gin.Context) {
	pageSize, ok := parsePageSize(c)
	if !ok {
		return
	}
	levels := services.ParseNamespace(c.Param("namespace"))

	resp, err := h.tables.List(c.Request.Context(), levels, c.Query("page_token"), pageSize)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Create creates a table in a namespace.
// POST /v1/:prefix/namespaces/:namespace/tables
func (h *TableHandler) Create(c *gin.Context) {
	levels := services.ParseNamespace(c.Param("namespace"))

	var req models.CreateTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		models.RespondWithError(c, models.NewBadRequestError("invalid request body: "+err.Error()))
		return
	}

	result, etag, err := h.tables.Create(c.Request.Context(), levels, &req)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	c.Header("ETag", etag)
	c.JSON(http.StatusOK, result)
}

// Load loads a table's metadata document, honoring If-None-Match.
// GET /v1/:prefix/namespaces/:namespace/tables/:table
func (h *TableHandler) Load(c *gin.Context) {
	levels := services.ParseNamespace(c.Param("namespace"))
	table := c.Param("table")

	snapshots := c.Query("snapshots")
	if snapshots != "" && snapshots != services.SnapshotsAll && snapshots != services.SnapshotsRefs {
		models.RespondWithError(c, models.NewBadRequestError("invalid snapshots parameter: "+snapshots))
		return
	}

	result, err := h.tables.Load(c.Request.Context(), levels, table, snapshots, c.GetHeader("If-None-Match"))
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	if result.NotModified && result.Result == nil {
		// Nothing cached to augment with fresh credentials.
		c.Status(http.StatusNotModified)
		return
	}

	c.Header("ETag", result.ETag)
	c.JSON(http.StatusOK, result.Result)
}

// Head checks whether a table exists.
// HEAD /v1/:prefix/namespaces/:namespace/tables/:table
func (h *TableHandler) Head(c *gin.Context) {
	levels := services.ParseNamespace(c.Param("namespace"))

	exists, err := h.tables.Exists(c.Request.Context(), levels, c.Param("table"))
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

// Delete drops a table.
// DELETE /v1/:prefix/namespaces/:namespace/tables/:table
func (h *TableHandler) Delete(c *gin.Context) {
	levels := services.ParseNamespace(c.Param("namespace"))
	purge := c.Query("purge_requested") == "true" || c.Query("purgeRequested") == "true"

	if err := h.tables.Drop(c.Request.Context(), levels, c.Param("table"), purge); err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// LoadCredentials returns the vended credentials for a table.
// GET /v1/:prefix/namespaces/:namespace/tables/:table/credentials
func (h *TableHandler) LoadCredentials(c *gin.Context) {
	levels := services.ParseNamespace(c.Param("namespace"))

	resp, err := h.tables.LoadCredentials(c.Request.Context(), levels, c.Param("table"))
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Rename renames a table, possibly across namespaces.
// POST /v1/:prefix/tables/rename
func (h *TableHandler) Rename(c *gin.Context) {
	var req models.RenameTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		models.RespondWithError(c, models.NewBadRequestError("invalid request body: "+err.Error()))
		return
	}

	if err := h.tables.Rename(c.Request.Context(), &req); err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ReportMetrics ingests a scan or commit metrics report for a table.
// POST /v1/:prefix/namespaces/:namespace/tables/:table/metrics
func (h *TableHandler) ReportMetrics(c *gin.Context) {
	levels := services.ParseNamespace(c.Param("namespace"))

	var req models.ReportMetricsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		models.RespondWithError(c, models.NewBadRequestError("invalid request body: "+err.Error()))
		return
	}

	if err := h.tables.ReportMetrics(c.Request.Context(), levels, c.Param("table"), &req); err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Update applies a commit (requirements + updates) to a table.
// POST /v1/:prefix/namespaces/:namespace/tables/:table
func (h *TableHandler) Update(c *gin.Context) {
	levels := services.ParseNamespace(c.Param("namespace"))

	var req models.CommitTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		models.RespondWithError(c, models.NewBadRequestError("invalid request body: "+err.Error()))
		return
	}

	resp, err := h.commits.UpdateTable(c.Request.Context(), levels, c.Param("table"), &req)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CommitTransaction applies multiple table commits atomically.
// POST /v1/:prefix/transactions/commit
func (h *TableHandler) CommitTransaction(c *gin.Context) {
	var req models.CommitTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		models.RespondWithError(c, models.NewBadRequestError("invalid request body: "+err.Error()))
		return
	}

	if err := h.commits.CommitTransaction(c.Request.Context(), &req); err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
