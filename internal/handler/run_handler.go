package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docschema/internal/service"
)

// RunHandler exposes the ingestion run log.
type RunHandler struct {
	tableService service.TableService
}

// NewRunHandler creates a new RunHandler.
func NewRunHandler(tableService service.TableService) *RunHandler {
	return &RunHandler{tableService: tableService}
}

// List handles GET /api/v1/runs?table=
func (h *RunHandler) List(c *gin.Context) {
	offset, limit := parsePagination(c)

	runs, total, err := h.tableService.ListRuns(c.Request.Context(), c.Query("table"), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, runs, PagMeta{Total: int64(total), Offset: offset, Limit: limit})
}

// GetByID handles GET /api/v1/runs/:id
func (h *RunHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid run ID")
		return
	}
	run, err := h.tableService.GetRun(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, run)
}
