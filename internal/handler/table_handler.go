package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docschema/internal/export"
	"docschema/internal/middleware"
	"docschema/internal/service"
)

// TableHandler handles the dynamic table endpoints.
type TableHandler struct {
	tableService  service.TableService
	exportService service.ExportService
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(tableService service.TableService, exportService service.ExportService) *TableHandler {
	return &TableHandler{tableService: tableService, exportService: exportService}
}

// List handles GET /api/v1/tables
func (h *TableHandler) List(c *gin.Context) {
	tables, err := h.tableService.ListTables(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, tables)
}

// Schema handles GET /api/v1/tables/:table/schema
func (h *TableHandler) Schema(c *gin.Context) {
	ts, err := h.tableService.GetSchema(c.Request.Context(), c.Param("table"))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, ts)
}

// Rows handles GET /api/v1/tables/:table/rows
func (h *TableHandler) Rows(c *gin.Context) {
	offset, limit := parsePagination(c)

	rows, total, err := h.tableService.ListRows(c.Request.Context(), c.Param("table"), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, rows, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetRow handles GET /api/v1/tables/:table/rows/:id
func (h *TableHandler) GetRow(c *gin.Context) {
	id, ok := parseRowID(c)
	if !ok {
		return
	}
	row, err := h.tableService.GetRow(c.Request.Context(), c.Param("table"), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, row)
}

// AddRow handles POST /api/v1/tables/:table/rows
// The body is a flat JSON object; unknown keys add columns.
func (h *TableHandler) AddRow(c *gin.Context) {
	fields, ok := bindFields(c)
	if !ok {
		return
	}
	row, err := h.tableService.AddRow(c.Request.Context(), c.Param("table"), fields)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, row)
}

// UpdateRow handles PUT /api/v1/tables/:table/rows/:id
func (h *TableHandler) UpdateRow(c *gin.Context) {
	id, ok := parseRowID(c)
	if !ok {
		return
	}
	fields, ok := bindFields(c)
	if !ok {
		return
	}
	row, err := h.tableService.UpdateRow(c.Request.Context(), c.Param("table"), id, fields)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, row)
}

// DeleteRow handles DELETE /api/v1/tables/:table/rows/:id
func (h *TableHandler) DeleteRow(c *gin.Context) {
	id, ok := parseRowID(c)
	if !ok {
		return
	}
	if err := h.tableService.DeleteRow(c.Request.Context(), c.Param("table"), id); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "row deleted"})
}

// Drop handles DELETE /api/v1/tables/:table
func (h *TableHandler) Drop(c *gin.Context) {
	if err := h.tableService.DropTable(c.Request.Context(), c.Param("table")); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "table deleted"})
}

// Analysis handles GET /api/v1/tables/:table/analysis
func (h *TableHandler) Analysis(c *gin.Context) {
	analysis, err := h.tableService.Analyze(c.Request.Context(), c.Param("table"))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, analysis)
}

// Export handles GET /api/v1/tables/:table/export?format=xlsx|csv
// The table is resolved before any header is written so a missing table
// still gets a JSON error.
func (h *TableHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		HandleError(c, err)
		return
	}
	ts, err := h.tableService.GetSchema(c.Request.Context(), c.Param("table"))
	if err != nil {
		HandleError(c, err)
		return
	}

	filename := export.BuildFilename(ts.Name, format)
	c.Header("Content-Type", format.ContentType())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Status(http.StatusOK)

	if err := h.exportService.Export(c.Request.Context(), ts.Name, format, c.Writer); err != nil {
		middleware.GetLogger(c).Error("handler.TableHandler.Export: export failed mid-stream",
			zap.String("table", ts.Name), zap.Error(err))
		_ = c.Error(err)
	}
}

// bindFields decodes a flat JSON object into field values. Numbers keep
// their literal text and null becomes an empty value.
func bindFields(c *gin.Context) (map[string]string, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "could not read request body")
		return nil, false
	}
	fields, err := decodeFields(body)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return nil, false
	}
	return fields, true
}

var errNestedValue = errors.New("field values must be strings, numbers, booleans or null")

func decodeFields(body []byte) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("request body must be a JSON object: %w", err)
	}

	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case nil:
			fields[k] = ""
		case string:
			fields[k] = t
		case json.Number:
			fields[k] = t.String()
		case bool:
			fields[k] = strconv.FormatBool(t)
		default:
			return nil, fmt.Errorf("field %q: %w", k, errNestedValue)
		}
	}
	return fields, nil
}
