package handler

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docschema/internal/config"
	"docschema/internal/document"
	"docschema/internal/domain"
	"docschema/internal/middleware"
	"docschema/internal/service"
)

// multipartOverhead is the slack allowed on top of the file size limit for
// form boundaries and the other form fields.
const multipartOverhead = 1 << 20

// DocumentHandler handles document upload and ingestion.
type DocumentHandler struct {
	ingestService service.IngestService
	cfg           config.UploadConfig
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(ingestService service.IngestService, cfg config.UploadConfig) *DocumentHandler {
	return &DocumentHandler{ingestService: ingestService, cfg: cfg}
}

// Upload handles POST /api/v1/documents
// The multipart form carries the document in "file" and an optional
// "table_name". The document is saved to a temporary file, processed and
// removed.
func (h *DocumentHandler) Upload(c *gin.Context) {
	limit := h.cfg.MaxFileSize() + multipartOverhead
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	header, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || c.Request.ContentLength > limit {
			HandleError(c, domain.ErrFileTooLarge)
			return
		}
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}

	name := filepath.Base(header.Filename)
	format, err := h.format(name)
	if err != nil {
		HandleError(c, err)
		return
	}
	if header.Size > h.cfg.MaxFileSize() {
		HandleError(c, domain.ErrFileTooLarge)
		return
	}

	dir, err := os.MkdirTemp(h.cfg.TempDir, "docschema-upload-*")
	if err != nil {
		HandleError(c, fmt.Errorf("handler.DocumentHandler.Upload: %w", err))
		return
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			middleware.GetLogger(c).Warn("handler.DocumentHandler.Upload: removing temp dir",
				zap.String("dir", dir), zap.Error(rmErr))
		}
	}()

	path := filepath.Join(dir, name)
	if err := c.SaveUploadedFile(header, path); err != nil {
		HandleError(c, fmt.Errorf("handler.DocumentHandler.Upload: %w", err))
		return
	}

	doc := domain.Document{Name: name, Path: path, Format: format, Size: header.Size}
	result, err := h.ingestService.ProcessDocument(c.Request.Context(), doc, c.PostForm("table_name"))
	if err != nil {
		HandleError(c, err)
		return
	}
	// The run is recorded either way; an empty extraction still carries the
	// warnings explaining it.
	if result.Extracted == 0 {
		status, code, msg := MapDomainError(domain.ErrNoRecords)
		c.JSON(status, APIResponse{
			Success: false,
			Data:    result,
			Error:   &APIError{Code: code, Message: msg},
		})
		return
	}

	RespondCreated(c, result)
}

// format resolves the document format from name, restricted to the
// configured extensions.
func (h *DocumentHandler) format(name string) (domain.DocumentFormat, error) {
	format, err := document.FormatFromName(name)
	if err != nil {
		return "", err
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	for _, allowed := range h.cfg.AllowedExtensions {
		if strings.EqualFold(strings.TrimPrefix(allowed, "."), ext) {
			return format, nil
		}
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFileType, ext)
}
