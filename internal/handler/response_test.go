package handler_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"docschema/internal/domain"
	"docschema/internal/export"
	"docschema/internal/handler"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: %q", domain.ErrInvalidTableName, "!!"), http.StatusBadRequest, "INVALID_TABLE_NAME"},
		{domain.ErrTableNotFound, http.StatusNotFound, "TABLE_NOT_FOUND"},
		{domain.ErrRowNotFound, http.StatusNotFound, "ROW_NOT_FOUND"},
		{domain.ErrNoRecords, http.StatusUnprocessableEntity, "NO_DATA_EXTRACTED"},
		{domain.NewStageError(domain.StageValidate, "t", domain.ErrUnsupportedDocument), http.StatusUnprocessableEntity, "UNSUPPORTED_DOCUMENT"},
		{domain.NewStageError(domain.StageReconcile, "t", domain.NewSchemaConflictError("t", errors.New("dup"))), http.StatusConflict, "SCHEMA_CONFLICT"},
		{domain.NewStageError(domain.StageRecordRun, "t", errors.New("disk full")), http.StatusInternalServerError, "INGEST_FAILED"},
		{export.ErrUnsupportedFormat, http.StatusBadRequest, "UNSUPPORTED_FORMAT"},
		{domain.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, code, _ := handler.MapDomainError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	for _, tt := range []struct {
		name   string
		err    error
		status int
	}{
		{"ready", nil, http.StatusOK},
		{"unavailable", errors.New("closed"), http.StatusServiceUnavailable},
	} {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewHealthHandler(stubPinger{err: tt.err})
			r := gin.New()
			r.GET("/healthz", h.Liveness)
			r.GET("/readyz", h.Readiness)

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/readyz", http.NoBody)
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)

			w = httptest.NewRecorder()
			req, _ = http.NewRequest(http.MethodGet, "/healthz", http.NoBody)
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}
