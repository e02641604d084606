package service_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"docschema/internal/domain"
	"docschema/internal/export"
	"docschema/internal/service"
)

func TestExportService_CSVAcrossPages(t *testing.T) {
	store, _ := newTestStore(t)
	engine := service.NewSchemaEngine(store, zap.NewNop())
	ctx := context.Background()

	const n = 205
	records := make([]domain.Record, n)
	for i := range records {
		records[i] = record(domain.MethodTable, "Seq", strconv.Itoa(i+1), "Label", "row "+strconv.Itoa(i+1))
	}
	_, err := engine.Ingest(ctx, "ledger", records)
	require.NoError(t, err)

	svc := service.NewExportService(store, store, zap.NewNop())
	var buf bytes.Buffer
	require.NoError(t, svc.Export(ctx, "Ledger", export.FormatCSV, &buf))

	body := buf.Bytes()
	require.True(t, bytes.HasPrefix(body, export.BOM))
	lines, err := csv.NewReader(bytes.NewReader(body[len(export.BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, lines, n+1)
	assert.Equal(t, []string{"id", "seq", "label"}, lines[0])
	assert.Equal(t, []string{"1", "1", "row 1"}, lines[1])
	assert.Equal(t, []string{"205", "205", "row 205"}, lines[n])
}

func TestExportService_XLSX(t *testing.T) {
	store, _ := newTestStore(t)
	engine := service.NewSchemaEngine(store, zap.NewNop())
	ctx := context.Background()

	_, err := engine.Ingest(ctx, "ledger", []domain.Record{
		record(domain.MethodTable, "Item", "pen", "Price", "1.25"),
	})
	require.NoError(t, err)

	svc := service.NewExportService(store, store, zap.NewNop())
	var buf bytes.Buffer
	require.NoError(t, svc.Export(ctx, "ledger", export.FormatXLSX, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("ledger")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"id", "item", "price"}, {"1", "pen", "1.25"}}, rows)
}

func TestExportService_TableNotFound(t *testing.T) {
	store, _ := newTestStore(t)
	svc := service.NewExportService(store, store, zap.NewNop())

	var buf bytes.Buffer
	err := svc.Export(context.Background(), "missing", export.FormatCSV, &buf)
	assert.ErrorIs(t, err, domain.ErrTableNotFound)
	assert.Zero(t, buf.Len())
}
