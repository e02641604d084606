package app_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docschema/internal/app"
	"docschema/internal/config"
	"docschema/internal/domain"
	"docschema/mocks"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		DB:     config.DBConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "app.db")},
		Upload: config.UploadConfig{MaxFileSizeMB: 10, DefaultTable: "pdf_data"},
		OCR: config.OCRConfig{
			Enabled: false, Engine: "auto", DPI: 300,
			PageTimeout: time.Minute, Workers: 2, Language: "eng",
		},
	}
}

func TestStrategies_Order(t *testing.T) {
	strategies := app.Strategies(testConfig(t), new(mocks.MockPageExtractor), zap.NewNop())

	require.Len(t, strategies, 3)
	assert.Equal(t, domain.MethodTable, strategies[0].Method())
	assert.Equal(t, domain.MethodKeyValueText, strategies[1].Method())
	assert.Equal(t, domain.MethodOCR, strategies[2].Method())
}

func TestNew_WiresServices(t *testing.T) {
	ctx := context.Background()
	a, err := app.New(ctx, testConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Store.Ping(ctx))

	row, err := a.Tables.AddRow(ctx, "notes", map[string]string{"Title": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", row["title"])

	tables, err := a.Tables.ListTables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "notes", tables[0].Name)
	assert.Equal(t, int64(1), tables[0].RowCount)
}
