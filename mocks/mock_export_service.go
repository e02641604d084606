package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"docschema/internal/export"
)

// MockExportService is a mock implementation of service.ExportService.
type MockExportService struct {
	mock.Mock
}

func (m *MockExportService) Export(ctx context.Context, table string, format export.Format, w io.Writer) error {
	args := m.Called(ctx, table, format, w)
	return args.Error(0)
}
