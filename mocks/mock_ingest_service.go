package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docschema/internal/domain"
	"docschema/internal/service"
)

// MockIngestService is a mock implementation of service.IngestService.
type MockIngestService struct {
	mock.Mock
}

func (m *MockIngestService) ProcessDocument(ctx context.Context, doc domain.Document, table string) (*service.ProcessResult, error) {
	args := m.Called(ctx, doc, table)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ProcessResult), args.Error(1)
}
