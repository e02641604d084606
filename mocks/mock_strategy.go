package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docschema/internal/domain"
)

// MockStrategy is a mock implementation of port.Strategy.
type MockStrategy struct {
	mock.Mock
}

func (m *MockStrategy) Method() domain.ExtractionMethod {
	args := m.Called()
	return args.Get(0).(domain.ExtractionMethod)
}

func (m *MockStrategy) Extract(ctx context.Context, doc domain.Document) (*domain.ExtractionResult, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionResult), args.Error(1)
}
