package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docschema/internal/domain"
)

// MockDocumentValidator is a mock implementation of port.DocumentValidator.
type MockDocumentValidator struct {
	mock.Mock
}

func (m *MockDocumentValidator) Validate(ctx context.Context, doc domain.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}
