package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docschema/internal/domain"
)

// MockOpticalRecognizer is a mock implementation of port.OpticalRecognizer.
type MockOpticalRecognizer struct {
	mock.Mock
}

func (m *MockOpticalRecognizer) Available() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockOpticalRecognizer) RasterizePage(ctx context.Context, doc domain.Document, page, dpi int) ([]byte, error) {
	args := m.Called(ctx, doc, page, dpi)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockOpticalRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	args := m.Called(ctx, image)
	return args.String(0), args.Error(1)
}
