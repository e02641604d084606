package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docschema/internal/port"
)

// MockSourceArchive is a mock implementation of port.SourceArchive.
type MockSourceArchive struct {
	mock.Mock
}

func (m *MockSourceArchive) Put(ctx context.Context, obj port.ArchiveObject) (*port.ArchivedObject, error) {
	args := m.Called(ctx, obj)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.ArchivedObject), args.Error(1)
}
