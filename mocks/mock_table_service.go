package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"docschema/internal/domain"
)

// MockTableService is a mock implementation of service.TableService.
type MockTableService struct {
	mock.Mock
}

func (m *MockTableService) ListTables(ctx context.Context) ([]domain.TableInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TableInfo), args.Error(1)
}

func (m *MockTableService) GetSchema(ctx context.Context, table string) (*domain.TableSchema, error) {
	args := m.Called(ctx, table)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TableSchema), args.Error(1)
}

func (m *MockTableService) ListRows(ctx context.Context, table string, offset, limit int) ([]domain.Row, int64, error) {
	args := m.Called(ctx, table, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]domain.Row), args.Get(1).(int64), args.Error(2)
}

func (m *MockTableService) GetRow(ctx context.Context, table string, id int64) (domain.Row, error) {
	args := m.Called(ctx, table, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Row), args.Error(1)
}

func (m *MockTableService) AddRow(ctx context.Context, table string, fields map[string]string) (domain.Row, error) {
	args := m.Called(ctx, table, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Row), args.Error(1)
}

func (m *MockTableService) UpdateRow(ctx context.Context, table string, id int64, fields map[string]string) (domain.Row, error) {
	args := m.Called(ctx, table, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Row), args.Error(1)
}

func (m *MockTableService) DeleteRow(ctx context.Context, table string, id int64) error {
	args := m.Called(ctx, table, id)
	return args.Error(0)
}

func (m *MockTableService) DropTable(ctx context.Context, table string) error {
	args := m.Called(ctx, table)
	return args.Error(0)
}

func (m *MockTableService) Analyze(ctx context.Context, table string) (*domain.TableAnalysis, error) {
	args := m.Called(ctx, table)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TableAnalysis), args.Error(1)
}

func (m *MockTableService) ListRuns(ctx context.Context, table string, offset, limit int) ([]domain.IngestRun, int, error) {
	args := m.Called(ctx, table, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.IngestRun), args.Int(1), args.Error(2)
}

func (m *MockTableService) GetRun(ctx context.Context, id uuid.UUID) (*domain.IngestRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestRun), args.Error(1)
}
