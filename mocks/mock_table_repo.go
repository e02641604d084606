package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docschema/internal/domain"
)

// MockTableRepo is a mock implementation of port.TableRepository.
type MockTableRepo struct {
	mock.Mock
}

func (m *MockTableRepo) ListTables(ctx context.Context) ([]domain.TableInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TableInfo), args.Error(1)
}

func (m *MockTableRepo) CountRows(ctx context.Context, table string) (int64, error) {
	args := m.Called(ctx, table)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTableRepo) ListRows(ctx context.Context, table string, offset, limit int) ([]domain.Row, error) {
	args := m.Called(ctx, table, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Row), args.Error(1)
}

func (m *MockTableRepo) GetRow(ctx context.Context, table string, id int64) (domain.Row, error) {
	args := m.Called(ctx, table, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Row), args.Error(1)
}

func (m *MockTableRepo) UpdateRow(ctx context.Context, table string, id int64, values map[string]any) error {
	args := m.Called(ctx, table, id, values)
	return args.Error(0)
}

func (m *MockTableRepo) DeleteRow(ctx context.Context, table string, id int64) error {
	args := m.Called(ctx, table, id)
	return args.Error(0)
}

func (m *MockTableRepo) DropTable(ctx context.Context, table string) error {
	args := m.Called(ctx, table)
	return args.Error(0)
}

func (m *MockTableRepo) NumericStats(ctx context.Context, table string, columns []string) (map[string]domain.ColumnStats, error) {
	args := m.Called(ctx, table, columns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.ColumnStats), args.Error(1)
}

func (m *MockTableRepo) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
