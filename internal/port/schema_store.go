package port

import (
	"context"

	"github.com/google/uuid"

	"docschema/internal/domain"
)

// SchemaTx is the view of the catalog inside a schema reconciliation
// transaction. All reads observe the writes of earlier calls.
type SchemaTx interface {
	TableExists(ctx context.Context, table string) (bool, error)
	Columns(ctx context.Context, table string) ([]domain.Column, error)
	Labels(ctx context.Context, table string) ([]domain.Label, error)
	CreateTable(ctx context.Context, table string, columns []domain.Column) error
	AddColumn(ctx context.Context, table string, column domain.Column) error
	AlterColumnType(ctx context.Context, table string, column domain.Column) error
	SaveLabel(ctx context.Context, table string, label domain.Label) error
}

// SchemaStore persists dynamic tables. ReconcileTx runs fn while holding
// the single-writer lock for table and commits when fn returns nil. A lost
// race surfaces as *domain.SchemaConflictError.
type SchemaStore interface {
	ReconcileTx(ctx context.Context, table string, fn func(tx SchemaTx) error) error
	Schema(ctx context.Context, table string) (*domain.TableSchema, error)
	InsertRows(ctx context.Context, table string, columns []string, rows [][]any) ([]int64, error)
}

// TableRepository exposes read and maintenance operations on dynamic tables.
type TableRepository interface {
	ListTables(ctx context.Context) ([]domain.TableInfo, error)
	CountRows(ctx context.Context, table string) (int64, error)
	ListRows(ctx context.Context, table string, offset, limit int) ([]domain.Row, error)
	GetRow(ctx context.Context, table string, id int64) (domain.Row, error)
	UpdateRow(ctx context.Context, table string, id int64, values map[string]any) error
	DeleteRow(ctx context.Context, table string, id int64) error
	DropTable(ctx context.Context, table string) error
	NumericStats(ctx context.Context, table string, columns []string) (map[string]domain.ColumnStats, error)
	Ping(ctx context.Context) error
}

// RunRepository persists the ingestion run log.
type RunRepository interface {
	Create(ctx context.Context, run *domain.IngestRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.IngestRun, error)
	List(ctx context.Context, table string, offset, limit int) ([]domain.IngestRun, int, error)
}
