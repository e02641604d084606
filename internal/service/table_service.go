package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docschema/internal/domain"
	"docschema/internal/port"
	"docschema/internal/schema"
)

// TableService defines the dynamic table management contract. Table names
// are normalized the same way ingestion normalizes them.
type TableService interface {
	ListTables(ctx context.Context) ([]domain.TableInfo, error)
	GetSchema(ctx context.Context, table string) (*domain.TableSchema, error)
	ListRows(ctx context.Context, table string, offset, limit int) ([]domain.Row, int64, error)
	GetRow(ctx context.Context, table string, id int64) (domain.Row, error)
	AddRow(ctx context.Context, table string, fields map[string]string) (domain.Row, error)
	UpdateRow(ctx context.Context, table string, id int64, fields map[string]string) (domain.Row, error)
	DeleteRow(ctx context.Context, table string, id int64) error
	DropTable(ctx context.Context, table string) error
	Analyze(ctx context.Context, table string) (*domain.TableAnalysis, error)
	ListRuns(ctx context.Context, table string, offset, limit int) ([]domain.IngestRun, int, error)
	GetRun(ctx context.Context, id uuid.UUID) (*domain.IngestRun, error)
}

type tableService struct {
	store   port.SchemaStore
	tables  port.TableRepository
	runRepo port.RunRepository
	engine  *SchemaEngine
	logger  *zap.Logger
}

// NewTableService creates a new TableService.
func NewTableService(
	store port.SchemaStore,
	tables port.TableRepository,
	runRepo port.RunRepository,
	engine *SchemaEngine,
	logger *zap.Logger,
) TableService {
	return &tableService{store: store, tables: tables, runRepo: runRepo, engine: engine, logger: logger}
}

func (s *tableService) ListTables(ctx context.Context) ([]domain.TableInfo, error) {
	return s.tables.ListTables(ctx)
}

// resolve normalizes table and loads its schema.
func (s *tableService) resolve(ctx context.Context, table string) (*domain.TableSchema, error) {
	name, err := schema.NormalizeTableName(table)
	if err != nil {
		return nil, err
	}
	return s.store.Schema(ctx, name)
}

func (s *tableService) GetSchema(ctx context.Context, table string) (*domain.TableSchema, error) {
	return s.resolve(ctx, table)
}

func (s *tableService) ListRows(ctx context.Context, table string, offset, limit int) ([]domain.Row, int64, error) {
	ts, err := s.resolve(ctx, table)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.tables.CountRows(ctx, ts.Name)
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.tables.ListRows(ctx, ts.Name, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (s *tableService) GetRow(ctx context.Context, table string, id int64) (domain.Row, error) {
	ts, err := s.resolve(ctx, table)
	if err != nil {
		return nil, err
	}
	return s.tables.GetRow(ctx, ts.Name, id)
}

// AddRow inserts one row, creating the table or adding columns as needed.
// Keys naming an existing column address it directly; any other key is a
// raw label resolved like an extracted field.
func (s *tableService) AddRow(ctx context.Context, table string, fields map[string]string) (domain.Row, error) {
	if len(fields) == 0 {
		return nil, domain.ErrEmptyRow
	}
	name, err := schema.NormalizeTableName(table)
	if err != nil {
		return nil, err
	}

	ts, row, err := s.prepare(ctx, name, fields)
	if err != nil {
		return nil, err
	}
	vals, rerr := schema.CoerceRow(*ts, row)
	if rerr != nil {
		rerr.Row = 1
		return nil, rerr
	}
	ids, err := s.store.InsertRows(ctx, name, columnNames(ts.Columns), [][]any{vals})
	if err != nil {
		return nil, domain.NewStageError(domain.StageInsert, name, err)
	}

	s.logger.Info("service.TableService.AddRow: row added",
		zap.String("table", name), zap.Int64("id", ids[0]))
	return s.tables.GetRow(ctx, name, ids[0])
}

// UpdateRow sets the given fields of row id. Unknown fields add columns
// through the same reconcile step as ingestion.
func (s *tableService) UpdateRow(ctx context.Context, table string, id int64, fields map[string]string) (domain.Row, error) {
	if len(fields) == 0 {
		return nil, domain.ErrEmptyRow
	}
	current, err := s.resolve(ctx, table)
	if err != nil {
		return nil, err
	}
	if _, err := s.tables.GetRow(ctx, current.Name, id); err != nil {
		return nil, err
	}

	ts, row, err := s.prepare(ctx, current.Name, fields)
	if err != nil {
		return nil, err
	}
	vals, rerr := schema.CoerceRow(*ts, row)
	if rerr != nil {
		rerr.Row = 1
		return nil, rerr
	}

	updates := make(map[string]any, len(row))
	for j, col := range ts.Columns {
		if _, ok := row[col.Name]; ok {
			updates[col.Name] = vals[j]
		}
	}
	if err := s.tables.UpdateRow(ctx, current.Name, id, updates); err != nil {
		return nil, err
	}

	s.logger.Info("service.TableService.UpdateRow: row updated",
		zap.String("table", current.Name), zap.Int64("id", id), zap.Int("fields", len(updates)))
	return s.tables.GetRow(ctx, current.Name, id)
}

// prepare reconciles table with fields and returns the schema the row must
// be coerced against together with the row keyed by column.
func (s *tableService) prepare(ctx context.Context, table string, fields map[string]string) (*domain.TableSchema, map[string]string, error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var rec domain.Record
	for _, k := range keys {
		rec.Fields = append(rec.Fields, domain.Field{Label: k, Value: fields[k]})
	}
	plan, err := s.engine.ReconcileCanonical(ctx, table, []domain.Record{rec})
	if err != nil {
		return nil, nil, err
	}

	ts, err := s.store.Schema(ctx, table)
	if err != nil {
		return nil, nil, fmt.Errorf("service.TableService.prepare: %w", err)
	}
	return ts, plan.Rows[0], nil
}

func (s *tableService) DeleteRow(ctx context.Context, table string, id int64) error {
	ts, err := s.resolve(ctx, table)
	if err != nil {
		return err
	}
	if err := s.tables.DeleteRow(ctx, ts.Name, id); err != nil {
		return err
	}
	s.logger.Info("service.TableService.DeleteRow: row deleted",
		zap.String("table", ts.Name), zap.Int64("id", id))
	return nil
}

func (s *tableService) DropTable(ctx context.Context, table string) error {
	name, err := schema.NormalizeTableName(table)
	if err != nil {
		return err
	}
	if err := s.tables.DropTable(ctx, name); err != nil {
		return err
	}
	s.logger.Info("service.TableService.DropTable: table dropped", zap.String("table", name))
	return nil
}

func (s *tableService) Analyze(ctx context.Context, table string) (*domain.TableAnalysis, error) {
	ts, err := s.resolve(ctx, table)
	if err != nil {
		return nil, err
	}
	total, err := s.tables.CountRows(ctx, ts.Name)
	if err != nil {
		return nil, err
	}

	var numeric []string
	for _, c := range ts.Columns {
		if c.Type == domain.TypeInteger || c.Type == domain.TypeFloat {
			numeric = append(numeric, c.Name)
		}
	}
	stats, err := s.tables.NumericStats(ctx, ts.Name, numeric)
	if err != nil {
		return nil, err
	}

	return &domain.TableAnalysis{
		Table:        ts.Name,
		TotalRecords: total,
		Columns:      columnNames(ts.Columns),
		ColumnCount:  len(ts.Columns),
		NumericStats: stats,
	}, nil
}

func (s *tableService) ListRuns(ctx context.Context, table string, offset, limit int) ([]domain.IngestRun, int, error) {
	if table != "" {
		name, err := schema.NormalizeTableName(table)
		if err != nil {
			return nil, 0, err
		}
		table = name
	}
	return s.runRepo.List(ctx, table, offset, limit)
}

func (s *tableService) GetRun(ctx context.Context, id uuid.UUID) (*domain.IngestRun, error) {
	return s.runRepo.GetByID(ctx, id)
}
