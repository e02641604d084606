package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"docschema/internal/domain"
	"docschema/internal/port"
	"docschema/internal/schema"
)

// maxReconcileAttempts bounds how often a lost schema race is retried.
const maxReconcileAttempts = 2

// IngestResult is the outcome of writing a batch of records into a table.
type IngestResult struct {
	IDs      []int64
	Inserted int
	Skipped  int
	Warnings []domain.Warning
	Schema   domain.TableSchema
}

// SchemaEngine maps records onto a table whose schema evolves to fit them.
// Columns are only ever added and types only ever widened.
type SchemaEngine struct {
	store  port.SchemaStore
	logger *zap.Logger
}

// NewSchemaEngine creates a SchemaEngine over store.
func NewSchemaEngine(store port.SchemaStore, logger *zap.Logger) *SchemaEngine {
	return &SchemaEngine{store: store, logger: logger}
}

// Ingest reconciles the schema of table with records, then inserts one row
// per record. Rows that cannot be coerced to the final column types are
// skipped with a row_coercion warning.
func (e *SchemaEngine) Ingest(ctx context.Context, table string, records []domain.Record) (*IngestResult, error) {
	records = nonEmpty(records)
	res := &IngestResult{Schema: domain.TableSchema{Name: table}, Warnings: []domain.Warning{}}
	if len(records) == 0 {
		return res, nil
	}

	plan, err := e.Reconcile(ctx, table, records)
	if err != nil {
		return nil, err
	}

	// Re-read after commit: a concurrent writer may have widened the table.
	current, err := e.store.Schema(ctx, table)
	if err != nil {
		return nil, domain.NewStageError(domain.StageInsert, table, err)
	}
	res.Schema = *current

	values, skipped := plan.Values(*current)
	for _, rerr := range skipped {
		e.logger.Warn("service.SchemaEngine.Ingest: skipping row",
			zap.String("table", table), zap.Int("row", rerr.Row),
			zap.String("column", rerr.Column), zap.Error(rerr.Err))
		res.Warnings = append(res.Warnings, domain.Warning{
			Kind:    domain.WarningRowCoercion,
			Row:     rerr.Row,
			Message: rerr.Error(),
		})
	}
	res.Skipped = len(skipped)

	if len(values) > 0 {
		ids, err := e.store.InsertRows(ctx, table, columnNames(current.Columns), values)
		if err != nil {
			return nil, domain.NewStageError(domain.StageInsert, table, err)
		}
		res.IDs = ids
		res.Inserted = len(ids)
	}

	e.logger.Info("service.SchemaEngine.Ingest: rows written",
		zap.String("table", table), zap.Int("inserted", res.Inserted),
		zap.Int("skipped", res.Skipped), zap.Int("columns", len(current.Columns)))
	return res, nil
}

// Reconcile brings the persisted schema and label catalog of table in line
// with records without inserting anything. A lost race is retried once.
func (e *SchemaEngine) Reconcile(ctx context.Context, table string, records []domain.Record) (*schema.Plan, error) {
	return e.reconcile(ctx, table, records, false)
}

// ReconcileCanonical is Reconcile for hand-entered rows: a label equal to an
// existing column name addresses that column directly.
func (e *SchemaEngine) ReconcileCanonical(ctx context.Context, table string, records []domain.Record) (*schema.Plan, error) {
	return e.reconcile(ctx, table, records, true)
}

func (e *SchemaEngine) reconcile(ctx context.Context, table string, records []domain.Record, canonical bool) (*schema.Plan, error) {
	var err error
	for attempt := 1; attempt <= maxReconcileAttempts; attempt++ {
		var plan *schema.Plan
		plan, err = e.reconcileOnce(ctx, table, records, canonical)
		if err == nil {
			return plan, nil
		}
		if !errors.Is(err, domain.ErrSchemaConflict) {
			break
		}
		e.logger.Warn("service.SchemaEngine.Reconcile: schema conflict",
			zap.String("table", table), zap.Int("attempt", attempt), zap.Error(err))
	}
	return nil, domain.NewStageError(domain.StageReconcile, table, err)
}

func (e *SchemaEngine) reconcileOnce(ctx context.Context, table string, records []domain.Record, canonical bool) (*schema.Plan, error) {
	var plan *schema.Plan
	err := e.store.ReconcileTx(ctx, table, func(tx port.SchemaTx) error {
		exists, err := tx.TableExists(ctx, table)
		if err != nil {
			return err
		}
		var current *domain.TableSchema
		if exists {
			cols, err := tx.Columns(ctx, table)
			if err != nil {
				return err
			}
			current = &domain.TableSchema{Name: table, Columns: cols}
		}
		labels, err := tx.Labels(ctx, table)
		if err != nil {
			return err
		}
		if canonical && current != nil {
			for _, c := range current.Columns {
				labels = append(labels, domain.Label{Raw: c.Name, Column: c.Name})
			}
		}

		plan = schema.BuildPlan(table, current, labels, records)
		if plan.Create {
			e.logger.Info("service.SchemaEngine: creating table",
				zap.String("table", table), zap.Int("columns", len(plan.Schema.Columns)))
			if err := tx.CreateTable(ctx, table, plan.Schema.Columns); err != nil {
				return err
			}
		}
		for _, c := range plan.Add {
			e.logger.Info("service.SchemaEngine: adding column",
				zap.String("table", table), zap.String("column", c.Name), zap.String("type", string(c.Type)))
			if err := tx.AddColumn(ctx, table, c); err != nil {
				return err
			}
		}
		for _, c := range plan.Widen {
			e.logger.Info("service.SchemaEngine: widening column",
				zap.String("table", table), zap.String("column", c.Name), zap.String("type", string(c.Type)))
			if err := tx.AlterColumnType(ctx, table, c); err != nil {
				return err
			}
		}
		for _, l := range plan.Labels {
			if err := tx.SaveLabel(ctx, table, l); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service.SchemaEngine.reconcile: %w", err)
	}
	return plan, nil
}

func nonEmpty(records []domain.Record) []domain.Record {
	out := make([]domain.Record, 0, len(records))
	for _, r := range records {
		if len(r.Fields) > 0 {
			out = append(out, r)
		}
	}
	return out
}

func columnNames(cols []domain.Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
