package service

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"docschema/internal/export"
	"docschema/internal/port"
	"docschema/internal/schema"
)

// exportPageSize is the number of rows read per batch while exporting.
const exportPageSize = 200

// ExportService defines the table export contract.
type ExportService interface {
	// Export writes every row of table to w in format, ordered by id.
	Export(ctx context.Context, table string, format export.Format, w io.Writer) error
}

type exportService struct {
	store  port.SchemaStore
	tables port.TableRepository
	logger *zap.Logger
}

// NewExportService creates a new ExportService.
func NewExportService(store port.SchemaStore, tables port.TableRepository, logger *zap.Logger) ExportService {
	return &exportService{store: store, tables: tables, logger: logger}
}

func (s *exportService) Export(ctx context.Context, table string, format export.Format, w io.Writer) error {
	name, err := schema.NormalizeTableName(table)
	if err != nil {
		return err
	}
	ts, err := s.store.Schema(ctx, name)
	if err != nil {
		return err
	}

	out, err := export.NewWriter(format, w, ts.Name)
	if err != nil {
		return err
	}
	cols := export.Header(ts)
	if err := out.WriteHeader(cols); err != nil {
		return fmt.Errorf("service.ExportService.Export: %w", err)
	}

	total := 0
	for offset := 0; ; offset += exportPageSize {
		rows, err := s.tables.ListRows(ctx, ts.Name, offset, exportPageSize)
		if err != nil {
			return fmt.Errorf("service.ExportService.Export: %w", err)
		}
		if err := out.WriteRows(cols, rows); err != nil {
			return fmt.Errorf("service.ExportService.Export: %w", err)
		}
		total += len(rows)
		if len(rows) < exportPageSize {
			break
		}
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("service.ExportService.Export: %w", err)
	}

	s.logger.Info("service.ExportService.Export: table exported",
		zap.String("table", ts.Name), zap.String("format", string(format)), zap.Int("rows", total))
	return nil
}
