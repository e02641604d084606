package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"docschema/internal/domain"
	"docschema/internal/port"
)

var _ port.SchemaStore = (*Store)(nil)

// ReconcileTx runs fn inside a transaction that holds both the in-process
// and the database-level writer lock of table.
func (s *Store) ReconcileTx(ctx context.Context, table string, fn func(tx port.SchemaTx) error) error {
	l := s.tableLock(table)
	l.Lock()
	defer l.Unlock()

	err := s.runTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.dialect.LockSchema(ctx, tx, table); err != nil {
			return err
		}
		return fn(&schemaTx{tx: tx, dialect: s.dialect})
	})
	if err != nil {
		var conflict *domain.SchemaConflictError
		if !errors.As(err, &conflict) && s.dialect.IsConflict(err) {
			return domain.NewSchemaConflictError(table, err)
		}
		return err
	}
	return nil
}

// Schema returns the catalog schema of table.
func (s *Store) Schema(ctx context.Context, table string) (*domain.TableSchema, error) {
	var exists int
	err := s.db.GetContext(ctx, &exists,
		s.db.Rebind("SELECT COUNT(*) FROM meta_tables WHERE table_name = ?"), table)
	if err != nil {
		return nil, fmt.Errorf("store.Schema: %w", err)
	}
	if exists == 0 {
		return nil, domain.ErrTableNotFound
	}

	var cols []domain.Column
	err = s.db.SelectContext(ctx, &cols, s.db.Rebind(
		"SELECT column_name, column_type, ordinal FROM meta_columns WHERE table_name = ? ORDER BY ordinal"), table)
	if err != nil {
		return nil, fmt.Errorf("store.Schema columns: %w", err)
	}
	return &domain.TableSchema{Name: table, Columns: cols}, nil
}

// InsertRows inserts rows in one transaction and returns their ids in order.
// Each row carries one value per entry of columns.
func (s *Store) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) ([]int64, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	var query string
	if len(columns) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING %s", quote(table), quote("id"))
	} else {
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			quote(table), strings.Join(quoteAll(columns), ", "), marks, quote("id"))
	}

	var ids []int64
	err := s.runTx(ctx, func(tx *sqlx.Tx) error {
		ids = make([]int64, 0, len(rows))
		stmt, err := tx.PreparexContext(ctx, tx.Rebind(query))
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, row := range rows {
			if len(row) != len(columns) {
				return fmt.Errorf("row %d has %d values for %d columns", i+1, len(row), len(columns))
			}
			var id int64
			if err := stmt.QueryRowxContext(ctx, row...).Scan(&id); err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store.InsertRows: %w", err)
	}
	return ids, nil
}

// schemaTx implements port.SchemaTx over an open transaction.
type schemaTx struct {
	tx      *sqlx.Tx
	dialect Dialect
}

func (t *schemaTx) conflict(table string, err error) error {
	if t.dialect.IsConflict(err) {
		return domain.NewSchemaConflictError(table, err)
	}
	return err
}

func (t *schemaTx) TableExists(ctx context.Context, table string) (bool, error) {
	var n int
	err := t.tx.GetContext(ctx, &n, t.tx.Rebind("SELECT COUNT(*) FROM meta_tables WHERE table_name = ?"), table)
	if err != nil {
		return false, fmt.Errorf("schemaTx.TableExists: %w", err)
	}
	return n > 0, nil
}

func (t *schemaTx) Columns(ctx context.Context, table string) ([]domain.Column, error) {
	var cols []domain.Column
	err := t.tx.SelectContext(ctx, &cols, t.tx.Rebind(
		"SELECT column_name, column_type, ordinal FROM meta_columns WHERE table_name = ? ORDER BY ordinal"), table)
	if err != nil {
		return nil, fmt.Errorf("schemaTx.Columns: %w", err)
	}
	return cols, nil
}

func (t *schemaTx) Labels(ctx context.Context, table string) ([]domain.Label, error) {
	var labels []domain.Label
	err := t.tx.SelectContext(ctx, &labels, t.tx.Rebind(
		"SELECT raw_label, column_name FROM meta_labels WHERE table_name = ?"), table)
	if err != nil {
		return nil, fmt.Errorf("schemaTx.Labels: %w", err)
	}
	return labels, nil
}

func (t *schemaTx) CreateTable(ctx context.Context, table string, columns []domain.Column) error {
	if _, err := t.tx.ExecContext(ctx, createTableDDL(t.dialect, table, columns)); err != nil {
		return fmt.Errorf("schemaTx.CreateTable: %w", t.conflict(table, err))
	}

	now := time.Now().UTC()
	_, err := t.tx.ExecContext(ctx, t.tx.Rebind(
		"INSERT INTO meta_tables (table_name, created_at, updated_at) VALUES (?, ?, ?)"), table, now, now)
	if err != nil {
		return fmt.Errorf("schemaTx.CreateTable catalog: %w", t.conflict(table, err))
	}
	for i, c := range columns {
		c.Position = i + 1
		if err := t.insertColumn(ctx, table, c, now); err != nil {
			return err
		}
	}
	return nil
}

func (t *schemaTx) AddColumn(ctx context.Context, table string, column domain.Column) error {
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", quote(table), columnDDL(t.dialect, column))
	if _, err := t.tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("schemaTx.AddColumn: %w", t.conflict(table, err))
	}

	var next int
	err := t.tx.GetContext(ctx, &next, t.tx.Rebind(
		"SELECT COALESCE(MAX(ordinal), 0) + 1 FROM meta_columns WHERE table_name = ?"), table)
	if err != nil {
		return fmt.Errorf("schemaTx.AddColumn ordinal: %w", err)
	}
	column.Position = next

	now := time.Now().UTC()
	if err := t.insertColumn(ctx, table, column, now); err != nil {
		return err
	}
	return t.touch(ctx, table, now)
}

func (t *schemaTx) AlterColumnType(ctx context.Context, table string, column domain.Column) error {
	cols, err := t.Columns(ctx, table)
	if err != nil {
		return err
	}
	if err := t.dialect.AlterColumnType(ctx, t.tx, table, cols, column); err != nil {
		return fmt.Errorf("schemaTx.AlterColumnType: %w", t.conflict(table, err))
	}

	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(
		"UPDATE meta_columns SET column_type = ? WHERE table_name = ? AND column_name = ?"),
		string(column.Type), table, column.Name)
	if err != nil {
		return fmt.Errorf("schemaTx.AlterColumnType catalog: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("schemaTx.AlterColumnType: %w: %s", domain.ErrUnknownColumn, column.Name)
	}
	return t.touch(ctx, table, time.Now().UTC())
}

func (t *schemaTx) SaveLabel(ctx context.Context, table string, label domain.Label) error {
	_, err := t.tx.ExecContext(ctx, t.tx.Rebind(
		"INSERT INTO meta_labels (table_name, raw_label, column_name) VALUES (?, ?, ?)"),
		table, label.Raw, label.Column)
	if err != nil {
		return fmt.Errorf("schemaTx.SaveLabel: %w", t.conflict(table, err))
	}
	return nil
}

func (t *schemaTx) insertColumn(ctx context.Context, table string, c domain.Column, now time.Time) error {
	_, err := t.tx.ExecContext(ctx, t.tx.Rebind(
		`INSERT INTO meta_columns (table_name, column_name, column_type, ordinal, created_at)
		VALUES (?, ?, ?, ?, ?)`), table, c.Name, string(c.Type), c.Position, now)
	if err != nil {
		return fmt.Errorf("schemaTx.insertColumn: %w", t.conflict(table, err))
	}
	return nil
}

func (t *schemaTx) touch(ctx context.Context, table string, now time.Time) error {
	_, err := t.tx.ExecContext(ctx, t.tx.Rebind(
		"UPDATE meta_tables SET updated_at = ? WHERE table_name = ?"), now, table)
	if err != nil {
		return fmt.Errorf("schemaTx.touch: %w", err)
	}
	return nil
}
