package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"docschema/internal/domain"
	"docschema/internal/port"
)

var _ port.TableRepository = (*Store)(nil)

func (s *Store) ListTables(ctx context.Context) ([]domain.TableInfo, error) {
	var tables []domain.TableInfo
	err := s.db.SelectContext(ctx, &tables, `
		SELECT t.table_name, t.created_at, t.updated_at, COUNT(c.column_name) AS column_count
		FROM meta_tables t
		LEFT JOIN meta_columns c ON c.table_name = t.table_name
		GROUP BY t.table_name, t.created_at, t.updated_at
		ORDER BY t.table_name`)
	if err != nil {
		return nil, fmt.Errorf("store.ListTables: %w", err)
	}
	for i := range tables {
		n, err := s.CountRows(ctx, tables[i].Name)
		if err != nil {
			return nil, err
		}
		tables[i].RowCount = n
	}
	return tables, nil
}

func (s *Store) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, fmt.Sprintf("SELECT COUNT(*) FROM %s", quote(table))); err != nil {
		return 0, fmt.Errorf("store.CountRows: %w", err)
	}
	return n, nil
}

func (s *Store) ListRows(ctx context.Context, table string, offset, limit int) ([]domain.Row, error) {
	query := s.db.Rebind(fmt.Sprintf("SELECT * FROM %s ORDER BY %s LIMIT ? OFFSET ?", quote(table), quote("id")))
	rows, err := s.db.QueryxContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store.ListRows: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Row, 0, limit)
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("store.ListRows scan: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store.ListRows: %w", err)
	}
	return out, nil
}

func (s *Store) GetRow(ctx context.Context, table string, id int64) (domain.Row, error) {
	query := s.db.Rebind(fmt.Sprintf("SELECT * FROM %s WHERE %s = ?", quote(table), quote("id")))
	rows, err := s.db.QueryxContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("store.GetRow: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("store.GetRow: %w", err)
		}
		return nil, domain.ErrRowNotFound
	}
	row, err := scanRow(rows)
	if err != nil {
		return nil, fmt.Errorf("store.GetRow scan: %w", err)
	}
	return row, nil
}

// UpdateRow sets the given columns of row id. Values must already be
// coerced to the column types.
func (s *Store) UpdateRow(ctx context.Context, table string, id int64, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	cols := make([]string, 0, len(values))
	for c := range values {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		sets[i] = quote(c) + " = ?"
		args = append(args, values[c])
	}
	args = append(args, id)

	query := s.db.Rebind(fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		quote(table), strings.Join(sets, ", "), quote("id")))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("store.UpdateRow: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrRowNotFound
	}
	return nil
}

func (s *Store) DeleteRow(ctx context.Context, table string, id int64) error {
	query := s.db.Rebind(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quote(table), quote("id")))
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("store.DeleteRow: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrRowNotFound
	}
	return nil
}

// DropTable removes a dynamic table together with its catalog entries.
func (s *Store) DropTable(ctx context.Context, table string) error {
	l := s.tableLock(table)
	l.Lock()
	defer l.Unlock()

	return s.runTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.dialect.LockSchema(ctx, tx, table); err != nil {
			return err
		}
		var n int
		if err := tx.GetContext(ctx, &n, tx.Rebind("SELECT COUNT(*) FROM meta_tables WHERE table_name = ?"), table); err != nil {
			return fmt.Errorf("store.DropTable: %w", err)
		}
		if n == 0 {
			return domain.ErrTableNotFound
		}

		stmts := []string{
			"DELETE FROM meta_labels WHERE table_name = ?",
			"DELETE FROM meta_columns WHERE table_name = ?",
			"DELETE FROM meta_tables WHERE table_name = ?",
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, tx.Rebind(q), table); err != nil {
				return fmt.Errorf("store.DropTable catalog: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quote(table))); err != nil {
			return fmt.Errorf("store.DropTable: %w", err)
		}
		return nil
	})
}

// NumericStats computes min, max, average and non-null count of the given
// numeric columns in a single scan.
func (s *Store) NumericStats(ctx context.Context, table string, columns []string) (map[string]domain.ColumnStats, error) {
	stats := make(map[string]domain.ColumnStats, len(columns))
	if len(columns) == 0 {
		return stats, nil
	}

	floatType := s.dialect.ColumnType(domain.TypeFloat)
	exprs := make([]string, 0, 4*len(columns))
	for _, c := range columns {
		q := quote(c)
		exprs = append(exprs,
			fmt.Sprintf("COUNT(%s)", q),
			fmt.Sprintf("MIN(CAST(%s AS %s))", q, floatType),
			fmt.Sprintf("MAX(CAST(%s AS %s))", q, floatType),
			fmt.Sprintf("AVG(CAST(%s AS %s))", q, floatType),
		)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(exprs, ", "), quote(table))

	counts := make([]int64, len(columns))
	mins := make([]sql.NullFloat64, len(columns))
	maxs := make([]sql.NullFloat64, len(columns))
	avgs := make([]sql.NullFloat64, len(columns))
	dest := make([]any, 0, 4*len(columns))
	for i := range columns {
		dest = append(dest, &counts[i], &mins[i], &maxs[i], &avgs[i])
	}
	if err := s.db.QueryRowContext(ctx, query).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return stats, nil
		}
		return nil, fmt.Errorf("store.NumericStats: %w", err)
	}

	for i, c := range columns {
		if counts[i] == 0 {
			continue
		}
		stats[c] = domain.ColumnStats{
			Min:   mins[i].Float64,
			Max:   maxs[i].Float64,
			Avg:   avgs[i].Float64,
			Count: counts[i],
		}
	}
	return stats, nil
}

// scanRow reads the current row into a column -> value map. Text columns
// come back as strings regardless of driver.
func scanRow(rows *sqlx.Rows) (domain.Row, error) {
	m := make(map[string]any)
	if err := rows.MapScan(m); err != nil {
		return nil, err
	}
	for k, v := range m {
		if b, ok := v.([]byte); ok {
			m[k] = string(b)
		}
	}
	return domain.Row(m), nil
}
