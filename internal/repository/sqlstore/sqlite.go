package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"docschema/internal/domain"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know as a
	// '?' placeholder driver.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string       { return "sqlite" }
func (sqliteDialect) DriverName() string { return "sqlite" }

func (sqliteDialect) ColumnType(t domain.ColumnType) string {
	switch t {
	case domain.TypeInteger:
		return "INTEGER"
	case domain.TypeFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

func (sqliteDialect) PrimaryKey() string {
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// LockSchema is a no-op: transactions are opened with BEGIN IMMEDIATE
// (_txlock=immediate), which already holds the database write lock.
func (sqliteDialect) LockSchema(context.Context, *sqlx.Tx, string) error {
	return nil
}

// AlterColumnType rebuilds the table since SQLite cannot change a column's
// declared type. Row ids and the AUTOINCREMENT high-water mark are preserved.
func (d sqliteDialect) AlterColumnType(ctx context.Context, tx *sqlx.Tx, table string, columns []domain.Column, col domain.Column) error {
	rebuilt := make([]domain.Column, len(columns))
	copy(rebuilt, columns)

	found := false
	names := []string{quote("id")}
	selects := []string{quote("id")}
	for i, c := range rebuilt {
		if c.Name == col.Name {
			rebuilt[i].Type = col.Type
			found = true
		}
		names = append(names, quote(c.Name))
		selects = append(selects, fmt.Sprintf("CAST(%s AS %s)", quote(c.Name), d.ColumnType(rebuilt[i].Type)))
	}
	if !found {
		return fmt.Errorf("sqlite.AlterColumnType: %w: %s.%s", domain.ErrUnknownColumn, table, col.Name)
	}

	seq, err := sqliteSequence(ctx, tx, table)
	if err != nil {
		return err
	}

	// '$' never survives table name normalization, so the scratch table
	// cannot collide with a user table.
	tmp := table + "$rebuild"
	stmts := []string{
		createTableDDL(d, tmp, rebuilt),
		fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
			quote(tmp), strings.Join(names, ", "), strings.Join(selects, ", "), quote(table)),
		fmt.Sprintf("DROP TABLE %s", quote(table)),
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quote(tmp), quote(table)),
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("sqlite.AlterColumnType: %w", err)
		}
	}
	return restoreSequence(ctx, tx, table, seq)
}

// sqliteSequence returns the AUTOINCREMENT high-water mark of table, 0 when
// no id was ever assigned.
func sqliteSequence(ctx context.Context, tx *sqlx.Tx, table string) (int64, error) {
	var seq int64
	err := tx.GetContext(ctx, &seq, "SELECT seq FROM sqlite_sequence WHERE name = ?", table)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("sqlite.AlterColumnType: reading sequence: %w", err)
	}
	return seq, nil
}

// restoreSequence carries the high-water mark over to a rebuilt table so
// ids of deleted rows are never handed out again.
func restoreSequence(ctx context.Context, tx *sqlx.Tx, table string, seq int64) error {
	if seq == 0 {
		return nil
	}
	res, err := tx.ExecContext(ctx, "UPDATE sqlite_sequence SET seq = MAX(seq, ?) WHERE name = ?", seq, table)
	if err != nil {
		return fmt.Errorf("sqlite.AlterColumnType: restoring sequence: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO sqlite_sequence (name, seq) VALUES (?, ?)", table, seq); err != nil {
		return fmt.Errorf("sqlite.AlterColumnType: restoring sequence: %w", err)
	}
	return nil
}

func (sqliteDialect) IsConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate column name") ||
		strings.Contains(msg, "already exists") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// IsBusy reports whether err indicates an SQLite BUSY condition.
func (sqliteDialect) IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}
