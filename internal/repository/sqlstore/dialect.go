package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"docschema/internal/config"
	"docschema/internal/domain"
)

// Dialect isolates the SQL differences between the supported databases.
type Dialect interface {
	// Name is the config driver name.
	Name() string
	// DriverName is the database/sql driver name.
	DriverName() string
	// ColumnType maps a column type to its DDL type.
	ColumnType(t domain.ColumnType) string
	// PrimaryKey returns the DDL of the implicit id column.
	PrimaryKey() string
	// LockSchema serializes schema changes of table across processes for
	// the lifetime of tx.
	LockSchema(ctx context.Context, tx *sqlx.Tx, table string) error
	// AlterColumnType widens col of table in place. columns is the full,
	// ordered column set before the change.
	AlterColumnType(ctx context.Context, tx *sqlx.Tx, table string, columns []domain.Column, col domain.Column) error
	// IsConflict reports whether err means a concurrent writer already
	// made the change being attempted.
	IsConflict(err error) bool
	// IsBusy reports whether err is a transient lock timeout worth retrying.
	IsBusy(err error) bool
}

// DialectFor returns the dialect of a config driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case config.DriverSQLite:
		return sqliteDialect{}, nil
	case config.DriverPostgres:
		return postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}
}

// quote returns a double-quoted identifier. Identifiers reaching the store
// are produced by the normalizer, so they never contain quotes; doubling
// keeps it safe regardless.
func quote(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func quoteAll(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = quote(id)
	}
	return out
}

func columnDDL(d Dialect, c domain.Column) string {
	return quote(c.Name) + " " + d.ColumnType(c.Type)
}

func createTableDDL(d Dialect, table string, columns []domain.Column) string {
	defs := make([]string, 0, len(columns)+1)
	defs = append(defs, quote("id")+" "+d.PrimaryKey())
	for _, c := range columns {
		defs = append(defs, columnDDL(d, c))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quote(table), strings.Join(defs, ", "))
}
