package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"docschema/internal/domain"
)

// PostgreSQL error codes treated as lost schema races.
const (
	pgDuplicateColumn = "42701"
	pgDuplicateTable  = "42P07"
	pgUniqueViolation = "23505"
	pgLockNotAvail    = "55P03"
	pgDeadlock        = "40P01"
)

type postgresDialect struct{}

func (postgresDialect) Name() string       { return "postgres" }
func (postgresDialect) DriverName() string { return "pgx" }

func (postgresDialect) ColumnType(t domain.ColumnType) string {
	switch t {
	case domain.TypeInteger:
		return "BIGINT"
	case domain.TypeFloat:
		return "DOUBLE PRECISION"
	default:
		return "TEXT"
	}
}

func (postgresDialect) PrimaryKey() string {
	return "BIGSERIAL PRIMARY KEY"
}

// LockSchema takes a transaction-scoped advisory lock keyed by table name.
func (postgresDialect) LockSchema(ctx context.Context, tx *sqlx.Tx, table string) error {
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", "docschema:"+table); err != nil {
		return fmt.Errorf("postgres.LockSchema: %w", err)
	}
	return nil
}

func (d postgresDialect) AlterColumnType(ctx context.Context, tx *sqlx.Tx, table string, _ []domain.Column, col domain.Column) error {
	typ := d.ColumnType(col.Type)
	stmt := fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::%s",
		quote(table), quote(col.Name), typ, quote(col.Name), typ)
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("postgres.AlterColumnType: %w", err)
	}
	return nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func (postgresDialect) IsConflict(err error) bool {
	switch pgCode(err) {
	case pgDuplicateColumn, pgDuplicateTable, pgUniqueViolation:
		return true
	}
	return false
}

func (postgresDialect) IsBusy(err error) bool {
	switch pgCode(err) {
	case pgLockNotAvail, pgDeadlock:
		return true
	}
	return false
}
