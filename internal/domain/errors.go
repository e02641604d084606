package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedDocument = errors.New("document is not a recognizable or parseable document")
	ErrOCRUnavailable      = errors.New("optical recognition is unavailable")
	ErrOCRTimeout          = errors.New("optical recognition timed out")
	ErrRowCoercion         = errors.New("value does not fit column type")
	ErrSchemaConflict      = errors.New("concurrent schema change conflict")
	ErrTableNotFound       = errors.New("table not found")
	ErrRowNotFound         = errors.New("row not found")
	ErrRunNotFound         = errors.New("ingest run not found")
	ErrInvalidTableName    = errors.New("invalid table name")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrNoRecords           = errors.New("no data could be extracted from document")
	ErrUnknownColumn       = errors.New("unknown column")
	ErrEmptyRow            = errors.New("row has no fields")
)

// SchemaConflictError reports a lost race while reconciling a table schema,
// e.g. a duplicate column or table created by a concurrent writer.
type SchemaConflictError struct {
	Table string
	Err   error
}

func (e *SchemaConflictError) Error() string {
	return fmt.Sprintf("schema conflict on table %q: %v", e.Table, e.Err)
}

func (e *SchemaConflictError) Unwrap() []error {
	return []error{ErrSchemaConflict, e.Err}
}

// NewSchemaConflictError creates a SchemaConflictError for table.
func NewSchemaConflictError(table string, err error) *SchemaConflictError {
	return &SchemaConflictError{Table: table, Err: err}
}

// RowError reports a single row that could not be coerced to the table schema.
type RowError struct {
	Row    int // 1-based position of the record in its batch
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: column %q value %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *RowError) Unwrap() []error {
	return []error{ErrRowCoercion, e.Err}
}

// StageError aborts an ingestion run and carries enough context for the
// caller to tell the user where it failed.
type StageError struct {
	Stage Stage
	Table string
	Err   error
}

func (e *StageError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s (table %q): %v", e.Stage, e.Table, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err with the pipeline stage and table it failed in.
func NewStageError(stage Stage, table string, err error) *StageError {
	return &StageError{Stage: stage, Table: table, Err: err}
}
