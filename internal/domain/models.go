package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Document is an uploaded file awaiting extraction. It is read once per
// ingestion run and never persisted.
type Document struct {
	Name   string         `json:"name"`
	Path   string         `json:"-"`
	Format DocumentFormat `json:"format"`
	Size   int64          `json:"size"`
}

// Grid is one table detected on a page: row 0 holds the field labels.
type Grid struct {
	Page  int        `json:"page"`
	Index int        `json:"index"`
	Rows  [][]string `json:"rows"`
}

// Field is one label/value pair of a record. An empty Value is null.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Record is a flat, ordered set of fields produced by a single extraction
// strategy from one logical unit of a document.
type Record struct {
	Fields    []Field          `json:"fields"`
	Method    ExtractionMethod `json:"extraction_method"`
	Page      int              `json:"page_number,omitempty"`
	GridIndex int              `json:"table_index,omitempty"`
}

// Get returns the value of the last field carrying label.
func (r Record) Get(label string) (string, bool) {
	for i := len(r.Fields) - 1; i >= 0; i-- {
		if r.Fields[i].Label == label {
			return r.Fields[i].Value, true
		}
	}
	return "", false
}

// Map flattens the record into label -> value.
func (r Record) Map() map[string]string {
	m := make(map[string]string, len(r.Fields))
	for _, f := range r.Fields {
		m[f.Label] = f.Value
	}
	return m
}

// Column is a canonical column definition of a dynamic table.
type Column struct {
	Name     string     `db:"column_name" json:"name"`
	Type     ColumnType `db:"column_type" json:"type"`
	Position int        `db:"ordinal" json:"position"`
}

// TableSchema is the ordered column set of a dynamic table. The implicit
// integer primary key "id" is not listed in Columns.
type TableSchema struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Column returns the column named name.
func (s *TableSchema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// TableInfo summarizes a dynamic table for listings.
type TableInfo struct {
	Name        string    `db:"table_name" json:"name"`
	ColumnCount int       `db:"column_count" json:"column_count"`
	RowCount    int64     `db:"-" json:"row_count"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Row is one stored row of a dynamic table keyed by canonical column name,
// including "id".
type Row map[string]any

// Warning is a non-fatal problem reported alongside a successful result.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Page    int         `json:"page,omitempty"`
	Row     int         `json:"row,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	switch {
	case w.Page > 0:
		return fmt.Sprintf("%s (page %d): %s", w.Kind, w.Page, w.Message)
	case w.Row > 0:
		return fmt.Sprintf("%s (row %d): %s", w.Kind, w.Row, w.Message)
	default:
		return fmt.Sprintf("%s: %s", w.Kind, w.Message)
	}
}

// IngestRun is the persisted audit entry of one processed document.
type IngestRun struct {
	ID           uuid.UUID        `db:"id" json:"id"`
	TableName    string           `db:"table_name" json:"table_name"`
	DocumentName string           `db:"document_name" json:"document_name"`
	Method       ExtractionMethod `db:"method" json:"method"`
	Extracted    int              `db:"extracted" json:"extracted"`
	Inserted     int              `db:"inserted" json:"inserted"`
	Skipped      int              `db:"skipped" json:"skipped"`
	Warnings     []Warning        `db:"-" json:"warnings"`
	WarningsJSON string           `db:"warnings" json:"-"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}

// ColumnStats holds numeric statistics of one integer or float column.
type ColumnStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Count int64   `json:"count"`
}

// TableAnalysis is the basic statistical summary of a dynamic table.
type TableAnalysis struct {
	Table        string                 `json:"table_name"`
	TotalRecords int64                  `json:"total_records"`
	Columns      []string               `json:"columns"`
	ColumnCount  int                    `json:"column_count"`
	NumericStats map[string]ColumnStats `json:"numeric_stats"`
}

// Label is a persisted mapping from a raw field label to its column.
type Label struct {
	Raw    string `db:"raw_label" json:"raw_label"`
	Column string `db:"column_name" json:"column_name"`
}

// ExtractionResult is the output of a single extraction strategy.
type ExtractionResult struct {
	Records  []Record
	Warnings []Warning
}

// Extraction is the outcome of the strategy waterfall for one document.
type Extraction struct {
	Records  []Record         `json:"records"`
	Method   ExtractionMethod `json:"extraction_method"`
	Warnings []Warning        `json:"warnings"`
}
