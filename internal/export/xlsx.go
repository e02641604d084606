package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"docschema/internal/domain"
)

// maxSheetName is the longest worksheet name Excel accepts.
const maxSheetName = 31

// SheetName returns the worksheet name used for table.
func SheetName(table string) string {
	r := []rune(table)
	if len(r) > maxSheetName {
		r = r[:maxSheetName]
	}
	if len(r) == 0 {
		return "Sheet1"
	}
	return string(r)
}

// XLSXWriter streams table rows into a single-sheet workbook. The workbook
// is written to the destination on Close.
type XLSXWriter struct {
	out    io.Writer
	file   *excelize.File
	stream *excelize.StreamWriter
	row    int
}

// NewXLSXWriter creates an XLSXWriter whose only sheet is named after table.
func NewXLSXWriter(w io.Writer, table string) (*XLSXWriter, error) {
	f := excelize.NewFile()
	sheet := SheetName(table)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("export.NewXLSXWriter: %w", err)
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("export.NewXLSXWriter: %w", err)
	}
	return &XLSXWriter{out: w, file: f, stream: sw}, nil
}

func (w *XLSXWriter) WriteHeader(columns []string) error {
	vals := make([]interface{}, len(columns))
	for i, c := range columns {
		vals[i] = c
	}
	return w.next(vals)
}

// WriteRows appends one worksheet row per row. Numbers stay numeric.
func (w *XLSXWriter) WriteRows(columns []string, rows []domain.Row) error {
	for _, row := range rows {
		vals := make([]interface{}, len(columns))
		for i, c := range columns {
			vals[i] = cellValue(row[c])
		}
		if err := w.next(vals); err != nil {
			return err
		}
	}
	return nil
}

func (w *XLSXWriter) next(vals []interface{}) error {
	w.row++
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	return w.stream.SetRow(cell, vals)
}

// Close flushes the sheet and writes the workbook.
func (w *XLSXWriter) Close() error {
	defer w.file.Close()
	if err := w.stream.Flush(); err != nil {
		return fmt.Errorf("export.XLSXWriter.Close: %w", err)
	}
	if _, err := w.file.WriteTo(w.out); err != nil {
		return fmt.Errorf("export.XLSXWriter.Close: %w", err)
	}
	return nil
}

func cellValue(v any) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case int64, float64:
		return t
	default:
		return formatValue(t)
	}
}
