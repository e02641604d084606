package export

import (
	"encoding/csv"
	"io"

	"docschema/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter wraps csv.Writer for exporting table rows as CSV.
type CSVWriter struct {
	csv *csv.Writer
}

// NewCSVWriter writes the BOM and returns a CSVWriter writing to w.
func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	if _, err := w.Write(BOM); err != nil {
		return nil, err
	}
	return &CSVWriter{csv: csv.NewWriter(w)}, nil
}

func (w *CSVWriter) WriteHeader(columns []string) error {
	return w.csv.Write(columns)
}

// WriteRows writes one CSV record per row with values in columns order.
func (w *CSVWriter) WriteRows(columns []string, rows []domain.Row) error {
	rec := make([]string, len(columns))
	for _, row := range rows {
		for i, c := range columns {
			rec[i] = formatValue(row[c])
		}
		if err := w.csv.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes the underlying csv.Writer and reports any write error.
func (w *CSVWriter) Close() error {
	w.csv.Flush()
	return w.csv.Error()
}
