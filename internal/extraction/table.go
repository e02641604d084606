// Package extraction turns documents into flat records through an ordered
// waterfall of strategies.
package extraction

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"docschema/internal/domain"
	"docschema/internal/port"
)

// TableStrategy reads the grids detected by the page extractor. Row 0 of a
// grid holds the labels; every following non-empty row is one record.
type TableStrategy struct {
	pages  port.PageExtractor
	logger *zap.Logger
}

// NewTableStrategy creates a TableStrategy.
func NewTableStrategy(pages port.PageExtractor, logger *zap.Logger) *TableStrategy {
	return &TableStrategy{pages: pages, logger: logger}
}

func (s *TableStrategy) Method() domain.ExtractionMethod {
	return domain.MethodTable
}

func (s *TableStrategy) Extract(ctx context.Context, doc domain.Document) (*domain.ExtractionResult, error) {
	grids, err := s.pages.Tables(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("extraction.TableStrategy.Extract: %w", err)
	}

	res := &domain.ExtractionResult{}
	for _, g := range grids {
		records, warnings := GridRecords(g)
		s.logger.Debug("extraction.TableStrategy.Extract: grid",
			zap.Int("page", g.Page), zap.Int("index", g.Index), zap.Int("records", len(records)))
		res.Records = append(res.Records, records...)
		res.Warnings = append(res.Warnings, warnings...)
	}
	return res, nil
}

// GridRecords converts one grid into records. Short rows are padded with
// nulls, long rows truncated with a warning and fully empty rows skipped.
func GridRecords(g domain.Grid) ([]domain.Record, []domain.Warning) {
	if len(g.Rows) < 2 {
		return nil, nil
	}
	header := HeaderLabels(g.Rows[0])

	var (
		records  []domain.Record
		warnings []domain.Warning
	)
	for i, row := range g.Rows[1:] {
		if blankRow(row) {
			continue
		}
		if len(row) > len(header) {
			warnings = append(warnings, domain.Warning{
				Kind:    domain.WarningRowTruncated,
				Page:    g.Page,
				Row:     i + 1,
				Message: fmt.Sprintf("table %d row %d has %d cells, header has %d", g.Index, i+1, len(row), len(header)),
			})
		}

		rec := domain.Record{
			Fields:    make([]domain.Field, len(header)),
			Method:    domain.MethodTable,
			Page:      g.Page,
			GridIndex: g.Index,
		}
		for j, label := range header {
			rec.Fields[j].Label = label
			if j < len(row) {
				rec.Fields[j].Value = strings.TrimSpace(row[j])
			}
		}
		records = append(records, rec)
	}
	return records, warnings
}

// HeaderLabels trims the header cells and makes repeated labels distinct by
// appending " 2", " 3" and so on. Empty labels stay empty.
func HeaderLabels(cells []string) []string {
	labels := make([]string, len(cells))
	used := make(map[string]bool, len(cells))
	for i, c := range cells {
		labels[i] = strings.TrimSpace(c)
		if labels[i] != "" {
			used[labels[i]] = true
		}
	}

	seen := make(map[string]int, len(cells))
	for i, l := range labels {
		if l == "" {
			continue
		}
		seen[l]++
		if seen[l] == 1 {
			continue
		}
		n := seen[l]
		candidate := l + " " + strconv.Itoa(n)
		for used[candidate] {
			n++
			candidate = l + " " + strconv.Itoa(n)
		}
		seen[l] = n
		used[candidate] = true
		labels[i] = candidate
	}
	return labels
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
