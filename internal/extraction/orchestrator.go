package extraction

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"docschema/internal/domain"
	"docschema/internal/port"
)

// Provenance field labels added to every record when enabled.
const (
	PageNumberLabel       = "page_number"
	TableIndexLabel       = "table_index"
	ExtractionMethodLabel = "extraction_method"
)

var _ port.DocumentExtractor = (*Orchestrator)(nil)

// Orchestrator runs strategies in order and returns the output of the first
// one that yields at least one record. The last strategy's output is
// returned even when empty. Results are never merged.
type Orchestrator struct {
	strategies []port.Strategy
	provenance bool
	logger     *zap.Logger
}

// NewOrchestrator creates an Orchestrator from an ordered list of strategies.
// With provenance set, page number, table index and method are appended to
// each record as ordinary fields.
func NewOrchestrator(strategies []port.Strategy, provenance bool, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{strategies: strategies, provenance: provenance, logger: logger}
}

// Run extracts records from doc. A strategy error aborts the run, except
// OCR unavailability which becomes a warning.
func (o *Orchestrator) Run(ctx context.Context, doc domain.Document) (*domain.Extraction, error) {
	out := &domain.Extraction{Method: domain.MethodNone}

	for i, s := range o.strategies {
		method := s.Method()
		o.logger.Info("extraction.Orchestrator.Run: trying strategy",
			zap.String("document", doc.Name), zap.String("strategy", string(method)))

		res, err := s.Extract(ctx, doc)
		if err != nil {
			if !errors.Is(err, domain.ErrOCRUnavailable) {
				return nil, fmt.Errorf("extraction.Orchestrator.Run: %s: %w", method, err)
			}
			res = &domain.ExtractionResult{Warnings: []domain.Warning{unavailableWarning(err)}}
		}
		out.Warnings = append(out.Warnings, res.Warnings...)

		o.logger.Info("extraction.Orchestrator.Run: strategy finished",
			zap.String("document", doc.Name), zap.String("strategy", string(method)),
			zap.Int("records", len(res.Records)), zap.Int("warnings", len(res.Warnings)))

		// The fallback is decided per document, not per page: once a strategy
		// yields records, pages it found nothing on are not retried with the
		// next one, so one document never mixes methods.
		if len(res.Records) > 0 || i == len(o.strategies)-1 {
			out.Method = method
			out.Records = res.Records
			if o.provenance {
				out.Records = withProvenance(res.Records)
			}
			return out, nil
		}
	}
	return out, nil
}

func withProvenance(records []domain.Record) []domain.Record {
	tagged := make([]domain.Record, len(records))
	for i, rec := range records {
		fields := make([]domain.Field, 0, len(rec.Fields)+3)
		fields = append(fields, rec.Fields...)
		if rec.Page > 0 {
			fields = append(fields, domain.Field{Label: PageNumberLabel, Value: strconv.Itoa(rec.Page)})
		}
		if rec.Method == domain.MethodTable {
			fields = append(fields, domain.Field{Label: TableIndexLabel, Value: strconv.Itoa(rec.GridIndex)})
		}
		fields = append(fields, domain.Field{Label: ExtractionMethodLabel, Value: string(rec.Method)})

		rec.Fields = fields
		tagged[i] = rec
	}
	return tagged
}
