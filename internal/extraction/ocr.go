package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"docschema/internal/domain"
	"docschema/internal/port"
)

// RawTextLabel is the single field of a record produced from OCR text that
// holds no label/value lines, when raw text is kept.
const RawTextLabel = "raw_text"

// OCROptions tunes the OCR strategy.
type OCROptions struct {
	DPI         int
	PageTimeout time.Duration
	Workers     int
	KeepRawText bool
}

func (o OCROptions) withDefaults() OCROptions {
	if o.DPI <= 0 {
		o.DPI = 300
	}
	if o.PageTimeout <= 0 {
		o.PageTimeout = 60 * time.Second
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	return o
}

// OCRStrategy rasterizes every page, recognizes its text and re-applies the
// label/value heuristic. Pages are recognized concurrently; records keep
// page order.
type OCRStrategy struct {
	pages  port.PageExtractor
	ocr    port.OpticalRecognizer
	opts   OCROptions
	logger *zap.Logger
}

// NewOCRStrategy creates an OCRStrategy.
func NewOCRStrategy(pages port.PageExtractor, ocr port.OpticalRecognizer, opts OCROptions, logger *zap.Logger) *OCRStrategy {
	return &OCRStrategy{pages: pages, ocr: ocr, opts: opts.withDefaults(), logger: logger}
}

func (s *OCRStrategy) Method() domain.ExtractionMethod {
	return domain.MethodOCR
}

type pageOutcome struct {
	records []domain.Record
	warning *domain.Warning
}

func (s *OCRStrategy) Extract(ctx context.Context, doc domain.Document) (*domain.ExtractionResult, error) {
	if err := s.ocr.Available(); err != nil {
		if errors.Is(err, domain.ErrOCRUnavailable) {
			s.logger.Warn("extraction.OCRStrategy.Extract: recognizer unavailable", zap.Error(err))
			return &domain.ExtractionResult{Warnings: []domain.Warning{unavailableWarning(err)}}, nil
		}
		return nil, fmt.Errorf("extraction.OCRStrategy.Extract: %w", err)
	}

	n, err := s.pages.PageCount(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("extraction.OCRStrategy.Extract: page count: %w", err)
	}

	outcomes := make([]pageOutcome, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i := 0; i < n; i++ {
		page := i + 1
		g.Go(func() error {
			text, err := s.recognizePage(gctx, doc, page)
			switch {
			case err == nil:
				outcomes[i].records = s.pageRecords(text, page)
			case ctx.Err() != nil:
				return ctx.Err()
			case errors.Is(err, domain.ErrOCRTimeout):
				outcomes[i].warning = &domain.Warning{Kind: domain.WarningOCRTimeout, Page: page, Message: err.Error()}
			case errors.Is(err, domain.ErrOCRUnavailable):
				w := unavailableWarning(err)
				w.Page = page
				outcomes[i].warning = &w
			default:
				outcomes[i].warning = &domain.Warning{Kind: domain.WarningOCRPageFailed, Page: page, Message: err.Error()}
			}
			if outcomes[i].warning != nil {
				s.logger.Warn("extraction.OCRStrategy.Extract: page dropped",
					zap.Int("page", page), zap.String("kind", string(outcomes[i].warning.Kind)), zap.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extraction.OCRStrategy.Extract: %w", err)
	}

	res := &domain.ExtractionResult{}
	for _, o := range outcomes {
		res.Records = append(res.Records, o.records...)
		if o.warning != nil {
			res.Warnings = append(res.Warnings, *o.warning)
		}
	}
	return res, nil
}

// recognizePage runs rasterization and recognition of one page under its
// own deadline. Recognizers that ignore ctx are abandoned at the deadline
// and their late output is discarded.
func (s *OCRStrategy) recognizePage(ctx context.Context, doc domain.Document, page int) (string, error) {
	pctx, cancel := context.WithTimeout(ctx, s.opts.PageTimeout)
	defer cancel()

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		text, err := s.rasterizeAndRecognize(pctx, doc, page)
		done <- outcome{text: text, err: err}
	}()

	select {
	case o := <-done:
		if ctx.Err() == nil && errors.Is(pctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: page %d after %s", domain.ErrOCRTimeout, page, s.opts.PageTimeout)
		}
		return o.text, o.err
	case <-pctx.Done():
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("%w: page %d after %s", domain.ErrOCRTimeout, page, s.opts.PageTimeout)
	}
}

func (s *OCRStrategy) rasterizeAndRecognize(ctx context.Context, doc domain.Document, page int) (string, error) {
	img, err := s.ocr.RasterizePage(ctx, doc, page, s.opts.DPI)
	if err != nil {
		return "", fmt.Errorf("rasterize page %d: %w", page, err)
	}
	text, err := s.ocr.Recognize(ctx, img)
	if err != nil {
		return "", fmt.Errorf("recognize page %d: %w", page, err)
	}
	return text, nil
}

func (s *OCRStrategy) pageRecords(text string, page int) []domain.Record {
	records := ParseKeyValues(text, page, domain.MethodOCR)
	if len(records) == 0 && s.opts.KeepRawText && strings.TrimSpace(text) != "" {
		records = []domain.Record{{
			Fields: []domain.Field{{Label: RawTextLabel, Value: strings.TrimSpace(text)}},
			Method: domain.MethodOCR,
			Page:   page,
		}}
	}
	return records
}

func unavailableWarning(err error) domain.Warning {
	return domain.Warning{Kind: domain.WarningOCRUnavailable, Message: err.Error()}
}
