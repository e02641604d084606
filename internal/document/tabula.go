// Package document adapts the page-extraction and PDF libraries to the
// extraction ports.
package document

import (
	"context"
	"fmt"
	"strings"

	"github.com/tsawler/tabula"
	"github.com/tsawler/tabula/docx"
	"github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/odt"
	"github.com/tsawler/tabula/reader"
	"github.com/tsawler/tabula/tables"
	"github.com/tsawler/tabula/text"

	"docschema/internal/domain"
)

// TabulaExtractor implements port.PageExtractor on top of tabula. PDF
// pages are read individually; DOCX and ODT documents have no fixed pages
// and are reported as a single page.
type TabulaExtractor struct {
	detector tables.Detector
}

// NewTabulaExtractor creates a TabulaExtractor using the geometric table
// detector with its default configuration.
func NewTabulaExtractor() *TabulaExtractor {
	return &TabulaExtractor{detector: tables.NewGeometricDetector()}
}

func (e *TabulaExtractor) PageCount(ctx context.Context, doc domain.Document) (int, error) {
	switch doc.Format {
	case domain.FormatDOCX, domain.FormatODT:
		return 1, nil
	case domain.FormatPDF:
		r, err := reader.Open(doc.Path)
		if err != nil {
			return 0, unsupported(doc, err)
		}
		defer r.Close()

		n, err := r.PageCount()
		if err != nil {
			return 0, unsupported(doc, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, doc.Format)
	}
}

func (e *TabulaExtractor) Tables(ctx context.Context, doc domain.Document) ([]domain.Grid, error) {
	switch doc.Format {
	case domain.FormatPDF:
		return e.pdfTables(ctx, doc)
	case domain.FormatDOCX:
		r, err := docx.Open(doc.Path)
		if err != nil {
			return nil, unsupported(doc, err)
		}
		defer r.Close()

		md, err := r.Document()
		if err != nil {
			return nil, unsupported(doc, err)
		}
		// tabula's DOCX model carries paragraphs only, so DOCX documents
		// normally fall through to the label/value text strategy.
		var grids []domain.Grid
		for _, p := range md.Pages {
			grids = append(grids, toGrids(1, p.ExtractTables())...)
		}
		return grids, nil
	case domain.FormatODT:
		r, err := odt.Open(doc.Path)
		if err != nil {
			return nil, unsupported(doc, err)
		}
		defer r.Close()
		return toGrids(1, r.ModelTables()), nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, doc.Format)
	}
}

func (e *TabulaExtractor) pdfTables(ctx context.Context, doc domain.Document) ([]domain.Grid, error) {
	r, err := reader.Open(doc.Path)
	if err != nil {
		return nil, unsupported(doc, err)
	}
	defer r.Close()

	n, err := r.PageCount()
	if err != nil {
		return nil, unsupported(doc, err)
	}

	var grids []domain.Grid
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := r.GetPage(i)
		if err != nil {
			return nil, fmt.Errorf("document.TabulaExtractor.Tables: page %d: %w", i+1, err)
		}
		fragments, err := r.ExtractTextFragments(page)
		if err != nil {
			return nil, fmt.Errorf("document.TabulaExtractor.Tables: page %d: %w", i+1, err)
		}

		width, _ := page.Width()
		height, _ := page.Height()
		mp := model.NewPage(width, height)
		mp.Number = i + 1
		mp.RawText = modelFragments(fragments)

		detected, err := e.detector.Detect(mp)
		if err != nil {
			return nil, fmt.Errorf("document.TabulaExtractor.Tables: page %d: %w", i+1, err)
		}
		grids = append(grids, toGrids(i+1, detected)...)
	}
	return grids, nil
}

func (e *TabulaExtractor) Text(ctx context.Context, doc domain.Document) ([]string, error) {
	switch doc.Format {
	case domain.FormatPDF:
		n, err := e.PageCount(ctx, doc)
		if err != nil {
			return nil, err
		}
		texts := make([]string, 0, n)
		for p := 1; p <= n; p++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			t, _, err := tabula.Open(doc.Path).Pages(p).Text()
			if err != nil {
				return nil, fmt.Errorf("document.TabulaExtractor.Text: page %d: %w", p, err)
			}
			texts = append(texts, t)
		}
		return texts, nil
	case domain.FormatDOCX:
		r, err := docx.Open(doc.Path)
		if err != nil {
			return nil, unsupported(doc, err)
		}
		defer r.Close()
		t, err := r.Text()
		if err != nil {
			return nil, fmt.Errorf("document.TabulaExtractor.Text: %w", err)
		}
		return []string{t}, nil
	case domain.FormatODT:
		r, err := odt.Open(doc.Path)
		if err != nil {
			return nil, unsupported(doc, err)
		}
		defer r.Close()
		t, err := r.Text()
		if err != nil {
			return nil, fmt.Errorf("document.TabulaExtractor.Text: %w", err)
		}
		return []string{t}, nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, doc.Format)
	}
}

func modelFragments(fragments []text.TextFragment) []model.TextFragment {
	out := make([]model.TextFragment, len(fragments))
	for i, f := range fragments {
		out[i] = model.TextFragment{
			Text:     f.Text,
			BBox:     model.BBox{X: f.X, Y: f.Y, Width: f.Width, Height: f.Height},
			FontSize: f.FontSize,
			FontName: f.FontName,
		}
	}
	return out
}

// toGrids converts detected tables into string grids, numbering them per
// page in detection order.
func toGrids(page int, detected []*model.Table) []domain.Grid {
	grids := make([]domain.Grid, 0, len(detected))
	for _, t := range detected {
		if t == nil || len(t.Rows) == 0 {
			continue
		}
		rows := make([][]string, len(t.Rows))
		for i, row := range t.Rows {
			rows[i] = make([]string, len(row))
			for j, cell := range row {
				rows[i][j] = strings.TrimSpace(cell.Text)
			}
		}
		grids = append(grids, domain.Grid{Page: page, Index: len(grids), Rows: rows})
	}
	return grids
}

func unsupported(doc domain.Document, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrUnsupportedDocument, doc.Name, err)
}
