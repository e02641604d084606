package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/tsawler/tabula/format"

	"docschema/internal/domain"
)

// Validator checks that a file's content matches its declared format before
// any extraction runs. PDFs are additionally parsed and validated by pdfcpu
// in relaxed mode so that truncated or corrupt files fail early.
type Validator struct{}

// NewValidator creates a Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// FormatFromName maps a file name's extension to a document format.
func FormatFromName(name string) (domain.DocumentFormat, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	f, ok := domain.AllowedExtensions[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFileType, ext)
	}
	return f, nil
}

func (v *Validator) Validate(ctx context.Context, doc domain.Document) error {
	f, err := os.Open(doc.Path)
	if err != nil {
		return fmt.Errorf("document.Validator.Validate: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("document.Validator.Validate: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: %s is empty", domain.ErrUnsupportedDocument, doc.Name)
	}

	detected, err := format.DetectFromReader(f, info.Size())
	if err != nil {
		return unsupported(doc, err)
	}
	if !matches(detected, doc.Format) {
		return fmt.Errorf("%w: %s content is %s, expected %s", domain.ErrUnsupportedDocument, doc.Name, detected, doc.Format)
	}

	if doc.Format != domain.FormatPDF {
		return nil
	}
	if _, err := f.Seek(0, 0); err != nil {
		return fmt.Errorf("document.Validator.Validate: %w", err)
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if _, err := api.ReadValidateAndOptimize(f, conf); err != nil {
		return unsupported(doc, err)
	}
	return nil
}

func matches(detected format.Format, want domain.DocumentFormat) bool {
	switch want {
	case domain.FormatPDF:
		return detected == format.PDF
	case domain.FormatDOCX:
		return detected == format.DOCX
	case domain.FormatODT:
		return detected == format.ODT
	default:
		return false
	}
}
