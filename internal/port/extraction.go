package port

import (
	"context"

	"docschema/internal/domain"
)

// PageExtractor abstracts the page-oriented document library. Pages are
// 1-based; Text returns one entry per page.
type PageExtractor interface {
	PageCount(ctx context.Context, doc domain.Document) (int, error)
	Tables(ctx context.Context, doc domain.Document) ([]domain.Grid, error)
	Text(ctx context.Context, doc domain.Document) ([]string, error)
}

// OpticalRecognizer abstracts page rasterization and text recognition.
// Available returns domain.ErrOCRUnavailable when the capability is missing,
// which is distinct from recognizing empty text.
type OpticalRecognizer interface {
	Available() error
	RasterizePage(ctx context.Context, doc domain.Document, page, dpi int) ([]byte, error)
	Recognize(ctx context.Context, image []byte) (string, error)
}

// DocumentValidator rejects files that cannot be read as documents.
type DocumentValidator interface {
	Validate(ctx context.Context, doc domain.Document) error
}

// Strategy is one step of the extraction waterfall.
type Strategy interface {
	Method() domain.ExtractionMethod
	Extract(ctx context.Context, doc domain.Document) (*domain.ExtractionResult, error)
}

// DocumentExtractor turns a document into records by running the strategy
// waterfall.
type DocumentExtractor interface {
	Run(ctx context.Context, doc domain.Document) (*domain.Extraction, error)
}
