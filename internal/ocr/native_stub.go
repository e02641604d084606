//go:build !ocr

package ocr

import (
	"context"
	"fmt"

	"docschema/internal/domain"
)

// NativeRecognizer is the stub used when the binary is built without the
// "ocr" tag. Rebuild with -tags ocr to recognize text in-process.
type NativeRecognizer struct{}

// NewNativeRecognizer always fails with domain.ErrOCRUnavailable.
func NewNativeRecognizer(string) (*NativeRecognizer, error) {
	return nil, fmt.Errorf("%w: built without -tags ocr", domain.ErrOCRUnavailable)
}

func (r *NativeRecognizer) Available() error {
	return fmt.Errorf("%w: built without -tags ocr", domain.ErrOCRUnavailable)
}

func (r *NativeRecognizer) Recognize(context.Context, []byte) (string, error) {
	return "", r.Available()
}
