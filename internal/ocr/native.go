//go:build ocr

package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// NativeRecognizer recognizes text in-process through gosseract. A client
// is created per call since gosseract clients are not safe for concurrent
// use.
type NativeRecognizer struct {
	language string
}

// NewNativeRecognizer creates a NativeRecognizer for the given tesseract
// language(s), e.g. "eng" or "eng+deu".
func NewNativeRecognizer(language string) (*NativeRecognizer, error) {
	return &NativeRecognizer{language: language}, nil
}

func (r *NativeRecognizer) Available() error {
	return nil
}

// Recognize checks ctx only before starting; tesseract itself cannot be
// interrupted, so callers enforce deadlines around it.
func (r *NativeRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(strings.Split(r.language, "+")...); err != nil {
		return "", fmt.Errorf("ocr.NativeRecognizer.Recognize: set language: %w", err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("ocr.NativeRecognizer.Recognize: set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr.NativeRecognizer.Recognize: %w", err)
	}
	return text, nil
}
