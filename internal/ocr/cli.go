package ocr

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"docschema/internal/domain"
)

var reBoxNoise = regexp.MustCompile(`[│┃┆┇┊┋]+`)

// CLIRecognizer runs the tesseract command on a temporary image file.
type CLIRecognizer struct {
	runner   Runner
	binary   string
	language string
	lookPath func(string) (string, error)
}

// NewCLIRecognizer creates a CLIRecognizer.
func NewCLIRecognizer(runner Runner, binary, language string, lookPath func(string) (string, error)) *CLIRecognizer {
	return &CLIRecognizer{runner: runner, binary: binary, language: language, lookPath: lookPath}
}

func (r *CLIRecognizer) Available() error {
	if _, err := r.lookPath(r.binary); err != nil {
		return fmt.Errorf("%w: %s not found: %v", domain.ErrOCRUnavailable, r.binary, err)
	}
	return nil
}

func (r *CLIRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	f, err := os.CreateTemp("", "docschema-ocr-*.png")
	if err != nil {
		return "", fmt.Errorf("ocr.CLIRecognizer.Recognize: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(image); err != nil {
		f.Close()
		return "", fmt.Errorf("ocr.CLIRecognizer.Recognize: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("ocr.CLIRecognizer.Recognize: %w", err)
	}

	// tesseract <file> stdout -l <lang>
	out, errb, err := r.runner.Run(ctx, r.binary, path, "stdout", "-l", r.language)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(string(errb)))
	}
	return reBoxNoise.ReplaceAllString(string(out), ""), nil
}
