// Package ocr rasterizes document pages and recognizes their text. Pages are
// rendered with pdftoppm; text is recognized either in-process through
// gosseract (built with -tags ocr) or by the tesseract command.
package ocr

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"docschema/internal/domain"
)

// Engine names accepted in configuration.
const (
	EngineAuto   = "auto"
	EngineNative = "native"
	EngineCLI    = "cli"
	EngineNone   = "none"
)

// TextRecognizer turns a page image into text.
type TextRecognizer interface {
	Available() error
	Recognize(ctx context.Context, image []byte) (string, error)
}

// Options configures an Engine.
type Options struct {
	Engine    string
	Language  string
	Pdftoppm  string
	Tesseract string
	Runner    Runner
	LookPath  func(file string) (string, error)
}

func (o Options) withDefaults(logger *zap.Logger) Options {
	if o.Engine == "" {
		o.Engine = EngineAuto
	}
	if o.Language == "" {
		o.Language = "eng"
	}
	if o.Pdftoppm == "" {
		o.Pdftoppm = "pdftoppm"
	}
	if o.Tesseract == "" {
		o.Tesseract = "tesseract"
	}
	if o.Runner == nil {
		o.Runner = NewExecRunner(logger)
	}
	if o.LookPath == nil {
		o.LookPath = exec.LookPath
	}
	return o
}

// Engine implements port.OpticalRecognizer.
type Engine struct {
	opts       Options
	recognizer TextRecognizer
	logger     *zap.Logger
}

// New creates an Engine for the configured recognizer. "auto" prefers the
// in-process recognizer and falls back to the tesseract command. "none"
// yields an engine that always reports domain.ErrOCRUnavailable.
func New(opts Options, logger *zap.Logger) *Engine {
	opts = opts.withDefaults(logger)
	e := &Engine{opts: opts, logger: logger}

	switch opts.Engine {
	case EngineNone:
		e.recognizer = disabled{reason: "disabled by configuration"}
	case EngineNative:
		e.recognizer = nativeOrDisabled(opts.Language)
	case EngineCLI:
		e.recognizer = NewCLIRecognizer(opts.Runner, opts.Tesseract, opts.Language, opts.LookPath)
	default:
		if r := nativeOrDisabled(opts.Language); r.Available() == nil {
			e.recognizer = r
		} else {
			e.recognizer = NewCLIRecognizer(opts.Runner, opts.Tesseract, opts.Language, opts.LookPath)
		}
	}
	return e
}

// NewWithRecognizer creates an Engine around an explicit recognizer.
func NewWithRecognizer(opts Options, recognizer TextRecognizer, logger *zap.Logger) *Engine {
	return &Engine{opts: opts.withDefaults(logger), recognizer: recognizer, logger: logger}
}

func (e *Engine) Available() error {
	if err := e.recognizer.Available(); err != nil {
		return err
	}
	if _, err := e.opts.LookPath(e.opts.Pdftoppm); err != nil {
		return fmt.Errorf("%w: %s not found: %v", domain.ErrOCRUnavailable, e.opts.Pdftoppm, err)
	}
	return nil
}

// RasterizePage renders one 1-based page of a PDF to PNG.
func (e *Engine) RasterizePage(ctx context.Context, doc domain.Document, page, dpi int) ([]byte, error) {
	if doc.Format != domain.FormatPDF {
		return nil, fmt.Errorf("%w: cannot rasterize %s documents", domain.ErrOCRUnavailable, doc.Format)
	}

	tmpDir, err := os.MkdirTemp("", "docschema-pp-*")
	if err != nil {
		return nil, fmt.Errorf("ocr.Engine.RasterizePage: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("ocr.Engine.RasterizePage: removing temp dir", zap.String("dir", tmpDir), zap.Error(err))
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	p := strconv.Itoa(page)
	// pdftoppm -r <dpi> -png -f <p> -l <p> -singlefile <in.pdf> <tmp/page>
	_, errb, err := e.opts.Runner.Run(ctx, e.opts.Pdftoppm,
		"-r", strconv.Itoa(dpi), "-png", "-f", p, "-l", p, "-singlefile", doc.Path, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(string(errb)))
	}

	img, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm produced no image for page %d: %w", page, err)
	}
	return img, nil
}

func (e *Engine) Recognize(ctx context.Context, image []byte) (string, error) {
	return e.recognizer.Recognize(ctx, image)
}

// disabled reports unavailability for every call.
type disabled struct {
	reason string
}

func (d disabled) Available() error {
	return fmt.Errorf("%w: %s", domain.ErrOCRUnavailable, d.reason)
}

func (d disabled) Recognize(context.Context, []byte) (string, error) {
	return "", d.Available()
}

func nativeOrDisabled(lang string) TextRecognizer {
	r, err := NewNativeRecognizer(lang)
	if err != nil {
		return disabled{reason: err.Error()}
	}
	return r
}
