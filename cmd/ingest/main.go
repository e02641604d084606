// Command ingest runs the extraction pipeline on local documents and writes
// the records into a dynamic table.
// Usage: go run ./cmd/ingest -table invoices a.pdf b.docx
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"docschema/internal/app"
	"docschema/internal/config"
	"docschema/internal/document"
	"docschema/internal/domain"
	"docschema/internal/logging"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	table := flag.String("table", "", "target table (defaults to the configured default table)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-table NAME] FILE...\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing: %w", err)
	}
	defer func() { _ = a.Close() }()

	failed := 0
	for _, path := range flag.Args() {
		if err := ingestFile(ctx, a, path, *table); err != nil {
			failed++
			logger.Error("ingest: document failed", zap.String("path", path), zap.Error(err))
			continue
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, flag.NArg())
	}
	return nil
}

func ingestFile(ctx context.Context, a *app.App, path, table string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	format, err := document.FormatFromName(path)
	if err != nil {
		return err
	}

	doc := domain.Document{Name: filepath.Base(path), Path: path, Format: format, Size: info.Size()}
	res, err := a.Ingest.ProcessDocument(ctx, doc, table)
	if err != nil {
		return err
	}

	fmt.Printf("%s -> %s: method=%s extracted=%d inserted=%d skipped=%d run=%s\n",
		doc.Name, res.Table, res.Method, res.Extracted, res.Inserted, res.Skipped, res.RunID)
	for _, w := range res.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
	return nil
}
