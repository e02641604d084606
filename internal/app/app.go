// Package app wires configuration into the ingestion pipeline shared by the
// HTTP server and the command-line ingester.
package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"docschema/internal/config"
	"docschema/internal/document"
	"docschema/internal/extraction"
	"docschema/internal/ocr"
	"docschema/internal/port"
	"docschema/internal/repository/sqlstore"
	"docschema/internal/service"
	s3storage "docschema/internal/storage/s3"
)

// App holds the opened database and the services built on top of it.
type App struct {
	DB     *sqlx.DB
	Store  *sqlstore.Store
	Ingest service.IngestService
	Tables service.TableService
	Export service.ExportService
}

// New migrates and opens the database and builds every service.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := sqlstore.Migrate(&cfg.DB); err != nil {
		return nil, fmt.Errorf("app.New: %w", err)
	}
	db, dialect, err := sqlstore.Open(&cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("app.New: %w", err)
	}
	logger.Info("app.New: database ready", zap.String("driver", dialect.Name()))

	store := sqlstore.New(db, dialect)
	runRepo := sqlstore.NewRunRepo(db)

	var archive port.SourceArchive
	if cfg.S3.Enabled {
		archive, err = s3storage.NewArchive(ctx, &cfg.S3)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("app.New: %w", err)
		}
		logger.Info("app.New: archiving source documents", zap.String("bucket", cfg.S3.Bucket))
	}

	pages := document.NewTabulaExtractor()
	orchestrator := extraction.NewOrchestrator(
		Strategies(cfg, pages, logger),
		cfg.Extraction.ProvenanceColumns,
		logger,
	)
	engine := service.NewSchemaEngine(store, logger)

	return &App{
		DB:    db,
		Store: store,
		Ingest: service.NewIngestService(
			document.NewValidator(), orchestrator, engine, runRepo, archive,
			service.IngestConfig{
				DefaultTable: cfg.Upload.DefaultTable,
				Bucket:       cfg.S3.Bucket,
				KeyPrefix:    cfg.S3.KeyPrefix,
			},
			logger,
		),
		Tables: service.NewTableService(store, store, runRepo, engine, logger),
		Export: service.NewExportService(store, store, logger),
	}, nil
}

// Strategies returns the extraction waterfall in evaluation order: tables,
// then key/value text, then OCR.
func Strategies(cfg *config.Config, pages port.PageExtractor, logger *zap.Logger) []port.Strategy {
	engine := cfg.OCR.Engine
	if !cfg.OCR.Enabled {
		engine = ocr.EngineNone
	}
	recognizer := ocr.New(ocr.Options{
		Engine:    engine,
		Language:  cfg.OCR.Language,
		Pdftoppm:  cfg.OCR.Pdftoppm,
		Tesseract: cfg.OCR.Tesseract,
	}, logger)

	return []port.Strategy{
		extraction.NewTableStrategy(pages, logger),
		extraction.NewKeyValueStrategy(pages, logger),
		extraction.NewOCRStrategy(pages, recognizer, extraction.OCROptions{
			DPI:         cfg.OCR.DPI,
			PageTimeout: cfg.OCR.PageTimeout,
			Workers:     cfg.OCR.Workers,
			KeepRawText: cfg.OCR.KeepRawText,
		}, logger),
	}
}

// Close releases the database handle.
func (a *App) Close() error {
	return a.DB.Close()
}
