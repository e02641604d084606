package service

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docschema/internal/domain"
	"docschema/internal/port"
	"docschema/internal/schema"
)

// sampleSize is the number of extracted records echoed back to the caller.
const sampleSize = 3

// ProcessResult summarizes one processed document.
type ProcessResult struct {
	RunID     uuid.UUID               `json:"run_id"`
	Table     string                  `json:"table_name"`
	Document  string                  `json:"document_name"`
	Method    domain.ExtractionMethod `json:"extraction_method"`
	Extracted int                     `json:"records_extracted"`
	Inserted  int                     `json:"records_inserted"`
	Skipped   int                     `json:"records_skipped"`
	Warnings  []domain.Warning        `json:"warnings"`
	Schema    domain.TableSchema      `json:"schema"`
	Samples   []map[string]string     `json:"sample_data"`
}

// IngestConfig holds the ingestion settings that are not collaborators.
type IngestConfig struct {
	DefaultTable string
	Bucket       string
	KeyPrefix    string
}

// IngestService defines the document ingestion contract.
type IngestService interface {
	// ProcessDocument extracts records from doc and writes them into table,
	// evolving its schema as needed. A document yielding no records is not
	// an error: the run is recorded and the result reports zero records
	// together with the warnings explaining why.
	ProcessDocument(ctx context.Context, doc domain.Document, table string) (*ProcessResult, error)
}

type ingestService struct {
	validator port.DocumentValidator
	extractor port.DocumentExtractor
	engine    *SchemaEngine
	runRepo   port.RunRepository
	archive   port.SourceArchive
	cfg       IngestConfig
	logger    *zap.Logger
}

// NewIngestService creates a new IngestService. archive may be nil, which
// disables archiving of source documents.
func NewIngestService(
	validator port.DocumentValidator,
	extractor port.DocumentExtractor,
	engine *SchemaEngine,
	runRepo port.RunRepository,
	archive port.SourceArchive,
	cfg IngestConfig,
	logger *zap.Logger,
) IngestService {
	return &ingestService{
		validator: validator,
		extractor: extractor,
		engine:    engine,
		runRepo:   runRepo,
		archive:   archive,
		cfg:       cfg,
		logger:    logger,
	}
}

func (s *ingestService) ProcessDocument(ctx context.Context, doc domain.Document, table string) (*ProcessResult, error) {
	if table == "" {
		table = s.cfg.DefaultTable
	}
	table, err := schema.NormalizeTableName(table)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(ctx, doc); err != nil {
		return nil, domain.NewStageError(domain.StageValidate, table, err)
	}

	runID := uuid.New()
	s.logger.Info("service.IngestService.ProcessDocument: processing",
		zap.String("run_id", runID.String()), zap.String("document", doc.Name),
		zap.String("format", string(doc.Format)), zap.Int64("size", doc.Size), zap.String("table", table))

	res := &ProcessResult{
		RunID:    runID,
		Table:    table,
		Document: doc.Name,
		Warnings: []domain.Warning{},
		Samples:  []map[string]string{},
	}
	if w := s.archiveSource(ctx, doc, table, runID); w != nil {
		res.Warnings = append(res.Warnings, *w)
	}

	extraction, err := s.extractor.Run(ctx, doc)
	if err != nil {
		return nil, domain.NewStageError(domain.StageExtract, table, err)
	}
	res.Method = extraction.Method
	res.Extracted = len(extraction.Records)
	res.Warnings = append(res.Warnings, extraction.Warnings...)
	for i := 0; i < len(extraction.Records) && i < sampleSize; i++ {
		res.Samples = append(res.Samples, extraction.Records[i].Map())
	}

	ingested, err := s.engine.Ingest(ctx, table, extraction.Records)
	if err != nil {
		return nil, err
	}
	res.Inserted = ingested.Inserted
	res.Skipped = ingested.Skipped
	res.Schema = ingested.Schema
	res.Warnings = append(res.Warnings, ingested.Warnings...)

	run := &domain.IngestRun{
		ID:           runID,
		TableName:    table,
		DocumentName: doc.Name,
		Method:       res.Method,
		Extracted:    res.Extracted,
		Inserted:     res.Inserted,
		Skipped:      res.Skipped,
		Warnings:     res.Warnings,
	}
	if err := s.runRepo.Create(ctx, run); err != nil {
		return nil, domain.NewStageError(domain.StageRecordRun, table, err)
	}

	s.logger.Info("service.IngestService.ProcessDocument: done",
		zap.String("run_id", runID.String()), zap.String("method", string(res.Method)),
		zap.Int("extracted", res.Extracted), zap.Int("inserted", res.Inserted),
		zap.Int("skipped", res.Skipped), zap.Int("warnings", len(res.Warnings)))

	return res, nil
}

// archiveSource uploads the source document. Failures never abort the run; they
// are reported as an archive_failed warning.
func (s *ingestService) archiveSource(ctx context.Context, doc domain.Document, table string, runID uuid.UUID) *domain.Warning {
	if s.archive == nil {
		return nil
	}
	key := path.Join(s.cfg.KeyPrefix, table, runID.String(), filepath.Base(doc.Name))

	err := func() error {
		f, err := os.Open(doc.Path)
		if err != nil {
			return err
		}
		defer f.Close()

		contentType := mime.TypeByExtension(filepath.Ext(doc.Name))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		_, err = s.archive.Put(ctx, port.ArchiveObject{
			Bucket:      s.cfg.Bucket,
			Key:         key,
			Body:        f,
			ContentType: contentType,
			Size:        doc.Size,
			Metadata: map[string]string{
				"table":    table,
				"run-id":   runID.String(),
				"document": doc.Name,
			},
		})
		return err
	}()
	if err == nil {
		return nil
	}
	s.logger.Error("service.IngestService.archiveSource: upload failed", zap.String("key", key), zap.Error(err))
	return &domain.Warning{
		Kind:    domain.WarningArchiveFailed,
		Message: fmt.Sprintf("archiving %s failed: %v", doc.Name, err),
	}
}
