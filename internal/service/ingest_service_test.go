package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docschema/internal/domain"
	"docschema/internal/extraction"
	"docschema/internal/port"
	"docschema/internal/service"
	"docschema/mocks"
)

type ingestDeps struct {
	validator *mocks.MockDocumentValidator
	extractor *mocks.MockDocumentExtractor
	runRepo   *mocks.MockRunRepo
	storage   *mocks.MockSourceArchive
	store     port.SchemaStore
}

func newIngestService(t *testing.T, withStorage bool) (service.IngestService, *ingestDeps) {
	t.Helper()
	store, _ := newTestStore(t)
	d := &ingestDeps{
		validator: new(mocks.MockDocumentValidator),
		extractor: new(mocks.MockDocumentExtractor),
		runRepo:   new(mocks.MockRunRepo),
		storage:   new(mocks.MockSourceArchive),
		store:     store,
	}
	var storage port.SourceArchive
	if withStorage {
		storage = d.storage
	}
	svc := service.NewIngestService(
		d.validator, d.extractor,
		service.NewSchemaEngine(store, zap.NewNop()),
		d.runRepo, storage,
		service.IngestConfig{DefaultTable: "pdf_data", Bucket: "docs", KeyPrefix: "archive"},
		zap.NewNop(),
	)
	return svc, d
}

func testDocument(t *testing.T) domain.Document {
	t.Helper()
	path := filepath.Join(t.TempDir(), "invoice.pdf")
	content := []byte("%PDF-1.4 test")
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return domain.Document{Name: "invoice.pdf", Path: path, Format: domain.FormatPDF, Size: int64(len(content))}
}

func TestIngestService_ProcessDocument_Success(t *testing.T) {
	svc, d := newIngestService(t, false)
	doc := testDocument(t)

	records := []domain.Record{
		record(domain.MethodTable, "Name", "Acme", "Amount", "10"),
		record(domain.MethodTable, "Name", "Globex", "Amount", "20"),
		record(domain.MethodTable, "Name", "Initech", "Amount", "30"),
		record(domain.MethodTable, "Name", "Umbrella", "Amount", "40"),
	}
	d.validator.On("Validate", mock.Anything, doc).Return(nil)
	d.extractor.On("Run", mock.Anything, doc).Return(&domain.Extraction{Records: records, Method: domain.MethodTable}, nil)
	d.runRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *domain.IngestRun) bool {
		return r.TableName == "sales" && r.DocumentName == "invoice.pdf" &&
			r.Method == domain.MethodTable && r.Extracted == 4 && r.Inserted == 4
	})).Return(nil)

	res, err := svc.ProcessDocument(context.Background(), doc, "Sales")
	require.NoError(t, err)
	assert.Equal(t, "sales", res.Table)
	assert.Equal(t, domain.MethodTable, res.Method)
	assert.Equal(t, 4, res.Extracted)
	assert.Equal(t, 4, res.Inserted)
	assert.Len(t, res.Samples, 3)
	assert.Equal(t, "Acme", res.Samples[0]["Name"])
	assert.Len(t, res.Schema.Columns, 2)
	assert.Empty(t, res.Warnings)

	d.validator.AssertExpectations(t)
	d.extractor.AssertExpectations(t)
	d.runRepo.AssertExpectations(t)
}

func TestIngestService_ProcessDocument_DefaultTable(t *testing.T) {
	svc, d := newIngestService(t, false)
	doc := testDocument(t)

	d.validator.On("Validate", mock.Anything, doc).Return(nil)
	d.extractor.On("Run", mock.Anything, doc).Return(&domain.Extraction{
		Records: []domain.Record{record(domain.MethodKeyValueText, "Total", "5")},
		Method:  domain.MethodKeyValueText,
	}, nil)
	d.runRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.IngestRun")).Return(nil)

	res, err := svc.ProcessDocument(context.Background(), doc, "")
	require.NoError(t, err)
	assert.Equal(t, "pdf_data", res.Table)
}

func TestIngestService_ProcessDocument_InvalidTableName(t *testing.T) {
	svc, d := newIngestService(t, false)

	_, err := svc.ProcessDocument(context.Background(), testDocument(t), "meta_columns")
	assert.ErrorIs(t, err, domain.ErrInvalidTableName)
	d.validator.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything)
}

func TestIngestService_ProcessDocument_ValidationFails(t *testing.T) {
	svc, d := newIngestService(t, false)
	doc := testDocument(t)

	d.validator.On("Validate", mock.Anything, doc).Return(domain.ErrUnsupportedDocument)

	_, err := svc.ProcessDocument(context.Background(), doc, "sales")
	assert.ErrorIs(t, err, domain.ErrUnsupportedDocument)

	var stageErr *domain.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, domain.StageValidate, stageErr.Stage)
	d.extractor.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestIngestService_ProcessDocument_ExtractionFails(t *testing.T) {
	svc, d := newIngestService(t, false)
	doc := testDocument(t)

	d.validator.On("Validate", mock.Anything, doc).Return(nil)
	d.extractor.On("Run", mock.Anything, doc).Return(nil, errors.New("corrupt xref table"))

	_, err := svc.ProcessDocument(context.Background(), doc, "sales")
	var stageErr *domain.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, domain.StageExtract, stageErr.Stage)
	d.runRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestIngestService_ProcessDocument_RecordRunFails(t *testing.T) {
	svc, d := newIngestService(t, false)
	doc := testDocument(t)

	d.validator.On("Validate", mock.Anything, doc).Return(nil)
	d.extractor.On("Run", mock.Anything, doc).Return(&domain.Extraction{
		Records: []domain.Record{record(domain.MethodTable, "A", "1")},
		Method:  domain.MethodTable,
	}, nil)
	d.runRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	_, err := svc.ProcessDocument(context.Background(), doc, "sales")
	var stageErr *domain.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, domain.StageRecordRun, stageErr.Stage)
}

func TestIngestService_ProcessDocument_ArchivesSource(t *testing.T) {
	svc, d := newIngestService(t, true)
	doc := testDocument(t)

	d.validator.On("Validate", mock.Anything, doc).Return(nil)
	d.storage.On("Put", mock.Anything, mock.MatchedBy(func(in port.ArchiveObject) bool {
		return in.Bucket == "docs" && in.ContentType == "application/pdf" &&
			filepath.Dir(filepath.Dir(in.Key)) == "archive/sales" && filepath.Base(in.Key) == "invoice.pdf" &&
			in.Metadata["table"] == "sales" && in.Metadata["document"] == "invoice.pdf"
	})).Return(&port.ArchivedObject{Location: "s3://docs/x"}, nil)
	d.extractor.On("Run", mock.Anything, doc).Return(&domain.Extraction{
		Records: []domain.Record{record(domain.MethodTable, "A", "1")},
		Method:  domain.MethodTable,
	}, nil)
	d.runRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	res, err := svc.ProcessDocument(context.Background(), doc, "sales")
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	d.storage.AssertExpectations(t)
}

func TestIngestService_ProcessDocument_ArchiveFailureIsWarning(t *testing.T) {
	svc, d := newIngestService(t, true)
	doc := testDocument(t)

	d.validator.On("Validate", mock.Anything, doc).Return(nil)
	d.storage.On("Put", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))
	d.extractor.On("Run", mock.Anything, doc).Return(&domain.Extraction{
		Records: []domain.Record{record(domain.MethodTable, "A", "1")},
		Method:  domain.MethodTable,
	}, nil)
	d.runRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	res, err := svc.ProcessDocument(context.Background(), doc, "sales")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, domain.WarningArchiveFailed, res.Warnings[0].Kind)
}

// newPipeline wires the real strategy waterfall over mocked page and OCR
// collaborators.
func newPipeline(t *testing.T, pages *mocks.MockPageExtractor, ocr *mocks.MockOpticalRecognizer) (service.IngestService, *ingestDeps) {
	t.Helper()
	store, runs := newTestStore(t)
	logger := zap.NewNop()
	orchestrator := extraction.NewOrchestrator([]port.Strategy{
		extraction.NewTableStrategy(pages, logger),
		extraction.NewKeyValueStrategy(pages, logger),
		extraction.NewOCRStrategy(pages, ocr, extraction.OCROptions{}, logger),
	}, false, logger)

	validator := new(mocks.MockDocumentValidator)
	validator.On("Validate", mock.Anything, mock.Anything).Return(nil)

	svc := service.NewIngestService(validator, orchestrator,
		service.NewSchemaEngine(store, logger), runs, nil,
		service.IngestConfig{DefaultTable: "pdf_data"}, logger)
	return svc, &ingestDeps{validator: validator, store: store}
}

func TestIngestPipeline_KeyValueText(t *testing.T) {
	pages := new(mocks.MockPageExtractor)
	ocr := new(mocks.MockOpticalRecognizer)
	svc, d := newPipeline(t, pages, ocr)
	doc := testDocument(t)

	pages.On("Tables", mock.Anything, doc).Return(nil, nil)
	pages.On("Text", mock.Anything, doc).Return([]string{"Invoice: 4521\nTotal: 300\n\n"}, nil)

	res, err := svc.ProcessDocument(context.Background(), doc, "")
	require.NoError(t, err)
	assert.Equal(t, domain.MethodKeyValueText, res.Method)
	assert.Equal(t, 1, res.Inserted)

	ts, err := d.store.Schema(context.Background(), "pdf_data")
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.ColumnType{"invoice": domain.TypeInteger, "total": domain.TypeInteger}, columnTypes(ts))
	ocr.AssertNotCalled(t, "Available")
}

func TestIngestPipeline_NothingExtractableWithoutOCR(t *testing.T) {
	pages := new(mocks.MockPageExtractor)
	ocr := new(mocks.MockOpticalRecognizer)
	svc, _ := newPipeline(t, pages, ocr)
	doc := testDocument(t)

	pages.On("Tables", mock.Anything, doc).Return(nil, nil)
	pages.On("Text", mock.Anything, doc).Return([]string{"just prose, no fields"}, nil)
	ocr.On("Available").Return(domain.ErrOCRUnavailable)

	res, err := svc.ProcessDocument(context.Background(), doc, "")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 0, res.Extracted)
	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, domain.MethodOCR, res.Method)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, domain.WarningOCRUnavailable, res.Warnings[0].Kind)
}
