package domain

// ColumnType is the inferred storage type of a column or a raw value.
// The zero value is TypeNull, which only ever describes values, never columns.
type ColumnType string

const (
	TypeNull    ColumnType = "null"
	TypeInteger ColumnType = "integer"
	TypeFloat   ColumnType = "float"
	TypeText    ColumnType = "text"
)

// rank orders types along the promotion lattice null < integer < float < text.
func (t ColumnType) rank() int {
	switch t {
	case TypeInteger:
		return 1
	case TypeFloat:
		return 2
	case TypeText:
		return 3
	default:
		return 0
	}
}

// Wider reports whether t sits strictly above o in the promotion order.
func (t ColumnType) Wider(o ColumnType) bool {
	return t.rank() > o.rank()
}

// Valid reports whether t can be used as a column type.
func (t ColumnType) Valid() bool {
	return t == TypeInteger || t == TypeFloat || t == TypeText
}

// ExtractionMethod tags the strategy that produced a record.
type ExtractionMethod string

const (
	MethodNone         ExtractionMethod = ""
	MethodTable        ExtractionMethod = "table"
	MethodKeyValueText ExtractionMethod = "key_value_text"
	MethodOCR          ExtractionMethod = "tesseract_ocr"
)

// DocumentFormat identifies the container format of an uploaded document.
type DocumentFormat string

const (
	FormatPDF  DocumentFormat = "pdf"
	FormatDOCX DocumentFormat = "docx"
	FormatODT  DocumentFormat = "odt"
)

// AllowedExtensions maps file extensions (without dot) to DocumentFormat.
var AllowedExtensions = map[string]DocumentFormat{
	"pdf":  FormatPDF,
	"docx": FormatDOCX,
	"odt":  FormatODT,
}

// WarningKind classifies a non-fatal problem reported alongside a result.
type WarningKind string

const (
	WarningRowTruncated   WarningKind = "row_truncated"
	WarningOCRUnavailable WarningKind = "ocr_unavailable"
	WarningOCRTimeout     WarningKind = "ocr_timeout"
	WarningOCRPageFailed  WarningKind = "ocr_page_failed"
	WarningRowCoercion    WarningKind = "row_coercion"
	WarningArchiveFailed  WarningKind = "archive_failed"
)

// Stage names a step of the ingestion pipeline, used in StageError.
type Stage string

const (
	StageValidate  Stage = "validate"
	StageExtract   Stage = "extract"
	StageReconcile Stage = "reconcile"
	StageInsert    Stage = "insert"
	StageRecordRun Stage = "record_run"
)
