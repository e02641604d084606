package extraction

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"docschema/internal/domain"
	"docschema/internal/port"
)

// kvLine matches "label: value", "label：value" and "label = value". The
// label runs up to the first separator.
var kvLine = regexp.MustCompile(`^\s*([^:：=]+?)\s*[:：=]\s*(.*?)\s*$`)

// KeyValueStrategy reads label/value lines from the text of each page.
type KeyValueStrategy struct {
	pages  port.PageExtractor
	logger *zap.Logger
}

// NewKeyValueStrategy creates a KeyValueStrategy.
func NewKeyValueStrategy(pages port.PageExtractor, logger *zap.Logger) *KeyValueStrategy {
	return &KeyValueStrategy{pages: pages, logger: logger}
}

func (s *KeyValueStrategy) Method() domain.ExtractionMethod {
	return domain.MethodKeyValueText
}

func (s *KeyValueStrategy) Extract(ctx context.Context, doc domain.Document) (*domain.ExtractionResult, error) {
	texts, err := s.pages.Text(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("extraction.KeyValueStrategy.Extract: %w", err)
	}

	res := &domain.ExtractionResult{}
	for i, text := range texts {
		records := ParseKeyValues(text, i+1, domain.MethodKeyValueText)
		if len(records) > 0 {
			s.logger.Debug("extraction.KeyValueStrategy.Extract: page",
				zap.Int("page", i+1), zap.Int("records", len(records)))
		}
		res.Records = append(res.Records, records...)
	}
	return res, nil
}

// ParseKeyValues groups the label/value lines of one page into records.
// Lines that are not label/value pairs are ignored; two consecutive blank
// lines close the current record. A label repeated inside one record keeps
// its first position and its last value.
func ParseKeyValues(text string, page int, method domain.ExtractionMethod) []domain.Record {
	var (
		records []domain.Record
		fields  []domain.Field
		blanks  int
	)
	flush := func() {
		if len(fields) > 0 {
			records = append(records, domain.Record{Fields: fields, Method: method, Page: page})
		}
		fields = nil
	}

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			blanks++
			if blanks >= 2 {
				flush()
			}
			continue
		}
		blanks = 0

		label, value, ok := splitKeyValue(line)
		if !ok {
			continue
		}
		fields = setField(fields, label, value)
	}
	flush()
	return records
}

func splitKeyValue(line string) (label, value string, ok bool) {
	m := kvLine.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	label, value = strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	if label == "" || value == "" {
		return "", "", false
	}
	return label, value, true
}

func setField(fields []domain.Field, label, value string) []domain.Field {
	for i := range fields {
		if fields[i].Label == label {
			fields[i].Value = value
			return fields
		}
	}
	return append(fields, domain.Field{Label: label, Value: value})
}
