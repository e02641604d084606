package extraction_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docschema/internal/domain"
	"docschema/internal/extraction"
	"docschema/mocks"
)

func TestParseKeyValues_SingleRecord(t *testing.T) {
	records := extraction.ParseKeyValues("Invoice: 4521\nTotal: 300\n\n", 1, domain.MethodKeyValueText)

	require.Len(t, records, 1)
	assert.Equal(t, []domain.Field{
		{Label: "Invoice", Value: "4521"},
		{Label: "Total", Value: "300"},
	}, records[0].Fields)
	assert.Equal(t, domain.MethodKeyValueText, records[0].Method)
	assert.Equal(t, 1, records[0].Page)
}

func TestParseKeyValues_Separators(t *testing.T) {
	records := extraction.ParseKeyValues("a: 1\nb：2\nc = 3\nTime: 10:30", 1, domain.MethodKeyValueText)

	require.Len(t, records, 1)
	assert.Equal(t, []domain.Field{
		{Label: "a", Value: "1"},
		{Label: "b", Value: "2"},
		{Label: "c", Value: "3"},
		{Label: "Time", Value: "10:30"},
	}, records[0].Fields)
}

func TestParseKeyValues_TwoBlankLinesCloseRecord(t *testing.T) {
	text := "Name: A\nQty: 1\n\nNote: same record\n\n\nName: B\nQty: 2"
	records := extraction.ParseKeyValues(text, 3, domain.MethodOCR)

	require.Len(t, records, 2)
	assert.Len(t, records[0].Fields, 3)
	assert.Equal(t, []domain.Field{{Label: "Name", Value: "B"}, {Label: "Qty", Value: "2"}}, records[1].Fields)
	assert.Equal(t, domain.MethodOCR, records[1].Method)
}

func TestParseKeyValues_IgnoresNoiseAndEmptyValues(t *testing.T) {
	text := "ACME CORP\nTotal:\n: orphan\nAmount: 12\nthank you"
	records := extraction.ParseKeyValues(text, 1, domain.MethodKeyValueText)

	require.Len(t, records, 1)
	assert.Equal(t, []domain.Field{{Label: "Amount", Value: "12"}}, records[0].Fields)
}

func TestParseKeyValues_RepeatedLabelKeepsLastValue(t *testing.T) {
	records := extraction.ParseKeyValues("Total: 1\nTax: 2\nTotal: 3", 1, domain.MethodKeyValueText)

	require.Len(t, records, 1)
	assert.Equal(t, []domain.Field{{Label: "Total", Value: "3"}, {Label: "Tax", Value: "2"}}, records[0].Fields)
}

func TestParseKeyValues_NoPairs(t *testing.T) {
	assert.Empty(t, extraction.ParseKeyValues("just prose\n\nmore prose", 1, domain.MethodKeyValueText))
	assert.Empty(t, extraction.ParseKeyValues("", 1, domain.MethodKeyValueText))
}

func TestKeyValueStrategy_Extract(t *testing.T) {
	pages := new(mocks.MockPageExtractor)
	pages.On("Text", mock.Anything, testDoc).Return([]string{"Invoice: 1", "nothing here", "Invoice: 2\r\nTotal: 5"}, nil)

	s := extraction.NewKeyValueStrategy(pages, zap.NewNop())
	res, err := s.Extract(context.Background(), testDoc)

	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, 1, res.Records[0].Page)
	assert.Equal(t, 3, res.Records[1].Page)
	assert.Len(t, res.Records[1].Fields, 2)
	pages.AssertNotCalled(t, "Tables", mock.Anything, mock.Anything)
}
