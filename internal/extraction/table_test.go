package extraction_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docschema/internal/domain"
	"docschema/internal/extraction"
	"docschema/mocks"
)

var testDoc = domain.Document{Name: "invoice.pdf", Path: "/tmp/invoice.pdf", Format: domain.FormatPDF}

func TestGridRecords_Basic(t *testing.T) {
	g := domain.Grid{Page: 1, Index: 0, Rows: [][]string{
		{"Name", "Amount", "3 Month Total"},
		{"Acme", "120.50", "7"},
	}}

	records, warnings := extraction.GridRecords(g)

	assert.Empty(t, warnings)
	require.Len(t, records, 1)
	assert.Equal(t, domain.MethodTable, records[0].Method)
	assert.Equal(t, 1, records[0].Page)
	assert.Equal(t, []domain.Field{
		{Label: "Name", Value: "Acme"},
		{Label: "Amount", Value: "120.50"},
		{Label: "3 Month Total", Value: "7"},
	}, records[0].Fields)
}

func TestGridRecords_PadTruncateSkip(t *testing.T) {
	g := domain.Grid{Page: 2, Index: 1, Rows: [][]string{
		{"A", "B"},
		{"1"},
		{" ", ""},
		{"1", "2", "3"},
	}}

	records, warnings := extraction.GridRecords(g)

	require.Len(t, records, 2)
	assert.Equal(t, []domain.Field{{Label: "A", Value: "1"}, {Label: "B", Value: ""}}, records[0].Fields)
	assert.Equal(t, []domain.Field{{Label: "A", Value: "1"}, {Label: "B", Value: "2"}}, records[1].Fields)

	require.Len(t, warnings, 1)
	assert.Equal(t, domain.WarningRowTruncated, warnings[0].Kind)
	assert.Equal(t, 2, warnings[0].Page)
	assert.Equal(t, 3, warnings[0].Row)
}

func TestGridRecords_HeaderOnly(t *testing.T) {
	records, warnings := extraction.GridRecords(domain.Grid{Rows: [][]string{{"A", "B"}}})

	assert.Empty(t, records)
	assert.Empty(t, warnings)
}

func TestHeaderLabels(t *testing.T) {
	assert.Equal(t, []string{"Qty", "Qty 2", "", "", "Qty 3"}, extraction.HeaderLabels([]string{"Qty", " Qty", "", " ", "Qty"}))
	assert.Equal(t, []string{"A", "A 2", "A 3"}, extraction.HeaderLabels([]string{"A", "A 2", "A"}))
}

func TestTableStrategy_Extract(t *testing.T) {
	pages := new(mocks.MockPageExtractor)
	pages.On("Tables", mock.Anything, testDoc).Return([]domain.Grid{
		{Page: 1, Index: 0, Rows: [][]string{{"K", "V"}, {"a", "1"}}},
		{Page: 2, Index: 0, Rows: [][]string{{"K", "V"}, {"b", "2"}, {"c", "3"}}},
	}, nil)

	s := extraction.NewTableStrategy(pages, zap.NewNop())
	res, err := s.Extract(context.Background(), testDoc)

	require.NoError(t, err)
	assert.Len(t, res.Records, 3)
	assert.Equal(t, 2, res.Records[2].Page)
	assert.Equal(t, domain.MethodTable, s.Method())
}

func TestTableStrategy_ExtractorError(t *testing.T) {
	pages := new(mocks.MockPageExtractor)
	pages.On("Tables", mock.Anything, testDoc).Return(nil, domain.ErrUnsupportedDocument)

	s := extraction.NewTableStrategy(pages, zap.NewNop())
	res, err := s.Extract(context.Background(), testDoc)

	assert.Nil(t, res)
	assert.True(t, errors.Is(err, domain.ErrUnsupportedDocument))
}
