package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docschema/internal/domain"
	"docschema/internal/export"
	"docschema/internal/handler"
	"docschema/mocks"
)

type tableFixture struct {
	tables  *mocks.MockTableService
	exports *mocks.MockExportService
	router  *gin.Engine
}

func newTableFixture() *tableFixture {
	f := &tableFixture{
		tables:  new(mocks.MockTableService),
		exports: new(mocks.MockExportService),
	}
	h := handler.NewTableHandler(f.tables, f.exports)
	runs := handler.NewRunHandler(f.tables)

	r := gin.New()
	r.GET("/tables", h.List)
	r.DELETE("/tables/:table", h.Drop)
	r.GET("/tables/:table/schema", h.Schema)
	r.GET("/tables/:table/analysis", h.Analysis)
	r.GET("/tables/:table/export", h.Export)
	r.GET("/tables/:table/rows", h.Rows)
	r.POST("/tables/:table/rows", h.AddRow)
	r.GET("/tables/:table/rows/:id", h.GetRow)
	r.PUT("/tables/:table/rows/:id", h.UpdateRow)
	r.DELETE("/tables/:table/rows/:id", h.DeleteRow)
	r.GET("/runs", runs.List)
	r.GET("/runs/:id", runs.GetByID)
	f.router = r
	return f
}

func (f *tableFixture) do(method, path string, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	if body == nil {
		body = http.NoBody
	}
	req, _ := http.NewRequest(method, path, body)
	if method == http.MethodPost || method == http.MethodPut {
		req.Header.Set("Content-Type", "application/json")
	}
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) handler.APIResponse {
	t.Helper()
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestTableHandler_List(t *testing.T) {
	f := newTableFixture()
	f.tables.On("ListTables", mock.Anything).Return([]domain.TableInfo{{Name: "invoices", RowCount: 3}}, nil)

	w := f.do(http.MethodGet, "/tables", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode(t, w).Success)
	assert.Contains(t, w.Body.String(), `"row_count":3`)
}

func TestTableHandler_Schema_NotFound(t *testing.T) {
	f := newTableFixture()
	f.tables.On("GetSchema", mock.Anything, "missing").Return(nil, domain.ErrTableNotFound)

	w := f.do(http.MethodGet, "/tables/missing/schema", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decode(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "TABLE_NOT_FOUND", resp.Error.Code)
}

func TestTableHandler_Rows_Paginated(t *testing.T) {
	f := newTableFixture()
	rows := []domain.Row{{"id": int64(3), "name": "Acme"}}
	f.tables.On("ListRows", mock.Anything, "invoices", 2, 1).Return(rows, int64(7), nil)

	w := f.do(http.MethodGet, "/tables/invoices/rows?offset=2&limit=1", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, handler.PagMeta{Total: 7, Offset: 2, Limit: 1}, *resp.Meta)
}

func TestTableHandler_Rows_DefaultPagination(t *testing.T) {
	f := newTableFixture()
	f.tables.On("ListRows", mock.Anything, "invoices", 0, 20).Return([]domain.Row{}, int64(0), nil)

	w := f.do(http.MethodGet, "/tables/invoices/rows?limit=5000&offset=-4", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	f.tables.AssertExpectations(t)
}

func TestTableHandler_GetRow_InvalidID(t *testing.T) {
	f := newTableFixture()

	w := f.do(http.MethodGet, "/tables/invoices/rows/abc", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.tables.AssertNotCalled(t, "GetRow", mock.Anything, mock.Anything, mock.Anything)
}

func TestTableHandler_AddRow_StringifiesValues(t *testing.T) {
	f := newTableFixture()
	want := map[string]string{"name": "Acme", "amount": "120.50", "qty": "7", "paid": "true", "note": ""}
	f.tables.On("AddRow", mock.Anything, "invoices", want).
		Return(domain.Row{"id": int64(1), "name": "Acme"}, nil)

	body := `{"name":"Acme","amount":120.50,"qty":7,"paid":true,"note":null}`
	w := f.do(http.MethodPost, "/tables/invoices/rows", strings.NewReader(body))

	assert.Equal(t, http.StatusCreated, w.Code)
	f.tables.AssertExpectations(t)
}

func TestTableHandler_AddRow_RejectsNestedValues(t *testing.T) {
	f := newTableFixture()

	w := f.do(http.MethodPost, "/tables/invoices/rows", strings.NewReader(`{"items":[1,2]}`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.tables.AssertNotCalled(t, "AddRow", mock.Anything, mock.Anything, mock.Anything)
}

func TestTableHandler_AddRow_InvalidJSON(t *testing.T) {
	f := newTableFixture()

	w := f.do(http.MethodPost, "/tables/invoices/rows", strings.NewReader(`not json`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTableHandler_AddRow_CoercionError(t *testing.T) {
	f := newTableFixture()
	rowErr := &domain.RowError{Row: 1, Column: "qty", Value: "99999999999999999999", Err: errors.New("out of range")}
	f.tables.On("AddRow", mock.Anything, "invoices", mock.Anything).Return(nil, rowErr)

	w := f.do(http.MethodPost, "/tables/invoices/rows", strings.NewReader(`{"qty":"99999999999999999999"}`))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decode(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ROW_COERCION", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "qty")
}

func TestTableHandler_UpdateRow(t *testing.T) {
	f := newTableFixture()
	f.tables.On("UpdateRow", mock.Anything, "invoices", int64(4), map[string]string{"name": "Globex"}).
		Return(domain.Row{"id": int64(4), "name": "Globex"}, nil)

	w := f.do(http.MethodPut, "/tables/invoices/rows/4", strings.NewReader(`{"name":"Globex"}`))

	assert.Equal(t, http.StatusOK, w.Code)
	f.tables.AssertExpectations(t)
}

func TestTableHandler_UpdateRow_NotFound(t *testing.T) {
	f := newTableFixture()
	f.tables.On("UpdateRow", mock.Anything, "invoices", int64(9), mock.Anything).Return(nil, domain.ErrRowNotFound)

	w := f.do(http.MethodPut, "/tables/invoices/rows/9", strings.NewReader(`{"name":"x"}`))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTableHandler_DeleteRow(t *testing.T) {
	f := newTableFixture()
	f.tables.On("DeleteRow", mock.Anything, "invoices", int64(2)).Return(nil)

	w := f.do(http.MethodDelete, "/tables/invoices/rows/2", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	f.tables.AssertExpectations(t)
}

func TestTableHandler_Drop(t *testing.T) {
	f := newTableFixture()
	f.tables.On("DropTable", mock.Anything, "invoices").Return(nil)

	w := f.do(http.MethodDelete, "/tables/invoices", nil)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTableHandler_Drop_InvalidName(t *testing.T) {
	f := newTableFixture()
	f.tables.On("DropTable", mock.Anything, "meta_tables").Return(domain.ErrInvalidTableName)

	w := f.do(http.MethodDelete, "/tables/meta_tables", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTableHandler_Analysis(t *testing.T) {
	f := newTableFixture()
	analysis := &domain.TableAnalysis{
		Table:        "sales",
		TotalRecords: 2,
		Columns:      []string{"amount"},
		ColumnCount:  1,
		NumericStats: map[string]domain.ColumnStats{"amount": {Min: 1, Max: 3, Avg: 2, Count: 2}},
	}
	f.tables.On("Analyze", mock.Anything, "sales").Return(analysis, nil)

	w := f.do(http.MethodGet, "/tables/sales/analysis", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_records":2`)
}

func TestTableHandler_Export_CSV(t *testing.T) {
	f := newTableFixture()
	f.tables.On("GetSchema", mock.Anything, "Sales").Return(&domain.TableSchema{Name: "sales"}, nil)
	f.exports.On("Export", mock.Anything, "sales", export.FormatCSV, mock.Anything).
		Run(func(args mock.Arguments) {
			w := args.Get(3).(io.Writer)
			_, _ = w.Write(export.BOM)
			_, _ = w.Write([]byte("id\n"))
		}).Return(nil)

	w := f.do(http.MethodGet, "/tables/Sales/export?format=csv", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.FormatCSV.ContentType(), w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `attachment; filename="sales_`)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), export.BOM))
}

func TestTableHandler_Export_TableNotFound(t *testing.T) {
	f := newTableFixture()
	f.tables.On("GetSchema", mock.Anything, "missing").Return(nil, domain.ErrTableNotFound)

	w := f.do(http.MethodGet, "/tables/missing/export", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Header().Get("Content-Disposition"))
	f.exports.AssertNotCalled(t, "Export", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTableHandler_Export_UnsupportedFormat(t *testing.T) {
	f := newTableFixture()

	w := f.do(http.MethodGet, "/tables/sales/export?format=pdf", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "UNSUPPORTED_FORMAT")
}

func TestRunHandler_List(t *testing.T) {
	f := newTableFixture()
	runs := []domain.IngestRun{{ID: uuid.New(), TableName: "sales", Method: domain.MethodTable, Inserted: 2}}
	f.tables.On("ListRuns", mock.Anything, "sales", 0, 20).Return(runs, 1, nil)

	w := f.do(http.MethodGet, "/runs?table=sales", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(1), resp.Meta.Total)
}

func TestRunHandler_GetByID(t *testing.T) {
	f := newTableFixture()
	id := uuid.New()
	f.tables.On("GetRun", mock.Anything, id).Return(&domain.IngestRun{ID: id}, nil)

	w := f.do(http.MethodGet, "/runs/"+id.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/runs/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunHandler_GetByID_NotFound(t *testing.T) {
	f := newTableFixture()
	id := uuid.New()
	f.tables.On("GetRun", mock.Anything, id).Return(nil, domain.ErrRunNotFound)

	w := f.do(http.MethodGet, "/runs/"+id.String(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
