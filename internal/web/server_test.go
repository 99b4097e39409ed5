package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/mock/gomock"

	"github.com/JonMunkholm/records/internal/config"
	"github.com/JonMunkholm/records/internal/core"
	"github.com/JonMunkholm/records/internal/domain"
	"github.com/JonMunkholm/records/internal/metrics"
	"github.com/JonMunkholm/records/internal/spreadsheet"
	"github.com/JonMunkholm/records/internal/store"
	"github.com/JonMunkholm/records/internal/store/memory"
	mockstore "github.com/JonMunkholm/records/internal/store/mock"
)

// ============================================================================
// Helpers
// ============================================================================

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080, RequestTimeout: 10 * time.Second},
		Upload: config.UploadConfig{
			MaxFileSize:    1 << 20,
			MaxConcurrent:  2,
			MaxWaitTime:    time.Second,
			PersistTimeout: time.Minute,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}, MaxAge: 60},
	}
}

func newTestServer(t *testing.T, gw store.Gateway, cfg *config.Config) *Server {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	return NewServer(core.NewService(gw), cfg)
}

func do(t *testing.T, s *Server, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func doJSON(t *testing.T, s *Server, method, path string, v any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if v != nil {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	return do(t, s, method, path, body, "application/json")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func xlsxFile(t *testing.T, lines [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, line := range lines {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		l := line
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &l))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// multipartFile builds a form with data under "file". An empty filename
// builds a form without a file part.
func multipartFile(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file here"))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func upload(t *testing.T, s *Server, path, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartFile(t, filename, data)
	return do(t, s, http.MethodPost, path, body, ct)
}

func listRecords(t *testing.T, s *Server) []domain.Record {
	t.Helper()
	rec := do(t, s, http.MethodGet, "/record/", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	return decode[[]domain.Record](t, rec)
}

// ============================================================================
// Bulk upload
// ============================================================================

func TestBulkUpload_SkipsInvalidRows(t *testing.T) {
	s := newTestServer(t, memory.New(), nil)

	data := xlsxFile(t, [][]any{
		{"name", "position", "level"},
		{"Alice", "Engineer", "Senior"},
		{"", "Intern", "Intern"},
	})
	rec := upload(t, s, "/record/bulk-upload", "staff.xlsx", data)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[BulkUploadResponse](t, rec)
	require.True(t, resp.Success)
	require.Equal(t, 1, resp.Count)
	require.Equal(t, "Successfully inserted 1 records", resp.Message)
	require.Len(t, resp.InsertedIDs, 1)
	require.Len(t, resp.Rejected, 1)
	require.Equal(t, 3, resp.Rejected[0].Row)
	require.Contains(t, resp.Rejected[0].Reason, "name")

	records := listRecords(t, s)
	require.Len(t, records, 1)
	require.Equal(t, resp.InsertedIDs[0], records[0].ID)
	require.True(t, records[0].Equal(domain.Record{Name: "Alice", Position: "Engineer", Level: domain.LevelSenior}))
}

func TestBulkUpload_AllRowsStored(t *testing.T) {
	s := newTestServer(t, memory.New(), nil)

	csv := "name,position,level\nAnn,Dev,Intern\nBen,Ops,junior\nCat,QA,SENIOR\n"
	rec := upload(t, s, "/record/bulk-upload", "staff.csv", []byte(csv))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[BulkUploadResponse](t, rec)
	require.Equal(t, 3, resp.Count)
	require.Equal(t, 3, resp.TotalRows)
	require.Empty(t, resp.Rejected)
	require.Len(t, listRecords(t, s), 3)
}

func TestBulkUpload_ClientErrors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
		raw      bool
		wantCode string
	}{
		{name: "form without file", wantCode: "FILE004"},
		{name: "not multipart", raw: true, wantCode: "FILE004"},
		{name: "empty file", filename: "staff.xlsx", data: nil, wantCode: "FILE004"},
		{name: "corrupt workbook", filename: "staff.xlsx", data: []byte("definitely not a zip"), wantCode: "FILE002"},
		{name: "file name looks like timeout", filename: "timeout.xlsx", data: []byte("not a zip"), wantCode: "FILE002"},
		{name: "file name looks like not found", filename: "record not found.xlsx", data: []byte("not a zip"), wantCode: "FILE002"},
		{name: "file name looks like empty batch", filename: "no valid records.xlsx", data: []byte("not a zip"), wantCode: "FILE002"},
		{
			name:     "no valid rows",
			filename: "staff.csv",
			data:     []byte("name,position,level\n,Dev,Junior\nEve,Ops,Boss\n"),
			wantCode: "UPL001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, memory.New(), nil)

			var rec *httptest.ResponseRecorder
			if tt.raw {
				rec = do(t, s, http.MethodPost, "/record/bulk-upload", strings.NewReader("x"), "text/plain")
			} else {
				rec = upload(t, s, "/record/bulk-upload", tt.filename, tt.data)
			}

			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			if tt.wantCode != "" {
				require.Equal(t, tt.wantCode, decode[ErrorResponse](t, rec).Code)
			}
			require.Empty(t, listRecords(t, s))
		})
	}
}

func TestBulkUpload_EmptyBatchReportsRejectedRows(t *testing.T) {
	s := newTestServer(t, memory.New(), nil)

	rec := upload(t, s, "/record/bulk-upload", "staff.csv",
		[]byte("name,position,level\n,Dev,Junior\nEve,Ops,Boss\n"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decode[ErrorResponse](t, rec)
	require.Equal(t, "UPL001", resp.Code)
	require.Len(t, resp.Rejected, 2)
	require.Equal(t, 2, resp.Rejected[0].Row)
	require.Contains(t, resp.Rejected[1].Reason, "invalid level")
}

func TestBulkUpload_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxFileSize = 256
	s := newTestServer(t, memory.New(), cfg)

	rec := upload(t, s, "/record/bulk-upload", "big.csv", bytes.Repeat([]byte("a,b,c\n"), 200))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	require.Equal(t, "FILE001", decode[ErrorResponse](t, rec).Code)
}

func TestBulkUpload_StorageFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "driver error", err: errors.New("pool closed")},
		{name: "persist deadline", err: fmt.Errorf("copy records: %w", context.DeadlineExceeded)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			gw := mockstore.NewMockGateway(ctrl)
			gw.EXPECT().InsertMany(gomock.Any(), gomock.Len(1)).
				Return(store.InsertManyResult{}, tt.err)

			s := newTestServer(t, gw, nil)
			rec := upload(t, s, "/record/bulk-upload", "staff.csv", []byte("name,position,level\nAnn,Dev,Intern\n"))

			require.Equal(t, http.StatusInternalServerError, rec.Code, rec.Body.String())
			resp := decode[ErrorResponse](t, rec)
			require.Equal(t, "DB000", resp.Code)
			require.NotContains(t, resp.Message, tt.err.Error())
		})
	}
}

func TestBulkUpload_BusyLimiter(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxConcurrent = 1
	cfg.Upload.MaxWaitTime = 10 * time.Millisecond
	s := newTestServer(t, memory.New(), cfg)

	require.True(t, s.limiter.TryAcquire())
	defer s.limiter.Release()

	rec := upload(t, s, "/record/bulk-upload", "staff.csv", []byte("name,position,level\nAnn,Dev,Intern\n"))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "UPL002", decode[ErrorResponse](t, rec).Code)
}

func TestPreview_DoesNotStore(t *testing.T) {
	s := newTestServer(t, memory.New(), nil)

	rec := upload(t, s, "/record/bulk-upload/preview", "staff.csv",
		[]byte("name,position,level\nAnn,Dev,Intern\n,Ops,Junior\n"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[core.PreviewResult](t, rec)
	require.Equal(t, 2, res.TotalRows)
	require.Equal(t, 1, res.AcceptedCount)
	require.Equal(t, 1, res.RejectedCount)
	require.Len(t, res.Samples, 1)
	require.Empty(t, listRecords(t, s))
}

func TestTemplate(t *testing.T) {
	s := newTestServer(t, memory.New(), nil)

	rec := do(t, s, http.MethodGet, "/record/bulk-upload/template", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Disposition"), templateFilename)

	rows, err := spreadsheet.Decoder{}.Decode(templateFilename, rec.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Jane Doe", rows[0].Cells["name"])

	// The template itself is a valid upload.
	up := upload(t, s, "/record/bulk-upload", templateFilename, rec.Body.Bytes())
	require.Equal(t, http.StatusOK, up.Code, up.Body.String())
}

// ============================================================================
// Record CRUD
// ============================================================================

func TestCreateThenGet(t *testing.T) {
	s := newTestServer(t, memory.New(), nil)

	rec := doJSON(t, s, http.MethodPost, "/record/", map[string]string{
		"name": "Bob", "position": "Analyst", "level": "Junior",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[InsertOneResponse](t, rec)
	require.True(t, created.Acknowledged)
	require.NotEmpty(t, created.InsertedID)

	rec = do(t, s, http.MethodGet, "/record/"+created.InsertedID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[domain.Record](t, rec)
	require.Equal(t, domain.Record{
		ID: created.InsertedID, Name: "Bob", Position: "Analyst", Level: domain.LevelJunior,
	}, got)
}

func TestCreate_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		body     any
		wantCode string
	}{
		{name: "missing level", body: map[string]string{"name": "Bob", "position": "Manager"}, wantCode: "VAL003"},
		{name: "blank name", body: map[string]string{"name": "  ", "position": "Manager", "level": "Junior"}, wantCode: "VAL003"},
		{name: "unknown level", body: map[string]string{"name": "Bob", "position": "Manager", "level": "Boss"}, wantCode: "VAL006"},
		{name: "not json", body: "nope", wantCode: "VAL001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, memory.New(), nil)
			rec := doJSON(t, s, http.MethodPost, "/record/", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			require.Equal(t, tt.wantCode, decode[ErrorResponse](t, rec).Code)
			require.Empty(t, listRecords(t, s))
		})
	}
}

func TestUpdate(t *testing.T) {
	s := newTestServer(t, memory.New(), nil)
	created := decode[InsertOneResponse](t, doJSON(t, s, http.MethodPost, "/record/",
		map[string]string{"name": "Bob", "position": "Manager", "level": "Senior"}))

	body := map[string]string{"name": "Bob", "position": "Director", "level": "Senior"}

	rec := doJSON(t, s, http.MethodPatch, "/record/"+created.InsertedID, body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, UpdateResponse{Acknowledged: true, MatchedCount: 1, ModifiedCount: 1}, decode[UpdateResponse](t, rec))

	rec = doJSON(t, s, http.MethodPatch, "/record/"+created.InsertedID, body)
	require.Equal(t, UpdateResponse{Acknowledged: true, MatchedCount: 1, ModifiedCount: 0}, decode[UpdateResponse](t, rec))

	rec = doJSON(t, s, http.MethodPatch, "/record/missing", body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, UpdateResponse{Acknowledged: true}, decode[UpdateResponse](t, rec))

	rec = doJSON(t, s, http.MethodPatch, "/record/"+created.InsertedID, map[string]string{"name": "Bob"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteThenGet(t *testing.T) {
	s := newTestServer(t, memory.New(), nil)
	created := decode[InsertOneResponse](t, doJSON(t, s, http.MethodPost, "/record/",
		map[string]string{"name": "Bob", "position": "Manager", "level": "Senior"}))

	rec := do(t, s, http.MethodDelete, "/record/"+created.InsertedID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, DeleteResponse{Acknowledged: true, DeletedCount: 1}, decode[DeleteResponse](t, rec))

	rec = do(t, s, http.MethodGet, "/record/"+created.InsertedID, nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "REC001", decode[ErrorResponse](t, rec).Code)

	rec = do(t, s, http.MethodDelete, "/record/"+created.InsertedID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, DeleteResponse{Acknowledged: true}, decode[DeleteResponse](t, rec))
}

func TestListFilters(t *testing.T) {
	s := newTestServer(t, memory.New(), nil)
	rec := upload(t, s, "/record/bulk-upload", "staff.csv",
		[]byte("name,position,level\nAnn,Developer,Intern\nBen,DevOps,Junior\nCat,QA,Junior\n"))
	require.Equal(t, http.StatusOK, rec.Code)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"Ann", "Ben", "Cat"}},
		{"?level=junior", []string{"Ben", "Cat"}},
		{"?q=dev", []string{"Ann", "Ben"}},
		{"?level=Junior&q=DEV", []string{"Ben"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, "/record/"+tt.query, nil, "")
			require.Equal(t, http.StatusOK, rec.Code)
			var names []string
			for _, r := range decode[[]domain.Record](t, rec) {
				names = append(names, r.Name)
			}
			require.Equal(t, tt.want, names)
		})
	}

	rec = do(t, s, http.MethodGet, "/record/?level=Boss", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListEmptyIsArray(t *testing.T) {
	s := newTestServer(t, memory.New(), nil)
	rec := do(t, s, http.MethodGet, "/record", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String())
}

func TestBulkDelete(t *testing.T) {
	s := newTestServer(t, memory.New(), nil)
	resp := decode[BulkUploadResponse](t, upload(t, s, "/record/bulk-upload", "staff.csv",
		[]byte("name,position,level\nAnn,Dev,Intern\nBen,Ops,Junior\nCat,QA,Senior\n")))
	require.Len(t, resp.InsertedIDs, 3)

	rec := doJSON(t, s, http.MethodPost, "/record/bulk-delete", BulkDeleteRequest{
		IDs: []string{resp.InsertedIDs[0], resp.InsertedIDs[2], "missing"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, DeleteResponse{Acknowledged: true, DeletedCount: 2}, decode[DeleteResponse](t, rec))

	records := listRecords(t, s)
	require.Len(t, records, 1)
	require.Equal(t, "Ben", records[0].Name)
}

// ============================================================================
// Operational endpoints and middleware
// ============================================================================

func TestHealth(t *testing.T) {
	s := newTestServer(t, memory.New(), nil)
	rec := do(t, s, http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)

	ctrl := gomock.NewController(t)
	gw := mockstore.NewMockGateway(ctrl)
	gw.EXPECT().Ping(gomock.Any()).Return(errors.New("connection refused"))
	rec = do(t, newTestServer(t, gw, nil), http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "DB004", decode[ErrorResponse](t, rec).Code)
}

func TestDocs(t *testing.T) {
	s := newTestServer(t, memory.New(), nil)

	rec := do(t, s, http.MethodGet, "/docs/openapi.yaml", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "/record/bulk-upload")

	rec = do(t, s, http.MethodGet, "/docs/", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Employee Records API")
}

func TestMetricsEndpoint(t *testing.T) {
	m, err := metrics.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	s := NewServer(core.NewService(memory.New(), core.WithRecorder(m)), testConfig(), WithMetrics(m))
	upload(t, s, "/record/bulk-upload", "staff.csv", []byte("name,position,level\nAnn,Dev,Intern\n"))

	rec := do(t, s, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `route="/record/bulk-upload"`)
	require.Contains(t, rec.Body.String(), `outcome="success"`)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, UploadLimit: 1}
	s := newTestServer(t, memory.New(), cfg)

	require.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/record/", nil, "").Code)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/record/", nil, "").Code)

	rec := do(t, s, http.MethodGet, "/record/", nil, "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Equal(t, "RATE001", decode[ErrorResponse](t, rec).Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, memory.New(), nil)

	req := httptest.NewRequest(http.MethodOptions, "/record/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
