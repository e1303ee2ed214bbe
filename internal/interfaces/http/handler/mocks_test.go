package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	importapp "github.com/orgmap/backend/internal/application/import"
	"github.com/orgmap/backend/internal/domain/bulk"
	"github.com/orgmap/backend/internal/domain/organization"
	"github.com/orgmap/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockCatalogImporter struct {
	mock.Mock
}

func (m *MockCatalogImporter) Import(ctx context.Context, upload importapp.Upload) (*importapp.UploadResult, error) {
	args := m.Called(ctx, upload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*importapp.UploadResult), args.Error(1)
}

type MockImportHistoryReader struct {
	mock.Mock
}

func (m *MockImportHistoryReader) ListHistory(ctx context.Context, filter importapp.ListHistoryFilter, page, pageSize int) (*bulk.ImportHistoryListResult, error) {
	args := m.Called(ctx, filter, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bulk.ImportHistoryListResult), args.Error(1)
}

func (m *MockImportHistoryReader) GetHistory(ctx context.Context, historyID uuid.UUID) (*bulk.ImportHistory, error) {
	args := m.Called(ctx, historyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bulk.ImportHistory), args.Error(1)
}

func (m *MockImportHistoryReader) GetErrorsCSV(ctx context.Context, historyID uuid.UUID) (string, string, error) {
	args := m.Called(ctx, historyID)
	return args.String(0), args.String(1), args.Error(2)
}

type MockCatalogQuerier struct {
	mock.Mock
}

func (m *MockCatalogQuerier) List(ctx context.Context, catalog organization.Catalog) ([]organization.NamedEntity, error) {
	args := m.Called(ctx, catalog)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]organization.NamedEntity), args.Error(1)
}

func (m *MockCatalogQuerier) GradesForJobRole(ctx context.Context, jobRoleID int64) ([]organization.Grade, error) {
	args := m.Called(ctx, jobRoleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]organization.Grade), args.Error(1)
}

func (m *MockCatalogQuerier) Expand(notation string) (*importapp.ExpandResult, error) {
	args := m.Called(notation)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*importapp.ExpandResult), args.Error(1)
}

type stubPinger struct {
	err error
}

func (p stubPinger) PingContext(context.Context) error {
	return p.err
}

// decodeResponse unmarshals the standard envelope and its data into data
func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, data any) dto.Response {
	t.Helper()

	var raw struct {
		dto.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw), w.Body.String())
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.Response
}
