package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-invigilation-api/internal/dto"
	"github.com/noah-isme/sma-invigilation-api/internal/middleware"
	"github.com/noah-isme/sma-invigilation-api/internal/models"
	"github.com/noah-isme/sma-invigilation-api/internal/service"
	appErrors "github.com/noah-isme/sma-invigilation-api/pkg/errors"
)

type exportJobsMock struct {
	rosterID string
	actorID  string
	request  dto.ExportRequest
	file     string
}

func (m *exportJobsMock) CreateJob(_ context.Context, rosterID string, req dto.ExportRequest, actorID string) (*dto.ExportJobResponse, error) {
	if rosterID == "missing" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "roster not found")
	}
	m.rosterID, m.request, m.actorID = rosterID, req, actorID
	return &dto.ExportJobResponse{ID: "job-1", Status: models.ExportStatusQueued}, nil
}

func (m *exportJobsMock) GetStatus(_ context.Context, id string) (*dto.ExportStatusResponse, error) {
	url := "/api/v1/invigilation/exports/download/token"
	return &dto.ExportStatusResponse{ID: id, Status: models.ExportStatusFinished, Progress: 100, ResultURL: &url}, nil
}

func (m *exportJobsMock) ResolveDownload(_ context.Context, token string) (*service.ExportDownload, error) {
	if token != "token" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	file, err := os.Open(m.file)
	if err != nil {
		return nil, err
	}
	return &service.ExportDownload{
		File:        file,
		Filename:    filepath.Base(m.file),
		Format:      models.ExportFormatCSV,
		ContentType: "text/csv; charset=utf-8",
		ExpiresAt:   time.Now().Add(time.Hour),
	}, nil
}

func TestExportHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockJobs := &exportJobsMock{}
	handler := &ExportHandler{jobs: mockJobs}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/invigilation/rosters/roster-1/exports", strings.NewReader(`{"kind":"daily","format":"pdf","locale":"ar"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "roster-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Create(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "roster-1", mockJobs.rosterID)
	assert.Equal(t, "admin-1", mockJobs.actorID)
	assert.Equal(t, models.ExportKindDaily, mockJobs.request.Kind)
	assert.Equal(t, "ar", mockJobs.request.Locale)
}

func TestExportHandlerCreateMissingRoster(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ExportHandler{jobs: &exportJobsMock{}}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/invigilation/rosters/missing/exports", strings.NewReader(`{"kind":"stats","format":"csv"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Create(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportHandlerStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ExportHandler{jobs: &exportJobsMock{}}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/invigilation/exports/job-1", nil)
	c.Params = gin.Params{{Key: "jobId", Value: "job-1"}}

	handler.Status(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"resultUrl":"/api/v1/invigilation/exports/download/token"`)
}

func TestExportHandlerDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	path := filepath.Join(t.TempDir(), "assignments_finals.csv")
	require.NoError(t, os.WriteFile(path, []byte("Supervisor\nAmal\n"), 0o600))
	handler := &ExportHandler{jobs: &exportJobsMock{file: path}}
	router := gin.New()
	router.GET("/download/:token", handler.Download)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/download/token", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "assignments_finals.csv")
	assert.Equal(t, "Supervisor\nAmal\n", w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/download/forged", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
