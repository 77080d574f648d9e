package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-invigilation-api/internal/dto"
	"github.com/noah-isme/sma-invigilation-api/internal/middleware"
	"github.com/noah-isme/sma-invigilation-api/internal/models"
	"github.com/noah-isme/sma-invigilation-api/internal/service"
	appErrors "github.com/noah-isme/sma-invigilation-api/pkg/errors"
)

type rosterServiceMock struct {
	generated  dto.GenerateRosterRequest
	uploaded   map[string]string
	form       dto.UploadRosterForm
	hasSection bool
	savedBy    string
	query      dto.RosterQuery
	err        error
}

func (m *rosterServiceMock) proposal() *dto.GenerateRosterResponse {
	return &dto.GenerateRosterResponse{ProposalID: "proposal-1", Fingerprint: "fp-1", CacheHit: true, Levels: []string{"Grade 3"}}
}

func (m *rosterServiceMock) Generate(_ context.Context, req dto.GenerateRosterRequest) (*dto.GenerateRosterResponse, error) {
	m.generated = req
	if m.err != nil {
		return nil, m.err
	}
	return m.proposal(), nil
}

func (m *rosterServiceMock) Upload(_ context.Context, upload service.RosterUpload) (*dto.GenerateRosterResponse, error) {
	m.uploaded = make(map[string]string)
	for name, table := range map[string]service.UploadedTable{"supervisors": upload.Supervisors, "sessions": upload.Sessions} {
		data, err := io.ReadAll(table.Reader)
		if err != nil {
			return nil, err
		}
		m.uploaded[name] = table.Filename + ":" + string(data)
	}
	m.form = upload.Form
	m.hasSection = upload.Sections != nil
	if m.err != nil {
		return nil, m.err
	}
	return m.proposal(), nil
}

func (m *rosterServiceMock) GetProposal(_ context.Context, id string) (*dto.GenerateRosterResponse, error) {
	if id != "proposal-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	return m.proposal(), nil
}

func (m *rosterServiceMock) Save(_ context.Context, req dto.SaveRosterRequest, actorID string) (*models.Roster, error) {
	m.savedBy = actorID
	return &models.Roster{ID: "roster-1", Name: req.Name, Status: models.RosterStatusDraft}, nil
}

func (m *rosterServiceMock) List(_ context.Context, query dto.RosterQuery) ([]models.Roster, *models.Pagination, error) {
	m.query = query
	return []models.Roster{{ID: "roster-1"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (m *rosterServiceMock) Get(_ context.Context, id string) (*dto.RosterDetailResponse, error) {
	return &dto.RosterDetailResponse{Roster: models.Roster{ID: id}}, nil
}

func (m *rosterServiceMock) Publish(_ context.Context, id string) (*models.Roster, error) {
	if id == "published" {
		return nil, appErrors.Clone(appErrors.ErrConflict, "roster already published")
	}
	return &models.Roster{ID: id, Status: models.RosterStatusPublished}, nil
}

func (m *rosterServiceMock) Delete(_ context.Context, _ string) error { return m.err }

func (m *rosterServiceMock) FlushCache(_ context.Context) error { return m.err }

func decodeEnvelope(t *testing.T, body *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(body.Bytes(), &envelope))
	return envelope
}

func TestInvigilationHandlerGenerate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &rosterServiceMock{}
	handler := &InvigilationHandler{service: mockSvc, maxUploadMB: 1}
	payload := `{"supervisors":[{"name":"Amal","specialty":"Math"}],"sessions":[{"date":"2025-01-12","startTime":"08:00","subject":"Art","grade":"Grade 3"}],"level":"Grade 3"}`
	req, _ := http.NewRequest(http.MethodPost, "/invigilation/generate", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Generate(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Grade 3", mockSvc.generated.Level)
	require.Len(t, mockSvc.generated.Supervisors, 1)
	envelope := decodeEnvelope(t, w.Body)
	data := envelope["data"].(map[string]interface{})
	assert.Equal(t, "proposal-1", data["proposalId"])
	meta := envelope["meta"].(map[string]interface{})
	assert.Equal(t, true, meta["cache_hit"])
	assert.Equal(t, "fp-1", meta["fingerprint"])
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
}

func TestInvigilationHandlerGenerateRejectsBadJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &InvigilationHandler{service: &rosterServiceMock{}, maxUploadMB: 1}
	req, _ := http.NewRequest(http.MethodPost, "/invigilation/generate", strings.NewReader(`{"sessions":`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Generate(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvigilationHandlerGeneratePropagatesServiceErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &InvigilationHandler{service: &rosterServiceMock{err: appErrors.Clone(appErrors.ErrNoSupervisors, "supervisor table is empty")}, maxUploadMB: 1}
	req, _ := http.NewRequest(http.MethodPost, "/invigilation/generate", strings.NewReader(`{"sessions":[{"date":"2025-01-12","subject":"Art"}]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Generate(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	envelope := decodeEnvelope(t, w.Body)
	assert.Equal(t, "NO_SUPERVISORS", envelope["error"].(map[string]interface{})["code"])
}

func multipartUpload(t *testing.T, files map[string]string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for field, content := range files {
		part, err := writer.CreateFormFile(field, field+".csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestInvigilationHandlerUpload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &rosterServiceMock{}
	handler := &InvigilationHandler{service: mockSvc, maxUploadMB: 1}
	body, contentType := multipartUpload(t, map[string]string{
		"supervisors": "teacher_name,specialty\nAmal,Math\n",
		"sessions":    "exam_date,subject,grade\n2025-01-12,Art,Grade 3\n",
	}, map[string]string{"level": "Grade 3", "layout": "long"})
	req, _ := http.NewRequest(http.MethodPost, "/invigilation/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Upload(c)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "supervisors.csv:teacher_name,specialty\nAmal,Math\n", mockSvc.uploaded["supervisors"])
	assert.Contains(t, mockSvc.uploaded["sessions"], "2025-01-12,Art")
	assert.Equal(t, "Grade 3", mockSvc.form.Level)
	assert.Equal(t, "long", mockSvc.form.Layout)
	assert.False(t, mockSvc.hasSection)
}

func TestInvigilationHandlerUploadRequiresSessions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &InvigilationHandler{service: &rosterServiceMock{}, maxUploadMB: 1}
	body, contentType := multipartUpload(t, map[string]string{"supervisors": "teacher_name\nAmal\n"}, nil)
	req, _ := http.NewRequest(http.MethodPost, "/invigilation/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Upload(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "sessions file is required")
}

func TestInvigilationHandlerUploadTooLarge(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &InvigilationHandler{service: &rosterServiceMock{}, maxUploadMB: 1}
	big := strings.Repeat("Amal,Math\n", 150000)
	body, contentType := multipartUpload(t, map[string]string{"supervisors": "teacher_name,specialty\n" + big, "sessions": "exam_date,subject\n"}, nil)
	req, _ := http.NewRequest(http.MethodPost, "/invigilation/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Upload(c)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "PAYLOAD_TOO_LARGE")
}

func TestInvigilationHandlerGetProposalNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &InvigilationHandler{service: &rosterServiceMock{}, maxUploadMB: 1}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/invigilation/proposals/other", nil)
	c.Params = gin.Params{{Key: "id", Value: "other"}}

	handler.GetProposal(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvigilationHandlerSaveUsesActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &rosterServiceMock{}
	handler := &InvigilationHandler{service: mockSvc, maxUploadMB: 1}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/invigilation/rosters", strings.NewReader(`{"proposalId":"proposal-1","name":"Finals"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "coord-7", Role: models.RoleCoordinator})

	handler.Save(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "coord-7", mockSvc.savedBy)
}

func TestInvigilationHandlerListBindsQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &rosterServiceMock{}
	handler := &InvigilationHandler{service: mockSvc, maxUploadMB: 1}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/invigilation/rosters?status=DRAFT&page=2&page_size=5", nil)

	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DRAFT", mockSvc.query.Status)
	assert.Equal(t, 2, mockSvc.query.Page)
	assert.Equal(t, 5, mockSvc.query.PageSize)
	envelope := decodeEnvelope(t, w.Body)
	assert.NotNil(t, envelope["pagination"])
}

func TestInvigilationHandlerPublishConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &InvigilationHandler{service: &rosterServiceMock{}, maxUploadMB: 1}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPatch, "/invigilation/rosters/published/publish", nil)
	c.Params = gin.Params{{Key: "id", Value: "published"}}

	handler.Publish(c)

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestInvigilationHandlerDeleteAndFlush(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &rosterServiceMock{}
	handler := &InvigilationHandler{service: mockSvc, maxUploadMB: 1}
	router := gin.New()
	router.DELETE("/rosters/:id", handler.Delete)
	router.DELETE("/cache", handler.FlushCache)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/rosters/roster-1", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	mockSvc.err = appErrors.Clone(appErrors.ErrFeatureDisabled, "run cache is disabled")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/cache", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
