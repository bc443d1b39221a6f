package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deal-wizard/internal/common/logger"
	"deal-wizard/internal/models"
	"deal-wizard/internal/session"
	"deal-wizard/internal/steps/documents"
	"deal-wizard/internal/steps/submission"
)

// ==========================
// Fakes
// ==========================

type stubGeocoder struct{}

func (stubGeocoder) ResolveAddress(ctx context.Context, text string) (*models.GeocodeResult, error) {
	return &models.GeocodeResult{FormattedAddress: "1 Peachtree St NE, Atlanta, GA", Lng: -84.388, Lat: 33.749}, nil
}

type stubLookups struct{}

func (stubLookups) PropertyTypes(ctx context.Context) ([]models.PropertyType, error) {
	return []models.PropertyType{{ID: "pt-1", TypeKey: "multifamily", DisplayName: "Multifamily"}}, nil
}

func (stubLookups) Submarket(ctx context.Context, c models.Coordinates) (*models.Submarket, error) {
	return &models.Submarket{ID: "sm-midtown", MSAID: "msa-12060"}, nil
}

type stubUploader struct {
	got []documents.File
}

func (u *stubUploader) UploadBatch(ctx context.Context, files []documents.File) ([]models.Document, error) {
	u.got = files
	docs := make([]models.Document, len(files))
	for i, f := range files {
		docs[i] = models.Document{ID: "doc-" + f.Name, Name: f.Name, Type: f.ContentType, Size: int64(len(f.Data))}
	}
	return docs, nil
}

type stubSubmitter struct {
	payload *submission.Payload
}

func (s *stubSubmitter) Submit(ctx context.Context, p *submission.Payload, branch string) (*submission.Result, error) {
	s.payload = p
	return &submission.Result{DealID: "deal-42"}, nil
}

type testServer struct {
	handler   http.Handler
	manager   *session.Manager
	uploader  *stubUploader
	submitter *stubSubmitter
}

func newTestServer(t *testing.T, checks map[string]ReadinessCheck) *testServer {
	t.Helper()
	log := logger.NewTestLogger(t)
	uploader := &stubUploader{}
	submitter := &stubSubmitter{}
	deps := &session.Dependencies{
		Geocoder:  stubGeocoder{},
		Lookups:   stubLookups{},
		Uploader:  uploader,
		Submitter: submitter,
	}
	manager := session.NewManager(deps, nil, time.Hour, log)
	srv := NewServer(Options{Manager: manager, MaxUploadMB: 1, Checks: checks, Logger: log})
	return &testServer{handler: srv.Router(), manager: manager, uploader: uploader, submitter: submitter}
}

type response struct {
	Result  json.RawMessage `json:"result"`
	Session session.View    `json:"session"`
	Error   *errorBody      `json:"error"`
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) (int, response) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var resp response
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec.Code, resp
}

func (ts *testServer) start(t *testing.T) string {
	t.Helper()
	code, resp := ts.do(t, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, code)
	require.NotEmpty(t, resp.Session.ID)
	return "/sessions/" + resp.Session.ID
}

// ==========================
// Error mapping
// ==========================

func TestUnknownSession(t *testing.T) {
	ts := newTestServer(t, nil)

	code, resp := ts.do(t, http.MethodGet, "/sessions/does-not-exist", nil)

	assert.Equal(t, http.StatusNotFound, code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "SESSION_NOT_FOUND", string(resp.Error.Code))
	assert.Equal(t, "validation", resp.Error.Category)
}

func TestNextBlockedByGate(t *testing.T) {
	ts := newTestServer(t, nil)
	base := ts.start(t)

	code, resp := ts.do(t, http.MethodPost, base+"/next", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "STEP_GATE_FAILED", string(resp.Error.Code))
	require.NotEmpty(t, resp.Error.Fields)
	assert.Equal(t, "category", resp.Error.Fields[0].Field)
}

func TestMalformedBody(t *testing.T) {
	ts := newTestServer(t, nil)
	base := ts.start(t)

	code, resp := ts.do(t, http.MethodPut, base+"/category", "{not json")

	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_REQUEST", string(resp.Error.Code))
}

func TestActionOnWrongStep(t *testing.T) {
	ts := newTestServer(t, nil)
	base := ts.start(t)

	code, resp := ts.do(t, http.MethodPut, base+"/details", map[string]string{"name": "Test A"})

	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "STEP_NOT_ACTIVE", string(resp.Error.Code))
}

// ==========================
// Flows
// ==========================

func TestPortfolioFlowSubmitsAndDiscardsSession(t *testing.T) {
	ts := newTestServer(t, nil)
	base := ts.start(t)

	steps := []struct {
		method string
		path   string
		body   interface{}
	}{
		{http.MethodPut, "/category", map[string]string{"category": "portfolio"}},
		{http.MethodPost, "/next", nil},
		{http.MethodPut, "/development-type", map[string]string{"developmentType": "existing"}},
		{http.MethodPost, "/next", nil},
		{http.MethodGet, "/property-types", nil},
		{http.MethodPut, "/property-type", map[string]string{"propertyTypeId": "pt-1"}},
		{http.MethodPost, "/next", nil},
		{http.MethodPut, "/economics", map[string]interface{}{"purchasePrice": "2500000", "offerDate": "2026-03-01"}},
		{http.MethodPost, "/next", nil},
		{http.MethodPut, "/details", map[string]string{"name": "Test A"}},
		{http.MethodPost, "/next", nil},
		{http.MethodPost, "/address", map[string]string{"text": "1 Peachtree St"}},
		{http.MethodPost, "/next", nil},
		{http.MethodPut, "/trade-area", map[string]string{"tradeAreaId": "ta-9"}},
		{http.MethodPost, "/next", nil},
	}
	for _, st := range steps {
		code, resp := ts.do(t, st.method, base+st.path, st.body)
		require.Equal(t, http.StatusOK, code, "%s %s: %+v", st.method, st.path, resp.Error)
	}

	_, resp := ts.do(t, http.MethodGet, base, nil)
	assert.Equal(t, "SUBMIT", string(resp.Session.Step))
	assert.Equal(t, 8, resp.Session.Progress.Total)

	code, resp := ts.do(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusCreated, code)
	assert.JSONEq(t, `{"dealId":"deal-42"}`, string(resp.Result))

	require.NotNil(t, ts.submitter.payload)
	assert.Equal(t, "Test A", ts.submitter.payload.Name)
	require.NotNil(t, ts.submitter.payload.GeographicContext)
	assert.Equal(t, "sm-midtown", ts.submitter.payload.GeographicContext.SubmarketID)
	assert.True(t, ts.submitter.payload.Boundary.IsPoint())
	assert.Nil(t, ts.submitter.payload.Design3D)

	code, _ = ts.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, 0, ts.manager.Len())
}

func TestEnteringTradeAreaLinksSubmarket(t *testing.T) {
	ts := newTestServer(t, nil)
	base := ts.start(t)

	ts.do(t, http.MethodPut, base+"/category", map[string]string{"category": "pipeline"})
	ts.do(t, http.MethodPost, base+"/next", nil)
	ts.do(t, http.MethodPut, base+"/development-type", map[string]string{"developmentType": "existing"})
	ts.do(t, http.MethodPost, base+"/next", nil)
	ts.do(t, http.MethodGet, base+"/property-types", nil)
	ts.do(t, http.MethodPut, base+"/property-type", map[string]string{"propertyTypeId": "pt-1"})
	ts.do(t, http.MethodPost, base+"/next", nil)
	ts.do(t, http.MethodPut, base+"/economics", map[string]interface{}{"purchasePrice": "2500000", "offerDate": "2026-03-01"})
	ts.do(t, http.MethodPost, base+"/next", nil)
	ts.do(t, http.MethodPut, base+"/details", map[string]string{"name": "Test A"})
	ts.do(t, http.MethodPost, base+"/next", nil)
	code, resp := ts.do(t, http.MethodPost, base+"/address", map[string]string{"text": "1 Peachtree St"})
	require.Equal(t, http.StatusOK, code, "%+v", resp.Error)
	assert.Empty(t, resp.Session.Draft.SubmarketID)

	code, resp = ts.do(t, http.MethodPost, base+"/next", nil)

	require.Equal(t, http.StatusOK, code, "%+v", resp.Error)
	assert.Equal(t, "TRADE_AREA", string(resp.Session.Step))
	assert.Equal(t, "sm-midtown", resp.Session.Draft.SubmarketID)
	assert.Equal(t, "msa-12060", resp.Session.Draft.MSAID)
	require.NotNil(t, resp.Session.Draft.Boundary)
	assert.True(t, resp.Session.Draft.Boundary.IsPoint())
}

func TestBackClearsLaterSteps(t *testing.T) {
	ts := newTestServer(t, nil)
	base := ts.start(t)

	ts.do(t, http.MethodPut, base+"/category", map[string]string{"category": "pipeline"})
	ts.do(t, http.MethodPost, base+"/next", nil)
	ts.do(t, http.MethodPut, base+"/development-type", map[string]string{"developmentType": "new"})

	code, resp := ts.do(t, http.MethodPost, base+"/back", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "CATEGORY", string(resp.Session.Step))
	assert.Empty(t, resp.Session.Draft.DevelopmentType)
	assert.Equal(t, models.CategoryPipeline, resp.Session.Draft.Category)
}

func TestUploadDocuments(t *testing.T) {
	ts := newTestServer(t, nil)
	base := ts.start(t)
	ts.do(t, http.MethodPut, base+"/category", map[string]string{"category": "pipeline"})
	ts.do(t, http.MethodPost, base+"/next", nil)
	ts.do(t, http.MethodPut, base+"/development-type", map[string]string{"developmentType": "existing"})
	ts.do(t, http.MethodPost, base+"/next", nil)
	ts.do(t, http.MethodGet, base+"/property-types", nil)
	ts.do(t, http.MethodPut, base+"/property-type", map[string]string{"propertyTypeId": "pt-1"})
	code, _ := ts.do(t, http.MethodPost, base+"/next", nil)
	require.Equal(t, http.StatusOK, code)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("files", "om.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.7"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, base+"/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Session.Draft.Documents, 1)
	assert.Equal(t, "doc-om.pdf", resp.Session.Draft.Documents[0].ID)
	require.Len(t, ts.uploader.got, 1)
	assert.Equal(t, []byte("%PDF-1.7"), ts.uploader.got[0].Data)

	code, resp = ts.do(t, http.MethodDelete, base+"/documents/doc-om.pdf", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, resp.Session.Draft.Documents)
}

func TestDeleteSession(t *testing.T) {
	ts := newTestServer(t, nil)
	base := ts.start(t)

	req := httptest.NewRequest(http.MethodDelete, base, nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	code, _ := ts.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

// ==========================
// Health & metrics
// ==========================

func TestHealthAndReadiness(t *testing.T) {
	ts := newTestServer(t, map[string]ReadinessCheck{
		"postgres": func(ctx context.Context) error { return nil },
	})

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadinessFailure(t *testing.T) {
	ts := newTestServer(t, map[string]ReadinessCheck{
		"redis": func(ctx context.Context) error { return errors.New("connection refused") },
	})

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}
