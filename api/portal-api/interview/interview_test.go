// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package interview_api

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_clipstore "github.com/rapidaai/interview/api/portal-api/internal/clipstore"
	"github.com/rapidaai/interview/config"
	"github.com/rapidaai/interview/pkg/commons"
	"github.com/rapidaai/interview/pkg/configs"
)

type stubStore struct {
	saved         []*internal_clipstore.InterviewClip
	forwarded     []string
	failed        []string
	nextClipID    string
	saveErr       error
	forwardingErr error
}

func (s *stubStore) Migrate(_ context.Context) error { return nil }

func (s *stubStore) Save(_ context.Context, clip *internal_clipstore.InterviewClip) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	s.saved = append(s.saved, clip)
	return s.nextClipID, nil
}

func (s *stubStore) Get(_ context.Context, _ string) (*internal_clipstore.InterviewClip, error) {
	return nil, nil
}

func (s *stubStore) ListByInterview(_ context.Context, _ string) ([]internal_clipstore.InterviewClip, error) {
	return nil, nil
}

func (s *stubStore) MarkForwarded(_ context.Context, clipID string) error {
	if s.forwardingErr != nil {
		return s.forwardingErr
	}
	s.forwarded = append(s.forwarded, clipID)
	return nil
}

func (s *stubStore) MarkFailed(_ context.Context, clipID string) error {
	s.failed = append(s.failed, clipID)
	return nil
}

func newTestApi(t *testing.T, upstreamURL string, store *stubStore) *InterviewApi {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger, err := commons.NewApplicationLogger(commons.Name("test-interview-api"), commons.Level("debug"))
	require.NoError(t, err)

	cfg := &config.AppConfig{
		Name:              "test-portal",
		OrchestrationHost: upstreamURL,
		UpstreamTimeout:   5 * time.Second,
		UploadStore: configs.UploadStoreConfig{
			Directory:    t.TempDir(),
			MaxClipBytes: 1024,
		},
	}
	upstream := resty.New().
		SetBaseURL(upstreamURL).
		SetTimeout(cfg.UpstreamTimeout)
	return &InterviewApi{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		upstream: upstream,
	}
}

func newTestEngine(api *InterviewApi) *gin.Engine {
	engine := gin.New()
	group := engine.Group("v1/entrevistas")
	group.POST("/:entrevistaId/responder", api.SubmitAnswer)
	group.GET("/:entrevistaId/atual", api.CurrentInterview)
	return engine
}

func answerRequest(t *testing.T, mime string, payload []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if payload != nil {
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{`form-data; name="video"; filename="answer.webm"`}
		header["Content-Type"] = []string{mime}
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(payload)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/entrevistas/iv-1/responder", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func defaultFields() map[string]string {
	return map[string]string{
		"candidato_id":   "cand-1",
		"pergunta_atual": "2",
	}
}

func TestSubmitAnswerMissingFields(t *testing.T) {
	store := &stubStore{nextClipID: "clip-1"}
	api := newTestApi(t, "http://unused.invalid", store)
	engine := newTestEngine(api)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, answerRequest(t, "video/webm", []byte("data"), map[string]string{
		"candidato_id": "cand-1",
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, store.saved)
}

func TestSubmitAnswerRejectsNonVideo(t *testing.T) {
	store := &stubStore{nextClipID: "clip-1"}
	api := newTestApi(t, "http://unused.invalid", store)
	engine := newTestEngine(api)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, answerRequest(t, "application/pdf", []byte("not a video"), defaultFields()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Formato inválido")
	assert.Empty(t, store.saved)
}

func TestSubmitAnswerRejectsOversizedClip(t *testing.T) {
	store := &stubStore{nextClipID: "clip-1"}
	api := newTestApi(t, "http://unused.invalid", store)
	engine := newTestEngine(api)

	oversized := make([]byte, 2048) // limit in newTestApi is 1024
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, answerRequest(t, "video/webm", oversized, defaultFields()))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, store.saved)
}

func TestSubmitAnswerForwardsAndMarks(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1 << 20))
		assert.Equal(t, "cand-1", r.FormValue("candidato_id"))
		assert.Equal(t, "2", r.FormValue("pergunta_atual"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"finalizada":false,"pergunta_atual":{"ordem":3,"texto":"?"}}`))
	}))
	defer upstream.Close()

	store := &stubStore{nextClipID: "clip-1"}
	api := newTestApi(t, upstream.URL, store)
	engine := newTestEngine(api)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, answerRequest(t, "video/webm", []byte("tiny clip"), defaultFields()))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ordem":3`)
	require.Len(t, store.saved, 1)
	assert.Equal(t, "iv-1", store.saved[0].InterviewID)
	assert.Equal(t, 2, store.saved[0].QuestionOrder)
	assert.Equal(t, []string{"clip-1"}, store.forwarded)
	assert.Empty(t, store.failed)
}

func TestSubmitAnswerUpstreamDownMarksFailed(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close() // connection refused from here on

	store := &stubStore{nextClipID: "clip-1"}
	api := newTestApi(t, upstream.URL, store)
	engine := newTestEngine(api)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, answerRequest(t, "video/webm", []byte("tiny clip"), defaultFields()))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Serviço indisponível")
	require.Len(t, store.saved, 1)
	assert.Equal(t, []string{"clip-1"}, store.failed)
	assert.Empty(t, store.forwarded)
}

func TestCurrentInterviewProxiesUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/entrevistas/iv-1/atual", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"sess-1","candidato_id":"cand-1"}`))
	}))
	defer upstream.Close()

	store := &stubStore{}
	api := newTestApi(t, upstream.URL, store)
	engine := newTestEngine(api)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/entrevistas/iv-1/atual", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sess-1"`)
}
