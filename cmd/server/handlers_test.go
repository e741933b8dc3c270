package main

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/soundrights/soundrights/internal/config"
	"github.com/soundrights/soundrights/internal/testutil"
	"github.com/soundrights/soundrights/pkg/logger"
	"github.com/soundrights/soundrights/pkg/models"
	"github.com/soundrights/soundrights/pkg/soundrights"
	"github.com/soundrights/soundrights/pkg/soundrights/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, origins ...string) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logCfg := logger.DefaultConfig()
	logCfg.Output = io.Discard
	log := logger.New(logCfg)

	dir := t.TempDir()
	svc, err := soundrights.NewService(
		soundrights.WithSQLitePath(filepath.Join(dir, "server.sqlite3")),
		soundrights.WithTempDir(filepath.Join(dir, "tmp")),
		soundrights.WithProber(audio.WAVProber{}),
		soundrights.WithLogger(log),
	)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s := NewServer(svc, config.ServerConfig{Port: 0, AllowedOrigins: origins, MaxUploadMB: 1}, log)
	return s.setupRoutes()
}

func multipartBody(t *testing.T, fields map[string]string, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if data != nil {
		part, err := w.CreateFormFile("audio", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func upload(t *testing.T, h http.Handler, owner string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, map[string]string{"owner_id": owner, "title": "Tone", "artist": "Lab"}, "tone.wav", data)
	req := httptest.NewRequest(http.MethodPost, "/api/tracks", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestUploadDuplicateFlow(t *testing.T) {
	h := newTestRouter(t)
	data := testutil.SineWAV(t, 8000, 1, 440)

	rec := upload(t, h, "alice", data)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[UploadResponse](t, rec)
	assert.True(t, first.EligibleForRegistration)
	assert.Zero(t, first.MatchCount)
	assert.NotNil(t, first.Matches)

	rec = upload(t, h, "alice", data)
	require.Equal(t, http.StatusCreated, rec.Code)
	second := decode[UploadResponse](t, rec)
	require.Len(t, second.Matches, 1)
	assert.Equal(t, first.Track.ID, second.Matches[0].TrackID)
	assert.Equal(t, models.MatchExact, second.Matches[0].MatchType)
	assert.False(t, second.EligibleForRegistration)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tracks?owner_id=alice", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[ListTracksResponse](t, rec).Count)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tracks/"+first.Track.ID+"/compare/"+second.Track.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	cmp := decode[soundrights.Comparison](t, rec)
	assert.Equal(t, 1.0, cmp.Similarity)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode[MetricsResponse](t, rec).TrackCount)
}

func TestUploadErrors(t *testing.T) {
	h := newTestRouter(t)

	rec := upload(t, h, "", testutil.SineWAV(t, 8000, 1, 440))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	png := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}
	rec = upload(t, h, "alice", png)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	body, ct := multipartBody(t, map[string]string{"owner_id": "alice"}, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/tracks", body)
	req.Header.Set("Content-Type", ct)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = upload(t, h, "alice", bytes.Repeat([]byte{0}, 3<<20))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestGetAndDeleteTrack(t *testing.T) {
	h := newTestRouter(t)
	created := decode[UploadResponse](t, upload(t, h, "alice", testutil.SineWAV(t, 8000, 1, 440)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tracks/"+created.Track.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Tone", decode[models.Track](t, rec).Title)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/tracks/"+created.Track.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tracks/"+created.Track.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/tracks/"+created.Track.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyzeEndpoint(t *testing.T) {
	h := newTestRouter(t)
	body, ct := multipartBody(t, nil, "tone.wav", testutil.SineWAV(t, 8000, 2, 440))
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[AnalyzeResponse](t, rec)
	assert.Equal(t, "tone.wav", res.Filename)
	assert.InDelta(t, 2.0, res.Features.Duration, 0.01)
	assert.Len(t, res.Features.Fingerprint, models.FingerprintLength)
}

func TestSimilarityEndpoint(t *testing.T) {
	h := newTestRouter(t)
	created := decode[UploadResponse](t, upload(t, h, "alice", testutil.SineWAV(t, 8000, 1, 440)))

	payload, err := json.Marshal(SimilarityRequest{OwnerID: "alice", Features: created.Track.Features})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/similarity", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode[MatchesResponse](t, rec).Count)

	bad := *created.Track.Features
	bad.Energy = 3
	payload, err = json.Marshal(SimilarityRequest{OwnerID: "alice", Features: &bad})
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/similarity", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/similarity", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORS(t *testing.T) {
	h := newTestRouter(t, "http://app.example")

	req := httptest.NewRequest(http.MethodOptions, "/api/tracks", nil)
	req.Header.Set("Origin", "http://app.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNoRoute(t *testing.T) {
	h := newTestRouter(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/songs", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
