package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brook/internal/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := New(config.Default())
	require.NoError(t, err)
	return srv
}

func get(handler http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestRouting(t *testing.T) {
	mux := newTestServer(t).buildMux()

	assert.Equal(t, http.StatusOK, get(mux, "/healthz").Code)
	assert.Equal(t, http.StatusOK, get(mux, "/api/server").Code)
	assert.Equal(t, http.StatusOK, get(mux, "/api/sessions").Code)
	assert.Equal(t, http.StatusNotFound, get(mux, "/nonsense").Code)

	// Stream paths resolve, the stream just does not exist yet.
	assert.Equal(t, http.StatusNotFound, get(mux, "/live/missing.flv").Code)
}

func TestCORSHeaders(t *testing.T) {
	mux := newTestServer(t).buildMux()

	rec := get(mux, "/api/server")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	preflight := httptest.NewRecorder()
	mux.ServeHTTP(preflight, httptest.NewRequest(http.MethodOptions, "/live/stream.flv", nil))
	assert.Equal(t, http.StatusNoContent, preflight.Code)
}

func TestHLSRequiresFFmpeg(t *testing.T) {
	cfg := config.Default()
	cfg.HLS.Active = true
	cfg.FFmpeg = "definitely-not-a-real-binary-name"
	_, err := New(cfg)
	assert.Error(t, err)
}
