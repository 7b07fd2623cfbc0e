package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/perepys/internal"
	"github.com/valpere/perepys/internal/config"
	"github.com/valpere/perepys/internal/engine"
	"github.com/valpere/perepys/internal/metrics"
	"github.com/valpere/perepys/internal/pipeline"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Mode = "test"
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, loader Loader, opts ...Option) http.Handler {
	t.Helper()
	if loader == nil {
		loader = engine.NewLoader(cfg, nil)
	}
	return New(cfg, loader, opts...).Handler()
}

func postJSON(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/process", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

type recordingStore struct {
	mu   sync.Mutex
	runs []internal.ProcessingRun
	err  error
}

func (s *recordingStore) SaveRun(_ context.Context, run *internal.ProcessingRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, *run)
	return s.err
}

// stubLoader serves fixed engines.
type stubLoader struct {
	humanizer pipeline.Humanizer
	corrector pipeline.Corrector
	loadErr   error
}

func (l *stubLoader) LoadHumanizer(pipeline.Config) (pipeline.Humanizer, error) {
	return l.humanizer, l.loadErr
}

func (l *stubLoader) LoadCorrector() (pipeline.Corrector, error) { return l.corrector, nil }

func (l *stubLoader) EngineName(pipeline.Config) string { return "stub" }

type humanizeFunc func(ctx context.Context, text string, passes int) (string, error)

func (f humanizeFunc) Humanize(ctx context.Context, text string, passes int) (string, error) {
	return f(ctx, text, passes)
}

func TestProcess_Success(t *testing.T) {
	h := newTestServer(t, testConfig(), nil)

	rec := postJSON(t, h, `{"text": "furthermore we utilize it. it is the the end"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp processResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Also we use it. It is the end.", resp.Result)
	assert.Equal(t, pipeline.Metrics{
		OriginalWords: 9,
		ResultWords:   8,
		OriginalChars: 44,
		ResultChars:   30,
	}, resp.Metrics)
}

func TestProcess_ResponseShape(t *testing.T) {
	h := newTestServer(t, testConfig(), nil)

	rec := postJSON(t, h, `{"text": "Short.", "skip_grammar": true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Short.", body["result"])
	m, ok := body["metrics"].(map[string]interface{})
	require.True(t, ok)
	for _, key := range []string{"original_words", "result_words", "original_chars", "result_chars"} {
		assert.Contains(t, m, key)
	}
}

func TestProcess_EmptyText(t *testing.T) {
	h := newTestServer(t, testConfig(), nil)

	for _, body := range []string{`{}`, `{"text": ""}`, `{"text": "  \n\t "}`} {
		rec := postJSON(t, h, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "No text provided", decode(t, rec)["error"], body)
	}
}

func TestProcess_InvalidConfig(t *testing.T) {
	h := newTestServer(t, testConfig(), nil)

	tests := []struct {
		name string
		body string
	}{
		{"unknown mode", `{"text": "Hi.", "mode": "poetic"}`},
		{"unknown domain", `{"text": "Hi.", "domain": "culinary"}`},
		{"zero passes", `{"text": "Hi.", "passes": 0}`},
		{"too many passes", `{"text": "Hi.", "passes": 9}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode(t, rec)["error"])
		})
	}
}

func TestProcess_MalformedJSON(t *testing.T) {
	h := newTestServer(t, testConfig(), nil)

	rec := postJSON(t, h, `{"text": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcess_BodyTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxBodyBytes = 32
	h := newTestServer(t, cfg, nil)

	rec := postJSON(t, h, `{"text": "`+strings.Repeat("word ", 50)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestProcess_EngineFailure(t *testing.T) {
	loader := &stubLoader{humanizer: humanizeFunc(func(context.Context, string, int) (string, error) {
		return "", errors.New("model exploded")
	})}
	h := newTestServer(t, testConfig(), loader)

	rec := postJSON(t, h, `{"text": "Some text.", "skip_grammar": true}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "model exploded")
}

func TestProcess_LoadFailure(t *testing.T) {
	h := newTestServer(t, testConfig(), &stubLoader{loadErr: errors.New("ollama is not reachable")})

	rec := postJSON(t, h, `{"text": "Some text.", "use_ml": true}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "humanizer")
}

func TestProcess_SavesRun(t *testing.T) {
	cfg := testConfig()
	st := &recordingStore{}
	h := newTestServer(t, cfg, nil, WithStore(st))

	rec := postJSON(t, h, `{"text": "it is the the end", "mode": "Balanced", "domain": "legal", "passes": 2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, st.runs, 1)
	run := st.runs[0]
	assert.Equal(t, "balanced", run.Mode)
	assert.Equal(t, "legal", run.Domain)
	assert.Equal(t, 2, run.Passes)
	assert.Equal(t, "lexical+rules", run.Engine)
	assert.Equal(t, "it is the the end", run.SourceText)
}

func TestProcess_StoreFailureStillResponds(t *testing.T) {
	h := newTestServer(t, testConfig(), nil, WithStore(&recordingStore{err: errors.New("disk full")}))

	rec := postJSON(t, h, `{"text": "Hello."}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProcess_Admission(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxConcurrent = 1
	cfg.Server.RequestTimeout = 100 * time.Millisecond

	entered := make(chan struct{})
	release := make(chan struct{})
	loader := &stubLoader{humanizer: humanizeFunc(func(ctx context.Context, text string, _ int) (string, error) {
		close(entered)
		<-release
		return text, nil
	})}
	h := newTestServer(t, cfg, loader)

	first := make(chan int, 1)
	go func() {
		first <- postJSON(t, h, `{"text": "First.", "skip_grammar": true}`).Code
	}()
	<-entered

	rec := postJSON(t, h, `{"text": "Second.", "skip_grammar": true}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	close(release)
	assert.Equal(t, http.StatusOK, <-first)
}

func TestDiscoveryEndpoints(t *testing.T) {
	h := newTestServer(t, testConfig(), nil)

	tests := []struct {
		path string
		key  string
		ids  []string
	}{
		{"/domains", "domains", []string{"academic", "medical", "legal", "scientific", "technical"}},
		{"/modes", "modes", []string{"academic", "professional", "balanced"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, http.StatusOK, rec.Code)

			var body map[string][]map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			var ids []string
			for _, e := range body[tt.key] {
				assert.NotEmpty(t, e["name"])
				assert.NotEmpty(t, e["description"])
				ids = append(ids, e["id"])
			}
			assert.ElementsMatch(t, tt.ids, ids)
		})
	}
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, testConfig(), nil, WithVersion("1.2.3"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok", "version": "1.2.3"}`, rec.Body.String())
}

func TestFavicon(t *testing.T) {
	h := newTestServer(t, testConfig(), nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, testConfig(), nil, WithMetrics(metrics.New()))

	require.Equal(t, http.StatusOK, postJSON(t, h, `{"text": "Hello there."}`).Code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `perepys_process_total{status="ok"} 1`)
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	h := newTestServer(t, testConfig(), nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", bytes.NewReader(nil)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStart_Shutdown(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Addr = "127.0.0.1:0"
	s := New(cfg, engine.NewLoader(cfg, nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
