package api

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askaquestion-genai/server/pkg/metrics"
)

func newTestRouter(t *testing.T, runner *fakeRunner, withTranscripts bool) (http.Handler, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	svc := NewService(runner, nil, m)
	if withTranscripts {
		svc = NewService(runner, newTranscripts(t), m)
	}
	return NewRouter(svc, m, RouterConfig{RequestTimeout: 5 * time.Second}), m
}

func TestRouterTurn(t *testing.T) {
	router, _ := newTestRouter(t, &fakeRunner{result: collectingResult()}, false)

	for _, path := range []string{"/", "/v1/turns"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(validBody)))

			assert.Equal(t, http.StatusAccepted, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t,
				`{"json_data":{"name":"John Smith","date":null},"attempt_count":1,"conversation":"Thanks John. Which date works for you?"}`,
				rec.Body.String())
		})
	}
}

func TestRouterTurnRejected(t *testing.T) {
	router, _ := newTestRouter(t, &fakeRunner{}, false)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/turns", strings.NewReader(`{"schema": {}}`)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Empty schema provided"}`, rec.Body.String())
}

func TestRouterTurnBodyTooLarge(t *testing.T) {
	runner := &fakeRunner{}
	router, _ := newTestRouter(t, runner, false)

	body := strings.NewReader(`{"schema": "` + strings.Repeat("a", maxBodyBytes) + `"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/turns", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, runner.calls)
}

func TestRouterTranscripts(t *testing.T) {
	router, _ := newTestRouter(t, &fakeRunner{result: collectingResult()}, true)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/turns", strings.NewReader(validBody)))
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions/s-1/turns", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"session_id":"s-1"`)
	assert.Contains(t, rec.Body.String(), `"utterance":"My name is John Smith"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/sessions/s-1/turns", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestRouterHealthAndMetrics(t *testing.T) {
	router, _ := newTestRouter(t, &fakeRunner{result: completeResult()}, false)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/turns", strings.NewReader(validBody)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `genai_slotfill_turns_total{outcome="complete"} 1`)
	assert.Contains(t, body, `genai_slotfill_http_request_duration_seconds_count{method="POST",route="/v1/turns",status="200"} 1`)
	assert.Contains(t, body, `route="/healthz"`)
}

func TestRouterUnknownRoute(t *testing.T) {
	router, _ := newTestRouter(t, &fakeRunner{}, false)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerShutsDownOnCancel(t *testing.T) {
	router, _ := newTestRouter(t, &fakeRunner{}, false)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer(ln.Addr().String(), router).Serve(ctx, ln) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + ln.Addr().String() + "/healthz")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
