package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amari/internal/dispatch"
	"amari/internal/engineerr"
	"amari/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Init(context.Background()))
	opts.Dispatcher = dispatch.New(dispatch.Options{Store: store})
	if opts.Version == "" {
		opts.Version = "test"
	}
	return New(opts)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, Options{Version: "v1.2.3"})

	w := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "v1.2.3", decodeBody(t, w)["version"])

	do(t, s, http.MethodPost, "/v1/operations/geometric_product", `{"a": [1, 0], "b": [1, 0], "signature": [1, 0, 0]}`)
	w = do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "amari_operation_total")
}

func TestCallOperation(t *testing.T) {
	s := newTestServer(t, Options{})

	w := do(t, s, http.MethodPost, "/v1/operations/compute_gradient",
		`{"expression": "x^2 * y + sin(x)", "variables": ["x", "y"], "values": [1, 2]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decodeBody(t, w)["result"].(map[string]any)
	assert.InDelta(t, 1, result["gradient"].([]any)[1].(float64), 1e-12)

	w = do(t, s, http.MethodPost, "/v1/operations/shortest_path",
		`{"adjacency_matrix": [[0, null], [null, 0]], "source": 0}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"distances":[0,"Infinity"]`)

	w = do(t, s, http.MethodGet, "/v1/operations", "")
	assert.Contains(t, w.Body.String(), dispatch.NameFisherInformation)
}

func TestErrorStatuses(t *testing.T) {
	s := newTestServer(t, Options{})
	cases := []struct {
		path string
		body string
		code int
		kind string
	}{
		{"/v1/operations/warp", `{}`, http.StatusNotFound, engineerr.KindUnknownOperation},
		{"/v1/operations/geometric_product", `{"a": [1]}`, http.StatusBadRequest, engineerr.KindShape},
		{"/v1/operations/compute_gradient", `{"expression": "x +", "variables": ["x"], "values": [1]}`, http.StatusBadRequest, engineerr.KindSyntax},
		{"/v1/operations/compute_gradient", `{"expression": "1 / x", "variables": ["x"], "values": [0]}`, http.StatusUnprocessableEntity, engineerr.KindDomain},
		{"/v1/operations/shortest_path", `{"adjacency_matrix": [[0, 1], [-3, 0]], "source": 0, "target": 1}`, http.StatusUnprocessableEntity, engineerr.KindNegativeCycle},
		{"/v1/operations/fisher_information", `{"distribution": "zipf", "parameters": [1]}`, http.StatusBadRequest, engineerr.KindUnknownFamily},
		{"/v1/operations/fisher_information", `{"distribution": "gaussian", "parameters": ["NaN", 1]}`, http.StatusUnprocessableEntity, engineerr.KindDomain},
		{"/v1/operations/fisher_information", `{"distribution": "gaussian", "parameters": [0, 1e-200]}`, http.StatusUnprocessableEntity, engineerr.KindDomain},
		{"/v1/operations/shortest_path", `{"adjacency_matrix": [[0, "NaN"], ["Infinity", 0]], "source": 0, "target": 1}`, http.StatusBadRequest, engineerr.KindShape},
	}
	for _, tc := range cases {
		w := do(t, s, http.MethodPost, tc.path, tc.body)
		assert.Equal(t, tc.code, w.Code, tc.path)
		errBody := decodeBody(t, w)["error"].(map[string]any)
		assert.Equal(t, tc.kind, errBody["kind"], tc.path)
	}
}

func TestBatchEndpoint(t *testing.T) {
	s := newTestServer(t, Options{})
	w := do(t, s, http.MethodPost, "/v1/batch/tropical_matrix_multiply", `{
		"items": [
			{"matrix_a": [[1]], "matrix_b": [[2]]},
			{"matrix_a": [[1, 2]], "matrix_b": [[1, 2]]}
		],
		"workers": 2
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decodeBody(t, w)["result"].(map[string]any)
	assert.EqualValues(t, 1, res["succeeded"])
	assert.EqualValues(t, 1, res["failed"])

	w = do(t, s, http.MethodPost, "/v1/batch/tropical_matrix_multiply", `{"items": "nope"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, s, http.MethodPost, "/v1/batch/batch_apply", `{"items": [{}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBatchWithNonFiniteItemEncodes(t *testing.T) {
	s := newTestServer(t, Options{})
	w := do(t, s, http.MethodPost, "/v1/batch/compute_gradient", `{
		"items": [
			{"expression": "x", "variables": ["x"], "values": ["NaN"]},
			{"expression": "x * 2", "variables": ["x"], "values": [4]}
		]
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decodeBody(t, w)["result"].(map[string]any)
	assert.EqualValues(t, 1, res["succeeded"])
	assert.EqualValues(t, 1, res["failed"])
}

func TestStoreUnavailable(t *testing.T) {
	s := New(Options{Dispatcher: dispatch.New(dispatch.Options{}), Version: "test"})
	w := do(t, s, http.MethodGet, "/v1/computations", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	errBody := decodeBody(t, w)["error"].(map[string]any)
	assert.Equal(t, engineerr.KindUnavailable, errBody["kind"])
}

func TestComputationLifecycle(t *testing.T) {
	s := newTestServer(t, Options{})

	w := do(t, s, http.MethodPut, "/v1/computations/run-1",
		`{"type": "compute_gradient", "result": {"value": 3}, "metadata": {"owner": "ci"}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, s, http.MethodGet, "/v1/computations/run-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"owner":"ci"`)

	w = do(t, s, http.MethodGet, "/v1/computations", "")
	assert.Contains(t, w.Body.String(), `"name":"run-1"`)

	w = do(t, s, http.MethodDelete, "/v1/computations/run-1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, s, http.MethodGet, "/v1/computations/run-1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodPut, "/v1/computations/run-2", `{"type": "x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimitAndBodyLimit(t *testing.T) {
	s := newTestServer(t, Options{RateLimit: 1, Burst: 1})
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/v1/operations", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, s, http.MethodGet, "/v1/operations", "").Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/health", "").Code, "health is not limited")

	s = newTestServer(t, Options{MaxBodyBytes: 16})
	w := do(t, s, http.MethodPost, "/v1/operations/create_multivector", `{"coefficients": [1, 0, 0, 0, 0, 0, 0, 0]}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestClientLimiter(t *testing.T) {
	assert.Nil(t, newClientLimiter(0, 10))
	var nilLimiter *clientLimiter
	assert.True(t, nilLimiter.Allow("a", time.Now()))

	l := newClientLimiter(1, 2)
	now := time.Unix(100, 0)
	assert.True(t, l.Allow("a", now))
	assert.True(t, l.Allow("a", now))
	assert.False(t, l.Allow("a", now))
	assert.True(t, l.Allow("b", now), "buckets are per client")
	assert.True(t, l.Allow("a", now.Add(time.Second)))
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	s := newTestServer(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
