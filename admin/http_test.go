package admin

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pathserver/graph"
	"pathserver/metrics"
	"pathserver/routing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (http.Handler, *Readiness) {
	t.Helper()
	g := graph.ParseEdgeListBytes([]byte("1 2\n2 3\n3 4\n1 5\n"))
	cache := routing.NewPathCache(routing.DefaultCacheCapacity)
	m := metrics.New()
	m.RegisterCache(cache)
	cache.Resolve(g, 1, 4)
	cache.Resolve(g, 1, 4)
	cache.Resolve(g, 1, 6)
	m.ObserveQuery(false, true, time.Millisecond)

	readiness := &Readiness{}
	return NewRouter(m, cache, g, readiness), readiness
}

func TestHealthzFollowsReadiness(t *testing.T) {
	router, readiness := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	readiness.Set(true)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestStats(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, GraphStats{Nodes: 5, Edges: 4}, resp.Graph)
	assert.Equal(t, 2, resp.Cache.Size)
	assert.Equal(t, routing.DefaultCacheCapacity, resp.Cache.Capacity)
	assert.EqualValues(t, 1, resp.Cache.Hits)
	assert.EqualValues(t, 2, resp.Cache.Misses)
	assert.Equal(t, [][2]int64{{1, 4}, {1, 6}}, resp.Cache.Keys)
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "pathserver_queries_total"))
	assert.True(t, strings.Contains(body, "pathserver_cache_entries 2"))
}

func TestServeHTTPStopsOnCancel(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	router, _ := newTestRouter(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveHTTPListener(ctx, listener, router) }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/stats")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("admin http server did not stop")
	}
}
