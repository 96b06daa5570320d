package server

import (
	"io"
	"net"
	"testing"
	"time"

	"pathserver/graph"
	"pathserver/metrics"
	packet "pathserver/packet_handler"
	"pathserver/routing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleEdges = "1 2\n2 3\n3 4\n1 5\n"

func newTestHandler(edges string, config HandlerConfig) (*Handler, *routing.PathCache) {
	g := graph.ParseEdgeListBytes([]byte(edges))
	cache := routing.NewPathCache(routing.DefaultCacheCapacity)
	return NewHandler(g, cache, metrics.New(), config), cache
}

// exchangeOverPipe sends request to h over an in-memory connection and
// returns the reply once the handler has closed its side.
func exchangeOverPipe(t *testing.T, h *Handler, request string) string {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	done := make(chan struct{})
	go func() {
		h.Serve(serverConn)
		close(done)
	}()

	_, err := clientConn.Write([]byte(request))
	require.NoError(t, err)
	reply, err := io.ReadAll(clientConn)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return")
	}
	return string(reply)
}

func TestHandlerServe(t *testing.T) {
	h, cache := newTestHandler(sampleEdges, HandlerConfig{})

	tests := []struct {
		request string
		want    string
	}{
		{request: "1 4", want: "1 2 3 4 "},
		{request: "1 6", want: packet.NotFoundResponse},
		{request: "1 1", want: "1 "},
		{request: "5 3\n", want: "5 1 2 3 "},
		{request: "1 4", want: "1 2 3 4 "},
	}
	for _, tt := range tests {
		t.Run(tt.request, func(t *testing.T) {
			assert.Equal(t, tt.want, exchangeOverPipe(t, h, tt.request))
		})
	}

	stats := cache.Stats()
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 4, stats.Misses)
}

func TestHandlerMissingValuesDefaultToZero(t *testing.T) {
	h, _ := newTestHandler("0 1\n1 2\n", HandlerConfig{})

	assert.Equal(t, "2 1 0 ", exchangeOverPipe(t, h, "2"))
	assert.Equal(t, "0 ", exchangeOverPipe(t, h, "junk"))
	assert.Equal(t, "0 1 2 ", exchangeOverPipe(t, h, "0 2abc"))
	assert.Equal(t, 2.0, metricValue(t, h.metrics, "pathserver_malformed_requests_total"))
}

func TestHandlerStrictRequests(t *testing.T) {
	h, cache := newTestHandler(sampleEdges, HandlerConfig{StrictRequests: true})

	assert.Equal(t, packet.InvalidRequestResponse, exchangeOverPipe(t, h, "1"))
	assert.Equal(t, packet.InvalidRequestResponse, exchangeOverPipe(t, h, ""))
	assert.Equal(t, "1 2 ", exchangeOverPipe(t, h, "1 2"))
	assert.Equal(t, 1, cache.Len())
}

func TestHandlerClientGoneBeforeRequest(t *testing.T) {
	h, _ := newTestHandler(sampleEdges, HandlerConfig{})

	serverConn, clientConn := net.Pipe()
	clientConn.Close()

	done := make(chan struct{})
	go func() {
		h.Serve(serverConn)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return after client went away")
	}
}

func TestHandlerIOTimeout(t *testing.T) {
	h, _ := newTestHandler(sampleEdges, HandlerConfig{IOTimeout: 50 * time.Millisecond})

	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	done := make(chan struct{})
	go func() {
		h.Serve(serverConn)
		close(done)
	}()
	// never send anything
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler ignored the io timeout")
	}
}

func metricValue(t *testing.T, m *metrics.Metrics, name string) float64 {
	t.Helper()
	families, err := m.Registry.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				total += c.GetValue()
			}
			if g := metric.GetGauge(); g != nil {
				total += g.GetValue()
			}
		}
	}
	return total
}
