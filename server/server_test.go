package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"pathserver/client"
	"pathserver/config"
	"pathserver/graph"
	"pathserver/metrics"
	packet "pathserver/packet_handler"
	"pathserver/routing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*Server
	addr  string
	cache *routing.PathCache
	graph *graph.Graph
	done  chan error
}

func startServer(t *testing.T, edges string, cfg Config, hcfg HandlerConfig) *testServer {
	t.Helper()
	listener, err := Listen(context.Background(), 0)
	require.NoError(t, err)

	g := graph.ParseEdgeListBytes([]byte(edges))
	cache := routing.NewPathCache(routing.DefaultCacheCapacity)
	m := metrics.New()
	srv, err := New(listener, NewHandler(g, cache, m, hcfg), cfg, m)
	require.NoError(t, err)

	ts := &testServer{
		Server: srv,
		addr:   fmt.Sprintf("127.0.0.1:%d", listener.Addr().(*net.TCPAddr).Port),
		cache:  cache,
		graph:  g,
		done:   make(chan error, 1),
	}
	go func() { ts.done <- srv.Serve() }()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
		<-ts.done
	})
	return ts
}

func queryCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestServerEndToEnd(t *testing.T) {
	ts := startServer(t, sampleEdges, Config{MaxWorkers: 4}, HandlerConfig{})
	ctx := queryCtx(t)

	reply, err := client.Query(ctx, ts.addr, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, "1 2 3 4 ", reply)

	reply, err = client.Query(ctx, ts.addr, 1, 6)
	require.NoError(t, err)
	assert.Equal(t, packet.NotFoundResponse, reply)

	reply, err = client.Query(ctx, ts.addr, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "1 ", reply)

	// repeated queries are bit-identical and served from cache
	again, err := client.Query(ctx, ts.addr, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, "1 2 3 4 ", again)
	assert.EqualValues(t, 1, ts.cache.Stats().Hits)
}

func TestServerSmuxTransport(t *testing.T) {
	ts := startServer(t, sampleEdges, Config{Transport: config.TransportSmux, MaxWorkers: 2}, HandlerConfig{})
	ctx := queryCtx(t)

	c, err := client.NewSmuxClient(ctx, ts.addr)
	require.NoError(t, err)
	defer c.Close()

	for i := 0; i < 3; i++ {
		reply, err := c.Query(ctx, 1, 4)
		require.NoError(t, err)
		assert.Equal(t, "1 2 3 4 ", reply)
	}

	path, err := c.QueryPath(ctx, 4, 5)
	require.NoError(t, err)
	assert.Equal(t, routing.Path{4, 3, 2, 1, 5}, path)
}

func TestServerConcurrentClients(t *testing.T) {
	var edges string
	for i := 0; i < 30; i++ {
		edges += fmt.Sprintf("%d %d\n", i, i+1)
		if i%3 == 0 {
			edges += fmt.Sprintf("%d %d\n", i, (i*7)%31)
		}
	}
	ts := startServer(t, edges, Config{MaxWorkers: 4}, HandlerConfig{})
	ctx := queryCtx(t)

	const clients = 48
	var wg sync.WaitGroup
	failures := make(chan error, clients)
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			source := graph.NodeID(i % 31)
			dest := graph.NodeID((i * 11) % 37) // some ids are absent
			reply, err := client.Query(ctx, ts.addr, source, dest)
			if err != nil {
				failures <- err
				return
			}
			want := string(packet.FormatResponse(routing.ShortestPath(ts.graph, source, dest)))
			if reply != want {
				failures <- fmt.Errorf("query %d %d: got %q, want %q", source, dest, reply, want)
			}
		}(i)
	}
	wg.Wait()
	close(failures)
	for err := range failures {
		t.Error(err)
	}
	assert.LessOrEqual(t, ts.cache.Len(), routing.DefaultCacheCapacity)
}

func TestServerBoundedWorkersWithTimeout(t *testing.T) {
	ts := startServer(t, sampleEdges, Config{MaxWorkers: 1}, HandlerConfig{IOTimeout: 200 * time.Millisecond})
	ctx := queryCtx(t)

	// occupies the only worker until the io timeout fires
	stalled, err := net.Dial("tcp", ts.addr)
	require.NoError(t, err)
	defer stalled.Close()
	time.Sleep(20 * time.Millisecond)

	start := time.Now()
	reply, err := client.Query(ctx, ts.addr, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, "2 3 4 ", reply)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestServerShutdown(t *testing.T) {
	listener, err := Listen(context.Background(), 0)
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port

	g := graph.ParseEdgeListBytes([]byte(sampleEdges))
	srv, err := New(listener, NewHandler(g, routing.NewPathCache(0), nil, HandlerConfig{}), Config{}, nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	reply, err := client.Query(queryCtx(t), addr, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "1 2 ", reply)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.True(t, errors.Is(<-done, ErrServerClosed))

	// second shutdown is a no-op
	assert.NoError(t, srv.Shutdown(ctx))

	_, err = client.Query(queryCtx(t), addr, 1, 2)
	assert.Error(t, err)
}

func TestListenInvalidPort(t *testing.T) {
	_, err := Listen(context.Background(), -1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrListen))
}

func TestNewRejectsUnknownTransport(t *testing.T) {
	listener, err := Listen(context.Background(), 0)
	require.NoError(t, err)
	defer listener.Close()

	_, err = New(listener, nil, Config{Transport: "udp"}, nil)
	assert.Error(t, err)
}
