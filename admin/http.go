package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"pathserver/graph"
	"pathserver/metrics"
	"pathserver/routing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Readiness flips to ready once the query listener is accepting
type Readiness struct {
	ready atomic.Bool
}

func (r *Readiness) Set(ready bool) {
	r.ready.Store(ready)
}

func (r *Readiness) Ready() bool {
	return r.ready.Load()
}

type StatsResponse struct {
	Graph GraphStats    `json:"graph"`
	Cache CacheResponse `json:"cache"`
}

type GraphStats struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}

type CacheResponse struct {
	Size      int        `json:"size"`
	Capacity  int        `json:"capacity"`
	Hits      uint64     `json:"hits"`
	Misses    uint64     `json:"misses"`
	Evictions uint64     `json:"evictions"`
	Keys      [][2]int64 `json:"keys"` // oldest first
}

// NewRouter serves /metrics, /healthz and /stats
func NewRouter(m *metrics.Metrics, cache *routing.PathCache, g *graph.Graph, readiness *Readiness) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	if m != nil {
		r.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if readiness != nil && !readiness.Ready() {
			http.Error(w, "not serving", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
		resp := StatsResponse{
			Graph: GraphStats{Nodes: g.NodeCount(), Edges: g.EdgeCount()},
		}
		if cache != nil {
			stats := cache.Stats()
			resp.Cache = CacheResponse{
				Size:      stats.Size,
				Capacity:  stats.Capacity,
				Hits:      stats.Hits,
				Misses:    stats.Misses,
				Evictions: stats.Evictions,
				Keys:      make([][2]int64, 0, stats.Size),
			}
			for _, key := range cache.Keys() {
				resp.Cache.Keys = append(resp.Cache.Keys, [2]int64{int64(key.Source), int64(key.Dest)})
			}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Warnf("encode stats response failed, err: %v", err)
		}
	})

	return r
}

// ServeHTTP runs an HTTP server on addr until ctx is cancelled
func ServeHTTP(ctx context.Context, addr string, handler http.Handler) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return serveHTTPListener(ctx, listener, handler)
}

func serveHTTPListener(ctx context.Context, listener net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("admin http listening on %v", listener.Addr())
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
