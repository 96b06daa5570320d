package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pathserver/admin"
	"pathserver/config"
	"pathserver/etcd"
	"pathserver/graph"
	"pathserver/metrics"
	"pathserver/routing"
	"pathserver/server"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// run loads the graph, starts the query listener and admin surfaces, and
// blocks until ctx is cancelled or one of them fails.
func run(ctx context.Context, cfg *config.Config) error {
	g, err := loadGraph(ctx, cfg)
	if err != nil {
		return err
	}

	cache := routing.NewPathCache(cfg.Cache.Capacity)
	m := metrics.New()
	m.RegisterCache(cache)

	listener, err := server.Listen(ctx, cfg.Server.Port)
	if err != nil {
		return err
	}
	handler := server.NewHandler(g, cache, m, server.HandlerConfig{
		IOTimeout:      cfg.Server.IOTimeout(),
		StrictRequests: cfg.Server.StrictRequests,
	})
	srv, err := server.New(listener, handler, server.Config{
		Transport:  cfg.Server.Transport,
		MaxWorkers: cfg.Server.MaxWorkers,
	}, m)
	if err != nil {
		listener.Close()
		return err
	}

	readiness := &admin.Readiness{}
	health := admin.NewHealthServer()
	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := srv.Serve(); !errors.Is(err, server.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		readiness.Set(false)
		health.SetServing(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.Admin.HTTPAddr != "" {
		router := admin.NewRouter(m, cache, g, readiness)
		group.Go(func() error {
			return admin.ServeHTTP(gctx, cfg.Admin.HTTPAddr, router)
		})
	}
	if cfg.Admin.GRPCAddr != "" {
		group.Go(func() error {
			return health.Serve(gctx, cfg.Admin.GRPCAddr)
		})
	}
	group.Go(func() error {
		return metrics.RunReporter(gctx, cfg.Admin.StatsInterval(), m, cache)
	})

	readiness.Set(true)
	health.SetServing(true)
	log.Infof("pathserver init success, port: %d, cache capacity: %d", cfg.Server.Port, cache.Capacity())

	err = group.Wait()
	log.Infof("pathserver stopped")
	return err
}

func loadGraph(ctx context.Context, cfg *config.Config) (*graph.Graph, error) {
	switch cfg.Graph.Source {
	case config.GraphSourceEtcd:
		store, err := etcd.NewGraphStore(etcd.EtcdConfig{
			Endpoints:   cfg.Etcd.Endpoints,
			DialTimeout: cfg.Etcd.DialTimeout(),
		}, cfg.Etcd.GraphKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", graph.ErrGraphSource, err)
		}
		defer store.Close()

		fetchCtx, cancel := context.WithTimeout(ctx, cfg.Etcd.DialTimeout())
		defer cancel()
		return store.Fetch(fetchCtx)
	default:
		return graph.LoadFile(cfg.Graph.Path)
	}
}
