package etcd

import (
	"context"
	"fmt"
	"time"

	"pathserver/graph"

	log "github.com/sirupsen/logrus"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const DefaultGraphKey = "/pathserver/graph"

type EtcdConfig struct {
	Endpoints   []string
	DialTimeout time.Duration
}

func DefaultEtcdConfig() EtcdConfig {
	return EtcdConfig{
		Endpoints:   []string{"localhost:2379"},
		DialTimeout: 5 * time.Second,
	}
}

// GraphStore keeps an edge list under a single etcd key, so several
// servers can load the same graph at startup.
type GraphStore struct {
	client *clientv3.Client
	kv     clientv3.KV
	key    string
}

func NewGraphStore(config EtcdConfig, key string) (*GraphStore, error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   config.Endpoints,
		DialTimeout: config.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}
	return &GraphStore{
		client: client,
		kv:     client.KV,
		key:    key,
	}, nil
}

func newGraphStoreWithKV(kv clientv3.KV, key string) *GraphStore {
	return &GraphStore{kv: kv, key: key}
}

func (s *GraphStore) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// Fetch reads the edge list stored under the key and parses it
func (s *GraphStore) Fetch(ctx context.Context) (*graph.Graph, error) {
	resp, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("%w: etcd get %s: %v", graph.ErrGraphSource, s.key, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, fmt.Errorf("%w: etcd key %s not found", graph.ErrGraphSource, s.key)
	}

	kv := resp.Kvs[0]
	g := graph.ParseEdgeListBytes(kv.Value)
	log.Infof("graph loaded from etcd key %s (revision %d), node num: %d, edge num: %d",
		s.key, kv.ModRevision, g.NodeCount(), g.EdgeCount())
	return g, nil
}

// Publish stores an edge list under the key and returns the new revision.
// Running servers keep the graph they loaded at startup.
func (s *GraphStore) Publish(ctx context.Context, edgeList []byte) (int64, error) {
	resp, err := s.kv.Put(ctx, s.key, string(edgeList))
	if err != nil {
		return 0, fmt.Errorf("etcd put %s: %w", s.key, err)
	}
	var revision int64
	if resp.Header != nil {
		revision = resp.Header.Revision
	}
	log.Infof("published edge list to etcd key %s, %d bytes, revision %d", s.key, len(edgeList), revision)
	return revision, nil
}
