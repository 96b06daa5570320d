package etcd

import (
	"context"
	"errors"
	"testing"

	"pathserver/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/etcd/api/v3/etcdserverpb"
	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// fakeKV keeps values in memory; methods other than Get and Put are not used
type fakeKV struct {
	clientv3.KV
	values   map[string]string
	revision int64
	err      error
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: make(map[string]string)}
}

func (f *fakeKV) Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	resp := &clientv3.GetResponse{}
	if value, ok := f.values[key]; ok {
		resp.Kvs = []*mvccpb.KeyValue{{Key: []byte(key), Value: []byte(value), ModRevision: f.revision}}
	}
	return resp, nil
}

func (f *fakeKV) Put(ctx context.Context, key, val string, opts ...clientv3.OpOption) (*clientv3.PutResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.revision++
	f.values[key] = val
	return &clientv3.PutResponse{Header: &etcdserverpb.ResponseHeader{Revision: f.revision}}, nil
}

func TestGraphStorePublishAndFetch(t *testing.T) {
	store := newGraphStoreWithKV(newFakeKV(), DefaultGraphKey)
	ctx := context.Background()

	revision, err := store.Publish(ctx, []byte("1 2\n2 3\n3 4\n1 5\n"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, revision)

	g, err := store.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, g.NodeCount())
	assert.Equal(t, []graph.NodeID{2, 5}, g.Neighbors(1))
}

func TestGraphStoreFetchMissingKey(t *testing.T) {
	store := newGraphStoreWithKV(newFakeKV(), DefaultGraphKey)

	_, err := store.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, graph.ErrGraphSource))
}

func TestGraphStoreErrors(t *testing.T) {
	kv := newFakeKV()
	kv.err = errors.New("etcd unavailable")
	store := newGraphStoreWithKV(kv, DefaultGraphKey)

	_, err := store.Fetch(context.Background())
	assert.True(t, errors.Is(err, graph.ErrGraphSource))

	_, err = store.Publish(context.Background(), []byte("1 2"))
	assert.Error(t, err)
}
