package search

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketapi/internal/geo"
	"marketapi/internal/metrics"
	"marketapi/internal/model"
)

type call struct {
	op, collection, id string
	doc                any
}

type recordingIndex struct {
	mu    sync.Mutex
	calls []call
	err   error
	block chan struct{}
}

func (r *recordingIndex) Upsert(ctx context.Context, collection string, doc any) error {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id := ""
	switch d := doc.(type) {
	case ShopDocument:
		id = d.ID
	case ItemDocument:
		id = d.ID
	}
	r.calls = append(r.calls, call{op: opUpsert, collection: collection, id: id, doc: doc})
	return r.err
}

func (r *recordingIndex) Delete(ctx context.Context, collection, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{op: opDelete, collection: collection, id: id})
	return r.err
}

func (r *recordingIndex) Import(ctx context.Context, collection string, docs []any) (*ImportResult, error) {
	return &ImportResult{Success: len(docs)}, r.err
}

func testShop(t *testing.T) *model.Shop {
	t.Helper()
	loc, err := geo.Encode(12.9716, 77.5946)
	require.NoError(t, err)
	return &model.Shop{ID: "s1", OwnerID: "u1", Name: "Corner", Address: "1 Main St", IsOpen: true, Location: loc, CreatedAt: time.Unix(1700000000, 0)}
}

func TestShopDoc(t *testing.T) {
	s := testShop(t)
	updated := time.Unix(1700000100, 0)
	s.UpdatedAt = &updated

	doc, err := ShopDoc(s)
	require.NoError(t, err)
	assert.Equal(t, "s1", doc.ID)
	assert.Equal(t, []float64{12.9716, 77.5946}, doc.Location)
	assert.Equal(t, int64(1700000000), doc.CreatedAt)
	require.NotNil(t, doc.UpdatedAt)
	assert.Equal(t, int64(1700000100), *doc.UpdatedAt)

	s.Location = nil
	_, err = ShopDoc(s)
	assert.Error(t, err)
}

func TestMirror_AppliesInOrderPerDocument(t *testing.T) {
	idx := &recordingIndex{}
	m := NewMirror(idx, 4, 16, time.Second, nil, zerolog.Nop())

	s := testShop(t)
	m.ShopChanged(s)
	m.ItemChanged(&model.Item{ID: "i1", ShopID: "s1", Name: "Bread", Price: 2})
	m.ItemDeleted("i1")
	m.ShopDeleted("s1")
	require.NoError(t, m.Close(context.Background()))

	var shopOps, itemOps []string
	for _, c := range idx.calls {
		if c.collection == ShopsCollection {
			shopOps = append(shopOps, c.op)
		} else {
			itemOps = append(itemOps, c.op)
		}
	}
	assert.Equal(t, []string{opUpsert, opDelete}, shopOps)
	assert.Equal(t, []string{opUpsert, opDelete}, itemOps)
}

func TestMirror_FailuresAreSwallowedAndCounted(t *testing.T) {
	reg := prometheus.NewRegistry()
	mt, err := metrics.New(reg)
	require.NoError(t, err)

	var buf bytes.Buffer
	idx := &recordingIndex{err: errors.New("connection refused")}
	m := NewMirror(idx, 1, 4, time.Second, mt, zerolog.New(&buf))

	m.ShopChanged(testShop(t))
	require.NoError(t, m.Close(context.Background()))

	n, err := testutil.GatherAndCount(reg, "marketapi_index_mirror_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"doc_id":"s1"`)
	assert.Contains(t, buf.String(), "index sync failed")
}

func TestMirror_TimeoutBoundsEachCall(t *testing.T) {
	idx := &recordingIndex{block: make(chan struct{})}
	m := NewMirror(idx, 1, 4, 30*time.Millisecond, nil, zerolog.Nop())

	start := time.Now()
	m.ItemChanged(&model.Item{ID: "i1"})
	require.NoError(t, m.Close(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestMirror_DropsWhenFullOrClosed(t *testing.T) {
	reg := prometheus.NewRegistry()
	mt, err := metrics.New(reg)
	require.NoError(t, err)

	idx := &recordingIndex{block: make(chan struct{})}
	m := NewMirror(idx, 1, 1, time.Second, mt, zerolog.Nop())

	// one task in flight, one queued, the rest dropped without blocking
	for i := 0; i < 5; i++ {
		m.ItemChanged(&model.Item{ID: "same"})
	}
	close(idx.block)
	require.NoError(t, m.Close(context.Background()))
	m.ItemDeleted("after-close")

	assert.GreaterOrEqual(t, counterValue(t, reg, "marketapi_index_mirror_dropped_total"), 3.0)
}

func TestMirror_InvalidShopIsReportedNotQueued(t *testing.T) {
	idx := &recordingIndex{}
	m := NewMirror(idx, 1, 1, time.Second, nil, zerolog.Nop())
	m.ShopChanged(&model.Shop{ID: "broken"})
	require.NoError(t, m.Close(context.Background()))
	assert.Empty(t, idx.calls)
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
