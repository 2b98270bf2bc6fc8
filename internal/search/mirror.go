package search

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"marketapi/internal/apperr"
	"marketapi/internal/metrics"
	"marketapi/internal/model"
)

const (
	opUpsert = "upsert"
	opDelete = "delete"
)

type task struct {
	op         string
	collection string
	id         string
	doc        any
}

// Mirror copies committed shop and item changes into the index off the
// request path. Tasks for the same document always go to the same worker, so
// they are applied in submission order. Failures are logged and counted,
// never returned.
type Mirror struct {
	index   Index
	timeout time.Duration
	metrics *metrics.Metrics
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	queues []chan task
	wg     sync.WaitGroup
}

// NewMirror starts workers goroutines, each with a queue of queueSize tasks.
// timeout bounds every index call.
func NewMirror(index Index, workers, queueSize int, timeout time.Duration, m *metrics.Metrics, log zerolog.Logger) *Mirror {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	mr := &Mirror{
		index:   index,
		timeout: timeout,
		metrics: m,
		log:     log.With().Str("component", "index_mirror").Logger(),
		queues:  make([]chan task, workers),
	}
	for i := range mr.queues {
		q := make(chan task, queueSize)
		mr.queues[i] = q
		mr.wg.Add(1)
		go mr.work(q)
	}
	return mr
}

func (m *Mirror) ShopChanged(s *model.Shop) {
	doc, err := ShopDoc(s)
	if err != nil {
		m.fail(task{op: opUpsert, collection: ShopsCollection, id: s.ID}, err)
		return
	}
	m.submit(task{op: opUpsert, collection: ShopsCollection, id: s.ID, doc: doc})
}

func (m *Mirror) ShopDeleted(id string) {
	m.submit(task{op: opDelete, collection: ShopsCollection, id: id})
}

func (m *Mirror) ItemChanged(i *model.Item) {
	m.submit(task{op: opUpsert, collection: ItemsCollection, id: i.ID, doc: ItemDoc(i)})
}

func (m *Mirror) ItemDeleted(id string) {
	m.submit(task{op: opDelete, collection: ItemsCollection, id: id})
}

func (m *Mirror) submit(t task) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		m.drop(t, "mirror closed")
		return
	}
	select {
	case m.queues[shard(t.id, len(m.queues))] <- t:
	default:
		m.drop(t, "mirror queue full")
	}
}

func shard(id string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return int(h.Sum32() % uint32(n))
}

func (m *Mirror) work(q <-chan task) {
	defer m.wg.Done()
	for t := range q {
		m.apply(t)
	}
}

func (m *Mirror) apply(t task) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	var err error
	switch t.op {
	case opUpsert:
		err = m.index.Upsert(ctx, t.collection, t.doc)
	case opDelete:
		err = m.index.Delete(ctx, t.collection, t.id)
	}
	if err != nil {
		m.fail(t, err)
	}
}

func (m *Mirror) fail(t task, err error) {
	err = apperr.IndexSync("search."+t.op, err)
	m.metrics.MirrorFailed(t.op, t.collection)
	m.log.Warn().Err(err).
		Str("op", t.op).
		Str("collection", t.collection).
		Str("doc_id", t.id).
		Msg("index mirror failed")
}

func (m *Mirror) drop(t task, reason string) {
	m.metrics.MirrorDropped()
	m.log.Warn().
		Str("op", t.op).
		Str("collection", t.collection).
		Str("doc_id", t.id).
		Msg(reason)
}

// Close stops accepting tasks and waits until queued tasks are applied or ctx ends.
func (m *Mirror) Close(ctx context.Context) error {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		for _, q := range m.queues {
			close(q)
		}
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
