// Package reindex rebuilds the search index from the primary store.
package reindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"marketapi/internal/apperr"
	"marketapi/internal/metrics"
	"marketapi/internal/model"
	"marketapi/internal/repository"
	"marketapi/internal/search"
	"marketapi/internal/storage"
)

// ReportPrefix is the archive prefix under which run reports are written.
const ReportPrefix = "reports/"

var (
	ErrAlreadyRunning = apperr.Conflict("reindex.trigger", "reindex already running")
	ErrNotRunning     = apperr.NotFound("reindex.cancel", "no reindex running in this process")
)

// ReportKey returns the archive key of the report for runID.
func ReportKey(runID string) string { return ReportPrefix + runID + ".json" }

// Index is what a run needs from the search index: the import and delete
// calls, the collection set-up and a listing of the ids already indexed.
type Index interface {
	search.Index
	EnsureCollections(ctx context.Context) error
	ExportIDs(ctx context.Context, collection string) ([]string, error)
}

var _ Index = (*search.Client)(nil)

// CollectionReport holds the counters of one collection in a run. Pruned
// counts index documents removed because their record no longer exists.
type CollectionReport struct {
	Name    string `json:"name"`
	Batches int    `json:"batches"`
	Success int    `json:"success"`
	Failure int    `json:"failure"`
	Pruned  int    `json:"pruned"`
}

// Report describes a finished run.
type Report struct {
	RunID       string             `json:"run_id"`
	StartedAt   time.Time          `json:"started_at"`
	FinishedAt  time.Time          `json:"finished_at"`
	Cancelled   bool               `json:"cancelled"`
	Success     int                `json:"success"`
	Failure     int                `json:"failure"`
	Pruned      int                `json:"pruned"`
	Collections []CollectionReport `json:"collections"`
	Errors      []string           `json:"errors,omitempty"`
}

// Options configures a Coordinator.
type Options struct {
	BatchSize  int
	StaleAfter time.Duration
	// Archive is optional. Reports are only logged when it is nil.
	Archive storage.Archive
}

type run struct {
	id        string
	cancelled atomic.Bool
}

// Coordinator runs full reindex jobs. The sync_jobs record makes a run
// single-flight across processes; cancellation only reaches runs started by
// this Coordinator.
type Coordinator struct {
	shops   repository.Records[model.Shop]
	items   repository.Records[model.Item]
	jobs    repository.SyncJobs
	index   Index
	archive storage.Archive
	metrics *metrics.Metrics
	log     zerolog.Logger

	batchSize  int
	staleAfter time.Duration
	now        func() time.Time

	mu      sync.Mutex
	current *run
	wg      sync.WaitGroup
}

// New returns a Coordinator over the shops and items of store.
func New(store *repository.Store, jobs repository.SyncJobs, index Index, opts Options, m *metrics.Metrics, log zerolog.Logger) *Coordinator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = time.Hour
	}
	return &Coordinator{
		shops:      store.Shops,
		items:      store.Items,
		jobs:       jobs,
		index:      index,
		archive:    opts.Archive,
		metrics:    m,
		log:        log.With().Str("component", "reindex").Logger(),
		batchSize:  opts.BatchSize,
		staleAfter: opts.StaleAfter,
		now:        time.Now,
	}
}

func (c *Coordinator) start(ctx context.Context) (*run, error) {
	r := &run{id: uuid.NewString()}
	ok, err := c.jobs.TryStart(ctx, r.id, c.now().Add(-c.staleAfter))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyRunning
	}
	c.mu.Lock()
	c.current = r
	c.mu.Unlock()
	return r, nil
}

// Trigger starts a run in the background and returns its id. It fails with
// ErrAlreadyRunning when another run holds the job.
func (c *Coordinator) Trigger(ctx context.Context) (string, error) {
	r, err := c.start(ctx)
	if err != nil {
		return "", err
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.execute(context.WithoutCancel(ctx), r)
	}()
	return r.id, nil
}

// RunSync runs a job to completion on the calling goroutine.
func (c *Coordinator) RunSync(ctx context.Context) (*Report, error) {
	r, err := c.start(ctx)
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, r), nil
}

// Status returns the job record.
func (c *Coordinator) Status(ctx context.Context) (*model.SyncJob, error) {
	return c.jobs.Get(ctx)
}

// Cancel asks the local run to stop after its current batch.
func (c *Coordinator) Cancel() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return "", ErrNotRunning
	}
	c.current.cancelled.Store(true)
	return c.current.id, nil
}

// Close cancels the local run and waits for background runs to finish.
func (c *Coordinator) Close(ctx context.Context) error {
	_, _ = c.Cancel()
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) execute(ctx context.Context, r *run) *Report {
	log := c.log.With().Str("run_id", r.id).Logger()
	rep := &Report{RunID: r.id, StartedAt: c.now()}
	log.Info().Msg("reindex started")

	shops := CollectionReport{Name: search.ShopsCollection}
	items := CollectionReport{Name: search.ItemsCollection}
	if err := c.index.EnsureCollections(ctx); err != nil {
		rep.Errors = append(rep.Errors, err.Error())
		log.Error().Err(apperr.IndexSync("reindex.collections", err)).Msg("search collections unavailable")
	} else {
		shops = sweep(ctx, c, r, rep, search.ShopsCollection, c.shops, func(s *model.Shop) (any, error) {
			return search.ShopDoc(s)
		})
		if !r.cancelled.Load() && ctx.Err() == nil {
			items = sweep(ctx, c, r, rep, search.ItemsCollection, c.items, func(i *model.Item) (any, error) {
				return search.ItemDoc(i), nil
			})
		}
	}
	rep.Collections = []CollectionReport{shops, items}
	rep.Cancelled = r.cancelled.Load() || ctx.Err() != nil
	rep.FinishedAt = c.now()

	var lastErr error
	if n := len(rep.Errors); n > 0 {
		lastErr = fmt.Errorf("%s", rep.Errors[n-1])
	}
	fctx := context.WithoutCancel(ctx)
	if err := c.jobs.Finish(fctx, r.id, rep.Success, rep.Failure, lastErr); err != nil {
		log.Error().Err(err).Msg("failed to release reindex job")
	}
	c.mu.Lock()
	if c.current == r {
		c.current = nil
	}
	c.mu.Unlock()

	c.metrics.ReindexDone(rep.FinishedAt.Sub(rep.StartedAt).Seconds())
	c.archiveReport(fctx, rep, log)
	log.Info().
		Int("success", rep.Success).
		Int("failure", rep.Failure).
		Int("pruned", rep.Pruned).
		Bool("cancelled", rep.Cancelled).
		Dur("took", rep.FinishedAt.Sub(rep.StartedAt)).
		Msg("reindex finished")
	return rep
}

// sweep pages through one entity table in key order and imports each page.
// A failed batch is counted and skipped. When every page was read, index
// documents whose record is gone are pruned.
func sweep[T any](ctx context.Context, c *Coordinator, r *run, rep *Report, collection string, records repository.Records[T], project func(*T) (any, error)) CollectionReport {
	cr := CollectionReport{Name: collection}
	log := c.log.With().Str("run_id", r.id).Str("collection", collection).Logger()
	seen := map[string]struct{}{}
	if complete := importAll(ctx, c, r, rep, &cr, seen, records, project, log); complete && !r.cancelled.Load() {
		prune(ctx, c, rep, &cr, seen, records, log)
	}
	return cr
}

// importAll reports whether the whole table was read.
func importAll[T any](ctx context.Context, c *Coordinator, r *run, rep *Report, cr *CollectionReport, seen map[string]struct{}, records repository.Records[T], project func(*T) (any, error), log zerolog.Logger) bool {
	collection := cr.Name
	after := ""
	for {
		if r.cancelled.Load() || ctx.Err() != nil {
			log.Info().Str("cursor", after).Msg("reindex cancelled")
			return false
		}
		page, err := records.Page(ctx, after, c.batchSize)
		if err != nil {
			// Without a page there is no cursor to advance, so the sweep stops here.
			cr.Failure++
			rep.Failure++
			rep.Errors = append(rep.Errors, err.Error())
			c.metrics.ReindexBatch(collection, false)
			log.Error().Err(err).Str("cursor", after).Msg("failed to read reindex batch")
			return false
		}
		if len(page) == 0 {
			return true
		}
		after = keyOf(page[len(page)-1])
		cr.Batches++

		docs := make([]any, 0, len(page))
		for _, rec := range page {
			seen[keyOf(rec)] = struct{}{}
			doc, err := project(rec)
			if err != nil {
				cr.Failure++
				rep.Failure++
				rep.Errors = append(rep.Errors, err.Error())
				log.Warn().Err(err).Str("doc_id", keyOf(rec)).Msg("skipping unindexable record")
				continue
			}
			docs = append(docs, doc)
		}

		ok := c.importBatch(ctx, collection, docs, cr, rep, log)
		c.metrics.ReindexBatch(collection, ok)
		if err := c.jobs.Progress(ctx, r.id, collection+":"+after, rep.Success, rep.Failure); err != nil {
			log.Warn().Err(err).Msg("failed to record reindex progress")
		}
		if len(page) < c.batchSize {
			return true
		}
	}
}

// prune deletes index documents that were not seen in the table. Each
// candidate is looked up again so a record created during the run survives.
func prune[T any](ctx context.Context, c *Coordinator, rep *Report, cr *CollectionReport, seen map[string]struct{}, records repository.Records[T], log zerolog.Logger) {
	fail := func(err error) {
		cr.Failure++
		rep.Failure++
		rep.Errors = append(rep.Errors, err.Error())
	}

	ids, err := c.index.ExportIDs(ctx, cr.Name)
	if err != nil {
		fail(err)
		log.Error().Err(apperr.IndexSync("reindex.export", err)).Msg("failed to list indexed documents")
		return
	}
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		found, err := records.Get(ctx, repository.Filter{"id": id}, false)
		if err != nil {
			fail(err)
			log.Warn().Err(err).Str("doc_id", id).Msg("failed to check indexed document")
			continue
		}
		if len(found) > 0 {
			continue
		}
		if err := c.index.Delete(ctx, cr.Name, id); err != nil {
			fail(err)
			log.Warn().Err(apperr.IndexSync("reindex.prune", err)).Str("doc_id", id).Msg("failed to prune indexed document")
			continue
		}
		cr.Pruned++
		rep.Pruned++
		log.Debug().Str("doc_id", id).Msg("pruned orphaned document")
	}
}

func (c *Coordinator) importBatch(ctx context.Context, collection string, docs []any, cr *CollectionReport, rep *Report, log zerolog.Logger) bool {
	if len(docs) == 0 {
		return true
	}
	res, err := c.index.Import(ctx, collection, docs)
	if res != nil {
		cr.Success += res.Success
		rep.Success += res.Success
	}
	if err == nil {
		return true
	}
	failed := len(docs)
	if res != nil {
		failed = len(docs) - res.Success
	}
	cr.Failure += failed
	rep.Failure += failed
	rep.Errors = append(rep.Errors, err.Error())
	log.Error().Err(apperr.IndexSync("reindex.import", err)).Int("failed", failed).Msg("reindex batch failed")
	return false
}

func (c *Coordinator) archiveReport(ctx context.Context, rep *Report, log zerolog.Logger) {
	if c.archive == nil {
		return
	}
	body, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("failed to encode reindex report")
		return
	}
	_, err = c.archive.Put(ctx, ReportKey(rep.RunID), bytes.NewReader(body), storage.PutObjectOptions{
		Size:        int64(len(body)),
		ContentType: "application/json",
		Metadata:    map[string]string{"run-id": rep.RunID},
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to archive reindex report")
	}
}

func keyOf(rec any) string {
	switch v := rec.(type) {
	case *model.Shop:
		return v.ID
	case *model.Item:
		return v.ID
	}
	return ""
}
