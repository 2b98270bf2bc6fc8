// Package repository declares the typed accessors over the primary store.
// Implementations live in subpackages (postgres).
package repository

import (
	"context"
	"time"

	"marketapi/internal/model"
)

// Filter maps column names to exact-match values. Entries are ANDed.
// A nil value matches NULL.
type Filter map[string]any

// Changes maps column names to new values for an update.
type Changes map[string]any

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// UpdateResult is returned by Records.Update. When NoOp is true every
// requested change already matched the stored record and nothing was written;
// Record then holds the current row.
type UpdateResult[T any] struct {
	Record *T
	NoOp   bool
}

// Records is the per-entity accessor. Every call runs in its own transaction.
type Records[T any] interface {
	// Get returns the matching records. With multi=false at most one record is
	// returned and which one is unspecified when several match.
	Get(ctx context.Context, filter Filter, multi bool) ([]*T, error)

	// List returns a page of matching records, newest first.
	List(ctx context.Context, filter Filter, pq PageQuery) ([]*T, error)

	// Count returns the number of records matching filter.
	Count(ctx context.Context, filter Filter) (int, error)

	// Insert persists rec and returns the stored row including generated fields.
	// Uniqueness violations fail with a Conflict error.
	Insert(ctx context.Context, rec *T) (*T, error)

	// Update applies changes to the record matching ident.
	Update(ctx context.Context, changes Changes, ident Filter) (*UpdateResult[T], error)

	// Delete removes the record matching ident and returns its last state.
	// A missing record fails with a NotFound error.
	Delete(ctx context.Context, ident Filter) (*T, error)

	// Page returns up to limit records whose key sorts after the given cursor,
	// in key order. An empty cursor starts from the beginning.
	Page(ctx context.Context, after string, limit int) ([]*T, error)
}

// Store groups the accessors used by the services.
type Store struct {
	Users       Records[model.User]
	Sessions    Records[model.Session]
	Shops       Records[model.Shop]
	Items       Records[model.Item]
	Inventories Records[model.Inventory]
}

// SyncJobs guards the single reindex job record.
type SyncJobs interface {
	// TryStart marks the job running for runID when it is idle, or when the
	// running job started before staleBefore. It reports false if another run
	// holds the job.
	TryStart(ctx context.Context, runID string, staleBefore time.Time) (bool, error)

	// Progress records the cursor and counters of a running job.
	Progress(ctx context.Context, runID, cursor string, success, failure int) error

	// Finish marks the job idle with its final counters.
	Finish(ctx context.Context, runID string, success, failure int, lastErr error) error

	// Get returns the job record.
	Get(ctx context.Context) (*model.SyncJob, error)
}
