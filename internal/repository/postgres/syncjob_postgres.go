package postgres

import (
	"context"
	"database/sql"
	"time"

	"marketapi/internal/apperr"
	"marketapi/internal/model"
	"marketapi/internal/repository"
)

// SyncJobPostgres stores the reindex job record in the single-row sync_jobs table.
// Status transitions are conditional updates so that two triggers cannot both
// move the row to running.
type SyncJobPostgres struct {
	db *sql.DB
}

func NewSyncJobPostgres(db *sql.DB) *SyncJobPostgres {
	return &SyncJobPostgres{db: db}
}

var _ repository.SyncJobs = (*SyncJobPostgres)(nil)

func (r *SyncJobPostgres) TryStart(ctx context.Context, runID string, staleBefore time.Time) (bool, error) {
	const q = `
		UPDATE sync_jobs
		SET status = 'running', run_id = $1, cursor = '', success_count = 0, failure_count = 0,
		    started_at = now(), finished_at = NULL, last_error = NULL
		WHERE id = 1 AND (status <> 'running' OR started_at < $2)
	`
	res, err := r.db.ExecContext(ctx, q, runID, staleBefore)
	if err != nil {
		return false, apperr.Store("sync_job.start", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Store("sync_job.start", err)
	}
	return n == 1, nil
}

func (r *SyncJobPostgres) Progress(ctx context.Context, runID, cursor string, success, failure int) error {
	const q = `
		UPDATE sync_jobs
		SET cursor = $1, success_count = $2, failure_count = $3
		WHERE id = 1 AND run_id = $4
	`
	if _, err := r.db.ExecContext(ctx, q, cursor, success, failure, runID); err != nil {
		return apperr.Store("sync_job.progress", err)
	}
	return nil
}

func (r *SyncJobPostgres) Finish(ctx context.Context, runID string, success, failure int, lastErr error) error {
	const q = `
		UPDATE sync_jobs
		SET status = 'idle', success_count = $1, failure_count = $2, finished_at = now(), last_error = $3
		WHERE id = 1 AND run_id = $4
	`
	var msg *string
	if lastErr != nil {
		s := lastErr.Error()
		msg = &s
	}
	if _, err := r.db.ExecContext(ctx, q, success, failure, msg, runID); err != nil {
		return apperr.Store("sync_job.finish", err)
	}
	return nil
}

func (r *SyncJobPostgres) Get(ctx context.Context) (*model.SyncJob, error) {
	const q = `
		SELECT status, COALESCE(run_id, ''), cursor, success_count, failure_count, started_at, finished_at, last_error
		FROM sync_jobs
		WHERE id = 1
	`
	var j model.SyncJob
	err := r.db.QueryRowContext(ctx, q).Scan(
		&j.Status,
		&j.RunID,
		&j.Cursor,
		&j.SuccessCount,
		&j.FailureCount,
		&j.StartedAt,
		&j.FinishedAt,
		&j.LastError,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return &model.SyncJob{Status: model.SyncIdle}, nil
		}
		return nil, apperr.Store("sync_job.get", err)
	}
	return &j, nil
}
