package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketapi/internal/apperr"
	"marketapi/internal/model"
)

func TestSyncJobPostgres_TryStart(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSyncJobPostgres(db)
	ctx := context.Background()
	stale := time.Now().Add(-time.Hour)

	t.Run("acquired", func(t *testing.T) {
		mock.ExpectExec("UPDATE sync_jobs SET status = 'running'").
			WithArgs("run-1", stale).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.TryStart(ctx, "run-1", stale)
		assert.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("held by another run", func(t *testing.T) {
		mock.ExpectExec("UPDATE sync_jobs SET status = 'running'").
			WithArgs("run-2", stale).
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := repo.TryStart(ctx, "run-2", stale)
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("store failure", func(t *testing.T) {
		mock.ExpectExec("UPDATE sync_jobs").WillReturnError(errors.New("db down"))

		_, err := repo.TryStart(ctx, "run-3", stale)
		assert.Equal(t, apperr.KindStore, apperr.KindOf(err))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncJobPostgres_ProgressAndFinish(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSyncJobPostgres(db)
	ctx := context.Background()

	mock.ExpectExec("UPDATE sync_jobs SET cursor").
		WithArgs("shop-9", 10, 1, "run-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE sync_jobs SET status = 'idle'").
		WithArgs(20, 1, nil, "run-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE sync_jobs SET status = 'idle'").
		WithArgs(3, 0, "cancelled", "run-2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Progress(ctx, "run-1", "shop-9", 10, 1))
	require.NoError(t, repo.Finish(ctx, "run-1", 20, 1, nil))
	require.NoError(t, repo.Finish(ctx, "run-2", 3, 0, errors.New("cancelled")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncJobPostgres_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSyncJobPostgres(db)
	started := time.Now().UTC()

	mock.ExpectQuery("SELECT status, (.+) FROM sync_jobs WHERE id = 1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "run_id", "cursor", "success_count", "failure_count", "started_at", "finished_at", "last_error"}).
			AddRow("running", "run-1", "item-3", 40, 2, started, nil, nil))

	job, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.SyncRunning, job.Status)
	assert.Equal(t, 40, job.SuccessCount)
	assert.Equal(t, 2, job.FailureCount)
	assert.Nil(t, job.FinishedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
