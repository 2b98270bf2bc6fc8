package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"marketapi/internal/model"
	"marketapi/internal/repository"
)

type MockRecords[T any] struct {
	mock.Mock
}

var _ repository.Records[model.Shop] = (*MockRecords[model.Shop])(nil)

func (m *MockRecords[T]) Get(ctx context.Context, filter repository.Filter, multi bool) ([]*T, error) {
	args := m.Called(ctx, filter, multi)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*T), args.Error(1)
}

func (m *MockRecords[T]) List(ctx context.Context, filter repository.Filter, pq repository.PageQuery) ([]*T, error) {
	args := m.Called(ctx, filter, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*T), args.Error(1)
}

func (m *MockRecords[T]) Count(ctx context.Context, filter repository.Filter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func (m *MockRecords[T]) Insert(ctx context.Context, rec *T) (*T, error) {
	args := m.Called(ctx, rec)
	if f, ok := args.Get(0).(func(context.Context, *T) *T); ok {
		return f(ctx, rec), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func (m *MockRecords[T]) Update(ctx context.Context, changes repository.Changes, ident repository.Filter) (*repository.UpdateResult[T], error) {
	args := m.Called(ctx, changes, ident)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.UpdateResult[T]), args.Error(1)
}

func (m *MockRecords[T]) Delete(ctx context.Context, ident repository.Filter) (*T, error) {
	args := m.Called(ctx, ident)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func (m *MockRecords[T]) Page(ctx context.Context, after string, limit int) ([]*T, error) {
	args := m.Called(ctx, after, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*T), args.Error(1)
}

type MockSyncJobs struct {
	mock.Mock
}

var _ repository.SyncJobs = (*MockSyncJobs)(nil)

func (m *MockSyncJobs) TryStart(ctx context.Context, runID string, staleBefore time.Time) (bool, error) {
	args := m.Called(ctx, runID, staleBefore)
	return args.Bool(0), args.Error(1)
}

func (m *MockSyncJobs) Progress(ctx context.Context, runID, cursor string, success, failure int) error {
	args := m.Called(ctx, runID, cursor, success, failure)
	return args.Error(0)
}

func (m *MockSyncJobs) Finish(ctx context.Context, runID string, success, failure int, lastErr error) error {
	args := m.Called(ctx, runID, success, failure, lastErr)
	return args.Error(0)
}

func (m *MockSyncJobs) Get(ctx context.Context) (*model.SyncJob, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SyncJob), args.Error(1)
}
