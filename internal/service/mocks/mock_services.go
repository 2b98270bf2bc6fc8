package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"marketapi/internal/auth"
	"marketapi/internal/cache"
	"marketapi/internal/model"
	"marketapi/internal/search"
	"marketapi/internal/service"
)

type MockShopService struct {
	mock.Mock
}

var _ service.ShopService = (*MockShopService)(nil)

func (m *MockShopService) Create(ctx context.Context, who auth.Identity, in service.ShopInput) (*model.Shop, error) {
	args := m.Called(ctx, who, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Shop), args.Error(1)
}

func (m *MockShopService) Get(ctx context.Context, id string) (*model.Shop, cache.Source, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, cache.SourceStore, args.Error(2)
	}
	return args.Get(0).(*model.Shop), args.Get(1).(cache.Source), args.Error(2)
}

func (m *MockShopService) List(ctx context.Context, f service.ShopFilter, limit, offset int) ([]*model.Shop, error) {
	args := m.Called(ctx, f, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Shop), args.Error(1)
}

func (m *MockShopService) Update(ctx context.Context, who auth.Identity, id string, p service.ShopPatch) (*model.Shop, bool, error) {
	args := m.Called(ctx, who, id, p)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*model.Shop), args.Bool(1), args.Error(2)
}

func (m *MockShopService) Delete(ctx context.Context, who auth.Identity, id string) (*model.Shop, error) {
	args := m.Called(ctx, who, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Shop), args.Error(1)
}

func (m *MockShopService) Nearby(ctx context.Context, q search.NearbyQuery) ([]service.NearbyShop, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.NearbyShop), args.Error(1)
}

type MockAccountService struct {
	mock.Mock
}

var _ service.AccountService = (*MockAccountService)(nil)

func (m *MockAccountService) Register(ctx context.Context, email, password string, role model.Role) (*model.User, error) {
	args := m.Called(ctx, email, password, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAccountService) Login(ctx context.Context, email, password string, keepLogin bool) (*model.Session, error) {
	args := m.Called(ctx, email, password, keepLogin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *MockAccountService) Logout(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockAccountService) Me(ctx context.Context, who auth.Identity) (*model.User, error) {
	args := m.Called(ctx, who)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

type MockStatsService struct {
	mock.Mock
}

var _ service.StatsService = (*MockStatsService)(nil)

func (m *MockStatsService) Platform(ctx context.Context) (*service.PlatformStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PlatformStats), args.Error(1)
}
