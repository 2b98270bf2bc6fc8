package service

import (
	"context"

	"marketapi/internal/model"
	"marketapi/internal/repository"
)

// PlatformStats holds the public record counts.
type PlatformStats struct {
	Shops   int `json:"shops_count"`
	Items   int `json:"items_count"`
	Users   int `json:"users_count"`
	Vendors int `json:"vendors_count"`
}

// StatsService reports platform-wide counts straight from the store.
type StatsService interface {
	Platform(ctx context.Context) (*PlatformStats, error)
}

type statsService struct {
	store *repository.Store
}

func NewStatsService(d Deps) StatsService {
	return &statsService{store: d.Store}
}

func (s *statsService) Platform(ctx context.Context) (*PlatformStats, error) {
	var (
		st  PlatformStats
		err error
	)
	if st.Shops, err = s.store.Shops.Count(ctx, nil); err != nil {
		return nil, err
	}
	if st.Items, err = s.store.Items.Count(ctx, nil); err != nil {
		return nil, err
	}
	if st.Users, err = s.store.Users.Count(ctx, nil); err != nil {
		return nil, err
	}
	if st.Vendors, err = s.store.Users.Count(ctx, repository.Filter{"role": string(model.RoleVendor)}); err != nil {
		return nil, err
	}
	return &st, nil
}
