package service

import (
	"context"
	"strings"

	"marketapi/internal/apperr"
	"marketapi/internal/search"
)

// SearchService runs text queries against the index. Results may lag writes.
type SearchService interface {
	Shops(ctx context.Context, q string, limit int) ([]search.ShopDocument, error)
	Items(ctx context.Context, q string, limit int) ([]search.ItemDocument, error)
}

type searchService struct {
	index SearchIndex
}

func NewSearchService(d Deps) SearchService {
	return &searchService{index: d.Index}
}

func (s *searchService) Shops(ctx context.Context, q string, limit int) ([]search.ShopDocument, error) {
	const op = "search.shops"
	q, err := query(op, q)
	if err != nil {
		return nil, err
	}
	docs, err := s.index.SearchShops(ctx, q, page(limit, 0).Limit)
	if err != nil {
		return nil, apperr.IndexSync(op, err)
	}
	return docs, nil
}

func (s *searchService) Items(ctx context.Context, q string, limit int) ([]search.ItemDocument, error) {
	const op = "search.items"
	q, err := query(op, q)
	if err != nil {
		return nil, err
	}
	docs, err := s.index.SearchItems(ctx, q, page(limit, 0).Limit)
	if err != nil {
		return nil, apperr.IndexSync(op, err)
	}
	return docs, nil
}

func query(op, q string) (string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", apperr.Validation(op, "q is required")
	}
	return q, nil
}
