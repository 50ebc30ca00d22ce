// Package analytics reads sales figures out of closed daily accounts. All
// queries are read-only and cached in Redis; reopening a day evicts nothing
// but the short TTL keeps staleness bounded.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kasapos/backend-kasa/internal/common"
	"github.com/kasapos/backend-kasa/internal/store"
)

// Service provides cached access to settlement analytics.
type Service struct {
	St           store.Store
	R            *redis.Client
	TTL          time.Duration
	DefaultRange int
	Now          func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) defaultRange() int {
	if s == nil || s.DefaultRange <= 0 {
		return 30
	}
	return s.DefaultRange
}

func cacheKey(parts ...any) string {
	formatted := make([]string, 0, len(parts))
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

// Range is a resolved inclusive date window.
type Range struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// resolveRange defaults a missing window to the trailing DefaultRange days.
func (s *Service) resolveRange(from, to *time.Time) (Range, error) {
	end := store.DateOnly(s.now())
	if to != nil {
		end = store.DateOnly(*to)
	}
	start := end.AddDate(0, 0, -s.defaultRange())
	if from != nil {
		start = store.DateOnly(*from)
	}
	if end.Before(start) {
		return Range{}, common.Validation("to must not precede from")
	}
	return Range{From: start, To: end}, nil
}

// ItemSales returns one item's aggregated sales over the window.
func (s *Service) ItemSales(ctx context.Context, itemID int64, from, to *time.Time) (store.ItemSalesStats, error) {
	if s == nil || s.St == nil {
		return store.ItemSalesStats{}, fmt.Errorf("analytics service not configured")
	}
	window, err := s.resolveRange(from, to)
	if err != nil {
		return store.ItemSalesStats{}, err
	}
	key := cacheKey("an", "item", itemID, window.From.Format("2006-01-02"), window.To.Format("2006-01-02"))
	var cached store.ItemSalesStats
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}
	stats, err := s.St.ItemSalesInRange(ctx, itemID, window.From, window.To)
	if err != nil {
		return store.ItemSalesStats{}, err
	}
	s.store(ctx, key, stats)
	return stats, nil
}

// TopSellers returns the best-selling items by unit quantity over the window.
func (s *Service) TopSellers(ctx context.Context, from, to *time.Time, limit int) ([]store.TopSellerRow, error) {
	if s == nil || s.St == nil {
		return nil, fmt.Errorf("analytics service not configured")
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	window, err := s.resolveRange(from, to)
	if err != nil {
		return nil, err
	}
	key := cacheKey("an", "top", limit, window.From.Format("2006-01-02"), window.To.Format("2006-01-02"))
	var cached []store.TopSellerRow
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}
	rows, err := s.St.TopSellers(ctx, window.From, window.To, limit)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

// SalesByCategory aggregates the window's revenue per category.
func (s *Service) SalesByCategory(ctx context.Context, from, to *time.Time) ([]store.CategorySalesRow, error) {
	if s == nil || s.St == nil {
		return nil, fmt.Errorf("analytics service not configured")
	}
	window, err := s.resolveRange(from, to)
	if err != nil {
		return nil, err
	}
	key := cacheKey("an", "cat", window.From.Format("2006-01-02"), window.To.Format("2006-01-02"))
	var cached []store.CategorySalesRow
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}
	rows, err := s.St.SalesByCategory(ctx, window.From, window.To)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

func (s *Service) fromCache(ctx context.Context, key string, v any) bool {
	if s.R == nil || s.TTL <= 0 {
		return false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

func (s *Service) store(ctx context.Context, key string, value any) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, key, data, s.TTL).Err()
}
