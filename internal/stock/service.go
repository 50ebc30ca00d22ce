// Package stock exposes the quantity-on-hand ledger. Cart mutations adjust
// the ledger through the cart package; the operations here are for direct
// restock and correction flows.
package stock

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/kasapos/backend-kasa/internal/common"
	"github.com/kasapos/backend-kasa/internal/store"
)

// Service encapsulates stock ledger operations.
type Service struct {
	St store.Store
	// Adjustments is an optional Prometheus collector labelled by direction.
	Adjustments *prometheus.CounterVec
}

// EntryView joins a ledger row with its item for list responses.
type EntryView struct {
	store.StockEntry
	ItemName string          `json:"itemName"`
	SKU      string          `json:"sku"`
	UnitType string          `json:"unitType"`
	Price    decimal.Decimal `json:"unitPrice"`
}

// Get returns the ledger entry for one item.
func (s *Service) Get(ctx context.Context, itemID int64) (store.StockEntry, error) {
	if s == nil || s.St == nil {
		return store.StockEntry{}, errors.New("stock service not configured")
	}
	e, err := s.St.GetStockByItem(ctx, itemID)
	if errors.Is(err, store.ErrNotFound) {
		return store.StockEntry{}, common.NotFound("stock entry not found")
	}
	return e, err
}

// List returns every ledger entry joined with its item.
func (s *Service) List(ctx context.Context) ([]EntryView, error) {
	if s == nil || s.St == nil {
		return nil, errors.New("stock service not configured")
	}
	entries, err := s.St.ListStockEntries(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ItemID)
	}
	items, err := s.St.ListItemsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]store.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	out := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		it := byID[e.ItemID]
		out = append(out, EntryView{
			StockEntry: e,
			ItemName:   it.Name,
			SKU:        it.SKU,
			UnitType:   it.UnitType,
			Price:      it.UnitPrice,
		})
	}
	return out, nil
}

// GroupedByCategory returns stocked items nested under their categories.
func (s *Service) GroupedByCategory(ctx context.Context) ([]store.StockCategoryGroup, error) {
	if s == nil || s.St == nil {
		return nil, errors.New("stock service not configured")
	}
	return s.St.ListStockGroupedByCategory(ctx)
}

// SetQuantity overwrites the on-hand quantity, used for stocktake
// corrections. Negative targets are rejected.
func (s *Service) SetQuantity(ctx context.Context, itemID int64, qty decimal.Decimal, actor common.Actor) (store.StockEntry, error) {
	if s == nil || s.St == nil {
		return store.StockEntry{}, errors.New("stock service not configured")
	}
	if qty.IsNegative() {
		return store.StockEntry{}, common.Validation("quantity cannot be negative")
	}
	e, err := s.St.SetStockQuantity(ctx, itemID, qty, actor.ID)
	if errors.Is(err, store.ErrNotFound) {
		return store.StockEntry{}, common.NotFound("stock entry not found")
	}
	return e, err
}

// Adjust applies a signed delta. Restocks pass positive values; shrinkage
// and spoilage corrections pass negative ones. The ledger never goes below
// zero.
func (s *Service) Adjust(ctx context.Context, itemID int64, delta decimal.Decimal, actor common.Actor) (store.StockEntry, error) {
	if s == nil || s.St == nil {
		return store.StockEntry{}, errors.New("stock service not configured")
	}
	if delta.IsZero() {
		return store.StockEntry{}, common.Validation("delta cannot be zero")
	}
	e, err := s.St.AdjustStockQuantity(ctx, itemID, delta, actor.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return store.StockEntry{}, common.NotFound("stock entry not found")
	case errors.Is(err, store.ErrInsufficientStock):
		return store.StockEntry{}, common.Conflict("insufficient stock")
	}
	if err == nil && s.Adjustments != nil {
		direction := "increase"
		if delta.IsNegative() {
			direction = "decrease"
		}
		s.Adjustments.WithLabelValues(direction).Inc()
	}
	return e, err
}
