package memory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/kasapos/backend-kasa/internal/store"
)

func (m *Memory) CreateStockEntry(ctx context.Context, e store.StockEntry) (store.StockEntry, error) {
	m.lock()
	defer m.unlock()
	if _, ok := m.d.items[e.ItemID]; !ok {
		return store.StockEntry{}, store.ErrNotFound
	}
	for _, existing := range m.d.stock {
		if existing.ItemID == e.ItemID {
			return store.StockEntry{}, store.ErrDuplicate
		}
	}
	if e.Quantity.IsNegative() {
		return store.StockEntry{}, store.ErrInsufficientStock
	}
	e.ID = m.d.next("stock_entries")
	e.UpdatedBy = e.CreatedBy
	e.CreatedAt = now()
	e.UpdatedAt = e.CreatedAt
	m.d.stock[e.ID] = e
	return e, nil
}

func (m *Memory) GetStockByItem(ctx context.Context, itemID int64) (store.StockEntry, error) {
	m.lock()
	defer m.unlock()
	for _, e := range m.d.stock {
		if e.ItemID == itemID {
			return e, nil
		}
	}
	return store.StockEntry{}, store.ErrNotFound
}

func (m *Memory) ListStockEntries(ctx context.Context) ([]store.StockEntry, error) {
	m.lock()
	defer m.unlock()
	out := make([]store.StockEntry, 0, len(m.d.stock))
	for _, e := range m.d.stock {
		out = append(out, e)
	}
	sortByID(out, func(e store.StockEntry) int64 { return e.ItemID })
	return out, nil
}

func (m *Memory) ListStockGroupedByCategory(ctx context.Context) ([]store.StockCategoryGroup, error) {
	m.lock()
	defer m.unlock()
	byCat := make(map[int64]*store.StockCategoryGroup)
	for _, e := range m.d.stock {
		it, ok := m.d.items[e.ItemID]
		if !ok {
			continue
		}
		cat, ok := m.d.categories[it.CategoryID]
		if !ok {
			continue
		}
		g, ok := byCat[cat.ID]
		if !ok {
			g = &store.StockCategoryGroup{CategoryID: cat.ID, CategoryName: cat.Name}
			byCat[cat.ID] = g
		}
		g.Items = append(g.Items, store.StockGroupItem{
			StockEntryID: e.ID,
			ItemID:       it.ID,
			ItemName:     it.Name,
			SKU:          it.SKU,
			UnitType:     it.UnitType,
			UnitPrice:    it.UnitPrice,
			Quantity:     e.Quantity,
		})
	}
	out := make([]store.StockCategoryGroup, 0, len(byCat))
	for _, g := range byCat {
		sort.Slice(g.Items, func(i, j int) bool { return g.Items[i].ItemName < g.Items[j].ItemName })
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryName < out[j].CategoryName })
	return out, nil
}

func (m *Memory) SetStockQuantity(ctx context.Context, itemID int64, qty decimal.Decimal, actor int64) (store.StockEntry, error) {
	m.lock()
	defer m.unlock()
	for id, e := range m.d.stock {
		if e.ItemID == itemID {
			if qty.IsNegative() {
				return store.StockEntry{}, store.ErrInsufficientStock
			}
			e.Quantity = qty
			e.UpdatedBy = actor
			e.UpdatedAt = now()
			m.d.stock[id] = e
			return e, nil
		}
	}
	return store.StockEntry{}, store.ErrNotFound
}

func (m *Memory) AdjustStockQuantity(ctx context.Context, itemID int64, delta decimal.Decimal, actor int64) (store.StockEntry, error) {
	m.lock()
	defer m.unlock()
	for id, e := range m.d.stock {
		if e.ItemID == itemID {
			next := e.Quantity.Add(delta)
			if next.IsNegative() {
				return store.StockEntry{}, store.ErrInsufficientStock
			}
			e.Quantity = next
			e.UpdatedBy = actor
			e.UpdatedAt = now()
			m.d.stock[id] = e
			return e, nil
		}
	}
	return store.StockEntry{}, store.ErrNotFound
}

func (m *Memory) DeleteStockEntry(ctx context.Context, itemID int64) error {
	m.lock()
	defer m.unlock()
	for id, e := range m.d.stock {
		if e.ItemID == itemID {
			delete(m.d.stock, id)
			return nil
		}
	}
	return store.ErrNotFound
}
