package memory

import (
	"context"
	"sort"

	"github.com/kasapos/backend-kasa/internal/store"
)

func (m *Memory) CreateCategory(ctx context.Context, c store.Category) (store.Category, error) {
	m.lock()
	defer m.unlock()
	for _, existing := range m.d.categories {
		if existing.Name == c.Name {
			return store.Category{}, store.ErrDuplicate
		}
	}
	c.ID = m.d.next("categories")
	c.UpdatedBy = c.CreatedBy
	c.CreatedAt = now()
	c.UpdatedAt = c.CreatedAt
	m.d.categories[c.ID] = c
	return c, nil
}

func (m *Memory) GetCategory(ctx context.Context, id int64) (store.Category, error) {
	m.lock()
	defer m.unlock()
	c, ok := m.d.categories[id]
	if !ok {
		return store.Category{}, store.ErrNotFound
	}
	return c, nil
}

func (m *Memory) ListCategories(ctx context.Context) ([]store.Category, error) {
	m.lock()
	defer m.unlock()
	out := make([]store.Category, 0, len(m.d.categories))
	for _, c := range m.d.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) UpdateCategory(ctx context.Context, id int64, patch store.CategoryPatch, actor int64) (store.Category, error) {
	m.lock()
	defer m.unlock()
	c, ok := m.d.categories[id]
	if !ok {
		return store.Category{}, store.ErrNotFound
	}
	if patch.Name != nil {
		for _, other := range m.d.categories {
			if other.ID != id && other.Name == *patch.Name {
				return store.Category{}, store.ErrDuplicate
			}
		}
		c.Name = *patch.Name
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}
	c.UpdatedBy = actor
	c.UpdatedAt = now()
	m.d.categories[id] = c
	return c, nil
}

func (m *Memory) DeleteCategory(ctx context.Context, id int64) error {
	m.lock()
	defer m.unlock()
	if _, ok := m.d.categories[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.d.categories, id)
	return nil
}

func (m *Memory) CountItemsByCategory(ctx context.Context, categoryID int64) (int64, error) {
	m.lock()
	defer m.unlock()
	var n int64
	for _, it := range m.d.items {
		if it.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

func (m *Memory) CreateItem(ctx context.Context, it store.Item) (store.Item, error) {
	m.lock()
	defer m.unlock()
	if _, ok := m.d.categories[it.CategoryID]; !ok {
		return store.Item{}, store.ErrNotFound
	}
	for _, existing := range m.d.items {
		if it.SKU != "" && existing.SKU == it.SKU {
			return store.Item{}, store.ErrDuplicate
		}
	}
	it.ID = m.d.next("items")
	it.UpdatedBy = it.CreatedBy
	it.CreatedAt = now()
	it.UpdatedAt = it.CreatedAt
	m.d.items[it.ID] = it
	return it, nil
}

func (m *Memory) GetItem(ctx context.Context, id int64) (store.Item, error) {
	m.lock()
	defer m.unlock()
	it, ok := m.d.items[id]
	if !ok {
		return store.Item{}, store.ErrNotFound
	}
	return it, nil
}

func (m *Memory) ListItems(ctx context.Context, categoryID *int64) ([]store.Item, error) {
	m.lock()
	defer m.unlock()
	var out []store.Item
	for _, it := range m.d.items {
		if categoryID == nil || it.CategoryID == *categoryID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) ListItemsByIDs(ctx context.Context, ids []int64) ([]store.Item, error) {
	m.lock()
	defer m.unlock()
	var out []store.Item
	for _, id := range ids {
		if it, ok := m.d.items[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *Memory) UpdateItem(ctx context.Context, id int64, patch store.ItemPatch, actor int64) (store.Item, error) {
	m.lock()
	defer m.unlock()
	it, ok := m.d.items[id]
	if !ok {
		return store.Item{}, store.ErrNotFound
	}
	if patch.CategoryID != nil {
		if _, ok := m.d.categories[*patch.CategoryID]; !ok {
			return store.Item{}, store.ErrNotFound
		}
		it.CategoryID = *patch.CategoryID
	}
	if patch.Name != nil {
		it.Name = *patch.Name
	}
	if patch.Description != nil {
		it.Description = *patch.Description
	}
	if patch.SKU != nil {
		for _, other := range m.d.items {
			if other.ID != id && *patch.SKU != "" && other.SKU == *patch.SKU {
				return store.Item{}, store.ErrDuplicate
			}
		}
		it.SKU = *patch.SKU
	}
	if patch.Barcode != nil {
		it.Barcode = *patch.Barcode
	}
	if patch.ImageURL != nil {
		it.ImageURL = *patch.ImageURL
	}
	if patch.UnitPrice != nil {
		it.UnitPrice = *patch.UnitPrice
	}
	if patch.UnitType != nil {
		it.UnitType = *patch.UnitType
	}
	if patch.TaxRate != nil {
		it.TaxRate = *patch.TaxRate
	}
	if patch.DiscountRate != nil {
		it.DiscountRate = *patch.DiscountRate
	}
	it.UpdatedBy = actor
	it.UpdatedAt = now()
	m.d.items[id] = it
	return it, nil
}

func (m *Memory) DeleteItem(ctx context.Context, id int64) error {
	m.lock()
	defer m.unlock()
	if _, ok := m.d.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.d.items, id)
	for sid, se := range m.d.stock {
		if se.ItemID == id {
			delete(m.d.stock, sid)
		}
	}
	return nil
}
