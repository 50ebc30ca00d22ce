package memory

import (
	"context"
	"sort"

	"github.com/kasapos/backend-kasa/internal/store"
)

func (m *Memory) CreateMenuItem(ctx context.Context, mi store.MenuItem) (store.MenuItem, error) {
	m.lock()
	defer m.unlock()
	if _, ok := m.d.items[mi.ItemID]; !ok {
		return store.MenuItem{}, store.ErrNotFound
	}
	for _, existing := range m.d.menuItems {
		if existing.ItemID == mi.ItemID {
			return store.MenuItem{}, store.ErrDuplicate
		}
	}
	mi.ID = m.d.next("menu_items")
	mi.UpdatedBy = mi.CreatedBy
	mi.CreatedAt = now()
	mi.UpdatedAt = mi.CreatedAt
	m.d.menuItems[mi.ID] = mi
	return mi, nil
}

func (m *Memory) GetMenuItem(ctx context.Context, id int64) (store.MenuItem, error) {
	m.lock()
	defer m.unlock()
	mi, ok := m.d.menuItems[id]
	if !ok {
		return store.MenuItem{}, store.ErrNotFound
	}
	return mi, nil
}

func (m *Memory) ListMenuItems(ctx context.Context, onlyActive bool) ([]store.MenuItem, error) {
	m.lock()
	defer m.unlock()
	var out []store.MenuItem
	for _, mi := range m.d.menuItems {
		if onlyActive && !mi.IsActive {
			continue
		}
		out = append(out, mi)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Section != out[j].Section {
			return out[i].Section < out[j].Section
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (m *Memory) UpdateMenuItem(ctx context.Context, id int64, patch store.MenuItemPatch, actor int64) (store.MenuItem, error) {
	m.lock()
	defer m.unlock()
	mi, ok := m.d.menuItems[id]
	if !ok {
		return store.MenuItem{}, store.ErrNotFound
	}
	if patch.Section != nil {
		mi.Section = *patch.Section
	}
	if patch.Position != nil {
		mi.Position = *patch.Position
	}
	if patch.IsActive != nil {
		mi.IsActive = *patch.IsActive
	}
	mi.UpdatedBy = actor
	mi.UpdatedAt = now()
	m.d.menuItems[id] = mi
	return mi, nil
}

func (m *Memory) DeleteMenuItem(ctx context.Context, id int64) error {
	m.lock()
	defer m.unlock()
	if _, ok := m.d.menuItems[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.d.menuItems, id)
	return nil
}
