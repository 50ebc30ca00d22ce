package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kasapos/backend-kasa/internal/store"
)

func (m *Memory) CreateCart(ctx context.Context, createdBy int64) (store.Cart, error) {
	m.lock()
	defer m.unlock()
	c := store.Cart{
		ID:        m.d.next("carts"),
		Status:    store.CartDraft,
		CreatedBy: createdBy,
		UpdatedBy: createdBy,
		CreatedAt: now(),
	}
	c.UpdatedAt = c.CreatedAt
	m.d.carts[c.ID] = c
	return c, nil
}

func (m *Memory) GetCart(ctx context.Context, id int64) (store.Cart, error) {
	m.lock()
	defer m.unlock()
	c, ok := m.d.carts[id]
	if !ok {
		return store.Cart{}, store.ErrNotFound
	}
	return c, nil
}

func (m *Memory) GetCartByDeskNumber(ctx context.Context, deskNumber string) (store.Cart, error) {
	m.lock()
	defer m.unlock()
	var (
		found bool
		best  store.Cart
	)
	for _, c := range m.d.carts {
		if c.Status != store.CartDraft || c.DeskNumber == nil || *c.DeskNumber != deskNumber {
			continue
		}
		if !found || c.CreatedAt.After(best.CreatedAt) {
			best = c
			found = true
		}
	}
	if !found {
		return store.Cart{}, store.ErrNotFound
	}
	return best, nil
}

func (m *Memory) ListCartsWithDeskNumber(ctx context.Context) ([]store.Cart, error) {
	m.lock()
	defer m.unlock()
	var out []store.Cart
	for _, c := range m.d.carts {
		if c.Status == store.CartDraft && c.DeskNumber != nil {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].DeskNumber < *out[j].DeskNumber })
	return out, nil
}

func (m *Memory) ListCartsByDateRange(ctx context.Context, from, to time.Time, status *store.CartStatus) ([]store.Cart, error) {
	m.lock()
	defer m.unlock()
	var out []store.Cart
	for _, c := range m.d.carts {
		if c.CreatedAt.Before(from) || !c.CreatedAt.Before(to) {
			continue
		}
		if status != nil && c.Status != *status {
			continue
		}
		out = append(out, c)
	}
	sortByID(out, func(c store.Cart) int64 { return c.ID })
	return out, nil
}

func (m *Memory) SetCartDeskNumber(ctx context.Context, id int64, deskNumber *string, actor int64) (store.Cart, error) {
	m.lock()
	defer m.unlock()
	c, ok := m.d.carts[id]
	if !ok {
		return store.Cart{}, store.ErrNotFound
	}
	c.DeskNumber = deskNumber
	c.UpdatedBy = actor
	c.UpdatedAt = now()
	m.d.carts[id] = c
	return c, nil
}

func (m *Memory) SetCartStatus(ctx context.Context, id int64, status store.CartStatus, actor int64) (store.Cart, error) {
	m.lock()
	defer m.unlock()
	c, ok := m.d.carts[id]
	if !ok {
		return store.Cart{}, store.ErrNotFound
	}
	c.Status = status
	c.UpdatedBy = actor
	c.UpdatedAt = now()
	m.d.carts[id] = c
	return c, nil
}

func (m *Memory) TouchCart(ctx context.Context, id int64, actor int64) error {
	m.lock()
	defer m.unlock()
	c, ok := m.d.carts[id]
	if !ok {
		return store.ErrNotFound
	}
	c.UpdatedBy = actor
	c.UpdatedAt = now()
	m.d.carts[id] = c
	return nil
}

func (m *Memory) CreateCartItem(ctx context.Context, ci store.CartItem) (store.CartItem, error) {
	m.lock()
	defer m.unlock()
	if _, ok := m.d.carts[ci.CartID]; !ok {
		return store.CartItem{}, store.ErrNotFound
	}
	for _, existing := range m.d.cartItems {
		if existing.CartID == ci.CartID && existing.ItemID == ci.ItemID {
			return store.CartItem{}, store.ErrDuplicate
		}
	}
	ci.ID = m.d.next("cart_items")
	ci.UpdatedBy = ci.CreatedBy
	ci.CreatedAt = now()
	ci.UpdatedAt = ci.CreatedAt
	m.d.cartItems[ci.ID] = ci
	return ci, nil
}

func (m *Memory) GetCartItem(ctx context.Context, id int64) (store.CartItem, error) {
	m.lock()
	defer m.unlock()
	ci, ok := m.d.cartItems[id]
	if !ok {
		return store.CartItem{}, store.ErrNotFound
	}
	return ci, nil
}

func (m *Memory) GetCartItemByCartAndItem(ctx context.Context, cartID, itemID int64) (store.CartItem, error) {
	m.lock()
	defer m.unlock()
	for _, ci := range m.d.cartItems {
		if ci.CartID == cartID && ci.ItemID == itemID {
			return ci, nil
		}
	}
	return store.CartItem{}, store.ErrNotFound
}

func (m *Memory) ListCartItems(ctx context.Context, cartID int64) ([]store.CartItem, error) {
	m.lock()
	defer m.unlock()
	var out []store.CartItem
	for _, ci := range m.d.cartItems {
		if ci.CartID == cartID {
			out = append(out, ci)
		}
	}
	sortByID(out, func(ci store.CartItem) int64 { return ci.ID })
	return out, nil
}

func (m *Memory) ListCartItemsForCarts(ctx context.Context, cartIDs []int64) ([]store.CartItem, error) {
	m.lock()
	defer m.unlock()
	want := make(map[int64]bool, len(cartIDs))
	for _, id := range cartIDs {
		want[id] = true
	}
	var out []store.CartItem
	for _, ci := range m.d.cartItems {
		if want[ci.CartID] {
			out = append(out, ci)
		}
	}
	sortByID(out, func(ci store.CartItem) int64 { return ci.ID })
	return out, nil
}

func (m *Memory) UpdateCartItemQuantity(ctx context.Context, id int64, qty decimal.Decimal, actor int64) (store.CartItem, error) {
	m.lock()
	defer m.unlock()
	ci, ok := m.d.cartItems[id]
	if !ok {
		return store.CartItem{}, store.ErrNotFound
	}
	ci.Quantity = qty
	ci.UpdatedBy = actor
	ci.UpdatedAt = now()
	m.d.cartItems[id] = ci
	return ci, nil
}

func (m *Memory) DeleteCartItem(ctx context.Context, id int64) error {
	m.lock()
	defer m.unlock()
	if _, ok := m.d.cartItems[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.d.cartItems, id)
	return nil
}

func (m *Memory) ClearCartItems(ctx context.Context, cartID int64) (int64, error) {
	m.lock()
	defer m.unlock()
	var n int64
	for id, ci := range m.d.cartItems {
		if ci.CartID == cartID {
			delete(m.d.cartItems, id)
			n++
		}
	}
	return n, nil
}
