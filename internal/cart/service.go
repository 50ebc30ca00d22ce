// Package cart implements the sale-in-progress lifecycle. Every item
// mutation and its stock ledger counterpart run inside one transaction so a
// cart line and the on-hand quantity never drift apart.
package cart

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/kasapos/backend-kasa/internal/common"
	"github.com/kasapos/backend-kasa/internal/pricing"
	"github.com/kasapos/backend-kasa/internal/store"
)

// Service encapsulates cart domain operations.
type Service struct {
	St  store.Store
	Now func() time.Time
	// Completed and Mutations are optional Prometheus collectors.
	Completed prometheus.Counter
	Mutations *prometheus.CounterVec
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) countMutation(kind string) {
	if s.Mutations != nil {
		s.Mutations.WithLabelValues(kind).Inc()
	}
}

// LineView is one cart line resolved against the current catalog.
type LineView struct {
	ID        int64           `json:"id"`
	ItemID    int64           `json:"itemId"`
	ItemName  string          `json:"itemName"`
	SKU       string          `json:"sku"`
	UnitType  string          `json:"unitType"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Discount  decimal.Decimal `json:"discount"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
}

// View is a cart with its lines and computed totals.
type View struct {
	Cart   store.Cart     `json:"cart"`
	Lines  []LineView     `json:"lines"`
	Totals pricing.Totals `json:"totals"`
}

// requireDraft loads the cart and rejects mutations against terminal states.
func requireDraft(ctx context.Context, st store.Store, cartID int64) (store.Cart, error) {
	c, err := st.GetCart(ctx, cartID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Cart{}, common.NotFound("cart not found")
		}
		return store.Cart{}, err
	}
	if c.Status.Terminal() {
		return store.Cart{}, common.Conflict("cart is " + string(c.Status))
	}
	return c, nil
}

// Create opens a new draft cart.
func (s *Service) Create(ctx context.Context, actor common.Actor) (store.Cart, error) {
	if s == nil || s.St == nil {
		return store.Cart{}, errors.New("cart service not configured")
	}
	return s.St.CreateCart(ctx, actor.ID)
}

// Get returns the cart with its lines priced against the current catalog.
func (s *Service) Get(ctx context.Context, cartID int64) (View, error) {
	if s == nil || s.St == nil {
		return View{}, errors.New("cart service not configured")
	}
	c, err := s.St.GetCart(ctx, cartID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return View{}, common.NotFound("cart not found")
		}
		return View{}, err
	}
	lines, totals, err := s.priceCart(ctx, s.St, cartID)
	if err != nil {
		return View{}, err
	}
	return View{Cart: c, Lines: lines, Totals: totals}, nil
}

// priceCart recomputes every line with current catalog values. An empty cart
// yields zero totals rather than an error.
func (s *Service) priceCart(ctx context.Context, st store.Store, cartID int64) ([]LineView, pricing.Totals, error) {
	items, err := st.ListCartItems(ctx, cartID)
	if err != nil {
		return nil, pricing.Totals{}, err
	}
	if len(items) == 0 {
		return []LineView{}, pricing.Zero(), nil
	}
	ids := make([]int64, 0, len(items))
	for _, ci := range items {
		ids = append(ids, ci.ItemID)
	}
	catalog, err := st.ListItemsByIDs(ctx, ids)
	if err != nil {
		return nil, pricing.Totals{}, err
	}
	byID := make(map[int64]store.Item, len(catalog))
	for _, it := range catalog {
		byID[it.ID] = it
	}
	lines := make([]LineView, 0, len(items))
	computed := make([]pricing.LineTotals, 0, len(items))
	for _, ci := range items {
		it, ok := byID[ci.ItemID]
		if !ok {
			// Item was removed from the catalog after it entered the cart.
			continue
		}
		lt := pricing.Compute(pricing.Line{
			UnitPrice:    it.UnitPrice,
			Quantity:     ci.Quantity,
			DiscountRate: it.DiscountRate,
			TaxRate:      it.TaxRate,
		})
		computed = append(computed, lt)
		lines = append(lines, LineView{
			ID:        ci.ID,
			ItemID:    ci.ItemID,
			ItemName:  it.Name,
			SKU:       it.SKU,
			UnitType:  it.UnitType,
			Quantity:  ci.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  lt.Subtotal,
			Discount:  lt.Discount,
			Tax:       lt.Tax,
			Total:     lt.Total,
		})
	}
	return lines, pricing.Sum(computed), nil
}

// ListDesks returns the open carts currently bound to a desk.
func (s *Service) ListDesks(ctx context.Context) ([]store.Cart, error) {
	if s == nil || s.St == nil {
		return nil, errors.New("cart service not configured")
	}
	return s.St.ListCartsWithDeskNumber(ctx)
}

// GetByDesk resolves the newest open cart bound to the desk.
func (s *Service) GetByDesk(ctx context.Context, deskNumber string) (View, error) {
	if s == nil || s.St == nil {
		return View{}, errors.New("cart service not configured")
	}
	deskNumber = strings.TrimSpace(deskNumber)
	if deskNumber == "" {
		return View{}, common.Validation("desk number is required")
	}
	c, err := s.St.GetCartByDeskNumber(ctx, deskNumber)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return View{}, common.NotFound("no open cart for desk")
		}
		return View{}, err
	}
	return s.Get(ctx, c.ID)
}

// SetDeskNumber binds or clears the desk of a draft cart. Passing nil
// clears the binding; an omitted field upstream must not reach here.
func (s *Service) SetDeskNumber(ctx context.Context, cartID int64, deskNumber *string, actor common.Actor) (store.Cart, error) {
	if s == nil || s.St == nil {
		return store.Cart{}, errors.New("cart service not configured")
	}
	if deskNumber != nil {
		trimmed := strings.TrimSpace(*deskNumber)
		if trimmed == "" {
			deskNumber = nil
		} else {
			deskNumber = &trimmed
		}
	}
	var updated store.Cart
	err := s.St.Atomic(ctx, func(tx store.Store) error {
		if _, err := requireDraft(ctx, tx, cartID); err != nil {
			return err
		}
		if deskNumber != nil {
			holder, err := tx.GetCartByDeskNumber(ctx, *deskNumber)
			if err == nil && holder.ID != cartID {
				return common.Conflict("desk number is taken by another cart")
			} else if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}
		c, err := tx.SetCartDeskNumber(ctx, cartID, deskNumber, actor.ID)
		if err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return common.Conflict("desk number is taken by another cart")
			}
			return err
		}
		updated = c
		return nil
	})
	return updated, err
}

// AddItem appends an item line and deducts the same quantity from stock.
// A cart already holding the item rejects a second line for it.
func (s *Service) AddItem(ctx context.Context, cartID, itemID int64, qty decimal.Decimal, actor common.Actor) (store.CartItem, error) {
	if s == nil || s.St == nil {
		return store.CartItem{}, errors.New("cart service not configured")
	}
	if !qty.IsPositive() {
		return store.CartItem{}, common.Validation("quantity must be positive")
	}
	var created store.CartItem
	err := s.St.Atomic(ctx, func(tx store.Store) error {
		if _, err := requireDraft(ctx, tx, cartID); err != nil {
			return err
		}
		if _, err := tx.GetItem(ctx, itemID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return common.NotFound("item not found")
			}
			return err
		}
		if _, err := tx.GetCartItemByCartAndItem(ctx, cartID, itemID); err == nil {
			return common.Conflict("item already in cart")
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if _, err := tx.AdjustStockQuantity(ctx, itemID, qty.Neg(), actor.ID); err != nil {
			switch {
			case errors.Is(err, store.ErrInsufficientStock):
				return common.Conflict("insufficient stock")
			case errors.Is(err, store.ErrNotFound):
				return common.NotFound("stock entry not found")
			}
			return err
		}
		ci, err := tx.CreateCartItem(ctx, store.CartItem{
			CartID:    cartID,
			ItemID:    itemID,
			Quantity:  qty,
			CreatedBy: actor.ID,
		})
		if err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return common.Conflict("item already in cart")
			}
			return err
		}
		if err := tx.TouchCart(ctx, cartID, actor.ID); err != nil {
			return err
		}
		created = ci
		return nil
	})
	if err == nil {
		s.countMutation("add")
	}
	return created, err
}

// UpdateItemQuantity sets a line to a new quantity and settles the
// difference against stock: increases deduct, decreases restore. Setting a
// line to zero removes it and restores the full held quantity.
func (s *Service) UpdateItemQuantity(ctx context.Context, cartID, cartItemID int64, qty decimal.Decimal, actor common.Actor) (store.CartItem, error) {
	if s == nil || s.St == nil {
		return store.CartItem{}, errors.New("cart service not configured")
	}
	if qty.IsNegative() {
		return store.CartItem{}, common.Validation("quantity cannot be negative")
	}
	var updated store.CartItem
	err := s.St.Atomic(ctx, func(tx store.Store) error {
		if _, err := requireDraft(ctx, tx, cartID); err != nil {
			return err
		}
		ci, err := tx.GetCartItem(ctx, cartItemID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return common.NotFound("cart item not found")
			}
			return err
		}
		if ci.CartID != cartID {
			return common.NotFound("cart item not found")
		}
		if qty.IsZero() {
			if _, err := tx.AdjustStockQuantity(ctx, ci.ItemID, ci.Quantity, actor.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			if err := tx.DeleteCartItem(ctx, cartItemID); err != nil {
				return err
			}
			updated = store.CartItem{}
			return tx.TouchCart(ctx, cartID, actor.ID)
		}
		delta := qty.Sub(ci.Quantity)
		if !delta.IsZero() {
			if _, err := tx.AdjustStockQuantity(ctx, ci.ItemID, delta.Neg(), actor.ID); err != nil {
				switch {
				case errors.Is(err, store.ErrInsufficientStock):
					return common.Conflict("insufficient stock")
				case errors.Is(err, store.ErrNotFound):
					return common.NotFound("stock entry not found")
				}
				return err
			}
		}
		ci, err = tx.UpdateCartItemQuantity(ctx, cartItemID, qty, actor.ID)
		if err != nil {
			return err
		}
		if err := tx.TouchCart(ctx, cartID, actor.ID); err != nil {
			return err
		}
		updated = ci
		return nil
	})
	if err == nil {
		s.countMutation("update")
	}
	return updated, err
}

// ReturnItem restores quantity to stock. A nil qty returns the whole line
// and removes it; a partial qty reduces the line, and returning exactly the
// held quantity removes the line too.
func (s *Service) ReturnItem(ctx context.Context, cartID, cartItemID int64, qty *decimal.Decimal, actor common.Actor) error {
	if s == nil || s.St == nil {
		return errors.New("cart service not configured")
	}
	if qty != nil && !qty.IsPositive() {
		return common.Validation("return quantity must be positive")
	}
	err := s.St.Atomic(ctx, func(tx store.Store) error {
		if _, err := requireDraft(ctx, tx, cartID); err != nil {
			return err
		}
		ci, err := tx.GetCartItem(ctx, cartItemID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return common.NotFound("cart item not found")
			}
			return err
		}
		if ci.CartID != cartID {
			return common.NotFound("cart item not found")
		}
		returned := ci.Quantity
		if qty != nil {
			if qty.GreaterThan(ci.Quantity) {
				return common.Validation("return quantity exceeds held quantity")
			}
			returned = *qty
		}
		if _, err := tx.AdjustStockQuantity(ctx, ci.ItemID, returned, actor.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		remaining := ci.Quantity.Sub(returned)
		if remaining.IsPositive() {
			if _, err := tx.UpdateCartItemQuantity(ctx, cartItemID, remaining, actor.ID); err != nil {
				return err
			}
		} else if err := tx.DeleteCartItem(ctx, cartItemID); err != nil {
			return err
		}
		return tx.TouchCart(ctx, cartID, actor.ID)
	})
	if err == nil {
		s.countMutation("return")
	}
	return err
}

// ClearItems drops every line and restores each quantity to stock.
func (s *Service) ClearItems(ctx context.Context, cartID int64, actor common.Actor) error {
	if s == nil || s.St == nil {
		return errors.New("cart service not configured")
	}
	err := s.St.Atomic(ctx, func(tx store.Store) error {
		if _, err := requireDraft(ctx, tx, cartID); err != nil {
			return err
		}
		items, err := tx.ListCartItems(ctx, cartID)
		if err != nil {
			return err
		}
		for _, ci := range items {
			if _, err := tx.AdjustStockQuantity(ctx, ci.ItemID, ci.Quantity, actor.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}
		if _, err := tx.ClearCartItems(ctx, cartID); err != nil {
			return err
		}
		return tx.TouchCart(ctx, cartID, actor.ID)
	})
	if err == nil {
		s.countMutation("clear")
	}
	return err
}

// Complete transitions a draft cart to completed. Stock was already
// deducted line by line, so completion only seals the cart.
func (s *Service) Complete(ctx context.Context, cartID int64, actor common.Actor) (View, error) {
	if s == nil || s.St == nil {
		return View{}, errors.New("cart service not configured")
	}
	var v View
	err := s.St.Atomic(ctx, func(tx store.Store) error {
		if _, err := requireDraft(ctx, tx, cartID); err != nil {
			return err
		}
		lines, totals, err := s.priceCart(ctx, tx, cartID)
		if err != nil {
			return err
		}
		c, err := tx.SetCartStatus(ctx, cartID, store.CartCompleted, actor.ID)
		if err != nil {
			return err
		}
		v = View{Cart: c, Lines: lines, Totals: totals}
		return nil
	})
	if err == nil && s.Completed != nil {
		s.Completed.Inc()
	}
	return v, err
}

// Delete transitions a draft cart to deleted and restores every line's
// quantity to stock. The cart row and its lines stay for settlement audits.
func (s *Service) Delete(ctx context.Context, cartID int64, actor common.Actor) (store.Cart, error) {
	if s == nil || s.St == nil {
		return store.Cart{}, errors.New("cart service not configured")
	}
	var deleted store.Cart
	err := s.St.Atomic(ctx, func(tx store.Store) error {
		if _, err := requireDraft(ctx, tx, cartID); err != nil {
			return err
		}
		items, err := tx.ListCartItems(ctx, cartID)
		if err != nil {
			return err
		}
		for _, ci := range items {
			if _, err := tx.AdjustStockQuantity(ctx, ci.ItemID, ci.Quantity, actor.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}
		c, err := tx.SetCartStatus(ctx, cartID, store.CartDeleted, actor.ID)
		if err != nil {
			return err
		}
		deleted = c
		return nil
	})
	return deleted, err
}
