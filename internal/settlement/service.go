// Package settlement turns a day's carts into the immutable daily account
// ledger. Closing aggregates cart lines per item, re-prices the summed
// quantities against the current catalog, and snapshots the result so later
// catalog edits never change a closed day.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/kasapos/backend-kasa/internal/common"
	"github.com/kasapos/backend-kasa/internal/lock"
	"github.com/kasapos/backend-kasa/internal/pricing"
	"github.com/kasapos/backend-kasa/internal/store"
)

// Service encapsulates daily account operations.
type Service struct {
	St      store.Store
	Locker  lock.Locker
	LockTTL time.Duration
	Now     func() time.Time
	// CompletedOnly restricts settlement to completed carts. The default
	// includes drafts and deleted carts in the day's figures.
	CompletedOnly bool

	// DaysClosed counts successful close operations when registered.
	DaysClosed prometheus.Counter
	// Duration records close latency when registered.
	Duration prometheus.Histogram
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) lockTTL() time.Duration {
	if s == nil || s.LockTTL <= 0 {
		return 30 * time.Second
	}
	return s.LockTTL
}

// View is a daily account with its snapshot items.
type View struct {
	Account store.DailyAccount      `json:"account"`
	Items   []store.DailyAccountItem `json:"items"`
}

func lockKey(date time.Time) string {
	return "settlement:close:" + date.Format("2006-01-02")
}

// Close settles the given calendar date. Reclosing an already closed day is
// rejected; reopen first. The whole recompute runs under a per-date Redis
// lock and one store transaction.
func (s *Service) Close(ctx context.Context, date time.Time, actor common.Actor) (View, error) {
	if s == nil || s.St == nil {
		return View{}, errors.New("settlement service not configured")
	}
	date = store.DateOnly(date)
	started := time.Now()
	var v View
	run := func(ctx context.Context) error {
		var err error
		v, err = s.closeLocked(ctx, date, actor)
		return err
	}
	if s.Locker.R != nil {
		if err := s.Locker.WithLock(ctx, lockKey(date), s.lockTTL(), run); err != nil {
			return View{}, err
		}
	} else if err := run(ctx); err != nil {
		return View{}, err
	}
	if s.DaysClosed != nil {
		s.DaysClosed.Inc()
	}
	if s.Duration != nil {
		s.Duration.Observe(float64(time.Since(started)) / float64(time.Millisecond))
	}
	return v, nil
}

func (s *Service) closeLocked(ctx context.Context, date time.Time, actor common.Actor) (View, error) {
	var v View
	err := s.St.Atomic(ctx, func(tx store.Store) error {
		account, err := tx.GetDailyAccountByDate(ctx, date)
		exists := true
		switch {
		case errors.Is(err, store.ErrNotFound):
			exists = false
		case err != nil:
			return err
		case account.IsClosed:
			return common.Conflict(fmt.Sprintf("account for %s is already closed", date.Format("2006-01-02")))
		}

		snapshot, totals, cartsCount, err := s.settleDay(ctx, tx, date)
		if err != nil {
			return err
		}
		if cartsCount == 0 {
			return common.Validation(fmt.Sprintf("no carts recorded on %s", date.Format("2006-01-02")))
		}
		if !exists {
			account, err = tx.CreateDailyAccount(ctx, store.DailyAccount{
				AccountDate:   date,
				Subtotal:      decimal.Zero,
				DiscountTotal: decimal.Zero,
				TaxTotal:      decimal.Zero,
				Total:         decimal.Zero,
				CreatedBy:     actor.ID,
			})
			if err != nil {
				return err
			}
		}

		account, err = tx.UpdateDailyAccountTotals(ctx, account.ID, store.AccountTotals{
			Subtotal:      totals.Subtotal,
			DiscountTotal: totals.DiscountTotal,
			TaxTotal:      totals.TaxTotal,
			Total:         totals.Total,
			CartsCount:    cartsCount,
			ItemsCount:    len(snapshot),
		}, actor.ID)
		if err != nil {
			return err
		}
		if _, err := tx.DeleteDailyAccountItems(ctx, account.ID); err != nil {
			return err
		}
		items := make([]store.DailyAccountItem, 0, len(snapshot))
		for _, row := range snapshot {
			row.AccountID = account.ID
			created, err := tx.CreateDailyAccountItem(ctx, row)
			if err != nil {
				return err
			}
			items = append(items, created)
		}
		account, err = tx.CloseDailyAccount(ctx, account.ID, actor.ID, s.now())
		if err != nil {
			return err
		}
		v = View{Account: account, Items: items}
		return nil
	})
	return v, err
}

// settleDay aggregates the day's cart lines per item and prices the summed
// quantity with current catalog values. Rounding happens once per
// aggregated item, not per cart line.
func (s *Service) settleDay(ctx context.Context, tx store.Store, date time.Time) ([]store.DailyAccountItem, pricing.Totals, int, error) {
	from := date
	to := date.Add(24 * time.Hour)
	var statusFilter *store.CartStatus
	if s.CompletedOnly {
		completed := store.CartCompleted
		statusFilter = &completed
	}
	carts, err := tx.ListCartsByDateRange(ctx, from, to, statusFilter)
	if err != nil {
		return nil, pricing.Totals{}, 0, err
	}
	if len(carts) == 0 {
		return nil, pricing.Zero(), 0, nil
	}
	cartIDs := make([]int64, 0, len(carts))
	for _, c := range carts {
		cartIDs = append(cartIDs, c.ID)
	}
	lines, err := tx.ListCartItemsForCarts(ctx, cartIDs)
	if err != nil {
		return nil, pricing.Totals{}, 0, err
	}

	qtyByItem := make(map[int64]decimal.Decimal)
	for _, l := range lines {
		qtyByItem[l.ItemID] = qtyByItem[l.ItemID].Add(l.Quantity)
	}
	itemIDs := make([]int64, 0, len(qtyByItem))
	for id := range qtyByItem {
		itemIDs = append(itemIDs, id)
	}
	sort.Slice(itemIDs, func(i, j int) bool { return itemIDs[i] < itemIDs[j] })

	catalog, err := tx.ListItemsByIDs(ctx, itemIDs)
	if err != nil {
		return nil, pricing.Totals{}, 0, err
	}
	byID := make(map[int64]store.Item, len(catalog))
	for _, it := range catalog {
		byID[it.ID] = it
	}

	snapshot := make([]store.DailyAccountItem, 0, len(itemIDs))
	computed := make([]pricing.LineTotals, 0, len(itemIDs))
	for _, id := range itemIDs {
		it, ok := byID[id]
		if !ok {
			// Item deleted after sale; the cart line still counts toward
			// carts_count but cannot be priced.
			continue
		}
		qty := qtyByItem[id]
		lt := pricing.Compute(pricing.Line{
			UnitPrice:    it.UnitPrice,
			Quantity:     qty,
			DiscountRate: it.DiscountRate,
			TaxRate:      it.TaxRate,
		})
		computed = append(computed, lt)
		snapshot = append(snapshot, store.DailyAccountItem{
			ItemID:       it.ID,
			ItemName:     it.Name,
			SKU:          it.SKU,
			Quantity:     qty,
			UnitPrice:    it.UnitPrice,
			DiscountRate: it.DiscountRate,
			TaxRate:      it.TaxRate,
			LineSubtotal: lt.Subtotal,
			LineDiscount: lt.Discount,
			LineTax:      lt.Tax,
			LineTotal:    lt.Total,
		})
	}
	return snapshot, pricing.Sum(computed), len(carts), nil
}

// Open reopens a closed account for corrections. Snapshot items stay in
// place; the next Close recomputes and replaces them.
func (s *Service) Open(ctx context.Context, date time.Time, actor common.Actor) (store.DailyAccount, error) {
	if s == nil || s.St == nil {
		return store.DailyAccount{}, errors.New("settlement service not configured")
	}
	date = store.DateOnly(date)
	var opened store.DailyAccount
	err := s.St.Atomic(ctx, func(tx store.Store) error {
		account, err := tx.GetDailyAccountByDate(ctx, date)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return common.NotFound("no account for date")
			}
			return err
		}
		if !account.IsClosed {
			return common.Conflict(fmt.Sprintf("account for %s is already open", date.Format("2006-01-02")))
		}
		opened, err = tx.OpenDailyAccount(ctx, account.ID, actor.ID)
		return err
	})
	return opened, err
}

// Get loads an account with its snapshot items by id.
func (s *Service) Get(ctx context.Context, id int64) (View, error) {
	if s == nil || s.St == nil {
		return View{}, errors.New("settlement service not configured")
	}
	account, err := s.St.GetDailyAccount(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return View{}, common.NotFound("account not found")
		}
		return View{}, err
	}
	items, err := s.St.ListDailyAccountItems(ctx, account.ID)
	if err != nil {
		return View{}, err
	}
	return View{Account: account, Items: items}, nil
}

// GetByDate loads an account with its snapshot items by calendar date.
func (s *Service) GetByDate(ctx context.Context, date time.Time) (View, error) {
	if s == nil || s.St == nil {
		return View{}, errors.New("settlement service not configured")
	}
	account, err := s.St.GetDailyAccountByDate(ctx, store.DateOnly(date))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return View{}, common.NotFound("no account for date")
		}
		return View{}, err
	}
	items, err := s.St.ListDailyAccountItems(ctx, account.ID)
	if err != nil {
		return View{}, err
	}
	return View{Account: account, Items: items}, nil
}

// Summary previews today's figures without closing: the same aggregation
// the close would write, computed read-only.
func (s *Service) Summary(ctx context.Context, date time.Time) (store.AccountTotals, error) {
	if s == nil || s.St == nil {
		return store.AccountTotals{}, errors.New("settlement service not configured")
	}
	date = store.DateOnly(date)
	snapshot, totals, cartsCount, err := s.settleDay(ctx, s.St, date)
	if err != nil {
		return store.AccountTotals{}, err
	}
	return store.AccountTotals{
		Subtotal:      totals.Subtotal,
		DiscountTotal: totals.DiscountTotal,
		TaxTotal:      totals.TaxTotal,
		Total:         totals.Total,
		CartsCount:    cartsCount,
		ItemsCount:    len(snapshot),
	}, nil
}

// List returns the most recent accounts.
func (s *Service) List(ctx context.Context, limit int) ([]store.DailyAccount, error) {
	if s == nil || s.St == nil {
		return nil, errors.New("settlement service not configured")
	}
	if limit <= 0 || limit > 200 {
		limit = 30
	}
	return s.St.ListDailyAccounts(ctx, limit)
}

// ListRange returns accounts between two dates inclusive.
func (s *Service) ListRange(ctx context.Context, from, to time.Time) ([]store.DailyAccount, error) {
	if s == nil || s.St == nil {
		return nil, errors.New("settlement service not configured")
	}
	if to.Before(from) {
		return nil, common.Validation("to must not precede from")
	}
	return s.St.ListDailyAccountsByRange(ctx, from, to)
}
