package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kasapos/backend-kasa/internal/store"
)

func (m *Memory) CreateDailyAccount(ctx context.Context, a store.DailyAccount) (store.DailyAccount, error) {
	m.lock()
	defer m.unlock()
	date := store.DateOnly(a.AccountDate)
	for _, existing := range m.d.accounts {
		if existing.AccountDate.Equal(date) {
			return store.DailyAccount{}, store.ErrDuplicate
		}
	}
	a.ID = m.d.next("daily_accounts")
	a.AccountDate = date
	a.UpdatedBy = a.CreatedBy
	a.CreatedAt = now()
	a.UpdatedAt = a.CreatedAt
	m.d.accounts[a.ID] = a
	return a, nil
}

func (m *Memory) GetDailyAccount(ctx context.Context, id int64) (store.DailyAccount, error) {
	m.lock()
	defer m.unlock()
	a, ok := m.d.accounts[id]
	if !ok {
		return store.DailyAccount{}, store.ErrNotFound
	}
	return a, nil
}

func (m *Memory) GetDailyAccountByDate(ctx context.Context, date time.Time) (store.DailyAccount, error) {
	m.lock()
	defer m.unlock()
	date = store.DateOnly(date)
	for _, a := range m.d.accounts {
		if a.AccountDate.Equal(date) {
			return a, nil
		}
	}
	return store.DailyAccount{}, store.ErrNotFound
}

func (m *Memory) ListDailyAccounts(ctx context.Context, limit int) ([]store.DailyAccount, error) {
	m.lock()
	defer m.unlock()
	out := make([]store.DailyAccount, 0, len(m.d.accounts))
	for _, a := range m.d.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountDate.After(out[j].AccountDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) ListDailyAccountsByRange(ctx context.Context, from, to time.Time) ([]store.DailyAccount, error) {
	m.lock()
	defer m.unlock()
	from, to = store.DateOnly(from), store.DateOnly(to)
	var out []store.DailyAccount
	for _, a := range m.d.accounts {
		if !a.AccountDate.Before(from) && !a.AccountDate.After(to) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountDate.Before(out[j].AccountDate) })
	return out, nil
}

func (m *Memory) UpdateDailyAccountTotals(ctx context.Context, id int64, totals store.AccountTotals, actor int64) (store.DailyAccount, error) {
	m.lock()
	defer m.unlock()
	a, ok := m.d.accounts[id]
	if !ok {
		return store.DailyAccount{}, store.ErrNotFound
	}
	a.Subtotal = totals.Subtotal
	a.DiscountTotal = totals.DiscountTotal
	a.TaxTotal = totals.TaxTotal
	a.Total = totals.Total
	a.CartsCount = totals.CartsCount
	a.ItemsCount = totals.ItemsCount
	a.UpdatedBy = actor
	a.UpdatedAt = now()
	m.d.accounts[id] = a
	return a, nil
}

func (m *Memory) CloseDailyAccount(ctx context.Context, id int64, closedBy int64, at time.Time) (store.DailyAccount, error) {
	m.lock()
	defer m.unlock()
	a, ok := m.d.accounts[id]
	if !ok {
		return store.DailyAccount{}, store.ErrNotFound
	}
	a.IsClosed = true
	a.ClosedAt = &at
	a.ClosedBy = &closedBy
	a.UpdatedBy = closedBy
	a.UpdatedAt = now()
	m.d.accounts[id] = a
	return a, nil
}

func (m *Memory) OpenDailyAccount(ctx context.Context, id int64, actor int64) (store.DailyAccount, error) {
	m.lock()
	defer m.unlock()
	a, ok := m.d.accounts[id]
	if !ok {
		return store.DailyAccount{}, store.ErrNotFound
	}
	a.IsClosed = false
	a.ClosedAt = nil
	a.ClosedBy = nil
	a.UpdatedBy = actor
	a.UpdatedAt = now()
	m.d.accounts[id] = a
	return a, nil
}

func (m *Memory) CreateDailyAccountItem(ctx context.Context, it store.DailyAccountItem) (store.DailyAccountItem, error) {
	m.lock()
	defer m.unlock()
	if _, ok := m.d.accounts[it.AccountID]; !ok {
		return store.DailyAccountItem{}, store.ErrNotFound
	}
	it.ID = m.d.next("daily_account_items")
	it.CreatedAt = now()
	m.d.accountItems[it.ID] = it
	return it, nil
}

func (m *Memory) ListDailyAccountItems(ctx context.Context, accountID int64) ([]store.DailyAccountItem, error) {
	m.lock()
	defer m.unlock()
	var out []store.DailyAccountItem
	for _, it := range m.d.accountItems {
		if it.AccountID == accountID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemName < out[j].ItemName })
	return out, nil
}

func (m *Memory) DeleteDailyAccountItems(ctx context.Context, accountID int64) (int64, error) {
	m.lock()
	defer m.unlock()
	var n int64
	for id, it := range m.d.accountItems {
		if it.AccountID == accountID {
			delete(m.d.accountItems, id)
			n++
		}
	}
	return n, nil
}

// closedItemsInRange yields snapshot rows from closed accounts in [from, to].
func (m *Memory) closedItemsInRange(from, to time.Time) []store.DailyAccountItem {
	from, to = store.DateOnly(from), store.DateOnly(to)
	var out []store.DailyAccountItem
	for _, it := range m.d.accountItems {
		a, ok := m.d.accounts[it.AccountID]
		if !ok || !a.IsClosed {
			continue
		}
		if a.AccountDate.Before(from) || a.AccountDate.After(to) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func (m *Memory) ItemSalesInRange(ctx context.Context, itemID int64, from, to time.Time) (store.ItemSalesStats, error) {
	m.lock()
	defer m.unlock()
	st := store.ItemSalesStats{
		ItemID:        itemID,
		TotalQuantity: decimal.Zero,
		TotalRevenue:  decimal.Zero,
		AvgUnitPrice:  decimal.Zero,
	}
	days := make(map[time.Time]bool)
	priceSum := decimal.Zero
	var rows int64
	for _, it := range m.closedItemsInRange(from, to) {
		if it.ItemID != itemID {
			continue
		}
		st.TotalQuantity = st.TotalQuantity.Add(it.Quantity)
		st.TotalRevenue = st.TotalRevenue.Add(it.LineTotal)
		priceSum = priceSum.Add(it.UnitPrice)
		rows++
		days[m.d.accounts[it.AccountID].AccountDate] = true
	}
	st.DaysSold = len(days)
	if rows > 0 {
		st.AvgUnitPrice = priceSum.Div(decimal.NewFromInt(rows))
	}
	return st, nil
}

func (m *Memory) TopSellers(ctx context.Context, from, to time.Time, limit int) ([]store.TopSellerRow, error) {
	m.lock()
	defer m.unlock()
	type agg struct {
		row      store.TopSellerRow
		priceSum decimal.Decimal
		rows     int64
	}
	byItem := make(map[int64]*agg)
	for _, it := range m.closedItemsInRange(from, to) {
		a, ok := byItem[it.ItemID]
		if !ok {
			a = &agg{row: store.TopSellerRow{ItemID: it.ItemID, ItemName: it.ItemName, SKU: it.SKU,
				TotalQuantity: decimal.Zero, TotalRevenue: decimal.Zero}}
			byItem[it.ItemID] = a
		}
		a.row.TotalQuantity = a.row.TotalQuantity.Add(it.Quantity)
		a.row.TotalRevenue = a.row.TotalRevenue.Add(it.LineTotal)
		a.priceSum = a.priceSum.Add(it.UnitPrice)
		a.rows++
	}
	out := make([]store.TopSellerRow, 0, len(byItem))
	for _, a := range byItem {
		a.row.AvgUnitPrice = a.priceSum.Div(decimal.NewFromInt(a.rows))
		out = append(out, a.row)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TotalQuantity.Equal(out[j].TotalQuantity) {
			return out[i].TotalQuantity.GreaterThan(out[j].TotalQuantity)
		}
		return out[i].TotalRevenue.GreaterThan(out[j].TotalRevenue)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) SalesByCategory(ctx context.Context, from, to time.Time) ([]store.CategorySalesRow, error) {
	m.lock()
	defer m.unlock()
	type agg struct {
		row   store.CategorySalesRow
		items map[int64]bool
	}
	byCat := make(map[int64]*agg)
	for _, snap := range m.closedItemsInRange(from, to) {
		it, ok := m.d.items[snap.ItemID]
		if !ok {
			continue
		}
		cat, ok := m.d.categories[it.CategoryID]
		if !ok {
			continue
		}
		a, ok := byCat[cat.ID]
		if !ok {
			a = &agg{row: store.CategorySalesRow{CategoryID: cat.ID, CategoryName: cat.Name,
				TotalQuantity: decimal.Zero, TotalRevenue: decimal.Zero}, items: make(map[int64]bool)}
			byCat[cat.ID] = a
		}
		a.row.TotalQuantity = a.row.TotalQuantity.Add(snap.Quantity)
		a.row.TotalRevenue = a.row.TotalRevenue.Add(snap.LineTotal)
		a.items[snap.ItemID] = true
	}
	out := make([]store.CategorySalesRow, 0, len(byCat))
	for _, a := range byCat {
		a.row.ItemsCount = len(a.items)
		out = append(out, a.row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalRevenue.GreaterThan(out[j].TotalRevenue) })
	return out, nil
}
