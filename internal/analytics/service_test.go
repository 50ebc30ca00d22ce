package analytics

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kasapos/backend-kasa/internal/cart"
	"github.com/kasapos/backend-kasa/internal/common"
	"github.com/kasapos/backend-kasa/internal/settlement"
	"github.com/kasapos/backend-kasa/internal/store"
	"github.com/kasapos/backend-kasa/internal/store/memory"
)

var manager = common.Actor{ID: 1, Role: common.RoleMarketOwner}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

type fixture struct {
	st     *memory.Memory
	carts  *cart.Service
	settle *settlement.Service
	svc    *Service
	today  time.Time
}

func newFixture(t *testing.T, withRedis bool) *fixture {
	t.Helper()
	st := memory.New()
	f := &fixture{
		st:     st,
		carts:  &cart.Service{St: st},
		settle: &settlement.Service{St: st},
		svc:    &Service{St: st},
		today:  store.DateOnly(time.Now().UTC()),
	}
	if withRedis {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		t.Cleanup(mr.Close)
		f.svc.R = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		f.svc.TTL = time.Minute
	}
	return f
}

func (f *fixture) seedItem(t *testing.T, category, name, price string) store.Item {
	t.Helper()
	ctx := context.Background()
	cat, err := f.st.CreateCategory(ctx, store.Category{Name: category})
	if err != nil {
		require.ErrorIs(t, err, store.ErrDuplicate)
		all, listErr := f.st.ListCategories(ctx)
		require.NoError(t, listErr)
		for _, existing := range all {
			if existing.Name == category {
				cat = existing
			}
		}
	}
	item, err := f.st.CreateItem(ctx, store.Item{
		CategoryID:   cat.ID,
		Name:         name,
		SKU:          "SKU-" + name,
		UnitPrice:    dec(t, price),
		UnitType:     "piece",
		DiscountRate: decimal.Zero,
		TaxRate:      decimal.Zero,
	})
	require.NoError(t, err)
	_, err = f.st.CreateStockEntry(ctx, store.StockEntry{ItemID: item.ID, Quantity: dec(t, "1000")})
	require.NoError(t, err)
	return item
}

func (f *fixture) sellAndClose(t *testing.T, sales map[int64]string) {
	t.Helper()
	ctx := context.Background()
	c, err := f.carts.Create(ctx, manager)
	require.NoError(t, err)
	for itemID, qty := range sales {
		_, err = f.carts.AddItem(ctx, c.ID, itemID, dec(t, qty), manager)
		require.NoError(t, err)
	}
	_, err = f.carts.Complete(ctx, c.ID, manager)
	require.NoError(t, err)
	_, err = f.settle.Close(ctx, f.today, manager)
	require.NoError(t, err)
}

func TestItemSalesCountsClosedDaysOnly(t *testing.T) {
	f := newFixture(t, false)
	tea := f.seedItem(t, "Drinks", "tea", "2.00")
	f.sellAndClose(t, map[int64]string{tea.ID: "3"})

	// a second sale stays in an open cart, invisible to analytics
	c, err := f.carts.Create(context.Background(), manager)
	require.NoError(t, err)
	_, err = f.carts.AddItem(context.Background(), c.ID, tea.ID, dec(t, "10"), manager)
	require.NoError(t, err)

	stats, err := f.svc.ItemSales(context.Background(), tea.ID, &f.today, &f.today)
	require.NoError(t, err)
	require.Equal(t, "3", stats.TotalQuantity.String())
	require.Equal(t, "6.00", stats.TotalRevenue.StringFixed(2))
	require.Equal(t, 1, stats.DaysSold)
}

func TestTopSellersRanksByQuantity(t *testing.T) {
	f := newFixture(t, false)
	tea := f.seedItem(t, "Drinks", "tea", "1.00")
	cake := f.seedItem(t, "Bakery", "cake", "50.00")
	f.sellAndClose(t, map[int64]string{tea.ID: "50", cake.ID: "2"})

	// cake earns more but tea moves more units, so tea ranks first
	rows, err := f.svc.TopSellers(context.Background(), &f.today, &f.today, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, tea.ID, rows[0].ItemID)
	require.Equal(t, "50", rows[0].TotalQuantity.String())
	require.Equal(t, cake.ID, rows[1].ItemID)
	require.True(t, rows[1].TotalRevenue.GreaterThan(rows[0].TotalRevenue))
}

func TestTopSellersHonorsLimit(t *testing.T) {
	f := newFixture(t, false)
	tea := f.seedItem(t, "Drinks", "tea", "2.00")
	cake := f.seedItem(t, "Bakery", "cake", "5.00")
	f.sellAndClose(t, map[int64]string{tea.ID: "2", cake.ID: "3"})

	rows, err := f.svc.TopSellers(context.Background(), &f.today, &f.today, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, cake.ID, rows[0].ItemID)
}

func TestSalesByCategoryGroupsItems(t *testing.T) {
	f := newFixture(t, false)
	tea := f.seedItem(t, "Drinks", "tea", "2.00")
	juice := f.seedItem(t, "Drinks", "juice", "3.00")
	cake := f.seedItem(t, "Bakery", "cake", "5.00")
	f.sellAndClose(t, map[int64]string{tea.ID: "1", juice.ID: "1", cake.ID: "1"})

	rows, err := f.svc.SalesByCategory(context.Background(), &f.today, &f.today)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	byName := make(map[string]store.CategorySalesRow)
	for _, r := range rows {
		byName[r.CategoryName] = r
	}
	require.Equal(t, "5.00", byName["Drinks"].TotalRevenue.StringFixed(2))
	require.Equal(t, 2, byName["Drinks"].ItemsCount)
	require.Equal(t, "5.00", byName["Bakery"].TotalRevenue.StringFixed(2))
}

func TestItemSalesServedFromCache(t *testing.T) {
	f := newFixture(t, true)
	tea := f.seedItem(t, "Drinks", "tea", "2.00")
	f.sellAndClose(t, map[int64]string{tea.ID: "3"})

	first, err := f.svc.ItemSales(context.Background(), tea.ID, &f.today, &f.today)
	require.NoError(t, err)
	require.Equal(t, "3", first.TotalQuantity.String())

	// reopen, sell more, reclose; the cached window stays stale until TTL
	_, err = f.settle.Open(context.Background(), f.today, manager)
	require.NoError(t, err)
	f.sellAndClose(t, map[int64]string{tea.ID: "4"})

	cached, err := f.svc.ItemSales(context.Background(), tea.ID, &f.today, &f.today)
	require.NoError(t, err)
	require.Equal(t, "3", cached.TotalQuantity.String())
}

func TestRangeValidation(t *testing.T) {
	f := newFixture(t, false)
	yesterday := f.today.AddDate(0, 0, -1)
	_, err := f.svc.ItemSales(context.Background(), 1, &f.today, &yesterday)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 400, appErr.HTTPStatus)
}
