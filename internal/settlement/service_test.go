package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kasapos/backend-kasa/internal/cart"
	"github.com/kasapos/backend-kasa/internal/common"
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
	st    *memory.Memory
	carts *cart.Service
	svc   *Service
	today time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	return &fixture{
		st:    st,
		carts: &cart.Service{St: st},
		svc:   &Service{St: st},
		today: store.DateOnly(time.Now().UTC()),
	}
}

func (f *fixture) seedItem(t *testing.T, name, price, discountRate, taxRate, stockQty string) store.Item {
	t.Helper()
	ctx := context.Background()
	category, err := f.st.CreateCategory(ctx, store.Category{Name: name + " category"})
	require.NoError(t, err)
	item, err := f.st.CreateItem(ctx, store.Item{
		CategoryID:   category.ID,
		Name:         name,
		SKU:          "SKU-" + name,
		UnitPrice:    dec(t, price),
		UnitType:     "piece",
		DiscountRate: dec(t, discountRate),
		TaxRate:      dec(t, taxRate),
	})
	require.NoError(t, err)
	_, err = f.st.CreateStockEntry(ctx, store.StockEntry{ItemID: item.ID, Quantity: dec(t, stockQty)})
	require.NoError(t, err)
	return item
}

func (f *fixture) sell(t *testing.T, item store.Item, qty string, complete bool) store.Cart {
	t.Helper()
	ctx := context.Background()
	c, err := f.carts.Create(ctx, manager)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, c.ID, item.ID, dec(t, qty), manager)
	require.NoError(t, err)
	if complete {
		view, err := f.carts.Complete(ctx, c.ID, manager)
		require.NoError(t, err)
		return view.Cart
	}
	return c
}

func TestCloseAggregatesPerItem(t *testing.T) {
	f := newFixture(t)
	tea := f.seedItem(t, "tea", "3.335", "10", "10", "100")
	f.sell(t, tea, "1", true)
	f.sell(t, tea, "1", true)

	v, err := f.svc.Close(context.Background(), f.today, manager)
	require.NoError(t, err)
	require.True(t, v.Account.IsClosed)
	require.Equal(t, 2, v.Account.CartsCount)
	require.Equal(t, 1, v.Account.ItemsCount)
	require.Len(t, v.Items, 1)

	// 3.335 * 2 rounds once on the aggregated quantity
	require.Equal(t, "2", v.Items[0].Quantity.String())
	require.Equal(t, "6.67", v.Items[0].LineSubtotal.StringFixed(2))
	require.Equal(t, "0.67", v.Items[0].LineDiscount.StringFixed(2))
	require.Equal(t, "0.60", v.Items[0].LineTax.StringFixed(2))
	require.Equal(t, "6.60", v.Items[0].LineTotal.StringFixed(2))
	require.Equal(t, "6.60", v.Account.Total.StringFixed(2))
}

func TestCloseTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	tea := f.seedItem(t, "tea", "2.00", "0", "0", "50")
	f.sell(t, tea, "1", true)

	_, err := f.svc.Close(context.Background(), f.today, manager)
	require.NoError(t, err)

	_, err = f.svc.Close(context.Background(), f.today, manager)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 409, appErr.HTTPStatus)
}

func TestOpenThenRecloseRecomputes(t *testing.T) {
	f := newFixture(t)
	tea := f.seedItem(t, "tea", "2.00", "0", "0", "50")
	f.sell(t, tea, "1", true)

	first, err := f.svc.Close(context.Background(), f.today, manager)
	require.NoError(t, err)
	require.Equal(t, "2.00", first.Account.Total.StringFixed(2))

	opened, err := f.svc.Open(context.Background(), f.today, manager)
	require.NoError(t, err)
	require.False(t, opened.IsClosed)

	// another sale lands after the reopen
	f.sell(t, tea, "3", true)

	second, err := f.svc.Close(context.Background(), f.today, manager)
	require.NoError(t, err)
	require.Equal(t, "8.00", second.Account.Total.StringFixed(2))
	require.Equal(t, 2, second.Account.CartsCount)
	require.Len(t, second.Items, 1)
	require.Equal(t, "4", second.Items[0].Quantity.String())
}

func TestOpenKeepsSnapshotRows(t *testing.T) {
	f := newFixture(t)
	tea := f.seedItem(t, "tea", "2.00", "0", "0", "50")
	f.sell(t, tea, "3", true)

	closed, err := f.svc.Close(context.Background(), f.today, manager)
	require.NoError(t, err)

	opened, err := f.svc.Open(context.Background(), f.today, manager)
	require.NoError(t, err)
	require.False(t, opened.IsClosed)

	// the last close's figures stay readable while the day is open
	items, err := f.st.ListDailyAccountItems(context.Background(), closed.Account.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, tea.ID, items[0].ItemID)
	require.Equal(t, "3", items[0].Quantity.String())
	require.Equal(t, "6.00", items[0].LineTotal.StringFixed(2))

	v, err := f.svc.Get(context.Background(), closed.Account.ID)
	require.NoError(t, err)
	require.Equal(t, "6.00", v.Account.Total.StringFixed(2))
}

func TestRecloseUnchangedDayIsIdempotent(t *testing.T) {
	f := newFixture(t)
	tea := f.seedItem(t, "tea", "3.335", "10.00", "10.00", "50")
	f.sell(t, tea, "2", true)

	first, err := f.svc.Close(context.Background(), f.today, manager)
	require.NoError(t, err)

	_, err = f.svc.Open(context.Background(), f.today, manager)
	require.NoError(t, err)

	second, err := f.svc.Close(context.Background(), f.today, manager)
	require.NoError(t, err)

	require.True(t, first.Account.Subtotal.Equal(second.Account.Subtotal))
	require.True(t, first.Account.DiscountTotal.Equal(second.Account.DiscountTotal))
	require.True(t, first.Account.TaxTotal.Equal(second.Account.TaxTotal))
	require.True(t, first.Account.Total.Equal(second.Account.Total))
	require.Equal(t, first.Account.CartsCount, second.Account.CartsCount)
	require.Equal(t, first.Account.ItemsCount, second.Account.ItemsCount)

	require.Len(t, second.Items, len(first.Items))
	for i, want := range first.Items {
		got := second.Items[i]
		require.Equal(t, want.ItemID, got.ItemID)
		require.True(t, want.Quantity.Equal(got.Quantity))
		require.True(t, want.LineSubtotal.Equal(got.LineSubtotal))
		require.True(t, want.LineDiscount.Equal(got.LineDiscount))
		require.True(t, want.LineTax.Equal(got.LineTax))
		require.True(t, want.LineTotal.Equal(got.LineTotal))
	}
}

func TestOpenRejectsAlreadyOpen(t *testing.T) {
	f := newFixture(t)
	tea := f.seedItem(t, "tea", "2.00", "0", "0", "50")
	f.sell(t, tea, "1", true)
	_, err := f.svc.Close(context.Background(), f.today, manager)
	require.NoError(t, err)
	_, err = f.svc.Open(context.Background(), f.today, manager)
	require.NoError(t, err)

	_, err = f.svc.Open(context.Background(), f.today, manager)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 409, appErr.HTTPStatus)
}

func TestOpenUnknownDateNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Open(context.Background(), f.today, manager)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 404, appErr.HTTPStatus)
}

func TestCloseEmptyDayRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Close(context.Background(), f.today, manager)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 400, appErr.HTTPStatus)

	// nothing was written for the empty day
	_, err = f.st.GetDailyAccountByDate(context.Background(), f.today)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCompletedOnlyExcludesDrafts(t *testing.T) {
	f := newFixture(t)
	f.svc.CompletedOnly = true
	tea := f.seedItem(t, "tea", "2.00", "0", "0", "50")
	f.sell(t, tea, "1", true)
	f.sell(t, tea, "5", false) // stays draft

	v, err := f.svc.Close(context.Background(), f.today, manager)
	require.NoError(t, err)
	require.Equal(t, 1, v.Account.CartsCount)
	require.Equal(t, "2.00", v.Account.Total.StringFixed(2))
}

func TestDefaultCloseIncludesDrafts(t *testing.T) {
	f := newFixture(t)
	tea := f.seedItem(t, "tea", "2.00", "0", "0", "50")
	f.sell(t, tea, "1", true)
	f.sell(t, tea, "5", false)

	v, err := f.svc.Close(context.Background(), f.today, manager)
	require.NoError(t, err)
	require.Equal(t, 2, v.Account.CartsCount)
	require.Equal(t, "12.00", v.Account.Total.StringFixed(2))
}

func TestSummaryPreviewWithoutClosing(t *testing.T) {
	f := newFixture(t)
	tea := f.seedItem(t, "tea", "2.00", "0", "0", "50")
	f.sell(t, tea, "3", true)

	totals, err := f.svc.Summary(context.Background(), f.today)
	require.NoError(t, err)
	require.Equal(t, "6.00", totals.Total.StringFixed(2))
	require.Equal(t, 1, totals.CartsCount)

	_, err = f.st.GetDailyAccountByDate(context.Background(), f.today)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAutoCloseWorkerSkipsClosedDay(t *testing.T) {
	f := newFixture(t)
	tea := f.seedItem(t, "tea", "2.00", "0", "0", "50")
	f.sell(t, tea, "1", true)
	_, err := f.svc.Close(context.Background(), f.today, manager)
	require.NoError(t, err)

	worker := &AutoCloseWorker{Svc: f.svc, Actor: manager, Logger: zerolog.Nop()}
	task, err := NewAutoCloseTask(f.today)
	require.NoError(t, err)
	require.NoError(t, worker.Handle(context.Background(), task))
}

func TestAutoCloseWorkerClosesNamedDate(t *testing.T) {
	f := newFixture(t)
	tea := f.seedItem(t, "tea", "2.00", "0", "0", "50")
	f.sell(t, tea, "2", true)

	worker := &AutoCloseWorker{Svc: f.svc, Actor: manager, Logger: zerolog.Nop()}
	task, err := NewAutoCloseTask(f.today)
	require.NoError(t, err)
	require.NoError(t, worker.Handle(context.Background(), task))

	v, err := f.svc.GetByDate(context.Background(), f.today)
	require.NoError(t, err)
	require.True(t, v.Account.IsClosed)
	require.Equal(t, "4.00", v.Account.Total.StringFixed(2))
}
