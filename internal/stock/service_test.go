package stock

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kasapos/backend-kasa/internal/common"
	"github.com/kasapos/backend-kasa/internal/store"
	"github.com/kasapos/backend-kasa/internal/store/memory"
)

var owner = common.Actor{ID: 3, Role: common.RoleMarketOwner}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func seed(t *testing.T, st store.Store, qty string) store.Item {
	t.Helper()
	ctx := context.Background()
	cat, err := st.CreateCategory(ctx, store.Category{Name: "Fruit"})
	require.NoError(t, err)
	item, err := st.CreateItem(ctx, store.Item{
		CategoryID: cat.ID,
		Name:       "Apples",
		SKU:        "FR-001",
		UnitPrice:  dec(t, "2.50"),
		UnitType:   "kg",
	})
	require.NoError(t, err)
	_, err = st.CreateStockEntry(ctx, store.StockEntry{ItemID: item.ID, Quantity: dec(t, qty)})
	require.NoError(t, err)
	return item
}

func TestAdjustIncreasesAndDecreases(t *testing.T) {
	st := memory.New()
	svc := &Service{St: st}
	item := seed(t, st, "10")

	e, err := svc.Adjust(context.Background(), item.ID, dec(t, "5.5"), owner)
	require.NoError(t, err)
	require.Equal(t, "15.5", e.Quantity.String())

	e, err = svc.Adjust(context.Background(), item.ID, dec(t, "-0.5"), owner)
	require.NoError(t, err)
	require.Equal(t, "15", e.Quantity.String())
}

func TestAdjustBelowZeroConflicts(t *testing.T) {
	st := memory.New()
	svc := &Service{St: st}
	item := seed(t, st, "3")

	_, err := svc.Adjust(context.Background(), item.ID, dec(t, "-4"), owner)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 409, appErr.HTTPStatus)

	e, err := svc.Get(context.Background(), item.ID)
	require.NoError(t, err)
	require.Equal(t, "3", e.Quantity.String())
}

func TestAdjustZeroDeltaRejected(t *testing.T) {
	st := memory.New()
	svc := &Service{St: st}
	item := seed(t, st, "3")

	_, err := svc.Adjust(context.Background(), item.ID, decimal.Zero, owner)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 400, appErr.HTTPStatus)
}

func TestSetQuantityOverwrites(t *testing.T) {
	st := memory.New()
	svc := &Service{St: st}
	item := seed(t, st, "10")

	e, err := svc.SetQuantity(context.Background(), item.ID, dec(t, "7.25"), owner)
	require.NoError(t, err)
	require.Equal(t, "7.25", e.Quantity.String())

	_, err = svc.SetQuantity(context.Background(), item.ID, dec(t, "-1"), owner)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 400, appErr.HTTPStatus)
}

func TestUnknownItemNotFound(t *testing.T) {
	st := memory.New()
	svc := &Service{St: st}

	_, err := svc.Adjust(context.Background(), 42, dec(t, "1"), owner)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 404, appErr.HTTPStatus)
}

func TestListResolvesItemNames(t *testing.T) {
	st := memory.New()
	svc := &Service{St: st}
	item := seed(t, st, "10")

	entries, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, item.ID, entries[0].ItemID)
	require.Equal(t, "Apples", entries[0].ItemName)
	require.Equal(t, "10", entries[0].Quantity.String())
}
