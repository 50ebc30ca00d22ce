package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kasapos/backend-kasa/internal/common"
	"github.com/kasapos/backend-kasa/internal/store"
	"github.com/kasapos/backend-kasa/internal/store/memory"
)

var cashier = common.Actor{ID: 7, Role: common.RoleEmployee}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func seedItem(t *testing.T, st store.Store, name, price, stockQty string) store.Item {
	t.Helper()
	ctx := context.Background()
	category, err := st.CreateCategory(ctx, store.Category{Name: name + " category"})
	require.NoError(t, err)
	item, err := st.CreateItem(ctx, store.Item{
		CategoryID:   category.ID,
		Name:         name,
		SKU:          "SKU-" + name,
		UnitPrice:    dec(t, price),
		UnitType:     "piece",
		TaxRate:      dec(t, "10"),
		DiscountRate: dec(t, "10"),
	})
	require.NoError(t, err)
	_, err = st.CreateStockEntry(ctx, store.StockEntry{ItemID: item.ID, Quantity: dec(t, stockQty)})
	require.NoError(t, err)
	return item
}

func stockOf(t *testing.T, st store.Store, itemID int64) decimal.Decimal {
	t.Helper()
	e, err := st.GetStockByItem(context.Background(), itemID)
	require.NoError(t, err)
	return e.Quantity
}

func TestAddItemDeductsStock(t *testing.T) {
	st := memory.New()
	svc := &Service{St: st}
	item := seedItem(t, st, "apples", "2.50", "10")
	c, err := svc.Create(context.Background(), cashier)
	require.NoError(t, err)

	_, err = svc.AddItem(context.Background(), c.ID, item.ID, dec(t, "3"), cashier)
	require.NoError(t, err)
	require.True(t, stockOf(t, st, item.ID).Equal(dec(t, "7")))
}

func TestAddItemRejectsOversell(t *testing.T) {
	st := memory.New()
	svc := &Service{St: st}
	item := seedItem(t, st, "apples", "2.50", "2")
	c, err := svc.Create(context.Background(), cashier)
	require.NoError(t, err)

	_, err = svc.AddItem(context.Background(), c.ID, item.ID, dec(t, "3"), cashier)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 409, appErr.HTTPStatus)

	// transaction rolled back whole, no line and no deduction
	require.True(t, stockOf(t, st, item.ID).Equal(dec(t, "2")))
	view, err := svc.Get(context.Background(), c.ID)
	require.NoError(t, err)
	require.Empty(t, view.Lines)
}

func TestAddItemRejectsDuplicateLine(t *testing.T) {
	st := memory.New()
	svc := &Service{St: st}
	item := seedItem(t, st, "apples", "2.50", "10")
	c, err := svc.Create(context.Background(), cashier)
	require.NoError(t, err)

	_, err = svc.AddItem(context.Background(), c.ID, item.ID, dec(t, "1"), cashier)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), c.ID, item.ID, dec(t, "1"), cashier)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 409, appErr.HTTPStatus)
	require.True(t, stockOf(t, st, item.ID).Equal(dec(t, "9")))
}

func TestUpdateQuantitySettlesDifference(t *testing.T) {
	st := memory.New()
	svc := &Service{St: st}
	item := seedItem(t, st, "apples", "2.50", "10")
	c, err := svc.Create(context.Background(), cashier)
	require.NoError(t, err)
	line, err := svc.AddItem(context.Background(), c.ID, item.ID, dec(t, "4"), cashier)
	require.NoError(t, err)

	_, err = svc.UpdateItemQuantity(context.Background(), c.ID, line.ID, dec(t, "6"), cashier)
	require.NoError(t, err)
	require.True(t, stockOf(t, st, item.ID).Equal(dec(t, "4")))

	_, err = svc.UpdateItemQuantity(context.Background(), c.ID, line.ID, dec(t, "1"), cashier)
	require.NoError(t, err)
	require.True(t, stockOf(t, st, item.ID).Equal(dec(t, "9")))
}

func TestReturnItemRestoresStock(t *testing.T) {
	st := memory.New()
	svc := &Service{St: st}
	item := seedItem(t, st, "apples", "2.50", "10")
	c, err := svc.Create(context.Background(), cashier)
	require.NoError(t, err)
	line, err := svc.AddItem(context.Background(), c.ID, item.ID, dec(t, "4"), cashier)
	require.NoError(t, err)

	require.NoError(t, svc.ReturnItem(context.Background(), c.ID, line.ID, nil, cashier))
	require.True(t, stockOf(t, st, item.ID).Equal(dec(t, "10")))

	view, err := svc.Get(context.Background(), c.ID)
	require.NoError(t, err)
	require.Empty(t, view.Lines)
}

func TestPartialReturnReducesLine(t *testing.T) {
	st := memory.New()
	svc := &Service{St: st}
	item := seedItem(t, st, "apples", "2.50", "10")
	c, err := svc.Create(context.Background(), cashier)
	require.NoError(t, err)
	line, err := svc.AddItem(context.Background(), c.ID, item.ID, dec(t, "4"), cashier)
	require.NoError(t, err)

	partial := dec(t, "1.5")
	require.NoError(t, svc.ReturnItem(context.Background(), c.ID, line.ID, &partial, cashier))
	require.True(t, stockOf(t, st, item.ID).Equal(dec(t, "7.5")))

	view, err := svc.Get(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	require.True(t, view.Lines[0].Quantity.Equal(dec(t, "2.5")))

	// returning exactly the remainder removes the line
	rest := dec(t, "2.5")
	require.NoError(t, svc.ReturnItem(context.Background(), c.ID, line.ID, &rest, cashier))
	require.True(t, stockOf(t, st, item.ID).Equal(dec(t, "10")))
	view, err = svc.Get(context.Background(), c.ID)
	require.NoError(t, err)
	require.Empty(t, view.Lines)
}

func TestPartialReturnRejectsExcessQuantity(t *testing.T) {
	st := memory.New()
	svc := &Service{St: st}
	item := seedItem(t, st, "apples", "2.50", "10")
	c, err := svc.Create(context.Background(), cashier)
	require.NoError(t, err)
	line, err := svc.AddItem(context.Background(), c.ID, item.ID, dec(t, "2"), cashier)
	require.NoError(t, err)

	too := dec(t, "3")
	err = svc.ReturnItem(context.Background(), c.ID, line.ID, &too, cashier)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 400, appErr.HTTPStatus)

	zero := decimal.Zero
	err = svc.ReturnItem(context.Background(), c.ID, line.ID, &zero, cashier)
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 400, appErr.HTTPStatus)
}

func TestUpdateQuantityToZeroRemovesLine(t *testing.T) {
	st := memory.New()
	svc := &Service{St: st}
	item := seedItem(t, st, "apples", "2.50", "10")
	c, err := svc.Create(context.Background(), cashier)
	require.NoError(t, err)
	line, err := svc.AddItem(context.Background(), c.ID, item.ID, dec(t, "4"), cashier)
	require.NoError(t, err)

	_, err = svc.UpdateItemQuantity(context.Background(), c.ID, line.ID, decimal.Zero, cashier)
	require.NoError(t, err)
	require.True(t, stockOf(t, st, item.ID).Equal(dec(t, "10")))

	view, err := svc.Get(context.Background(), c.ID)
	require.NoError(t, err)
	require.Empty(t, view.Lines)
}

func TestClearItemsRestoresEveryLine(t *testing.T) {
	st := memory.New()
	svc := &Service{St: st}
	apples := seedItem(t, st, "apples", "2.50", "10")
	pears := seedItem(t, st, "pears", "3.10", "5")
	c, err := svc.Create(context.Background(), cashier)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), c.ID, apples.ID, dec(t, "4"), cashier)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), c.ID, pears.ID, dec(t, "2"), cashier)
	require.NoError(t, err)

	require.NoError(t, svc.ClearItems(context.Background(), c.ID, cashier))
	require.True(t, stockOf(t, st, apples.ID).Equal(dec(t, "10")))
	require.True(t, stockOf(t, st, pears.ID).Equal(dec(t, "5")))
}

func TestDeleteRestoresStockAndKeepsRows(t *testing.T) {
	st := memory.New()
	svc := &Service{St: st}
	item := seedItem(t, st, "apples", "2.50", "10")
	c, err := svc.Create(context.Background(), cashier)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), c.ID, item.ID, dec(t, "4"), cashier)
	require.NoError(t, err)

	deleted, err := svc.Delete(context.Background(), c.ID, cashier)
	require.NoError(t, err)
	require.Equal(t, store.CartDeleted, deleted.Status)
	require.True(t, stockOf(t, st, item.ID).Equal(dec(t, "10")))

	// rows stay readable for settlement audits
	lines, err := st.ListCartItems(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
}

func TestCompletedCartRejectsMutations(t *testing.T) {
	st := memory.New()
	svc := &Service{St: st}
	item := seedItem(t, st, "apples", "2.50", "10")
	c, err := svc.Create(context.Background(), cashier)
	require.NoError(t, err)
	line, err := svc.AddItem(context.Background(), c.ID, item.ID, dec(t, "2"), cashier)
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), c.ID, cashier)
	require.NoError(t, err)

	var appErr *common.AppError
	_, err = svc.AddItem(context.Background(), c.ID, item.ID, dec(t, "1"), cashier)
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 409, appErr.HTTPStatus)

	_, err = svc.UpdateItemQuantity(context.Background(), c.ID, line.ID, dec(t, "5"), cashier)
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 409, appErr.HTTPStatus)

	err = svc.ClearItems(context.Background(), c.ID, cashier)
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 409, appErr.HTTPStatus)

	// completion does not touch the ledger again
	require.True(t, stockOf(t, st, item.ID).Equal(dec(t, "8")))
}

func TestCompleteComputesRoundedTotals(t *testing.T) {
	st := memory.New()
	svc := &Service{St: st}
	item := seedItem(t, st, "tea", "3.335", "10")
	c, err := svc.Create(context.Background(), cashier)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), c.ID, item.ID, dec(t, "2"), cashier)
	require.NoError(t, err)

	view, err := svc.Complete(context.Background(), c.ID, cashier)
	require.NoError(t, err)
	require.Equal(t, "6.67", view.Totals.Subtotal.StringFixed(2))
	require.Equal(t, "0.67", view.Totals.DiscountTotal.StringFixed(2))
	require.Equal(t, "6.60", view.Totals.Total.StringFixed(2))
}

func TestEmptyCartTotalsAreZero(t *testing.T) {
	st := memory.New()
	svc := &Service{St: st}
	c, err := svc.Create(context.Background(), cashier)
	require.NoError(t, err)

	view, err := svc.Get(context.Background(), c.ID)
	require.NoError(t, err)
	require.Empty(t, view.Lines)
	require.Equal(t, "0.00", view.Totals.Total.StringFixed(2))
}

func TestDeskNumberAssignAndClear(t *testing.T) {
	st := memory.New()
	svc := &Service{St: st}
	c, err := svc.Create(context.Background(), cashier)
	require.NoError(t, err)

	desk := "12"
	updated, err := svc.SetDeskNumber(context.Background(), c.ID, &desk, cashier)
	require.NoError(t, err)
	require.NotNil(t, updated.DeskNumber)
	require.Equal(t, "12", *updated.DeskNumber)

	found, err := svc.GetByDesk(context.Background(), "12")
	require.NoError(t, err)
	require.Equal(t, c.ID, found.Cart.ID)

	cleared, err := svc.SetDeskNumber(context.Background(), c.ID, nil, cashier)
	require.NoError(t, err)
	require.Nil(t, cleared.DeskNumber)
}

func TestDeskNumberRejectsDuplicate(t *testing.T) {
	st := memory.New()
	svc := &Service{St: st}
	first, err := svc.Create(context.Background(), cashier)
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), cashier)
	require.NoError(t, err)

	desk := "7"
	_, err = svc.SetDeskNumber(context.Background(), first.ID, &desk, cashier)
	require.NoError(t, err)

	_, err = svc.SetDeskNumber(context.Background(), second.ID, &desk, cashier)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 409, appErr.HTTPStatus)

	// reasserting a cart's own number is a no-op, not a conflict
	_, err = svc.SetDeskNumber(context.Background(), first.ID, &desk, cashier)
	require.NoError(t, err)
}
