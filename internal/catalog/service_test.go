package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kasapos/backend-kasa/internal/common"
	"github.com/kasapos/backend-kasa/internal/store"
	"github.com/kasapos/backend-kasa/internal/store/memory"
)

var owner = common.Actor{ID: 2, Role: common.RoleMarketOwner}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func newSvc() (*Service, *memory.Memory) {
	st := memory.New()
	return &Service{St: st}, st
}

func mustCategory(t *testing.T, svc *Service, name string) store.Category {
	t.Helper()
	c, err := svc.CreateCategory(context.Background(), CreateCategoryInput{Name: name}, owner)
	require.NoError(t, err)
	return c
}

func TestCreateCategoryRejectsDuplicateName(t *testing.T) {
	svc, _ := newSvc()
	mustCategory(t, svc, "Fruit")
	_, err := svc.CreateCategory(context.Background(), CreateCategoryInput{Name: "Fruit"}, owner)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 409, appErr.HTTPStatus)
}

func TestCreateItemOpensStockLedgerAtZero(t *testing.T) {
	svc, st := newSvc()
	cat := mustCategory(t, svc, "Fruit")

	item, err := svc.CreateItem(context.Background(), CreateItemInput{
		CategoryID: cat.ID,
		Name:       "Apples",
		SKU:        "FR-001",
		UnitPrice:  dec(t, "2.50"),
		UnitType:   "kg",
	}, owner)
	require.NoError(t, err)

	entry, err := st.GetStockByItem(context.Background(), item.ID)
	require.NoError(t, err)
	require.True(t, entry.Quantity.IsZero())
}

func TestCreateItemRejectsUnknownCategory(t *testing.T) {
	svc, _ := newSvc()
	_, err := svc.CreateItem(context.Background(), CreateItemInput{
		CategoryID: 999,
		Name:       "Apples",
		UnitPrice:  dec(t, "2.50"),
		UnitType:   "kg",
	}, owner)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 404, appErr.HTTPStatus)
}

func TestCreateItemRejectsBadRates(t *testing.T) {
	svc, _ := newSvc()
	cat := mustCategory(t, svc, "Fruit")
	for _, rate := range []string{"-1", "101"} {
		_, err := svc.CreateItem(context.Background(), CreateItemInput{
			CategoryID: cat.ID,
			Name:       "Apples",
			UnitPrice:  dec(t, "2.50"),
			UnitType:   "kg",
			TaxRate:    dec(t, rate),
		}, owner)
		var appErr *common.AppError
		require.ErrorAs(t, err, &appErr)
		require.Equal(t, 400, appErr.HTTPStatus)
	}
}

func TestCreateItemRejectsDuplicateSKU(t *testing.T) {
	svc, _ := newSvc()
	cat := mustCategory(t, svc, "Fruit")
	in := CreateItemInput{CategoryID: cat.ID, Name: "Apples", SKU: "FR-001", UnitPrice: dec(t, "2.50"), UnitType: "kg"}
	_, err := svc.CreateItem(context.Background(), in, owner)
	require.NoError(t, err)

	in.Name = "Pears"
	_, err = svc.CreateItem(context.Background(), in, owner)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 409, appErr.HTTPStatus)
}

func TestUpdateItemPatchesOnlyGivenFields(t *testing.T) {
	svc, _ := newSvc()
	cat := mustCategory(t, svc, "Fruit")
	item, err := svc.CreateItem(context.Background(), CreateItemInput{
		CategoryID: cat.ID, Name: "Apples", SKU: "FR-001", UnitPrice: dec(t, "2.50"), UnitType: "kg",
	}, owner)
	require.NoError(t, err)

	price := dec(t, "2.80")
	updated, err := svc.UpdateItem(context.Background(), item.ID, UpdateItemInput{UnitPrice: &price}, owner)
	require.NoError(t, err)
	require.Equal(t, "2.80", updated.UnitPrice.StringFixed(2))
	require.Equal(t, "Apples", updated.Name)
	require.Equal(t, "FR-001", updated.SKU)
}

func TestDeleteCategoryWithItemsConflicts(t *testing.T) {
	svc, _ := newSvc()
	cat := mustCategory(t, svc, "Fruit")
	_, err := svc.CreateItem(context.Background(), CreateItemInput{
		CategoryID: cat.ID, Name: "Apples", UnitPrice: dec(t, "2.50"), UnitType: "kg",
	}, owner)
	require.NoError(t, err)

	err = svc.DeleteCategory(context.Background(), cat.ID)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 409, appErr.HTTPStatus)
}

func TestDeleteItemRemovesStockEntry(t *testing.T) {
	svc, st := newSvc()
	cat := mustCategory(t, svc, "Fruit")
	item, err := svc.CreateItem(context.Background(), CreateItemInput{
		CategoryID: cat.ID, Name: "Apples", UnitPrice: dec(t, "2.50"), UnitType: "kg",
	}, owner)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteItem(context.Background(), item.ID))
	_, err = st.GetStockByItem(context.Background(), item.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.GetItem(context.Background(), item.ID)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 404, appErr.HTTPStatus)
}

func TestListItemsFiltersByCategory(t *testing.T) {
	svc, _ := newSvc()
	fruit := mustCategory(t, svc, "Fruit")
	drinks := mustCategory(t, svc, "Drinks")
	_, err := svc.CreateItem(context.Background(), CreateItemInput{
		CategoryID: fruit.ID, Name: "Apples", UnitPrice: dec(t, "2.50"), UnitType: "kg",
	}, owner)
	require.NoError(t, err)
	_, err = svc.CreateItem(context.Background(), CreateItemInput{
		CategoryID: drinks.ID, Name: "Juice", UnitPrice: dec(t, "3.00"), UnitType: "l",
	}, owner)
	require.NoError(t, err)

	all, err := svc.ListItems(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, all, 2)

	scoped, err := svc.ListItems(context.Background(), &fruit.ID)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	require.Equal(t, "Apples", scoped[0].Name)
}
