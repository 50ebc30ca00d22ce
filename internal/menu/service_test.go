package menu

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kasapos/backend-kasa/internal/common"
	"github.com/kasapos/backend-kasa/internal/store"
	"github.com/kasapos/backend-kasa/internal/store/memory"
)

var owner = common.Actor{ID: 4, Role: common.RoleMarketOwner}

func seedItem(t *testing.T, st store.Store, name string) store.Item {
	t.Helper()
	ctx := context.Background()
	cat, err := st.CreateCategory(ctx, store.Category{Name: name + " category"})
	require.NoError(t, err)
	item, err := st.CreateItem(ctx, store.Item{
		CategoryID: cat.ID,
		Name:       name,
		SKU:        "SKU-" + name,
		UnitPrice:  decimal.NewFromInt(3),
		UnitType:   "piece",
	})
	require.NoError(t, err)
	return item
}

func TestCreateRejectsUnknownItem(t *testing.T) {
	st := memory.New()
	svc := &Service{St: st}
	_, err := svc.Create(context.Background(), CreateInput{ItemID: 99, Section: "Drinks"}, owner)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 404, appErr.HTTPStatus)
}

func TestCreateRejectsSecondEntryForItem(t *testing.T) {
	st := memory.New()
	svc := &Service{St: st}
	item := seedItem(t, st, "tea")

	_, err := svc.Create(context.Background(), CreateInput{ItemID: item.ID, Section: "Drinks"}, owner)
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateInput{ItemID: item.ID, Section: "Specials"}, owner)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 409, appErr.HTTPStatus)
}

func TestListJoinsCatalogData(t *testing.T) {
	st := memory.New()
	svc := &Service{St: st}
	item := seedItem(t, st, "tea")
	_, err := svc.Create(context.Background(), CreateInput{ItemID: item.ID, Section: "Drinks", Position: 2}, owner)
	require.NoError(t, err)

	entries, err := svc.List(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "tea", entries[0].ItemName)
	require.Equal(t, "3", entries[0].UnitPrice.String())
	require.True(t, entries[0].IsActive)
}

func TestListOnlyActiveFiltersDeactivated(t *testing.T) {
	st := memory.New()
	svc := &Service{St: st}
	tea := seedItem(t, st, "tea")
	juice := seedItem(t, st, "juice")
	_, err := svc.Create(context.Background(), CreateInput{ItemID: tea.ID, Section: "Drinks"}, owner)
	require.NoError(t, err)
	entry, err := svc.Create(context.Background(), CreateInput{ItemID: juice.ID, Section: "Drinks"}, owner)
	require.NoError(t, err)

	off := false
	_, err = svc.Update(context.Background(), entry.ID, UpdateInput{IsActive: &off}, owner)
	require.NoError(t, err)

	active, err := svc.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, tea.ID, active[0].ItemID)
}

func TestListSkipsOrphanedEntries(t *testing.T) {
	st := memory.New()
	svc := &Service{St: st}
	item := seedItem(t, st, "tea")
	_, err := svc.Create(context.Background(), CreateInput{ItemID: item.ID, Section: "Drinks"}, owner)
	require.NoError(t, err)

	require.NoError(t, st.DeleteItem(context.Background(), item.ID))

	entries, err := svc.List(context.Background(), false)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestSectionsGroupAndOrder(t *testing.T) {
	st := memory.New()
	svc := &Service{St: st}
	tea := seedItem(t, st, "tea")
	juice := seedItem(t, st, "juice")
	cake := seedItem(t, st, "cake")
	_, err := svc.Create(context.Background(), CreateInput{ItemID: juice.ID, Section: "Drinks", Position: 2}, owner)
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateInput{ItemID: tea.ID, Section: "Drinks", Position: 1}, owner)
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateInput{ItemID: cake.ID, Section: "Bakery", Position: 1}, owner)
	require.NoError(t, err)

	sections, err := svc.Sections(context.Background())
	require.NoError(t, err)
	require.Len(t, sections, 2)
	require.Equal(t, "Bakery", sections[0].Section)
	require.Equal(t, "Drinks", sections[1].Section)
	require.Equal(t, "tea", sections[1].Entries[0].ItemName)
	require.Equal(t, "juice", sections[1].Entries[1].ItemName)
}

func TestDeleteRemovesEntry(t *testing.T) {
	st := memory.New()
	svc := &Service{St: st}
	item := seedItem(t, st, "tea")
	entry, err := svc.Create(context.Background(), CreateInput{ItemID: item.ID, Section: "Drinks"}, owner)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), entry.ID))
	_, err = svc.Get(context.Background(), entry.ID)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 404, appErr.HTTPStatus)
}
