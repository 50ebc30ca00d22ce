// Package menu curates which catalog items appear on the public menu board.
package menu

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kasapos/backend-kasa/internal/common"
	"github.com/kasapos/backend-kasa/internal/store"
)

// Service manages the public menu.
type Service struct {
	St store.Store
}

// CreateInput adds a catalog item to the menu.
type CreateInput struct {
	ItemID   int64  `json:"itemId" validate:"required,gt=0"`
	Section  string `json:"section" validate:"required,max=100"`
	Position int    `json:"position" validate:"gte=0"`
	IsActive *bool  `json:"isActive"`
}

// UpdateInput patches menu display fields. Nil fields are left unchanged.
type UpdateInput struct {
	Section  *string `json:"section" validate:"omitempty,max=100"`
	Position *int    `json:"position" validate:"omitempty,gte=0"`
	IsActive *bool   `json:"isActive"`
}

// EntryView joins a menu row with its catalog item for display.
type EntryView struct {
	store.MenuItem
	ItemName  string          `json:"itemName"`
	UnitType  string          `json:"unitType"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	TaxRate   decimal.Decimal `json:"taxRate"`
}

// Create puts a catalog item on the menu. Each item appears at most once.
func (s *Service) Create(ctx context.Context, in CreateInput, actor common.Actor) (store.MenuItem, error) {
	if s == nil || s.St == nil {
		return store.MenuItem{}, errors.New("menu service not configured")
	}
	if _, err := s.St.GetItem(ctx, in.ItemID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.MenuItem{}, common.NotFound("item not found")
		}
		return store.MenuItem{}, err
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	created, err := s.St.CreateMenuItem(ctx, store.MenuItem{
		ItemID:    in.ItemID,
		Section:   strings.TrimSpace(in.Section),
		Position:  in.Position,
		IsActive:  active,
		CreatedBy: actor.ID,
		UpdatedBy: actor.ID,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return store.MenuItem{}, common.Conflict("item is already on the menu")
		}
		return store.MenuItem{}, err
	}
	return created, nil
}

// Get returns a single menu entry.
func (s *Service) Get(ctx context.Context, id int64) (store.MenuItem, error) {
	if s == nil || s.St == nil {
		return store.MenuItem{}, errors.New("menu service not configured")
	}
	m, err := s.St.GetMenuItem(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.MenuItem{}, common.NotFound("menu item not found")
		}
		return store.MenuItem{}, err
	}
	return m, nil
}

// List returns menu entries joined with their catalog items, ordered by
// section and position. onlyActive hides disabled entries, which is what the
// public board requests.
func (s *Service) List(ctx context.Context, onlyActive bool) ([]EntryView, error) {
	if s == nil || s.St == nil {
		return nil, errors.New("menu service not configured")
	}
	rows, err := s.St.ListMenuItems(ctx, onlyActive)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(rows))
	for _, m := range rows {
		ids = append(ids, m.ItemID)
	}
	items, err := s.St.ListItemsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]store.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	out := make([]EntryView, 0, len(rows))
	for _, m := range rows {
		it, ok := byID[m.ItemID]
		if !ok {
			// catalog item was removed, hide the orphan
			continue
		}
		out = append(out, EntryView{
			MenuItem:  m,
			ItemName:  it.Name,
			UnitType:  it.UnitType,
			UnitPrice: it.UnitPrice,
			TaxRate:   it.TaxRate,
		})
	}
	return out, nil
}

// SectionView is one display section of the public board.
type SectionView struct {
	Section string      `json:"section"`
	Entries []EntryView `json:"entries"`
}

// Sections returns active entries grouped by section, ordered by position
// within each section.
func (s *Service) Sections(ctx context.Context) ([]SectionView, error) {
	entries, err := s.List(ctx, true)
	if err != nil {
		return nil, err
	}
	grouped := make(map[string][]EntryView)
	order := make([]string, 0)
	for _, e := range entries {
		if _, seen := grouped[e.Section]; !seen {
			order = append(order, e.Section)
		}
		grouped[e.Section] = append(grouped[e.Section], e)
	}
	sort.Strings(order)
	out := make([]SectionView, 0, len(order))
	for _, section := range order {
		rows := grouped[section]
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Position < rows[j].Position })
		out = append(out, SectionView{Section: section, Entries: rows})
	}
	return out, nil
}

// Update patches a menu entry.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput, actor common.Actor) (store.MenuItem, error) {
	if s == nil || s.St == nil {
		return store.MenuItem{}, errors.New("menu service not configured")
	}
	patch := store.MenuItemPatch{
		Section:  in.Section,
		Position: in.Position,
		IsActive: in.IsActive,
	}
	if in.Section != nil {
		trimmed := strings.TrimSpace(*in.Section)
		patch.Section = &trimmed
	}
	updated, err := s.St.UpdateMenuItem(ctx, id, patch, actor.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.MenuItem{}, common.NotFound("menu item not found")
		}
		return store.MenuItem{}, err
	}
	return updated, nil
}

// Delete removes a menu entry. The catalog item itself is untouched.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if s == nil || s.St == nil {
		return errors.New("menu service not configured")
	}
	err := s.St.DeleteMenuItem(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return common.NotFound("menu item not found")
	}
	return err
}
