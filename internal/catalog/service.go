// Package catalog manages categories and the priced item list that every
// cart line and settlement snapshot resolves against.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kasapos/backend-kasa/internal/common"
	"github.com/kasapos/backend-kasa/internal/store"
)

// Service encapsulates catalog domain operations.
type Service struct {
	St store.Store
}

// CreateCategoryInput carries the fields accepted on category creation.
type CreateCategoryInput struct {
	Name        string `json:"name" validate:"required,min=1,max=120"`
	Description string `json:"description" validate:"max=500"`
}

// UpdateCategoryInput carries optional category mutations.
type UpdateCategoryInput struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=120"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// CreateItemInput carries the fields accepted on item creation. Rates are
// percentages in [0, 100].
type CreateItemInput struct {
	CategoryID   int64           `json:"categoryId" validate:"required,gt=0"`
	Name         string          `json:"name" validate:"required,min=1,max=200"`
	Description  string          `json:"description" validate:"max=1000"`
	SKU          string          `json:"sku" validate:"max=64"`
	Barcode      string          `json:"barcode" validate:"max=64"`
	ImageURL     string          `json:"imageUrl" validate:"omitempty,url"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	UnitType     string          `json:"unitType" validate:"required,oneof=piece kg g l ml pack"`
	TaxRate      decimal.Decimal `json:"taxRate"`
	DiscountRate decimal.Decimal `json:"discountRate"`
}

// UpdateItemInput carries optional item mutations.
type UpdateItemInput struct {
	CategoryID   *int64           `json:"categoryId" validate:"omitempty,gt=0"`
	Name         *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Description  *string          `json:"description" validate:"omitempty,max=1000"`
	SKU          *string          `json:"sku" validate:"omitempty,max=64"`
	Barcode      *string          `json:"barcode" validate:"omitempty,max=64"`
	ImageURL     *string          `json:"imageUrl" validate:"omitempty,url"`
	UnitPrice    *decimal.Decimal `json:"unitPrice"`
	UnitType     *string          `json:"unitType" validate:"omitempty,oneof=piece kg g l ml pack"`
	TaxRate      *decimal.Decimal `json:"taxRate"`
	DiscountRate *decimal.Decimal `json:"discountRate"`
}

func validRate(r decimal.Decimal) bool {
	return !r.IsNegative() && r.LessThanOrEqual(decimal.NewFromInt(100))
}

// CreateCategory registers a new category.
func (s *Service) CreateCategory(ctx context.Context, in CreateCategoryInput, actor common.Actor) (store.Category, error) {
	if s == nil || s.St == nil {
		return store.Category{}, errors.New("catalog service not configured")
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return store.Category{}, common.Validation("name is required")
	}
	c, err := s.St.CreateCategory(ctx, store.Category{
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		CreatedBy:   actor.ID,
	})
	if errors.Is(err, store.ErrDuplicate) {
		return store.Category{}, common.Conflict("category name already exists")
	}
	return c, err
}

// GetCategory loads one category.
func (s *Service) GetCategory(ctx context.Context, id int64) (store.Category, error) {
	if s == nil || s.St == nil {
		return store.Category{}, errors.New("catalog service not configured")
	}
	c, err := s.St.GetCategory(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.Category{}, common.NotFound("category not found")
	}
	return c, err
}

// ListCategories returns all categories ordered by name.
func (s *Service) ListCategories(ctx context.Context) ([]store.Category, error) {
	if s == nil || s.St == nil {
		return nil, errors.New("catalog service not configured")
	}
	return s.St.ListCategories(ctx)
}

// UpdateCategory applies the provided patch.
func (s *Service) UpdateCategory(ctx context.Context, id int64, in UpdateCategoryInput, actor common.Actor) (store.Category, error) {
	if s == nil || s.St == nil {
		return store.Category{}, errors.New("catalog service not configured")
	}
	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		if trimmed == "" {
			return store.Category{}, common.Validation("name cannot be empty")
		}
		in.Name = &trimmed
	}
	c, err := s.St.UpdateCategory(ctx, id, store.CategoryPatch{Name: in.Name, Description: in.Description}, actor.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return store.Category{}, common.NotFound("category not found")
	case errors.Is(err, store.ErrDuplicate):
		return store.Category{}, common.Conflict("category name already exists")
	}
	return c, err
}

// DeleteCategory removes a category. A category still referenced by items
// cannot be deleted.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if s == nil || s.St == nil {
		return errors.New("catalog service not configured")
	}
	n, err := s.St.CountItemsByCategory(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return common.Conflict(fmt.Sprintf("category has %d items", n))
	}
	err = s.St.DeleteCategory(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return common.NotFound("category not found")
	}
	return err
}

// CreateItem registers a catalog item and opens its stock ledger entry at
// zero in the same transaction.
func (s *Service) CreateItem(ctx context.Context, in CreateItemInput, actor common.Actor) (store.Item, error) {
	if s == nil || s.St == nil {
		return store.Item{}, errors.New("catalog service not configured")
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return store.Item{}, common.Validation("name is required")
	}
	if in.UnitPrice.IsNegative() {
		return store.Item{}, common.Validation("unitPrice cannot be negative")
	}
	if !validRate(in.TaxRate) || !validRate(in.DiscountRate) {
		return store.Item{}, common.Validation("rates must be between 0 and 100")
	}
	var created store.Item
	err := s.St.Atomic(ctx, func(tx store.Store) error {
		if _, err := tx.GetCategory(ctx, in.CategoryID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return common.NotFound("category not found")
			}
			return err
		}
		it, err := tx.CreateItem(ctx, store.Item{
			CategoryID:   in.CategoryID,
			Name:         in.Name,
			Description:  strings.TrimSpace(in.Description),
			SKU:          strings.TrimSpace(in.SKU),
			Barcode:      strings.TrimSpace(in.Barcode),
			ImageURL:     strings.TrimSpace(in.ImageURL),
			UnitPrice:    in.UnitPrice,
			UnitType:     in.UnitType,
			TaxRate:      in.TaxRate,
			DiscountRate: in.DiscountRate,
			CreatedBy:    actor.ID,
		})
		if err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return common.Conflict("sku already exists")
			}
			return err
		}
		if _, err := tx.CreateStockEntry(ctx, store.StockEntry{
			ItemID:    it.ID,
			Quantity:  decimal.Zero,
			CreatedBy: actor.ID,
		}); err != nil {
			return err
		}
		created = it
		return nil
	})
	return created, err
}

// GetItem loads one item.
func (s *Service) GetItem(ctx context.Context, id int64) (store.Item, error) {
	if s == nil || s.St == nil {
		return store.Item{}, errors.New("catalog service not configured")
	}
	it, err := s.St.GetItem(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.Item{}, common.NotFound("item not found")
	}
	return it, err
}

// ListItems returns items, optionally filtered by category.
func (s *Service) ListItems(ctx context.Context, categoryID *int64) ([]store.Item, error) {
	if s == nil || s.St == nil {
		return nil, errors.New("catalog service not configured")
	}
	return s.St.ListItems(ctx, categoryID)
}

// UpdateItem applies the provided patch. Price and rate changes affect only
// future pricing; closed settlement snapshots keep their copied values.
func (s *Service) UpdateItem(ctx context.Context, id int64, in UpdateItemInput, actor common.Actor) (store.Item, error) {
	if s == nil || s.St == nil {
		return store.Item{}, errors.New("catalog service not configured")
	}
	if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
		return store.Item{}, common.Validation("unitPrice cannot be negative")
	}
	if in.TaxRate != nil && !validRate(*in.TaxRate) {
		return store.Item{}, common.Validation("taxRate must be between 0 and 100")
	}
	if in.DiscountRate != nil && !validRate(*in.DiscountRate) {
		return store.Item{}, common.Validation("discountRate must be between 0 and 100")
	}
	it, err := s.St.UpdateItem(ctx, id, store.ItemPatch{
		CategoryID:   in.CategoryID,
		Name:         in.Name,
		Description:  in.Description,
		SKU:          in.SKU,
		Barcode:      in.Barcode,
		ImageURL:     in.ImageURL,
		UnitPrice:    in.UnitPrice,
		UnitType:     in.UnitType,
		TaxRate:      in.TaxRate,
		DiscountRate: in.DiscountRate,
	}, actor.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return store.Item{}, common.NotFound("item not found")
	case errors.Is(err, store.ErrDuplicate):
		return store.Item{}, common.Conflict("sku already exists")
	}
	return it, err
}

// DeleteItem removes an item together with its stock ledger entry.
func (s *Service) DeleteItem(ctx context.Context, id int64) error {
	if s == nil || s.St == nil {
		return errors.New("catalog service not configured")
	}
	return s.St.Atomic(ctx, func(tx store.Store) error {
		if err := tx.DeleteStockEntry(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err := tx.DeleteItem(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return common.NotFound("item not found")
			}
			return err
		}
		return nil
	})
}
