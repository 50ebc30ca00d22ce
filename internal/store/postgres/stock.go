package postgres

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/kasapos/backend-kasa/internal/store"
)

const stockColumns = `id, item_id, quantity::text, created_by, updated_by, created_at, updated_at`

func scanStockEntry(row rowScanner) (store.StockEntry, error) {
	var (
		e   store.StockEntry
		qty string
	)
	err := row.Scan(&e.ID, &e.ItemID, &qty, &e.CreatedBy, &e.UpdatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return store.StockEntry{}, mapErr(err)
	}
	if e.Quantity, err = parseDec(qty); err != nil {
		return store.StockEntry{}, err
	}
	return e, nil
}

func (s *Store) CreateStockEntry(ctx context.Context, e store.StockEntry) (store.StockEntry, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO stock_entries (item_id, quantity, created_by, updated_by)
		VALUES ($1, $2::numeric, $3, $3)
		RETURNING `+stockColumns,
		e.ItemID, e.Quantity.String(), e.CreatedBy)
	return scanStockEntry(row)
}

func (s *Store) GetStockByItem(ctx context.Context, itemID int64) (store.StockEntry, error) {
	row := s.db.QueryRow(ctx, `SELECT `+stockColumns+` FROM stock_entries WHERE item_id = $1`, itemID)
	return scanStockEntry(row)
}

func (s *Store) ListStockEntries(ctx context.Context) ([]store.StockEntry, error) {
	rows, err := s.db.Query(ctx, `SELECT `+stockColumns+` FROM stock_entries ORDER BY item_id`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []store.StockEntry
	for rows.Next() {
		e, err := scanStockEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) ListStockGroupedByCategory(ctx context.Context) ([]store.StockCategoryGroup, error) {
	rows, err := s.db.Query(ctx, `
		SELECT c.id, c.name, se.id, i.id, i.name, i.sku, i.unit_type, i.unit_price::text, se.quantity::text
		FROM stock_entries se
		JOIN items i ON i.id = se.item_id
		JOIN categories c ON c.id = i.category_id
		ORDER BY c.name, i.name`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var (
		out  []store.StockCategoryGroup
		last *store.StockCategoryGroup
	)
	for rows.Next() {
		var (
			catID      int64
			catName    string
			gi         store.StockGroupItem
			price, qty string
		)
		if err := rows.Scan(&catID, &catName, &gi.StockEntryID, &gi.ItemID, &gi.ItemName, &gi.SKU, &gi.UnitType, &price, &qty); err != nil {
			return nil, mapErr(err)
		}
		if gi.UnitPrice, err = parseDec(price); err != nil {
			return nil, err
		}
		if gi.Quantity, err = parseDec(qty); err != nil {
			return nil, err
		}
		if last == nil || last.CategoryID != catID {
			out = append(out, store.StockCategoryGroup{CategoryID: catID, CategoryName: catName})
			last = &out[len(out)-1]
		}
		last.Items = append(last.Items, gi)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) SetStockQuantity(ctx context.Context, itemID int64, qty decimal.Decimal, actor int64) (store.StockEntry, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE stock_entries SET quantity = $2::numeric, updated_by = $3, updated_at = now()
		WHERE item_id = $1
		RETURNING `+stockColumns,
		itemID, qty.String(), actor)
	return scanStockEntry(row)
}

// AdjustStockQuantity applies delta under the non-negative check constraint.
// Going below zero surfaces as store.ErrInsufficientStock.
func (s *Store) AdjustStockQuantity(ctx context.Context, itemID int64, delta decimal.Decimal, actor int64) (store.StockEntry, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE stock_entries SET quantity = quantity + $2::numeric, updated_by = $3, updated_at = now()
		WHERE item_id = $1
		RETURNING `+stockColumns,
		itemID, delta.String(), actor)
	return scanStockEntry(row)
}

func (s *Store) DeleteStockEntry(ctx context.Context, itemID int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM stock_entries WHERE item_id = $1`, itemID)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
