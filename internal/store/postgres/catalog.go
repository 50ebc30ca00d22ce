package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/kasapos/backend-kasa/internal/store"
)

// decArg renders an optional decimal as a text parameter for ::numeric casts.
func decArg(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

const categoryColumns = `id, name, description, created_by, updated_by, created_at, updated_at`

func scanCategory(row rowScanner) (store.Category, error) {
	var c store.Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedBy, &c.UpdatedBy, &c.CreatedAt, &c.UpdatedAt)
	return c, mapErr(err)
}

func (s *Store) CreateCategory(ctx context.Context, c store.Category) (store.Category, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO categories (name, description, created_by, updated_by)
		VALUES ($1, $2, $3, $3)
		RETURNING `+categoryColumns,
		c.Name, c.Description, c.CreatedBy)
	return scanCategory(row)
}

func (s *Store) GetCategory(ctx context.Context, id int64) (store.Category, error) {
	row := s.db.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	return scanCategory(row)
}

func (s *Store) ListCategories(ctx context.Context) ([]store.Category, error) {
	rows, err := s.db.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []store.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) UpdateCategory(ctx context.Context, id int64, patch store.CategoryPatch, actor int64) (store.Category, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE categories SET
			name        = COALESCE($2, name),
			description = COALESCE($3, description),
			updated_by  = $4,
			updated_at  = now()
		WHERE id = $1
		RETURNING `+categoryColumns,
		id, patch.Name, patch.Description, actor)
	return scanCategory(row)
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CountItemsByCategory(ctx context.Context, categoryID int64) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM items WHERE category_id = $1`, categoryID).Scan(&n)
	return n, mapErr(err)
}

const itemColumns = `id, category_id, name, description, sku, barcode, image_url,
	unit_price::text, unit_type, tax_rate::text, discount_rate::text,
	created_by, updated_by, created_at, updated_at`

func scanItem(row rowScanner) (store.Item, error) {
	var (
		item             store.Item
		price, tax, disc string
	)
	err := row.Scan(&item.ID, &item.CategoryID, &item.Name, &item.Description, &item.SKU, &item.Barcode, &item.ImageURL,
		&price, &item.UnitType, &tax, &disc,
		&item.CreatedBy, &item.UpdatedBy, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return store.Item{}, mapErr(err)
	}
	if item.UnitPrice, err = parseDec(price); err != nil {
		return store.Item{}, err
	}
	if item.TaxRate, err = parseDec(tax); err != nil {
		return store.Item{}, err
	}
	if item.DiscountRate, err = parseDec(disc); err != nil {
		return store.Item{}, err
	}
	return item, nil
}

func collectItems(rows pgx.Rows) ([]store.Item, error) {
	var out []store.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) CreateItem(ctx context.Context, it store.Item) (store.Item, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO items (category_id, name, description, sku, barcode, image_url,
			unit_price, unit_type, tax_rate, discount_rate, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9::numeric, $10::numeric, $11, $11)
		RETURNING `+itemColumns,
		it.CategoryID, it.Name, it.Description, it.SKU, it.Barcode, it.ImageURL,
		it.UnitPrice.String(), it.UnitType, it.TaxRate.String(), it.DiscountRate.String(), it.CreatedBy)
	return scanItem(row)
}

func (s *Store) GetItem(ctx context.Context, id int64) (store.Item, error) {
	row := s.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	return scanItem(row)
}

func (s *Store) ListItems(ctx context.Context, categoryID *int64) ([]store.Item, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+itemColumns+` FROM items
		WHERE $1::bigint IS NULL OR category_id = $1
		ORDER BY name`, categoryID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	return collectItems(rows)
}

func (s *Store) ListItemsByIDs(ctx context.Context, ids []int64) ([]store.Item, error) {
	rows, err := s.db.Query(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	return collectItems(rows)
}

func (s *Store) UpdateItem(ctx context.Context, id int64, patch store.ItemPatch, actor int64) (store.Item, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE items SET
			category_id   = COALESCE($2, category_id),
			name          = COALESCE($3, name),
			description   = COALESCE($4, description),
			sku           = COALESCE($5, sku),
			barcode       = COALESCE($6, barcode),
			image_url     = COALESCE($7, image_url),
			unit_price    = COALESCE($8::numeric, unit_price),
			unit_type     = COALESCE($9, unit_type),
			tax_rate      = COALESCE($10::numeric, tax_rate),
			discount_rate = COALESCE($11::numeric, discount_rate),
			updated_by    = $12,
			updated_at    = now()
		WHERE id = $1
		RETURNING `+itemColumns,
		id, patch.CategoryID, patch.Name, patch.Description, patch.SKU, patch.Barcode, patch.ImageURL,
		decArg(patch.UnitPrice), patch.UnitType, decArg(patch.TaxRate), decArg(patch.DiscountRate), actor)
	return scanItem(row)
}

func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
