package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/kasapos/backend-kasa/internal/store"
)

const cartColumns = `id, desk_number, status, created_by, updated_by, created_at, updated_at`

func scanCart(row rowScanner) (store.Cart, error) {
	var c store.Cart
	err := row.Scan(&c.ID, &c.DeskNumber, &c.Status, &c.CreatedBy, &c.UpdatedBy, &c.CreatedAt, &c.UpdatedAt)
	return c, mapErr(err)
}

func (s *Store) CreateCart(ctx context.Context, createdBy int64) (store.Cart, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO carts (status, created_by, updated_by)
		VALUES ($1, $2, $2)
		RETURNING `+cartColumns,
		store.CartDraft, createdBy)
	return scanCart(row)
}

func (s *Store) GetCart(ctx context.Context, id int64) (store.Cart, error) {
	row := s.db.QueryRow(ctx, `SELECT `+cartColumns+` FROM carts WHERE id = $1`, id)
	return scanCart(row)
}

func (s *Store) GetCartByDeskNumber(ctx context.Context, deskNumber string) (store.Cart, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+cartColumns+` FROM carts
		WHERE desk_number = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1`,
		deskNumber, store.CartDraft)
	return scanCart(row)
}

func (s *Store) ListCartsWithDeskNumber(ctx context.Context) ([]store.Cart, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+cartColumns+` FROM carts
		WHERE desk_number IS NOT NULL AND status = $1
		ORDER BY desk_number`,
		store.CartDraft)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	return collectCarts(rows)
}

func (s *Store) ListCartsByDateRange(ctx context.Context, from, to time.Time, status *store.CartStatus) ([]store.Cart, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+cartColumns+` FROM carts
		WHERE created_at >= $1 AND created_at < $2
		  AND ($3::text IS NULL OR status = $3)
		ORDER BY id`,
		from, to, status)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	return collectCarts(rows)
}

func collectCarts(rows pgx.Rows) ([]store.Cart, error) {
	var out []store.Cart
	for rows.Next() {
		c, err := scanCart(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) SetCartDeskNumber(ctx context.Context, id int64, deskNumber *string, actor int64) (store.Cart, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE carts SET desk_number = $2, updated_by = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+cartColumns,
		id, deskNumber, actor)
	return scanCart(row)
}

func (s *Store) SetCartStatus(ctx context.Context, id int64, status store.CartStatus, actor int64) (store.Cart, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE carts SET status = $2, updated_by = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+cartColumns,
		id, status, actor)
	return scanCart(row)
}

func (s *Store) TouchCart(ctx context.Context, id int64, actor int64) error {
	tag, err := s.db.Exec(ctx, `UPDATE carts SET updated_by = $2, updated_at = now() WHERE id = $1`, id, actor)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const cartItemColumns = `id, cart_id, item_id, quantity::text, created_by, updated_by, created_at, updated_at`

func scanCartItem(row rowScanner) (store.CartItem, error) {
	var (
		ci  store.CartItem
		qty string
	)
	err := row.Scan(&ci.ID, &ci.CartID, &ci.ItemID, &qty, &ci.CreatedBy, &ci.UpdatedBy, &ci.CreatedAt, &ci.UpdatedAt)
	if err != nil {
		return store.CartItem{}, mapErr(err)
	}
	if ci.Quantity, err = parseDec(qty); err != nil {
		return store.CartItem{}, err
	}
	return ci, nil
}

func (s *Store) CreateCartItem(ctx context.Context, ci store.CartItem) (store.CartItem, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO cart_items (cart_id, item_id, quantity, created_by, updated_by)
		VALUES ($1, $2, $3::numeric, $4, $4)
		RETURNING `+cartItemColumns,
		ci.CartID, ci.ItemID, ci.Quantity.String(), ci.CreatedBy)
	return scanCartItem(row)
}

func (s *Store) GetCartItem(ctx context.Context, id int64) (store.CartItem, error) {
	row := s.db.QueryRow(ctx, `SELECT `+cartItemColumns+` FROM cart_items WHERE id = $1`, id)
	return scanCartItem(row)
}

func (s *Store) GetCartItemByCartAndItem(ctx context.Context, cartID, itemID int64) (store.CartItem, error) {
	row := s.db.QueryRow(ctx, `SELECT `+cartItemColumns+` FROM cart_items WHERE cart_id = $1 AND item_id = $2`, cartID, itemID)
	return scanCartItem(row)
}

func (s *Store) ListCartItems(ctx context.Context, cartID int64) ([]store.CartItem, error) {
	rows, err := s.db.Query(ctx, `SELECT `+cartItemColumns+` FROM cart_items WHERE cart_id = $1 ORDER BY id`, cartID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	return collectCartItems(rows)
}

func (s *Store) ListCartItemsForCarts(ctx context.Context, cartIDs []int64) ([]store.CartItem, error) {
	rows, err := s.db.Query(ctx, `SELECT `+cartItemColumns+` FROM cart_items WHERE cart_id = ANY($1) ORDER BY id`, cartIDs)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	return collectCartItems(rows)
}

func collectCartItems(rows pgx.Rows) ([]store.CartItem, error) {
	var out []store.CartItem
	for rows.Next() {
		ci, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ci)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) UpdateCartItemQuantity(ctx context.Context, id int64, qty decimal.Decimal, actor int64) (store.CartItem, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE cart_items SET quantity = $2::numeric, updated_by = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+cartItemColumns,
		id, qty.String(), actor)
	return scanCartItem(row)
}

func (s *Store) DeleteCartItem(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ClearCartItems(ctx context.Context, cartID int64) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return 0, mapErr(err)
	}
	return tag.RowsAffected(), nil
}
