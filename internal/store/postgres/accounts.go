package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/kasapos/backend-kasa/internal/store"
)

const accountColumns = `id, account_date, subtotal::text, discount_total::text, tax_total::text, total::text,
	carts_count, items_count, is_closed, closed_at, closed_by,
	created_by, updated_by, created_at, updated_at`

func scanDailyAccount(row rowScanner) (store.DailyAccount, error) {
	var (
		a                   store.DailyAccount
		sub, disc, tax, tot string
	)
	err := row.Scan(&a.ID, &a.AccountDate, &sub, &disc, &tax, &tot,
		&a.CartsCount, &a.ItemsCount, &a.IsClosed, &a.ClosedAt, &a.ClosedBy,
		&a.CreatedBy, &a.UpdatedBy, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return store.DailyAccount{}, mapErr(err)
	}
	a.AccountDate = store.DateOnly(a.AccountDate)
	if a.Subtotal, err = parseDec(sub); err != nil {
		return store.DailyAccount{}, err
	}
	if a.DiscountTotal, err = parseDec(disc); err != nil {
		return store.DailyAccount{}, err
	}
	if a.TaxTotal, err = parseDec(tax); err != nil {
		return store.DailyAccount{}, err
	}
	if a.Total, err = parseDec(tot); err != nil {
		return store.DailyAccount{}, err
	}
	return a, nil
}

func (s *Store) CreateDailyAccount(ctx context.Context, a store.DailyAccount) (store.DailyAccount, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO daily_accounts (account_date, subtotal, discount_total, tax_total, total,
			carts_count, items_count, created_by, updated_by)
		VALUES ($1, $2::numeric, $3::numeric, $4::numeric, $5::numeric, $6, $7, $8, $8)
		RETURNING `+accountColumns,
		store.DateOnly(a.AccountDate), a.Subtotal.String(), a.DiscountTotal.String(), a.TaxTotal.String(), a.Total.String(),
		a.CartsCount, a.ItemsCount, a.CreatedBy)
	return scanDailyAccount(row)
}

func (s *Store) GetDailyAccount(ctx context.Context, id int64) (store.DailyAccount, error) {
	row := s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM daily_accounts WHERE id = $1`, id)
	return scanDailyAccount(row)
}

func (s *Store) GetDailyAccountByDate(ctx context.Context, date time.Time) (store.DailyAccount, error) {
	row := s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM daily_accounts WHERE account_date = $1`, store.DateOnly(date))
	return scanDailyAccount(row)
}

func (s *Store) ListDailyAccounts(ctx context.Context, limit int) ([]store.DailyAccount, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+accountColumns+` FROM daily_accounts
		ORDER BY account_date DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	return collectDailyAccounts(rows)
}

func (s *Store) ListDailyAccountsByRange(ctx context.Context, from, to time.Time) ([]store.DailyAccount, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+accountColumns+` FROM daily_accounts
		WHERE account_date >= $1 AND account_date <= $2
		ORDER BY account_date`,
		store.DateOnly(from), store.DateOnly(to))
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	return collectDailyAccounts(rows)
}

func collectDailyAccounts(rows pgx.Rows) ([]store.DailyAccount, error) {
	var out []store.DailyAccount
	for rows.Next() {
		a, err := scanDailyAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) UpdateDailyAccountTotals(ctx context.Context, id int64, totals store.AccountTotals, actor int64) (store.DailyAccount, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE daily_accounts SET
			subtotal       = $2::numeric,
			discount_total = $3::numeric,
			tax_total      = $4::numeric,
			total          = $5::numeric,
			carts_count    = $6,
			items_count    = $7,
			updated_by     = $8,
			updated_at     = now()
		WHERE id = $1
		RETURNING `+accountColumns,
		id, totals.Subtotal.String(), totals.DiscountTotal.String(), totals.TaxTotal.String(), totals.Total.String(),
		totals.CartsCount, totals.ItemsCount, actor)
	return scanDailyAccount(row)
}

func (s *Store) CloseDailyAccount(ctx context.Context, id int64, closedBy int64, at time.Time) (store.DailyAccount, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE daily_accounts SET
			is_closed  = true,
			closed_at  = $2,
			closed_by  = $3,
			updated_by = $3,
			updated_at = now()
		WHERE id = $1
		RETURNING `+accountColumns,
		id, at, closedBy)
	return scanDailyAccount(row)
}

func (s *Store) OpenDailyAccount(ctx context.Context, id int64, actor int64) (store.DailyAccount, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE daily_accounts SET
			is_closed  = false,
			closed_at  = NULL,
			closed_by  = NULL,
			updated_by = $2,
			updated_at = now()
		WHERE id = $1
		RETURNING `+accountColumns,
		id, actor)
	return scanDailyAccount(row)
}

const accountItemColumns = `id, account_id, item_id, item_name, sku, quantity::text,
	unit_price::text, discount_rate::text, tax_rate::text,
	line_subtotal::text, line_discount::text, line_tax::text, line_total::text, created_at`

func scanDailyAccountItem(row rowScanner) (store.DailyAccountItem, error) {
	var (
		it                                  store.DailyAccountItem
		qty, price, disc, tax               string
		lineSub, lineDisc, lineTax, lineTot string
	)
	err := row.Scan(&it.ID, &it.AccountID, &it.ItemID, &it.ItemName, &it.SKU, &qty,
		&price, &disc, &tax, &lineSub, &lineDisc, &lineTax, &lineTot, &it.CreatedAt)
	if err != nil {
		return store.DailyAccountItem{}, mapErr(err)
	}
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&it.Quantity, qty}, {&it.UnitPrice, price}, {&it.DiscountRate, disc}, {&it.TaxRate, tax},
		{&it.LineSubtotal, lineSub}, {&it.LineDiscount, lineDisc}, {&it.LineTax, lineTax}, {&it.LineTotal, lineTot},
	} {
		if *f.dst, err = parseDec(f.src); err != nil {
			return store.DailyAccountItem{}, err
		}
	}
	return it, nil
}

func (s *Store) CreateDailyAccountItem(ctx context.Context, it store.DailyAccountItem) (store.DailyAccountItem, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO daily_account_items (account_id, item_id, item_name, sku, quantity,
			unit_price, discount_rate, tax_rate, line_subtotal, line_discount, line_tax, line_total)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8::numeric,
			$9::numeric, $10::numeric, $11::numeric, $12::numeric)
		RETURNING `+accountItemColumns,
		it.AccountID, it.ItemID, it.ItemName, it.SKU, it.Quantity.String(),
		it.UnitPrice.String(), it.DiscountRate.String(), it.TaxRate.String(),
		it.LineSubtotal.String(), it.LineDiscount.String(), it.LineTax.String(), it.LineTotal.String())
	return scanDailyAccountItem(row)
}

func (s *Store) ListDailyAccountItems(ctx context.Context, accountID int64) ([]store.DailyAccountItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+accountItemColumns+` FROM daily_account_items
		WHERE account_id = $1
		ORDER BY item_name`, accountID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []store.DailyAccountItem
	for rows.Next() {
		it, err := scanDailyAccountItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) DeleteDailyAccountItems(ctx context.Context, accountID int64) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM daily_account_items WHERE account_id = $1`, accountID)
	if err != nil {
		return 0, mapErr(err)
	}
	return tag.RowsAffected(), nil
}

// Analytics read closed accounts only so reopened days drop out of the
// figures until they are closed again.

func (s *Store) ItemSalesInRange(ctx context.Context, itemID int64, from, to time.Time) (store.ItemSalesStats, error) {
	var (
		st                 store.ItemSalesStats
		qty, rev, avgPrice string
	)
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(sum(dai.quantity), 0)::text,
		       COALESCE(sum(dai.line_total), 0)::text,
		       count(DISTINCT da.account_date),
		       COALESCE(avg(dai.unit_price), 0)::text
		FROM daily_account_items dai
		JOIN daily_accounts da ON da.id = dai.account_id
		WHERE dai.item_id = $1 AND da.is_closed
		  AND da.account_date >= $2 AND da.account_date <= $3`,
		itemID, store.DateOnly(from), store.DateOnly(to)).
		Scan(&qty, &rev, &st.DaysSold, &avgPrice)
	if err != nil {
		return store.ItemSalesStats{}, mapErr(err)
	}
	st.ItemID = itemID
	if st.TotalQuantity, err = parseDec(qty); err != nil {
		return store.ItemSalesStats{}, err
	}
	if st.TotalRevenue, err = parseDec(rev); err != nil {
		return store.ItemSalesStats{}, err
	}
	if st.AvgUnitPrice, err = parseDec(avgPrice); err != nil {
		return store.ItemSalesStats{}, err
	}
	return st, nil
}

func (s *Store) TopSellers(ctx context.Context, from, to time.Time, limit int) ([]store.TopSellerRow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT dai.item_id, max(dai.item_name), max(dai.sku),
		       sum(dai.quantity)::text, sum(dai.line_total)::text, avg(dai.unit_price)::text
		FROM daily_account_items dai
		JOIN daily_accounts da ON da.id = dai.account_id
		WHERE da.is_closed AND da.account_date >= $1 AND da.account_date <= $2
		GROUP BY dai.item_id
		ORDER BY sum(dai.quantity) DESC, sum(dai.line_total) DESC
		LIMIT $3`,
		store.DateOnly(from), store.DateOnly(to), limit)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []store.TopSellerRow
	for rows.Next() {
		var (
			r                  store.TopSellerRow
			qty, rev, avgPrice string
		)
		if err := rows.Scan(&r.ItemID, &r.ItemName, &r.SKU, &qty, &rev, &avgPrice); err != nil {
			return nil, mapErr(err)
		}
		if r.TotalQuantity, err = parseDec(qty); err != nil {
			return nil, err
		}
		if r.TotalRevenue, err = parseDec(rev); err != nil {
			return nil, err
		}
		if r.AvgUnitPrice, err = parseDec(avgPrice); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) SalesByCategory(ctx context.Context, from, to time.Time) ([]store.CategorySalesRow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT c.id, c.name, sum(dai.quantity)::text, sum(dai.line_total)::text, count(DISTINCT dai.item_id)
		FROM daily_account_items dai
		JOIN daily_accounts da ON da.id = dai.account_id
		JOIN items i ON i.id = dai.item_id
		JOIN categories c ON c.id = i.category_id
		WHERE da.is_closed AND da.account_date >= $1 AND da.account_date <= $2
		GROUP BY c.id, c.name
		ORDER BY sum(dai.line_total) DESC`,
		store.DateOnly(from), store.DateOnly(to))
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []store.CategorySalesRow
	for rows.Next() {
		var (
			r        store.CategorySalesRow
			qty, rev string
		)
		if err := rows.Scan(&r.CategoryID, &r.CategoryName, &qty, &rev, &r.ItemsCount); err != nil {
			return nil, mapErr(err)
		}
		if r.TotalQuantity, err = parseDec(qty); err != nil {
			return nil, err
		}
		if r.TotalRevenue, err = parseDec(rev); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, mapErr(rows.Err())
}
