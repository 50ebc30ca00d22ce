package postgres

import (
	"context"

	"github.com/kasapos/backend-kasa/internal/store"
)

const menuColumns = `id, item_id, section, position, is_active, created_by, updated_by, created_at, updated_at`

func scanMenuItem(row rowScanner) (store.MenuItem, error) {
	var m store.MenuItem
	err := row.Scan(&m.ID, &m.ItemID, &m.Section, &m.Position, &m.IsActive, &m.CreatedBy, &m.UpdatedBy, &m.CreatedAt, &m.UpdatedAt)
	return m, mapErr(err)
}

func (s *Store) CreateMenuItem(ctx context.Context, m store.MenuItem) (store.MenuItem, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO menu_items (item_id, section, position, is_active, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING `+menuColumns,
		m.ItemID, m.Section, m.Position, m.IsActive, m.CreatedBy)
	return scanMenuItem(row)
}

func (s *Store) GetMenuItem(ctx context.Context, id int64) (store.MenuItem, error) {
	row := s.db.QueryRow(ctx, `SELECT `+menuColumns+` FROM menu_items WHERE id = $1`, id)
	return scanMenuItem(row)
}

func (s *Store) ListMenuItems(ctx context.Context, onlyActive bool) ([]store.MenuItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+menuColumns+` FROM menu_items
		WHERE NOT $1::bool OR is_active
		ORDER BY section, position`, onlyActive)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []store.MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) UpdateMenuItem(ctx context.Context, id int64, patch store.MenuItemPatch, actor int64) (store.MenuItem, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE menu_items SET
			section    = COALESCE($2, section),
			position   = COALESCE($3, position),
			is_active  = COALESCE($4, is_active),
			updated_by = $5,
			updated_at = now()
		WHERE id = $1
		RETURNING `+menuColumns,
		id, patch.Section, patch.Position, patch.IsActive, actor)
	return scanMenuItem(row)
}

func (s *Store) DeleteMenuItem(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
