package postgres

import (
	"context"
	"strings"

	"github.com/kasapos/backend-kasa/internal/store"
)

const userColumns = `id, email, username, full_name, hashed_password, role, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (store.User, error) {
	var u store.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.FullName, &u.HashedPassword, &u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	return u, mapErr(err)
}

func (s *Store) CreateUser(ctx context.Context, u store.User) (store.User, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO users (email, username, full_name, hashed_password, role, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns,
		strings.ToLower(u.Email), u.Username, u.FullName, u.HashedPassword, u.Role, u.Status)
	return scanUser(row)
}

func (s *Store) GetUser(ctx context.Context, id int64) (store.User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = lower($1)`, email)
	return scanUser(row)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (store.User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

func (s *Store) ListUsers(ctx context.Context) ([]store.User, error) {
	rows, err := s.db.Query(ctx, `SELECT `+userColumns+` FROM users WHERE status <> 'deleted' ORDER BY id`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []store.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) UpdateUser(ctx context.Context, id int64, patch store.UserPatch) (store.User, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE users SET
			email      = COALESCE(lower($2), email),
			username   = COALESCE($3, username),
			full_name  = COALESCE($4, full_name),
			role       = COALESCE($5, role),
			updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		id, patch.Email, patch.Username, patch.FullName, patch.Role)
	return scanUser(row)
}

func (s *Store) SetUserStatus(ctx context.Context, id int64, status store.UserStatus) (store.User, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE users SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns, id, status)
	return scanUser(row)
}

func (s *Store) SetUserPassword(ctx context.Context, id int64, hash string) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET hashed_password = $2, updated_at = now() WHERE id = $1`, id, hash)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const refreshColumns = `id, user_id, token, expires_at, revoked, created_at`

func scanRefreshToken(row rowScanner) (store.RefreshToken, error) {
	var t store.RefreshToken
	err := row.Scan(&t.ID, &t.UserID, &t.Token, &t.ExpiresAt, &t.Revoked, &t.CreatedAt)
	return t, mapErr(err)
}

func (s *Store) CreateRefreshToken(ctx context.Context, t store.RefreshToken) (store.RefreshToken, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO refresh_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)
		RETURNING `+refreshColumns,
		t.UserID, t.Token, t.ExpiresAt)
	return scanRefreshToken(row)
}

func (s *Store) GetRefreshToken(ctx context.Context, token string) (store.RefreshToken, error) {
	row := s.db.QueryRow(ctx, `SELECT `+refreshColumns+` FROM refresh_tokens WHERE token = $1`, token)
	return scanRefreshToken(row)
}

func (s *Store) RevokeRefreshToken(ctx context.Context, token string) error {
	tag, err := s.db.Exec(ctx, `UPDATE refresh_tokens SET revoked = true WHERE token = $1`, token)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) RevokeUserRefreshTokens(ctx context.Context, userID int64) error {
	_, err := s.db.Exec(ctx, `UPDATE refresh_tokens SET revoked = true WHERE user_id = $1 AND NOT revoked`, userID)
	return mapErr(err)
}
