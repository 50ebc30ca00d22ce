package memory

import (
	"context"
	"strings"

	"github.com/kasapos/backend-kasa/internal/store"
)

func (m *Memory) CreateUser(ctx context.Context, u store.User) (store.User, error) {
	m.lock()
	defer m.unlock()
	for _, existing := range m.d.users {
		if lowerEq(existing.Email, u.Email) || existing.Username == u.Username {
			return store.User{}, store.ErrDuplicate
		}
	}
	u.ID = m.d.next("users")
	u.Email = strings.ToLower(u.Email)
	u.CreatedAt = now()
	u.UpdatedAt = u.CreatedAt
	m.d.users[u.ID] = u
	return u, nil
}

func (m *Memory) GetUser(ctx context.Context, id int64) (store.User, error) {
	m.lock()
	defer m.unlock()
	u, ok := m.d.users[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *Memory) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	m.lock()
	defer m.unlock()
	for _, u := range m.d.users {
		if lowerEq(u.Email, email) {
			return u, nil
		}
	}
	return store.User{}, store.ErrNotFound
}

func (m *Memory) GetUserByUsername(ctx context.Context, username string) (store.User, error) {
	m.lock()
	defer m.unlock()
	for _, u := range m.d.users {
		if u.Username == username {
			return u, nil
		}
	}
	return store.User{}, store.ErrNotFound
}

func (m *Memory) ListUsers(ctx context.Context) ([]store.User, error) {
	m.lock()
	defer m.unlock()
	var out []store.User
	for _, u := range m.d.users {
		if u.Status != store.UserDeleted {
			out = append(out, u)
		}
	}
	sortByID(out, func(u store.User) int64 { return u.ID })
	return out, nil
}

func (m *Memory) UpdateUser(ctx context.Context, id int64, patch store.UserPatch) (store.User, error) {
	m.lock()
	defer m.unlock()
	u, ok := m.d.users[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	if patch.Email != nil {
		email := strings.ToLower(*patch.Email)
		for _, other := range m.d.users {
			if other.ID != id && lowerEq(other.Email, email) {
				return store.User{}, store.ErrDuplicate
			}
		}
		u.Email = email
	}
	if patch.Username != nil {
		for _, other := range m.d.users {
			if other.ID != id && other.Username == *patch.Username {
				return store.User{}, store.ErrDuplicate
			}
		}
		u.Username = *patch.Username
	}
	if patch.FullName != nil {
		u.FullName = *patch.FullName
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	u.UpdatedAt = now()
	m.d.users[id] = u
	return u, nil
}

func (m *Memory) SetUserStatus(ctx context.Context, id int64, status store.UserStatus) (store.User, error) {
	m.lock()
	defer m.unlock()
	u, ok := m.d.users[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	u.Status = status
	u.UpdatedAt = now()
	m.d.users[id] = u
	return u, nil
}

func (m *Memory) SetUserPassword(ctx context.Context, id int64, hash string) error {
	m.lock()
	defer m.unlock()
	u, ok := m.d.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.HashedPassword = hash
	u.UpdatedAt = now()
	m.d.users[id] = u
	return nil
}

func (m *Memory) CreateRefreshToken(ctx context.Context, t store.RefreshToken) (store.RefreshToken, error) {
	m.lock()
	defer m.unlock()
	for _, existing := range m.d.refreshTokens {
		if existing.Token == t.Token {
			return store.RefreshToken{}, store.ErrDuplicate
		}
	}
	t.ID = m.d.next("refresh_tokens")
	t.CreatedAt = now()
	m.d.refreshTokens[t.ID] = t
	return t, nil
}

func (m *Memory) GetRefreshToken(ctx context.Context, token string) (store.RefreshToken, error) {
	m.lock()
	defer m.unlock()
	for _, t := range m.d.refreshTokens {
		if t.Token == token {
			return t, nil
		}
	}
	return store.RefreshToken{}, store.ErrNotFound
}

func (m *Memory) RevokeRefreshToken(ctx context.Context, token string) error {
	m.lock()
	defer m.unlock()
	for id, t := range m.d.refreshTokens {
		if t.Token == token {
			t.Revoked = true
			m.d.refreshTokens[id] = t
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *Memory) RevokeUserRefreshTokens(ctx context.Context, userID int64) error {
	m.lock()
	defer m.unlock()
	for id, t := range m.d.refreshTokens {
		if t.UserID == userID && !t.Revoked {
			t.Revoked = true
			m.d.refreshTokens[id] = t
		}
	}
	return nil
}
