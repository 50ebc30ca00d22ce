// Package memory implements store.Store on mutex-guarded maps. It backs
// service tests that exercise transactional invariants without a database.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kasapos/backend-kasa/internal/store"
)

type data struct {
	seq map[string]int64

	users         map[int64]store.User
	refreshTokens map[int64]store.RefreshToken
	categories    map[int64]store.Category
	items         map[int64]store.Item
	stock         map[int64]store.StockEntry // keyed by entry id
	carts         map[int64]store.Cart
	cartItems     map[int64]store.CartItem
	accounts      map[int64]store.DailyAccount
	accountItems  map[int64]store.DailyAccountItem
	menuItems     map[int64]store.MenuItem
	timeEntries   map[int64]store.TimeEntry
}

func newData() *data {
	return &data{
		seq:           make(map[string]int64),
		users:         make(map[int64]store.User),
		refreshTokens: make(map[int64]store.RefreshToken),
		categories:    make(map[int64]store.Category),
		items:         make(map[int64]store.Item),
		stock:         make(map[int64]store.StockEntry),
		carts:         make(map[int64]store.Cart),
		cartItems:     make(map[int64]store.CartItem),
		accounts:      make(map[int64]store.DailyAccount),
		accountItems:  make(map[int64]store.DailyAccountItem),
		menuItems:     make(map[int64]store.MenuItem),
		timeEntries:   make(map[int64]store.TimeEntry),
	}
}

func (d *data) next(table string) int64 {
	d.seq[table]++
	return d.seq[table]
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.seq {
		c.seq[k] = v
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.refreshTokens {
		c.refreshTokens[k] = v
	}
	for k, v := range d.categories {
		c.categories[k] = v
	}
	for k, v := range d.items {
		c.items[k] = v
	}
	for k, v := range d.stock {
		c.stock[k] = v
	}
	for k, v := range d.carts {
		c.carts[k] = v
	}
	for k, v := range d.cartItems {
		c.cartItems[k] = v
	}
	for k, v := range d.accounts {
		c.accounts[k] = v
	}
	for k, v := range d.accountItems {
		c.accountItems[k] = v
	}
	for k, v := range d.menuItems {
		c.menuItems[k] = v
	}
	for k, v := range d.timeEntries {
		c.timeEntries[k] = v
	}
	return c
}

// Memory is the in-process store. The zero value is not usable; call New.
type Memory struct {
	mu   sync.Mutex
	inTx bool
	d    *data
}

// New returns an empty store.
func New() *Memory {
	return &Memory{d: newData()}
}

func (m *Memory) lock() {
	if !m.inTx {
		m.mu.Lock()
	}
}

func (m *Memory) unlock() {
	if !m.inTx {
		m.mu.Unlock()
	}
}

// Atomic holds the store lock for the duration of fn and rolls the whole
// dataset back when fn fails, mimicking a serializable transaction.
func (m *Memory) Atomic(ctx context.Context, fn func(store.Store) error) error {
	if m.inTx {
		return fn(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.d.clone()
	tx := &Memory{inTx: true, d: m.d}
	if err := fn(tx); err != nil {
		*m.d = *snap
		return err
	}
	return nil
}

func now() time.Time { return time.Now().UTC() }

func sortByID[T any](s []T, id func(T) int64) {
	sort.Slice(s, func(i, j int) bool { return id(s[i]) < id(s[j]) })
}

func lowerEq(a, b string) bool { return strings.EqualFold(a, b) }
