package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kasapos/backend-kasa/internal/common"
)

// Sentinel errors surfaced by implementations. Services translate these
// into AppError codes at the boundary.
var (
	ErrNotFound          = errors.New("store: not found")
	ErrDuplicate         = errors.New("store: duplicate")
	ErrInsufficientStock = errors.New("store: insufficient stock")
)

// Patch structs carry only the mutable fields of an entity; nil means
// "leave unchanged". They replace the original system's stringly-typed
// update(**fields) dispatch with targeted update statements.

// CategoryPatch mutates category metadata.
type CategoryPatch struct {
	Name        *string
	Description *string
}

// ItemPatch mutates catalog item fields.
type ItemPatch struct {
	CategoryID   *int64
	Name         *string
	Description  *string
	SKU          *string
	Barcode      *string
	ImageURL     *string
	UnitPrice    *decimal.Decimal
	UnitType     *string
	TaxRate      *decimal.Decimal
	DiscountRate *decimal.Decimal
}

// UserPatch mutates account profile fields.
type UserPatch struct {
	Email    *string
	Username *string
	FullName *string
	Role     *common.Role
}

// MenuItemPatch mutates menu display fields.
type MenuItemPatch struct {
	Section  *string
	Position *int
	IsActive *bool
}

// AccountTotals carries the recomputed money figures written on close.
type AccountTotals struct {
	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	TaxTotal      decimal.Decimal
	Total         decimal.Decimal
	CartsCount    int
	ItemsCount    int
}

// Store is the persistence boundary for the whole backend. The postgres
// implementation maps it onto pgx; the memory implementation backs tests.
//
// Atomic runs fn against a transactional view of the store: every read and
// write inside fn commits or rolls back together. Stock adjustments and the
// cart item mutations they pair with must share one Atomic scope.
type Store interface {
	Atomic(ctx context.Context, fn func(Store) error) error

	// Users and sessions.
	CreateUser(ctx context.Context, u User) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdateUser(ctx context.Context, id int64, patch UserPatch) (User, error)
	SetUserStatus(ctx context.Context, id int64, status UserStatus) (User, error)
	SetUserPassword(ctx context.Context, id int64, hash string) error
	CreateRefreshToken(ctx context.Context, t RefreshToken) (RefreshToken, error)
	GetRefreshToken(ctx context.Context, token string) (RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, token string) error
	RevokeUserRefreshTokens(ctx context.Context, userID int64) error

	// Catalog.
	CreateCategory(ctx context.Context, c Category) (Category, error)
	GetCategory(ctx context.Context, id int64) (Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	UpdateCategory(ctx context.Context, id int64, patch CategoryPatch, actor int64) (Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	CountItemsByCategory(ctx context.Context, categoryID int64) (int64, error)
	CreateItem(ctx context.Context, it Item) (Item, error)
	GetItem(ctx context.Context, id int64) (Item, error)
	ListItems(ctx context.Context, categoryID *int64) ([]Item, error)
	ListItemsByIDs(ctx context.Context, ids []int64) ([]Item, error)
	UpdateItem(ctx context.Context, id int64, patch ItemPatch, actor int64) (Item, error)
	DeleteItem(ctx context.Context, id int64) error

	// Stock ledger.
	CreateStockEntry(ctx context.Context, e StockEntry) (StockEntry, error)
	GetStockByItem(ctx context.Context, itemID int64) (StockEntry, error)
	ListStockEntries(ctx context.Context) ([]StockEntry, error)
	ListStockGroupedByCategory(ctx context.Context) ([]StockCategoryGroup, error)
	SetStockQuantity(ctx context.Context, itemID int64, qty decimal.Decimal, actor int64) (StockEntry, error)
	AdjustStockQuantity(ctx context.Context, itemID int64, delta decimal.Decimal, actor int64) (StockEntry, error)
	DeleteStockEntry(ctx context.Context, itemID int64) error

	// Carts.
	CreateCart(ctx context.Context, createdBy int64) (Cart, error)
	GetCart(ctx context.Context, id int64) (Cart, error)
	GetCartByDeskNumber(ctx context.Context, deskNumber string) (Cart, error)
	ListCartsWithDeskNumber(ctx context.Context) ([]Cart, error)
	ListCartsByDateRange(ctx context.Context, from, to time.Time, status *CartStatus) ([]Cart, error)
	SetCartDeskNumber(ctx context.Context, id int64, deskNumber *string, actor int64) (Cart, error)
	SetCartStatus(ctx context.Context, id int64, status CartStatus, actor int64) (Cart, error)
	TouchCart(ctx context.Context, id int64, actor int64) error
	CreateCartItem(ctx context.Context, ci CartItem) (CartItem, error)
	GetCartItem(ctx context.Context, id int64) (CartItem, error)
	GetCartItemByCartAndItem(ctx context.Context, cartID, itemID int64) (CartItem, error)
	ListCartItems(ctx context.Context, cartID int64) ([]CartItem, error)
	ListCartItemsForCarts(ctx context.Context, cartIDs []int64) ([]CartItem, error)
	UpdateCartItemQuantity(ctx context.Context, id int64, qty decimal.Decimal, actor int64) (CartItem, error)
	DeleteCartItem(ctx context.Context, id int64) error
	ClearCartItems(ctx context.Context, cartID int64) (int64, error)

	// Daily accounts.
	CreateDailyAccount(ctx context.Context, a DailyAccount) (DailyAccount, error)
	GetDailyAccount(ctx context.Context, id int64) (DailyAccount, error)
	GetDailyAccountByDate(ctx context.Context, date time.Time) (DailyAccount, error)
	ListDailyAccounts(ctx context.Context, limit int) ([]DailyAccount, error)
	ListDailyAccountsByRange(ctx context.Context, from, to time.Time) ([]DailyAccount, error)
	UpdateDailyAccountTotals(ctx context.Context, id int64, totals AccountTotals, actor int64) (DailyAccount, error)
	CloseDailyAccount(ctx context.Context, id int64, closedBy int64, at time.Time) (DailyAccount, error)
	OpenDailyAccount(ctx context.Context, id int64, actor int64) (DailyAccount, error)
	CreateDailyAccountItem(ctx context.Context, it DailyAccountItem) (DailyAccountItem, error)
	ListDailyAccountItems(ctx context.Context, accountID int64) ([]DailyAccountItem, error)
	DeleteDailyAccountItems(ctx context.Context, accountID int64) (int64, error)

	// Analytics over closed accounts.
	ItemSalesInRange(ctx context.Context, itemID int64, from, to time.Time) (ItemSalesStats, error)
	TopSellers(ctx context.Context, from, to time.Time, limit int) ([]TopSellerRow, error)
	SalesByCategory(ctx context.Context, from, to time.Time) ([]CategorySalesRow, error)

	// Menu.
	CreateMenuItem(ctx context.Context, m MenuItem) (MenuItem, error)
	GetMenuItem(ctx context.Context, id int64) (MenuItem, error)
	ListMenuItems(ctx context.Context, onlyActive bool) ([]MenuItem, error)
	UpdateMenuItem(ctx context.Context, id int64, patch MenuItemPatch, actor int64) (MenuItem, error)
	DeleteMenuItem(ctx context.Context, id int64) error

	// Time tracking.
	CreateTimeEntry(ctx context.Context, e TimeEntry) (TimeEntry, error)
	GetTimeEntry(ctx context.Context, id int64) (TimeEntry, error)
	ListTimeEntriesByEmployee(ctx context.Context, employeeID int64) ([]TimeEntry, error)
	ListTimeEntriesByRange(ctx context.Context, from, to time.Time) ([]TimeEntry, error)
	ReviewTimeEntry(ctx context.Context, id int64, status TimeEntryStatus, reviewer int64, reason *string) (TimeEntry, error)
}

// DateOnly truncates t to its calendar date at UTC midnight.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
