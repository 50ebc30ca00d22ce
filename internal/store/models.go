package store

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kasapos/backend-kasa/internal/common"
)

// CartStatus is the cart lifecycle tag. Draft is the only editable state;
// completed and deleted are terminal.
type CartStatus string

const (
	CartDraft     CartStatus = "draft"
	CartCompleted CartStatus = "completed"
	CartDeleted   CartStatus = "deleted"
)

// Terminal reports whether the status permits no further transitions.
func (s CartStatus) Terminal() bool {
	return s == CartCompleted || s == CartDeleted
}

// UserStatus is the account lifecycle tag.
type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserDisabled UserStatus = "disabled"
	UserDeleted  UserStatus = "deleted"
)

// TimeEntryStatus tracks the review state of an employee work entry.
type TimeEntryStatus string

const (
	TimeEntryPending  TimeEntryStatus = "pending"
	TimeEntryAccepted TimeEntryStatus = "accepted"
	TimeEntryRejected TimeEntryStatus = "rejected"
)

// User is an account row. Password hashes never leave the store layer
// except through GetUserByUsername for credential checks.
type User struct {
	ID             int64
	Email          string
	Username       string
	FullName       string
	HashedPassword string
	Role           common.Role
	Status         UserStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RefreshToken is an opaque server-side session token.
type RefreshToken struct {
	ID        int64
	UserID    int64
	Token     string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// Category groups catalog items.
type Category struct {
	ID          int64
	Name        string
	Description string
	CreatedBy   int64
	UpdatedBy   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Item is a catalog entry. DiscountRate and TaxRate are 0-100 percentages.
type Item struct {
	ID           int64
	CategoryID   int64
	Name         string
	Description  string
	SKU          string
	Barcode      string
	ImageURL     string
	UnitPrice    decimal.Decimal
	UnitType     string
	TaxRate      decimal.Decimal
	DiscountRate decimal.Decimal
	CreatedBy    int64
	UpdatedBy    int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StockEntry is the quantity-on-hand ledger row, one per item.
type StockEntry struct {
	ID        int64
	ItemID    int64
	Quantity  decimal.Decimal
	CreatedBy int64
	UpdatedBy int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StockGroupItem is one stocked item inside a category group.
type StockGroupItem struct {
	StockEntryID int64
	ItemID       int64
	ItemName     string
	SKU          string
	UnitType     string
	UnitPrice    decimal.Decimal
	Quantity     decimal.Decimal
}

// StockCategoryGroup is the per-category stock listing.
type StockCategoryGroup struct {
	CategoryID   int64
	CategoryName string
	Items        []StockGroupItem
}

// Cart is the mutable sale-in-progress container.
type Cart struct {
	ID         int64
	DeskNumber *string
	Status     CartStatus
	CreatedBy  int64
	UpdatedBy  int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CartItem is one item's quantity within a cart; unique per (cart, item).
type CartItem struct {
	ID        int64
	CartID    int64
	ItemID    int64
	Quantity  decimal.Decimal
	CreatedBy int64
	UpdatedBy int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DailyAccount is the immutable per-day ledger header. AccountDate is a
// calendar date at UTC midnight.
type DailyAccount struct {
	ID            int64
	AccountDate   time.Time
	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	TaxTotal      decimal.Decimal
	Total         decimal.Decimal
	CartsCount    int
	ItemsCount    int
	IsClosed      bool
	ClosedAt      *time.Time
	ClosedBy      *int64
	CreatedBy     int64
	UpdatedBy     int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DailyAccountItem is the settlement-time snapshot of one item's aggregated
// sales for a day. Item name, sku, and rates are copied, not referenced, so
// later catalog edits never alter a closed day.
type DailyAccountItem struct {
	ID           int64
	AccountID    int64
	ItemID       int64
	ItemName     string
	SKU          string
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	DiscountRate decimal.Decimal
	TaxRate      decimal.Decimal
	LineSubtotal decimal.Decimal
	LineDiscount decimal.Decimal
	LineTax      decimal.Decimal
	LineTotal    decimal.Decimal
	CreatedAt    time.Time
}

// MenuItem is a display entry on the public menu referencing a catalog item.
type MenuItem struct {
	ID        int64
	ItemID    int64
	Section   string
	Position  int
	IsActive  bool
	CreatedBy int64
	UpdatedBy int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TimeEntry is an employee work record awaiting manager review.
type TimeEntry struct {
	ID              int64
	EmployeeID      int64
	WorkDate        time.Time
	StartHour       time.Time
	EndHour         time.Time
	HoursWorked     decimal.Decimal
	Notes           string
	Status          TimeEntryStatus
	ReviewedBy      *int64
	ReviewedAt      *time.Time
	RejectionReason *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ItemSalesStats summarises one item's sales across closed accounts.
type ItemSalesStats struct {
	ItemID        int64
	TotalQuantity decimal.Decimal
	TotalRevenue  decimal.Decimal
	DaysSold      int
	AvgUnitPrice  decimal.Decimal
}

// TopSellerRow is one entry of the top-sellers ranking.
type TopSellerRow struct {
	ItemID        int64
	ItemName      string
	SKU           string
	TotalQuantity decimal.Decimal
	TotalRevenue  decimal.Decimal
	AvgUnitPrice  decimal.Decimal
}

// CategorySalesRow aggregates closed-account sales per category.
type CategorySalesRow struct {
	CategoryID    int64
	CategoryName  string
	TotalQuantity decimal.Decimal
	TotalRevenue  decimal.Decimal
	ItemsCount    int
}
