package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

type PaymentMethod string

const (
	PaymentPix       PaymentMethod = "pix"
	PaymentCash      PaymentMethod = "cash"
	PaymentCredit    PaymentMethod = "credit"
	PaymentDebitCard PaymentMethod = "debit_card"
	PaymentVoucher   PaymentMethod = "voucher"
)

type Order struct {
	ID            int64           `json:"id"`
	CustomerID    *int64          `json:"customer_id,omitempty"`
	CustomerName  string          `json:"customer_name,omitempty"`
	Items         []OrderItem     `json:"items"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	PaymentRef    string          `json:"payment_ref,omitempty"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// OrderItem is a cart line frozen at checkout; names and prices are copied so
// later menu edits do not rewrite history.
type OrderItem struct {
	ID             int64           `json:"id"`
	DrinkID        int64           `json:"drink_id"`
	DrinkName      string          `json:"name"`
	Glyph          string          `json:"image"`
	Category       string          `json:"category"`
	Quantity       int             `json:"quantity"`
	Customizations []Customization `json:"customizations"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	TotalPrice     decimal.Decimal `json:"price"`
	Prepared       bool            `json:"prepared"`
}

// KitchenSummary is a per-day snapshot for the kitchen dashboard.
type KitchenSummary struct {
	Date      string          `json:"date"`
	Pending   int             `json:"pending"`
	Preparing int             `json:"preparing"`
	Ready     int             `json:"ready"`
	Delivered int             `json:"delivered"`
	Cancelled int             `json:"cancelled"`
	Revenue   decimal.Decimal `json:"revenue"`
}
