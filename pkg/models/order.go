package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending = "PENDING"
	OrderStatusPaid    = "PAID"

	PaymentStatusSuccess = "SUCCESS"

	DefaultPaymentProvider = "VNPAY"
)

type Order struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64           `gorm:"not null;index" json:"userId"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"totalAmount"`
	Status      string          `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	Items       []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Payments    []Payment       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"payments,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem is immutable once inserted.
type OrderItem struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64           `gorm:"not null;index" json:"orderId"`
	ProductID int64           `gorm:"not null;index" json:"productId"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// Subtotal returns quantity * price.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Payment struct {
	ID       int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID  int64           `gorm:"not null;index" json:"orderId"`
	Provider string          `gorm:"type:varchar(50);not null" json:"provider"`
	Amount   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status   string          `gorm:"type:varchar(20);not null" json:"status"`
	PaidAt   time.Time       `json:"paidAt"`
}

func (Payment) TableName() string {
	return "payments"
}

// NewOrderItem is one requested line of a new order. Nil fields are
// treated as missing.
type NewOrderItem struct {
	ProductID *int64           `json:"productId"`
	Quantity  *int             `json:"quantity"`
	Price     *decimal.Decimal `json:"price"`
}

// Valid reports whether productId, quantity and price are all present and non-zero.
func (i NewOrderItem) Valid() bool {
	return i.ProductID != nil && *i.ProductID != 0 &&
		i.Quantity != nil && *i.Quantity != 0 &&
		i.Price != nil && !i.Price.IsZero()
}
