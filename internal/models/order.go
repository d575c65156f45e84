package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusPaid     OrderStatus = "paid"
	OrderStatusCanceled OrderStatus = "canceled"
)

// Order is an immutable snapshot of a cart at purchase time.
// TotalAmount always equals the sum of its items' PriceAtOrder.
type Order struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID      string          `json:"user_id" gorm:"index;type:varchar(36);not null"`
	Status      OrderStatus     `json:"status" gorm:"index;type:varchar(20);not null;default:pending"`
	TotalAmount decimal.Decimal `json:"total_amount" gorm:"type:numeric(10,2);not null"`
	Items       []OrderItem     `json:"items" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	newID(&o.ID)
	return nil
}

// OrderItem freezes the price a movie had when the order was placed.
type OrderItem struct {
	ID           string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID      string          `json:"order_id" gorm:"index;type:varchar(36);not null"`
	MovieID      string          `json:"movie_id" gorm:"index;type:varchar(36);not null"`
	Movie        *Movie          `json:"movie,omitempty"`
	PriceAtOrder decimal.Decimal `json:"price_at_order" gorm:"type:numeric(10,2);not null"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	newID(&i.ID)
	return nil
}
