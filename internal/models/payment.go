package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusSuccessful PaymentStatus = "successful"
	PaymentStatusCanceled   PaymentStatus = "canceled"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// IsTerminal reports whether no further webhook may change the status.
func (s PaymentStatus) IsTerminal() bool {
	return s != PaymentStatusPending
}

// Payment tracks one checkout session opened for an order.
type Payment struct {
	ID                string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID            string          `json:"user_id" gorm:"index;type:varchar(36);not null"`
	OrderID           string          `json:"order_id" gorm:"index;type:varchar(36);not null"`
	Reference         string          `json:"reference" gorm:"uniqueIndex;type:varchar(36);not null"`
	SessionID         *string         `json:"session_id,omitempty" gorm:"uniqueIndex;type:varchar(255)"`
	PaymentIntentID   *string         `json:"payment_intent_id,omitempty" gorm:"uniqueIndex;type:varchar(255)"`
	ExternalPaymentID *string         `json:"external_payment_id,omitempty" gorm:"uniqueIndex;type:varchar(255)"`
	Status            PaymentStatus   `json:"status" gorm:"index;type:varchar(20);not null;default:pending"`
	Amount            decimal.Decimal `json:"amount" gorm:"type:numeric(10,2);not null"`
	Currency          string          `json:"currency" gorm:"type:varchar(3);not null"`
	CheckoutURL       string          `json:"checkout_url,omitempty" gorm:"type:text"`
	ExpiresAt         time.Time       `json:"expires_at" gorm:"not null"`
	Items             []PaymentItem   `json:"items,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	newID(&p.ID)
	return nil
}

// PaymentItem records what was charged for each order item.
type PaymentItem struct {
	ID             string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	PaymentID      string          `json:"payment_id" gorm:"index;type:varchar(36);not null"`
	OrderItemID    string          `json:"order_item_id" gorm:"index;type:varchar(36);not null"`
	PriceAtPayment decimal.Decimal `json:"price_at_payment" gorm:"type:numeric(10,2);not null"`
}

func (i *PaymentItem) BeforeCreate(tx *gorm.DB) error {
	newID(&i.ID)
	return nil
}

// WebhookEvent is a processed gateway event, keyed by the gateway's event id.
type WebhookEvent struct {
	ID         string    `gorm:"primaryKey;type:varchar(255)"`
	Type       string    `gorm:"type:varchar(100);not null"`
	SessionID  string    `gorm:"index;type:varchar(255)"`
	ReceivedAt time.Time `gorm:"not null"`
}
