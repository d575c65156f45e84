package gateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidSignature is returned when a webhook payload fails verification.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrMalformedEvent is returned when a correctly signed payload cannot be decoded.
	ErrMalformedEvent = errors.New("malformed webhook event")
	// ErrUnsupportedEvent is returned for event types the service does not act on.
	ErrUnsupportedEvent = errors.New("unsupported webhook event")
)

// EventType is a checkout lifecycle event reported by the gateway.
type EventType string

const (
	EventCheckoutCompleted          EventType = "checkout.session.completed"
	EventCheckoutExpired            EventType = "checkout.session.expired"
	EventCheckoutAsyncPaymentFailed EventType = "checkout.session.async_payment_failed"
)

// LineItem is one purchasable entry on the hosted checkout page.
type LineItem struct {
	Name   string
	Amount decimal.Decimal
}

// CheckoutRequest describes the session to open for one order.
type CheckoutRequest struct {
	Reference     string
	OrderID       string
	UserID        string
	CustomerEmail string
	Currency      string
	Items         []LineItem
	SuccessURL    string
	CancelURL     string
	ExpiresAt     int64
}

// CheckoutSession is the gateway's answer to CreateSession.
type CheckoutSession struct {
	ID  string
	URL string
}

// Event is a verified webhook notification.
type Event struct {
	ID                string
	Type              EventType
	SessionID         string
	Reference         string
	PaymentIntentID   string
	ExternalPaymentID string
	CustomerEmail     string
}

// Gateway opens hosted checkout sessions and authenticates their webhooks.
type Gateway interface {
	CreateSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	ParseEvent(payload []byte, signature string) (*Event, error)
}
