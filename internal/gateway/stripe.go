package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeGateway implements Gateway on top of Stripe Checkout.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

// NewStripeGateway creates a gateway authenticated with the given secret key.
// backends may be nil to talk to the live Stripe API.
func NewStripeGateway(secretKey, webhookSecret string, backends *stripe.Backends) *StripeGateway {
	return &StripeGateway{
		api:           client.New(secretKey, backends),
		webhookSecret: webhookSecret,
	}
}

// CreateSession opens a one-off payment session with one line item per movie.
// The checkout reference doubles as idempotency key so a retried call
// returns the session created by the first attempt.
func (g *StripeGateway) CreateSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	for _, item := range req.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(req.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
				UnitAmount: stripe.Int64(toMinorUnits(item.Amount)),
			},
			Quantity: stripe.Int64(1),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:         lineItems,
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.Reference),
		ExpiresAt:         stripe.Int64(req.ExpiresAt),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.Reference)
	params.AddMetadata("order_id", req.OrderID)
	params.AddMetadata("user_id", req.UserID)
	params.AddMetadata("reference", req.Reference)

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create stripe checkout session: %w", err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// VerifySignature checks the Stripe-Signature header against the payload.
func (g *StripeGateway) VerifySignature(payload []byte, signature string) error {
	_, err := g.constructEvent(payload, signature)
	return err
}

// ParseEvent verifies the payload and extracts the checkout session it refers to.
// Events other than checkout completion, expiry and async failure yield ErrUnsupportedEvent.
func (g *StripeGateway) ParseEvent(payload []byte, signature string) (*Event, error) {
	ev, err := g.constructEvent(payload, signature)
	if err != nil {
		return nil, err
	}

	eventType := EventType(ev.Type)
	switch eventType {
	case EventCheckoutCompleted, EventCheckoutExpired, EventCheckoutAsyncPaymentFailed:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEvent, ev.Type)
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("%w: checkout session of event %s: %v", ErrMalformedEvent, ev.ID, err)
	}
	if ev.ID == "" || sess.ID == "" {
		return nil, fmt.Errorf("%w: event %q carries no checkout session id", ErrMalformedEvent, ev.ID)
	}

	out := &Event{
		ID:        ev.ID,
		Type:      eventType,
		SessionID: sess.ID,
		Reference: sess.ClientReferenceID,
	}
	if sess.CustomerDetails != nil {
		out.CustomerEmail = sess.CustomerDetails.Email
	}
	if sess.PaymentIntent != nil {
		out.PaymentIntentID = sess.PaymentIntent.ID
		out.ExternalPaymentID = sess.PaymentIntent.ID
		if sess.PaymentIntent.LatestCharge != nil && sess.PaymentIntent.LatestCharge.ID != "" {
			out.ExternalPaymentID = sess.PaymentIntent.LatestCharge.ID
		}
	}
	return out, nil
}

func (g *StripeGateway) constructEvent(payload []byte, signature string) (stripe.Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	switch {
	case err == nil:
		return ev, nil
	case errors.Is(err, webhook.ErrNotSigned), errors.Is(err, webhook.ErrInvalidHeader),
		errors.Is(err, webhook.ErrNoValidSignature), errors.Is(err, webhook.ErrTooOld):
		slog.Warn("stripe webhook rejected", "error", err)
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	default:
		// The signature matched; the body itself is not a valid event.
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
}
