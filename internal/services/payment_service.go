package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/turulko-oleksandr/cinema-api/internal/events"
	"github.com/turulko-oleksandr/cinema-api/internal/gateway"
	"github.com/turulko-oleksandr/cinema-api/internal/logging"
	"github.com/turulko-oleksandr/cinema-api/internal/metrics"
	"github.com/turulko-oleksandr/cinema-api/internal/models"
	"github.com/turulko-oleksandr/cinema-api/internal/notifications"
	"github.com/turulko-oleksandr/cinema-api/internal/repositories"
)

// CheckoutConfig parameterises the hosted checkout sessions.
type CheckoutConfig struct {
	Currency       string
	SessionTTL     time.Duration
	GatewayTimeout time.Duration
	SuccessURL     string
	CancelURL      func(orderID string) string
	OrderURL       func(orderID string) string
}

// PaymentStatusResult answers a payment status query for an order.
type PaymentStatusResult struct {
	HasPayment bool                 `json:"has_payment"`
	Status     models.PaymentStatus `json:"status,omitempty"`
	PaymentID  string               `json:"payment_id,omitempty"`
	ExpiresAt  *time.Time           `json:"expires_at,omitempty"`
	// Expired is set for a pending session past its expiry; a new checkout may be started.
	Expired bool `json:"expired"`
}

// PaymentService opens checkout sessions and reconciles gateway webhooks.
type PaymentService struct {
	repos      *repositories.Repositories
	gateway    gateway.Gateway
	dispatcher notifications.Dispatcher
	publisher  events.Publisher
	metrics    *metrics.Metrics
	cfg        CheckoutConfig
	now        func() time.Time
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	repos *repositories.Repositories,
	gw gateway.Gateway,
	dispatcher notifications.Dispatcher,
	publisher events.Publisher,
	m *metrics.Metrics,
	cfg CheckoutConfig,
) *PaymentService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if dispatcher == nil {
		dispatcher = notifications.LogDispatcher{}
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = time.Hour
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 10 * time.Second
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &PaymentService{
		repos:      repos,
		gateway:    gw,
		dispatcher: dispatcher,
		publisher:  publisher,
		metrics:    m,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// StartCheckout opens a hosted checkout session for a pending order.
//
// The order row stays locked while the gateway is called so two concurrent
// requests cannot both open a session. When the gateway fails twice the
// transaction rolls back and no payment row survives.
func (s *PaymentService) StartCheckout(ctx context.Context, userID, orderID string) (*models.Payment, error) {
	log := logging.FromContext(ctx).With("order_id", orderID, "user_id", userID)

	var payment *models.Payment
	err := s.repos.Transaction(ctx, func(tx *repositories.Repositories) error {
		order, err := tx.Orders.LockByID(ctx, orderID)
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("order %s: %w", orderID, ErrNotFound)
		}
		if err != nil {
			return err
		}
		if order.UserID != userID {
			return fmt.Errorf("order %s: %w", orderID, ErrNotFound)
		}
		if order.Status != models.OrderStatusPending {
			return fmt.Errorf("order %s is %s: %w", orderID, order.Status, ErrInvalidState)
		}

		now := s.now()
		open, err := tx.Payments.FindOpenSession(ctx, orderID, now)
		if err != nil {
			return err
		}
		if open != nil {
			return fmt.Errorf("order %s: %w", orderID, ErrAlreadyHasSession)
		}

		user, err := tx.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}

		payment = &models.Payment{
			UserID:    userID,
			OrderID:   orderID,
			Reference: uuid.New().String(),
			Status:    models.PaymentStatusPending,
			Amount:    order.TotalAmount,
			Currency:  s.cfg.Currency,
			ExpiresAt: now.Add(s.cfg.SessionTTL),
		}
		if err := tx.Payments.Create(ctx, payment); err != nil {
			return err
		}

		sess, err := s.createSession(ctx, s.checkoutRequest(order, user, payment))
		if err != nil {
			return err
		}

		payment.SessionID = &sess.ID
		payment.CheckoutURL = sess.URL
		return tx.Payments.Update(ctx, payment)
	})
	if err != nil {
		result := "rejected"
		if errors.Is(err, ErrGatewayUnavailable) {
			result = "gateway_error"
		}
		s.metrics.CheckoutResult(result)
		log.Warn("checkout not started", "error", err)
		return nil, err
	}

	s.metrics.CheckoutResult("created")
	log.Info("checkout session created", "payment_id", payment.ID, "session_id", *payment.SessionID)
	return payment, nil
}

func (s *PaymentService) checkoutRequest(order *models.Order, user *models.User, payment *models.Payment) gateway.CheckoutRequest {
	items := make([]gateway.LineItem, 0, len(order.Items))
	for _, item := range order.Items {
		name := item.MovieID
		if item.Movie != nil {
			name = item.Movie.Name
		}
		items = append(items, gateway.LineItem{Name: name, Amount: item.PriceAtOrder})
	}
	req := gateway.CheckoutRequest{
		Reference:     payment.Reference,
		OrderID:       order.ID,
		UserID:        order.UserID,
		CustomerEmail: user.Email,
		Currency:      payment.Currency,
		Items:         items,
		SuccessURL:    s.cfg.SuccessURL,
		ExpiresAt:     payment.ExpiresAt.Unix(),
	}
	if s.cfg.CancelURL != nil {
		req.CancelURL = s.cfg.CancelURL(order.ID)
	}
	return req
}

// createSession calls the gateway with a bounded timeout and retries once.
// The reference makes the retry idempotent on the gateway side.
func (s *PaymentService) createSession(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
		sess, err := s.gateway.CreateSession(callCtx, req)
		cancel()
		if err == nil {
			return sess, nil
		}
		lastErr = err
		logging.FromContext(ctx).Warn("gateway call failed", "attempt", attempt, "reference", req.Reference, "error", err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, lastErr)
}

type webhookOutcome struct {
	order    *models.Order
	email    string
	paid     bool
	handled  bool
	canceled *models.Payment
}

// HandleWebhook verifies a gateway notification and applies it exactly once.
// Replayed events, events for payments already settled and event types the
// service does not act on are acknowledged without side effects.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	log := logging.FromContext(ctx)

	ev, err := s.gateway.ParseEvent(payload, signature)
	if errors.Is(err, gateway.ErrUnsupportedEvent) {
		log.Debug("ignoring webhook event", "error", err)
		s.metrics.WebhookResult("unsupported", "ignored")
		return nil
	}
	if errors.Is(err, gateway.ErrMalformedEvent) {
		s.metrics.WebhookResult("unknown", "malformed")
		log.Warn("undecodable webhook", "error", err)
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if err != nil {
		s.metrics.WebhookResult("unknown", "invalid_signature")
		log.Warn("rejected webhook", "error", err)
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	log = log.With("event_id", ev.ID, "event_type", ev.Type, "session_id", ev.SessionID)

	var out webhookOutcome
	err = s.repos.Transaction(ctx, func(tx *repositories.Repositories) error {
		fresh, err := tx.Webhooks.Record(ctx, &models.WebhookEvent{
			ID:         ev.ID,
			Type:       string(ev.Type),
			SessionID:  ev.SessionID,
			ReceivedAt: s.now(),
		})
		if err != nil {
			return err
		}
		if !fresh {
			log.Info("duplicate webhook event ignored")
			return nil
		}

		payment, err := tx.Payments.LockBySessionID(ctx, ev.SessionID)
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("session %s: %w", ev.SessionID, ErrUnknownSession)
		}
		if err != nil {
			return err
		}
		if payment.Status.IsTerminal() {
			log.Info("payment already settled", "payment_id", payment.ID, "status", payment.Status)
			return nil
		}

		switch ev.Type {
		case gateway.EventCheckoutCompleted:
			out, err = s.completePayment(ctx, tx, payment, ev)
			return err
		case gateway.EventCheckoutExpired, gateway.EventCheckoutAsyncPaymentFailed:
			payment.Status = models.PaymentStatusCanceled
			if err := tx.Payments.Update(ctx, payment); err != nil {
				return err
			}
			out.handled = true
			out.canceled = payment
			log.Info("payment canceled, order stays pending", "payment_id", payment.ID, "order_id", payment.OrderID)
			return nil
		}
		return nil
	})
	if errors.Is(err, ErrUnknownSession) {
		s.metrics.WebhookResult(string(ev.Type), "unknown_session")
		log.Error("webhook for unknown session", "error", err)
		return err
	}
	if err != nil {
		s.metrics.WebhookResult(string(ev.Type), "error")
		return err
	}
	if !out.handled {
		s.metrics.WebhookResult(string(ev.Type), "ignored")
		return nil
	}
	s.metrics.WebhookResult(string(ev.Type), "processed")

	if out.paid {
		s.afterPaid(ctx, out.order, out.email)
	}
	if out.canceled != nil {
		s.publishPaymentCanceled(ctx, out.canceled, ev.Type)
	}
	return nil
}

func (s *PaymentService) publishPaymentCanceled(ctx context.Context, payment *models.Payment, reason gateway.EventType) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventTimeout)
	defer cancel()
	err := s.publisher.Publish(ctx, events.Event{
		Type: events.PaymentFailed,
		Key:  payment.OrderID,
		Payload: map[string]any{
			"payment_id": payment.ID,
			"order_id":   payment.OrderID,
			"user_id":    payment.UserID,
			"reason":     string(reason),
		},
	})
	if err != nil {
		logging.FromContext(ctx).Warn("failed to publish payment event", "payment_id", payment.ID, "error", err)
	}
}

// completePayment marks the payment successful, snapshots the charged prices
// and moves the order to paid. Runs inside the webhook transaction.
func (s *PaymentService) completePayment(ctx context.Context, tx *repositories.Repositories, payment *models.Payment, ev *gateway.Event) (webhookOutcome, error) {
	log := logging.FromContext(ctx)

	payment.Status = models.PaymentStatusSuccessful
	if ev.PaymentIntentID != "" {
		payment.PaymentIntentID = &ev.PaymentIntentID
	}
	if ev.ExternalPaymentID != "" {
		payment.ExternalPaymentID = &ev.ExternalPaymentID
	}
	if err := tx.Payments.Update(ctx, payment); err != nil {
		return webhookOutcome{}, err
	}

	order, err := tx.Orders.LockByID(ctx, payment.OrderID)
	if err != nil {
		return webhookOutcome{}, err
	}

	items := make([]models.PaymentItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, models.PaymentItem{
			PaymentID:      payment.ID,
			OrderItemID:    item.ID,
			PriceAtPayment: item.PriceAtOrder,
		})
	}
	if err := tx.Payments.CreateItems(ctx, items); err != nil {
		return webhookOutcome{}, err
	}

	moved, err := tx.Orders.UpdateStatus(ctx, order.ID, models.OrderStatusPending, models.OrderStatusPaid)
	if err != nil {
		return webhookOutcome{}, err
	}
	if !moved {
		// The money was taken for an order that is no longer pending; keep the
		// payment record and leave the order for manual review.
		log.Warn("paid order was not pending", "order_id", order.ID, "status", order.Status, "payment_id", payment.ID)
		return webhookOutcome{handled: true}, nil
	}
	order.Status = models.OrderStatusPaid

	email := ev.CustomerEmail
	if user, err := tx.Users.GetByID(ctx, order.UserID); err == nil {
		email = user.Email
	}

	log.Info("order paid", "order_id", order.ID, "payment_id", payment.ID)
	return webhookOutcome{order: order, email: email, paid: true, handled: true}, nil
}

func (s *PaymentService) afterPaid(ctx context.Context, order *models.Order, email string) {
	if email != "" {
		link := ""
		if s.cfg.OrderURL != nil {
			link = s.cfg.OrderURL(order.ID)
		}
		s.dispatcher.Enqueue(ctx, notifications.Task{
			Template:  notifications.TemplateOrderConfirmation,
			Recipient: email,
			Context: map[string]string{
				"order_id": order.ID,
				"total":    order.TotalAmount.StringFixed(2),
				"currency": s.cfg.Currency,
				"link":     link,
			},
		})
	}
	publishOrderEvent(ctx, s.publisher, events.OrderPaid, order)
}

// CheckStatus reports the status of the order's most recent payment.
func (s *PaymentService) CheckStatus(ctx context.Context, userID, orderID string) (PaymentStatusResult, error) {
	order, err := s.repos.Orders.GetByID(ctx, orderID)
	if errors.Is(err, repositories.ErrNotFound) || (err == nil && order.UserID != userID) {
		return PaymentStatusResult{}, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	if err != nil {
		return PaymentStatusResult{}, err
	}

	payment, err := s.repos.Payments.LatestForOrder(ctx, orderID)
	if errors.Is(err, repositories.ErrNotFound) {
		return PaymentStatusResult{HasPayment: false}, nil
	}
	if err != nil {
		return PaymentStatusResult{}, err
	}
	expires := payment.ExpiresAt
	return PaymentStatusResult{
		HasPayment: true,
		Status:     payment.Status,
		PaymentID:  payment.ID,
		ExpiresAt:  &expires,
		Expired:    payment.Status == models.PaymentStatusPending && !s.now().Before(expires),
	}, nil
}
