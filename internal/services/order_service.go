package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/turulko-oleksandr/cinema-api/internal/events"
	"github.com/turulko-oleksandr/cinema-api/internal/logging"
	"github.com/turulko-oleksandr/cinema-api/internal/metrics"
	"github.com/turulko-oleksandr/cinema-api/internal/models"
	"github.com/turulko-oleksandr/cinema-api/internal/repositories"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	eventTimeout    = 5 * time.Second
)

// OrderFilter selects a page of orders.
type OrderFilter struct {
	Status models.OrderStatus
	Offset int
	Limit  int
}

// OrderService turns carts into orders and manages their lifecycle.
type OrderService struct {
	repos     *repositories.Repositories
	publisher events.Publisher
	metrics   *metrics.Metrics
}

// NewOrderService creates a new OrderService.
func NewOrderService(repos *repositories.Repositories, publisher events.Publisher, m *metrics.Metrics) *OrderService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &OrderService{
		repos:     repos,
		publisher: publisher,
		metrics:   m,
	}
}

// CreateOrder converts the user's cart into a pending order in one transaction.
// Prices are frozen at their current catalog value and the cart is emptied.
// Nothing is persisted if any cart movie was bought in the meantime.
func (s *OrderService) CreateOrder(ctx context.Context, userID string) (*models.Order, error) {
	var order *models.Order
	err := s.repos.Transaction(ctx, func(tx *repositories.Repositories) error {
		// Serialises concurrent checkouts of the same cart.
		cart, err := tx.Carts.LockByUserID(ctx, userID)
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrEmptyCart
		}
		if err != nil {
			return err
		}

		items, err := tx.Carts.ListItems(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		movieIDs := make([]string, len(items))
		for i, item := range items {
			movieIDs[i] = item.MovieID
		}
		owned, err := tx.Orders.PaidMovieIDs(ctx, userID, movieIDs)
		if err != nil {
			return err
		}
		if len(owned) > 0 {
			return fmt.Errorf("movies %v: %w", owned, ErrConflictingPurchase)
		}

		order = &models.Order{
			UserID:      userID,
			Status:      models.OrderStatusPending,
			TotalAmount: decimal.Zero,
		}
		orderItems := make([]models.OrderItem, 0, len(items))
		ordered := make([]string, 0, len(items))
		for _, item := range items {
			ordered = append(ordered, item.ID)
			price, err := tx.Movies.GetPrice(ctx, item.MovieID)
			if err != nil {
				return err
			}
			orderItems = append(orderItems, models.OrderItem{MovieID: item.MovieID, PriceAtOrder: price})
			order.TotalAmount = order.TotalAmount.Add(price)
		}

		if err := tx.Orders.Create(ctx, order); err != nil {
			return err
		}
		for i := range orderItems {
			orderItems[i].OrderID = order.ID
		}
		if err := tx.Orders.CreateItems(ctx, orderItems); err != nil {
			return err
		}
		// Only the snapshotted items leave the cart.
		if err := tx.Carts.DeleteItems(ctx, cart.ID, ordered); err != nil {
			return err
		}

		order, err = tx.Orders.GetByID(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrderCreated()
	logging.FromContext(ctx).Info("order created",
		"order_id", order.ID, "user_id", userID, "items", len(order.Items), "total", order.TotalAmount.StringFixed(2))
	s.publish(ctx, events.OrderCreated, order)
	return order, nil
}

// GetOrder returns an order owned by the user.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	order, err := s.repos.Orders.GetByID(ctx, orderID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	return order, nil
}

// ListOrders returns the user's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID string, filter OrderFilter) ([]models.Order, int64, error) {
	return s.repos.Orders.List(ctx, toRepoFilter(userID, filter))
}

// ListAllOrders returns every user's orders. Reserved for administrators.
func (s *OrderService) ListAllOrders(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error) {
	return s.repos.Orders.List(ctx, toRepoFilter("", filter))
}

// CancelOrder cancels a pending order of the user.
func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	var order *models.Order
	err := s.repos.Transaction(ctx, func(tx *repositories.Repositories) error {
		locked, err := tx.Orders.LockByID(ctx, orderID)
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("order %s: %w", orderID, ErrNotFound)
		}
		if err != nil {
			return err
		}
		if locked.UserID != userID {
			return fmt.Errorf("order %s: %w", orderID, ErrNotFound)
		}
		if locked.Status != models.OrderStatusPending {
			return fmt.Errorf("order %s is %s: %w", orderID, locked.Status, ErrInvalidState)
		}
		if _, err := tx.Orders.UpdateStatus(ctx, orderID, models.OrderStatusPending, models.OrderStatusCanceled); err != nil {
			return err
		}
		order, err = tx.Orders.GetByID(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("order canceled", "order_id", orderID, "user_id", userID)
	s.publish(ctx, events.OrderCanceled, order)
	return order, nil
}

func (s *OrderService) publish(ctx context.Context, eventType string, order *models.Order) {
	publishOrderEvent(ctx, s.publisher, eventType, order)
}

// publishOrderEvent emits an order event after commit. Failures are logged only.
func publishOrderEvent(ctx context.Context, publisher events.Publisher, eventType string, order *models.Order) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventTimeout)
	defer cancel()

	movieIDs := make([]string, len(order.Items))
	for i, item := range order.Items {
		movieIDs[i] = item.MovieID
	}
	err := publisher.Publish(ctx, events.Event{
		Type: eventType,
		Key:  order.ID,
		Payload: map[string]any{
			"order_id":     order.ID,
			"user_id":      order.UserID,
			"status":       order.Status,
			"total_amount": order.TotalAmount.StringFixed(2),
			"movie_ids":    movieIDs,
		},
	})
	if err != nil {
		logging.FromContext(ctx).Warn("failed to publish order event", "type", eventType, "order_id", order.ID, "error", err)
	}
}

func toRepoFilter(userID string, f OrderFilter) repositories.OrderFilter {
	offset, limit := clampPage(f.Offset, f.Limit)
	return repositories.OrderFilter{UserID: userID, Status: f.Status, Offset: offset, Limit: limit}
}
