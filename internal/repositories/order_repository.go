package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/turulko-oleksandr/cinema-api/internal/models"
)

// OrderFilter narrows an order listing. An empty UserID lists every user's orders.
type OrderFilter struct {
	UserID string
	Status models.OrderStatus
	Offset int
	Limit  int
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	LockByID(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error)
	UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) (bool, error)
	PaidMovieIDs(ctx context.Context, userID string, movieIDs []string) ([]string, error)
}

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

// Create inserts the order row only; items are written by CreateItems.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", translate(err))
	}
	return nil
}

func (r *GORMOrderRepository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&items).Error; err != nil {
		return fmt.Errorf("failed to create order items: %w", translate(err))
	}
	return nil
}

// GetByID retrieves an order with its items and their movies.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").Preload("Items.Movie").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, translate(err))
	}
	return &order, nil
}

// LockByID selects the order row FOR UPDATE and loads its items.
// Must run inside a transaction.
func (r *GORMOrderRepository) LockByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock order %s: %w", id, translate(err))
	}
	err = r.db.WithContext(ctx).
		Preload("Movie").
		Where("order_id = ?", id).
		Order("id ASC").
		Find(&order.Items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load items of order %s: %w", id, err)
	}
	return &order, nil
}

// List returns one page of orders, newest first, and the total number of matches.
func (r *GORMOrderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []models.Order
	err := q.Preload("Items").Preload("Items.Movie").
		Order("created_at DESC").
		Offset(filter.Offset).Limit(filter.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

// UpdateStatus moves an order from one status to another and reports
// whether the order was in the expected status.
func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, fmt.Errorf("failed to update status of order %s: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// PaidMovieIDs returns the subset of movieIDs the user already owns through a paid order.
func (r *GORMOrderRepository) PaidMovieIDs(ctx context.Context, userID string, movieIDs []string) ([]string, error) {
	if len(movieIDs) == 0 {
		return nil, nil
	}
	var owned []string
	err := r.db.WithContext(ctx).Model(&models.OrderItem{}).
		Distinct("order_items.movie_id").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ? AND orders.status = ? AND order_items.movie_id IN ?", userID, models.OrderStatusPaid, movieIDs).
		Pluck("order_items.movie_id", &owned).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check purchased movies: %w", err)
	}
	return owned, nil
}
