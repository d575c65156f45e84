package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/turulko-oleksandr/cinema-api/internal/models"
)

// PaymentRepository defines the interface for payment data access.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	Update(ctx context.Context, payment *models.Payment) error
	FindOpenSession(ctx context.Context, orderID string, now time.Time) (*models.Payment, error)
	LockBySessionID(ctx context.Context, sessionID string) (*models.Payment, error)
	LatestForOrder(ctx context.Context, orderID string) (*models.Payment, error)
	CreateItems(ctx context.Context, items []models.PaymentItem) error
	ListItems(ctx context.Context, paymentID string) ([]models.PaymentItem, error)
}

// WebhookEventRepository records processed gateway events.
type WebhookEventRepository interface {
	Record(ctx context.Context, event *models.WebhookEvent) (bool, error)
}

// GORMPaymentRepository is a GORM implementation of PaymentRepository.
type GORMPaymentRepository struct {
	db *gorm.DB
}

// NewGORMPaymentRepository creates a new instance of GORMPaymentRepository.
func NewGORMPaymentRepository(db *gorm.DB) *GORMPaymentRepository {
	return &GORMPaymentRepository{
		db: db,
	}
}

func (r *GORMPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(payment).Error; err != nil {
		return fmt.Errorf("failed to create payment: %w", translate(err))
	}
	return nil
}

// Update persists every column of the payment.
func (r *GORMPaymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(payment).Error; err != nil {
		return fmt.Errorf("failed to update payment %s: %w", payment.ID, translate(err))
	}
	return nil
}

// FindOpenSession returns the pending payment of the order whose session has
// not expired yet, or nil when there is none.
func (r *GORMPaymentRepository) FindOpenSession(ctx context.Context, orderID string, now time.Time) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status = ? AND expires_at > ?", orderID, models.PaymentStatusPending, now).
		Order("created_at DESC").
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find open session of order %s: %w", orderID, err)
	}
	return &payment, nil
}

// LockBySessionID selects the payment FOR UPDATE. Must run inside a transaction.
func (r *GORMPaymentRepository) LockBySessionID(ctx context.Context, sessionID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&payment, "session_id = ?", sessionID).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock payment for session %s: %w", sessionID, translate(err))
	}
	return &payment, nil
}

// LatestForOrder returns the most recently created payment of the order.
func (r *GORMPaymentRepository) LatestForOrder(ctx context.Context, orderID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		First(&payment).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get latest payment of order %s: %w", orderID, translate(err))
	}
	return &payment, nil
}

func (r *GORMPaymentRepository) CreateItems(ctx context.Context, items []models.PaymentItem) error {
	if len(items) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&items).Error; err != nil {
		return fmt.Errorf("failed to create payment items: %w", translate(err))
	}
	return nil
}

func (r *GORMPaymentRepository) ListItems(ctx context.Context, paymentID string) ([]models.PaymentItem, error) {
	var items []models.PaymentItem
	if err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list payment items: %w", err)
	}
	return items, nil
}

// GORMWebhookEventRepository is a GORM implementation of WebhookEventRepository.
type GORMWebhookEventRepository struct {
	db *gorm.DB
}

func NewGORMWebhookEventRepository(db *gorm.DB) *GORMWebhookEventRepository {
	return &GORMWebhookEventRepository{db: db}
}

// Record inserts the event and reports false when it was already recorded.
func (r *GORMWebhookEventRepository) Record(ctx context.Context, event *models.WebhookEvent) (bool, error) {
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now().UTC()
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event)
	if res.Error != nil {
		return false, fmt.Errorf("failed to record webhook event %s: %w", event.ID, res.Error)
	}
	return res.RowsAffected > 0, nil
}
