package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/turulko-oleksandr/cinema-api/internal/models"
)

// CartRepository defines the interface for cart data access.
type CartRepository interface {
	GetOrCreate(ctx context.Context, userID string) (*models.Cart, error)
	GetByUserID(ctx context.Context, userID string) (*models.Cart, error)
	LockByUserID(ctx context.Context, userID string) (*models.Cart, error)
	ListItems(ctx context.Context, cartID string) ([]models.CartItem, error)
	HasItem(ctx context.Context, cartID, movieID string) (bool, error)
	AddItem(ctx context.Context, item *models.CartItem) error
	RemoveItem(ctx context.Context, cartID, movieID string) (bool, error)
	Clear(ctx context.Context, cartID string) error
	DeleteItems(ctx context.Context, cartID string, itemIDs []string) error
}

// GORMCartRepository is a GORM implementation of CartRepository.
type GORMCartRepository struct {
	db *gorm.DB
}

// NewGORMCartRepository creates a new instance of GORMCartRepository.
func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{
		db: db,
	}
}

// GetOrCreate returns the user's cart, creating an empty one on first use.
func (r *GORMCartRepository) GetOrCreate(ctx context.Context, userID string) (*models.Cart, error) {
	cart := models.Cart{UserID: userID}
	// Concurrent first calls race on the unique user_id index; the loser re-reads.
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&cart).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", translate(err))
	}
	var stored models.Cart
	if err := r.db.WithContext(ctx).First(&stored, "user_id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("failed to get cart of user %s: %w", userID, translate(err))
	}
	return &stored, nil
}

// GetByUserID returns the cart with its items and their movies.
func (r *GORMCartRepository) GetByUserID(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("added_at ASC") }).
		Preload("Items.Movie").
		First(&cart, "user_id = ?", userID).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get cart of user %s: %w", userID, translate(err))
	}
	return &cart, nil
}

// LockByUserID selects the cart row FOR UPDATE. Must run inside a transaction.
func (r *GORMCartRepository) LockByUserID(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&cart, "user_id = ?", userID).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock cart of user %s: %w", userID, translate(err))
	}
	return &cart, nil
}

func (r *GORMCartRepository) ListItems(ctx context.Context, cartID string) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Preload("Movie").
		Where("cart_id = ?", cartID).
		Order("added_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	return items, nil
}

func (r *GORMCartRepository) HasItem(ctx context.Context, cartID, movieID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("cart_id = ? AND movie_id = ?", cartID, movieID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check cart item: %w", err)
	}
	return count > 0, nil
}

// AddItem inserts a cart item. ErrDuplicate means the movie is already in the cart.
func (r *GORMCartRepository) AddItem(ctx context.Context, item *models.CartItem) error {
	if err := r.db.WithContext(ctx).Omit("Movie").Create(item).Error; err != nil {
		err = translate(err)
		if errors.Is(err, ErrDuplicate) {
			return err
		}
		return fmt.Errorf("failed to add cart item: %w", err)
	}
	return nil
}

// RemoveItem deletes a movie from the cart and reports whether it was there.
func (r *GORMCartRepository) RemoveItem(ctx context.Context, cartID, movieID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("cart_id = ? AND movie_id = ?", cartID, movieID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to remove cart item: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *GORMCartRepository) Clear(ctx context.Context, cartID string) error {
	if err := r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// DeleteItems removes exactly the given items, leaving anything added since
// they were read in place.
func (r *GORMCartRepository) DeleteItems(ctx context.Context, cartID string, itemIDs []string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND id IN ?", cartID, itemIDs).
		Delete(&models.CartItem{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete cart items: %w", err)
	}
	return nil
}
