package models

import (
	"time"

	"gorm.io/gorm"
)

// Cart is the per-user staging area for movies before an order is placed.
type Cart struct {
	ID     string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID string     `json:"user_id" gorm:"uniqueIndex;type:varchar(36);not null"`
	Items  []CartItem `json:"items" gorm:"constraint:OnDelete:CASCADE"`
}

func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	newID(&c.ID)
	return nil
}

// CartItem is one movie in a cart. A movie appears at most once per cart.
type CartItem struct {
	ID      string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CartID  string    `json:"cart_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_movie"`
	MovieID string    `json:"movie_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_movie"`
	Movie   *Movie    `json:"movie,omitempty"`
	AddedAt time.Time `json:"added_at" gorm:"not null"`
}

func (i *CartItem) BeforeCreate(tx *gorm.DB) error {
	newID(&i.ID)
	return nil
}
