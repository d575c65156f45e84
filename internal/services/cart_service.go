package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/turulko-oleksandr/cinema-api/internal/logging"
	"github.com/turulko-oleksandr/cinema-api/internal/models"
	"github.com/turulko-oleksandr/cinema-api/internal/repositories"
)

// CartTotal summarises a cart at current catalog prices.
type CartTotal struct {
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// CartService manages the per-user cart.
type CartService struct {
	repos *repositories.Repositories
}

// NewCartService creates a new CartService.
func NewCartService(repos *repositories.Repositories) *CartService {
	return &CartService{
		repos: repos,
	}
}

// GetCart returns the user's cart with movies loaded, creating it if needed.
func (s *CartService) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	if _, err := s.repos.Carts.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}
	return s.repos.Carts.GetByUserID(ctx, userID)
}

// AddItem puts a movie into the user's cart.
func (s *CartService) AddItem(ctx context.Context, userID, movieID string) (*models.CartItem, error) {
	exists, err := s.repos.Movies.Exists(ctx, movieID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("movie %s: %w", movieID, ErrNotFound)
	}

	owned, err := s.repos.Orders.PaidMovieIDs(ctx, userID, []string{movieID})
	if err != nil {
		return nil, err
	}
	if len(owned) > 0 {
		return nil, fmt.Errorf("movie %s: %w", movieID, ErrAlreadyPurchased)
	}

	if _, err := s.repos.Carts.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}

	var item *models.CartItem
	err = s.repos.Transaction(ctx, func(tx *repositories.Repositories) error {
		// Waits for a checkout of this cart to finish so the item cannot
		// slip in between its snapshot and its cleanup.
		cart, err := tx.Carts.LockByUserID(ctx, userID)
		if err != nil {
			return err
		}
		inCart, err := tx.Carts.HasItem(ctx, cart.ID, movieID)
		if err != nil {
			return err
		}
		if inCart {
			return fmt.Errorf("movie %s: %w", movieID, ErrDuplicateItem)
		}

		item = &models.CartItem{
			CartID:  cart.ID,
			MovieID: movieID,
			AddedAt: time.Now().UTC(),
		}
		if err := tx.Carts.AddItem(ctx, item); err != nil {
			// A concurrent add of the same movie lost the race on the unique index.
			if errors.Is(err, repositories.ErrDuplicate) {
				return fmt.Errorf("movie %s: %w", movieID, ErrDuplicateItem)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("movie added to cart", "user_id", userID, "movie_id", movieID)
	return item, nil
}

// RemoveItem takes a movie out of the user's cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, movieID string) error {
	cart, err := s.repos.Carts.GetByUserID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("movie %s is not in the cart: %w", movieID, ErrNotFound)
	}
	if err != nil {
		return err
	}
	removed, err := s.repos.Carts.RemoveItem(ctx, cart.ID, movieID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("movie %s is not in the cart: %w", movieID, ErrNotFound)
	}
	return nil
}

// Clear empties the user's cart. Clearing an empty or missing cart succeeds.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	cart, err := s.repos.Carts.GetByUserID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.repos.Carts.Clear(ctx, cart.ID)
}

// GetTotal sums the cart at current catalog prices.
func (s *CartService) GetTotal(ctx context.Context, userID string) (CartTotal, error) {
	total := CartTotal{TotalPrice: decimal.Zero}
	cart, err := s.repos.Carts.GetByUserID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return total, nil
	}
	if err != nil {
		return total, err
	}
	for _, item := range cart.Items {
		price, err := s.repos.Movies.GetPrice(ctx, item.MovieID)
		if err != nil {
			return CartTotal{}, err
		}
		total.TotalItems++
		total.TotalPrice = total.TotalPrice.Add(price)
	}
	return total, nil
}
