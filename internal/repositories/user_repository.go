package repositories

import (
	"context"
	"github.com/turulko-oleksandr/cinema-api/internal/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

// TokenRepository stores one-time activation and password reset tokens.
type TokenRepository interface {
	SaveActivationToken(ctx context.Context, token *models.ActivationToken) error
	GetActivationToken(ctx context.Context, userID string) (*models.ActivationToken, error)
	DeleteActivationToken(ctx context.Context, userID string) error
	SavePasswordResetToken(ctx context.Context, token *models.PasswordResetToken) error
	GetPasswordResetToken(ctx context.Context, userID string) (*models.PasswordResetToken, error)
	DeletePasswordResetToken(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) (activation int64, reset int64, err error)
}

// ProfileRepository defines the interface for user profile data access.
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.UserProfile, error)
	Save(ctx context.Context, profile *models.UserProfile) error
}
