package repositories

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/turulko-oleksandr/cinema-api/internal/models"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", translate(err))
	}
	return nil
}

// GetByEmail retrieves a user by their email from the database.
func (r *GORMUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, fmt.Errorf("failed to get user by email %s: %w", email, translate(err))
	}
	return &user, nil
}

// GetByID retrieves a user by their ID from the database.
func (r *GORMUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get user by ID %s: %w", id, translate(err))
	}
	return &user, nil
}

// Update persists every field of an existing user.
func (r *GORMUserRepository) Update(ctx context.Context, user *models.User) error {
	res := r.db.WithContext(ctx).Save(user)
	if res.Error != nil {
		return fmt.Errorf("failed to update user: %w", translate(res.Error))
	}
	return nil
}

// GORMTokenRepository is a GORM implementation of TokenRepository.
type GORMTokenRepository struct {
	db *gorm.DB
}

func NewGORMTokenRepository(db *gorm.DB) *GORMTokenRepository {
	return &GORMTokenRepository{db: db}
}

// SaveActivationToken replaces any previous activation token of the user.
func (r *GORMTokenRepository) SaveActivationToken(ctx context.Context, token *models.ActivationToken) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", token.UserID).Delete(&models.ActivationToken{}).Error; err != nil {
			return fmt.Errorf("failed to delete activation token: %w", err)
		}
		if err := tx.Create(token).Error; err != nil {
			return fmt.Errorf("failed to create activation token: %w", translate(err))
		}
		return nil
	})
}

func (r *GORMTokenRepository) GetActivationToken(ctx context.Context, userID string) (*models.ActivationToken, error) {
	var token models.ActivationToken
	if err := r.db.WithContext(ctx).First(&token, "user_id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("failed to get activation token: %w", translate(err))
	}
	return &token, nil
}

func (r *GORMTokenRepository) DeleteActivationToken(ctx context.Context, userID string) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.ActivationToken{}).Error; err != nil {
		return fmt.Errorf("failed to delete activation token: %w", err)
	}
	return nil
}

// SavePasswordResetToken replaces any previous reset token of the user.
func (r *GORMTokenRepository) SavePasswordResetToken(ctx context.Context, token *models.PasswordResetToken) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", token.UserID).Delete(&models.PasswordResetToken{}).Error; err != nil {
			return fmt.Errorf("failed to delete password reset token: %w", err)
		}
		if err := tx.Create(token).Error; err != nil {
			return fmt.Errorf("failed to create password reset token: %w", translate(err))
		}
		return nil
	})
}

func (r *GORMTokenRepository) GetPasswordResetToken(ctx context.Context, userID string) (*models.PasswordResetToken, error) {
	var token models.PasswordResetToken
	if err := r.db.WithContext(ctx).First(&token, "user_id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("failed to get password reset token: %w", translate(err))
	}
	return &token, nil
}

func (r *GORMTokenRepository) DeletePasswordResetToken(ctx context.Context, userID string) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.PasswordResetToken{}).Error; err != nil {
		return fmt.Errorf("failed to delete password reset token: %w", err)
	}
	return nil
}

// DeleteExpired removes every token whose expiry has passed.
func (r *GORMTokenRepository) DeleteExpired(ctx context.Context) (int64, int64, error) {
	now := time.Now().UTC()
	act := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.ActivationToken{})
	if act.Error != nil {
		return 0, 0, fmt.Errorf("failed to delete expired activation tokens: %w", act.Error)
	}
	reset := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.PasswordResetToken{})
	if reset.Error != nil {
		return act.RowsAffected, 0, fmt.Errorf("failed to delete expired password reset tokens: %w", reset.Error)
	}
	return act.RowsAffected, reset.RowsAffected, nil
}

// GORMProfileRepository is a GORM implementation of ProfileRepository.
type GORMProfileRepository struct {
	db *gorm.DB
}

func NewGORMProfileRepository(db *gorm.DB) *GORMProfileRepository {
	return &GORMProfileRepository{db: db}
}

func (r *GORMProfileRepository) GetByUserID(ctx context.Context, userID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("failed to get profile of user %s: %w", userID, translate(err))
	}
	return &profile, nil
}

// Save inserts the profile or updates it when it already has an ID.
func (r *GORMProfileRepository) Save(ctx context.Context, profile *models.UserProfile) error {
	if err := r.db.WithContext(ctx).Save(profile).Error; err != nil {
		return fmt.Errorf("failed to save profile: %w", translate(err))
	}
	return nil
}
