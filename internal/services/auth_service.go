package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"

	"github.com/turulko-oleksandr/cinema-api/internal/logging"
	"github.com/turulko-oleksandr/cinema-api/internal/models"
	"github.com/turulko-oleksandr/cinema-api/internal/notifications"
	"github.com/turulko-oleksandr/cinema-api/internal/repositories"
)

const (
	activationTokenTTL    = 24 * time.Hour
	passwordResetTokenTTL = time.Hour
)

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo    repositories.UserRepository
	tokenRepo   repositories.TokenRepository
	dispatcher  notifications.Dispatcher
	jwtSecret   []byte
	tokenTTL    time.Duration
	frontendURL string
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	userRepo repositories.UserRepository,
	tokenRepo repositories.TokenRepository,
	dispatcher notifications.Dispatcher,
	jwtSecret string,
	tokenTTL time.Duration,
	frontendURL string,
) *AuthService {
	if dispatcher == nil {
		dispatcher = notifications.LogDispatcher{}
	}
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		userRepo:    userRepo,
		tokenRepo:   tokenRepo,
		dispatcher:  dispatcher,
		jwtSecret:   []byte(jwtSecret),
		tokenTTL:    tokenTTL,
		frontendURL: strings.TrimSuffix(frontendURL, "/"),
	}
}

// Register creates an inactive account and emails an activation link.
func (s *AuthService) Register(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("email '%s': %w", email, ErrUserExists)
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hashedPassword),
		IsActive: false,
		Group:    models.GroupUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, fmt.Errorf("email '%s': %w", email, ErrUserExists)
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	if err := s.sendActivation(ctx, user); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("user registered", "user_id", user.ID)
	return user, nil
}

// ResendActivation issues a fresh activation token for an inactive account.
func (s *AuthService) ResendActivation(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("user: %w", ErrNotFound)
	}
	if err != nil {
		return err
	}
	if user.IsActive {
		return fmt.Errorf("user is already active: %w", ErrInvalidState)
	}
	return s.sendActivation(ctx, user)
}

func (s *AuthService) sendActivation(ctx context.Context, user *models.User) error {
	token, err := newToken()
	if err != nil {
		return err
	}
	err = s.tokenRepo.SaveActivationToken(ctx, &models.ActivationToken{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(activationTokenTTL),
	})
	if err != nil {
		return err
	}
	s.dispatcher.Enqueue(ctx, notifications.Task{
		Template:  notifications.TemplateActivation,
		Recipient: user.Email,
		Context:   map[string]string{"email": user.Email, "link": s.link("/activate", user.Email, token)},
	})
	return nil
}

// Activate enables the account when the token matches and has not expired.
func (s *AuthService) Activate(ctx context.Context, email, token string) error {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return err
	}
	if user.IsActive {
		return nil
	}

	stored, err := s.tokenRepo.GetActivationToken(ctx, user.ID)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return err
	}
	if !tokenValid(stored.Token, token, stored.ExpiresAt) {
		return ErrInvalidToken
	}

	user.IsActive = true
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}
	return s.tokenRepo.DeleteActivationToken(ctx, user.ID)
}

// Login authenticates an active user and returns a signed JWT.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		// Do not reveal whether the email exists.
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", ErrInactiveUser
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"group":   string(user.Group),
		"exp":     time.Now().Add(s.tokenTTL).Unix(),
		"iat":     time.Now().Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// RequestPasswordReset emails a reset link to an active account. Unknown or
// inactive emails are accepted silently.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !user.IsActive {
		return nil
	}

	token, err := newToken()
	if err != nil {
		return err
	}
	err = s.tokenRepo.SavePasswordResetToken(ctx, &models.PasswordResetToken{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(passwordResetTokenTTL),
	})
	if err != nil {
		return err
	}
	s.dispatcher.Enqueue(ctx, notifications.Task{
		Template:  notifications.TemplatePasswordReset,
		Recipient: user.Email,
		Context:   map[string]string{"email": user.Email, "link": s.link("/reset-password", user.Email, token)},
	})
	return nil
}

// ResetPassword sets a new password when the reset token is valid.
func (s *AuthService) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return err
	}

	stored, err := s.tokenRepo.GetPasswordResetToken(ctx, user.ID)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return err
	}
	if !tokenValid(stored.Token, token, stored.ExpiresAt) {
		return ErrInvalidToken
	}

	if err := s.setPassword(ctx, user, newPassword); err != nil {
		return err
	}
	return s.tokenRepo.DeletePasswordResetToken(ctx, user.ID)
}

// ChangePassword replaces the password of a signed-in user.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}
	return s.setPassword(ctx, user, newPassword)
}

func (s *AuthService) setPassword(ctx context.Context, user *models.User, password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashed)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}
	s.dispatcher.Enqueue(ctx, notifications.Task{
		Template:  notifications.TemplatePasswordChanged,
		Recipient: user.Email,
		Context:   map[string]string{"email": user.Email},
	})
	return nil
}

// CleanupExpiredTokens deletes activation and reset tokens past their expiry.
func (s *AuthService) CleanupExpiredTokens(ctx context.Context) (int64, int64, error) {
	activation, reset, err := s.tokenRepo.DeleteExpired(ctx)
	if err != nil {
		return activation, reset, err
	}
	logging.FromContext(ctx).Info("expired tokens removed", "activation", activation, "password_reset", reset)
	return activation, reset, nil
}

// GetUser returns the account of the given id.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return user, err
}

func (s *AuthService) link(path, email, token string) string {
	q := url.Values{}
	q.Set("email", email)
	q.Set("token", token)
	return s.frontendURL + path + "?" + q.Encode()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func tokenValid(stored, given string, expiresAt time.Time) bool {
	if subtle.ConstantTimeCompare([]byte(stored), []byte(given)) != 1 {
		return false
	}
	return time.Now().UTC().Before(expiresAt)
}
