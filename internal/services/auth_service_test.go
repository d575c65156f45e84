package services_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/turulko-oleksandr/cinema-api/internal/models"
	"github.com/turulko-oleksandr/cinema-api/internal/notifications"
	"github.com/turulko-oleksandr/cinema-api/internal/repositories"
	"github.com/turulko-oleksandr/cinema-api/internal/services"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockTokenRepository is a mock implementation of repositories.TokenRepository
type MockTokenRepository struct {
	mock.Mock
}

func (m *MockTokenRepository) SaveActivationToken(ctx context.Context, token *models.ActivationToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockTokenRepository) GetActivationToken(ctx context.Context, userID string) (*models.ActivationToken, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ActivationToken), args.Error(1)
}

func (m *MockTokenRepository) DeleteActivationToken(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockTokenRepository) SavePasswordResetToken(ctx context.Context, token *models.PasswordResetToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockTokenRepository) GetPasswordResetToken(ctx context.Context, userID string) (*models.PasswordResetToken, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PasswordResetToken), args.Error(1)
}

func (m *MockTokenRepository) DeletePasswordResetToken(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockTokenRepository) DeleteExpired(ctx context.Context) (int64, int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

const testJWTSecret = "test_jwt_secret"

func newAuthService() (*services.AuthService, *MockUserRepository, *MockTokenRepository, *MockDispatcher) {
	users := new(MockUserRepository)
	tokens := new(MockTokenRepository)
	dispatcher := new(MockDispatcher)
	svc := services.NewAuthService(users, tokens, dispatcher, testJWTSecret, time.Hour, "https://cinema.test/")
	return svc, users, tokens, dispatcher
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func templateIs(name string) any {
	return mock.MatchedBy(func(task notifications.Task) bool { return task.Template == name })
}

func TestAuthService_Register(t *testing.T) {
	svc, users, tokens, dispatcher := newAuthService()
	ctx := context.Background()

	users.On("GetByEmail", ctx, "new@example.com").Return(nil, repositories.ErrNotFound).Once()
	users.On("Create", ctx, mock.AnythingOfType("*models.User")).Run(func(args mock.Arguments) {
		args.Get(1).(*models.User).ID = "u-1"
	}).Return(nil).Once()

	var saved *models.ActivationToken
	tokens.On("SaveActivationToken", ctx, mock.AnythingOfType("*models.ActivationToken")).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*models.ActivationToken)
	}).Return(nil).Once()

	var task notifications.Task
	dispatcher.On("Enqueue", ctx, templateIs(notifications.TemplateActivation)).Run(func(args mock.Arguments) {
		task = args.Get(1).(notifications.Task)
	}).Once()

	user, err := svc.Register(ctx, "  New@Example.com ", "password123")
	require.NoError(t, err)

	assert.Equal(t, "new@example.com", user.Email)
	assert.False(t, user.IsActive)
	assert.Equal(t, models.GroupUser, user.Group)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password123")))

	require.NotNil(t, saved)
	assert.Equal(t, "u-1", saved.UserID)
	assert.Len(t, saved.Token, 64)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), saved.ExpiresAt, time.Minute)

	assert.Equal(t, "new@example.com", task.Recipient)
	link, err := url.Parse(task.Context["link"])
	require.NoError(t, err)
	assert.Equal(t, "/activate", link.Path)
	assert.Equal(t, saved.Token, link.Query().Get("token"))

	users.AssertExpectations(t)
	tokens.AssertExpectations(t)
	dispatcher.AssertExpectations(t)
}

func TestAuthService_Register_Existing(t *testing.T) {
	svc, users, _, dispatcher := newAuthService()
	ctx := context.Background()
	users.On("GetByEmail", ctx, "taken@example.com").Return(&models.User{ID: "u-1"}, nil).Once()

	_, err := svc.Register(ctx, "taken@example.com", "password123")
	assert.ErrorIs(t, err, services.ErrUserExists)
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	dispatcher.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
}

func TestAuthService_Activate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		svc, users, tokens, _ := newAuthService()
		user := &models.User{ID: "u-1", Email: "a@example.com"}
		users.On("GetByEmail", ctx, "a@example.com").Return(user, nil).Once()
		tokens.On("GetActivationToken", ctx, "u-1").Return(&models.ActivationToken{
			UserID: "u-1", Token: "secret", ExpiresAt: time.Now().UTC().Add(time.Hour),
		}, nil).Once()
		users.On("Update", ctx, mock.MatchedBy(func(u *models.User) bool { return u.IsActive })).Return(nil).Once()
		tokens.On("DeleteActivationToken", ctx, "u-1").Return(nil).Once()

		require.NoError(t, svc.Activate(ctx, "a@example.com", "secret"))
		users.AssertExpectations(t)
		tokens.AssertExpectations(t)
	})

	t.Run("wrong token", func(t *testing.T) {
		svc, users, tokens, _ := newAuthService()
		users.On("GetByEmail", ctx, "a@example.com").Return(&models.User{ID: "u-1"}, nil).Once()
		tokens.On("GetActivationToken", ctx, "u-1").Return(&models.ActivationToken{
			Token: "secret", ExpiresAt: time.Now().UTC().Add(time.Hour),
		}, nil).Once()

		assert.ErrorIs(t, svc.Activate(ctx, "a@example.com", "guess"), services.ErrInvalidToken)
		users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("expired token", func(t *testing.T) {
		svc, users, tokens, _ := newAuthService()
		users.On("GetByEmail", ctx, "a@example.com").Return(&models.User{ID: "u-1"}, nil).Once()
		tokens.On("GetActivationToken", ctx, "u-1").Return(&models.ActivationToken{
			Token: "secret", ExpiresAt: time.Now().UTC().Add(-time.Minute),
		}, nil).Once()

		assert.ErrorIs(t, svc.Activate(ctx, "a@example.com", "secret"), services.ErrInvalidToken)
	})

	t.Run("unknown email", func(t *testing.T) {
		svc, users, _, _ := newAuthService()
		users.On("GetByEmail", ctx, "ghost@example.com").Return(nil, repositories.ErrNotFound).Once()
		assert.ErrorIs(t, svc.Activate(ctx, "ghost@example.com", "secret"), services.ErrInvalidToken)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	active := &models.User{ID: "u-1", Email: "a@example.com", Password: hashed(t, "password123"), IsActive: true, Group: models.GroupAdmin}
	inactive := &models.User{ID: "u-2", Email: "b@example.com", Password: hashed(t, "password123")}

	svc, users, _, _ := newAuthService()
	users.On("GetByEmail", ctx, "a@example.com").Return(active, nil)
	users.On("GetByEmail", ctx, "b@example.com").Return(inactive, nil)
	users.On("GetByEmail", ctx, "ghost@example.com").Return(nil, repositories.ErrNotFound)

	token, err := svc.Login(ctx, "A@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims["user_id"])
	assert.Equal(t, "a@example.com", claims["email"])
	assert.Equal(t, "ADMIN", claims["group"])

	_, err = svc.Login(ctx, "a@example.com", "wrong")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "ghost@example.com", "password123")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "b@example.com", "password123")
	assert.ErrorIs(t, err, services.ErrInactiveUser)
}

func TestAuthService_ValidateToken(t *testing.T) {
	svc, _, _, _ := newAuthService()

	_, err := svc.ValidateToken("not-a-jwt")
	assert.ErrorIs(t, err, services.ErrInvalidToken)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u-1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := foreign.SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.ErrorIs(t, err, services.ErrInvalidToken)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u-1",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})
	signed, err = expired.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.ErrorIs(t, err, services.ErrInvalidToken)
}

func TestAuthService_PasswordReset(t *testing.T) {
	ctx := context.Background()
	user := &models.User{ID: "u-1", Email: "a@example.com", Password: hashed(t, "old-password"), IsActive: true}

	svc, users, tokens, dispatcher := newAuthService()
	users.On("GetByEmail", ctx, "a@example.com").Return(user, nil)
	users.On("GetByEmail", ctx, "ghost@example.com").Return(nil, repositories.ErrNotFound)

	// Unknown emails are accepted without sending anything.
	require.NoError(t, svc.RequestPasswordReset(ctx, "ghost@example.com"))
	dispatcher.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)

	var saved *models.PasswordResetToken
	tokens.On("SavePasswordResetToken", ctx, mock.AnythingOfType("*models.PasswordResetToken")).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*models.PasswordResetToken)
	}).Return(nil).Once()
	dispatcher.On("Enqueue", ctx, templateIs(notifications.TemplatePasswordReset)).Once()

	require.NoError(t, svc.RequestPasswordReset(ctx, "a@example.com"))
	require.NotNil(t, saved)

	tokens.On("GetPasswordResetToken", ctx, "u-1").Return(saved, nil)
	assert.ErrorIs(t, svc.ResetPassword(ctx, "a@example.com", "guess", "new-password"), services.ErrInvalidToken)

	users.On("Update", ctx, user).Return(nil).Once()
	tokens.On("DeletePasswordResetToken", ctx, "u-1").Return(nil).Once()
	dispatcher.On("Enqueue", ctx, templateIs(notifications.TemplatePasswordChanged)).Once()

	require.NoError(t, svc.ResetPassword(ctx, "a@example.com", saved.Token, "new-password"))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("new-password")))

	users.AssertExpectations(t)
	tokens.AssertExpectations(t)
	dispatcher.AssertExpectations(t)
}

func TestAuthService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	user := &models.User{ID: "u-1", Email: "a@example.com", Password: hashed(t, "old-password"), IsActive: true}

	svc, users, _, dispatcher := newAuthService()
	users.On("GetByID", ctx, "u-1").Return(user, nil)
	users.On("GetByID", ctx, "u-9").Return(nil, repositories.ErrNotFound)

	assert.ErrorIs(t, svc.ChangePassword(ctx, "u-1", "wrong", "new-password"), services.ErrInvalidCredentials)
	assert.ErrorIs(t, svc.ChangePassword(ctx, "u-9", "old-password", "new-password"), services.ErrNotFound)

	users.On("Update", ctx, user).Return(nil).Once()
	dispatcher.On("Enqueue", ctx, templateIs(notifications.TemplatePasswordChanged)).Once()

	require.NoError(t, svc.ChangePassword(ctx, "u-1", "old-password", "new-password"))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("new-password")))
	dispatcher.AssertExpectations(t)
}

func TestAuthService_CleanupExpiredTokens(t *testing.T) {
	ctx := context.Background()
	svc, _, tokens, _ := newAuthService()
	tokens.On("DeleteExpired", ctx).Return(int64(3), int64(1), nil).Once()

	activation, reset, err := svc.CleanupExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), activation)
	assert.Equal(t, int64(1), reset)
}
