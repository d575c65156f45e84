package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/turulko-oleksandr/cinema-api/internal/database/dbtest"
	"github.com/turulko-oleksandr/cinema-api/internal/events"
	"github.com/turulko-oleksandr/cinema-api/internal/gateway"
	"github.com/turulko-oleksandr/cinema-api/internal/models"
	"github.com/turulko-oleksandr/cinema-api/internal/notifications"
	"github.com/turulko-oleksandr/cinema-api/internal/repositories"
)

// MockGateway is a mock implementation of gateway.Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateSession(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.CheckoutSession), args.Error(1)
}

func (m *MockGateway) ParseEvent(payload []byte, signature string) (*gateway.Event, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Event), args.Error(1)
}

// MockDispatcher is a mock implementation of notifications.Dispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Enqueue(ctx context.Context, task notifications.Task) {
	m.Called(ctx, task)
}

// recordingPublisher keeps every published event in memory.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type testEnv struct {
	db    *gorm.DB
	repos *repositories.Repositories
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := dbtest.Open(t)
	return &testEnv{db: db, repos: repositories.New(db)}
}

func (e *testEnv) user(t *testing.T, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Password: "x", IsActive: true, Group: models.GroupUser}
	require.NoError(t, e.repos.Users.Create(context.Background(), u))
	return u
}

func (e *testEnv) movie(t *testing.T, name, price string) *models.Movie {
	t.Helper()
	m := &models.Movie{
		Name:        name,
		Year:        2020,
		Time:        120,
		IMDB:        7.5,
		Votes:       1000,
		Description: name + " description",
		Price:       decimal.RequireFromString(price),
	}
	require.NoError(t, e.repos.Movies.Create(context.Background(), m))
	return m
}

// paidOrder records a completed purchase of the movies for the user.
func (e *testEnv) paidOrder(t *testing.T, userID string, movies ...*models.Movie) *models.Order {
	t.Helper()
	ctx := context.Background()
	order := &models.Order{UserID: userID, Status: models.OrderStatusPaid, TotalAmount: decimal.Zero}
	require.NoError(t, e.repos.Orders.Create(ctx, order))
	items := make([]models.OrderItem, 0, len(movies))
	for _, m := range movies {
		items = append(items, models.OrderItem{OrderID: order.ID, MovieID: m.ID, PriceAtOrder: m.Price})
	}
	require.NoError(t, e.repos.Orders.CreateItems(ctx, items))
	return order
}

func (e *testEnv) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := e.db.Model(model)
	if table, ok := model.(string); ok {
		q = e.db.Table(table)
	}
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
