package handlers_test

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/turulko-oleksandr/cinema-api/internal/app"
	"github.com/turulko-oleksandr/cinema-api/internal/database/dbtest"
	"github.com/turulko-oleksandr/cinema-api/internal/gateway"
	"github.com/turulko-oleksandr/cinema-api/internal/logging"
	"github.com/turulko-oleksandr/cinema-api/internal/metrics"
	"github.com/turulko-oleksandr/cinema-api/internal/models"
	"github.com/turulko-oleksandr/cinema-api/internal/notifications"
	"github.com/turulko-oleksandr/cinema-api/internal/repositories"
	"github.com/turulko-oleksandr/cinema-api/internal/services"
)

const (
	testJWTSecret     = "test_jwt_secret"
	testWebhookSecret = "whsec_test_secret"
)

// stubGateway verifies webhooks like Stripe does but opens sessions locally.
type stubGateway struct {
	*gateway.StripeGateway
	mu       sync.Mutex
	requests []gateway.CheckoutRequest
}

func (g *stubGateway) CreateSession(_ context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	id := fmt.Sprintf("cs_test_%d", len(g.requests))
	return &gateway.CheckoutSession{ID: id, URL: "https://checkout.stripe.test/" + id}, nil
}

// recordingDispatcher keeps enqueued email tasks in memory.
type recordingDispatcher struct {
	mu    sync.Mutex
	tasks []notifications.Task
}

func (d *recordingDispatcher) Enqueue(_ context.Context, task notifications.Task) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks = append(d.tasks, task)
}

func (d *recordingDispatcher) byTemplate(name string) []notifications.Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []notifications.Task
	for _, task := range d.tasks {
		if task.Template == name {
			out = append(out, task)
		}
	}
	return out
}

type harness struct {
	app        *fiber.App
	db         *gorm.DB
	repos      *repositories.Repositories
	gateway    *stubGateway
	dispatcher *recordingDispatcher
}

// setupApp builds the full application on an in-memory SQLite database.
func setupApp(t *testing.T) *harness {
	t.Helper()
	db := dbtest.Open(t)
	repos := repositories.New(db)

	h := &harness{
		db:         db,
		repos:      repos,
		gateway:    &stubGateway{StripeGateway: gateway.NewStripeGateway("sk_test", testWebhookSecret, nil)},
		dispatcher: &recordingDispatcher{},
	}
	m := metrics.New()

	svc := app.Services{
		Auth:   services.NewAuthService(repos.Users, repos.Tokens, h.dispatcher, testJWTSecret, time.Hour, "https://cinema.test"),
		Movies: services.NewMovieService(repos),
		Carts:  services.NewCartService(repos),
		Orders: services.NewOrderService(repos, nil, m),
		Payments: services.NewPaymentService(repos, h.gateway, h.dispatcher, nil, m, services.CheckoutConfig{
			Currency:   "usd",
			SessionTTL: time.Hour,
			SuccessURL: "https://cinema.test/payment/success",
		}),
		Profiles: services.NewProfileService(repos.Profiles, repos.Users, nil),
	}
	h.app = app.New(app.Deps{Services: svc, Logger: logging.Discard(), Metrics: m})
	return h
}

func (h *harness) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return h.send(t, req)
}

func (h *harness) send(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	out := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

// signup registers, activates and logs in a user through the API.
func (h *harness) signup(t *testing.T, email string) string {
	t.Helper()
	resp, _ := h.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": email, "password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Inactive accounts cannot log in.
	resp, _ = h.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": email, "password": "password123",
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	var link *url.URL
	for _, task := range h.dispatcher.byTemplate(notifications.TemplateActivation) {
		if task.Recipient == email {
			var err error
			link, err = url.Parse(task.Context["link"])
			require.NoError(t, err)
		}
	}
	require.NotNil(t, link, "activation email not sent")

	resp, _ = h.do(t, http.MethodPost, "/api/v1/auth/activate", "", map[string]string{
		"email": email, "token": link.Query().Get("token"),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	return h.login(t, email, "password123")
}

func (h *harness) login(t *testing.T, email, password string) string {
	t.Helper()
	resp, body := h.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

// admin creates an active administrator directly and logs in.
func (h *harness) admin(t *testing.T) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-password"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, h.repos.Users.Create(context.Background(), &models.User{
		Email: "admin@example.com", Password: string(hash), IsActive: true, Group: models.GroupAdmin,
	}))
	return h.login(t, "admin@example.com", "admin-password")
}

func (h *harness) movie(t *testing.T, name, price string) *models.Movie {
	t.Helper()
	m := &models.Movie{
		Name: name, Year: 2001, Time: 100, IMDB: 7, Votes: 10,
		Description: name, Price: decimal.RequireFromString(price),
	}
	require.NoError(t, h.repos.Movies.Create(context.Background(), m))
	return m
}

func (h *harness) webhook(t *testing.T, eventID, eventType, sessionID, secret string) *http.Response {
	t.Helper()
	payload := []byte(fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"api_version": %q,
		"type": %q,
		"data": {"object": {"id": %q, "object": "checkout.session", "payment_intent": "pi_test_1"}}
	}`, eventID, stripe.APIVersion, eventType, sessionID))
	now := time.Now()
	sig := fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(webhook.ComputeSignature(now, payload, secret)))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", sig)
	resp, _ := h.send(t, req)
	return resp
}

func TestHealthAndMetrics(t *testing.T) {
	h := setupApp(t)

	resp, body := h.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "cinema_http_requests_total")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := setupApp(t)

	for _, path := range []string{"/api/v1/cart", "/api/v1/orders", "/api/v1/profile"} {
		resp, _ := h.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}

	resp, _ := h.do(t, http.MethodGet, "/api/v1/cart", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// The catalog is public.
	resp, body := h.do(t, http.MethodGet, "/api/v1/movies", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["total"])
}

func TestAuthValidationAndDuplicates(t *testing.T) {
	h := setupApp(t)

	resp, body := h.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "not-an-email", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Validation failed", body["message"])

	h.signup(t, "viewer@example.com")
	resp, _ = h.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "viewer@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = h.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "viewer@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPurchaseFlow(t *testing.T) {
	h := setupApp(t)
	token := h.signup(t, "buyer@example.com")
	a := h.movie(t, "Alien", "9.99")
	b := h.movie(t, "Brazil", "14.99")

	for _, m := range []*models.Movie{a, b} {
		resp, _ := h.do(t, http.MethodPost, "/api/v1/cart/items", token, map[string]string{"movie_id": m.ID})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}
	resp, _ := h.do(t, http.MethodPost, "/api/v1/cart/items", token, map[string]string{"movie_id": a.ID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body := h.do(t, http.MethodGet, "/api/v1/cart/total", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["total_items"])
	assert.Equal(t, "24.98", body["total_price"])

	resp, body = h.do(t, http.MethodPost, "/api/v1/orders", token, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	orderID, _ := body["id"].(string)
	require.NotEmpty(t, orderID)
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, "24.98", body["total_amount"])
	assert.Len(t, body["items"], 2)

	// The cart was emptied, so a second order has nothing to take.
	resp, _ = h.do(t, http.MethodPost, "/api/v1/orders", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = h.do(t, http.MethodPost, "/api/v1/orders/"+orderID+"/checkout", token, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "cs_test_1", body["session_id"])
	assert.Equal(t, "https://checkout.stripe.test/cs_test_1", body["checkout_url"])

	resp, _ = h.do(t, http.MethodPost, "/api/v1/orders/"+orderID+"/checkout", token, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	require.Len(t, h.gateway.requests, 1)
	assert.Equal(t, "buyer@example.com", h.gateway.requests[0].CustomerEmail)
	assert.Len(t, h.gateway.requests[0].Items, 2)

	// A forged notification changes nothing.
	resp = h.webhook(t, "evt_forged", "checkout.session.completed", "cs_test_1", "whsec_attacker")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The gateway may deliver the same event more than once.
	resp = h.webhook(t, "evt_1", "checkout.session.completed", "cs_test_1", testWebhookSecret)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = h.webhook(t, "evt_1", "checkout.session.completed", "cs_test_1", testWebhookSecret)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = h.do(t, http.MethodGet, "/api/v1/orders/"+orderID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "paid", body["status"])

	resp, body = h.do(t, http.MethodGet, "/api/v1/orders/"+orderID+"/payment", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["has_payment"])
	assert.Equal(t, "successful", body["status"])

	var items []models.PaymentItem
	require.NoError(t, h.db.Find(&items).Error)
	assert.Len(t, items, 2)

	confirmations := h.dispatcher.byTemplate(notifications.TemplateOrderConfirmation)
	require.Len(t, confirmations, 1)
	assert.Equal(t, "buyer@example.com", confirmations[0].Recipient)
	assert.Equal(t, "24.98", confirmations[0].Context["total"])

	// Bought movies cannot go back into the cart.
	resp, _ = h.do(t, http.MethodPost, "/api/v1/cart/items", token, map[string]string{"movie_id": a.ID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Other users do not see the order.
	other := h.signup(t, "other@example.com")
	resp, _ = h.do(t, http.MethodGet, "/api/v1/orders/"+orderID, other, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebhookUnknownSession(t *testing.T) {
	h := setupApp(t)
	resp := h.webhook(t, "evt_1", "checkout.session.completed", "cs_missing", testWebhookSecret)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = h.webhook(t, "evt_2", "customer.created", "cs_missing", testWebhookSecret)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCartRemoveAndCancelOrder(t *testing.T) {
	h := setupApp(t)
	token := h.signup(t, "buyer@example.com")
	a := h.movie(t, "Alien", "9.99")

	resp, _ := h.do(t, http.MethodDelete, "/api/v1/cart/items/"+a.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = h.do(t, http.MethodPost, "/api/v1/cart/items", token, map[string]string{"movie_id": a.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = h.do(t, http.MethodDelete, "/api/v1/cart/items/"+a.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = h.do(t, http.MethodPost, "/api/v1/cart/items", token, map[string]string{"movie_id": a.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, body := h.do(t, http.MethodPost, "/api/v1/orders", token, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	orderID := body["id"].(string)

	resp, body = h.do(t, http.MethodPost, "/api/v1/orders/"+orderID+"/cancel", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "canceled", body["status"])

	resp, _ = h.do(t, http.MethodPost, "/api/v1/orders/"+orderID+"/checkout", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = h.do(t, http.MethodGet, "/api/v1/orders?status=canceled", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total"])
}

func TestStaffAndAdminRoutes(t *testing.T) {
	h := setupApp(t)
	user := h.signup(t, "viewer@example.com")
	admin := h.admin(t)

	newMovie := map[string]any{
		"name": "Metropolis", "year": 1927, "time": 153, "imdb": 8.3, "votes": 180000,
		"description": "A futuristic city", "price": "4.99",
		"certification": "PG", "genres": []string{"Drama", "Sci-Fi"}, "directors": []string{"Fritz Lang"},
	}
	resp, _ := h.do(t, http.MethodPost, "/api/v1/movies", user, newMovie)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := h.do(t, http.MethodPost, "/api/v1/movies", admin, newMovie)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	movieID := body["id"].(string)

	resp, _ = h.do(t, http.MethodPost, "/api/v1/movies", admin, newMovie)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = h.do(t, http.MethodGet, "/api/v1/movies/"+movieID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "4.99", body["price"])
	assert.Len(t, body["genres"], 2)

	resp, body = h.do(t, http.MethodGet, "/api/v1/movies?genre=sci-fi", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total"])

	resp, _ = h.do(t, http.MethodGet, "/api/v1/orders/all", user, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = h.do(t, http.MethodGet, "/api/v1/orders/all", admin, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Regular routes stay open to regular users.
	resp, _ = h.do(t, http.MethodGet, "/api/v1/cart", user, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCatalogManagementRoutes(t *testing.T) {
	h := setupApp(t)
	user := h.signup(t, "viewer@example.com")
	admin := h.admin(t)
	movie := h.movie(t, "Metropolis", "4.99")

	resp, _ := h.do(t, http.MethodPatch, "/api/v1/movies/"+movie.ID, user, map[string]any{"price": "5.49"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = h.do(t, http.MethodDelete, "/api/v1/movies/"+movie.ID, user, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := h.do(t, http.MethodPatch, "/api/v1/movies/"+movie.ID, admin, map[string]any{
		"price": "5.49", "genres": []string{"Drama"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "5.49", body["price"])
	assert.Equal(t, "Metropolis", body["name"])
	assert.Len(t, body["genres"], 1)

	resp, _ = h.do(t, http.MethodPut, "/api/v1/movies/"+movie.ID, admin, map[string]any{"year": 1500})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = h.do(t, http.MethodPatch, "/api/v1/movies/missing", admin, map[string]any{"votes": 1})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Lookups are public to read and staff-only to change.
	resp, body = h.do(t, http.MethodGet, "/api/v1/genres", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total"])

	resp, _ = h.do(t, http.MethodPost, "/api/v1/stars", user, map[string]string{"name": "Brigitte Helm"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, body = h.do(t, http.MethodPost, "/api/v1/stars", admin, map[string]string{"name": "Brigitte Helm"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	starID := body["id"].(string)
	resp, _ = h.do(t, http.MethodPost, "/api/v1/stars", admin, map[string]string{"name": "Brigitte Helm"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp, _ = h.do(t, http.MethodPost, "/api/v1/stars", admin, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = h.do(t, http.MethodPatch, "/api/v1/stars/"+starID, admin, map[string]string{"name": "Alfred Abel"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Alfred Abel", body["name"])

	resp, body = h.do(t, http.MethodGet, "/api/v1/stars/"+starID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Alfred Abel", body["name"])

	resp, _ = h.do(t, http.MethodDelete, "/api/v1/stars/"+starID, admin, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = h.do(t, http.MethodGet, "/api/v1/stars/"+starID, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Purchased movies stay in the catalog.
	bought := h.movie(t, "Nosferatu", "3.99")
	ctx := context.Background()
	viewer, err := h.repos.Users.GetByEmail(ctx, "viewer@example.com")
	require.NoError(t, err)
	order := &models.Order{UserID: viewer.ID, Status: models.OrderStatusPaid, TotalAmount: bought.Price}
	require.NoError(t, h.repos.Orders.Create(ctx, order))
	require.NoError(t, h.repos.Orders.CreateItems(ctx, []models.OrderItem{
		{OrderID: order.ID, MovieID: bought.ID, PriceAtOrder: bought.Price},
	}))
	resp, _ = h.do(t, http.MethodDelete, "/api/v1/movies/"+bought.ID, admin, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = h.do(t, http.MethodDelete, "/api/v1/movies/"+movie.ID, admin, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = h.do(t, http.MethodGet, "/api/v1/movies/"+movie.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProfileRoutes(t *testing.T) {
	h := setupApp(t)
	token := h.signup(t, "viewer@example.com")

	resp, body := h.do(t, http.MethodPatch, "/api/v1/profile", token, map[string]string{
		"first_name": "Ada", "date_of_birth": "1990-05-17",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ada", body["first_name"])
	assert.Equal(t, "viewer@example.com", body["email"])

	resp, _ = h.do(t, http.MethodPatch, "/api/v1/profile", token, map[string]string{"gender": "other"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// No object store is configured in this setup.
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="avatar"; filename="me.png"`},
		"Content-Type":        {"image/png"},
	})
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/api/v1/profile/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, _ = h.send(t, req)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
