package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/turulko-oleksandr/cinema-api/internal/app"
	"github.com/turulko-oleksandr/cinema-api/internal/config"
	"github.com/turulko-oleksandr/cinema-api/internal/database"
	"github.com/turulko-oleksandr/cinema-api/internal/events"
	"github.com/turulko-oleksandr/cinema-api/internal/gateway"
	"github.com/turulko-oleksandr/cinema-api/internal/logging"
	"github.com/turulko-oleksandr/cinema-api/internal/mailer"
	"github.com/turulko-oleksandr/cinema-api/internal/metrics"
	"github.com/turulko-oleksandr/cinema-api/internal/notifications"
	"github.com/turulko-oleksandr/cinema-api/internal/repositories"
	"github.com/turulko-oleksandr/cinema-api/internal/services"
	"github.com/turulko-oleksandr/cinema-api/internal/storage"
	"github.com/turulko-oleksandr/cinema-api/internal/worker"
	"github.com/turulko-oleksandr/cinema-api/pkg/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.IntoContext(ctx, logger)

	// --- Database ---
	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close(db)
	if err := database.Migrate(db); err != nil {
		return err
	}
	repos := repositories.New(db)

	// --- Initialize RabbitMQ Client ---
	// Without a broker, emails are only logged.
	var (
		mqClient   *rabbitmq.Client
		dispatcher notifications.Dispatcher = notifications.LogDispatcher{}
	)
	mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQ.URL, Queues: []string{cfg.RabbitMQ.EmailQueue}})
	if err != nil {
		logger.Warn("RabbitMQ unavailable, emails will not be sent", "error", err)
	} else {
		defer mqClient.Close()
		dispatcher = notifications.NewQueueDispatcher(mqClient, cfg.RabbitMQ.EmailQueue)
	}

	// --- Domain events ---
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled() {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		logger.Info("publishing order events", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}
	defer publisher.Close()

	// --- Object storage ---
	var store storage.ObjectStore
	if s3Store, err := storage.NewS3Store(ctx, cfg.Storage); err != nil {
		logger.Warn("object storage disabled, avatar uploads unavailable", "error", err)
	} else {
		store = s3Store
	}

	m := metrics.New()
	gw := gateway.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, nil)

	// --- Initialize Services ---
	authService := services.NewAuthService(repos.Users, repos.Tokens, dispatcher, cfg.JWTSecret, cfg.TokenTTL, cfg.FrontendURL)
	svc := app.Services{
		Auth:   authService,
		Movies: services.NewMovieService(repos),
		Carts:  services.NewCartService(repos),
		Orders: services.NewOrderService(repos, publisher, m),
		Payments: services.NewPaymentService(repos, gw, dispatcher, publisher, m, services.CheckoutConfig{
			Currency:       cfg.Stripe.Currency,
			SessionTTL:     cfg.Stripe.SessionTTL,
			GatewayTimeout: cfg.Stripe.Timeout,
			SuccessURL:     cfg.SuccessURL(),
			CancelURL:      cfg.CancelURL,
			OrderURL:       func(id string) string { return cfg.FrontendURL + "/orders/" + id },
		}),
		Profiles: services.NewProfileService(repos.Profiles, repos.Users, store),
	}

	fiberApp := app.New(app.Deps{
		Services: svc,
		Logger:   logger,
		Metrics:  m,
		Health: func() map[string]string {
			state := map[string]string{"rabbitmq": "disabled", "kafka": "disabled", "storage": "disabled"}
			if mqClient != nil {
				state["rabbitmq"] = "connected"
			}
			if cfg.Kafka.Enabled() {
				state["kafka"] = "enabled"
			}
			if store != nil {
				state["storage"] = "enabled"
			}
			return state
		},
	})

	var wg sync.WaitGroup

	// --- Start email worker in a Goroutine ---
	if mqClient != nil {
		renderer, err := mailer.NewRenderer()
		if err != nil {
			return err
		}
		emailWorker := worker.NewEmailWorker(renderer, mailer.NewSMTPSender(cfg.SMTP), mqClient, cfg.RabbitMQ.EmailQueue, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := emailWorker.Run(ctx, mqClient); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("email worker stopped", "error", err)
			}
		}()
	}

	// --- Expired token sweeper ---
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweepTokens(ctx, authService, cfg.TokenCleanupInterval)
	}()

	// --- Start HTTP Server ---
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.AppPort)
		serverErr <- fiberApp.Listen(cfg.AppPort)
	}()

	select {
	case err := <-serverErr:
		stop()
		wg.Wait()
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	if err := fiberApp.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("error during fiber shutdown", "error", err)
	}
	wg.Wait()
	logger.Info("server gracefully stopped")
	return nil
}

func sweepTokens(ctx context.Context, auth *services.AuthService, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, _, err := auth.CleanupExpiredTokens(ctx); err != nil {
				logging.FromContext(ctx).Error("failed to remove expired tokens", "error", err)
			}
		}
	}
}
