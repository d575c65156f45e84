package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppPort)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "email_tasks", cfg.RabbitMQ.EmailQueue)
	assert.Equal(t, time.Hour, cfg.Stripe.SessionTTL)
	assert.Equal(t, 10*time.Second, cfg.Stripe.Timeout)
	assert.False(t, cfg.Kafka.Enabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("FRONTEND_URL", "https://cinema.example.com/")
	t.Setenv("STRIPE_CURRENCY", "EUR")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, "eur", cfg.Stripe.Currency)
	assert.Equal(t, "https://cinema.example.com/payment/success?session_id={CHECKOUT_SESSION_ID}", cfg.SuccessURL())
	assert.Equal(t, "https://cinema.example.com/payment/cancel?order_id=42", cfg.CancelURL("42"))
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Run("driver", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "mysql")
		_, err := Load()
		assert.ErrorContains(t, err, "unsupported DB_DRIVER")
	})

	t.Run("session ttl", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "sqlite")
		t.Setenv("CHECKOUT_SESSION_TTL", "10m")
		_, err := Load()
		assert.ErrorContains(t, err, "CHECKOUT_SESSION_TTL")
	})
}
