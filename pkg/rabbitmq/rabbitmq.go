package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	amqp "github.com/streadway/amqp"
)

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	// amqp channels are not safe for concurrent publishing.
	mu sync.Mutex
	// delay queues declared so far, keyed by target queue
	delayQueues map[string]string
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL    string
	Queues []string
}

// NewClient connects to RabbitMQ, opens a channel and declares the configured queues.
func NewClient(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	for _, queue := range cfg.Queues {
		if err := declare(ch, queue); err != nil {
			ch.Close()
			conn.Close()
			return nil, err
		}
	}

	slog.Info("RabbitMQ client connected", "queues", cfg.Queues)

	return &Client{
		conn:        conn,
		channel:     ch,
		delayQueues: make(map[string]string),
	}, nil
}

func declare(ch *amqp.Channel, queue string) error {
	_, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare %s: %w", queue, err)
	}
	return nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred during RabbitMQ client close: %v", errs)
	}
	return nil
}

// Publish sends a persistent JSON message to the queue through the default exchange.
func (c *Client) Publish(ctx context.Context, queue string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.channel.Publish(
		"",    // exchange: default exchange
		queue, // routing key: the queue name
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish message to %s: %w", queue, err)
	}
	return nil
}

// PublishDelayed delivers body to queue once delay has elapsed. The message
// waits in "<queue>.delay", a consumer-less queue whose expired messages are
// dead-lettered back to queue through the default exchange. Expiry is only
// checked at the head of the delay queue, so a message never leaves earlier
// than the ones published before it.
func (c *Client) PublishDelayed(ctx context.Context, queue string, body []byte, delay time.Duration) error {
	if delay <= 0 {
		return c.Publish(ctx, queue, body)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	delayQueue, ok := c.delayQueues[queue]
	if !ok {
		delayQueue = queue + ".delay"
		_, err := c.channel.QueueDeclare(delayQueue, true, false, false, false, amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": queue,
		})
		if err != nil {
			return fmt.Errorf("failed to declare %s: %w", delayQueue, err)
		}
		c.delayQueues[queue] = delayQueue
	}

	err := c.channel.Publish("", delayQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Expiration:   strconv.FormatInt(delay.Milliseconds(), 10),
	})
	if err != nil {
		return fmt.Errorf("failed to publish delayed message to %s: %w", delayQueue, err)
	}
	return nil
}

// Consume delivers messages of the queue to handler until ctx is cancelled or
// the channel closes. A handler error nacks the message without requeueing;
// handlers that want another attempt republish explicitly.
func (c *Client) Consume(ctx context.Context, queue string, handler func(ctx context.Context, body []byte) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	c.mu.Lock()
	err := declare(c.channel, queue)
	if err == nil {
		err = c.channel.Qos(1, 0, false)
	}
	var msgs <-chan amqp.Delivery
	if err == nil {
		msgs, err = c.channel.Consume(
			queue, // queue
			"",    // consumer tag
			false, // auto-ack
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,   // args
		)
	}
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to register consumer on %s: %w", queue, err)
	}

	slog.Info("waiting for messages", "queue", queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel of %s closed", queue)
			}
			if err := handler(ctx, msg.Body); err != nil {
				slog.Error("error processing message", "queue", queue, "delivery_tag", msg.DeliveryTag, "error", err)
				if nackErr := msg.Nack(false, false); nackErr != nil {
					slog.Error("error nacking message", "delivery_tag", msg.DeliveryTag, "error", nackErr)
				}
				continue
			}
			if ackErr := msg.Ack(false); ackErr != nil {
				slog.Error("error acking message", "delivery_tag", msg.DeliveryTag, "error", ackErr)
			}
		}
	}
}
