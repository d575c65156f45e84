package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/turulko-oleksandr/cinema-api/internal/mailer"
	"github.com/turulko-oleksandr/cinema-api/internal/notifications"
)

const defaultMaxAttempts = 3

// Renderer builds an email from a task.
type Renderer interface {
	Render(name, to string, data map[string]string) (mailer.Message, error)
}

// RetryPublisher delivers a message to queue once delay has elapsed, without
// holding up the consumer meanwhile.
type RetryPublisher interface {
	PublishDelayed(ctx context.Context, queue string, body []byte, delay time.Duration) error
}

// Consumer feeds queue messages to a handler.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler func(ctx context.Context, body []byte) error) error
}

// EmailWorker renders and sends queued email tasks, republishing failed ones
// with an exponentially growing delay until the attempt budget is spent.
type EmailWorker struct {
	renderer    Renderer
	sender      mailer.Sender
	publisher   RetryPublisher
	queue       string
	maxAttempts int
	backoff     func(attempt int) time.Duration
	logger      *slog.Logger
}

func NewEmailWorker(renderer Renderer, sender mailer.Sender, publisher RetryPublisher, queue string, logger *slog.Logger) *EmailWorker {
	return &EmailWorker{
		renderer:    renderer,
		sender:      sender,
		publisher:   publisher,
		queue:       queue,
		maxAttempts: defaultMaxAttempts,
		backoff:     ExponentialBackoff(time.Second),
		logger:      logger,
	}
}

// ExponentialBackoff returns base, 2*base, 4*base, ... for attempts 0, 1, 2, ...
func ExponentialBackoff(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return base << attempt
	}
}

// Run consumes the email queue until ctx is cancelled.
func (w *EmailWorker) Run(ctx context.Context, consumer Consumer) error {
	w.logger.Info("email worker started", "queue", w.queue)
	return consumer.Consume(ctx, w.queue, w.Handle)
}

// Handle processes one message. Malformed messages are dropped; delivery
// failures are retried by republishing the task with Attempt+1 after a delay.
func (w *EmailWorker) Handle(ctx context.Context, body []byte) error {
	task, err := notifications.Decode(body)
	if err != nil {
		w.logger.Error("dropping malformed email task", "error", err)
		return nil
	}
	log := w.logger.With("template", task.Template, "attempt", task.Attempt)

	msg, err := w.renderer.Render(task.Template, task.Recipient, task.Context)
	if err != nil {
		log.Error("dropping email task that cannot be rendered", "error", err)
		return nil
	}

	sendErr := w.sender.Send(ctx, msg)
	if sendErr == nil {
		log.Info("email sent")
		return nil
	}

	if task.Attempt+1 >= w.maxAttempts {
		log.Error("email task exhausted its retries", "error", sendErr)
		return nil
	}

	delay := w.backoff(task.Attempt)
	log.Warn("email send failed, retrying", "error", sendErr, "delay", delay)

	task.Attempt++
	retry, err := notifications.Encode(task)
	if err != nil {
		return fmt.Errorf("failed to encode retry: %w", err)
	}
	if err := w.publisher.PublishDelayed(ctx, w.queue, retry, delay); err != nil {
		return fmt.Errorf("failed to republish email task: %w", err)
	}
	return nil
}
