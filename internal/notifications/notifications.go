package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/turulko-oleksandr/cinema-api/internal/logging"
)

// Email templates understood by the worker.
const (
	TemplateActivation        = "activation"
	TemplatePasswordReset     = "password_reset"
	TemplatePasswordChanged   = "password_changed"
	TemplateOrderConfirmation = "order_confirmation"
)

// Task is one email to render and send.
type Task struct {
	Template  string            `json:"template"`
	Recipient string            `json:"recipient"`
	Context   map[string]string `json:"context"`
	Attempt   int               `json:"attempt"`
}

// Dispatcher hands tasks to the background worker. Enqueue never fails the
// caller: delivery problems are logged and the task is dropped.
type Dispatcher interface {
	Enqueue(ctx context.Context, task Task)
}

// Publisher is the part of the message broker the dispatcher needs.
type Publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

// QueueDispatcher publishes tasks as JSON messages to a broker queue.
type QueueDispatcher struct {
	publisher Publisher
	queue     string
}

func NewQueueDispatcher(publisher Publisher, queue string) *QueueDispatcher {
	return &QueueDispatcher{publisher: publisher, queue: queue}
}

func (d *QueueDispatcher) Enqueue(ctx context.Context, task Task) {
	log := logging.FromContext(ctx).With("template", task.Template, "attempt", task.Attempt)
	body, err := Encode(task)
	if err != nil {
		log.Error("failed to encode email task", "error", err)
		return
	}
	if err := d.publisher.Publish(ctx, d.queue, body); err != nil {
		log.Error("failed to enqueue email task", "error", err)
		return
	}
	log.Debug("email task enqueued")
}

// LogDispatcher only logs tasks. Used when no broker is configured.
type LogDispatcher struct{}

func (LogDispatcher) Enqueue(ctx context.Context, task Task) {
	logging.FromContext(ctx).Info("email task dropped, no broker configured",
		"template", task.Template, "recipient", task.Recipient)
}

func Encode(task Task) ([]byte, error) {
	return json.Marshal(task)
}

func Decode(body []byte) (Task, error) {
	var task Task
	if err := json.Unmarshal(body, &task); err != nil {
		return Task{}, fmt.Errorf("failed to decode email task: %w", err)
	}
	if task.Template == "" || task.Recipient == "" {
		return Task{}, fmt.Errorf("email task is missing template or recipient")
	}
	return task, nil
}
