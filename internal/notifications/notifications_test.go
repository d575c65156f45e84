package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, queue string, body []byte) error {
	args := m.Called(ctx, queue, body)
	return args.Error(0)
}

func TestQueueDispatcher_Enqueue(t *testing.T) {
	pub := new(mockPublisher)
	d := NewQueueDispatcher(pub, "email_tasks")

	task := Task{
		Template:  TemplateOrderConfirmation,
		Recipient: "buyer@example.com",
		Context:   map[string]string{"order_id": "o-1"},
	}
	pub.On("Publish", mock.Anything, "email_tasks", mock.MatchedBy(func(body []byte) bool {
		got, err := Decode(body)
		return err == nil && got.Template == task.Template && got.Context["order_id"] == "o-1"
	})).Return(nil).Once()

	d.Enqueue(context.Background(), task)
	pub.AssertExpectations(t)
}

func TestQueueDispatcher_EnqueueSwallowsErrors(t *testing.T) {
	pub := new(mockPublisher)
	d := NewQueueDispatcher(pub, "email_tasks")
	pub.On("Publish", mock.Anything, "email_tasks", mock.Anything).Return(errors.New("broker down")).Once()

	assert.NotPanics(t, func() {
		d.Enqueue(context.Background(), Task{Template: TemplateActivation, Recipient: "a@example.com"})
	})
	pub.AssertExpectations(t)
}

func TestDecode(t *testing.T) {
	_, err := Decode([]byte(`{"template":"activation"}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)

	task, err := Decode([]byte(`{"template":"activation","recipient":"a@example.com","attempt":2}`))
	require.NoError(t, err)
	assert.Equal(t, 2, task.Attempt)
}
