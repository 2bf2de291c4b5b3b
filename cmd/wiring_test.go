package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"ats-evaluator/config"
	"ats-evaluator/domain"
	"ats-evaluator/infrastructure"
)

type fakeQueue struct {
	url, queue string
	events     []domain.EvaluationEvent
	closed     bool
}

func (q *fakeQueue) Notify(_ context.Context, e domain.EvaluationEvent) error {
	q.events = append(q.events, e)
	return nil
}

func (q *fakeQueue) Close() error {
	q.closed = true
	return nil
}

// stubQueue replaces the RabbitMQ dialer for one test.
func stubQueue(t *testing.T, dialErr error) *fakeQueue {
	t.Helper()
	q := &fakeQueue{}
	orig := dialQueue
	dialQueue = func(url, queue string, _ *zap.Logger) (eventQueue, error) {
		if dialErr != nil {
			return nil, dialErr
		}
		q.url, q.queue = url, queue
		return q, nil
	}
	t.Cleanup(func() { dialQueue = orig })
	return q
}

func notifyConfig(webhook, amqpURL string) *config.Config {
	return &config.Config{Notify: config.NotifyConfig{
		WebhookURL:     webhook,
		WebhookTimeout: time.Second,
		RabbitMQ:       config.RabbitMQConfig{URL: amqpURL, Queue: "evaluations"},
	}}
}

func TestNewNotifierWebhookOnly(t *testing.T) {
	q := stubQueue(t, nil)

	n, closer, err := newNotifier(notifyConfig("http://hooks.example.com/x", ""), zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &infrastructure.WebhookNotifier{}, n)
	assert.Nil(t, closer)
	assert.Empty(t, q.url, "queue is never dialled")
}

func TestNewNotifierQueueOnly(t *testing.T) {
	q := stubQueue(t, nil)

	n, closer, err := newNotifier(notifyConfig("", "amqp://guest@localhost/"), zap.NewNop())
	require.NoError(t, err)
	assert.Same(t, q, n)
	assert.Equal(t, "amqp://guest@localhost/", q.url)
	assert.Equal(t, "evaluations", q.queue)

	require.NotNil(t, closer)
	require.NoError(t, closer())
	assert.True(t, q.closed)
}

func TestNewNotifierQueueTakesOverWebhook(t *testing.T) {
	q := stubQueue(t, nil)
	core, logs := observer.New(zap.InfoLevel)

	n, _, err := newNotifier(notifyConfig("http://hooks.example.com/x", "amqp://guest@localhost/"), zap.New(core))
	require.NoError(t, err)

	// Only the queue receives events; relay is the one that calls the webhook.
	assert.Same(t, q, n)
	require.NoError(t, n.Notify(context.Background(), domain.EvaluationEvent{Name: "Ada"}))
	assert.Len(t, q.events, 1)
	assert.Equal(t, 1, logs.FilterMessageSnippet("left to relay").Len())
}

func TestNewNotifierNothingConfigured(t *testing.T) {
	stubQueue(t, nil)

	n, closer, err := newNotifier(notifyConfig("", ""), zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, n)
	assert.Nil(t, closer)
}

func TestNewNotifierDialError(t *testing.T) {
	dialErr := errors.New("connection refused")
	stubQueue(t, dialErr)

	n, _, err := newNotifier(notifyConfig("http://hooks.example.com/x", "amqp://guest@localhost/"), zap.NewNop())
	assert.ErrorIs(t, err, dialErr)
	assert.Nil(t, n)
}
