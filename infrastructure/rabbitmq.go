package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ats-evaluator/domain"
	"ats-evaluator/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// RabbitMQ publishes evaluation events to a durable queue and consumes them for the relay.
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	logger  *zap.Logger
}

func NewRabbitMQ(url, queue string, log *zap.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		queue, // queue name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue %q: %w", queue, err)
	}

	log = logger.OrNop(log)
	log.Info("connected to RabbitMQ", zap.String("queue", q.Name))

	return &RabbitMQ{conn: conn, channel: ch, queue: q, logger: log}, nil
}

// Notify publishes the event as a persistent JSON message.
func (r *RabbitMQ) Notify(ctx context.Context, event domain.EvaluationEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode evaluation event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = r.channel.PublishWithContext(
		ctx,
		"",           // exchange
		r.queue.Name, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish evaluation event: %w", err)
	}
	return nil
}

// ConsumeEvents delivers queued events to handler until ctx is done or the channel closes.
// A message is acked only when handler succeeds; failures are requeued once.
func (r *RabbitMQ) ConsumeEvents(ctx context.Context, handler func(context.Context, domain.EvaluationEvent) error) error {
	msgs, err := r.channel.ConsumeWithContext(
		ctx,
		r.queue.Name,
		"",
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			r.handleDelivery(ctx, d, handler)
		}
	}
}

func (r *RabbitMQ) handleDelivery(ctx context.Context, d amqp.Delivery, handler func(context.Context, domain.EvaluationEvent) error) {
	log := logger.WithFields(r.logger,
		zap.Uint64("delivery_tag", d.DeliveryTag),
		zap.Bool("redelivered", d.Redelivered),
	)

	var event domain.EvaluationEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		log.Warn("invalid event format", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	// A failed event is requeued once; a second failure drops it.
	if err := handler(ctx, event); err != nil {
		log.Warn("event handler failed", zap.String("email", event.Email), zap.Error(err))
		_ = d.Nack(false, !d.Redelivered)
		return
	}
	_ = d.Ack(false)
}

func (r *RabbitMQ) Close() error {
	return errors.Join(r.channel.Close(), r.conn.Close())
}
