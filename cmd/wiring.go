package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"ats-evaluator/config"
	"ats-evaluator/infrastructure"
	"ats-evaluator/usecase"
)

// services holds the long-lived components shared by the commands.
type services struct {
	store     *infrastructure.EvaluationStore
	history   *usecase.History
	evaluator *usecase.Evaluator
	closers   []func() error
}

func (s *services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// newStore opens the database and returns the store with its closer.
func newStore(cfg *config.Config, log *zap.Logger) (*infrastructure.EvaluationStore, func() error, error) {
	db, err := infrastructure.OpenDatabase(cfg.DB, log)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("database handle: %w", err)
	}
	return infrastructure.NewEvaluationStore(db, log), sqlDB.Close, nil
}

// eventQueue is the publishing side of the RabbitMQ event queue.
type eventQueue interface {
	infrastructure.Notifier
	Close() error
}

var dialQueue = func(url, queue string, log *zap.Logger) (eventQueue, error) {
	return infrastructure.NewRabbitMQ(url, queue, log)
}

// newNotifier picks the single delivery target for evaluation events. When RabbitMQ is
// configured, events go to the queue only and the relay command forwards them to the
// webhook; otherwise the webhook is called directly. It returns nil when neither is set.
func newNotifier(cfg *config.Config, log *zap.Logger) (infrastructure.Notifier, func() error, error) {
	if cfg.Notify.RabbitMQ.URL != "" {
		q, err := dialQueue(cfg.Notify.RabbitMQ.URL, cfg.Notify.RabbitMQ.Queue, log)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Notify.WebhookURL != "" {
			log.Info("publishing events to rabbitmq, webhook delivery is left to relay",
				zap.String("queue", cfg.Notify.RabbitMQ.Queue))
		}
		return q, q.Close, nil
	}

	if cfg.Notify.WebhookURL != "" {
		return infrastructure.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.WebhookTimeout), nil, nil
	}

	log.Info("no notification target configured")
	return nil, nil, nil
}

func newServices(ctx context.Context, cfg *config.Config, log *zap.Logger) (*services, error) {
	s := &services{}

	store, closeDB, err := newStore(cfg, log)
	if err != nil {
		return nil, err
	}
	s.store = store
	s.history = usecase.NewHistory(store)
	s.closers = append(s.closers, closeDB)

	generator, err := infrastructure.NewGenerator(ctx, cfg, log)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("creating %s client: %w", cfg.AI.Provider, err)
	}
	s.closers = append(s.closers, generator.Close)

	notifier, closeNotifier, err := newNotifier(cfg, log)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	if closeNotifier != nil {
		s.closers = append(s.closers, closeNotifier)
	}

	opts := []usecase.Option{
		usecase.WithLogger(log),
		usecase.WithMaxLogLength(cfg.AI.MaxLogLength),
	}
	if notifier != nil {
		opts = append(opts, usecase.WithNotifier(notifier))
	}

	s.evaluator = usecase.NewEvaluator(
		store,
		generator,
		infrastructure.NewTextExtractor(cfg.PDF.LicenseKey, log),
		opts...,
	)
	return s, nil
}
