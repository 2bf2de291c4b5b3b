package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ats-evaluator/domain"
	"ats-evaluator/infrastructure"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Forward evaluation events from RabbitMQ to the webhook",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		if cfg.Notify.RabbitMQ.URL == "" || cfg.Notify.WebhookURL == "" {
			return fmt.Errorf("relay needs both notify.rabbitmq.url and notify.webhook-url")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rmq, err := infrastructure.NewRabbitMQ(cfg.Notify.RabbitMQ.URL, cfg.Notify.RabbitMQ.Queue, log)
		if err != nil {
			return err
		}
		defer rmq.Close() //nolint:errcheck

		webhook := infrastructure.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.WebhookTimeout)

		log.Info("relay started", zap.String("queue", cfg.Notify.RabbitMQ.Queue))
		err = rmq.ConsumeEvents(ctx, func(ctx context.Context, event domain.EvaluationEvent) error {
			if err := webhook.Notify(ctx, event); err != nil {
				return err
			}
			log.Info("event forwarded",
				zap.String("email", event.Email),
				zap.Uint("job_description_id", event.JobDescriptionID),
			)
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}
