package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/VytasKer/Fintegrate/internal/broker"
	"github.com/VytasKer/Fintegrate/internal/config"
	"github.com/VytasKer/Fintegrate/internal/consumer"
	"github.com/VytasKer/Fintegrate/internal/logger"
	"github.com/VytasKer/Fintegrate/internal/model"
)

var consumerCmd = &cobra.Command{
	Use:   "consumer",
	Short: "Run a tenant event consumer",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.Consumer.TenantID == "" {
			return fmt.Errorf("consumer.tenant_id is required")
		}

		logger.Init(cfg.Log.Level)

		var confirmer consumer.Confirmer
		if cfg.Consumer.ConfirmURL != "" {
			confirmer = consumer.NewHTTPConfirmer(
				cfg.Consumer.ConfirmURL,
				cfg.Consumer.ConfirmAPIKey,
				cfg.Consumer.Name,
				cfg.Consumer.HTTPTimeout,
			)
		}

		c := &consumer.Consumer{
			Opts: broker.Options{
				URL:            cfg.RabbitMQ.URL,
				Exchange:       cfg.RabbitMQ.Exchange,
				QueuePrefix:    cfg.RabbitMQ.QueuePrefix,
				DialTimeout:    cfg.RabbitMQ.DialTimeout,
				Heartbeat:      cfg.RabbitMQ.Heartbeat,
				QueueTTL:       cfg.RabbitMQ.QueueTTL,
				QueueMaxLength: cfg.RabbitMQ.QueueMaxLength,
			},
			TenantID:   cfg.Consumer.TenantID,
			Name:       cfg.Consumer.Name,
			MaxRetries: cfg.Consumer.MaxRetries,
			Handler: func(ctx context.Context, env model.Envelope) error {
				// demo handler: log the event; real integrations replace this
				zap.L().Info("event received",
					zap.String("event_id", env.EventID),
					zap.String("event_type", env.EventType))
				return nil
			},
			Confirmer: confirmer,
			Log:       zap.L(),
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		err = c.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}
