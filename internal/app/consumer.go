package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/One-johnson/sheepshep-sub001/internal/bootstrap"
	"github.com/One-johnson/sheepshep-sub001/internal/config"
	"github.com/One-johnson/sheepshep-sub001/internal/events"
	"github.com/One-johnson/sheepshep-sub001/internal/messaging/kafka/consumer"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// RunConsumer forwards attendance audit events to the audit log until
// SIGINT/SIGTERM.
func RunConsumer(cfg config.Config) error {
	logger := zap.L().Named("app.consumer")

	if cfg.KafkaBroker == "" {
		return errors.New("KAFKA_BROKER is required")
	}

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        []string{cfg.KafkaBroker},
		Topic:          events.AttendanceAuditTopic,
		GroupID:        "sheepshep-attendance-audit",
		CommitInterval: 0,
		StartOffset:    kafkago.FirstOffset,
	})
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go consumer.ConsumeAttendanceAudit(ctx, reader, bootstrap.NewStdoutAuditLogger(logger), logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("consumer shutting down")
	cancel()

	return nil
}
