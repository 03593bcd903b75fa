package consumer

import (
	"context"
	"encoding/json"

	"github.com/One-johnson/sheepshep-sub001/internal/bootstrap"
	"github.com/One-johnson/sheepshep-sub001/internal/events"
	"github.com/One-johnson/sheepshep-sub001/internal/shared/contextutil"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is the part of *kafkago.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// ConsumeAttendanceAudit forwards attendance audit events to the audit
// logger. Offsets are committed only after an entry has been handled;
// undecodable messages are committed and skipped.
func ConsumeAttendanceAudit(
	ctx context.Context,
	reader MessageReader,
	sink bootstrap.AuditLogger,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.attendance_audit")
	log.Info("attendance audit consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("attendance audit consumer stopped")
				return
			}
			log.Error("fetch attendance audit message failed", zap.Error(err))
			continue
		}

		var event events.AttendanceAuditEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Error("decode attendance audit event failed",
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		entryCtx := ctx
		if event.RequestID != "" {
			entryCtx = contextutil.WithRequestID(ctx, event.RequestID)
		}
		sink.Log(entryCtx, bootstrap.AuditLog{
			Action:  event.Action,
			Message: "attendance record " + event.Action,
			Meta: map[string]any{
				"actor_id":    event.ActorID,
				"entity_id":   event.EntityID,
				"occurred_at": event.OccurredAt,
			},
		})

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit attendance audit message failed", zap.Error(err))
			continue
		}
	}
}
