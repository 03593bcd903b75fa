package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/One-johnson/sheepshep-sub001/internal/events"
	"github.com/One-johnson/sheepshep-sub001/internal/messaging/kafka"
	"github.com/One-johnson/sheepshep-sub001/internal/shared/contextutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const aggregateAttendance = "attendance_record"

// OutboxDispatcher queues side effects in the outbox table; the worker
// publishes them to kafka. It runs after the record write has committed, so
// a failed insert only loses the side effect.
type OutboxDispatcher struct {
	outbox kafka.OutboxRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewOutboxDispatcher(outbox kafka.OutboxRepository, logger ...*zap.Logger) *OutboxDispatcher {
	l := zap.L().Named("dispatch.outbox")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("dispatch.outbox")
	}
	return &OutboxDispatcher{outbox: outbox, logger: l, now: time.Now}
}

func (d *OutboxDispatcher) Notify(ctx context.Context, targetUserID uuid.UUID, kind string, payload map[string]any) {
	rid := contextutil.GetRequestID(ctx)
	event := events.AttendanceNotificationEvent{
		EventType:    kind,
		RequestID:    rid,
		TargetUserID: targetUserID.String(),
		Payload:      payload,
		OccurredAt:   d.now().UTC(),
	}

	aggregateID := targetUserID.String()
	if id, ok := payload["record_id"].(string); ok && id != "" {
		aggregateID = id
	}
	d.enqueue(ctx, events.AttendanceNotificationTopic, kind, aggregateID, event)
}

func (d *OutboxDispatcher) Audit(ctx context.Context, actorID uuid.UUID, action string, entityID uuid.UUID) {
	event := events.AttendanceAuditEvent{
		EventType:  action,
		RequestID:  contextutil.GetRequestID(ctx),
		ActorID:    actorID.String(),
		Action:     action,
		EntityID:   entityID.String(),
		OccurredAt: d.now().UTC(),
	}
	d.enqueue(ctx, events.AttendanceAuditTopic, action, entityID.String(), event)
}

func (d *OutboxDispatcher) enqueue(ctx context.Context, topic, eventType, aggregateID string, event any) {
	// The caller's request may already be finished; the side effect must not
	// depend on its cancellation.
	ctx = context.WithoutCancel(ctx)

	payload, err := json.Marshal(event)
	if err != nil {
		d.logger.Error("marshal side effect failed", zap.String("event_type", eventType), zap.Error(err))
		return
	}

	if err := d.outbox.Create(ctx, kafka.OutboxEvent{
		ID:            uuid.NewString(),
		RequestID:     contextutil.GetRequestID(ctx),
		AggregateType: aggregateAttendance,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Topic:         topic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	}); err != nil {
		d.logger.Error("queue side effect failed",
			zap.String("event_type", eventType),
			zap.String("aggregate_id", aggregateID),
			zap.Error(err),
		)
		return
	}

	d.logger.Debug("side effect queued",
		zap.String("event_type", eventType),
		zap.String("aggregate_id", aggregateID),
	)
}
