package dispatch

import (
	"context"

	"github.com/One-johnson/sheepshep-sub001/internal/bootstrap"

	"github.com/google/uuid"
)

// AuditLogDispatcher writes audit entries straight to the process audit log.
// Notifications are not its concern and are dropped.
type AuditLogDispatcher struct {
	sink bootstrap.AuditLogger
}

func NewAuditLogDispatcher(sink bootstrap.AuditLogger) *AuditLogDispatcher {
	return &AuditLogDispatcher{sink: sink}
}

func (d *AuditLogDispatcher) Notify(context.Context, uuid.UUID, string, map[string]any) {}

func (d *AuditLogDispatcher) Audit(ctx context.Context, actorID uuid.UUID, action string, entityID uuid.UUID) {
	d.sink.Log(ctx, bootstrap.AuditLog{
		Action:  action,
		Message: "attendance record " + action,
		Meta: map[string]any{
			"actor_id":  actorID.String(),
			"entity_id": entityID.String(),
		},
	})
}
