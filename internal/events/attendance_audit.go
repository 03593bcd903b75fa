package events

import "time"

const AttendanceAuditTopic = "sheepshep.attendance.audit.v1"

const (
	AuditAttendanceCreate  = "attendance.create"
	AuditAttendanceApprove = "attendance.approve"
	AuditAttendanceReject  = "attendance.reject"
	AuditAttendanceDelete  = "attendance.delete"
)

type AttendanceAuditEvent struct {
	EventType  string    `json:"event_type"`
	RequestID  string    `json:"request_id,omitempty"`
	ActorID    string    `json:"actor_id"`
	Action     string    `json:"action"`
	EntityID   string    `json:"entity_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
