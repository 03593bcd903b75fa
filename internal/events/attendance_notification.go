package events

import "time"

const AttendanceNotificationTopic = "sheepshep.attendance.notifications.v1"

const (
	NotifyAttendancePending  = "attendance.pending"
	NotifyAttendanceApproved = "attendance.approved"
	NotifyAttendanceRejected = "attendance.rejected"
)

type AttendanceNotificationEvent struct {
	EventType    string         `json:"event_type"`
	RequestID    string         `json:"request_id,omitempty"`
	TargetUserID string         `json:"target_user_id"`
	Payload      map[string]any `json:"payload,omitempty"`
	OccurredAt   time.Time      `json:"occurred_at"`
}
