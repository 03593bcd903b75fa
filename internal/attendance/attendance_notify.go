package attendance

import (
	"context"

	"github.com/One-johnson/sheepshep-sub001/internal/domain"
	"github.com/One-johnson/sheepshep-sub001/internal/events"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func recordPayload(rec *Attendance) map[string]any {
	return map[string]any{
		"record_id":         rec.ID.String(),
		"subject_kind":      string(rec.SubjectKind),
		"subject_id":        rec.SubjectID.String(),
		"date":              rec.AttendanceDate.UTC().Format(dateLayout),
		"attendance_status": string(rec.Status),
		"approval_status":   string(rec.ApprovalStatus),
		"submitted_by":      rec.SubmittedBy.String(),
	}
}

func (s *service) afterCreate(ctx context.Context, actor domain.Actor, rec *Attendance) {
	s.dispatcher.Audit(ctx, actor.ID, events.AuditAttendanceCreate, rec.ID)
	if rec.ApprovalStatus != ApprovalPending {
		return
	}

	payload := recordPayload(rec)
	for _, target := range s.reviewersFor(ctx, rec) {
		if target == actor.ID {
			continue
		}
		s.dispatcher.Notify(ctx, target, events.NotifyAttendancePending, payload)
	}
}

func (s *service) afterDecision(ctx context.Context, actor domain.Actor, rec *Attendance) {
	action := events.AuditAttendanceApprove
	kind := events.NotifyAttendanceApproved
	payload := recordPayload(rec)
	if rec.ApprovalStatus == ApprovalRejected {
		action = events.AuditAttendanceReject
		kind = events.NotifyAttendanceRejected
		if rec.RejectionReason != nil {
			payload["reason"] = *rec.RejectionReason
		}
	}

	s.dispatcher.Audit(ctx, actor.ID, action, rec.ID)
	if rec.SubmittedBy != actor.ID {
		s.dispatcher.Notify(ctx, rec.SubmittedBy, kind, payload)
	}
}

// reviewersFor picks who is told about a pending record: the overseeing
// pastor for shepherd attendance, admins otherwise. Lookup failures only
// cost the notification.
func (s *service) reviewersFor(ctx context.Context, rec *Attendance) []uuid.UUID {
	if rec.SubjectKind == SubjectUser {
		overseer, err := s.roster.GetOversightEdge(ctx, rec.SubjectID)
		if err != nil {
			s.logger.Warn("pending notification overseer lookup failed",
				zap.String("attendance_id", rec.ID.String()),
				zap.Error(err),
			)
		} else if overseer != uuid.Nil {
			return []uuid.UUID{overseer}
		}
	}

	admins, err := s.roster.ListAdmins(ctx)
	if err != nil {
		s.logger.Warn("pending notification admin lookup failed",
			zap.String("attendance_id", rec.ID.String()),
			zap.Error(err),
		)
		return nil
	}
	return admins
}
