package attendance

import (
	"context"
	"strings"

	attendanceerrors "github.com/One-johnson/sheepshep-sub001/internal/attendance/errors"
	"github.com/One-johnson/sheepshep-sub001/internal/domain"
	"github.com/One-johnson/sheepshep-sub001/internal/events"
	"github.com/One-johnson/sheepshep-sub001/internal/shared/apperror"

	"go.uber.org/zap"
)

// canTransition encodes the approval state machine: pending moves to
// approved or rejected, both terminal.
func canTransition(from, to ApprovalStatus) bool {
	switch from {
	case ApprovalPending:
		return to == ApprovalApproved || to == ApprovalRejected
	case ApprovalApproved, ApprovalRejected:
		return false
	default:
		return false
	}
}

func (s *service) Approve(ctx context.Context, actor domain.Actor, id string) (AttendanceResponse, error) {
	return s.transitionApproval(ctx, actor, id, ApprovalApproved, "")
}

func (s *service) Reject(ctx context.Context, actor domain.Actor, id, reason string) (AttendanceResponse, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return AttendanceResponse{}, attendanceerrors.ErrRejectionReasonRequired
	}
	return s.transitionApproval(ctx, actor, id, ApprovalRejected, reason)
}

func (s *service) transitionApproval(ctx context.Context, actor domain.Actor, id string, target ApprovalStatus, reason string) (AttendanceResponse, error) {
	s.logger.Debug("attendance approval transition requested",
		zap.String("attendance_id", id),
		zap.String("actor_id", actor.ID.String()),
		zap.String("target_status", string(target)),
	)

	recordID, err := parseRecordID(id)
	if err != nil {
		return AttendanceResponse{}, err
	}

	rec, err := s.repo.FindByID(ctx, recordID)
	if err != nil {
		return AttendanceResponse{}, err
	}
	if !canTransition(rec.ApprovalStatus, target) {
		s.logger.Warn("attendance approval invalid transition",
			zap.String("attendance_id", id),
			zap.String("from_status", string(rec.ApprovalStatus)),
			zap.String("to_status", string(target)),
		)
		return AttendanceResponse{}, attendanceerrors.ErrNotPending
	}

	allowed, err := s.gate.CanApprove(ctx, actor, rec)
	if err != nil {
		s.logger.Error("attendance approval authorization failed", zap.Error(err))
		return AttendanceResponse{}, err
	}
	if !allowed {
		return AttendanceResponse{}, attendanceerrors.ErrUnauthorized
	}

	now := s.now().UTC()
	rec.ApprovalStatus = target
	rec.UpdatedAt = now
	switch target {
	case ApprovalApproved:
		approver := actor.ID
		rec.ApprovedBy = &approver
		rec.ApprovedAt = &now
		rec.RejectionReason = nil
	case ApprovalRejected:
		rec.ApprovedBy = nil
		rec.ApprovedAt = nil
		rec.RejectionReason = &reason
	}
	if err := rec.checkInvariants(); err != nil {
		return AttendanceResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("attendance approval begin tx failed", zap.Error(err))
		return AttendanceResponse{}, err
	}
	defer tx.Rollback()

	updated, err := s.repo.WithTx(tx).UpdateApproval(ctx, rec)
	if err != nil {
		s.logger.Error("attendance approval persist failed", zap.Error(err))
		return AttendanceResponse{}, err
	}
	if !updated {
		// another request decided the record first
		return AttendanceResponse{}, attendanceerrors.ErrNotPending
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("attendance approval commit failed", zap.Error(err))
		return AttendanceResponse{}, err
	}

	s.logger.Info("attendance approval transition success",
		zap.String("attendance_id", rec.ID.String()),
		zap.String("status", string(target)),
		zap.String("actor_id", actor.ID.String()),
	)
	s.afterDecision(ctx, actor, rec)
	return mapToResponse(*rec), nil
}

func (s *service) Remove(ctx context.Context, actor domain.Actor, id string) error {
	recordID, err := parseRecordID(id)
	if err != nil {
		return err
	}

	rec, err := s.repo.FindByID(ctx, recordID)
	if err != nil {
		return err
	}

	allowed, err := s.gate.CanDelete(ctx, actor, rec)
	if err != nil {
		s.logger.Error("delete attendance authorization failed", zap.Error(err))
		return err
	}
	if !allowed {
		s.logger.Warn("delete attendance denied",
			zap.String("attendance_id", id),
			zap.String("actor_id", actor.ID.String()),
			zap.String("approval_status", string(rec.ApprovalStatus)),
		)
		return attendanceerrors.ErrUnauthorized
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("delete attendance begin tx failed", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	deleted, err := s.repo.WithTx(tx).DeleteWithStatus(ctx, rec.ID, rec.ApprovalStatus)
	if err != nil {
		s.logger.Error("delete attendance persist failed", zap.Error(err))
		return err
	}
	if !deleted {
		return attendanceerrors.ErrRecordChanged
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("delete attendance commit failed", zap.Error(err))
		return err
	}

	s.logger.Info("delete attendance success",
		zap.String("attendance_id", rec.ID.String()),
		zap.String("actor_id", actor.ID.String()),
	)
	s.dispatcher.Audit(ctx, actor.ID, events.AuditAttendanceDelete, rec.ID)
	return nil
}

func (s *service) BulkDelete(ctx context.Context, actor domain.Actor, req BulkDeleteAttendanceRequest) (BulkDeleteResponse, error) {
	resp := BulkDeleteResponse{IDs: []string{}, Errors: []BulkDeleteError{}}
	for i, id := range req.IDs {
		if err := s.Remove(ctx, actor, id); err != nil {
			resp.Errors = append(resp.Errors, BulkDeleteError{
				Index: i + 1,
				ID:    id,
				Code:  apperror.CodeOf(err),
				Error: apperror.MessageOf(err),
			})
			continue
		}
		resp.Deleted++
		resp.IDs = append(resp.IDs, id)
	}

	s.logger.Info("bulk delete attendance finished",
		zap.String("actor_id", actor.ID.String()),
		zap.Int("requested", len(req.IDs)),
		zap.Int("deleted", resp.Deleted),
	)
	return resp, nil
}
