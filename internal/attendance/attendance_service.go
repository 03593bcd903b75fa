package attendance

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	attendanceerrors "github.com/One-johnson/sheepshep-sub001/internal/attendance/errors"
	"github.com/One-johnson/sheepshep-sub001/internal/dispatch"
	"github.com/One-johnson/sheepshep-sub001/internal/domain"
	"github.com/One-johnson/sheepshep-sub001/internal/roster"
	"github.com/One-johnson/sheepshep-sub001/internal/shared/apperror"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

//go:generate mockgen -source=attendance_service.go -destination=mock/attendance_service_mock.go -package=mock
type Service interface {
	CheckExisting(ctx context.Context, actor domain.Actor, req CheckExistingRequest) (map[string]ExistingMark, error)
	Create(ctx context.Context, actor domain.Actor, req CreateAttendanceRequest) (AttendanceResponse, error)
	BulkCreate(ctx context.Context, actor domain.Actor, req BulkCreateAttendanceRequest) (BulkCreateResponse, error)
	GetByID(ctx context.Context, actor domain.Actor, id string) (AttendanceResponse, error)
	List(ctx context.Context, actor domain.Actor, filter ListAttendanceFilter) ([]AttendanceResponse, error)
	Approve(ctx context.Context, actor domain.Actor, id string) (AttendanceResponse, error)
	Reject(ctx context.Context, actor domain.Actor, id, reason string) (AttendanceResponse, error)
	Remove(ctx context.Context, actor domain.Actor, id string) error
	BulkDelete(ctx context.Context, actor domain.Actor, req BulkDeleteAttendanceRequest) (BulkDeleteResponse, error)
}

type service struct {
	db         *sql.DB
	repo       Repository
	gate       *Gate
	roster     roster.Provider
	dispatcher dispatch.Dispatcher
	now        func() time.Time
	logger     *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	gate *Gate,
	rosterProvider roster.Provider,
	dispatcher dispatch.Dispatcher,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("attendance.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("attendance.service")
	}
	if dispatcher == nil {
		dispatcher = dispatch.Noop()
	}
	return &service{
		db:         db,
		repo:       repo,
		gate:       gate,
		roster:     rosterProvider,
		dispatcher: dispatcher,
		now:        time.Now,
		logger:     l,
	}
}

// candidate is a validated submission.
type candidate struct {
	subject SubjectRef
	date    time.Time
	groupID *uuid.UUID
	status  AttendanceStatus
	notes   *string
}

func parseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(dateLayout, v); err == nil {
		return NormalizeDate(t), nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return NormalizeDate(t), nil
	}
	return time.Time{}, attendanceerrors.ErrInvalidDateFormat
}

func parseOptionalID(v *string, invalid error) (*uuid.UUID, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*v))
	if err != nil {
		return nil, invalid
	}
	return &id, nil
}

func parseCandidate(req CreateAttendanceRequest) (candidate, error) {
	memberID, err := parseOptionalID(req.MemberID, attendanceerrors.ErrInvalidSubject)
	if err != nil {
		return candidate{}, err
	}
	userID, err := parseOptionalID(req.UserID, attendanceerrors.ErrInvalidSubject)
	if err != nil {
		return candidate{}, err
	}

	var c candidate
	switch {
	case memberID != nil && userID == nil:
		c.subject = MemberSubject(*memberID)
	case userID != nil && memberID == nil:
		c.subject = UserSubject(*userID)
	default:
		return candidate{}, attendanceerrors.ErrInvalidSubject
	}

	if c.date, err = parseDate(req.Date); err != nil {
		return candidate{}, err
	}

	if c.status, err = ParseAttendanceStatus(req.AttendanceStatus); err != nil {
		return candidate{}, attendanceerrors.ErrInvalidAttendanceStatus
	}

	if req.Notes != nil {
		if n := strings.TrimSpace(*req.Notes); n != "" {
			c.notes = &n
		}
	}
	if c.status != StatusPresent && c.notes == nil {
		return candidate{}, attendanceerrors.ErrNotesRequired
	}

	if c.groupID, err = parseOptionalID(req.GroupID, attendanceerrors.ErrInvalidGroupID); err != nil {
		return candidate{}, err
	}
	if c.groupID != nil && c.subject.Kind != SubjectMember {
		return candidate{}, attendanceerrors.ErrGroupRequiresMember
	}
	return c, nil
}

// initialApproval decides the approval status of a new record. Admins are
// always approved; pastors and shepherds follow autoApprove, default true,
// except on their own attendance, which always waits for a reviewer.
func initialApproval(actor domain.Actor, subject SubjectRef, autoApprove *bool) ApprovalStatus {
	switch actor.Role {
	case domain.RoleAdmin:
		return ApprovalApproved
	case domain.RolePastor, domain.RoleShepherd:
		if subject.Kind == SubjectUser && subject.ID == actor.ID {
			return ApprovalPending
		}
		if autoApprove == nil || *autoApprove {
			return ApprovalApproved
		}
		return ApprovalPending
	default:
		return ApprovalPending
	}
}

func (s *service) Create(ctx context.Context, actor domain.Actor, req CreateAttendanceRequest) (AttendanceResponse, error) {
	s.logger.Debug("create attendance requested",
		zap.String("actor_id", actor.ID.String()),
		zap.String("role", actor.Role.String()),
		zap.String("date", req.Date),
	)

	rec, err := s.createOne(ctx, actor, req, req.AutoApprove)
	if err != nil {
		return AttendanceResponse{}, err
	}
	s.afterCreate(ctx, actor, rec)
	return mapToResponse(*rec), nil
}

func (s *service) BulkCreate(ctx context.Context, actor domain.Actor, req BulkCreateAttendanceRequest) (BulkCreateResponse, error) {
	resp := BulkCreateResponse{IDs: []string{}, Errors: []BulkItemError{}}

	for i, item := range req.Records {
		autoApprove := item.AutoApprove
		if autoApprove == nil {
			autoApprove = req.AutoApprove
		}

		rec, err := s.createOne(ctx, actor, item, autoApprove)
		if err != nil {
			kind, subjectID := rawSubject(item)
			resp.Errors = append(resp.Errors, BulkItemError{
				Index:       i + 1,
				SubjectKind: kind,
				SubjectID:   subjectID,
				Code:        apperror.CodeOf(err),
				Error:       apperror.MessageOf(err),
			})
			continue
		}

		resp.Created++
		resp.IDs = append(resp.IDs, rec.ID.String())
		s.afterCreate(ctx, actor, rec)
	}

	s.logger.Info("bulk create attendance finished",
		zap.String("actor_id", actor.ID.String()),
		zap.Int("requested", len(req.Records)),
		zap.Int("created", resp.Created),
		zap.Int("failed", len(resp.Errors)),
	)
	return resp, nil
}

func rawSubject(req CreateAttendanceRequest) (string, string) {
	switch {
	case req.MemberID != nil && *req.MemberID != "":
		return string(SubjectMember), *req.MemberID
	case req.UserID != nil && *req.UserID != "":
		return string(SubjectUser), *req.UserID
	default:
		return "", ""
	}
}

// createOne validates, authorizes and stores one submission. Side effects are
// left to the caller so they run after the commit.
func (s *service) createOne(ctx context.Context, actor domain.Actor, req CreateAttendanceRequest, autoApprove *bool) (*Attendance, error) {
	c, err := parseCandidate(req)
	if err != nil {
		s.logger.Warn("create attendance validation failed", zap.Error(err))
		return nil, err
	}

	allowed, err := s.gate.CanSubmit(ctx, actor, c.subject, c.groupID)
	if err != nil {
		s.logger.Error("create attendance authorization failed", zap.Error(err))
		return nil, err
	}
	if !allowed {
		s.logger.Warn("create attendance denied",
			zap.String("actor_id", actor.ID.String()),
			zap.String("subject_kind", string(c.subject.Kind)),
			zap.String("subject_id", c.subject.ID.String()),
		)
		return nil, attendanceerrors.ErrUnauthorized
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("create attendance begin tx failed", zap.Error(err))
		return nil, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	groupKey := groupKeyOf(c.groupID)
	existing, err := qtx.FindBySubjectKey(ctx, c.subject, c.date, groupKey)
	switch {
	case err == nil && existing != nil:
		return nil, attendanceerrors.ErrAlreadyMarked
	case err != nil && !errors.Is(err, attendanceerrors.ErrNotFound):
		s.logger.Error("create attendance existing check failed", zap.Error(err))
		return nil, err
	}

	now := s.now().UTC()
	rec := &Attendance{
		ID:             uuid.New(),
		SubjectKind:    c.subject.Kind,
		SubjectID:      c.subject.ID,
		AttendanceDate: c.date,
		GroupKey:       groupKey,
		GroupID:        c.groupID,
		Status:         c.status,
		Notes:          c.notes,
		SubmittedBy:    actor.ID,
		SubmittedAt:    now,
		ApprovalStatus: initialApproval(actor, c.subject, autoApprove),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if rec.ApprovalStatus == ApprovalApproved {
		approver := actor.ID
		rec.ApprovedBy = &approver
		rec.ApprovedAt = &now
	}
	if err := rec.checkInvariants(); err != nil {
		return nil, err
	}

	if err := qtx.Create(ctx, rec); err != nil {
		if errors.Is(err, attendanceerrors.ErrAlreadyMarked) {
			s.logger.Info("create attendance lost unique race",
				zap.String("subject_id", c.subject.ID.String()),
				zap.Time("date", c.date),
			)
			return nil, err
		}
		s.logger.Error("create attendance persist failed", zap.Error(err))
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("create attendance commit failed", zap.Error(err))
		return nil, mapRepositoryError(err)
	}

	s.logger.Info("create attendance success",
		zap.String("attendance_id", rec.ID.String()),
		zap.String("subject_kind", string(rec.SubjectKind)),
		zap.String("subject_id", rec.SubjectID.String()),
		zap.String("approval_status", string(rec.ApprovalStatus)),
	)
	return rec, nil
}

func (s *service) CheckExisting(ctx context.Context, actor domain.Actor, req CheckExistingRequest) (map[string]ExistingMark, error) {
	kind, err := ParseSubjectKind(req.SubjectKind)
	if err != nil {
		return nil, attendanceerrors.ErrInvalidSubjectKind
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	groupID, err := parseOptionalID(req.GroupID, attendanceerrors.ErrInvalidGroupID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(req.SubjectIDs))
	for _, raw := range req.SubjectIDs {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return nil, attendanceerrors.ErrInvalidSubject
		}
		ids = append(ids, id)
	}

	rows, err := s.repo.FindExisting(ctx, kind, ids, date, groupKeyOf(groupID))
	if err != nil {
		s.logger.Error("check existing attendance failed", zap.Error(err))
		return nil, err
	}

	out := make(map[string]ExistingMark, len(rows))
	for i := range rows {
		rec := &rows[i]
		visible, err := s.gate.CanView(ctx, actor, rec)
		if err != nil {
			return nil, err
		}
		if !visible {
			continue
		}
		out[rec.SubjectID.String()] = ExistingMark{
			RecordID:         rec.ID.String(),
			AttendanceStatus: string(rec.Status),
			ApprovalStatus:   string(rec.ApprovalStatus),
		}
	}
	return out, nil
}

func parseRecordID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return uuid.Nil, attendanceerrors.ErrInvalidRecordID
	}
	return parsed, nil
}

// GetByID hides records the actor may not view behind NotFound.
func (s *service) GetByID(ctx context.Context, actor domain.Actor, id string) (AttendanceResponse, error) {
	recordID, err := parseRecordID(id)
	if err != nil {
		return AttendanceResponse{}, err
	}

	rec, err := s.repo.FindByID(ctx, recordID)
	if err != nil {
		return AttendanceResponse{}, err
	}

	visible, err := s.gate.CanView(ctx, actor, rec)
	if err != nil {
		return AttendanceResponse{}, err
	}
	if !visible {
		return AttendanceResponse{}, attendanceerrors.ErrNotFound
	}
	return mapToResponse(*rec), nil
}

func (s *service) List(ctx context.Context, actor domain.Actor, filter ListAttendanceFilter) ([]AttendanceResponse, error) {
	q, err := buildListQuery(filter)
	if err != nil {
		return nil, err
	}

	if q.Scope, err = s.gate.ListScope(ctx, actor); err != nil {
		s.logger.Error("list attendance scope failed", zap.Error(err))
		return nil, err
	}

	rows, err := s.repo.List(ctx, q)
	if err != nil {
		s.logger.Error("list attendance failed", zap.Error(err))
		return nil, err
	}
	return mapToListResponse(rows), nil
}

func buildListQuery(f ListAttendanceFilter) (ListQuery, error) {
	var q ListQuery

	dateField := func(v string) (*time.Time, error) {
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		t, err := parseDate(v)
		if err != nil {
			return nil, err
		}
		return &t, nil
	}

	var err error
	if q.Date, err = dateField(f.Date); err != nil {
		return q, err
	}
	if q.From, err = dateField(f.From); err != nil {
		return q, err
	}
	if q.To, err = dateField(f.To); err != nil {
		return q, err
	}
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return q, attendanceerrors.ErrInvalidDateRange
	}

	if f.ApprovalStatus != "" {
		st, err := ParseApprovalStatus(f.ApprovalStatus)
		if err != nil {
			return q, attendanceerrors.ErrInvalidApprovalStatus
		}
		q.ApprovalStatus = &st
	}
	if f.AttendanceStatus != "" {
		st, err := ParseAttendanceStatus(f.AttendanceStatus)
		if err != nil {
			return q, attendanceerrors.ErrInvalidAttendanceStatus
		}
		q.AttendanceStatus = &st
	}
	if f.SubjectKind != "" {
		kind, err := ParseSubjectKind(f.SubjectKind)
		if err != nil {
			return q, attendanceerrors.ErrInvalidSubjectKind
		}
		q.SubjectKind = &kind
	}
	if q.GroupID, err = parseOptionalID(&f.GroupID, attendanceerrors.ErrInvalidGroupID); err != nil {
		return q, err
	}
	return q, nil
}
