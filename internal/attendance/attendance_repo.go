package attendance

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListScope restricts List to what a non-admin actor may see. A record is
// visible when it was submitted by SubmittedBy or its subject falls in one
// of the id sets.
type ListScope struct {
	OnlyKind    *SubjectKind
	SubmittedBy uuid.UUID
	MemberIDs   []uuid.UUID
	GroupIDs    []uuid.UUID
	UserIDs     []uuid.UUID
}

type ListQuery struct {
	Date             *time.Time
	From             *time.Time
	To               *time.Time
	ApprovalStatus   *ApprovalStatus
	AttendanceStatus *AttendanceStatus
	SubjectKind      *SubjectKind
	GroupID          *uuid.UUID
	// Scope nil means unrestricted.
	Scope *ListScope
}

//go:generate mockgen -source=attendance_repo.go -destination=mock/attendance_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, a *Attendance) error
	FindByID(ctx context.Context, id uuid.UUID) (*Attendance, error)
	FindBySubjectKey(ctx context.Context, subject SubjectRef, date time.Time, groupKey string) (*Attendance, error)
	FindExisting(ctx context.Context, kind SubjectKind, subjectIDs []uuid.UUID, date time.Time, groupKey string) ([]Attendance, error)
	List(ctx context.Context, q ListQuery) ([]Attendance, error)
	UpdateApproval(ctx context.Context, a *Attendance) (bool, error)
	DeleteWithStatus(ctx context.Context, id uuid.UUID, status ApprovalStatus) (bool, error)
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

// conn runs statements on the bound transaction when there is one.
func (r *repository) conn(ctx context.Context) *gorm.DB {
	db := r.db.WithContext(ctx)
	if r.tx != nil {
		db.Statement.ConnPool = r.tx
	}
	return db
}

func (r *repository) Create(ctx context.Context, a *Attendance) error {
	return mapRepositoryError(r.conn(ctx).Create(a).Error)
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*Attendance, error) {
	var a Attendance
	if err := r.conn(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, mapRepositoryError(err)
	}
	return &a, nil
}

func (r *repository) FindBySubjectKey(ctx context.Context, subject SubjectRef, date time.Time, groupKey string) (*Attendance, error) {
	var a Attendance
	err := r.conn(ctx).
		Where("subject_kind = ? AND subject_id = ?", subject.Kind, subject.ID).
		Where("attendance_date = ? AND group_key = ?", NormalizeDate(date), groupKey).
		First(&a).Error
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return &a, nil
}

func (r *repository) FindExisting(ctx context.Context, kind SubjectKind, subjectIDs []uuid.UUID, date time.Time, groupKey string) ([]Attendance, error) {
	rows := []Attendance{}
	if len(subjectIDs) == 0 {
		return rows, nil
	}
	err := r.conn(ctx).
		Where("subject_kind = ? AND subject_id IN ?", kind, idStrings(subjectIDs)).
		Where("attendance_date = ? AND group_key = ?", NormalizeDate(date), groupKey).
		Find(&rows).Error
	return rows, err
}

func (r *repository) List(ctx context.Context, q ListQuery) ([]Attendance, error) {
	db := r.conn(ctx).Model(&Attendance{})

	if q.Date != nil {
		db = db.Where("attendance_date = ?", NormalizeDate(*q.Date))
	}
	if q.From != nil {
		db = db.Where("attendance_date >= ?", NormalizeDate(*q.From))
	}
	if q.To != nil {
		db = db.Where("attendance_date <= ?", NormalizeDate(*q.To))
	}
	if q.ApprovalStatus != nil {
		db = db.Where("approval_status = ?", *q.ApprovalStatus)
	}
	if q.AttendanceStatus != nil {
		db = db.Where("attendance_status = ?", *q.AttendanceStatus)
	}
	if q.SubjectKind != nil {
		db = db.Where("subject_kind = ?", *q.SubjectKind)
	}
	if q.GroupID != nil {
		db = db.Where("group_id = ?", *q.GroupID)
	}

	if s := q.Scope; s != nil {
		if s.OnlyKind != nil {
			db = db.Where("subject_kind = ?", *s.OnlyKind)
		}
		visible := r.db.Where("submitted_by = ?", s.SubmittedBy)
		if len(s.MemberIDs) > 0 {
			visible = visible.Or("subject_kind = ? AND subject_id IN ?", SubjectMember, idStrings(s.MemberIDs))
		}
		if len(s.GroupIDs) > 0 {
			visible = visible.Or("subject_kind = ? AND group_id IN ?", SubjectMember, idStrings(s.GroupIDs))
		}
		if len(s.UserIDs) > 0 {
			visible = visible.Or("subject_kind = ? AND subject_id IN ?", SubjectUser, idStrings(s.UserIDs))
		}
		db = db.Where(visible)
	}

	rows := []Attendance{}
	err := db.Order("attendance_date DESC").Order("submitted_at DESC").Find(&rows).Error
	return rows, err
}

// UpdateApproval writes the approval fields of a only if the stored record is
// still pending. It reports whether a row changed.
func (r *repository) UpdateApproval(ctx context.Context, a *Attendance) (bool, error) {
	res := r.conn(ctx).
		Model(&Attendance{}).
		Where("id = ? AND approval_status = ?", a.ID, ApprovalPending).
		Updates(map[string]any{
			"approval_status":  a.ApprovalStatus,
			"approved_by":      a.ApprovedBy,
			"approved_at":      a.ApprovedAt,
			"rejection_reason": a.RejectionReason,
			"updated_at":       a.UpdatedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DeleteWithStatus removes the record only if it is still in status.
func (r *repository) DeleteWithStatus(ctx context.Context, id uuid.UUID, status ApprovalStatus) (bool, error) {
	res := r.conn(ctx).
		Where("id = ? AND approval_status = ?", id, status).
		Delete(&Attendance{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
