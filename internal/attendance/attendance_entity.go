package attendance

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UniqueKeyIndex enforces one record per (subject, date, group).
const UniqueKeyIndex = "uq_attendance_subject_date_group"

type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusAbsent  AttendanceStatus = "absent"
	StatusExcused AttendanceStatus = "excused"
	StatusLate    AttendanceStatus = "late"
)

func ParseAttendanceStatus(v string) (AttendanceStatus, error) {
	switch s := AttendanceStatus(strings.ToLower(strings.TrimSpace(v))); s {
	case StatusPresent, StatusAbsent, StatusExcused, StatusLate:
		return s, nil
	default:
		return "", fmt.Errorf("unknown attendance status %q", v)
	}
}

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

func ParseApprovalStatus(v string) (ApprovalStatus, error) {
	switch s := ApprovalStatus(strings.ToLower(strings.TrimSpace(v))); s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return s, nil
	default:
		return "", fmt.Errorf("unknown approval status %q", v)
	}
}

type SubjectKind string

const (
	SubjectMember SubjectKind = "member"
	SubjectUser   SubjectKind = "user"
)

func ParseSubjectKind(v string) (SubjectKind, error) {
	switch k := SubjectKind(strings.ToLower(strings.TrimSpace(v))); k {
	case SubjectMember, SubjectUser:
		return k, nil
	default:
		return "", fmt.Errorf("unknown subject kind %q", v)
	}
}

// SubjectRef names who a record is about: a member, or a user (shepherd).
type SubjectRef struct {
	Kind SubjectKind
	ID   uuid.UUID
}

func MemberSubject(id uuid.UUID) SubjectRef { return SubjectRef{Kind: SubjectMember, ID: id} }
func UserSubject(id uuid.UUID) SubjectRef   { return SubjectRef{Kind: SubjectUser, ID: id} }

type Attendance struct {
	ID              uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	SubjectKind     SubjectKind      `gorm:"column:subject_kind;type:varchar(10);not null;uniqueIndex:uq_attendance_subject_date_group,priority:1"`
	SubjectID       uuid.UUID        `gorm:"column:subject_id;type:uuid;not null;uniqueIndex:uq_attendance_subject_date_group,priority:2"`
	AttendanceDate  time.Time        `gorm:"column:attendance_date;type:date;not null;uniqueIndex:uq_attendance_subject_date_group,priority:3;index:idx_attendance_date"`
	GroupKey        string           `gorm:"column:group_key;type:varchar(36);not null;default:'';uniqueIndex:uq_attendance_subject_date_group,priority:4"`
	GroupID         *uuid.UUID       `gorm:"column:group_id;type:uuid;index:idx_attendance_group"`
	Status          AttendanceStatus `gorm:"column:attendance_status;type:varchar(10);not null"`
	Notes           *string          `gorm:"column:notes;type:text"`
	SubmittedBy     uuid.UUID        `gorm:"column:submitted_by;type:uuid;not null;index:idx_attendance_submitted_by"`
	SubmittedAt     time.Time        `gorm:"column:submitted_at;not null"`
	ApprovalStatus  ApprovalStatus   `gorm:"column:approval_status;type:varchar(10);not null;default:'pending';index:idx_attendance_approval_status"`
	ApprovedBy      *uuid.UUID       `gorm:"column:approved_by;type:uuid"`
	ApprovedAt      *time.Time       `gorm:"column:approved_at"`
	RejectionReason *string          `gorm:"column:rejection_reason;type:text"`
	CreatedAt       time.Time        `gorm:"column:created_at"`
	UpdatedAt       time.Time        `gorm:"column:updated_at"`
}

func (Attendance) TableName() string {
	return "attendance_records"
}

func (a Attendance) Subject() SubjectRef {
	return SubjectRef{Kind: a.SubjectKind, ID: a.SubjectID}
}

// checkInvariants verifies the approval fields agree with the approval status.
func (a Attendance) checkInvariants() error {
	if a.SubjectID == uuid.Nil {
		return fmt.Errorf("attendance %s: subject is required", a.ID)
	}
	if (a.GroupID == nil) != (a.GroupKey == "") {
		return fmt.Errorf("attendance %s: group key out of sync", a.ID)
	}

	hasApproval := a.ApprovedBy != nil && a.ApprovedAt != nil
	hasPartialApproval := (a.ApprovedBy != nil) != (a.ApprovedAt != nil)
	hasReason := a.RejectionReason != nil && strings.TrimSpace(*a.RejectionReason) != ""

	switch a.ApprovalStatus {
	case ApprovalPending:
		if hasApproval || hasPartialApproval || a.RejectionReason != nil {
			return fmt.Errorf("attendance %s: pending record carries approval data", a.ID)
		}
	case ApprovalApproved:
		if !hasApproval || a.RejectionReason != nil {
			return fmt.Errorf("attendance %s: approved record needs approver and no rejection reason", a.ID)
		}
	case ApprovalRejected:
		if !hasReason || hasApproval || hasPartialApproval {
			return fmt.Errorf("attendance %s: rejected record needs a reason and no approver", a.ID)
		}
	default:
		return fmt.Errorf("attendance %s: unknown approval status %q", a.ID, a.ApprovalStatus)
	}
	return nil
}

// NormalizeDate drops the time of day, keeping the calendar date of t in its
// own location, and returns it as UTC midnight.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// groupKeyOf maps an optional group to the non-null unique-index column, so
// "no group" is a value of its own.
func groupKeyOf(groupID *uuid.UUID) string {
	if groupID == nil {
		return ""
	}
	return groupID.String()
}
