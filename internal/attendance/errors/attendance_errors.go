package attendanceerrors

import (
	"net/http"

	"github.com/One-johnson/sheepshep-sub001/internal/shared/apperror"
)

// Messages are stable: batch callers match on them.
const (
	MsgAlreadyMarked = "already marked"
	MsgUnauthorized  = "not authorized for this attendance record"
	MsgNotPending    = "attendance record is not pending"
	MsgNotFound      = "attendance record not found"
)

var (
	ErrUnauthorized = apperror.New(
		apperror.CodeForbidden,
		MsgUnauthorized,
		http.StatusForbidden,
	)
	ErrAlreadyMarked = apperror.New(
		apperror.CodeConflict,
		MsgAlreadyMarked,
		http.StatusConflict,
	)
	ErrNotPending = apperror.New(
		apperror.CodeInvalidState,
		MsgNotPending,
		http.StatusConflict,
	)
	ErrRecordChanged = apperror.New(
		apperror.CodeInvalidState,
		"attendance record was changed by another request",
		http.StatusConflict,
	)
	ErrNotFound = apperror.New(
		apperror.CodeNotFound,
		MsgNotFound,
		http.StatusNotFound,
	)

	ErrNotesRequired = apperror.New(
		apperror.CodeInvalidInput,
		"notes are required when status is not present",
		http.StatusBadRequest,
	)
	ErrRejectionReasonRequired = apperror.New(
		apperror.CodeInvalidInput,
		"rejection reason is required",
		http.StatusBadRequest,
	)
	ErrInvalidSubject = apperror.New(
		apperror.CodeInvalidInput,
		"exactly one of member_id or user_id is required",
		http.StatusBadRequest,
	)
	ErrGroupRequiresMember = apperror.New(
		apperror.CodeInvalidInput,
		"group_id is only allowed for member attendance",
		http.StatusBadRequest,
	)
	ErrInvalidGroupID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid group id",
		http.StatusBadRequest,
	)
	ErrInvalidRecordID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid attendance record id",
		http.StatusBadRequest,
	)
	ErrInvalidDateFormat = apperror.New(
		apperror.CodeInvalidInput,
		"invalid date format, expected YYYY-MM-DD",
		http.StatusBadRequest,
	)
	ErrInvalidDateRange = apperror.New(
		apperror.CodeInvalidInput,
		"from must not be after to",
		http.StatusBadRequest,
	)
	ErrInvalidAttendanceStatus = apperror.New(
		apperror.CodeInvalidInput,
		"attendance_status must be one of present, absent, excused, late",
		http.StatusBadRequest,
	)
	ErrInvalidApprovalStatus = apperror.New(
		apperror.CodeInvalidInput,
		"approval_status must be one of pending, approved, rejected",
		http.StatusBadRequest,
	)
	ErrInvalidSubjectKind = apperror.New(
		apperror.CodeInvalidInput,
		"subject_kind must be member or user",
		http.StatusBadRequest,
	)
)
