package attendance

import (
	"time"
)

type CreateAttendanceRequest struct {
	MemberID         *string `json:"member_id" binding:"omitempty,uuid"`
	UserID           *string `json:"user_id" binding:"omitempty,uuid"`
	GroupID          *string `json:"group_id" binding:"omitempty,uuid"`
	Date             string  `json:"date" binding:"required"`
	AttendanceStatus string  `json:"attendance_status" binding:"required,oneof=present absent excused late"`
	Notes            *string `json:"notes"`
	AutoApprove      *bool   `json:"auto_approve"`
}

// BulkCreateAttendanceRequest records are validated one by one in the
// service so a bad row only fails itself.
type BulkCreateAttendanceRequest struct {
	Records     []CreateAttendanceRequest `json:"records" binding:"required,min=1,max=500"`
	AutoApprove *bool                     `json:"auto_approve"`
}

type RejectAttendanceRequest struct {
	Reason string `json:"reason"`
}

type BulkDeleteAttendanceRequest struct {
	IDs []string `json:"ids" binding:"required,min=1,max=500"`
}

type CheckExistingRequest struct {
	SubjectKind string   `json:"subject_kind" binding:"required,oneof=member user"`
	SubjectIDs  []string `json:"subject_ids" binding:"required,min=1,max=1000,dive,uuid"`
	Date        string   `json:"date" binding:"required"`
	GroupID     *string  `json:"group_id" binding:"omitempty,uuid"`
}

type ListAttendanceFilter struct {
	Date             string `form:"date"`
	From             string `form:"from"`
	To               string `form:"to"`
	ApprovalStatus   string `form:"approval_status"`
	AttendanceStatus string `form:"attendance_status"`
	SubjectKind      string `form:"subject_kind"`
	GroupID          string `form:"group_id"`
}

type AttendanceResponse struct {
	ID               string  `json:"id"`
	SubjectKind      string  `json:"subject_kind"`
	MemberID         *string `json:"member_id,omitempty"`
	UserID           *string `json:"user_id,omitempty"`
	GroupID          *string `json:"group_id,omitempty"`
	Date             string  `json:"date"`
	AttendanceStatus string  `json:"attendance_status"`
	Notes            *string `json:"notes,omitempty"`
	SubmittedBy      string  `json:"submitted_by"`
	SubmittedAt      string  `json:"submitted_at"`
	ApprovalStatus   string  `json:"approval_status"`
	ApprovedBy       *string `json:"approved_by,omitempty"`
	ApprovedAt       *string `json:"approved_at,omitempty"`
	RejectionReason  *string `json:"rejection_reason,omitempty"`
}

// ExistingMark is what a caller needs to pre-fill a roster screen.
type ExistingMark struct {
	RecordID         string `json:"record_id"`
	AttendanceStatus string `json:"attendance_status"`
	ApprovalStatus   string `json:"approval_status"`
}

// BulkItemError reports one failed candidate. Index is the one-based
// position of the candidate in the request.
type BulkItemError struct {
	Index       int    `json:"index"`
	SubjectKind string `json:"subject_kind,omitempty"`
	SubjectID   string `json:"subject_id,omitempty"`
	Code        string `json:"code"`
	Error       string `json:"error"`
}

type BulkCreateResponse struct {
	Created int             `json:"created"`
	IDs     []string        `json:"ids"`
	Errors  []BulkItemError `json:"errors"`
}

// BulkDeleteError reports one id that was not removed; Index is one-based.
type BulkDeleteError struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type BulkDeleteResponse struct {
	Deleted int               `json:"deleted"`
	IDs     []string          `json:"ids"`
	Errors  []BulkDeleteError `json:"errors"`
}

const dateLayout = "2006-01-02"

func mapToResponse(a Attendance) AttendanceResponse {
	resp := AttendanceResponse{
		ID:               a.ID.String(),
		SubjectKind:      string(a.SubjectKind),
		Date:             a.AttendanceDate.UTC().Format(dateLayout),
		AttendanceStatus: string(a.Status),
		Notes:            a.Notes,
		SubmittedBy:      a.SubmittedBy.String(),
		SubmittedAt:      a.SubmittedAt.UTC().Format(time.RFC3339),
		ApprovalStatus:   string(a.ApprovalStatus),
		RejectionReason:  a.RejectionReason,
	}

	subjectID := a.SubjectID.String()
	switch a.SubjectKind {
	case SubjectMember:
		resp.MemberID = &subjectID
	case SubjectUser:
		resp.UserID = &subjectID
	}
	if a.GroupID != nil {
		groupID := a.GroupID.String()
		resp.GroupID = &groupID
	}
	if a.ApprovedBy != nil {
		approvedBy := a.ApprovedBy.String()
		resp.ApprovedBy = &approvedBy
	}
	if a.ApprovedAt != nil {
		approvedAt := a.ApprovedAt.UTC().Format(time.RFC3339)
		resp.ApprovedAt = &approvedAt
	}
	return resp
}

func mapToListResponse(rows []Attendance) []AttendanceResponse {
	out := make([]AttendanceResponse, 0, len(rows))
	for _, a := range rows {
		out = append(out, mapToResponse(a))
	}
	return out
}
