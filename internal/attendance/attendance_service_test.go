package attendance_test

import (
	"context"
	"errors"
	"testing"

	"github.com/One-johnson/sheepshep-sub001/internal/attendance"
	attendanceerrors "github.com/One-johnson/sheepshep-sub001/internal/attendance/errors"
	"github.com/One-johnson/sheepshep-sub001/internal/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const day = "2024-03-10"

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("admin submissions are approved immediately", func(t *testing.T) {
		f := newFixture(t)

		resp, err := f.svc.Create(ctx, f.admin, memberReq(f.member2, day, "present"))

		require.NoError(t, err)
		assert.Equal(t, "approved", resp.ApprovalStatus)
		require.NotNil(t, resp.ApprovedBy)
		assert.Equal(t, f.admin.ID.String(), *resp.ApprovedBy)
		assert.NotNil(t, resp.ApprovedAt)
		assert.Nil(t, resp.RejectionReason)
		assert.Equal(t, day, resp.Date)
		assert.Equal(t, []string{events.AuditAttendanceCreate}, f.dispatcher.auditActions())
		assert.Empty(t, f.dispatcher.notificationsOf(events.NotifyAttendancePending))
	})

	t.Run("shepherd submissions default to approved", func(t *testing.T) {
		f := newFixture(t)

		resp := f.mustCreate(t, f.shepherd, memberReq(f.member, day, "present"))

		assert.Equal(t, "approved", resp.ApprovalStatus)
		assert.Equal(t, f.shepherd.ID.String(), *resp.ApprovedBy)
	})

	t.Run("pending member record notifies admins", func(t *testing.T) {
		f := newFixture(t)

		resp := f.mustCreate(t, f.shepherd, pending(memberReq(f.member, day, "late")))

		assert.Equal(t, "pending", resp.ApprovalStatus)
		assert.Nil(t, resp.ApprovedBy)
		assert.Nil(t, resp.ApprovedAt)
		sent := f.dispatcher.notificationsOf(events.NotifyAttendancePending)
		require.Len(t, sent, 1)
		assert.Equal(t, f.admin.ID, sent[0].Target)
		assert.Equal(t, resp.ID, sent[0].Payload["record_id"])
	})

	t.Run("pending shepherd record notifies the overseeing pastor", func(t *testing.T) {
		f := newFixture(t)

		f.mustCreate(t, f.shepherd, pending(userReq(f.shepherd.ID, day, "present")))

		sent := f.dispatcher.notificationsOf(events.NotifyAttendancePending)
		require.Len(t, sent, 1)
		assert.Equal(t, f.pastor.ID, sent[0].Target)
	})

	t.Run("pending shepherd record without overseer falls back to admins", func(t *testing.T) {
		f := newFixture(t)

		f.mustCreate(t, f.shepherd3, pending(userReq(f.shepherd3.ID, day, "present")))

		sent := f.dispatcher.notificationsOf(events.NotifyAttendancePending)
		require.Len(t, sent, 1)
		assert.Equal(t, f.admin.ID, sent[0].Target)
	})

	t.Run("reviewer lookup failure does not fail the submission", func(t *testing.T) {
		f := newFixture(t)
		f.roster.err = errors.New("redis down")

		resp, err := f.svc.Create(ctx, f.shepherd, pending(userReq(f.shepherd.ID, day, "present")))

		require.NoError(t, err)
		assert.Equal(t, "pending", resp.ApprovalStatus)
		assert.Empty(t, f.dispatcher.notificationsOf(events.NotifyAttendancePending))
		assert.EqualValues(t, 1, f.count(t))
	})
}

func TestService_Create_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	absentNoNotes := memberReq(f.member, day, "absent")
	absentNoNotes.Notes = nil

	blankNotes := memberReq(f.member, day, "excused")
	blankNotes.Notes = strPtr("   ")

	both := memberReq(f.member, day, "present")
	both.UserID = strPtr(f.shepherd.ID.String())

	neither := memberReq(f.member, day, "present")
	neither.MemberID = nil

	userWithGroup := userReq(f.shepherd.ID, day, "present")
	userWithGroup.GroupID = strPtr(f.group.String())

	tests := []struct {
		name    string
		req     attendance.CreateAttendanceRequest
		wantErr error
	}{
		{"absent without notes", absentNoNotes, attendanceerrors.ErrNotesRequired},
		{"whitespace notes", blankNotes, attendanceerrors.ErrNotesRequired},
		{"both subjects", both, attendanceerrors.ErrInvalidSubject},
		{"no subject", neither, attendanceerrors.ErrInvalidSubject},
		{"bad date", memberReq(f.member, "10/03/2024", "present"), attendanceerrors.ErrInvalidDateFormat},
		{"bad status", memberReq(f.member, day, "sleeping"), attendanceerrors.ErrInvalidAttendanceStatus},
		{"group on user subject", userWithGroup, attendanceerrors.ErrGroupRequiresMember},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, f.shepherd, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Zero(t, f.count(t))
}

func TestService_Create_Authorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	groupReq := memberReq(f.member3, day, "present")
	groupReq.GroupID = strPtr(f.group.String())

	cases := []struct {
		name    string
		run     func() error
		wantErr error
	}{
		{"shepherd for another shepherd's member", func() error {
			_, err := f.svc.Create(ctx, f.shepherd, memberReq(f.member2, day, "present"))
			return err
		}, attendanceerrors.ErrUnauthorized},
		{"shepherd for another shepherd", func() error {
			_, err := f.svc.Create(ctx, f.shepherd, userReq(f.shepherd2.ID, day, "present"))
			return err
		}, attendanceerrors.ErrUnauthorized},
		{"pastor for a member", func() error {
			_, err := f.svc.Create(ctx, f.pastor, memberReq(f.member, day, "present"))
			return err
		}, attendanceerrors.ErrUnauthorized},
		{"pastor for a shepherd he does not oversee", func() error {
			_, err := f.svc.Create(ctx, f.pastor, userReq(f.shepherd2.ID, day, "present"))
			return err
		}, attendanceerrors.ErrUnauthorized},
		{"member outside group without group id", func() error {
			_, err := f.svc.Create(ctx, f.shepherd, memberReq(f.member3, day, "present"))
			return err
		}, attendanceerrors.ErrUnauthorized},
		{"pastor for an overseen shepherd", func() error {
			_, err := f.svc.Create(ctx, f.pastor, userReq(f.shepherd.ID, day, "present"))
			return err
		}, nil},
		{"group leader for a group roster member", func() error {
			_, err := f.svc.Create(ctx, f.shepherd, groupReq)
			return err
		}, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run()
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestService_Create_OwnAttendance(t *testing.T) {
	ctx := context.Background()

	t.Run("pastor cannot submit own attendance", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Create(ctx, f.pastor, userReq(f.pastor.ID, day, "present"))

		assert.ErrorIs(t, err, attendanceerrors.ErrUnauthorized)
		assert.EqualValues(t, 0, f.count(t))
	})

	t.Run("shepherd own attendance waits for the pastor", func(t *testing.T) {
		f := newFixture(t)
		req := userReq(f.shepherd.ID, day, "present")
		req.AutoApprove = boolPtr(true)

		resp, err := f.svc.Create(ctx, f.shepherd, req)

		require.NoError(t, err)
		assert.Equal(t, "pending", resp.ApprovalStatus)
		assert.Nil(t, resp.ApprovedBy)
		sent := f.dispatcher.notificationsOf(events.NotifyAttendancePending)
		require.Len(t, sent, 1)
		assert.Equal(t, f.pastor.ID, sent[0].Target)
	})

	t.Run("shepherd own attendance in a bulk is pending", func(t *testing.T) {
		f := newFixture(t)

		resp, err := f.svc.BulkCreate(ctx, f.shepherd, attendance.BulkCreateAttendanceRequest{
			Records:     []attendance.CreateAttendanceRequest{userReq(f.shepherd.ID, day, "present")},
			AutoApprove: boolPtr(true),
		})

		require.NoError(t, err)
		require.Len(t, resp.IDs, 1)
		got, err := f.svc.GetByID(ctx, f.admin, resp.IDs[0])
		require.NoError(t, err)
		assert.Equal(t, "pending", got.ApprovalStatus)
	})

	t.Run("admin own attendance is approved", func(t *testing.T) {
		f := newFixture(t)

		resp, err := f.svc.Create(ctx, f.admin, userReq(f.admin.ID, day, "present"))

		require.NoError(t, err)
		assert.Equal(t, "approved", resp.ApprovalStatus)
	})

	t.Run("pastor submission for an overseen shepherd is still auto-approved", func(t *testing.T) {
		f := newFixture(t)

		resp, err := f.svc.Create(ctx, f.pastor, userReq(f.shepherd.ID, day, "present"))

		require.NoError(t, err)
		assert.Equal(t, "approved", resp.ApprovalStatus)
		require.NotNil(t, resp.ApprovedBy)
		assert.Equal(t, f.pastor.ID.String(), *resp.ApprovedBy)
	})
}

func TestService_Create_Uniqueness(t *testing.T) {
	ctx := context.Background()

	t.Run("second mark for the same day is rejected", func(t *testing.T) {
		f := newFixture(t)
		f.mustCreate(t, f.shepherd, memberReq(f.member, day, "present"))

		_, err := f.svc.Create(ctx, f.admin, memberReq(f.member, day, "late"))

		assert.ErrorIs(t, err, attendanceerrors.ErrAlreadyMarked)
		assert.EqualValues(t, 1, f.count(t))
	})

	t.Run("time of day does not create a new key", func(t *testing.T) {
		f := newFixture(t)
		f.mustCreate(t, f.shepherd, memberReq(f.member, day, "present"))

		_, err := f.svc.Create(ctx, f.shepherd, memberReq(f.member, "2024-03-10T19:45:00Z", "present"))

		assert.ErrorIs(t, err, attendanceerrors.ErrAlreadyMarked)
	})

	t.Run("individual and group records coexist", func(t *testing.T) {
		f := newFixture(t)
		f.mustCreate(t, f.shepherd, memberReq(f.member, day, "present"))

		grouped := memberReq(f.member, day, "present")
		grouped.GroupID = strPtr(f.group.String())
		resp, err := f.svc.Create(ctx, f.shepherd, grouped)

		require.NoError(t, err)
		require.NotNil(t, resp.GroupID)
		assert.Equal(t, f.group.String(), *resp.GroupID)
		assert.EqualValues(t, 2, f.count(t))

		_, err = f.svc.Create(ctx, f.shepherd, grouped)
		assert.ErrorIs(t, err, attendanceerrors.ErrAlreadyMarked)
	})

	t.Run("member and user subjects never collide", func(t *testing.T) {
		f := newFixture(t)
		shared := uuid.New()

		f.mustCreate(t, f.admin, memberReq(shared, day, "present"))
		_, err := f.svc.Create(ctx, f.admin, userReq(shared, day, "present"))

		assert.NoError(t, err)
	})
}

func TestService_BulkCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("one bad candidate does not abort the batch", func(t *testing.T) {
		f := newFixture(t)
		f.mustCreate(t, f.shepherd, withGroup(memberReq(f.member3, day, "present"), f.group))
		before := f.count(t)

		resp, err := f.svc.BulkCreate(ctx, f.shepherd, attendance.BulkCreateAttendanceRequest{
			Records: []attendance.CreateAttendanceRequest{
				memberReq(f.member, day, "present"),
				withGroup(memberReq(f.member3, day, "late"), f.group),
				userReq(f.shepherd.ID, day, "present"),
			},
		})

		require.NoError(t, err)
		assert.Equal(t, 2, resp.Created)
		assert.Len(t, resp.IDs, 2)
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, 2, resp.Errors[0].Index)
		assert.Equal(t, attendanceerrors.MsgAlreadyMarked, resp.Errors[0].Error)
		assert.Equal(t, "CONFLICT", resp.Errors[0].Code)
		assert.Equal(t, f.member3.String(), resp.Errors[0].SubjectID)
		assert.Equal(t, before+2, f.count(t))
	})

	t.Run("errors carry stable messages and one-based indexes", func(t *testing.T) {
		f := newFixture(t)
		noNotes := memberReq(f.member, day, "absent")
		noNotes.Notes = nil

		resp, err := f.svc.BulkCreate(ctx, f.shepherd, attendance.BulkCreateAttendanceRequest{
			Records: []attendance.CreateAttendanceRequest{
				memberReq(f.member2, day, "present"),
				noNotes,
			},
		})

		require.NoError(t, err)
		assert.Zero(t, resp.Created)
		assert.Empty(t, resp.IDs)
		require.Len(t, resp.Errors, 2)
		assert.Equal(t, 1, resp.Errors[0].Index)
		assert.Equal(t, attendanceerrors.MsgUnauthorized, resp.Errors[0].Error)
		assert.Equal(t, 2, resp.Errors[1].Index)
		assert.Equal(t, "notes are required when status is not present", resp.Errors[1].Error)
	})

	t.Run("batch auto approve flag applies to candidates without their own", func(t *testing.T) {
		f := newFixture(t)
		ownFlag := memberReq(f.member, "2024-03-11", "present")
		ownFlag.AutoApprove = boolPtr(true)

		resp, err := f.svc.BulkCreate(ctx, f.shepherd, attendance.BulkCreateAttendanceRequest{
			Records:     []attendance.CreateAttendanceRequest{memberReq(f.member, day, "present"), ownFlag},
			AutoApprove: boolPtr(false),
		})
		require.NoError(t, err)
		require.Equal(t, 2, resp.Created)

		first, err := f.svc.GetByID(ctx, f.shepherd, resp.IDs[0])
		require.NoError(t, err)
		second, err := f.svc.GetByID(ctx, f.shepherd, resp.IDs[1])
		require.NoError(t, err)
		assert.Equal(t, "pending", first.ApprovalStatus)
		assert.Equal(t, "approved", second.ApprovalStatus)
		assert.Len(t, f.dispatcher.notificationsOf(events.NotifyAttendancePending), 1)
	})
}

func TestService_GetByID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	memberRec := f.mustCreate(t, f.shepherd, memberReq(f.member, day, "present"))
	selfRec := f.mustCreate(t, f.shepherd, pending(userReq(f.shepherd.ID, day, "present")))

	got, err := f.svc.GetByID(ctx, f.shepherd, memberRec.ID)
	require.NoError(t, err)
	assert.Equal(t, memberRec, got)

	_, err = f.svc.GetByID(ctx, f.shepherd2, memberRec.ID)
	assert.ErrorIs(t, err, attendanceerrors.ErrNotFound)

	_, err = f.svc.GetByID(ctx, f.pastor, memberRec.ID)
	assert.ErrorIs(t, err, attendanceerrors.ErrNotFound)

	_, err = f.svc.GetByID(ctx, f.pastor, selfRec.ID)
	assert.NoError(t, err)

	_, err = f.svc.GetByID(ctx, f.pastor2, selfRec.ID)
	assert.ErrorIs(t, err, attendanceerrors.ErrNotFound)

	_, err = f.svc.GetByID(ctx, f.admin, uuid.NewString())
	assert.ErrorIs(t, err, attendanceerrors.ErrNotFound)

	_, err = f.svc.GetByID(ctx, f.admin, "nope")
	assert.ErrorIs(t, err, attendanceerrors.ErrInvalidRecordID)
}

func TestService_List(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	own := f.mustCreate(t, f.shepherd, memberReq(f.member, day, "present"))
	groupRec := f.mustCreate(t, f.admin, withGroup(memberReq(f.member3, day, "present"), f.group))
	otherMember := f.mustCreate(t, f.shepherd2, memberReq(f.member2, day, "present"))
	self := f.mustCreate(t, f.shepherd, pending(userReq(f.shepherd.ID, "2024-03-11", "present")))
	otherShepherd := f.mustCreate(t, f.shepherd2, pending(userReq(f.shepherd2.ID, day, "present")))

	ids := func(rows []attendance.AttendanceResponse) []string {
		out := make([]string, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.ID)
		}
		return out
	}

	t.Run("admin sees everything, newest date first", func(t *testing.T) {
		rows, err := f.svc.List(ctx, f.admin, attendance.ListAttendanceFilter{})
		require.NoError(t, err)
		assert.Len(t, rows, 5)
		assert.Equal(t, self.ID, rows[0].ID)
	})

	t.Run("shepherd sees own members, led groups and self", func(t *testing.T) {
		rows, err := f.svc.List(ctx, f.shepherd, attendance.ListAttendanceFilter{})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{own.ID, groupRec.ID, self.ID}, ids(rows))
		assert.NotContains(t, ids(rows), otherMember.ID)
	})

	t.Run("pastor never receives member records", func(t *testing.T) {
		rows, err := f.svc.List(ctx, f.pastor, attendance.ListAttendanceFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{self.ID}, ids(rows))

		rows, err = f.svc.List(ctx, f.pastor2, attendance.ListAttendanceFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{otherShepherd.ID}, ids(rows))
	})

	t.Run("filters", func(t *testing.T) {
		rows, err := f.svc.List(ctx, f.admin, attendance.ListAttendanceFilter{ApprovalStatus: "pending"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{self.ID, otherShepherd.ID}, ids(rows))

		rows, err = f.svc.List(ctx, f.admin, attendance.ListAttendanceFilter{Date: "2024-03-11"})
		require.NoError(t, err)
		assert.Equal(t, []string{self.ID}, ids(rows))

		rows, err = f.svc.List(ctx, f.admin, attendance.ListAttendanceFilter{From: "2024-03-01", To: day})
		require.NoError(t, err)
		assert.Len(t, rows, 4)

		rows, err = f.svc.List(ctx, f.admin, attendance.ListAttendanceFilter{GroupID: f.group.String()})
		require.NoError(t, err)
		assert.Equal(t, []string{groupRec.ID}, ids(rows))

		rows, err = f.svc.List(ctx, f.admin, attendance.ListAttendanceFilter{SubjectKind: "user"})
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("invalid filters", func(t *testing.T) {
		_, err := f.svc.List(ctx, f.admin, attendance.ListAttendanceFilter{From: "2024-03-12", To: day})
		assert.ErrorIs(t, err, attendanceerrors.ErrInvalidDateRange)

		_, err = f.svc.List(ctx, f.admin, attendance.ListAttendanceFilter{ApprovalStatus: "maybe"})
		assert.ErrorIs(t, err, attendanceerrors.ErrInvalidApprovalStatus)
	})
}

func TestService_CheckExisting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	marked := f.mustCreate(t, f.shepherd, memberReq(f.member, day, "late"))
	f.mustCreate(t, f.shepherd2, memberReq(f.member2, day, "present"))

	got, err := f.svc.CheckExisting(ctx, f.shepherd, attendance.CheckExistingRequest{
		SubjectKind: "member",
		SubjectIDs:  []string{f.member.String(), f.member2.String(), f.member3.String()},
		Date:        day,
	})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, attendance.ExistingMark{
		RecordID:         marked.ID,
		AttendanceStatus: "late",
		ApprovalStatus:   "approved",
	}, got[f.member.String()])

	got, err = f.svc.CheckExisting(ctx, f.admin, attendance.CheckExistingRequest{
		SubjectKind: "member",
		SubjectIDs:  []string{f.member.String(), f.member2.String()},
		Date:        day,
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = f.svc.CheckExisting(ctx, f.admin, attendance.CheckExistingRequest{
		SubjectKind: "member",
		SubjectIDs:  []string{f.member.String()},
		Date:        day,
		GroupID:     strPtr(f.group.String()),
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}
