package attendance_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/One-johnson/sheepshep-sub001/internal/attendance"
	"github.com/One-johnson/sheepshep-sub001/internal/domain"
	"github.com/One-johnson/sheepshep-sub001/internal/rbac"
	"github.com/One-johnson/sheepshep-sub001/internal/rbac/infra"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeRoster is an in-memory congregation hierarchy.
type fakeRoster struct {
	ownedMembers map[uuid.UUID][]uuid.UUID
	ledGroups    map[uuid.UUID][]uuid.UUID
	groupMembers map[uuid.UUID][]uuid.UUID
	overseer     map[uuid.UUID]uuid.UUID
	admins       []uuid.UUID
	err          error
}

func (f *fakeRoster) GetOwnedMembers(_ context.Context, actorID uuid.UUID) ([]uuid.UUID, error) {
	return f.ownedMembers[actorID], f.err
}

func (f *fakeRoster) GetLedGroups(_ context.Context, actorID uuid.UUID) ([]uuid.UUID, error) {
	return f.ledGroups[actorID], f.err
}

func (f *fakeRoster) GetOwnedGroupMembers(_ context.Context, actorID, groupID uuid.UUID) ([]uuid.UUID, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, g := range f.ledGroups[actorID] {
		if g == groupID {
			return f.groupMembers[groupID], nil
		}
	}
	return nil, nil
}

func (f *fakeRoster) GetOversightEdge(_ context.Context, shepherdID uuid.UUID) (uuid.UUID, error) {
	return f.overseer[shepherdID], f.err
}

func (f *fakeRoster) GetOverseenShepherds(_ context.Context, pastorID uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for shepherd, pastor := range f.overseer {
		if pastor == pastorID {
			out = append(out, shepherd)
		}
	}
	return out, f.err
}

func (f *fakeRoster) ListAdmins(context.Context) ([]uuid.UUID, error) {
	return f.admins, f.err
}

type notification struct {
	Target  uuid.UUID
	Kind    string
	Payload map[string]any
}

type auditEntry struct {
	Actor  uuid.UUID
	Action string
	Entity uuid.UUID
}

type recordingDispatcher struct {
	mu            sync.Mutex
	notifications []notification
	audits        []auditEntry
}

func (d *recordingDispatcher) Notify(_ context.Context, target uuid.UUID, kind string, payload map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifications = append(d.notifications, notification{Target: target, Kind: kind, Payload: payload})
}

func (d *recordingDispatcher) Audit(_ context.Context, actorID uuid.UUID, action string, entityID uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.audits = append(d.audits, auditEntry{Actor: actorID, Action: action, Entity: entityID})
}

func (d *recordingDispatcher) notificationsOf(kind string) []notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []notification
	for _, n := range d.notifications {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func (d *recordingDispatcher) auditActions() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.audits))
	for _, a := range d.audits {
		out = append(out, a.Action)
	}
	return out
}

func (d *recordingDispatcher) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifications = nil
	d.audits = nil
}

// fixture hierarchy:
//
//	pastor    oversees shepherd
//	pastor2   oversees shepherd2
//	shepherd  owns member, leads group {member, member3}
//	shepherd2 owns member2, member3
//	shepherd3 has no overseer
type fixture struct {
	db         *gorm.DB
	repo       attendance.Repository
	svc        attendance.Service
	gate       *attendance.Gate
	roster     *fakeRoster
	dispatcher *recordingDispatcher

	admin, pastor, pastor2         domain.Actor
	shepherd, shepherd2, shepherd3 domain.Actor
	member, member2, member3       uuid.UUID
	group                          uuid.UUID
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&attendance.Attendance{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection serializes writers the way row locks would
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func actor(role domain.Role) domain.Actor {
	return domain.Actor{ID: uuid.New(), Role: role}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		admin:      actor(domain.RoleAdmin),
		pastor:     actor(domain.RolePastor),
		pastor2:    actor(domain.RolePastor),
		shepherd:   actor(domain.RoleShepherd),
		shepherd2:  actor(domain.RoleShepherd),
		shepherd3:  actor(domain.RoleShepherd),
		member:     uuid.New(),
		member2:    uuid.New(),
		member3:    uuid.New(),
		group:      uuid.New(),
		dispatcher: &recordingDispatcher{},
	}
	f.roster = &fakeRoster{
		ownedMembers: map[uuid.UUID][]uuid.UUID{
			f.shepherd.ID:  {f.member},
			f.shepherd2.ID: {f.member2, f.member3},
		},
		ledGroups: map[uuid.UUID][]uuid.UUID{
			f.shepherd.ID: {f.group},
		},
		groupMembers: map[uuid.UUID][]uuid.UUID{
			f.group: {f.member, f.member3},
		},
		overseer: map[uuid.UUID]uuid.UUID{
			f.shepherd.ID:  f.pastor.ID,
			f.shepherd2.ID: f.pastor2.ID,
		},
		admins: []uuid.UUID{f.admin.ID},
	}

	enforcer, err := infra.NewEnforcer()
	require.NoError(t, err)
	perms, err := rbac.NewDefaultService(enforcer)
	require.NoError(t, err)

	f.db = newTestDB(t)
	sqlDB, err := f.db.DB()
	require.NoError(t, err)

	f.repo = attendance.NewRepository(f.db)
	f.gate = attendance.NewGate(perms, f.roster)
	f.svc = attendance.NewService(sqlDB, f.repo, f.gate, f.roster, f.dispatcher)
	return f
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func memberReq(id uuid.UUID, date, status string) attendance.CreateAttendanceRequest {
	req := attendance.CreateAttendanceRequest{
		MemberID:         strPtr(id.String()),
		Date:             date,
		AttendanceStatus: status,
	}
	if status != string(attendance.StatusPresent) {
		req.Notes = strPtr("called in")
	}
	return req
}

func userReq(id uuid.UUID, date, status string) attendance.CreateAttendanceRequest {
	req := memberReq(id, date, status)
	req.MemberID = nil
	req.UserID = strPtr(id.String())
	return req
}

func withGroup(req attendance.CreateAttendanceRequest, groupID uuid.UUID) attendance.CreateAttendanceRequest {
	req.GroupID = strPtr(groupID.String())
	return req
}

func pending(req attendance.CreateAttendanceRequest) attendance.CreateAttendanceRequest {
	req.AutoApprove = boolPtr(false)
	return req
}

// mustCreate stores a record through the service and returns its response.
func (f *fixture) mustCreate(t *testing.T, a domain.Actor, req attendance.CreateAttendanceRequest) attendance.AttendanceResponse {
	t.Helper()
	resp, err := f.svc.Create(context.Background(), a, req)
	require.NoError(t, err)
	return resp
}

// seedPending writes a pending user-subject record straight to the store.
func (f *fixture) seedPending(t *testing.T, subject, submitter uuid.UUID, date string) string {
	t.Helper()
	d, err := time.Parse("2006-01-02", date)
	require.NoError(t, err)
	now := time.Now().UTC()
	rec := &attendance.Attendance{
		ID:             uuid.New(),
		SubjectKind:    attendance.SubjectUser,
		SubjectID:      subject,
		AttendanceDate: d,
		Status:         attendance.StatusPresent,
		SubmittedBy:    submitter,
		SubmittedAt:    now,
		ApprovalStatus: attendance.ApprovalPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, f.repo.Create(context.Background(), rec))
	return rec.ID.String()
}

func (f *fixture) count(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&attendance.Attendance{}).Count(&n).Error)
	return n
}
