package attendance

import (
	"context"

	"github.com/One-johnson/sheepshep-sub001/internal/domain"
	"github.com/One-johnson/sheepshep-sub001/internal/rbac"
	"github.com/One-johnson/sheepshep-sub001/internal/roster"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PermissionEnforcer is the slice of rbac.Service the gate needs.
type PermissionEnforcer interface {
	Enforce(req domain.EnforceRequest) (bool, error)
}

// Gate answers the four authorization questions. A request passes only if
// the role matrix allows the action on the subject kind and the actor sits
// on the right ownership edge. Every role switch denies by default.
type Gate struct {
	perms  PermissionEnforcer
	roster roster.Provider
	logger *zap.Logger
}

func NewGate(perms PermissionEnforcer, rosterProvider roster.Provider, logger ...*zap.Logger) *Gate {
	l := zap.L().Named("attendance.gate")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("attendance.gate")
	}
	return &Gate{perms: perms, roster: rosterProvider, logger: l}
}

func resourceFor(kind SubjectKind) string {
	if kind == SubjectMember {
		return rbac.ResourceMemberAttendance
	}
	return rbac.ResourceUserAttendance
}

func (g *Gate) permits(actor domain.Actor, kind SubjectKind, action string) (bool, error) {
	return g.perms.Enforce(domain.EnforceRequest{
		Role:     actor.Role.String(),
		Resource: resourceFor(kind),
		Action:   action,
	})
}

// owns reports whether actor is on the ownership edge of subject.
func (g *Gate) owns(ctx context.Context, actor domain.Actor, subject SubjectRef, groupID *uuid.UUID) (bool, error) {
	switch actor.Role {
	case domain.RoleAdmin:
		return true, nil
	case domain.RolePastor:
		if subject.Kind != SubjectUser {
			return false, nil
		}
		if subject.ID == actor.ID {
			return true, nil
		}
		overseer, err := g.roster.GetOversightEdge(ctx, subject.ID)
		if err != nil {
			return false, err
		}
		return overseer != uuid.Nil && overseer == actor.ID, nil
	case domain.RoleShepherd:
		switch subject.Kind {
		case SubjectUser:
			return subject.ID == actor.ID, nil
		case SubjectMember:
			owned, err := g.roster.GetOwnedMembers(ctx, actor.ID)
			if err != nil {
				return false, err
			}
			if roster.Contains(owned, subject.ID) {
				return true, nil
			}
			if groupID == nil {
				return false, nil
			}
			groupRoster, err := g.roster.GetOwnedGroupMembers(ctx, actor.ID, *groupID)
			if err != nil {
				return false, err
			}
			return roster.Contains(groupRoster, subject.ID), nil
		default:
			return false, nil
		}
	default:
		return false, nil
	}
}

func (g *Gate) CanView(ctx context.Context, actor domain.Actor, rec *Attendance) (bool, error) {
	ok, err := g.permits(actor, rec.SubjectKind, rbac.ActionView)
	if err != nil || !ok {
		return false, err
	}
	if actor.IsAdmin() || rec.SubmittedBy == actor.ID {
		return true, nil
	}
	return g.owns(ctx, actor, rec.Subject(), rec.GroupID)
}

// CanSubmit follows the ownership edges. A pastor's own attendance is
// submitted by an admin, so the pastor self edge does not count here.
func (g *Gate) CanSubmit(ctx context.Context, actor domain.Actor, subject SubjectRef, groupID *uuid.UUID) (bool, error) {
	ok, err := g.permits(actor, subject.Kind, rbac.ActionSubmit)
	if err != nil || !ok {
		return false, err
	}
	if actor.Role == domain.RolePastor && subject.ID == actor.ID {
		return false, nil
	}
	return g.owns(ctx, actor, subject, groupID)
}

// CanApprove covers both approve and reject. Admins approve anything;
// pastors approve shepherds they oversee, never themselves.
func (g *Gate) CanApprove(ctx context.Context, actor domain.Actor, rec *Attendance) (bool, error) {
	ok, err := g.permits(actor, rec.SubjectKind, rbac.ActionApprove)
	if err != nil || !ok {
		return false, err
	}

	switch actor.Role {
	case domain.RoleAdmin:
		return true, nil
	case domain.RolePastor:
		if rec.SubjectKind != SubjectUser || rec.SubjectID == actor.ID {
			return false, nil
		}
		overseer, err := g.roster.GetOversightEdge(ctx, rec.SubjectID)
		if err != nil {
			return false, err
		}
		return overseer != uuid.Nil && overseer == actor.ID, nil
	default:
		return false, nil
	}
}

// CanDelete: approved records belong to admins; pending and rejected ones
// may also be removed by their submitter or subject owner.
func (g *Gate) CanDelete(ctx context.Context, actor domain.Actor, rec *Attendance) (bool, error) {
	ok, err := g.permits(actor, rec.SubjectKind, rbac.ActionDelete)
	if err != nil || !ok {
		return false, err
	}

	switch rec.ApprovalStatus {
	case ApprovalApproved:
		return actor.IsAdmin(), nil
	case ApprovalPending, ApprovalRejected:
		if actor.IsAdmin() || rec.SubmittedBy == actor.ID {
			return true, nil
		}
		return g.owns(ctx, actor, rec.Subject(), rec.GroupID)
	default:
		return false, nil
	}
}

// ListScope returns the visibility window of actor for List; nil means
// unrestricted.
func (g *Gate) ListScope(ctx context.Context, actor domain.Actor) (*ListScope, error) {
	switch actor.Role {
	case domain.RoleAdmin:
		return nil, nil
	case domain.RolePastor:
		overseen, err := g.roster.GetOverseenShepherds(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		kind := SubjectUser
		users := append([]uuid.UUID{actor.ID}, overseen...)
		return &ListScope{OnlyKind: &kind, SubmittedBy: actor.ID, UserIDs: users}, nil
	case domain.RoleShepherd:
		members, err := g.roster.GetOwnedMembers(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		groups, err := g.roster.GetLedGroups(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		return &ListScope{
			SubmittedBy: actor.ID,
			MemberIDs:   members,
			GroupIDs:    groups,
			UserIDs:     []uuid.UUID{actor.ID},
		}, nil
	default:
		g.logger.Warn("list scope for unknown role", zap.String("role", actor.Role.String()))
		kind := SubjectKind("")
		return &ListScope{OnlyKind: &kind, SubmittedBy: actor.ID}, nil
	}
}
