package rbac

import "github.com/One-johnson/sheepshep-sub001/internal/domain"

const (
	ResourceMemberAttendance = "attendance.member"
	ResourceUserAttendance   = "attendance.user"

	ActionView    = "view"
	ActionSubmit  = "submit"
	ActionApprove = "approve"
	ActionDelete  = "delete"
)

// DefaultPermissions is the fixed role matrix. Ownership edges are checked on
// top of it; a role missing here can never reach the ownership check.
func DefaultPermissions() []domain.Permission {
	var perms []domain.Permission
	add := func(role domain.Role, resource string, actions ...string) {
		for _, a := range actions {
			perms = append(perms, domain.Permission{Role: role, Resource: resource, Action: a})
		}
	}

	add(domain.RoleAdmin, ResourceMemberAttendance, ActionView, ActionSubmit, ActionApprove, ActionDelete)
	add(domain.RoleAdmin, ResourceUserAttendance, ActionView, ActionSubmit, ActionApprove, ActionDelete)

	// Pastors work on shepherd attendance only.
	add(domain.RolePastor, ResourceUserAttendance, ActionView, ActionSubmit, ActionApprove, ActionDelete)

	add(domain.RoleShepherd, ResourceMemberAttendance, ActionView, ActionSubmit, ActionDelete)
	add(domain.RoleShepherd, ResourceUserAttendance, ActionView, ActionSubmit, ActionDelete)

	return perms
}
