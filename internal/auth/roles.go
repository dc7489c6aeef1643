package auth

import (
	"github.com/eventreg/eventreg-server/internal/models"
)

// Action represents an operation a principal may attempt. Actions are the
// only vocabulary the capability table speaks; call sites never compare
// role strings directly.
type Action string

const (
	// Platform scope
	ActionManagePlatform Action = "manage-platform"

	// Organization scope
	ActionViewOrganization    Action = "view-organization"
	ActionUpdateOrganization  Action = "update-organization"
	ActionDeleteOrganization  Action = "delete-organization"
	ActionManageMembers       Action = "manage-members"
	ActionManageEvent         Action = "manage-event"
	ActionManageDomains       Action = "manage-domains"
	ActionViewRegistrations   Action = "view-registrations"
	ActionManageRegistrations Action = "manage-registrations"

	// Resource scope (self-service override applies)
	ActionViewRegistration   Action = "view-registration"
	ActionModifyRegistration Action = "modify-registration"
)

// orgCapabilities maps each organization role to its allowed actions.
// This table is the single source of truth for role semantics.
var orgCapabilities = map[models.OrgRole]map[Action]bool{
	models.OrgRoleOwner: {
		ActionViewOrganization:    true,
		ActionUpdateOrganization:  true,
		ActionDeleteOrganization:  true,
		ActionManageMembers:       true,
		ActionManageEvent:         true,
		ActionManageDomains:       true,
		ActionViewRegistrations:   true,
		ActionManageRegistrations: true,
		ActionViewRegistration:    true,
		ActionModifyRegistration:  true,
	},
	models.OrgRoleAdmin: {
		ActionViewOrganization:    true,
		ActionUpdateOrganization:  true,
		ActionManageMembers:       true,
		ActionManageEvent:         true,
		ActionManageDomains:       true,
		ActionViewRegistrations:   true,
		ActionManageRegistrations: true,
		ActionViewRegistration:    true,
		ActionModifyRegistration:  true,
	},
	models.OrgRoleStaff: {
		ActionViewOrganization:  true,
		ActionManageEvent:       true,
		ActionViewRegistrations: true,
		ActionViewRegistration:  true,
	},
}

// RoleAllows reports whether an organization role's capability set
// contains the action, before any per-membership overrides.
func RoleAllows(role models.OrgRole, action Action) bool {
	caps, ok := orgCapabilities[role]
	if !ok {
		return false
	}
	return caps[action]
}
