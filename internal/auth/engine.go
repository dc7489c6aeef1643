package auth

import (
	"github.com/google/uuid"

	"github.com/eventreg/eventreg-server/internal/models"
)

// Membership is a principal's role in one organization, as carried in the
// session token
type Membership struct {
	OrgID       uuid.UUID        `json:"orgId"`
	Role        models.OrgRole   `json:"role"`
	IsActive    bool             `json:"isActive"`
	Permissions models.Variables `json:"permissions,omitempty"`
}

// Principal is the authenticated identity a decision is made for
type Principal struct {
	UserID      uuid.UUID           `json:"userId"`
	Role        models.PlatformRole `json:"role"`
	Memberships []Membership        `json:"memberships"`
}

// MembershipFor returns the principal's active membership in the given
// organization, if any. Inactive memberships are invisible here: they are
// treated identically to no membership.
func (p *Principal) MembershipFor(orgID uuid.UUID) (*Membership, bool) {
	for i := range p.Memberships {
		m := &p.Memberships[i]
		if m.OrgID == orgID && m.IsActive {
			return m, true
		}
	}
	return nil, false
}

// TargetScope identifies what kind of thing a decision is about
type TargetScope int

const (
	ScopePlatform TargetScope = iota
	ScopeOrganization
	ScopeResource
)

// Target is the object of an authorization decision
type Target struct {
	Scope TargetScope

	// Set for ScopeOrganization and ScopeResource
	OrgID uuid.UUID

	// Set for ScopeResource when the resource has an owning user,
	// e.g. the user that created a registration
	ResourceOwnerID *uuid.UUID
}

// PlatformTarget targets the platform itself
func PlatformTarget() Target {
	return Target{Scope: ScopePlatform}
}

// OrgTarget targets one organization
func OrgTarget(orgID uuid.UUID) Target {
	return Target{Scope: ScopeOrganization, OrgID: orgID}
}

// ResourceTarget targets a resource within an organization
func ResourceTarget(orgID uuid.UUID, ownerID *uuid.UUID) Target {
	return Target{Scope: ScopeResource, OrgID: orgID, ResourceOwnerID: ownerID}
}

// Decision is the outcome of an authorization check
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow is the positive decision
func Allow(reason string) Decision {
	return Decision{Allowed: true, Reason: reason}
}

// Deny is the negative decision
func Deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Authorize decides whether the principal may perform action on target.
// It is a pure function over its arguments; callers handle the response.
//
// Rule order matters: the organization-role check runs before the
// self-ownership override so an org admin's rights on resources they do
// not personally own are never shadowed by the narrower self check.
func Authorize(p *Principal, action Action, target Target) Decision {
	if p == nil {
		return Deny("no principal")
	}

	// Super admins may do anything on any target
	if p.Role == models.RoleSuperAdmin {
		return Allow("platform super admin")
	}

	// Platform scope is exclusive to super admins
	if target.Scope == ScopePlatform {
		return Deny("platform scope requires super admin")
	}

	// Organization role check
	if m, ok := p.MembershipFor(target.OrgID); ok {
		if allowed, overridden := m.permissionOverride(action); overridden {
			if allowed {
				return Allow("membership permission override")
			}
			return Deny("membership permission override")
		}
		if RoleAllows(m.Role, action) {
			return Allow("organization role " + string(m.Role))
		}
		if target.Scope != ScopeResource {
			return Deny("organization role " + string(m.Role) + " lacks " + string(action))
		}
	} else if target.Scope != ScopeResource {
		return Deny("no membership in organization")
	}

	// Self-ownership override: a participant may always act on their own
	// resource, regardless of organizational role. Event-level mutability
	// rules are enforced by the resource handlers.
	if target.Scope == ScopeResource && target.ResourceOwnerID != nil && *target.ResourceOwnerID == p.UserID {
		return Allow("resource owner")
	}

	return Deny("not permitted")
}

// permissionOverride checks the membership's fine-grained overrides for
// the action. The second return reports whether an override exists.
func (m *Membership) permissionOverride(action Action) (bool, bool) {
	if m.Permissions == nil {
		return false, false
	}
	v, ok := m.Permissions[string(action)]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	if !ok {
		return false, false
	}
	return b, true
}
