package models

import (
	"time"

	"github.com/google/uuid"
)

// PlatformRole represents a platform-level role
type PlatformRole string

const (
	RoleSuperAdmin PlatformRole = "SUPER_ADMIN"
	RoleUser       PlatformRole = "USER"
)

// OrgRole represents a role scoped to one organization
type OrgRole string

const (
	OrgRoleOwner OrgRole = "ORG_OWNER"
	OrgRoleAdmin OrgRole = "ORG_ADMIN"
	OrgRoleStaff OrgRole = "ORG_STAFF"
)

// User represents a platform user
type User struct {
	BaseModel

	Email string `json:"email" db:"email"`
	Name  string `json:"name" db:"name"`

	PasswordHash string `json:"-" db:"password_hash"`

	Role PlatformRole `json:"role" db:"role"`

	IsActive bool `json:"isActive" db:"is_active"`

	EmailVerified   bool       `json:"emailVerified" db:"email_verified"`
	EmailVerifiedAt *time.Time `json:"emailVerifiedAt,omitempty" db:"email_verified_at"`

	LastLoginAt *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`

	Settings Variables `json:"settings" db:"settings"`
}

// OrganizationMembership associates a user with an organization. A user may
// hold different roles in different organizations at the same time.
type OrganizationMembership struct {
	UserID uuid.UUID `json:"userId" db:"user_id"`
	OrgID  uuid.UUID `json:"orgId" db:"org_id"`

	Role OrgRole `json:"role" db:"role"`

	// Fine-grained capability overrides, keyed by action name
	Permissions Variables `json:"permissions,omitempty" db:"permissions"`

	IsActive   bool       `json:"isActive" db:"is_active"`
	AcceptedAt *time.Time `json:"acceptedAt,omitempty" db:"accepted_at"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
