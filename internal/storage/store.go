package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/eventreg/eventreg-server/internal/models"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidData  = errors.New("invalid data")
)

// Store defines the storage interface
type Store interface {
	// Transaction support
	BeginTx(ctx context.Context) (Store, error)
	Commit() error
	Rollback() error

	// User methods
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, int64, error)

	// Membership methods
	CreateMembership(ctx context.Context, m *models.OrganizationMembership) error
	GetMembership(ctx context.Context, userID, orgID uuid.UUID) (*models.OrganizationMembership, error)
	UpdateMembership(ctx context.Context, m *models.OrganizationMembership) error
	DeleteMembership(ctx context.Context, userID, orgID uuid.UUID) error
	ListMembershipsByUser(ctx context.Context, userID uuid.UUID) ([]*models.OrganizationMembership, error)
	ListMembershipsByOrg(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.OrganizationMembership, int64, error)

	// Organization methods
	CreateOrganization(ctx context.Context, org *models.Organization) error
	GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	GetOrganizationBySlug(ctx context.Context, slug string) (*models.Organization, error)
	UpdateOrganization(ctx context.Context, org *models.Organization) error
	DeleteOrganization(ctx context.Context, id uuid.UUID) error
	ListOrganizations(ctx context.Context, limit, offset int) ([]*models.Organization, int64, error)

	// Event methods
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error)
	GetEventBySlug(ctx context.Context, orgID uuid.UUID, slug string) (*models.Event, error)
	UpdateEvent(ctx context.Context, event *models.Event) error
	DeleteEvent(ctx context.Context, id uuid.UUID) error
	ListEvents(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.Event, int64, error)

	// Custom domain methods
	CreateCustomDomain(ctx context.Context, domain *models.CustomDomain) error
	GetCustomDomain(ctx context.Context, id uuid.UUID) (*models.CustomDomain, error)
	GetCustomDomainByName(ctx context.Context, domain string) (*models.CustomDomain, error)
	UpdateCustomDomain(ctx context.Context, domain *models.CustomDomain) error
	DeleteCustomDomain(ctx context.Context, id uuid.UUID) error
	ListCustomDomains(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.CustomDomain, int64, error)

	// SetPrimaryDomain marks the domain as primary for its target and
	// clears the previous primary in the same transaction. The domain
	// must be VERIFIED.
	SetPrimaryDomain(ctx context.Context, id uuid.UUID) error

	// GetPrimaryDomain returns the primary verified domain for an
	// organization (eventID nil) or an event. When more than one primary
	// exists the most recently verified wins.
	GetPrimaryDomain(ctx context.Context, orgID uuid.UUID, eventID *uuid.UUID) (*models.CustomDomain, error)

	// Registration methods
	CreateRegistration(ctx context.Context, reg *models.Registration) error
	GetRegistration(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	UpdateRegistration(ctx context.Context, reg *models.Registration) error
	ListRegistrations(ctx context.Context, eventID uuid.UUID, limit, offset int) ([]*models.Registration, int64, error)
	CountActiveRegistrations(ctx context.Context, eventID uuid.UUID) (int64, error)

	// Close the store
	Close() error
}
