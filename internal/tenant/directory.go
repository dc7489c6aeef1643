package tenant

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/eventreg/eventreg-server/internal/models"
	"github.com/eventreg/eventreg-server/internal/storage"
)

// DirectoryStore is the slice of the storage interface the directory
// needs. *storage.PostgresStore satisfies it.
type DirectoryStore interface {
	GetCustomDomainByName(ctx context.Context, domain string) (*models.CustomDomain, error)
	GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	GetOrganizationBySlug(ctx context.Context, slug string) (*models.Organization, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error)
	GetEventBySlug(ctx context.Context, orgID uuid.UUID, slug string) (*models.Event, error)
}

// Ref is a resolved tenant: an organization, optionally narrowed to one
// event, plus the custom domain that produced the resolution when the
// request came in on one.
type Ref struct {
	Org          *models.Organization
	Event        *models.Event
	CustomDomain *models.CustomDomain
}

// Directory resolves hosts and path slugs to tenants. It holds no state
// of its own; every resolution reads through to the store so that
// deactivation and revocation are visible to the very next request.
type Directory struct {
	store           DirectoryStore
	platformDomains []string
}

// NewDirectory creates a tenant directory. platformDomains are the hosts
// the platform serves directly (suffix-matched); they always resolve by
// path, never through the custom-domain table.
func NewDirectory(store DirectoryStore, platformDomains []string) *Directory {
	return &Directory{
		store:           store,
		platformDomains: platformDomains,
	}
}

// IsPlatformHost reports whether the host (port already stripped) belongs
// to the platform itself
func (d *Directory) IsPlatformHost(host string) bool {
	if host == "" {
		return true
	}
	for _, pd := range d.platformDomains {
		if host == pd || strings.HasSuffix(host, "."+pd) {
			return true
		}
	}
	return false
}

// NormalizeHost strips the port from a host header value
func NormalizeHost(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return strings.ToLower(h)
	}
	return strings.ToLower(host)
}

// ResolveByHost resolves the host header to a tenant. It returns
// (nil, nil) when the host is a platform domain, is not a verified custom
// domain, or points at a deactivated organization. Storage failures
// propagate; they must never be read as "no tenant".
func (d *Directory) ResolveByHost(ctx context.Context, host string) (*Ref, error) {
	host = NormalizeHost(host)

	if d.IsPlatformHost(host) {
		return nil, nil
	}

	cd, err := d.store.GetCustomDomainByName(ctx, host)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	// Unverified domains are inert
	if cd.Status != models.DomainVerified {
		return nil, nil
	}

	org, err := d.store.GetOrganization(ctx, cd.OrgID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Verified domain pointing at a missing organization
			log.Warn().
				Str("domain", cd.Domain).
				Str("org_id", cd.OrgID.String()).
				Msg("Verified custom domain references missing organization")
			return nil, nil
		}
		return nil, err
	}

	// Deactivation invalidates resolution immediately, no grace period
	if !org.IsActive {
		return nil, nil
	}

	ref := &Ref{Org: org, CustomDomain: cd}

	if cd.EventID != nil {
		event, err := d.store.GetEvent(ctx, *cd.EventID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				log.Warn().
					Str("domain", cd.Domain).
					Str("event_id", cd.EventID.String()).
					Msg("Verified custom domain references missing event")
				return nil, nil
			}
			return nil, err
		}
		ref.Event = event
	}

	return ref, nil
}

// ResolveByPath resolves an organization slug and optional event slug to a
// tenant. A miss on either lookup yields (nil, nil): never a partial
// tenant.
func (d *Directory) ResolveByPath(ctx context.Context, orgSlug, eventSlug string) (*Ref, error) {
	org, err := d.store.GetOrganizationBySlug(ctx, orgSlug)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if !org.IsActive {
		return nil, nil
	}

	ref := &Ref{Org: org}

	if eventSlug != "" {
		event, err := d.store.GetEventBySlug(ctx, org.ID, eventSlug)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		ref.Event = event
	}

	return ref, nil
}

// CanonicalPathFor returns the path-based route prefix a resolved tenant
// maps onto. Custom-domain requests are rewritten under this prefix so a
// single set of handlers serves both resolution paths.
func CanonicalPathFor(ref *Ref) string {
	if ref == nil || ref.Org == nil {
		return "/"
	}
	if ref.Event != nil {
		return "/" + ref.Org.Slug + "/" + ref.Event.Slug
	}
	return "/" + ref.Org.Slug
}
