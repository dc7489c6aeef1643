package tenant

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventreg/eventreg-server/internal/models"
	"github.com/eventreg/eventreg-server/internal/storage"
)

// fakeDirectoryStore is an in-memory DirectoryStore for directory tests
type fakeDirectoryStore struct {
	domains map[string]*models.CustomDomain
	orgs    map[uuid.UUID]*models.Organization
	events  map[uuid.UUID]*models.Event
	err     error
}

func newFakeDirectoryStore() *fakeDirectoryStore {
	return &fakeDirectoryStore{
		domains: make(map[string]*models.CustomDomain),
		orgs:    make(map[uuid.UUID]*models.Organization),
		events:  make(map[uuid.UUID]*models.Event),
	}
}

func (f *fakeDirectoryStore) GetCustomDomainByName(ctx context.Context, domain string) (*models.CustomDomain, error) {
	if f.err != nil {
		return nil, f.err
	}
	if cd, ok := f.domains[domain]; ok {
		return cd, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeDirectoryStore) GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	if f.err != nil {
		return nil, f.err
	}
	if org, ok := f.orgs[id]; ok {
		return org, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeDirectoryStore) GetOrganizationBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, org := range f.orgs {
		if org.Slug == slug {
			return org, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeDirectoryStore) GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	if event, ok := f.events[id]; ok {
		return event, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeDirectoryStore) GetEventBySlug(ctx context.Context, orgID uuid.UUID, slug string) (*models.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, event := range f.events {
		if event.OrgID == orgID && event.Slug == slug {
			return event, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeDirectoryStore) addOrg(slug string, active bool) *models.Organization {
	org := &models.Organization{Slug: slug, IsActive: active}
	org.ID = uuid.New()
	f.orgs[org.ID] = org
	return org
}

func (f *fakeDirectoryStore) addEvent(org *models.Organization, slug string) *models.Event {
	event := &models.Event{Slug: slug}
	event.ID = uuid.New()
	event.OrgID = org.ID
	f.events[event.ID] = event
	return event
}

func (f *fakeDirectoryStore) addDomain(name string, org *models.Organization, status models.DomainStatus) *models.CustomDomain {
	cd := &models.CustomDomain{Domain: name, OrgID: org.ID, Status: status}
	cd.ID = uuid.New()
	f.domains[name] = cd
	return cd
}

var platformDomains = []string{"localhost", "eventreg.app"}

func TestIsPlatformHost(t *testing.T) {
	d := NewDirectory(newFakeDirectoryStore(), platformDomains)

	tests := []struct {
		host     string
		platform bool
	}{
		{"localhost", true},
		{"eventreg.app", true},
		{"www.eventreg.app", true},
		{"staging.eventreg.app", true},
		{"conf.example.com", false},
		{"eventreg.app.evil.com", false},
		{"noteventreg.app", false},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.platform, d.IsPlatformHost(tt.host))
		})
	}
}

func TestNormalizeHost(t *testing.T) {
	assert.Equal(t, "conf.example.com", NormalizeHost("conf.example.com:8090"))
	assert.Equal(t, "conf.example.com", NormalizeHost("Conf.Example.COM"))
	assert.Equal(t, "localhost", NormalizeHost("localhost:3000"))
}

func TestResolveByHost(t *testing.T) {
	ctx := context.Background()

	t.Run("platform host resolves to no tenant", func(t *testing.T) {
		d := NewDirectory(newFakeDirectoryStore(), platformDomains)
		ref, err := d.ResolveByHost(ctx, "www.eventreg.app")
		require.NoError(t, err)
		assert.Nil(t, ref)
	})

	t.Run("unknown host resolves to no tenant", func(t *testing.T) {
		d := NewDirectory(newFakeDirectoryStore(), platformDomains)
		ref, err := d.ResolveByHost(ctx, "unknown.example.com")
		require.NoError(t, err)
		assert.Nil(t, ref)
	})

	t.Run("verified org domain", func(t *testing.T) {
		store := newFakeDirectoryStore()
		org := store.addOrg("acme", true)
		store.addDomain("conf.example.com", org, models.DomainVerified)

		d := NewDirectory(store, platformDomains)
		ref, err := d.ResolveByHost(ctx, "conf.example.com:443")
		require.NoError(t, err)
		require.NotNil(t, ref)
		assert.Equal(t, org.ID, ref.Org.ID)
		assert.Nil(t, ref.Event)
		require.NotNil(t, ref.CustomDomain)
		assert.Equal(t, "conf.example.com", ref.CustomDomain.Domain)
	})

	t.Run("unverified domain is inert", func(t *testing.T) {
		store := newFakeDirectoryStore()
		org := store.addOrg("acme", true)
		store.addDomain("conf.example.com", org, models.DomainPending)

		d := NewDirectory(store, platformDomains)
		ref, err := d.ResolveByHost(ctx, "conf.example.com")
		require.NoError(t, err)
		assert.Nil(t, ref)
	})

	t.Run("deactivated org is invisible", func(t *testing.T) {
		store := newFakeDirectoryStore()
		org := store.addOrg("acme", false)
		store.addDomain("conf.example.com", org, models.DomainVerified)

		d := NewDirectory(store, platformDomains)
		ref, err := d.ResolveByHost(ctx, "conf.example.com")
		require.NoError(t, err)
		assert.Nil(t, ref)
	})

	t.Run("event-scoped domain", func(t *testing.T) {
		store := newFakeDirectoryStore()
		org := store.addOrg("acme", true)
		event := store.addEvent(org, "devconf-2026")
		cd := store.addDomain("devconf.example.com", org, models.DomainVerified)
		cd.EventID = &event.ID

		d := NewDirectory(store, platformDomains)
		ref, err := d.ResolveByHost(ctx, "devconf.example.com")
		require.NoError(t, err)
		require.NotNil(t, ref)
		require.NotNil(t, ref.Event)
		assert.Equal(t, event.ID, ref.Event.ID)
	})

	t.Run("domain referencing missing event resolves to no tenant", func(t *testing.T) {
		store := newFakeDirectoryStore()
		org := store.addOrg("acme", true)
		cd := store.addDomain("devconf.example.com", org, models.DomainVerified)
		missing := uuid.New()
		cd.EventID = &missing

		d := NewDirectory(store, platformDomains)
		ref, err := d.ResolveByHost(ctx, "devconf.example.com")
		require.NoError(t, err)
		assert.Nil(t, ref)
	})

	t.Run("storage failure propagates", func(t *testing.T) {
		store := newFakeDirectoryStore()
		store.err = errors.New("connection refused")

		d := NewDirectory(store, platformDomains)
		ref, err := d.ResolveByHost(ctx, "conf.example.com")
		assert.Error(t, err)
		assert.Nil(t, ref)
	})
}

func TestResolveByPath(t *testing.T) {
	ctx := context.Background()

	store := newFakeDirectoryStore()
	org := store.addOrg("acme", true)
	store.addEvent(org, "devconf-2026")
	inactive := store.addOrg("ghost", false)
	store.addEvent(inactive, "haunted")

	d := NewDirectory(store, platformDomains)

	t.Run("org only", func(t *testing.T) {
		ref, err := d.ResolveByPath(ctx, "acme", "")
		require.NoError(t, err)
		require.NotNil(t, ref)
		assert.Equal(t, org.ID, ref.Org.ID)
		assert.Nil(t, ref.Event)
	})

	t.Run("org and event", func(t *testing.T) {
		ref, err := d.ResolveByPath(ctx, "acme", "devconf-2026")
		require.NoError(t, err)
		require.NotNil(t, ref)
		require.NotNil(t, ref.Event)
		assert.Equal(t, "devconf-2026", ref.Event.Slug)
	})

	t.Run("unknown event yields no partial tenant", func(t *testing.T) {
		ref, err := d.ResolveByPath(ctx, "acme", "nope")
		require.NoError(t, err)
		assert.Nil(t, ref)
	})

	t.Run("unknown org", func(t *testing.T) {
		ref, err := d.ResolveByPath(ctx, "nope", "")
		require.NoError(t, err)
		assert.Nil(t, ref)
	})

	t.Run("inactive org", func(t *testing.T) {
		ref, err := d.ResolveByPath(ctx, "ghost", "haunted")
		require.NoError(t, err)
		assert.Nil(t, ref)
	})
}

func TestCanonicalPathFor(t *testing.T) {
	org := &models.Organization{Slug: "acme"}
	event := &models.Event{Slug: "devconf-2026"}

	assert.Equal(t, "/", CanonicalPathFor(nil))
	assert.Equal(t, "/acme", CanonicalPathFor(&Ref{Org: org}))
	assert.Equal(t, "/acme/devconf-2026", CanonicalPathFor(&Ref{Org: org, Event: event}))
}
