package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventreg/eventreg-server/internal/auth"
	"github.com/eventreg/eventreg-server/internal/config"
	"github.com/eventreg/eventreg-server/internal/models"
	"github.com/eventreg/eventreg-server/internal/storage"
	"github.com/eventreg/eventreg-server/internal/tenant"
)

type fakeStore struct {
	domains map[string]*models.CustomDomain
	orgs    map[uuid.UUID]*models.Organization
	events  map[uuid.UUID]*models.Event
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		domains: make(map[string]*models.CustomDomain),
		orgs:    make(map[uuid.UUID]*models.Organization),
		events:  make(map[uuid.UUID]*models.Event),
	}
}

func (f *fakeStore) GetCustomDomainByName(ctx context.Context, domain string) (*models.CustomDomain, error) {
	if f.err != nil {
		return nil, f.err
	}
	if cd, ok := f.domains[domain]; ok {
		return cd, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	if f.err != nil {
		return nil, f.err
	}
	if org, ok := f.orgs[id]; ok {
		return org, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) GetOrganizationBySlug(ctx context.Context, slug string) (*models.Organization, error) {
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

func (f *fakeStore) GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	if event, ok := f.events[id]; ok {
		return event, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) GetEventBySlug(ctx context.Context, orgID uuid.UUID, slug string) (*models.Event, error) {
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

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret:          "test-secret",
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: 24 * time.Hour,
		},
		Platform: config.PlatformConfig{
			Domains:       []string{"localhost", "eventreg.app"},
			DefaultLocale: "ko",
			SignInPath:    "/auth/signin",
			ForbiddenPath: "/unauthorized",
		},
	}
}

// capture records what the pipeline dispatched to the inner handler
type capture struct {
	called bool
	path   string
	locale string
	header http.Header
	tenant *tenant.Ref
	claims *auth.Claims
}

func pipelineFixture(t *testing.T, store *fakeStore) (*Pipeline, *auth.JWTManager, http.Handler, *capture) {
	t.Helper()

	cfg := testConfig()
	jwtManager := auth.NewJWTManager(&cfg.JWT)
	directory := tenant.NewDirectory(store, cfg.Platform.Domains)
	p := NewPipeline(directory, jwtManager, cfg)

	cap := &capture{}
	handler := p.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cap.called = true
		cap.path = r.URL.Path
		cap.locale = LocaleFrom(r.Context())
		cap.header = r.Header.Clone()
		cap.tenant, _ = TenantFrom(r.Context())
		cap.claims, _ = ClaimsFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	return p, jwtManager, handler, cap
}

func accessToken(t *testing.T, m *auth.JWTManager, role models.PlatformRole, memberships ...auth.Membership) (string, uuid.UUID) {
	t.Helper()

	user := &models.User{Email: "test@example.com", Role: role, IsActive: true}
	user.ID = uuid.New()
	token, _, err := m.GenerateTokenPair(user, memberships)
	require.NoError(t, err)
	return token, user.ID
}

func addOrg(store *fakeStore, slug string) *models.Organization {
	org := &models.Organization{Slug: slug, IsActive: true}
	org.ID = uuid.New()
	store.orgs[org.ID] = org
	return org
}

func addVerifiedDomain(store *fakeStore, name string, org *models.Organization) *models.CustomDomain {
	cd := &models.CustomDomain{Domain: name, OrgID: org.ID, Status: models.DomainVerified}
	cd.ID = uuid.New()
	store.domains[name] = cd
	return cd
}

func TestPipelineBypass(t *testing.T) {
	// Bypass paths must not touch the store at all
	store := newFakeStore()
	store.err = errors.New("store must not be called")
	_, _, handler, cap := pipelineFixture(t, store)

	for _, path := range []string{"/api/v1/health", "/static/app.css", "/assets/logo.svg", "/favicon.ico"} {
		cap.called = false
		req := httptest.NewRequest("GET", path, nil)
		req.Host = "whatever.example.com"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.True(t, cap.called, path)
		assert.Equal(t, path, cap.path)
	}
}

func TestPipelineUnknownCustomDomain(t *testing.T) {
	_, _, handler, cap := pipelineFixture(t, newFakeStore())

	req := httptest.NewRequest("GET", "/", nil)
	req.Host = "unknown.example.com"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, cap.called)
}

func TestPipelineStorageFailure(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("connection refused")
	_, _, handler, cap := pipelineFixture(t, store)

	req := httptest.NewRequest("GET", "/", nil)
	req.Host = "conf.example.com"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, cap.called)
}

func TestPipelineCustomDomainRewrite(t *testing.T) {
	store := newFakeStore()
	org := addOrg(store, "acme")
	org.DefaultLocale = "en"
	cd := addVerifiedDomain(store, "conf.example.com", org)
	cd.CustomBranding = models.Variables{"logo": "https://cdn.example.com/logo.png"}

	p, _, handler, cap := pipelineFixture(t, store)

	req := httptest.NewRequest("GET", "/", nil)
	req.Host = "conf.example.com"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.True(t, cap.called)
	assert.Equal(t, "/acme", cap.path)
	assert.Equal(t, "en", cap.locale)
	require.NotNil(t, cap.tenant)
	assert.Equal(t, org.ID, cap.tenant.Org.ID)

	assert.Equal(t, "conf.example.com", cap.header.Get(HeaderCustomDomain))
	assert.Equal(t, org.ID.String(), cap.header.Get(HeaderOrgID))
	assert.NotEmpty(t, cap.header.Get(HeaderCustomBranding))

	sig := cap.header.Get(HeaderSignature)
	require.NotEmpty(t, sig)
	assert.True(t, p.VerifyContext("conf.example.com", org.ID.String(), sig))
	assert.False(t, p.VerifyContext("evil.example.com", org.ID.String(), sig))
}

func TestPipelineCustomDomainSubpath(t *testing.T) {
	store := newFakeStore()
	addVerifiedDomain(store, "conf.example.com", addOrg(store, "acme"))
	_, _, handler, cap := pipelineFixture(t, store)

	req := httptest.NewRequest("GET", "/devconf-2026/register", nil)
	req.Host = "conf.example.com"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.True(t, cap.called)
	assert.Equal(t, "/acme/devconf-2026/register", cap.path)
}

func TestPipelineLocale(t *testing.T) {
	store := newFakeStore()
	addOrg(store, "acme")
	_, _, handler, cap := pipelineFixture(t, store)

	t.Run("path segment", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/en/acme", nil)
		req.Host = "eventreg.app"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.True(t, cap.called)
		assert.Equal(t, "/acme", cap.path)
		assert.Equal(t, "en", cap.locale)
	})

	t.Run("query overrides path", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/en/acme?locale=es", nil)
		req.Host = "eventreg.app"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.True(t, cap.called)
		assert.Equal(t, "es", cap.locale)
	})

	t.Run("platform default", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/acme", nil)
		req.Host = "eventreg.app"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.True(t, cap.called)
		assert.Equal(t, "ko", cap.locale)
	})
}

// An event-scoped custom domain rewrites /admin under the org and event
// slugs; the result must still be gated against the owning organization.
func TestPipelineEventAdmin(t *testing.T) {
	store := newFakeStore()
	org := addOrg(store, "acme")
	other := addOrg(store, "globex")

	event := &models.Event{OrgModel: models.OrgModel{OrgID: org.ID}, Slug: "devconf", Status: models.EventPublished}
	event.ID = uuid.New()
	store.events[event.ID] = event

	cd := addVerifiedDomain(store, "conf.example.com", org)
	cd.EventID = &event.ID
	cd.Type = models.DomainTypeEvent

	_, jwtManager, handler, cap := pipelineFixture(t, store)

	t.Run("anonymous redirects to sign-in", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/admin", nil)
		req.Host = "conf.example.com"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/auth/signin?next=/acme/devconf/admin", rec.Header().Get("Location"))
		assert.False(t, cap.called)
	})

	t.Run("org staff passes", func(t *testing.T) {
		token, _ := accessToken(t, jwtManager, models.RoleUser,
			auth.Membership{OrgID: org.ID, Role: models.OrgRoleStaff, IsActive: true})

		req := httptest.NewRequest("GET", "/admin", nil)
		req.Host = "conf.example.com"
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.True(t, cap.called)
		assert.Equal(t, "/acme/devconf/admin", cap.path)
	})

	t.Run("member of another org is forbidden", func(t *testing.T) {
		cap.called = false
		token, _ := accessToken(t, jwtManager, models.RoleUser,
			auth.Membership{OrgID: other.ID, Role: models.OrgRoleOwner, IsActive: true})

		req := httptest.NewRequest("GET", "/admin", nil)
		req.Host = "conf.example.com"
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/unauthorized", rec.Header().Get("Location"))
		assert.False(t, cap.called)
	})

	t.Run("path form is gated the same way", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/acme/devconf/admin", nil)
		req.Host = "eventreg.app"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/auth/signin?next=/acme/devconf/admin", rec.Header().Get("Location"))
	})
}

func TestPipelineDashboard(t *testing.T) {
	store := newFakeStore()
	_, jwtManager, handler, cap := pipelineFixture(t, store)

	t.Run("anonymous redirects to sign-in", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/dashboard", nil)
		req.Host = "eventreg.app"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/auth/signin?next=/dashboard", rec.Header().Get("Location"))
		assert.False(t, cap.called)
	})

	t.Run("authenticated passes", func(t *testing.T) {
		token, userID := accessToken(t, jwtManager, models.RoleUser)

		req := httptest.NewRequest("GET", "/dashboard", nil)
		req.Host = "eventreg.app"
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.True(t, cap.called)
		require.NotNil(t, cap.claims)
		assert.Equal(t, userID, cap.claims.UserID)
	})

	t.Run("session cookie works too", func(t *testing.T) {
		cap.called = false
		token, _ := accessToken(t, jwtManager, models.RoleUser)

		req := httptest.NewRequest("GET", "/dashboard", nil)
		req.Host = "eventreg.app"
		req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.True(t, cap.called)
	})
}

func TestPipelinePlatformAdmin(t *testing.T) {
	store := newFakeStore()
	_, jwtManager, handler, cap := pipelineFixture(t, store)

	t.Run("anonymous redirects to sign-in", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/admin", nil)
		req.Host = "eventreg.app"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/auth/signin?next=/admin", rec.Header().Get("Location"))
	})

	t.Run("regular user is forbidden", func(t *testing.T) {
		token, _ := accessToken(t, jwtManager, models.RoleUser)

		req := httptest.NewRequest("GET", "/admin", nil)
		req.Host = "eventreg.app"
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/unauthorized", rec.Header().Get("Location"))
		assert.False(t, cap.called)
	})

	t.Run("super admin passes", func(t *testing.T) {
		token, _ := accessToken(t, jwtManager, models.RoleSuperAdmin)

		req := httptest.NewRequest("GET", "/admin/organizations", nil)
		req.Host = "eventreg.app"
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.True(t, cap.called)
	})
}

func TestPipelineOrgAdmin(t *testing.T) {
	store := newFakeStore()
	org := addOrg(store, "acme")
	other := addOrg(store, "globex")
	_, jwtManager, handler, cap := pipelineFixture(t, store)

	t.Run("member passes", func(t *testing.T) {
		token, _ := accessToken(t, jwtManager, models.RoleUser,
			auth.Membership{OrgID: org.ID, Role: models.OrgRoleStaff, IsActive: true})

		req := httptest.NewRequest("GET", "/acme/admin", nil)
		req.Host = "eventreg.app"
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.True(t, cap.called)
	})

	t.Run("member of another org is forbidden", func(t *testing.T) {
		cap.called = false
		token, _ := accessToken(t, jwtManager, models.RoleUser,
			auth.Membership{OrgID: other.ID, Role: models.OrgRoleOwner, IsActive: true})

		req := httptest.NewRequest("GET", "/acme/admin", nil)
		req.Host = "eventreg.app"
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/unauthorized", rec.Header().Get("Location"))
		assert.False(t, cap.called)
	})

	t.Run("public org page needs no auth", func(t *testing.T) {
		cap.called = false
		req := httptest.NewRequest("GET", "/acme", nil)
		req.Host = "eventreg.app"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.True(t, cap.called)
	})

	t.Run("invalid token is treated as anonymous", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/acme/admin", nil)
		req.Host = "eventreg.app"
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/auth/signin?next=/acme/admin", rec.Header().Get("Location"))
	})
}
