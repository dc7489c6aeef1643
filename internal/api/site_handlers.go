package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/eventreg/eventreg-server/internal/models"
	"github.com/eventreg/eventreg-server/internal/router"
	"github.com/eventreg/eventreg-server/internal/storage"
)

// ========== Site handlers ==========
//
// These back the tenant-routed page routes. Rendering belongs to the
// front end; each handler returns the resolved context a renderer needs.
// The pipeline-attached tenant is only a hint: every handler re-resolves
// through the directory before exposing anything.

// HandleSiteHome serves the platform home context
func (s *RESTServer) HandleSiteHome(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"page":   "home",
		"locale": router.LocaleFrom(r.Context()),
	})
}

// HandleSignInPage serves the sign-in page context
func (s *RESTServer) HandleSignInPage(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"page":   "signin",
		"locale": router.LocaleFrom(r.Context()),
		"next":   r.URL.Query().Get("next"),
	})
}

// HandleUnauthorizedPage serves the forbidden page context
func (s *RESTServer) HandleUnauthorizedPage(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusForbidden, map[string]interface{}{
		"page":   "unauthorized",
		"locale": router.LocaleFrom(r.Context()),
	})
}

// HandleDashboard serves the signed-in user's dashboard context
func (s *RESTServer) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	claims, ok := router.ClaimsFrom(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"page":        "dashboard",
		"locale":      router.LocaleFrom(r.Context()),
		"userId":      claims.UserID,
		"memberships": claims.Memberships,
	})
}

// HandlePlatformAdmin serves the platform admin context. The pipeline has
// already required the super-admin role.
func (s *RESTServer) HandlePlatformAdmin(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"page":   "platform-admin",
		"locale": router.LocaleFrom(r.Context()),
	})
}

// resolveSiteTenant resolves the tenant for a site request from the path
// slugs, authoritatively. Returns nil after writing a 404 on miss.
func (s *RESTServer) resolveSiteTenant(w http.ResponseWriter, r *http.Request, orgSlug, eventSlug string) *siteTenant {
	ref, err := s.directory.ResolveByPath(r.Context(), orgSlug, eventSlug)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return nil
	}
	if ref == nil {
		s.respondError(w, http.StatusNotFound, "not found")
		return nil
	}

	st := &siteTenant{org: ref.Org, event: ref.Event}

	// Branding rides along when the request came in on a custom domain
	if hint, ok := router.TenantFrom(r.Context()); ok && hint.CustomDomain != nil {
		if hint.CustomDomain.OrgID == ref.Org.ID {
			st.branding = hint.CustomDomain.CustomBranding
		}
	}

	// The canonical host is the primary verified domain, when one exists
	var eventID *uuid.UUID
	if ref.Event != nil {
		eventID = &ref.Event.ID
	}
	primary, err := s.store.GetPrimaryDomain(r.Context(), ref.Org.ID, eventID)
	if err == nil {
		st.canonicalHost = primary.Domain
	} else if !errors.Is(err, storage.ErrNotFound) {
		log.Warn().Err(err).Str("org_id", ref.Org.ID.String()).Msg("Primary domain lookup failed")
	}

	return st
}

type siteTenant struct {
	org           *models.Organization
	event         *models.Event
	branding      models.Variables
	canonicalHost string
}

// HandleOrgHome serves an organization's public page context
func (s *RESTServer) HandleOrgHome(w http.ResponseWriter, r *http.Request) {
	st := s.resolveSiteTenant(w, r, chi.URLParam(r, "orgSlug"), "")
	if st == nil {
		return
	}

	resp := map[string]interface{}{
		"page":         "org-home",
		"locale":       router.LocaleFrom(r.Context()),
		"organization": st.org,
	}
	if st.canonicalHost != "" {
		resp["canonicalHost"] = st.canonicalHost
	}
	if st.branding != nil {
		resp["branding"] = st.branding
	}

	s.respondJSON(w, http.StatusOK, resp)
}

// HandleOrgAdmin serves the organization admin context. The pipeline has
// already authorized the principal against this organization.
func (s *RESTServer) HandleOrgAdmin(w http.ResponseWriter, r *http.Request) {
	st := s.resolveSiteTenant(w, r, chi.URLParam(r, "orgSlug"), "")
	if st == nil {
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"page":         "org-admin",
		"locale":       router.LocaleFrom(r.Context()),
		"organization": st.org,
	})
}

// HandleEventAdmin serves the event admin context. The pipeline has
// already authorized the principal against the owning organization, and
// draft events stay reachable here for their organizers.
func (s *RESTServer) HandleEventAdmin(w http.ResponseWriter, r *http.Request) {
	st := s.resolveSiteTenant(w, r, chi.URLParam(r, "orgSlug"), chi.URLParam(r, "eventSlug"))
	if st == nil {
		return
	}
	if st.event == nil {
		s.respondError(w, http.StatusNotFound, "not found")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"page":         "event-admin",
		"locale":       router.LocaleFrom(r.Context()),
		"organization": st.org,
		"event":        st.event,
	})
}

// HandleEventHome serves an event's public page context
func (s *RESTServer) HandleEventHome(w http.ResponseWriter, r *http.Request) {
	s.serveEventPage(w, r, "event-home")
}

// HandleEventPage serves event sub-pages (register, schedule, speakers,
// venue, custom pages)
func (s *RESTServer) HandleEventPage(w http.ResponseWriter, r *http.Request) {
	page := r.URL.Path[strings.LastIndexByte(r.URL.Path, '/')+1:]
	if pageSlug := chi.URLParam(r, "pageSlug"); pageSlug != "" {
		page = "pages/" + pageSlug
	}
	s.serveEventPage(w, r, page)
}

func (s *RESTServer) serveEventPage(w http.ResponseWriter, r *http.Request, page string) {
	st := s.resolveSiteTenant(w, r, chi.URLParam(r, "orgSlug"), chi.URLParam(r, "eventSlug"))
	if st == nil {
		return
	}

	// Draft and private events are invisible on public routes
	if st.event == nil || !st.event.IsPubliclyResolvable() {
		s.respondError(w, http.StatusNotFound, "not found")
		return
	}

	resp := map[string]interface{}{
		"page":         page,
		"locale":       router.LocaleFrom(r.Context()),
		"organization": st.org,
		"event":        st.event,
	}
	if st.canonicalHost != "" {
		resp["canonicalHost"] = st.canonicalHost
	}
	if st.branding != nil {
		resp["branding"] = st.branding
	}

	s.respondJSON(w, http.StatusOK, resp)
}
