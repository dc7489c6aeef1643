package api

import (
	"github.com/go-chi/chi/v5"
)

// setupAPIRoutes sets up API v1 routes
func (s *RESTServer) setupAPIRoutes(r chi.Router) {
	// Health check
	r.Get("/health", s.HandleHealth)
	r.Get("/", s.HandleRoot)

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.HandleLogin)
		r.Post("/refresh", s.HandleRefresh)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		// Users (platform admin)
		r.Route("/users", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListUsers)
			r.Post("/", s.HandleCreateUser)
			r.Get("/me", s.HandleGetCurrentUser)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetUser)
				r.Put("/", s.HandleUpdateUser)
				r.Delete("/", s.HandleDeleteUser)
			})
		})

		// Organizations
		r.Route("/organizations", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListOrganizations)
			r.Post("/", s.HandleCreateOrganization)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetOrganization)
				r.Put("/", s.HandleUpdateOrganization)
				r.Delete("/", s.HandleDeleteOrganization)
				r.Post("/deactivate", s.HandleDeactivateOrganization)

				// Memberships
				r.Route("/members", func(r chi.Router) {
					r.Get("/", s.HandleListMembers)
					r.Post("/", s.HandleAddMember)
					r.Route("/{userId}", func(r chi.Router) {
						r.Put("/", s.HandleUpdateMember)
						r.Delete("/", s.HandleRemoveMember)
					})
				})

				// Events
				r.Route("/events", func(r chi.Router) {
					r.Get("/", s.HandleListEvents)
					r.Post("/", s.HandleCreateEvent)
				})

				// Custom domains
				r.Route("/domains", func(r chi.Router) {
					r.Get("/", s.HandleListDomains)
					r.Post("/", s.HandleRegisterDomain)
				})
			})
		})

		// Events
		r.Route("/events", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetEvent)
				r.Put("/", s.HandleUpdateEvent)
				r.Delete("/", s.HandleDeleteEvent)
				r.Post("/status", s.HandleChangeEventStatus)
				r.Get("/registrations", s.HandleListRegistrations)
			})
		})

		// Custom domains
		r.Route("/domains", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetDomain)
				r.Delete("/", s.HandleDeleteDomain)
				r.Post("/verify", s.HandleRequestVerification)
				r.Post("/primary", s.HandleSetPrimaryDomain)
				r.Post("/revoke", s.HandleRevokeDomain)
			})
		})

		// Registrations; creation is public (guest registrations), the
		// rest goes through the authorization engine per registration
		r.Route("/registrations", func(r chi.Router) {
			r.Post("/", s.HandleCreateRegistration)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(s.authMiddleware)
				r.Get("/", s.HandleGetRegistration)
				r.Put("/", s.HandleUpdateRegistration)
				r.Post("/cancel", s.HandleCancelRegistration)
			})
		})
	})
}

// setupSiteRoutes sets up the tenant-routed site routes. Rendering is
// owned by the front end; these handlers return the resolved context a
// renderer needs.
func (s *RESTServer) setupSiteRoutes(r chi.Router) {
	r.Get("/", s.HandleSiteHome)
	r.Get("/auth/signin", s.HandleSignInPage)
	r.Get("/unauthorized", s.HandleUnauthorizedPage)
	r.Get("/dashboard", s.HandleDashboard)
	r.Get("/admin", s.HandlePlatformAdmin)
	r.Get("/admin/*", s.HandlePlatformAdmin)

	r.Route("/{orgSlug}", func(r chi.Router) {
		r.Get("/", s.HandleOrgHome)
		r.Get("/admin", s.HandleOrgAdmin)
		r.Get("/admin/*", s.HandleOrgAdmin)

		r.Route("/{eventSlug}", func(r chi.Router) {
			r.Get("/", s.HandleEventHome)
			r.Get("/admin", s.HandleEventAdmin)
			r.Get("/admin/*", s.HandleEventAdmin)
			r.Get("/register", s.HandleEventPage)
			r.Get("/schedule", s.HandleEventPage)
			r.Get("/speakers", s.HandleEventPage)
			r.Get("/venue", s.HandleEventPage)
			r.Get("/pages/{pageSlug}", s.HandleEventPage)
		})
	})
}
